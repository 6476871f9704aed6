package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	docrest "github.com/docrest/go-docrest"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	st := docrest.NewMemoryStore()
	service := docrest.NewService(st)
	service.SetLogger(logger)

	// Jobs expose every property except the internal sort weight, which is
	// renamed on the wire.
	jobSerializer, err := docrest.NewSerializer(&Job{})
	if err != nil {
		log.Fatal("Failed to build job serializer:", err)
	}
	if err := service.RegisterResource(jobSerializer); err != nil {
		log.Fatal("Failed to register jobs:", err)
	}

	// Postings restrict the embedded category fields to the slug, leaving the
	// counter server-managed.
	categorySerializer, err := docrest.NewEmbeddedSerializer(&Category{},
		docrest.Fields("slug"))
	if err != nil {
		log.Fatal("Failed to build category serializer:", err)
	}
	postingSerializer, err := docrest.NewSerializer(&Posting{},
		docrest.DeclareField(docrest.Field{
			Name:   "categories",
			Nested: categorySerializer,
			Many:   true,
		}))
	if err != nil {
		log.Fatal("Failed to build posting serializer:", err)
	}
	if err := service.RegisterResource(postingSerializer); err != nil {
		log.Fatal("Failed to register postings:", err)
	}

	if err := seed(st); err != nil {
		log.Fatal("Failed to seed store:", err)
	}

	fmt.Println("Development server starting...")
	fmt.Println("Service endpoints:")
	fmt.Println("  Index:          http://localhost:8080/")
	fmt.Println("  Jobs:           http://localhost:8080/jobs")
	fmt.Println("  Single Job:     http://localhost:8080/jobs/<id>")
	fmt.Println("  Postings:       http://localhost:8080/postings")
	fmt.Println("  Single Posting: http://localhost:8080/postings/<id>")
	fmt.Println()
	fmt.Println("Query options:")
	fmt.Println("  GET http://localhost:8080/jobs?limit=2&offset=1&order=-sort_weight")
	fmt.Println("  GET http://localhost:8080/jobs?status=published")
	fmt.Println()

	if err := service.ListenAndServe(":8080"); err != nil {
		log.Fatal("Server failed:", err)
	}
}
