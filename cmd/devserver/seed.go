package main

import (
	"context"
	"time"

	"github.com/docrest/go-docrest/internal/metadata"
	"github.com/docrest/go-docrest/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// seed fills the store with sample documents so the endpoints return data
// immediately after startup.
func seed(st *store.MemoryStore) error {
	ctx := context.Background()

	jobMeta, err := metadata.AnalyzeDocument(&Job{})
	if err != nil {
		return err
	}

	jobs := []*Job{
		{Title: "Gardener", Status: "published", On: time.Now().UTC(), Weight: 3},
		{Title: "Welder", Status: "draft", Notes: "night shift", On: time.Now().UTC(), Weight: 1},
		{Title: "Baker", Status: "published", On: time.Now().UTC(), Weight: 2},
	}
	for _, job := range jobs {
		if err := st.Insert(ctx, jobMeta, job); err != nil {
			return err
		}
	}

	postingMeta, err := metadata.AnalyzeDocument(&Posting{})
	if err != nil {
		return err
	}

	salary, err := primitive.ParseDecimal128("54000.50")
	if err != nil {
		return err
	}

	postings := []*Posting{
		{
			Name: "Senior Gardener",
			Loc:  Location{City: "Utrecht", Country: "NL"},
			Categories: []Category{
				{Slug: "outdoors", Counter: 12},
				{Slug: "full-time", Counter: 7},
			},
			Salary:   salary,
			Revision: 1,
		},
		{
			Name:     "Junior Baker",
			Loc:      Location{City: "Gouda", Country: "NL"},
			Revision: 1,
		},
	}
	for _, posting := range postings {
		if err := st.Insert(ctx, postingMeta, posting); err != nil {
			return err
		}
	}

	return nil
}
