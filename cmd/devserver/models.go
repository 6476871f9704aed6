package main

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Job is a simple flat document: scalar fields, an enumerated status, a
// renamed sort weight, and a server-assigned timestamp.
type Job struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title  string             `bson:"title" json:"title" docrest:"required,maxlength:200"`
	Status string             `bson:"status" json:"status" docrest:"choices:draft|published,default:draft"`
	Notes  string             `bson:"notes,omitempty" json:"notes"`
	On     time.Time          `bson:"on" json:"on" docrest:"default:now"`
	Weight int                `bson:"weight" json:"sort_weight"`
}

// Location is a sub-document stored inline within a Posting.
type Location struct {
	City    string `bson:"city" json:"city"`
	Country string `bson:"country" json:"country"`
}

// Category is an embedded list element with an internal counter that is not
// exposed for writing through the restricted serializer below.
type Category struct {
	Slug    string `bson:"slug" json:"slug"`
	Counter int    `bson:"counter" json:"counter"`
}

// Posting demonstrates nested serialization: one embedded Location and a list
// of embedded Categories, plus a decimal salary.
type Posting struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name       string               `bson:"name" json:"name" docrest:"required"`
	Loc        Location             `bson:"loc" json:"location"`
	Categories []Category           `bson:"categories" json:"categories"`
	Salary     primitive.Decimal128 `bson:"salary,omitempty" json:"salary"`
	Revision   int                  `bson:"revision" json:"revision" docrest:"etag,readonly"`
}
