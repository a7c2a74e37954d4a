// Package docstore is the document store every content and per-user
// record lives in. Queries are limited to equality predicates on top-level
// fields; documents are addressed by a string id per collection.
package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// Filter holds equality predicates keyed by document field name.
// An empty filter matches every document in the collection.
type Filter map[string]interface{}

// Fields is a partial document used by Update.
type Fields map[string]interface{}

// Store is implemented by the Mongo and in-memory backends.
//
// out arguments follow the mongo driver convention: Get decodes into a
// struct pointer, Find into a pointer to a slice.
type Store interface {
	Get(ctx context.Context, collection, id string, out interface{}) error
	Find(ctx context.Context, collection string, filter Filter, out interface{}) error
	Count(ctx context.Context, collection string, filter Filter) (int64, error)

	// Put creates or fully replaces the document stored under id.
	Put(ctx context.Context, collection, id string, doc interface{}) error
	// PutMany writes all docs or none. ids and docs are parallel.
	PutMany(ctx context.Context, collection string, ids []string, docs []interface{}) error
	// Update sets the given fields on an existing document.
	Update(ctx context.Context, collection, id string, fields Fields) error
	// Delete removes a document. Deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error

	Close(ctx context.Context) error
}

// NewID returns a fresh document id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
