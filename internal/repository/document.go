package repository

import (
	"context"

	"doccustody/internal/model"
)

// DocumentRepository defines data access for custody records using SQL queries only.
// No business logic here; strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new record. It fails with ErrDuplicateContentHash when a record with the same
	// content hash exists; the unique index decides, so concurrent identical uploads cannot both succeed.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a record by its ID or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByContentHash returns the record holding hash or ErrNotFound.
	FindByContentHash(ctx context.Context, hash string) (*model.Document, error)

	// List returns a page of all records, optionally filtered by document type.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// ListByOwner returns a page of the records owned by owner.
	ListByOwner(ctx context.Context, owner string, pq PageQuery) (*PageResult[model.Document], error)

	// AttachAnchor sets the anchor reference of an existing record or returns ErrNotFound.
	AttachAnchor(ctx context.Context, id, anchorRef string) error

	// Delete removes a record by ID or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters and an optional type filter.
type PageQuery struct {
	Limit        int
	Offset       int
	DocumentType string
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
