package postgres

import (
	"context"
	"database/sql"

	"doccustody/internal/model"
	"doccustody/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, original_name, storage_locator, content_hash, byte_size, mime_type, page_count,
		owner_ref, document_type, description, uploaded_at, anchor_ref,
		detected_type, verification_decision, verification_confidence`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var (
		d         model.Document
		pageCount sql.NullInt64
		anchorRef sql.NullString
		decision  string
	)
	if err := s.Scan(
		&d.ID,
		&d.OriginalName,
		&d.StorageLocator,
		&d.ContentHash,
		&d.ByteSize,
		&d.MIMEType,
		&pageCount,
		&d.OwnerRef,
		&d.DocumentType,
		&d.Description,
		&d.UploadedAt,
		&anchorRef,
		&d.DetectedType,
		&decision,
		&d.VerificationConfidence,
	); err != nil {
		return nil, err
	}
	if pageCount.Valid {
		n := int(pageCount.Int64)
		d.PageCount = &n
	}
	if anchorRef.Valid {
		ref := anchorRef.String
		d.AnchorRef = &ref
	}
	d.VerificationDecision = model.Decision(decision)
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	q := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + documentColumns

	var pageCount sql.NullInt64
	if doc.PageCount != nil {
		pageCount = sql.NullInt64{Int64: int64(*doc.PageCount), Valid: true}
	}
	var anchorRef sql.NullString
	if doc.AnchorRef != nil {
		anchorRef = sql.NullString{String: *doc.AnchorRef, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.OriginalName,
		doc.StorageLocator,
		doc.ContentHash,
		doc.ByteSize,
		doc.MIMEType,
		pageCount,
		doc.OwnerRef,
		doc.DocumentType,
		doc.Description,
		doc.UploadedAt,
		anchorRef,
		doc.DetectedType,
		string(doc.VerificationDecision),
		doc.VerificationConfidence,
	)
	out, err := scanDocument(row)
	if err != nil {
		return nil, repository.MapError(err)
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, repository.MapError(err)
	}
	return d, nil
}

// FindByContentHash fetches the document holding the given content hash.
func (r *DocumentPostgres) FindByContentHash(ctx context.Context, hash string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE content_hash = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, hash))
	if err != nil {
		return nil, repository.MapError(err)
	}
	return d, nil
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
// An empty DocumentType matches every row.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE ($1::text = '' OR document_type = $1::text)`
	qList := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE ($1::text = '' OR document_type = $1::text)
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return r.page(ctx, qCount, qList, pq, pq.DocumentType)
}

// ListByOwner returns the owner's documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) ListByOwner(ctx context.Context, owner string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE owner_ref = $1`
	qList := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE owner_ref = $1
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return r.page(ctx, qCount, qList, pq, owner)
}

func (r *DocumentPostgres) page(ctx context.Context, qCount, qList string, pq repository.PageQuery, filter string) (*repository.PageResult[model.Document], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, filter).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, qList, filter, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// AttachAnchor records the anchor reference returned after the row was created.
func (r *DocumentPostgres) AttachAnchor(ctx context.Context, id, anchorRef string) error {
	const q = `UPDATE documents SET anchor_ref = $2 WHERE id = $1`
	return r.execOne(ctx, q, id, anchorRef)
}

// Delete removes a document by ID.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	return r.execOne(ctx, q, id)
}

func (r *DocumentPostgres) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return repository.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
