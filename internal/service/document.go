package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"doccustody/internal/anchor"
	"doccustody/internal/classifier"
	"doccustody/internal/model"
	"doccustody/internal/repository"
	"doccustody/internal/storage"
	"doccustody/internal/validation"
	"doccustody/internal/verification"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrOwnerRequired    = errors.New("owner is required")
	ErrNotFound         = errors.New("document not found")
	ErrDuplicateContent = errors.New("a document with identical content already exists")
	ErrBlobMissing      = errors.New("document content is missing")
)

const defaultDocumentType = "General"

var tracer = otel.Tracer("doccustody/service")

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// UploadCommand is one upload request from an already-authenticated caller.
type UploadCommand struct {
	Payload      []byte
	OriginalName string
	MIMEType     string
	OwnerRef     string
	DeclaredType string
	Description  string
}

// UploadResult reports the verification outcome and, when accepted, the stored record.
type UploadResult struct {
	Document     *model.Document           `json:"document,omitempty"`
	Verification model.VerificationOutcome `json:"verification"`
}

// Accepted reports whether the upload produced a record.
func (r *UploadResult) Accepted() bool {
	return r != nil && r.Document != nil
}

// DocumentService defines the custody use cases.
type DocumentService interface {
	// Upload validates, classifies, decides, and on acceptance stores and anchors the payload.
	// Rejections are results, not errors. Errors are storage failures and ErrDuplicateContent.
	Upload(ctx context.Context, cmd UploadCommand) (*UploadResult, error)

	// List returns all documents, optionally of one type, using limit/offset and a total count.
	List(ctx context.Context, limit, offset int, documentType string) (*DocumentListResult, error)

	// ListByOwner returns the owner's documents using limit/offset and a total count.
	ListByOwner(ctx context.Context, owner string, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Download returns a document and its content.
	Download(ctx context.Context, id string) (*model.Document, []byte, error)

	// PresignDownload returns a time-limited URL for the document's content.
	PresignDownload(ctx context.Context, id string, expiry time.Duration) (string, error)

	// Delete removes a document's record, then its content.
	Delete(ctx context.Context, id string) error

	// VerifyIntegrity reports whether the stored content still matches its hash and, when anchored,
	// whether the anchor still attests it.
	VerifyIntegrity(ctx context.Context, id string) (bool, error)

	// InspectIntegrity returns the individual checks behind VerifyIntegrity.
	InspectIntegrity(ctx context.Context, id string) (*IntegrityReport, error)

	// AnchorInfo describes the anchoring backend.
	AnchorInfo(ctx context.Context) anchor.Info
}

// Options tunes the pipeline.
type Options struct {
	Limits            validation.Limits
	Policy            verification.Policy
	ClassifierTimeout time.Duration
	AnchorTimeout     time.Duration
	Logger            *slog.Logger
	Metrics           *Metrics
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	blobs      storage.Blobs
	repo       repository.DocumentRepository
	classifier classifier.Classifier
	anchor     anchor.Client
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(
	blobs storage.Blobs,
	repo repository.DocumentRepository,
	cls classifier.Classifier,
	anc anchor.Client,
	opts Options,
) DocumentService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		blobs:      blobs,
		repo:       repo,
		classifier: cls,
		anchor:     anc,
		opts:       opts,
		logger:     logger.With("component", "document_service"),
		now:        time.Now,
	}
}

func (s *documentService) AnchorInfo(ctx context.Context) anchor.Info {
	return s.anchor.Info(ctx)
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int, documentType string) (*DocumentListResult, error) {
	limit, offset = normalizePage(limit, offset)
	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset, DocumentType: documentType})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) ListByOwner(ctx context.Context, owner string, limit, offset int) (*DocumentListResult, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	limit, offset = normalizePage(limit, offset)
	res, err := s.repo.ListByOwner(ctx, owner, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Download(ctx context.Context, id string) (*model.Document, []byte, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.blobs.LoadBlob(ctx, doc.StorageLocator)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("record points at missing content", "document_id", doc.ID, "locator", doc.StorageLocator)
			return nil, nil, ErrBlobMissing
		}
		return nil, nil, err
	}
	return doc, data, nil
}

func (s *documentService) PresignDownload(ctx context.Context, id string, expiry time.Duration) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignBlob(ctx, doc.StorageLocator, expiry)
}

// Delete removes the record first so readers never see a record whose content is gone. Content that
// fails to delete is left orphaned and logged.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete record: %w", err)
	}
	if err := s.blobs.DeleteBlob(ctx, doc.StorageLocator); err != nil {
		s.logger.Warn("orphaned content after delete",
			"document_id", doc.ID,
			"locator", doc.StorageLocator,
			"error", err,
		)
	}
	s.logger.Info("document deleted", "document_id", doc.ID, "owner_ref", doc.OwnerRef)
	return nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
