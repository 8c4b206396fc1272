package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"doccustody/internal/classifier"
	"doccustody/internal/hashing"
	"doccustody/internal/model"
	"doccustody/internal/repository"
	"doccustody/internal/validation"
	"doccustody/internal/verification"
)

// Upload runs validate, classify, decide, then on acceptance hash, store, record and anchor.
// The same payload buffer is classified, hashed and stored.
func (s *documentService) Upload(ctx context.Context, cmd UploadCommand) (*UploadResult, error) {
	ctx, span := tracer.Start(ctx, "documents.upload")
	defer span.End()

	if cmd.OwnerRef == "" {
		return nil, ErrOwnerRequired
	}
	declared := strings.TrimSpace(cmd.DeclaredType)
	if declared == "" {
		declared = defaultDocumentType
	}
	span.SetAttributes(
		attribute.String("document.declared_type", declared),
		attribute.Int("document.byte_size", len(cmd.Payload)),
	)

	logger := s.logger.With("owner_ref", cmd.OwnerRef, "declared_type", declared, "original_name", cmd.OriginalName)

	checked, err := validation.Validate(cmd.Payload, cmd.MIMEType, s.opts.Limits)
	if err != nil {
		if !validation.IsValidationError(err) {
			return nil, err
		}
		outcome := verification.Unsupported(err)
		logger.Info("upload rejected", "decision", outcome.Decision, "reason", outcome.Reason)
		s.opts.Metrics.upload(outcome.Decision)
		return &UploadResult{Verification: outcome}, nil
	}

	outcome, err := s.verify(ctx, cmd.Payload, checked.MIMEType, declared)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("verification.decision", string(outcome.Decision)))
	s.opts.Metrics.upload(outcome.Decision)

	if !outcome.Accepted() {
		logger.Info("upload rejected",
			"decision", outcome.Decision,
			"detected_type", outcome.DetectedType,
			"confidence", outcome.Confidence,
		)
		return &UploadResult{Verification: outcome}, nil
	}
	if outcome.Degraded {
		logger.Warn("upload accepted without verification", "decision", outcome.Decision)
	}

	doc, err := s.store(ctx, cmd, declared, checked, outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.attachAnchor(ctx, doc)

	logger.Info("document stored",
		"document_id", doc.ID,
		"content_hash", doc.ContentHash,
		"decision", outcome.Decision,
		"anchored", doc.Anchored(),
	)
	return &UploadResult{Document: doc, Verification: outcome}, nil
}

// verify classifies the payload under the classifier timeout. Only cancellation of the caller's own
// context is returned as an error; every classifier failure becomes a fallback outcome.
func (s *documentService) verify(ctx context.Context, payload []byte, mimeType, declared string) (model.VerificationOutcome, error) {
	cctx := ctx
	if s.opts.ClassifierTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.opts.ClassifierTimeout)
		defer cancel()
	}

	start := time.Now()
	verdict, err := s.classifier.Classify(cctx, payload, mimeType, declared)
	s.opts.Metrics.classified(time.Since(start), err)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.VerificationOutcome{}, ctxErr
		}
		attrs := []any{"error", err, "kind", classifier.KindOf(err)}
		var ce *classifier.Error
		if errors.As(err, &ce) {
			if ce.StatusCode != 0 {
				attrs = append(attrs, "status", ce.StatusCode)
			}
			if ce.Body != "" {
				attrs = append(attrs, "body", ce.Body)
			}
		}
		if classifier.KindOf(err) == classifier.KindDisabled {
			s.logger.Debug("classifier disabled", attrs...)
		} else {
			s.logger.Error("classifier call failed", attrs...)
		}
		return s.opts.Policy.DecideUnavailable(declared, err), nil
	}

	return s.opts.Policy.Decide(verdict, declared), nil
}

// store persists the blob then the record. A failed insert removes the blob again.
func (s *documentService) store(
	ctx context.Context,
	cmd UploadCommand,
	declared string,
	checked *validation.Result,
	outcome model.VerificationOutcome,
) (*model.Document, error) {
	hash := hashing.Hash(cmd.Payload)

	existing, err := s.repo.FindByContentHash(ctx, hash)
	switch {
	case err == nil && existing != nil:
		return nil, ErrDuplicateContent
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup content hash: %w", err)
	}

	id := uuid.New().String()
	locator, err := s.blobs.SaveBlob(ctx, cmd.Payload, checked.MIMEType, map[string]string{
		"owner_ref":      cmd.OwnerRef,
		"content_sha256": hash,
		"document_id":    id,
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:                     id,
		OriginalName:           cmd.OriginalName,
		StorageLocator:         locator,
		ContentHash:            hash,
		ByteSize:               int64(len(cmd.Payload)),
		MIMEType:               checked.MIMEType,
		PageCount:              checked.PageCount,
		OwnerRef:               cmd.OwnerRef,
		DocumentType:           declared,
		Description:            cmd.Description,
		UploadedAt:             s.now().UTC(),
		DetectedType:           outcome.DetectedType,
		VerificationDecision:   outcome.Decision,
		VerificationConfidence: outcome.Confidence,
	}

	saved, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.blobs.DeleteBlob(context.WithoutCancel(ctx), locator); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		if errors.Is(err, repository.ErrDuplicateContentHash) {
			return nil, ErrDuplicateContent
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return saved, nil
}

// attachAnchor anchors the stored hash. Failures leave the record without an anchor reference.
func (s *documentService) attachAnchor(ctx context.Context, doc *model.Document) {
	actx, span := tracer.Start(ctx, "documents.anchor",
		trace.WithAttributes(attribute.String("document.id", doc.ID)))
	defer span.End()

	if s.opts.AnchorTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(actx, s.opts.AnchorTimeout)
		defer cancel()
	}

	ref, err := s.anchor.Anchor(actx, doc.ContentHash, doc.OwnerRef)
	if err != nil {
		s.opts.Metrics.anchor("failed")
		span.RecordError(err)
		s.logger.Warn("anchoring failed, record kept without anchor",
			"document_id", doc.ID,
			"content_hash", doc.ContentHash,
			"error", err,
		)
		return
	}

	if err := s.repo.AttachAnchor(ctx, doc.ID, ref); err != nil {
		s.opts.Metrics.anchor("unrecorded")
		s.logger.Warn("anchor reference not recorded",
			"document_id", doc.ID,
			"anchor_ref", ref,
			"error", err,
		)
		return
	}
	s.opts.Metrics.anchor("anchored")
	doc.AnchorRef = &ref
}
