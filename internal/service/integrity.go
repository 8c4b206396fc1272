package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"doccustody/internal/hashing"
	"doccustody/internal/storage"
)

// IntegrityReport holds the individual checks of an integrity verification.
type IntegrityReport struct {
	DocumentID  string `json:"document_id"`
	ContentHash string `json:"content_hash"`
	HashMatches bool   `json:"hash_matches"`
	BlobMissing bool   `json:"blob_missing"`
	// AnchorChecked is false for records that were never anchored.
	AnchorChecked    bool `json:"anchor_checked"`
	AnchorVerified   bool `json:"anchor_verified"`
	AnchorGuaranteed bool `json:"anchor_guaranteed"`
	// AnchorError is set when the anchoring backend could not be asked. AnchorVerified is then false.
	AnchorError string `json:"anchor_error,omitempty"`
}

// Valid reports whether the content matches and any anchor still attests it.
func (r *IntegrityReport) Valid() bool {
	if r == nil || !r.HashMatches {
		return false
	}
	return !r.AnchorChecked || r.AnchorVerified
}

func (s *documentService) VerifyIntegrity(ctx context.Context, id string) (bool, error) {
	report, err := s.InspectIntegrity(ctx, id)
	if err != nil {
		return false, err
	}
	return report.Valid(), nil
}

// InspectIntegrity recomputes the content hash and checks the anchor concurrently. Missing content and an
// unreachable anchor backend are failed checks, not errors.
func (s *documentService) InspectIntegrity(ctx context.Context, id string) (*IntegrityReport, error) {
	ctx, span := tracer.Start(ctx, "documents.verify_integrity")
	defer span.End()

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{
		DocumentID:       doc.ID,
		ContentHash:      doc.ContentHash,
		AnchorChecked:    doc.Anchored(),
		AnchorGuaranteed: s.anchor.Guarantees(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := s.blobs.LoadBlob(gctx, doc.StorageLocator)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				report.BlobMissing = true
				return nil
			}
			return err
		}
		report.HashMatches = hashing.Matches(data, doc.ContentHash)
		return nil
	})
	if report.AnchorChecked {
		g.Go(func() error {
			ok, err := s.anchor.VerifyAnchor(gctx, doc.ContentHash)
			if err != nil {
				report.AnchorError = err.Error()
				return nil
			}
			report.AnchorVerified = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.opts.Metrics.integrity("error")
		return nil, err
	}

	result := "valid"
	if !report.Valid() {
		result = "invalid"
		s.logger.Warn("integrity check failed",
			"document_id", doc.ID,
			"hash_matches", report.HashMatches,
			"blob_missing", report.BlobMissing,
			"anchor_checked", report.AnchorChecked,
			"anchor_verified", report.AnchorVerified,
			"anchor_error", report.AnchorError,
		)
	}
	s.opts.Metrics.integrity(result)
	return report, nil
}
