// Package validation enforces the local payload constraints checked before any outbound classification call.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	ErrEmptyPayload    = errors.New("payload is empty")
	ErrPayloadTooLarge = errors.New("payload exceeds the maximum size")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrContentMismatch = errors.New("file content does not match its declared type")
	ErrInvalidPDF      = errors.New("pdf could not be parsed")
)

// Limits defines the constraints a payload must satisfy.
type Limits struct {
	MaxBytes     int64
	AllowedTypes []string
	ValidatePDF  bool
}

// Result describes a payload that passed validation.
type Result struct {
	MIMEType  string
	PageCount *int
}

// NormalizeMIME lowercases a media type, drops its parameters and folds known aliases.
func NormalizeMIME(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(v); err == nil {
		v = mt
	}
	v = strings.ToLower(v)
	switch v {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "application/x-pdf":
		return "application/pdf"
	}
	return v
}

// Validate checks data against limits. declaredMIME may be empty, in which case the sniffed type is used.
// Every returned error wraps one of the package sentinels.
func Validate(data []byte, declaredMIME string, limits Limits) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if limits.MaxBytes > 0 && int64(len(data)) > limits.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(data), limits.MaxBytes)
	}

	// Magic number detection; reads at most 512 bytes.
	sniffed := NormalizeMIME(http.DetectContentType(data))
	declared := NormalizeMIME(declaredMIME)
	if declared == "" || declared == "application/octet-stream" {
		declared = sniffed
	}

	if !allowed(declared, limits.AllowedTypes) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, declared)
	}
	if sniffed != declared {
		return nil, fmt.Errorf("%w: declared %s, detected %s", ErrContentMismatch, declared, sniffed)
	}

	res := &Result{MIMEType: declared}
	if declared == "application/pdf" && limits.ValidatePDF {
		count, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
		}
		res.PageCount = &count
	}
	return res, nil
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyPayload) ||
		errors.Is(err, ErrPayloadTooLarge) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrContentMismatch) ||
		errors.Is(err, ErrInvalidPDF)
}

func allowed(mt string, list []string) bool {
	for _, a := range list {
		if NormalizeMIME(a) == mt {
			return true
		}
	}
	return false
}
