// Package anchor records content hashes with an external attestation service.
//
// Anchoring is advisory: a document without an anchor reference is complete, and callers must treat
// failures here as metadata loss only.
package anchor

import (
	"context"
	"errors"
)

// ErrNotAnchored is returned when a hash has no attestation.
var ErrNotAnchored = errors.New("hash not anchored")

// Info describes the configured backend.
type Info struct {
	Backend    string `json:"backend"`
	Version    string `json:"version"`
	Connected  bool   `json:"connected"`
	Guarantees bool   `json:"guarantees"`
}

// Client anchors content hashes and confirms prior anchors.
type Client interface {
	// Anchor records hash for owner and returns an opaque reference. It is idempotent on hash.
	Anchor(ctx context.Context, hash, owner string) (string, error)
	// VerifyAnchor reports whether hash is still attested.
	VerifyAnchor(ctx context.Context, hash string) (bool, error)
	// Guarantees is false for backends whose VerifyAnchor is not a real check.
	Guarantees() bool
	Info(ctx context.Context) Info
}
