package anchor

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Retrying retries Anchor with exponential backoff. Anchoring is idempotent on the hash, so repeating a
// call that may have reached the backend is safe. VerifyAnchor is passed through unchanged.
type Retrying struct {
	next            Client
	maxAttempts     uint
	initialInterval time.Duration
	logger          *slog.Logger
}

var _ Client = (*Retrying)(nil)

// NewRetrying wraps next. maxAttempts below 1 means a single attempt.
func NewRetrying(next Client, maxAttempts int, logger *slog.Logger) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{
		next:            next,
		maxAttempts:     uint(maxAttempts),
		initialInterval: 200 * time.Millisecond,
		logger:          logger,
	}
}

// WithInitialInterval sets the first backoff delay.
func (r *Retrying) WithInitialInterval(d time.Duration) *Retrying {
	r.initialInterval = d
	return r
}

func (r *Retrying) Anchor(ctx context.Context, hash, owner string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval

	return backoff.Retry(ctx, func() (string, error) {
		ref, err := r.next.Anchor(ctx, hash, owner)
		if err != nil && ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		return ref, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("anchor attempt failed", "hash", hash, "error", err, "retry_in", next)
		}),
	)
}

func (r *Retrying) VerifyAnchor(ctx context.Context, hash string) (bool, error) {
	return r.next.VerifyAnchor(ctx, hash)
}

func (r *Retrying) Guarantees() bool { return r.next.Guarantees() }

func (r *Retrying) Info(ctx context.Context) Info { return r.next.Info(ctx) }
