package anchor

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"
)

// Stub fabricates references without contacting any ledger. VerifyAnchor always succeeds, so it offers
// no integrity guarantee.
type Stub struct {
	now func() time.Time
}

var _ Client = (*Stub)(nil)

func NewStub() *Stub {
	return &Stub{now: time.Now}
}

// Anchor returns "0x" followed by the hex unix millis and a random hex suffix.
func (s *Stub) Anchor(ctx context.Context, hash, owner string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "0x" + strconv.FormatInt(s.now().UnixMilli(), 16) + strconv.FormatUint(uint64(rand.Uint32()), 16), nil
}

func (s *Stub) VerifyAnchor(ctx context.Context, hash string) (bool, error) {
	return true, nil
}

func (s *Stub) Guarantees() bool { return false }

func (s *Stub) Info(ctx context.Context) Info {
	return Info{Backend: "stub", Version: "stub-1", Connected: true, Guarantees: false}
}
