package anchor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLedger keeps an append-only hash ledger in Redis. Each hash is written once with SETNX, so the
// first anchor of a hash wins and later calls return its reference.
type RedisLedger struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ Client = (*RedisLedger)(nil)

type ledgerEntry struct {
	Ref        string    `json:"ref"`
	Owner      string    `json:"owner"`
	AnchoredAt time.Time `json:"anchored_at"`
}

// NewRedisLedger builds a ledger on an existing client.
func NewRedisLedger(client *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "doccustody:anchor"
	}
	return &RedisLedger{client: client, prefix: prefix, now: time.Now}
}

// DialRedisLedger connects to addr and builds a ledger.
func DialRedisLedger(addr, password string, db int, prefix string) *RedisLedger {
	return NewRedisLedger(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), prefix)
}

func (l *RedisLedger) key(hash string) string {
	return l.prefix + ":" + hash
}

func (l *RedisLedger) Anchor(ctx context.Context, hash, owner string) (string, error) {
	entry := ledgerEntry{
		Ref:        "ledger-" + uuid.NewString(),
		Owner:      owner,
		AnchoredAt: l.now().UTC(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}

	ok, err := l.client.SetNX(ctx, l.key(hash), raw, 0).Result()
	if err != nil {
		return "", fmt.Errorf("anchor %s: %w", hash, err)
	}
	if ok {
		return entry.Ref, nil
	}

	existing, err := l.lookup(ctx, hash)
	if err != nil {
		return "", err
	}
	return existing.Ref, nil
}

func (l *RedisLedger) VerifyAnchor(ctx context.Context, hash string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(hash)).Result()
	if err != nil {
		return false, fmt.Errorf("verify anchor %s: %w", hash, err)
	}
	return n == 1, nil
}

func (l *RedisLedger) lookup(ctx context.Context, hash string) (*ledgerEntry, error) {
	raw, err := l.client.Get(ctx, l.key(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotAnchored
	}
	if err != nil {
		return nil, fmt.Errorf("lookup anchor %s: %w", hash, err)
	}
	var e ledgerEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode anchor %s: %w", hash, err)
	}
	return &e, nil
}

func (l *RedisLedger) Guarantees() bool { return true }

func (l *RedisLedger) Info(ctx context.Context) Info {
	info := Info{Backend: "redis", Version: "ledger-1", Guarantees: true}
	info.Connected = l.client.Ping(ctx).Err() == nil
	return info
}

// Close releases the underlying connection pool.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
