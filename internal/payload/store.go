package payload

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store keeps payloads for the TTL window. Every implementation returns
// ErrNotFound, ErrExpired and ErrCorrupt under the same conditions.
type Store interface {
	Put(ctx context.Context, p *Payload) (*Stored, error)
	Get(ctx context.Context, id string) (*Stored, error)
	Delete(ctx context.Context, id string) error
}

// Stored is a payload as read back from a store.
type Stored struct {
	Payload   *Payload  `json:"payload"`
	ETag      string    `json:"etag"`
	Size      int       `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Option configures the expiry policy of a store.
type Option func(*policy)

// WithTTL sets the readable window. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(p *policy) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *policy) {
		if now != nil {
			p.now = now
		}
	}
}

// policy is the encoding and expiry logic shared by the stores.
type policy struct {
	ttl time.Duration
	now func() time.Time
}

func newPolicy(opts []Option) policy {
	p := policy{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// seal fills in a missing id and creation time, validates and encodes pl.
func (p policy) seal(pl *Payload) ([]byte, error) {
	if pl.Meta.ID == "" {
		pl.Meta.ID = uuid.NewString()
	}
	if pl.Meta.CreatedAt == 0 {
		pl.Meta.CreatedAt = p.now().UnixMilli()
	}
	if err := pl.Validate(); err != nil {
		return nil, err
	}
	return Encode(pl)
}

// open decodes data and applies the expiry window.
func (p policy) open(id string, data []byte) (*Stored, error) {
	pl, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("payload %s: %w", id, err)
	}
	if pl.Expired(p.now(), p.ttl) {
		return nil, fmt.Errorf("payload %s: %w", id, ErrExpired)
	}
	return p.stored(pl, data), nil
}

func (p policy) stored(pl *Payload, data []byte) *Stored {
	return &Stored{
		Payload:   pl,
		ETag:      Digest(data),
		Size:      len(data),
		ExpiresAt: pl.ExpiresAt(p.ttl),
	}
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}
