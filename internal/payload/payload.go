// Package payload defines the interchange document handed from the scan
// stage to the presentation and export stages, and the stores that keep
// it for a limited time.
package payload

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"liciel/internal/mission"
	"liciel/internal/synthesis"
	"liciel/internal/xmlrows"
)

// DefaultTTL is how long a payload stays readable after its creation.
const DefaultTTL = 10 * time.Minute

// SourceMissions tags payloads built from scanned missions.
const SourceMissions = "analyse-missions"

var (
	// ErrNotFound is returned for unknown payload ids.
	ErrNotFound = errors.New("payload not found")
	// ErrExpired is returned once a payload is older than the store TTL.
	ErrExpired = errors.New("payload expired")
	// ErrCorrupt is returned when a stored payload cannot be decoded.
	ErrCorrupt = errors.New("payload corrupt")
	// ErrNoRows is returned when a selection holds no synthesis row.
	ErrNoRows = errors.New("no synthesis rows to export")
)

// Meta identifies a payload. CreatedAt is in Unix milliseconds.
type Meta struct {
	ID        string `json:"id" validate:"required,max=128"`
	Label     string `json:"label,omitempty" validate:"max=512"`
	CreatedAt int64  `json:"createdAt" validate:"required,gt=0"`
	Source    string `json:"source,omitempty" validate:"max=128"`
}

// Created returns CreatedAt as a time.
func (m Meta) Created() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// Payload is the interchange document.
type Payload struct {
	Rows     []synthesis.Row          `json:"rows"`
	Tables   map[string][]xmlrows.Row `json:"tables"`
	Synthese json.RawMessage          `json:"synthese,omitempty"`
	Meta     Meta                     `json:"meta"`
}

// ExpiresAt returns the end of the readable window for ttl.
func (p *Payload) ExpiresAt(ttl time.Duration) time.Time {
	return p.Meta.Created().Add(ttl)
}

// Expired reports whether p is past its window at now.
func (p *Payload) Expired(now time.Time, ttl time.Duration) bool {
	return now.After(p.ExpiresAt(ttl))
}

// FromMissions builds a payload from the missions selected by f.
func FromMissions(missions []*mission.Mission, f mission.Filter, now time.Time) (*Payload, error) {
	selected := f.Apply(missions)
	rows := mission.CollectRows(selected)
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return &Payload{
		Rows: rows,
		Meta: Meta{
			ID:        uuid.NewString(),
			Label:     f.Label(len(selected)),
			CreatedAt: now.UnixMilli(),
			Source:    SourceMissions,
		},
	}, nil
}

var validate = validator.New()

// Validate checks the metadata of p.
func (p *Payload) Validate() error {
	if err := validate.Struct(p.Meta); err != nil {
		return fmt.Errorf("invalid payload meta: %w", err)
	}
	return nil
}

// Encode serializes p as indented JSON.
func Encode(p *Payload) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

// Decode parses data. Undecodable documents and documents without valid
// metadata yield ErrCorrupt.
func Decode(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &p, nil
}

// Digest returns the hex BLAKE2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
