package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	apierrors "liciel/internal/errors"
	"liciel/internal/grouping"
	"liciel/internal/infrastructure"
	"liciel/internal/payload"
)

// PayloadService stores and reads interchange payloads.
type PayloadService struct {
	store  payload.Store
	logger *slog.Logger
}

// NewPayloadService wraps store.
func NewPayloadService(store payload.Store, logger *slog.Logger) *PayloadService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &PayloadService{
		store:  store,
		logger: infrastructure.WithComponent(logger, "payload_service"),
	}
}

// Store returns the underlying store.
func (s *PayloadService) Store() payload.Store { return s.store }

// Put stores p. A payload without rows is rejected.
func (s *PayloadService) Put(ctx context.Context, p *payload.Payload) (*payload.Stored, error) {
	if p == nil || len(p.Rows) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, payload.ErrNoRows)
	}
	stored, err := s.store.Put(ctx, p)
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err != nil {
		return nil, storeError("failed to store payload", p.Meta.ID, err)
	}
	s.logger.InfoContext(ctx, "payload stored",
		slog.String("payload_id", p.Meta.ID),
		slog.String("label", p.Meta.Label),
		slog.Int("rows", len(p.Rows)),
		slog.Int("size_bytes", stored.Size))
	return stored, nil
}

// Get reads the payload with id. Errors wrap payload.ErrNotFound,
// payload.ErrExpired or payload.ErrCorrupt.
func (s *PayloadService) Get(ctx context.Context, id string) (*payload.Stored, error) {
	stored, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError("failed to load payload", id, err)
	}
	return stored, nil
}

// storeError wraps backend failures as storage errors and passes the
// payload sentinels through.
func storeError(msg, id string, err error) error {
	switch {
	case errors.Is(err, payload.ErrNotFound),
		errors.Is(err, payload.ErrExpired),
		errors.Is(err, payload.ErrCorrupt),
		errors.Is(err, context.Canceled):
		return err
	}
	return apierrors.NewStorageError(msg, err).WithContext("payload_id", id)
}

// Groups returns the city, address and unit tree of a payload.
func (s *PayloadService) Groups(ctx context.Context, id string) (*grouping.Tree, error) {
	stored, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return grouping.Build(stored.Payload.Rows), nil
}

// Ping checks a remote store. In-process stores are always ready.
func (s *PayloadService) Ping(ctx context.Context) error {
	if p, ok := s.store.(payload.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
