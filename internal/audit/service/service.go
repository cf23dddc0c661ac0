package service

import (
	"context"

	"citation/internal/audit"
	dErrors "citation/pkg/domain-errors"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
)

type Store interface {
	Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
}

// Service exposes read access to the ledger. Appends happen inside the other
// modules' transactions; nothing outside the core may write here.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Query returns entries most-recent-first, bounded to a sane page size.
func (s *Service) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	if filter.SinceSeq < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "since must be non-negative")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultQueryLimit
	}
	if filter.Limit > maxQueryLimit {
		filter.Limit = maxQueryLimit
	}

	entries, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to query audit log")
	}
	return entries, nil
}
