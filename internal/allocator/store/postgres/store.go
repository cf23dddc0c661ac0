package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Store backs the allocator with a single-row counter table. The upsert is
// one atomic statement, so concurrent callers serialize on the row lock and
// each sees a distinct value.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Next(ctx context.Context) (int64, error) {
	query := `
		INSERT INTO ticket_counter (id, value)
		VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET value = ticket_counter.value + 1
		RETURNING value
	`
	var value int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&value); err != nil {
		return 0, fmt.Errorf("increment ticket counter: %w", err)
	}
	return value, nil
}
