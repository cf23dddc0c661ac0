package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"citation/internal/audit"
	"citation/pkg/domain"
	txcontext "citation/pkg/platform/tx"
)

// Store persists audit entries in PostgreSQL. Append joins a caller-owned
// transaction when one is present in the context, so ledger entries commit
// atomically with the mutation they describe. The bigserial seq column is the
// ordering key; timestamps are display-only.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts one ledger entry. Seq is assigned by the database at commit.
// There is deliberately no update or delete counterpart.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	query := `
		INSERT INTO audit_entries (id, actor_id, actor_role, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		entry.ActorID,
		string(entry.ActorRole),
		string(entry.Action),
		entry.Details,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns entries most-recent-first by commit order.
func (s *Store) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	query := `
		SELECT seq, id, actor_id, actor_role, action, details, created_at
		FROM audit_entries
		WHERE ($1 = '' OR actor_id = $1)
		  AND seq > $2
		ORDER BY seq DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, filter.ActorID, filter.SinceSeq, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entry audit.Entry
			role  string
			act   string
		)
		if err := rows.Scan(&entry.Seq, &entry.ID, &entry.ActorID, &role, &act, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ActorRole = domain.Role(role)
		entry.Action = audit.Action(act)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
