package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

const (
	createWelcomedTable = `CREATE TABLE IF NOT EXISTS welcomed_members (member_id TEXT PRIMARY KEY)`
	selectWelcomed      = `SELECT member_id FROM welcomed_members`
	deleteWelcomed      = `DELETE FROM welcomed_members`
	insertWelcomed      = `INSERT INTO welcomed_members (member_id) VALUES ($1)`
)

// PostgresStore keeps the ledger in the welcomed_members table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string { return "postgres" }

// EnsureSchema creates the ledger table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createWelcomedTable); err != nil {
		return fmt.Errorf("create welcomed_members: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, selectWelcomed)
	if err != nil {
		return nil, fmt.Errorf("query welcomed_members: %w", err)
	}
	defer rows.Close()

	members := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan welcomed_members: %w", err)
		}
		members[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate welcomed_members: %w", err)
	}
	return members, nil
}

func (s *PostgresStore) Save(ctx context.Context, members map[string]bool) error {
	ids := make([]string, 0, len(members))
	for id, welcomed := range members {
		if welcomed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteWelcomed); err != nil {
		return fmt.Errorf("clear welcomed_members: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, insertWelcomed, id); err != nil {
			return fmt.Errorf("insert %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
