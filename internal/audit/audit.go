package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one recorded staff action. UserID is nil for actions taken from
// the unauthenticated kiosk.
type Entry struct {
	ID        string          `json:"id"`
	UserID    *string         `json:"user_id"`
	Action    string          `json:"action"`
	Resource  string          `json:"resource"`
	Details   json.RawMessage `json:"details"`
	Timestamp time.Time       `json:"timestamp"`
}

// ListParams holds the query filters for listing audit entries.
type ListParams struct {
	UserID   string
	Action   string
	FromDate string
	ToDate   string
	Limit    int
	Offset   int
}

// Store provides persistence for the audit_log table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert records a new audit entry.
func (s *Store) Insert(ctx context.Context, userID *string, action, resource string, details json.RawMessage) error {
	if details == nil {
		details = json.RawMessage("{}")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (user_id, action, resource, details) VALUES ($1, $2, $3, $4)`,
		userID, action, resource, details,
	)
	return err
}

// List returns audit entries matching the given filters, newest first, plus
// the total count before paging.
func (s *Store) List(ctx context.Context, params ListParams) ([]Entry, int, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}

	query := `SELECT id, user_id, action, resource, details, timestamp FROM audit_log WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM audit_log WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	addFilter := func(clause, value string) {
		if value == "" {
			return
		}
		suffix := clause + " $" + strconv.Itoa(argIdx)
		query += suffix
		countQuery += suffix
		args = append(args, value)
		argIdx++
	}
	addFilter(` AND user_id =`, params.UserID)
	addFilter(` AND action =`, params.Action)
	addFilter(` AND timestamp >=`, params.FromDate)
	addFilter(` AND timestamp <=`, params.ToDate)

	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY timestamp DESC LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Resource, &e.Details, &e.Timestamp); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, total, rows.Err()
}
