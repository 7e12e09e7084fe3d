package visitors

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Visitor is one registered guest. Visitors have no accounts; the host they
// are visiting is a staff user who receives their notifications.
type Visitor struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Company    string    `json:"company,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	HostUserID string    `json:"host_user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store provides persistence for visitor records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Insert(ctx context.Context, v *Visitor) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO visitors (name, company, phone, host_user_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		v.Name, v.Company, v.Phone, v.HostUserID,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert visitor: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*Visitor, error) {
	var v Visitor
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, company, phone, host_user_id, created_at
		 FROM visitors WHERE id = $1`, id,
	).Scan(&v.ID, &v.Name, &v.Company, &v.Phone, &v.HostUserID, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("visitor not found: %w", err)
	}
	return &v, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]Visitor, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, company, phone, host_user_id, created_at
		 FROM visitors ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	defer rows.Close()

	var out []Visitor
	for rows.Next() {
		var v Visitor
		if err := rows.Scan(&v.ID, &v.Name, &v.Company, &v.Phone, &v.HostUserID, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if out == nil {
		out = []Visitor{}
	}
	return out, rows.Err()
}
