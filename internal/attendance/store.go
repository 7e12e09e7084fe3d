package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one attendance row: a visitor currently on site, or a completed
// visit once CheckOutAt is set.
type Record struct {
	ID          string     `json:"id"`
	VisitorID   string     `json:"visitor_id"`
	VisitorName string     `json:"visitor_name,omitempty"`
	HostUserID  string     `json:"host_user_id,omitempty"`
	CheckInAt   time.Time  `json:"check_in_at"`
	CheckOutAt  *time.Time `json:"check_out_at,omitempty"`
}

// Store provides persistence for attendance rows.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CheckIn opens a new attendance row for the visitor and returns it together
// with the visitor's name and host, which the caller needs for notification
// fan-out.
func (s *Store) CheckIn(ctx context.Context, visitorID string) (*Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx,
		`WITH ins AS (
		   INSERT INTO attendance (visitor_id) VALUES ($1)
		   RETURNING id, visitor_id, check_in_at
		 )
		 SELECT ins.id, ins.visitor_id, v.name, v.host_user_id, ins.check_in_at
		 FROM ins JOIN visitors v ON v.id = ins.visitor_id`,
		visitorID,
	).Scan(&rec.ID, &rec.VisitorID, &rec.VisitorName, &rec.HostUserID, &rec.CheckInAt)
	if err != nil {
		return nil, fmt.Errorf("check in visitor %s: %w", visitorID, err)
	}
	return &rec, nil
}

// CheckOut closes an open attendance row. Rows already checked out are not
// touched and report an error.
func (s *Store) CheckOut(ctx context.Context, recordID string) (*Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx,
		`WITH upd AS (
		   UPDATE attendance SET check_out_at = NOW()
		   WHERE id = $1 AND check_out_at IS NULL
		   RETURNING id, visitor_id, check_in_at, check_out_at
		 )
		 SELECT upd.id, upd.visitor_id, v.name, v.host_user_id, upd.check_in_at, upd.check_out_at
		 FROM upd JOIN visitors v ON v.id = upd.visitor_id`,
		recordID,
	).Scan(&rec.ID, &rec.VisitorID, &rec.VisitorName, &rec.HostUserID, &rec.CheckInAt, &rec.CheckOutAt)
	if err != nil {
		return nil, fmt.Errorf("check out record %s: %w", recordID, err)
	}
	return &rec, nil
}

// List returns recent attendance rows, newest check-in first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.visitor_id, v.name, v.host_user_id, a.check_in_at, a.check_out_at
		 FROM attendance a JOIN visitors v ON v.id = a.visitor_id
		 ORDER BY a.check_in_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.VisitorID, &rec.VisitorName, &rec.HostUserID, &rec.CheckInAt, &rec.CheckOutAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if out == nil {
		out = []Record{}
	}
	return out, rows.Err()
}
