package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/db"
)

// Repository persists calendar entries.
type Repository struct {
	q db.Querier
}

// NewRepository constructs the repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// Insert stores an entry. Replayed tasks carry the same id and are ignored.
func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO calendar_events (id, description, event_date, category, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO NOTHING`,
		entry.ID, entry.Description, entry.Date, entry.Category)
	if err != nil {
		return fmt.Errorf("calendar: insert: %w", err)
	}
	return nil
}

// Notify implements Notifier by writing straight to the table.
func (r *Repository) Notify(ctx context.Context, entry Entry) error {
	return r.Insert(ctx, entry)
}

// Between lists entries dated in [from, to).
func (r *Repository) Between(ctx context.Context, from, to time.Time) ([]Entry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, description, event_date, category, created_at
		FROM calendar_events
		WHERE event_date >= $1 AND event_date < $2
		ORDER BY event_date, created_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("calendar: list: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Description, &e.Date, &e.Category, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
