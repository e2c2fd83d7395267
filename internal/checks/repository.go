package checks

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/ledger"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/db"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// Repository persists checks and their invoice links.
type Repository interface {
	All(ctx context.Context) ([]Check, error)
	FindByID(ctx context.Context, id int64) (Check, error)
	// PriorVersion returns the stored check before an edit, or nil when the
	// check does not exist yet.
	PriorVersion(ctx context.Context, id int64) (*Check, error)
	Save(ctx context.Context, check Check) (Check, error)
	Delete(ctx context.Context, id int64) error
}

// Repos groups the collections one check action reads and writes.
type Repos struct {
	Checks   Repository
	Invoices ledger.Repository
}

// UnitOfWork runs fn with both repositories bound to one transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}

type pgUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork wraps the pool in repeatable-read transactions.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return pgUnitOfWork{pool: pool}
}

func (u pgUnitOfWork) Do(ctx context.Context, fn func(context.Context, Repos) error) error {
	return db.WithTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, Repos{Checks: NewRepository(tx), Invoices: ledger.NewRepository(tx)})
	})
}

// PGRepository provides PostgreSQL backed persistence for checks.
type PGRepository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{q: q}
}

const checkColumns = `id, number, issued_at, due_at, payee, amount::text, currency, status, created_at, updated_at`

// All returns every check ordered by due date.
func (r *PGRepository) All(ctx context.Context) ([]Check, error) {
	rows, err := r.q.Query(ctx, `SELECT `+checkColumns+` FROM checks ORDER BY due_at NULLS LAST, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Check
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	links, err := r.links(ctx, `ORDER BY check_id, invoice_id`)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].InvoiceIDs = links[list[i].ID]
	}
	return list, nil
}

// FindByID retrieves a check with its invoice links.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (Check, error) {
	c, err := scanCheck(r.q.QueryRow(ctx, `SELECT `+checkColumns+` FROM checks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Check{}, fmt.Errorf("checks: check %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Check{}, err
	}
	links, err := r.links(ctx, `WHERE check_id = $1 ORDER BY invoice_id`, id)
	if err != nil {
		return Check{}, err
	}
	c.InvoiceIDs = links[id]
	return c, nil
}

// PriorVersion returns nil for unknown ids.
func (r *PGRepository) PriorVersion(ctx context.Context, id int64) (*Check, error) {
	if id == 0 {
		return nil, nil
	}
	c, err := r.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Save inserts a check when ID is zero and updates it otherwise. Links are
// rewritten in full.
func (r *PGRepository) Save(ctx context.Context, c Check) (Check, error) {
	var dueAt pgtype.Date
	if !c.DueAt.IsZero() {
		dueAt = pgtype.Date{Time: c.DueAt, Valid: true}
	}
	var err error
	if c.ID == 0 {
		err = r.q.QueryRow(ctx, `
			INSERT INTO checks (number, issued_at, due_at, payee, amount, currency, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			c.Number, c.IssuedAt, dueAt, c.Payee, c.Amount.String(), c.Currency, c.Status,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	} else {
		err = r.q.QueryRow(ctx, `
			UPDATE checks SET number = $2, issued_at = $3, due_at = $4, payee = $5, amount = $6::numeric,
				currency = $7, status = $8, updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at`,
			c.ID, c.Number, c.IssuedAt, dueAt, c.Payee, c.Amount.String(), c.Currency, c.Status,
		).Scan(&c.CreatedAt, &c.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return Check{}, fmt.Errorf("checks: check %d: %w", c.ID, shared.ErrNotFound)
		}
	}
	if err != nil {
		return Check{}, fmt.Errorf("checks: save: %w", err)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM check_invoices WHERE check_id = $1`, c.ID); err != nil {
		return Check{}, fmt.Errorf("checks: clear links: %w", err)
	}
	for _, invoiceID := range c.InvoiceIDs {
		if _, err := r.q.Exec(ctx, `INSERT INTO check_invoices (check_id, invoice_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, c.ID, invoiceID); err != nil {
			return Check{}, fmt.Errorf("checks: link invoice %d: %w", invoiceID, err)
		}
	}
	return c, nil
}

// Delete removes the check; links cascade.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM checks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("checks: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("checks: check %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *PGRepository) links(ctx context.Context, clause string, args ...any) (map[int64][]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT check_id, invoice_id FROM check_invoices `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]int64)
	for rows.Next() {
		var checkID, invoiceID int64
		if err := rows.Scan(&checkID, &invoiceID); err != nil {
			return nil, err
		}
		out[checkID] = append(out[checkID], invoiceID)
	}
	return out, rows.Err()
}

func scanCheck(row db.Scanner) (Check, error) {
	var (
		c      Check
		dueAt  pgtype.Date
		amount string
		payee  pgtype.Text
	)
	if err := row.Scan(&c.ID, &c.Number, &c.IssuedAt, &dueAt, &payee, &amount, &c.Currency, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Check{}, err
	}
	var err error
	if c.Amount, err = db.ParseNumeric(amount); err != nil {
		return Check{}, err
	}
	if dueAt.Valid {
		c.DueAt = dueAt.Time
	}
	c.Payee = payee.String
	return c, nil
}
