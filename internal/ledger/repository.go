package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/platform/db"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// Repository is the invoice collection consumed by the reconciliation core.
type Repository interface {
	FindByID(ctx context.Context, id int64) (Invoice, error)
	All(ctx context.Context) ([]Invoice, error)
	// Replace persists the status, backlink and full payment list of each
	// invoice. Payment events are rewritten, never patched.
	Replace(ctx context.Context, invoices []Invoice) error
	Create(ctx context.Context, input CreateInvoiceInput) (Invoice, error)
}

// UnitOfWork runs fn with a repository bound to one transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// PGRepository provides PostgreSQL backed persistence for invoices.
type PGRepository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{q: q}
}

type pgUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork wraps the pool in repeatable-read transactions.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return pgUnitOfWork{pool: pool}
}

func (u pgUnitOfWork) Do(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewRepository(tx))
	})
}

const invoiceColumns = `id, number, party_id, issued_at, due_at, currency, total::text, status, check_number, created_at, updated_at`

// FindByID retrieves an invoice with its payment events.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (Invoice, error) {
	row := r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, fmt.Errorf("ledger: invoice %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Invoice{}, err
	}
	payments, err := r.listPayments(ctx, `WHERE invoice_id = $1`, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Payments = payments[id]
	return inv, nil
}

// All returns every invoice ordered by issue date.
func (r *PGRepository) All(ctx context.Context) ([]Invoice, error) {
	rows, err := r.q.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY issued_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	payments, err := r.listPayments(ctx, ``)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		invoices[i].Payments = payments[invoices[i].ID]
	}
	return invoices, nil
}

// Replace rewrites the mutable state of each invoice.
func (r *PGRepository) Replace(ctx context.Context, invoices []Invoice) error {
	for _, inv := range invoices {
		var checkNumber pgtype.Text
		if inv.CheckNumber != "" {
			checkNumber = pgtype.Text{String: inv.CheckNumber, Valid: true}
		}
		tag, err := r.q.Exec(ctx, `UPDATE invoices SET status = $2, check_number = $3, updated_at = NOW() WHERE id = $1`,
			inv.ID, inv.Status, checkNumber)
		if err != nil {
			return fmt.Errorf("ledger: update invoice %d: %w", inv.ID, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		if _, err := r.q.Exec(ctx, `DELETE FROM invoice_payments WHERE invoice_id = $1`, inv.ID); err != nil {
			return fmt.Errorf("ledger: clear payments %d: %w", inv.ID, err)
		}
		for pos, p := range inv.Payments {
			var source pgtype.Int8
			if p.SourceCheckID != nil {
				source = pgtype.Int8{Int64: *p.SourceCheckID, Valid: true}
			}
			_, err := r.q.Exec(ctx, `
				INSERT INTO invoice_payments (id, invoice_id, position, paid_on, amount, method, note, source_check_id)
				VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)`,
				p.ID, inv.ID, pos, p.Date, p.Amount.String(), p.Method, p.Note, source)
			if err != nil {
				return fmt.Errorf("ledger: insert payment %s: %w", p.ID, err)
			}
		}
	}
	return nil
}

// Create inserts a new unpaid invoice.
func (r *PGRepository) Create(ctx context.Context, input CreateInvoiceInput) (Invoice, error) {
	var dueAt pgtype.Date
	if !input.DueAt.IsZero() {
		dueAt = pgtype.Date{Time: input.DueAt, Valid: true}
	}
	inv := Invoice{
		Number:   input.Number,
		PartyID:  input.PartyID,
		IssuedAt: input.IssuedAt,
		DueAt:    input.DueAt,
		Currency: input.Currency,
		Total:    input.Total,
		Status:   StatusUnpaid,
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO invoices (number, party_id, issued_at, due_at, currency, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		input.Number, input.PartyID, input.IssuedAt, dueAt, input.Currency, input.Total.String(), StatusUnpaid,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, fmt.Errorf("ledger: create invoice: %w", err)
	}
	return inv, nil
}

func (r *PGRepository) listPayments(ctx context.Context, where string, args ...any) (map[int64][]Payment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT invoice_id, id, paid_on, amount::text, method, note, source_check_id
		FROM invoice_payments `+where+`
		ORDER BY invoice_id, position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]Payment)
	for rows.Next() {
		var (
			invoiceID int64
			p         Payment
			amount    string
			note      pgtype.Text
			source    pgtype.Int8
		)
		if err := rows.Scan(&invoiceID, &p.ID, &p.Date, &amount, &p.Method, &note, &source); err != nil {
			return nil, err
		}
		if p.Amount, err = db.ParseNumeric(amount); err != nil {
			return nil, err
		}
		p.Note = note.String
		if source.Valid {
			id := source.Int64
			p.SourceCheckID = &id
		}
		out[invoiceID] = append(out[invoiceID], p)
	}
	return out, rows.Err()
}

func scanInvoice(row db.Scanner) (Invoice, error) {
	var (
		inv         Invoice
		dueAt       pgtype.Date
		total       string
		checkNumber pgtype.Text
	)
	if err := row.Scan(&inv.ID, &inv.Number, &inv.PartyID, &inv.IssuedAt, &dueAt, &inv.Currency, &total,
		&inv.Status, &checkNumber, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return Invoice{}, err
	}
	var err error
	if inv.Total, err = db.ParseNumeric(total); err != nil {
		return Invoice{}, err
	}
	if dueAt.Valid {
		inv.DueAt = dueAt.Time
	}
	inv.CheckNumber = checkNumber.String
	return inv, nil
}
