package installments

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

// Repository persists installment plans.
type Repository interface {
	// CreatePlan appends a new plan; rows receive fresh ids and sequences.
	CreatePlan(ctx context.Context, plan Plan) (Plan, error)
	FindPlan(ctx context.Context, id int64) (Plan, error)
	ListPlans(ctx context.Context) ([]Plan, error)
	FindInstallment(ctx context.Context, id int64) (Installment, error)
	UpdateInstallment(ctx context.Context, row Installment) error
}

// UnitOfWork runs fn with a repository bound to one transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
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

// PGRepository provides PostgreSQL backed persistence for plans.
type PGRepository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{q: q}
}

// CreatePlan inserts the plan header and its rows.
func (r *PGRepository) CreatePlan(ctx context.Context, plan Plan) (Plan, error) {
	err := r.q.QueryRow(ctx, `
		INSERT INTO installment_plans (source_amount, currency, invoice_id, party_id, created_at)
		VALUES ($1::numeric, $2, $3, $4, NOW())
		RETURNING id, created_at`,
		plan.SourceAmount.String(), plan.Currency, nullInt8(plan.InvoiceID), nullInt8(plan.PartyID),
	).Scan(&plan.ID, &plan.CreatedAt)
	if err != nil {
		return Plan{}, fmt.Errorf("installments: create plan: %w", err)
	}
	for i := range plan.Rows {
		row := &plan.Rows[i]
		row.PlanID = plan.ID
		err := r.q.QueryRow(ctx, `
			INSERT INTO installments (plan_id, sequence, due_at, amount, currency, status, invoice_id, party_id)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
			RETURNING id`,
			row.PlanID, row.Sequence, row.DueAt, row.Amount.String(), row.Currency, row.Status,
			nullInt8(row.InvoiceID), nullInt8(row.PartyID),
		).Scan(&row.ID)
		if err != nil {
			return Plan{}, fmt.Errorf("installments: insert row %d: %w", row.Sequence, err)
		}
	}
	return plan, nil
}

const planColumns = `id, source_amount::text, currency, invoice_id, party_id, created_at`

// FindPlan loads one plan with its rows ordered by sequence.
func (r *PGRepository) FindPlan(ctx context.Context, id int64) (Plan, error) {
	plan, err := scanPlan(r.q.QueryRow(ctx, `SELECT `+planColumns+` FROM installment_plans WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, fmt.Errorf("installments: plan %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Plan{}, err
	}
	rows, err := r.rows(ctx, `WHERE plan_id = $1`, id)
	if err != nil {
		return Plan{}, err
	}
	plan.Rows = rows
	return plan, nil
}

// ListPlans returns every plan with its rows.
func (r *PGRepository) ListPlans(ctx context.Context) ([]Plan, error) {
	result, err := r.q.Query(ctx, `SELECT `+planColumns+` FROM installment_plans ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer result.Close()
	var plans []Plan
	for result.Next() {
		p, err := scanPlan(result)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	all, err := r.rows(ctx, ``)
	if err != nil {
		return nil, err
	}
	byPlan := make(map[int64][]Installment, len(plans))
	for _, row := range all {
		byPlan[row.PlanID] = append(byPlan[row.PlanID], row)
	}
	for i := range plans {
		plans[i].Rows = byPlan[plans[i].ID]
	}
	return plans, nil
}

// FindInstallment loads one row.
func (r *PGRepository) FindInstallment(ctx context.Context, id int64) (Installment, error) {
	rows, err := r.rows(ctx, `WHERE id = $1`, id)
	if err != nil {
		return Installment{}, err
	}
	if len(rows) == 0 {
		return Installment{}, fmt.Errorf("installments: installment %d: %w", id, shared.ErrNotFound)
	}
	return rows[0], nil
}

// UpdateInstallment writes the mutable columns of a row.
func (r *PGRepository) UpdateInstallment(ctx context.Context, row Installment) error {
	var paidAt pgtype.Timestamptz
	if row.PaidAt != nil {
		paidAt = pgtype.Timestamptz{Time: *row.PaidAt, Valid: true}
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE installments SET due_at = $2, amount = $3::numeric, status = $4, paid_at = $5
		WHERE id = $1`,
		row.ID, row.DueAt, row.Amount.String(), row.Status, paidAt)
	if err != nil {
		return fmt.Errorf("installments: update %d: %w", row.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("installments: installment %d: %w", row.ID, shared.ErrNotFound)
	}
	return nil
}

func (r *PGRepository) rows(ctx context.Context, where string, args ...any) ([]Installment, error) {
	result, err := r.q.Query(ctx, `
		SELECT id, plan_id, sequence, due_at, amount::text, currency, status, paid_at, invoice_id, party_id
		FROM installments `+where+`
		ORDER BY plan_id, sequence`, args...)
	if err != nil {
		return nil, err
	}
	defer result.Close()
	var out []Installment
	for result.Next() {
		var (
			row       Installment
			amount    string
			paidAt    pgtype.Timestamptz
			invoiceID pgtype.Int8
			partyID   pgtype.Int8
		)
		if err := result.Scan(&row.ID, &row.PlanID, &row.Sequence, &row.DueAt, &amount, &row.Currency,
			&row.Status, &paidAt, &invoiceID, &partyID); err != nil {
			return nil, err
		}
		if row.Amount, err = db.ParseNumeric(amount); err != nil {
			return nil, err
		}
		if paidAt.Valid {
			t := paidAt.Time
			row.PaidAt = &t
		}
		row.InvoiceID = ptr(invoiceID)
		row.PartyID = ptr(partyID)
		out = append(out, row)
	}
	return out, result.Err()
}

func scanPlan(row db.Scanner) (Plan, error) {
	var (
		p         Plan
		source    string
		invoiceID pgtype.Int8
		partyID   pgtype.Int8
	)
	if err := row.Scan(&p.ID, &source, &p.Currency, &invoiceID, &partyID, &p.CreatedAt); err != nil {
		return Plan{}, err
	}
	var err error
	if p.SourceAmount, err = db.ParseNumeric(source); err != nil {
		return Plan{}, err
	}
	p.InvoiceID = ptr(invoiceID)
	p.PartyID = ptr(partyID)
	return p, nil
}

func nullInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func ptr(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
