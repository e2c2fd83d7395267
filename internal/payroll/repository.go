package payroll

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

// Repository persists employees, advances and settlement rows.
type Repository interface {
	Employees(ctx context.Context) ([]Employee, error)
	FindEmployee(ctx context.Context, id int64) (Employee, error)
	Advances(ctx context.Context) ([]Advance, error)
	CreateAdvance(ctx context.Context, advance Advance) (Advance, error)
	Settlements(ctx context.Context) ([]Settlement, error)
	SettlementsForPeriod(ctx context.Context, period string) ([]Settlement, error)
	FindSettlement(ctx context.Context, id int64) (Settlement, error)
	// SaveSettlements inserts new rows and updates existing unpaid ones.
	SaveSettlements(ctx context.Context, rows []Settlement) ([]Settlement, error)
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

// PGRepository provides PostgreSQL backed persistence for payroll.
type PGRepository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{q: q}
}

// Employees lists every employee.
func (r *PGRepository) Employees(ctx context.Context) ([]Employee, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, base_salary::text, active FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindEmployee loads one employee.
func (r *PGRepository) FindEmployee(ctx context.Context, id int64) (Employee, error) {
	e, err := scanEmployee(r.q.QueryRow(ctx, `SELECT id, name, base_salary::text, active FROM employees WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, fmt.Errorf("payroll: employee %d: %w", id, shared.ErrNotFound)
	}
	return e, err
}

// Advances lists every advance ordered by grant date.
func (r *PGRepository) Advances(ctx context.Context) ([]Advance, error) {
	rows, err := r.q.Query(ctx, `SELECT id, employee_id, granted_at, amount::text, note FROM advances ORDER BY granted_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Advance
	for rows.Next() {
		var (
			a      Advance
			amount string
			note   pgtype.Text
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.GrantedAt, &amount, &note); err != nil {
			return nil, err
		}
		if a.Amount, err = db.ParseNumeric(amount); err != nil {
			return nil, err
		}
		a.Note = note.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAdvance inserts an advance.
func (r *PGRepository) CreateAdvance(ctx context.Context, a Advance) (Advance, error) {
	err := r.q.QueryRow(ctx, `
		INSERT INTO advances (employee_id, granted_at, amount, note)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING id`,
		a.EmployeeID, a.GrantedAt, a.Amount.String(), a.Note,
	).Scan(&a.ID)
	if err != nil {
		return Advance{}, fmt.Errorf("payroll: create advance: %w", err)
	}
	return a, nil
}

const settlementColumns = `id, employee_id, period, gross::text, advance_balance::text, deducted::text, policy, net::text, paid, paid_at`

// Settlements lists every settlement row.
func (r *PGRepository) Settlements(ctx context.Context) ([]Settlement, error) {
	return r.settlements(ctx, `ORDER BY period, employee_id`)
}

// SettlementsForPeriod lists the rows of one period.
func (r *PGRepository) SettlementsForPeriod(ctx context.Context, period string) ([]Settlement, error) {
	return r.settlements(ctx, `WHERE period = $1 ORDER BY employee_id`, period)
}

// FindSettlement loads one row.
func (r *PGRepository) FindSettlement(ctx context.Context, id int64) (Settlement, error) {
	rows, err := r.settlements(ctx, `WHERE id = $1`, id)
	if err != nil {
		return Settlement{}, err
	}
	if len(rows) == 0 {
		return Settlement{}, fmt.Errorf("payroll: settlement %d: %w", id, shared.ErrNotFound)
	}
	return rows[0], nil
}

// SaveSettlements upserts rows keyed by (employee_id, period). Paid rows in
// the database are never overwritten.
func (r *PGRepository) SaveSettlements(ctx context.Context, rows []Settlement) ([]Settlement, error) {
	out := make([]Settlement, 0, len(rows))
	for _, s := range rows {
		var paidAt pgtype.Timestamptz
		if s.PaidAt != nil {
			paidAt = pgtype.Timestamptz{Time: *s.PaidAt, Valid: true}
		}
		err := r.q.QueryRow(ctx, `
			INSERT INTO payroll_settlements (employee_id, period, gross, advance_balance, deducted, policy, net, paid, paid_at)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7::numeric, $8, $9)
			ON CONFLICT (employee_id, period) DO UPDATE SET
				gross = EXCLUDED.gross,
				advance_balance = EXCLUDED.advance_balance,
				deducted = EXCLUDED.deducted,
				policy = EXCLUDED.policy,
				net = EXCLUDED.net,
				paid = EXCLUDED.paid,
				paid_at = EXCLUDED.paid_at
			WHERE NOT payroll_settlements.paid
			RETURNING id`,
			s.EmployeeID, s.Period, s.Gross.String(), s.AdvanceBalance.String(), s.Deducted.String(),
			s.Policy, s.Net.String(), s.Paid, paidAt,
		).Scan(&s.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payroll: settlement %d/%s: %w", s.EmployeeID, s.Period, ErrRowPaid)
		}
		if err != nil {
			return nil, fmt.Errorf("payroll: save settlement: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *PGRepository) settlements(ctx context.Context, clause string, args ...any) ([]Settlement, error) {
	rows, err := r.q.Query(ctx, `SELECT `+settlementColumns+` FROM payroll_settlements `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Settlement
	for rows.Next() {
		var (
			s                             Settlement
			gross, balance, deducted, net string
			paidAt                        pgtype.Timestamptz
		)
		if err := rows.Scan(&s.ID, &s.EmployeeID, &s.Period, &gross, &balance, &deducted, &s.Policy, &net, &s.Paid, &paidAt); err != nil {
			return nil, err
		}
		if s.Gross, err = db.ParseNumeric(gross); err != nil {
			return nil, err
		}
		if s.AdvanceBalance, err = db.ParseNumeric(balance); err != nil {
			return nil, err
		}
		if s.Deducted, err = db.ParseNumeric(deducted); err != nil {
			return nil, err
		}
		if s.Net, err = db.ParseNumeric(net); err != nil {
			return nil, err
		}
		if paidAt.Valid {
			t := paidAt.Time
			s.PaidAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanEmployee(row db.Scanner) (Employee, error) {
	var (
		e      Employee
		salary string
	)
	if err := row.Scan(&e.ID, &e.Name, &salary, &e.Active); err != nil {
		return Employee{}, err
	}
	var err error
	e.BaseSalary, err = db.ParseNumeric(salary)
	return e, err
}
