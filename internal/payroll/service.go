package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/calendar"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/currency"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/money"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/observability"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// Service materialises payroll periods and applies user actions on them.
type Service struct {
	uow      UnitOfWork
	locker   shared.Locker
	calendar *calendar.Dispatcher
	recon    *observability.Recon
	logger   *slog.Logger
	currency string
	now      func() time.Time
	ensure   singleflight.Group
}

// NewService constructs the payroll service. Amounts are shown in
// displayCurrency in calendar entries.
func NewService(uow UnitOfWork, locker shared.Locker, logger *slog.Logger, displayCurrency string) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, locker: locker, logger: logger, currency: displayCurrency, now: time.Now}
}

// SetCalendar injects the calendar dispatcher.
func (s *Service) SetCalendar(d *calendar.Dispatcher) {
	s.calendar = d
}

// SetMetrics injects the reconciliation counters.
func (s *Service) SetMetrics(recon *observability.Recon) {
	s.recon = recon
}

// EnsurePeriod creates and refreshes the settlement rows of period. It is
// idempotent; concurrent calls for the same period share one run.
func (s *Service) EnsurePeriod(ctx context.Context, period string) (Reconciliation, error) {
	if _, err := shared.ParsePeriod(period); err != nil {
		return Reconciliation{}, shared.NewValidationError("period", "%s", err.Error())
	}
	ch := s.ensure.DoChan(period, func() (any, error) {
		return s.ensurePeriod(context.WithoutCancel(ctx), period)
	})
	select {
	case <-ctx.Done():
		return Reconciliation{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Reconciliation{}, res.Err
		}
		return res.Val.(Reconciliation), nil
	}
}

func (s *Service) ensurePeriod(ctx context.Context, period string) (Reconciliation, error) {
	var result Reconciliation
	err := shared.WithLock(ctx, s.locker, shared.PayrollLockKey(period), func(ctx context.Context) error {
		return s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
			employees, err := repo.Employees(ctx)
			if err != nil {
				return err
			}
			advances, err := repo.Advances(ctx)
			if err != nil {
				return err
			}
			prior, err := repo.Settlements(ctx)
			if err != nil {
				return err
			}
			result, err = ReconcilePeriod(period, employees, advances, prior)
			if err != nil {
				return err
			}
			changed := append(append([]Settlement{}, result.Created...), result.Updated...)
			if len(changed) == 0 {
				return nil
			}
			saved, err := repo.SaveSettlements(ctx, changed)
			if err != nil {
				return err
			}
			ids := make(map[int64]int64, len(saved))
			for _, row := range saved {
				ids[row.EmployeeID] = row.ID
			}
			for i := range result.Rows {
				if id, ok := ids[result.Rows[i].EmployeeID]; ok {
					result.Rows[i].ID = id
				}
			}
			return nil
		})
	})
	if err != nil {
		return Reconciliation{}, err
	}
	s.recon.SettlementsTouched("created", len(result.Created))
	s.recon.SettlementsTouched("updated", len(result.Updated))
	if len(result.Created) > 0 || len(result.Updated) > 0 {
		s.logger.InfoContext(ctx, "payroll period reconciled",
			slog.String("period", period),
			slog.Int("created", len(result.Created)),
			slog.Int("updated", len(result.Updated)))
	}
	return result, nil
}

// ListPeriod returns the stored rows of period without reconciling.
func (s *Service) ListPeriod(ctx context.Context, period string) ([]Settlement, error) {
	if _, err := shared.ParsePeriod(period); err != nil {
		return nil, shared.NewValidationError("period", "%s", err.Error())
	}
	var rows []Settlement
	err := s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		rows, err = repo.SettlementsForPeriod(ctx, period)
		return err
	})
	return rows, err
}

// SwitchPolicy changes the deduction policy of an unpaid row.
func (s *Service) SwitchPolicy(ctx context.Context, id int64, input SwitchPolicyInput) (Settlement, error) {
	row, err := s.mutate(ctx, id, func(row Settlement) (Settlement, error) {
		return ApplyDeductionPolicy(row, input.Policy, input.Value)
	})
	if err != nil {
		return Settlement{}, err
	}
	s.logger.InfoContext(ctx, "deduction policy switched",
		slog.Int64("settlement_id", row.ID),
		slog.String("policy", string(row.Policy)),
		slog.String("deducted", row.Deducted.StringFixed(2)))
	return row, nil
}

// MarkPaid freezes the row and posts the paid notification.
func (s *Service) MarkPaid(ctx context.Context, id int64) (Settlement, error) {
	row, err := s.mutate(ctx, id, func(row Settlement) (Settlement, error) {
		return MarkPaid(row, s.now())
	})
	if err != nil {
		return Settlement{}, err
	}
	s.logger.InfoContext(ctx, "salary paid", slog.Int64("settlement_id", row.ID), slog.String("period", row.Period))
	s.calendar.Fire(ctx, calendar.Entry{
		Description: fmt.Sprintf("Maaş ödendi: personel %d, %s (%s)", row.EmployeeID, row.Period, currency.Format(row.Net, s.currency)),
		Date:        *row.PaidAt,
		Category:    calendar.CategoryPayroll,
	})
	return row, nil
}

// GrantAdvance records an advance. Open periods pick it up on their next
// EnsurePeriod run.
func (s *Service) GrantAdvance(ctx context.Context, input GrantAdvanceInput) (Advance, error) {
	if !money.Positive(input.Amount) {
		return Advance{}, shared.NewValidationError("amount", "must be greater than zero")
	}
	if input.GrantedAt.IsZero() {
		input.GrantedAt = s.now()
	}
	var created Advance
	err := s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
		emp, err := repo.FindEmployee(ctx, input.EmployeeID)
		if err != nil {
			return err
		}
		if !emp.Active {
			return shared.NewValidationError("employee_id", "employee %d is not active", emp.ID)
		}
		created, err = repo.CreateAdvance(ctx, Advance{
			EmployeeID: emp.ID,
			GrantedAt:  input.GrantedAt,
			Amount:     money.Round(input.Amount),
			Note:       input.Note,
		})
		return err
	})
	if err != nil {
		return Advance{}, err
	}
	s.logger.InfoContext(ctx, "advance granted", slog.Int64("employee_id", created.EmployeeID), slog.String("amount", created.Amount.StringFixed(2)))
	s.calendar.Fire(ctx, calendar.Entry{
		Description: fmt.Sprintf("Avans verildi: personel %d (%s)", created.EmployeeID, currency.Format(created.Amount, s.currency)),
		Date:        created.GrantedAt,
		Category:    calendar.CategoryAdvance,
	})
	return created, nil
}

// mutate rewrites one row under its period lock.
func (s *Service) mutate(ctx context.Context, id int64, fn func(Settlement) (Settlement, error)) (Settlement, error) {
	var period string
	err := s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
		row, err := repo.FindSettlement(ctx, id)
		period = row.Period
		return err
	})
	if err != nil {
		return Settlement{}, err
	}
	var out Settlement
	err = shared.WithLock(ctx, s.locker, shared.PayrollLockKey(period), func(ctx context.Context) error {
		return s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
			row, err := repo.FindSettlement(ctx, id)
			if err != nil {
				return err
			}
			next, err := fn(row)
			if err != nil {
				return err
			}
			saved, err := repo.SaveSettlements(ctx, []Settlement{next})
			if err != nil {
				return err
			}
			out = saved[0]
			return nil
		})
	})
	return out, err
}
