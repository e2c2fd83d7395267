package installments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/calendar"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/currency"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/ledger"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/money"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/observability"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// InvoiceReader loads the invoice a plan is sourced from.
type InvoiceReader interface {
	GetInvoice(ctx context.Context, id int64) (ledger.Invoice, error)
}

// Service persists installment plans.
type Service struct {
	uow      UnitOfWork
	locker   shared.Locker
	invoices InvoiceReader
	calendar *calendar.Dispatcher
	recon    *observability.Recon
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the installment service.
func NewService(uow UnitOfWork, locker shared.Locker, invoices InvoiceReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, locker: locker, invoices: invoices, logger: logger, now: time.Now}
}

// SetCalendar injects the calendar dispatcher.
func (s *Service) SetCalendar(d *calendar.Dispatcher) {
	s.calendar = d
}

// SetMetrics injects the reconciliation counters.
func (s *Service) SetMetrics(recon *observability.Recon) {
	s.recon = recon
}

// Preview generates an equal split without persisting it.
func (s *Service) Preview(input GenerateInput) ([]Installment, error) {
	return GeneratePlan(input.SourceAmount, input.Currency, input.Count, input.FirstDue, input.Anchor)
}

// SavePlan appends a new plan. Rows that do not sum to the source amount are
// refused; the plan is never merged into an existing one.
func (s *Service) SavePlan(ctx context.Context, input SavePlanInput) (Plan, error) {
	if !money.Positive(input.SourceAmount) {
		return Plan{}, shared.NewValidationError("source_amount", "must be greater than zero")
	}
	if len(input.Rows) == 0 {
		return Plan{}, shared.NewValidationError("rows", "at least one installment is required")
	}
	plan := Plan{
		SourceAmount: money.Round(input.SourceAmount),
		Currency:     money.NormalizeCurrency(input.Currency),
		Anchor:       input.Anchor,
		Rows:         make([]Installment, len(input.Rows)),
	}
	for i, row := range input.Rows {
		if !money.Positive(row.Amount) {
			return Plan{}, shared.NewValidationError("rows", "installment %d amount must be greater than zero", i+1)
		}
		if row.DueAt.IsZero() {
			return Plan{}, shared.NewValidationError("rows", "installment %d due date required", i+1)
		}
		plan.Rows[i] = Installment{
			Sequence: i + 1,
			DueAt:    row.DueAt,
			Amount:   money.Round(row.Amount),
			Currency: plan.Currency,
			Status:   StatusUnpaid,
			Anchor:   plan.Anchor,
		}
	}
	if bal := RebalanceCheck(plan.Rows, plan.SourceAmount); !bal.Balanced {
		s.recon.PlanDrift("save")
		s.logger.WarnContext(ctx, "installment plan unbalanced",
			slog.String("source", plan.SourceAmount.StringFixed(2)),
			slog.String("plan_total", bal.PlanTotal.StringFixed(2)))
		return Plan{}, shared.NewValidationError("rows", "installments total %s, expected %s",
			bal.PlanTotal.StringFixed(2), plan.SourceAmount.StringFixed(2))
	}

	var saved Plan
	err := shared.WithLock(ctx, s.locker, shared.InstallmentLockKey(), func(ctx context.Context) error {
		return s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
			var err error
			saved, err = repo.CreatePlan(ctx, plan)
			return err
		})
	})
	if err != nil {
		return Plan{}, err
	}
	s.logger.InfoContext(ctx, "installment plan saved", slog.Int64("plan_id", saved.ID), slog.Int("rows", len(saved.Rows)))
	s.calendar.Fire(ctx, dueEntries(saved.Rows)...)
	return saved, nil
}

// PlanFromInvoice splits an invoice's open balance into count monthly rows.
func (s *Service) PlanFromInvoice(ctx context.Context, input FromInvoiceInput) (Plan, error) {
	if s.invoices == nil {
		return Plan{}, fmt.Errorf("installments: invoice reader not configured")
	}
	inv, err := s.invoices.GetInvoice(ctx, input.InvoiceID)
	if err != nil {
		return Plan{}, err
	}
	if inv.Status == ledger.StatusCancelled {
		return Plan{}, shared.NewValidationError("invoice", "invoice %s is cancelled", inv.Number)
	}
	open := money.NonNegative(ledger.Balance(inv))
	if !money.Positive(open) {
		return Plan{}, shared.NewValidationError("invoice", "invoice %s has no open balance", inv.Number)
	}
	invoiceID := inv.ID
	partyID := inv.PartyID
	anchor := Anchor{InvoiceID: &invoiceID}
	if partyID != 0 {
		anchor.PartyID = &partyID
	}
	rows, err := GeneratePlan(open, inv.Currency, input.Count, input.FirstDue, anchor)
	if err != nil {
		return Plan{}, err
	}
	return s.SavePlan(ctx, SavePlanInput{SourceAmount: open, Currency: inv.Currency, Anchor: anchor, Rows: rows})
}

// EditRow changes one unpaid row by hand. Drift from the source amount is
// logged and counted, never corrected.
func (s *Service) EditRow(ctx context.Context, installmentID int64, edit RowEdit) (PlanView, error) {
	var (
		view   PlanView
		edited Installment
	)
	err := shared.WithLock(ctx, s.locker, shared.InstallmentLockKey(), func(ctx context.Context) error {
		return s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
			row, err := repo.FindInstallment(ctx, installmentID)
			if err != nil {
				return err
			}
			plan, err := repo.FindPlan(ctx, row.PlanID)
			if err != nil {
				return err
			}
			rows, err := EditRow(plan.Rows, row.Sequence, edit)
			if err != nil {
				return err
			}
			for _, r := range rows {
				if r.ID == installmentID {
					edited = r
				}
			}
			if err := repo.UpdateInstallment(ctx, edited); err != nil {
				return err
			}
			plan.Rows = rows
			view = PlanView{Plan: plan, Balance: RebalanceCheck(rows, plan.SourceAmount)}
			return nil
		})
	})
	if err != nil {
		return PlanView{}, err
	}
	if !view.Balance.Balanced {
		s.recon.PlanDrift("edit")
		s.logger.WarnContext(ctx, "installment plan drifted",
			slog.Int64("plan_id", view.Plan.ID),
			slog.String("difference", view.Balance.Difference.StringFixed(2)))
	}
	if edit.DueAt != nil {
		s.calendar.Fire(ctx, dueEntries([]Installment{edited})...)
	}
	return view, nil
}

// MarkPaid flips one row to PAID. It is one-way.
func (s *Service) MarkPaid(ctx context.Context, installmentID int64) (Installment, error) {
	var row Installment
	err := shared.WithLock(ctx, s.locker, shared.InstallmentLockKey(), func(ctx context.Context) error {
		return s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
			var err error
			row, err = repo.FindInstallment(ctx, installmentID)
			if err != nil {
				return err
			}
			if row.Status == StatusPaid {
				return fmt.Errorf("%w: installment %d already paid", shared.ErrConflict, installmentID)
			}
			paidAt := s.now()
			row.Status = StatusPaid
			row.PaidAt = &paidAt
			return repo.UpdateInstallment(ctx, row)
		})
	})
	if err != nil {
		return Installment{}, err
	}
	s.logger.InfoContext(ctx, "installment paid", slog.Int64("installment_id", row.ID), slog.Int64("plan_id", row.PlanID))
	s.calendar.Fire(ctx, calendar.Entry{
		Description: fmt.Sprintf("Taksit %d ödendi (%s)", row.Sequence, currency.Format(row.Amount, row.Currency)),
		Date:        *row.PaidAt,
		Category:    calendar.CategoryInstallment,
	})
	return row, nil
}

// ListPlan returns one plan with its balance.
func (s *Service) ListPlan(ctx context.Context, planID int64) (PlanView, error) {
	var view PlanView
	err := s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
		plan, err := repo.FindPlan(ctx, planID)
		if err != nil {
			return err
		}
		view = PlanView{Plan: plan, Balance: RebalanceCheck(plan.Rows, plan.SourceAmount)}
		return nil
	})
	return view, err
}

// ListPlans returns every plan with its balance.
func (s *Service) ListPlans(ctx context.Context) ([]PlanView, error) {
	var views []PlanView
	err := s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
		plans, err := repo.ListPlans(ctx)
		if err != nil {
			return err
		}
		views = make([]PlanView, 0, len(plans))
		for _, p := range plans {
			views = append(views, PlanView{Plan: p, Balance: RebalanceCheck(p.Rows, p.SourceAmount)})
		}
		return nil
	})
	return views, err
}

func dueEntries(rows []Installment) []calendar.Entry {
	entries := make([]calendar.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, calendar.Entry{
			Description: fmt.Sprintf("Taksit %d vadesi (%s)", row.Sequence, currency.Format(row.Amount, row.Currency)),
			Date:        row.DueAt,
			Category:    calendar.CategoryInstallment,
		})
	}
	return entries
}
