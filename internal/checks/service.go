package checks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/calendar"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/currency"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/ledger"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/money"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/observability"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// Service saves and deletes checks, keeping invoice events in step.
type Service struct {
	uow      UnitOfWork
	locker   shared.Locker
	calendar *calendar.Dispatcher
	recon    *observability.Recon
	logger   *slog.Logger
}

// NewService constructs the check service.
func NewService(uow UnitOfWork, locker shared.Locker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, locker: locker, logger: logger}
}

// SetCalendar injects the calendar dispatcher.
func (s *Service) SetCalendar(d *calendar.Dispatcher) {
	s.calendar = d
}

// SetMetrics injects the reconciliation counters.
func (s *Service) SetMetrics(recon *observability.Recon) {
	s.recon = recon
}

// List returns every check.
func (s *Service) List(ctx context.Context) ([]Check, error) {
	var list []Check
	err := s.uow.Do(ctx, func(ctx context.Context, repos Repos) error {
		var err error
		list, err = repos.Checks.All(ctx)
		return err
	})
	return list, err
}

// Get returns one check.
func (s *Service) Get(ctx context.Context, id int64) (Check, error) {
	var c Check
	err := s.uow.Do(ctx, func(ctx context.Context, repos Repos) error {
		var err error
		c, err = repos.Checks.FindByID(ctx, id)
		return err
	})
	return c, err
}

// Save stores the check and re-allocates its face value. Editing the amount,
// the issue date or the linked invoices undoes the previous allocation first.
func (s *Service) Save(ctx context.Context, input SaveInput) (SaveResult, error) {
	if !money.Positive(input.Amount) {
		return SaveResult{}, shared.NewValidationError("amount", "must be greater than zero")
	}
	edited := Check{
		ID:         input.ID,
		Number:     input.Number,
		IssuedAt:   input.IssuedAt,
		DueAt:      input.DueAt,
		Payee:      input.Payee,
		Amount:     money.Round(input.Amount),
		Currency:   money.NormalizeCurrency(input.Currency),
		InvoiceIDs: dedupe(input.InvoiceIDs),
		Status:     input.Status,
	}
	if edited.Status == "" {
		edited.Status = StatusPending
	}

	var out SaveResult
	err := shared.WithLock(ctx, s.locker, shared.InvoiceLockKey(), func(ctx context.Context) error {
		return s.uow.Do(ctx, func(ctx context.Context, repos Repos) error {
			prior, err := repos.Checks.PriorVersion(ctx, edited.ID)
			if err != nil {
				return err
			}
			if edited.ID != 0 && prior == nil {
				return fmt.Errorf("checks: check %d: %w", edited.ID, shared.ErrNotFound)
			}
			invoices, err := repos.Invoices.All(ctx)
			if err != nil {
				return err
			}
			linked := knownInvoices(edited.InvoiceIDs, invoices)
			if dropped := len(edited.InvoiceIDs) - len(linked); dropped > 0 {
				s.logger.WarnContext(ctx, "check links unknown invoices",
					slog.String("number", edited.Number), slog.Int("skipped", dropped))
			}
			next := edited
			next.InvoiceIDs = linked
			saved, err := repos.Checks.Save(ctx, next)
			if err != nil {
				return err
			}
			result := Apply(invoices, saved, prior)
			if err := repos.Invoices.Replace(ctx, result.Changed); err != nil {
				return err
			}
			out = SaveResult{Check: saved, Result: result}
			return nil
		})
	})
	if err != nil {
		return SaveResult{}, err
	}

	s.recon.CheckAllocated("save", out.Result.Unallocated)
	attrs := []any{
		slog.Int64("check_id", out.Check.ID),
		slog.String("number", out.Check.Number),
		slog.Int("allocations", len(out.Result.Allocations)),
	}
	if out.Result.Unallocated.IsPositive() {
		s.logger.InfoContext(ctx, "check saved with unused face value",
			append(attrs, slog.String("unallocated", out.Result.Unallocated.StringFixed(2)))...)
	} else {
		s.logger.InfoContext(ctx, "check saved", attrs...)
	}
	s.calendar.Fire(ctx, entriesFor(out.Check)...)
	return out, nil
}

// Delete undoes the check's allocation and removes it.
func (s *Service) Delete(ctx context.Context, id int64) (Result, error) {
	var result Result
	err := shared.WithLock(ctx, s.locker, shared.InvoiceLockKey(), func(ctx context.Context) error {
		return s.uow.Do(ctx, func(ctx context.Context, repos Repos) error {
			prior, err := repos.Checks.FindByID(ctx, id)
			if err != nil {
				return err
			}
			invoices, err := repos.Invoices.All(ctx)
			if err != nil {
				return err
			}
			result = Apply(invoices, Check{ID: id, Number: prior.Number}, &prior)
			if err := repos.Invoices.Replace(ctx, result.Changed); err != nil {
				return err
			}
			return repos.Checks.Delete(ctx, id)
		})
	})
	if err != nil {
		return Result{}, err
	}
	s.recon.CheckAllocated("delete", result.Unallocated)
	s.logger.InfoContext(ctx, "check deleted", slog.Int64("check_id", id), slog.Int("invoices", len(result.Changed)))
	return result, nil
}

func entriesFor(c Check) []calendar.Entry {
	amount := currency.Format(c.Amount, c.Currency)
	return []calendar.Entry{
		{
			Description: fmt.Sprintf("Çek vadesi: %s %s (%s)", c.Number, c.Payee, amount),
			Date:        c.DueAt,
			Category:    calendar.CategoryCheck,
		},
		{
			Description: fmt.Sprintf("Çek düzenlendi: %s %s (%s)", c.Number, c.Payee, amount),
			Date:        c.IssuedAt,
			Category:    calendar.CategoryCheck,
		},
	}
}

// knownInvoices keeps the ids present in invoices, in order. Links to missing
// invoices are skipped, never stored.
func knownInvoices(ids []int64, invoices []ledger.Invoice) []int64 {
	if len(ids) == 0 {
		return nil
	}
	present := make(map[int64]struct{}, len(invoices))
	for _, inv := range invoices {
		present[inv.ID] = struct{}{}
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
