package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/money"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// Service coordinates invoice payment actions.
type Service struct {
	uow    UnitOfWork
	locker shared.Locker
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the ledger service.
func NewService(uow UnitOfWork, locker shared.Locker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, locker: locker, logger: logger, now: time.Now}
}

// CreateInvoice stores a new invoice with no payment events.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (Invoice, error) {
	input.Currency = money.NormalizeCurrency(input.Currency)
	if !money.Positive(input.Total) {
		return Invoice{}, shared.NewValidationError("total", "must be greater than zero")
	}
	input.Total = money.Round(input.Total)
	var created Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		created, err = repo.Create(ctx, input)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}
	s.logger.InfoContext(ctx, "invoice created", slog.Int64("invoice_id", created.ID), slog.String("number", created.Number))
	return created, nil
}

// GetInvoice returns one invoice with its events.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		inv, err = repo.FindByID(ctx, id)
		return err
	})
	return inv, err
}

// ListInvoices returns every invoice ordered by issue date.
func (s *Service) ListInvoices(ctx context.Context) ([]Invoice, error) {
	var invoices []Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		invoices, err = repo.All(ctx)
		return err
	})
	return invoices, err
}

// Summary totals open balances per currency.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	invoices, err := s.ListInvoices(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(invoices), nil
}

// RegisterPartialPayment appends a user-entered payment event.
func (s *Service) RegisterPartialPayment(ctx context.Context, input PartialPaymentInput) (Invoice, error) {
	if input.Date.IsZero() {
		input.Date = s.now()
	}
	return s.mutate(ctx, input.InvoiceID, "partial payment registered", func(inv Invoice) (Invoice, error) {
		return RegisterPartialPayment(inv, input.Amount, input.Date, input.Method, input.Note)
	})
}

// SettleInFull marks an invoice paid, backing the status with a synthetic event.
func (s *Service) SettleInFull(ctx context.Context, id int64) (Invoice, error) {
	return s.mutate(ctx, id, "invoice settled in full", func(inv Invoice) (Invoice, error) {
		return SettleInFull(inv, s.now())
	})
}

// Cancel forces the cancelled status.
func (s *Service) Cancel(ctx context.Context, id int64) (Invoice, error) {
	return s.mutate(ctx, id, "invoice cancelled", func(inv Invoice) (Invoice, error) {
		return Cancel(inv), nil
	})
}

// Reopen lifts a cancellation.
func (s *Service) Reopen(ctx context.Context, id int64) (Invoice, error) {
	return s.mutate(ctx, id, "invoice reopened", func(inv Invoice) (Invoice, error) {
		if inv.Status != StatusCancelled {
			return inv, shared.NewValidationError("status", "invoice %s is not cancelled", inv.Number)
		}
		return Reopen(inv), nil
	})
}

// mutate loads one invoice, applies fn and replaces it while holding the
// invoice lock, so check allocation never interleaves with manual payments.
func (s *Service) mutate(ctx context.Context, id int64, msg string, fn func(Invoice) (Invoice, error)) (Invoice, error) {
	var out Invoice
	err := shared.WithLock(ctx, s.locker, shared.InvoiceLockKey(), func(ctx context.Context) error {
		return s.uow.Do(ctx, func(ctx context.Context, repo Repository) error {
			inv, err := repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			out, err = fn(inv)
			if err != nil {
				return err
			}
			return repo.Replace(ctx, []Invoice{out})
		})
	})
	if err != nil {
		return Invoice{}, err
	}
	s.logger.InfoContext(ctx, msg,
		slog.Int64("invoice_id", out.ID),
		slog.String("status", string(out.Status)),
		slog.String("balance", money.Round(Balance(out)).StringFixed(2)))
	return out, nil
}
