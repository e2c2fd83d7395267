// Package calendar carries the fire-and-forget notifications emitted by the
// reconciliation services and the store the worker writes them to.
package calendar

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/observability"
)

// Category groups calendar entries by their source.
type Category string

const (
	CategoryCheck       Category = "CHECK"
	CategoryInstallment Category = "INSTALLMENT"
	CategoryPayroll     Category = "PAYROLL"
	CategoryAdvance     Category = "ADVANCE"
)

// Entry is one dated calendar item.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Category    Category  `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notifier receives calendar entries.
type Notifier interface {
	Notify(ctx context.Context, entry Entry) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, entry Entry) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, entry Entry) error {
	return f(ctx, entry)
}

// Dispatcher fans entries out to a Notifier. Failures are logged and counted,
// never returned, so a calendar outage cannot fail a money action.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	recon    *observability.Recon
}

// NewDispatcher builds a dispatcher. A nil notifier drops every entry.
func NewDispatcher(notifier Notifier, logger *slog.Logger, recon *observability.Recon) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifier: notifier, logger: logger, recon: recon}
}

// Fire delivers each entry, skipping undated ones.
func (d *Dispatcher) Fire(ctx context.Context, entries ...Entry) {
	if d == nil || d.notifier == nil {
		return
	}
	for _, entry := range entries {
		if entry.Date.IsZero() {
			continue
		}
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		if err := d.notifier.Notify(ctx, entry); err != nil {
			d.recon.NotifyFailed(string(entry.Category))
			d.logger.WarnContext(ctx, "calendar notify failed",
				slog.String("category", string(entry.Category)),
				slog.String("description", entry.Description),
				slog.Any("error", err))
		}
	}
}
