package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/money"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// Paid sums the invoice's payment events.
func Paid(inv Invoice) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range inv.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// Balance returns the amount still owed. It may be negative when an invoice
// total was lowered below what was already paid.
func Balance(inv Invoice) decimal.Decimal {
	return inv.Total.Sub(Paid(inv))
}

// DeriveStatus maps the event sum to a status. It ignores the stored status,
// so two invoices with equal totals and equal sums always agree.
func DeriveStatus(inv Invoice) Status {
	paid := Paid(inv)
	switch {
	case money.Equal(paid, inv.Total):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusUnpaid
	}
}

// Recompute refreshes the stored status from the events. A cancelled invoice
// stays cancelled until it is reopened.
func Recompute(inv Invoice) Invoice {
	if inv.Status == StatusCancelled {
		return inv
	}
	inv.Status = DeriveStatus(inv)
	return inv
}

// AppendPayment returns a copy of inv with p appended and status recomputed.
func AppendPayment(inv Invoice, p Payment) Invoice {
	out := inv.Clone()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	out.Payments = append(out.Payments, p)
	return Recompute(out)
}

// RemovePaymentsByCheck drops every event created by checkID.
func RemovePaymentsByCheck(inv Invoice, checkID int64) Invoice {
	out := inv.Clone()
	kept := out.Payments[:0]
	for _, p := range out.Payments {
		if p.FromCheck(checkID) {
			continue
		}
		kept = append(kept, p)
	}
	out.Payments = kept
	return Recompute(out)
}

// RegisterPartialPayment rounds the amount to cents, validates it and appends
// a user-entered payment.
func RegisterPartialPayment(inv Invoice, amount decimal.Decimal, date time.Time, method Method, note string) (Invoice, error) {
	if inv.Status == StatusCancelled {
		return inv, shared.NewValidationError("invoice", "invoice %s is cancelled", inv.Number)
	}
	amount = money.Round(amount)
	if !money.Positive(amount) {
		return inv, shared.NewValidationError("amount", "must be at least 0.01")
	}
	remaining := money.Round(Balance(inv))
	if amount.GreaterThan(remaining.Add(money.Epsilon)) {
		return inv, shared.NewValidationError("amount", "exceeds remaining balance %s", remaining.StringFixed(2))
	}
	// A cent of rounding over the balance settles it exactly.
	if amount.GreaterThan(remaining) {
		amount = remaining
	}
	if method == "" {
		method = MethodCash
	}
	return AppendPayment(inv, Payment{Date: date, Amount: amount, Method: method, Note: note}), nil
}

// SettleInFull marks the invoice paid by appending a synthetic event for the
// exact remaining balance, so the event sum always backs a PAID status.
func SettleInFull(inv Invoice, today time.Time) (Invoice, error) {
	if inv.Status == StatusCancelled {
		return inv, shared.NewValidationError("invoice", "invoice %s is cancelled", inv.Number)
	}
	remaining := Balance(inv)
	if !remaining.IsPositive() || money.IsZero(remaining) {
		return Recompute(inv.Clone()), nil
	}
	return AppendPayment(inv, Payment{
		Date:   today,
		Amount: remaining,
		Method: MethodUnknown,
		Note:   ManualSettlementNote,
	}), nil
}

// Cancel forces the cancelled status. Events are kept for audit.
func Cancel(inv Invoice) Invoice {
	out := inv.Clone()
	out.Status = StatusCancelled
	return out
}

// Reopen lifts a cancellation and re-derives the status from the events.
func Reopen(inv Invoice) Invoice {
	out := inv.Clone()
	out.Status = DeriveStatus(out)
	return out
}

// Summarize totals open balances per currency, skipping cancelled invoices.
func Summarize(invoices []Invoice) Summary {
	amounts := make([]money.Amount, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Status == StatusCancelled {
			continue
		}
		amounts = append(amounts, money.Amount{Currency: inv.Currency, Value: money.NonNegative(Balance(inv))})
	}
	return Summary{Outstanding: money.GroupByCurrency(amounts), Count: len(amounts)}
}
