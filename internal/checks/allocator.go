// Package checks allocates a check's face value across the invoices it
// settles and keeps that allocation consistent when the check is edited or
// deleted.
package checks

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/ledger"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/money"
)

// paymentNamespace seeds the deterministic ids of check-sourced events.
var paymentNamespace = uuid.MustParse("6f1c2a3e-5b4d-4e8f-9a71-0c2d3e4f5a6b")

// PaymentID returns the event id used for checkID's share of invoiceID. The
// same pair always yields the same id, so re-running Apply is a no-op.
func PaymentID(checkID, invoiceID int64) uuid.UUID {
	return uuid.NewSHA1(paymentNamespace, []byte(fmt.Sprintf("check/%d/invoice/%d", checkID, invoiceID)))
}

// Note is the display note written on check-sourced events.
func Note(number string) string {
	return "Çek No: " + number
}

// Apply recomputes the invoice events sourced from edited. previous is the
// stored version before the edit, or nil for a new check. To undo a check
// entirely pass an edited copy with no InvoiceIDs.
//
// Apply never fails. Unknown invoice ids are skipped, and cancelled invoices
// or invoices in another currency receive nothing.
func Apply(invoices []ledger.Invoice, edited Check, previous *Check) Result {
	affected := make(map[int64]struct{}, len(edited.InvoiceIDs))
	for _, id := range edited.InvoiceIDs {
		affected[id] = struct{}{}
	}
	numbers := map[string]struct{}{edited.Number: {}}
	if previous != nil {
		for _, id := range previous.InvoiceIDs {
			affected[id] = struct{}{}
		}
		numbers[previous.Number] = struct{}{}
	}

	out := make([]ledger.Invoice, len(invoices))
	index := make(map[int64]int, len(invoices))
	for i, inv := range invoices {
		out[i] = inv
		index[inv.ID] = i
	}

	// Unwind every event this check created on any invoice it touches now or
	// touched before.
	touched := make(map[int64]struct{}, len(affected))
	for id := range affected {
		i, ok := index[id]
		if !ok {
			continue
		}
		inv := ledger.RemovePaymentsByCheck(out[i], edited.ID)
		if _, pointsHere := numbers[inv.CheckNumber]; pointsHere && inv.CheckNumber != "" && !edited.Links(id) {
			inv.CheckNumber = ""
		}
		out[i] = inv
		touched[id] = struct{}{}
	}

	result := Result{Unallocated: decimal.Zero}
	if len(edited.InvoiceIDs) > 0 && money.Positive(edited.Amount) {
		result.Allocations, result.Unallocated = allocate(out, index, edited)
	} else if edited.Amount.IsPositive() {
		result.Unallocated = edited.Amount
	}

	for id := range touched {
		i := index[id]
		out[i] = ledger.Recompute(out[i])
	}
	result.Invoices = out
	result.Changed = changed(out, touched)
	return result
}

func allocate(out []ledger.Invoice, index map[int64]int, edited Check) ([]Allocation, decimal.Decimal) {
	linked := make([]int, 0, len(edited.InvoiceIDs))
	seen := make(map[int64]struct{}, len(edited.InvoiceIDs))
	for _, id := range edited.InvoiceIDs {
		i, ok := index[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		inv := out[i]
		if inv.Status == ledger.StatusCancelled || !money.SameCurrency(inv.Currency, edited.Currency) {
			continue
		}
		linked = append(linked, i)
	}
	sort.SliceStable(linked, func(a, b int) bool {
		ia, ib := out[linked[a]], out[linked[b]]
		if !ia.IssuedAt.Equal(ib.IssuedAt) {
			return ia.IssuedAt.Before(ib.IssuedAt)
		}
		return ia.ID < ib.ID
	})

	remainder := edited.Amount
	var allocations []Allocation
	for _, i := range linked {
		inv := out[i]
		inv.CheckNumber = edited.Number
		out[i] = inv
		if money.IsZero(remainder) {
			continue
		}
		remaining := ledger.Balance(inv)
		if !money.Positive(remaining) {
			continue
		}
		portion := money.Min(remainder, remaining)
		source := edited.ID
		out[i] = ledger.AppendPayment(inv, ledger.Payment{
			ID:            PaymentID(edited.ID, inv.ID),
			Date:          edited.IssuedAt,
			Amount:        portion,
			Method:        ledger.MethodCheck,
			Note:          Note(edited.Number),
			SourceCheckID: &source,
		})
		remainder = remainder.Sub(portion)
		allocations = append(allocations, Allocation{InvoiceID: inv.ID, Amount: portion})
	}
	if money.IsZero(remainder) {
		remainder = decimal.Zero
	}
	return allocations, money.NonNegative(remainder)
}

func changed(out []ledger.Invoice, touched map[int64]struct{}) []ledger.Invoice {
	result := make([]ledger.Invoice, 0, len(touched))
	for _, inv := range out {
		if _, ok := touched[inv.ID]; ok {
			result = append(result, inv)
		}
	}
	return result
}
