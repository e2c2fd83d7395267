// Package installments splits an amount into dated installment rows and
// reports when hand-edited rows drift from the amount they came from.
package installments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/money"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// GeneratePlan splits source into count rows due one calendar month apart.
// Each row carries source/count truncated to cents; the last row absorbs the
// rounding residual so the rows always sum to source.
func GeneratePlan(source decimal.Decimal, currency string, count int, firstDue time.Time, anchor Anchor) ([]Installment, error) {
	if count < 1 {
		return nil, shared.NewValidationError("count", "must be at least 1")
	}
	if !money.Positive(source) {
		return nil, shared.NewValidationError("source_amount", "must be greater than zero")
	}
	if firstDue.IsZero() {
		return nil, shared.NewValidationError("first_due", "required")
	}
	source = money.Round(source)
	currency = money.NormalizeCurrency(currency)

	// Truncating keeps every row at or below the last one, so the residual
	// the last row absorbs is never negative.
	per := source.Div(decimal.NewFromInt(int64(count))).Truncate(2)
	if !money.Positive(per) {
		return nil, shared.NewValidationError("count", "%d installments would be below one cent each", count)
	}
	rows := make([]Installment, count)
	allocated := decimal.Zero
	for i := range rows {
		amount := per
		if i == count-1 {
			amount = source.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		rows[i] = Installment{
			Sequence: i + 1,
			DueAt:    shared.AddMonthsClamped(firstDue, i),
			Amount:   amount,
			Currency: currency,
			Status:   StatusUnpaid,
			Anchor:   anchor,
		}
	}
	return rows, nil
}

// RebalanceCheck compares the rows with source. It never corrects them.
func RebalanceCheck(plan []Installment, source decimal.Decimal) Balance {
	total := decimal.Zero
	for _, row := range plan {
		total = total.Add(row.Amount)
	}
	return Balance{
		Balanced:   money.Equal(total, source),
		PlanTotal:  total,
		Difference: total.Sub(source),
	}
}

// EditRow applies a manual change to the row with the given sequence and
// returns the new plan. Other rows are untouched.
func EditRow(plan []Installment, sequence int, edit RowEdit) ([]Installment, error) {
	idx := -1
	for i, row := range plan {
		if row.Sequence == sequence {
			idx = i
			break
		}
	}
	if idx < 0 {
		return plan, shared.NewValidationError("sequence", "installment %d not in plan", sequence)
	}
	if plan[idx].Status == StatusPaid {
		return plan, shared.NewValidationError("status", "installment %d is already paid", sequence)
	}
	row := plan[idx]
	if edit.Amount != nil {
		if !money.Positive(*edit.Amount) {
			return plan, shared.NewValidationError("amount", "must be greater than zero")
		}
		row.Amount = money.Round(*edit.Amount)
	}
	if edit.DueAt != nil {
		if edit.DueAt.IsZero() {
			return plan, shared.NewValidationError("due_at", "required")
		}
		row.DueAt = *edit.DueAt
	}
	out := make([]Installment, len(plan))
	copy(out, plan)
	out[idx] = row
	return out, nil
}
