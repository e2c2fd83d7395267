// Package payroll reconciles employee cash advances against monthly payroll
// deductions and carries open balances forward from period to period.
package payroll

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/money"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

// ErrRowPaid is returned when a paid settlement would be changed.
var ErrRowPaid = fmt.Errorf("%w: settlement already paid", shared.ErrConflict)

// AdvanceBalance returns the employee's open advance balance for period:
// advances granted before the period ends minus what earlier periods
// deducted. It never goes below zero.
func AdvanceBalance(employeeID int64, period string, advances []Advance, settlements []Settlement) (decimal.Decimal, error) {
	end, err := shared.PeriodEnd(period)
	if err != nil {
		return decimal.Zero, err
	}
	return balance(employeeID, period, end, advances, settlements), nil
}

func balance(employeeID int64, period string, end time.Time, advances []Advance, settlements []Settlement) decimal.Decimal {
	granted := decimal.Zero
	for _, a := range advances {
		if a.EmployeeID == employeeID && a.GrantedAt.Before(end) {
			granted = granted.Add(a.Amount)
		}
	}
	deducted := decimal.Zero
	for _, s := range settlements {
		if s.EmployeeID == employeeID && shared.PeriodBefore(s.Period, period) {
			deducted = deducted.Add(s.Deducted)
		}
	}
	return money.NonNegative(granted.Sub(deducted))
}

// derive recomputes Deducted and Net from the row's policy and balance.
func derive(row Settlement) Settlement {
	switch row.Policy {
	case PolicyDeferred:
		row.Deducted = decimal.Zero
	case PolicyPartial:
		row.Deducted = money.Min(row.Deducted, row.AdvanceBalance)
	default:
		row.Policy = PolicyFull
		row.Deducted = row.AdvanceBalance
	}
	row.Net = row.Gross.Sub(row.Deducted)
	return row
}

// ReconcilePeriod upserts one settlement row per active employee for period.
// Missing rows are created under the FULL policy; unpaid rows whose stored
// balance is stale are refreshed under their current policy; paid rows are
// never touched. Running it twice yields the same rows.
func ReconcilePeriod(period string, employees []Employee, advances []Advance, prior []Settlement) (Reconciliation, error) {
	end, err := shared.PeriodEnd(period)
	if err != nil {
		return Reconciliation{}, err
	}
	result := Reconciliation{Period: period}
	existing := make(map[int64]Settlement)
	for _, s := range prior {
		if s.Period == period {
			existing[s.EmployeeID] = s
		}
	}

	for employeeID, row := range existing {
		if row.Paid {
			result.Rows = append(result.Rows, row)
			continue
		}
		fresh := balance(employeeID, period, end, advances, prior)
		if money.Equal(fresh, row.AdvanceBalance) {
			result.Rows = append(result.Rows, row)
			continue
		}
		row.AdvanceBalance = fresh
		row = derive(row)
		result.Rows = append(result.Rows, row)
		result.Updated = append(result.Updated, row)
	}

	for _, emp := range employees {
		if !emp.Active {
			continue
		}
		if _, ok := existing[emp.ID]; ok {
			continue
		}
		bal := balance(emp.ID, period, end, advances, prior)
		if !bal.IsPositive() && !emp.BaseSalary.IsPositive() {
			continue
		}
		row := derive(Settlement{
			EmployeeID:     emp.ID,
			Period:         period,
			Gross:          emp.BaseSalary,
			AdvanceBalance: bal,
			Policy:         PolicyFull,
		})
		result.Rows = append(result.Rows, row)
		result.Created = append(result.Created, row)
	}

	sortRows(result.Rows)
	sortRows(result.Updated)
	sortRows(result.Created)
	return result, nil
}

// ApplyDeductionPolicy switches the policy of an unpaid row. PARTIAL needs a
// value between zero and the balance.
func ApplyDeductionPolicy(row Settlement, policy Policy, value *decimal.Decimal) (Settlement, error) {
	if row.Paid {
		return row, ErrRowPaid
	}
	if !policy.Valid() {
		return row, shared.NewValidationError("policy", "unknown policy %q", policy)
	}
	next := row
	if policy == PolicyPartial {
		if value == nil {
			return row, shared.NewValidationError("value", "required for PARTIAL")
		}
		v := money.Round(*value)
		if v.IsNegative() || v.GreaterThan(row.AdvanceBalance.Add(money.Epsilon)) {
			return row, shared.NewValidationError("value", "must be between 0 and %s", row.AdvanceBalance.StringFixed(2))
		}
		next.Deducted = money.Min(v, row.AdvanceBalance)
	}
	next.Policy = policy
	return derive(next), nil
}

// MarkPaid freezes the row and stamps the payment time.
func MarkPaid(row Settlement, at time.Time) (Settlement, error) {
	if row.Paid {
		return row, ErrRowPaid
	}
	row.Paid = true
	row.PaidAt = &at
	return row, nil
}

func sortRows(rows []Settlement) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].EmployeeID < rows[j].EmployeeID })
}
