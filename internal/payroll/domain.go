package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy decides how much of the advance balance a period deducts.
type Policy string

const (
	PolicyFull     Policy = "FULL"
	PolicyPartial  Policy = "PARTIAL"
	PolicyDeferred Policy = "DEFERRED"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicyFull, PolicyPartial, PolicyDeferred:
		return true
	}
	return false
}

// Employee is the payroll view of a staff member.
type Employee struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	BaseSalary decimal.Decimal `json:"base_salary"`
	Active     bool            `json:"active"`
}

// Advance is an immutable cash grant to an employee.
type Advance struct {
	ID         int64           `json:"id"`
	EmployeeID int64           `json:"employee_id"`
	GrantedAt  time.Time       `json:"granted_at"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
}

// Settlement is the payroll row of one employee for one period.
type Settlement struct {
	ID         int64           `json:"id"`
	EmployeeID int64           `json:"employee_id"`
	Period     string          `json:"period"`
	Gross      decimal.Decimal `json:"gross_salary"`
	// AdvanceBalance is the open advance balance as of this period.
	AdvanceBalance decimal.Decimal `json:"advance_balance"`
	Deducted       decimal.Decimal `json:"deducted"`
	Policy         Policy          `json:"policy"`
	Net            decimal.Decimal `json:"net_salary"`
	Paid           bool            `json:"paid"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
}

// Reconciliation is the outcome of ReconcilePeriod.
type Reconciliation struct {
	Period string `json:"period"`
	// Rows holds every row of the period after the run, ordered by employee.
	Rows    []Settlement `json:"rows"`
	Created []Settlement `json:"-"`
	Updated []Settlement `json:"-"`
}

// SwitchPolicyInput changes the deduction policy of an unpaid row.
type SwitchPolicyInput struct {
	Policy Policy           `json:"policy" validate:"required,oneof=FULL PARTIAL DEFERRED"`
	Value  *decimal.Decimal `json:"value,omitempty"`
}

// GrantAdvanceInput records a new advance.
type GrantAdvanceInput struct {
	EmployeeID int64           `json:"employee_id" validate:"required,gt=0"`
	GrantedAt  time.Time       `json:"granted_at"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note" validate:"max=500"`
}
