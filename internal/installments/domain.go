package installments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status of one installment row.
type Status string

const (
	StatusUnpaid Status = "UNPAID"
	StatusPaid   Status = "PAID"
)

// Anchor ties a plan to the invoice or party whose balance it splits. Both
// may be empty for a free-standing plan.
type Anchor struct {
	InvoiceID *int64 `json:"invoice_id,omitempty"`
	PartyID   *int64 `json:"party_id,omitempty"`
}

// Installment is one dated row of a plan.
type Installment struct {
	ID       int64           `json:"id"`
	PlanID   int64           `json:"plan_id"`
	Sequence int             `json:"sequence"`
	DueAt    time.Time       `json:"due_at"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   Status          `json:"status"`
	PaidAt   *time.Time      `json:"paid_at,omitempty"`
	Anchor
}

// Plan is the set of installments created together from one source amount.
type Plan struct {
	ID           int64           `json:"id"`
	SourceAmount decimal.Decimal `json:"source_amount"`
	Currency     string          `json:"currency"`
	Anchor
	Rows      []Installment `json:"rows"`
	CreatedAt time.Time     `json:"created_at"`
}

// Balance reports whether a plan still sums to its source amount.
type Balance struct {
	Balanced   bool            `json:"balanced"`
	PlanTotal  decimal.Decimal `json:"plan_total"`
	Difference decimal.Decimal `json:"difference"`
}

// RowEdit is a manual change to one row. Nil fields are left as they are.
type RowEdit struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	DueAt  *time.Time       `json:"due_at,omitempty"`
}

// GenerateInput requests an equal split.
type GenerateInput struct {
	SourceAmount decimal.Decimal `json:"source_amount"`
	Currency     string          `json:"currency" validate:"required,len=3"`
	Count        int             `json:"count" validate:"min=1,max=360"`
	FirstDue     time.Time       `json:"first_due" validate:"required"`
	Anchor
}

// SavePlanInput persists a possibly hand-edited set of rows.
type SavePlanInput struct {
	SourceAmount decimal.Decimal `json:"source_amount"`
	Currency     string          `json:"currency" validate:"required,len=3"`
	Anchor
	Rows []Installment `json:"rows" validate:"required,min=1"`
}

// FromInvoiceInput splits an invoice's open balance.
type FromInvoiceInput struct {
	InvoiceID int64     `json:"-"`
	Count     int       `json:"count" validate:"min=1,max=360"`
	FirstDue  time.Time `json:"first_due" validate:"required"`
}

// PlanView is a stored plan with its current balance.
type PlanView struct {
	Plan    Plan    `json:"plan"`
	Balance Balance `json:"balance"`
}
