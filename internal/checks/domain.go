package checks

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/ledger"
)

// Status is a free-form check label, independent of invoice status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusBounced   Status = "BOUNCED"
	StatusCancelled Status = "CANCELLED"
)

// Check model.
type Check struct {
	ID       int64           `json:"id"`
	Number   string          `json:"number"`
	IssuedAt time.Time       `json:"issued_at"`
	DueAt    time.Time       `json:"due_at"`
	Payee    string          `json:"payee"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	// InvoiceIDs lists the invoices this check settles. Allocation order is
	// derived from invoice dates, not from this slice.
	InvoiceIDs []int64   `json:"invoice_ids"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Links reports whether the check references invoiceID.
func (c Check) Links(invoiceID int64) bool {
	for _, id := range c.InvoiceIDs {
		if id == invoiceID {
			return true
		}
	}
	return false
}

// Allocation is the share of a check's face value assigned to one invoice.
type Allocation struct {
	InvoiceID int64           `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// Result is the outcome of one allocation run.
type Result struct {
	// Invoices is the full collection after the run, in input order.
	Invoices []ledger.Invoice `json:"-"`
	// Changed holds the invoices touched by the run and must be persisted.
	Changed     []ledger.Invoice `json:"changed"`
	Allocations []Allocation     `json:"allocations"`
	// Unallocated is face value left over once every linked invoice is paid.
	Unallocated decimal.Decimal `json:"unallocated"`
}

// SaveInput creates or edits a check.
type SaveInput struct {
	ID         int64           `json:"-"`
	Number     string          `json:"number" validate:"required,max=64"`
	IssuedAt   time.Time       `json:"issued_at" validate:"required"`
	DueAt      time.Time       `json:"due_at"`
	Payee      string          `json:"payee" validate:"max=200"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency" validate:"omitempty,len=3"`
	InvoiceIDs []int64         `json:"invoice_ids" validate:"dive,gt=0"`
	Status     Status          `json:"status" validate:"omitempty,max=32"`
}

// SaveResult is returned by Service.Save.
type SaveResult struct {
	Check  Check  `json:"check"`
	Result Result `json:"result"`
}
