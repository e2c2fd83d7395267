package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates invoice payment statuses.
type Status string

const (
	StatusUnpaid        Status = "UNPAID"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	StatusCancelled     Status = "CANCELLED"
)

// Method enumerates how a payment event was made.
type Method string

const (
	MethodCash     Method = "CASH"
	MethodTransfer Method = "TRANSFER"
	MethodCard     Method = "CARD"
	MethodCheck    Method = "CHECK"
	MethodUnknown  Method = "UNKNOWN"
)

// ManualSettlementNote marks the synthetic event appended by SettleInFull.
const ManualSettlementNote = "manual settlement"

// Payment is one discrete payment event recorded against an invoice.
type Payment struct {
	ID     uuid.UUID       `json:"id"`
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Method Method          `json:"method"`
	Note   string          `json:"note,omitempty"`
	// SourceCheckID identifies the check whose allocation created the event.
	SourceCheckID *int64 `json:"source_check_id,omitempty"`
}

// FromCheck reports whether the event was created by allocating checkID.
func (p Payment) FromCheck(checkID int64) bool {
	return p.SourceCheckID != nil && *p.SourceCheckID == checkID
}

// Invoice model.
type Invoice struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	PartyID     int64           `json:"party_id"`
	IssuedAt    time.Time       `json:"issued_at"`
	DueAt       time.Time       `json:"due_at"`
	Currency    string          `json:"currency"`
	Total       decimal.Decimal `json:"total"`
	Status      Status          `json:"status"`
	Payments    []Payment       `json:"payments"`
	CheckNumber string          `json:"check_number,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a copy that shares no slices with inv.
func (inv Invoice) Clone() Invoice {
	out := inv
	if inv.Payments != nil {
		out.Payments = make([]Payment, len(inv.Payments))
		copy(out.Payments, inv.Payments)
	}
	return out
}

// --- Input DTOs ---

// PartialPaymentInput registers a user-entered payment.
type PartialPaymentInput struct {
	InvoiceID int64           `json:"invoice_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Method    Method          `json:"method" validate:"omitempty,oneof=CASH TRANSFER CARD CHECK UNKNOWN"`
	Note      string          `json:"note" validate:"max=500"`
}

// CreateInvoiceInput creates an invoice with an empty payment list.
type CreateInvoiceInput struct {
	Number   string          `json:"number" validate:"required,max=64"`
	PartyID  int64           `json:"party_id"`
	IssuedAt time.Time       `json:"issued_at" validate:"required"`
	DueAt    time.Time       `json:"due_at"`
	Currency string          `json:"currency" validate:"required,len=3"`
	Total    decimal.Decimal `json:"total"`
}

// Summary aggregates outstanding balances per currency.
type Summary struct {
	Outstanding map[string]decimal.Decimal `json:"outstanding"`
	Count       int                        `json:"count"`
}
