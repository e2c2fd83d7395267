package checks

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/ledger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func inv(id int64, total string, issued time.Time) ledger.Invoice {
	return ledger.Invoice{ID: id, Number: fmt.Sprintf("F-%d", id), Currency: "TRY", Total: dec(total), IssuedAt: issued, Status: ledger.StatusUnpaid}
}

func byID(invoices []ledger.Invoice) map[int64]ledger.Invoice {
	out := make(map[int64]ledger.Invoice, len(invoices))
	for _, i := range invoices {
		out[i.ID] = i
	}
	return out
}

func fromCheck(i ledger.Invoice, checkID int64) []ledger.Payment {
	var out []ledger.Payment
	for _, p := range i.Payments {
		if p.FromCheck(checkID) {
			out = append(out, p)
		}
	}
	return out
}

func scenarioC1() ([]ledger.Invoice, Check) {
	invoices := []ledger.Invoice{inv(2, "400", day(5)), inv(1, "300", day(1))}
	check := Check{ID: 10, Number: "A-77", IssuedAt: day(10), Amount: dec("500"), Currency: "TRY", InvoiceIDs: []int64{2, 1}}
	return invoices, check
}

func TestApplyAllocatesByInvoiceDate(t *testing.T) {
	invoices, check := scenarioC1()

	res := Apply(invoices, check, nil)
	got := byID(res.Invoices)

	assert.Equal(t, ledger.StatusPaid, got[1].Status)
	assert.Equal(t, ledger.StatusPartiallyPaid, got[2].Status)
	assert.True(t, dec("300").Equal(ledger.Paid(got[1])))
	assert.True(t, dec("200").Equal(ledger.Paid(got[2])))
	assert.True(t, res.Unallocated.IsZero())

	p := fromCheck(got[1], 10)[0]
	assert.Equal(t, PaymentID(10, 1), p.ID)
	assert.Equal(t, "Çek No: A-77", p.Note)
	assert.Equal(t, ledger.MethodCheck, p.Method)
	assert.Equal(t, day(10), p.Date)
	assert.Equal(t, "A-77", got[1].CheckNumber)

	require.Len(t, res.Allocations, 2)
	assert.Equal(t, int64(1), res.Allocations[0].InvoiceID)
	assert.Equal(t, int64(2), res.Allocations[1].InvoiceID)
	assert.Len(t, res.Changed, 2)

	assert.Empty(t, invoices[0].Payments, "input must not be mutated")
}

func TestApplyIsIdempotent(t *testing.T) {
	invoices, check := scenarioC1()

	first := Apply(invoices, check, nil)
	prior := check
	second := Apply(first.Invoices, check, &prior)

	assert.Equal(t, first.Invoices, second.Invoices)
	assert.Equal(t, first.Allocations, second.Allocations)
}

func TestApplyEditRelinksAndReportsUnused(t *testing.T) {
	invoices, check := scenarioC1()
	first := Apply(invoices, check, nil)

	prior := check
	edited := check
	edited.InvoiceIDs = []int64{2}
	res := Apply(first.Invoices, edited, &prior)
	got := byID(res.Invoices)

	assert.Equal(t, ledger.StatusUnpaid, got[1].Status)
	assert.Empty(t, got[1].Payments)
	assert.Empty(t, got[1].CheckNumber)
	assert.Equal(t, ledger.StatusPaid, got[2].Status)
	require.Len(t, got[2].Payments, 1)
	assert.True(t, dec("400").Equal(got[2].Payments[0].Amount))
	assert.True(t, dec("100").Equal(res.Unallocated))
}

func TestApplyConservesFaceValue(t *testing.T) {
	invoices := []ledger.Invoice{inv(1, "100.10", day(1)), inv(2, "250.45", day(2)), inv(3, "999", day(3))}
	check := Check{ID: 3, Number: "7", IssuedAt: day(4), Amount: dec("600.33"), InvoiceIDs: []int64{1, 2, 3}}

	res := Apply(invoices, check, nil)

	total := decimal.Zero
	for _, i := range res.Invoices {
		for _, p := range fromCheck(i, 3) {
			total = total.Add(p.Amount)
		}
	}
	assert.True(t, total.Sub(check.Amount).Abs().LessThan(dec("0.01")))
	assert.True(t, res.Unallocated.IsZero())
}

func TestApplyRespectsExistingPayments(t *testing.T) {
	first := inv(1, "300", day(1))
	first = ledger.AppendPayment(first, ledger.Payment{Amount: dec("250"), Method: ledger.MethodCash})
	invoices := []ledger.Invoice{first, inv(2, "100", day(2))}
	check := Check{ID: 4, Number: "9", IssuedAt: day(3), Amount: dec("120"), InvoiceIDs: []int64{1, 2}}

	got := byID(Apply(invoices, check, nil).Invoices)

	assert.True(t, dec("50").Equal(fromCheck(got[1], 4)[0].Amount))
	assert.True(t, dec("70").Equal(fromCheck(got[2], 4)[0].Amount))
	assert.Equal(t, ledger.StatusPaid, got[1].Status)
	assert.Len(t, got[1].Payments, 2)
}

func TestApplySkipsCancelledForeignAndUnknown(t *testing.T) {
	cancelled := ledger.Cancel(inv(1, "100", day(1)))
	foreign := inv(2, "100", day(2))
	foreign.Currency = "USD"
	invoices := []ledger.Invoice{cancelled, foreign, inv(3, "100", day(3))}
	check := Check{ID: 5, Number: "X", IssuedAt: day(4), Amount: dec("150"), Currency: "TRY", InvoiceIDs: []int64{1, 2, 3, 99}}

	res := Apply(invoices, check, nil)
	got := byID(res.Invoices)

	assert.Empty(t, got[1].Payments)
	assert.Equal(t, ledger.StatusCancelled, got[1].Status)
	assert.Empty(t, got[2].Payments)
	assert.Equal(t, ledger.StatusPaid, got[3].Status)
	assert.True(t, dec("50").Equal(res.Unallocated))
}

func TestApplyDeleteUnwindsEverything(t *testing.T) {
	invoices, check := scenarioC1()
	allocated := Apply(invoices, check, nil)

	prior := check
	res := Apply(allocated.Invoices, Check{ID: check.ID, Number: check.Number}, &prior)

	for _, i := range res.Invoices {
		assert.Empty(t, i.Payments)
		assert.Empty(t, i.CheckNumber)
		assert.Equal(t, ledger.StatusUnpaid, i.Status)
	}
	assert.Len(t, res.Changed, 2)
}

func TestApplyLeavesOtherChecksAlone(t *testing.T) {
	invoices := []ledger.Invoice{inv(1, "500", day(1))}
	a := Check{ID: 1, Number: "A", IssuedAt: day(2), Amount: dec("200"), InvoiceIDs: []int64{1}}
	b := Check{ID: 2, Number: "B", IssuedAt: day(3), Amount: dec("100"), InvoiceIDs: []int64{1}}

	state := Apply(invoices, a, nil).Invoices
	state = Apply(state, b, nil).Invoices

	priorA := a
	editedA := a
	editedA.Amount = dec("350")
	got := byID(Apply(state, editedA, &priorA).Invoices)

	require.Len(t, fromCheck(got[1], 2), 1)
	assert.True(t, dec("100").Equal(fromCheck(got[1], 2)[0].Amount))
	assert.True(t, dec("350").Equal(fromCheck(got[1], 1)[0].Amount))
	assert.Equal(t, ledger.StatusPartiallyPaid, got[1].Status)
}

func TestApplyBacklinkKeptForOtherCheck(t *testing.T) {
	i := inv(1, "100", day(1))
	i.CheckNumber = "OTHER"
	prior := Check{ID: 1, Number: "A", InvoiceIDs: []int64{1}}
	edited := Check{ID: 1, Number: "A", Amount: dec("10")}

	got := byID(Apply([]ledger.Invoice{i}, edited, &prior).Invoices)
	assert.Equal(t, "OTHER", got[1].CheckNumber)
}

func TestApplyZeroAmountAllocatesNothing(t *testing.T) {
	invoices := []ledger.Invoice{inv(1, "100", day(1))}
	res := Apply(invoices, Check{ID: 1, Number: "Z", InvoiceIDs: []int64{1}}, nil)
	assert.Empty(t, res.Invoices[0].Payments)
	assert.Empty(t, res.Allocations)
}

func TestPaymentIDStable(t *testing.T) {
	assert.Equal(t, PaymentID(1, 2), PaymentID(1, 2))
	assert.NotEqual(t, PaymentID(1, 2), PaymentID(2, 1))
	assert.NotEqual(t, uuid.Nil, PaymentID(0, 0))
}
