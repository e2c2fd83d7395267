package installments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGeneratePlanEvenSplit(t *testing.T) {
	rows, err := GeneratePlan(dec("1000"), "try", 4, date(2024, 1, 1), Anchor{})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	wantDue := []time.Time{date(2024, 1, 1), date(2024, 2, 1), date(2024, 3, 1), date(2024, 4, 1)}
	for i, row := range rows {
		assert.Equal(t, i+1, row.Sequence)
		assert.True(t, dec("250").Equal(row.Amount), row.Amount.String())
		assert.Equal(t, wantDue[i], row.DueAt)
		assert.Equal(t, "TRY", row.Currency)
		assert.Equal(t, StatusUnpaid, row.Status)
	}
}

func TestGeneratePlanLastRowAbsorbsResidual(t *testing.T) {
	rows, err := GeneratePlan(dec("100"), "TRY", 3, date(2024, 1, 15), Anchor{})
	require.NoError(t, err)

	assert.True(t, dec("33.33").Equal(rows[0].Amount))
	assert.True(t, dec("33.33").Equal(rows[1].Amount))
	assert.True(t, dec("33.34").Equal(rows[2].Amount))
	assert.True(t, RebalanceCheck(rows, dec("100")).Balanced)

	rows, err = GeneratePlan(dec("200"), "TRY", 3, date(2024, 1, 15), Anchor{})
	require.NoError(t, err)
	assert.True(t, dec("66.66").Equal(rows[0].Amount))
	assert.True(t, dec("66.68").Equal(rows[2].Amount))
	assert.True(t, RebalanceCheck(rows, dec("200")).PlanTotal.Equal(dec("200")))
}

func TestGeneratePlanSmallSourceKeepsRowsPositive(t *testing.T) {
	cases := []struct {
		source string
		count  int
	}{
		{source: "1.00", count: 100},
		{source: "1.49", count: 99},
		{source: "0.05", count: 5},
		{source: "0.99", count: 50},
	}
	for _, tc := range cases {
		t.Run(tc.source, func(t *testing.T) {
			rows, err := GeneratePlan(dec(tc.source), "TRY", tc.count, date(2024, 1, 1), Anchor{})
			require.NoError(t, err)
			require.Len(t, rows, tc.count)
			for _, row := range rows {
				assert.True(t, row.Amount.IsPositive(), "row %d: %s", row.Sequence, row.Amount)
			}
			last := rows[len(rows)-1].Amount
			assert.True(t, last.GreaterThanOrEqual(rows[0].Amount), last.String())
			assert.True(t, RebalanceCheck(rows, dec(tc.source)).PlanTotal.Equal(dec(tc.source)))
		})
	}
}

func TestGeneratePlanRejectsSubCentRows(t *testing.T) {
	for _, tc := range []struct {
		source string
		count  int
	}{
		{source: "1.00", count: 150},
		{source: "0.05", count: 10},
	} {
		_, err := GeneratePlan(dec(tc.source), "TRY", tc.count, date(2024, 1, 1), Anchor{})
		assert.ErrorIs(t, err, shared.ErrValidation, "%s/%d", tc.source, tc.count)
	}
}

func TestGeneratePlanClampsMonthEnd(t *testing.T) {
	rows, err := GeneratePlan(dec("400"), "TRY", 4, date(2024, 1, 31), Anchor{})
	require.NoError(t, err)

	assert.Equal(t, date(2024, 1, 31), rows[0].DueAt)
	assert.Equal(t, date(2024, 2, 29), rows[1].DueAt)
	assert.Equal(t, date(2024, 3, 31), rows[2].DueAt)
	assert.Equal(t, date(2024, 4, 30), rows[3].DueAt)
}

func TestGeneratePlanCarriesAnchor(t *testing.T) {
	id := int64(12)
	rows, err := GeneratePlan(dec("10"), "TRY", 2, date(2024, 1, 1), Anchor{InvoiceID: &id})
	require.NoError(t, err)
	for _, row := range rows {
		require.NotNil(t, row.InvoiceID)
		assert.Equal(t, id, *row.InvoiceID)
	}
}

func TestGeneratePlanValidation(t *testing.T) {
	cases := []struct {
		name   string
		source string
		count  int
		due    time.Time
	}{
		{name: "zero count", source: "100", count: 0, due: date(2024, 1, 1)},
		{name: "negative count", source: "100", count: -2, due: date(2024, 1, 1)},
		{name: "zero source", source: "0", count: 2, due: date(2024, 1, 1)},
		{name: "negative source", source: "-5", count: 2, due: date(2024, 1, 1)},
		{name: "no due date", source: "100", count: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GeneratePlan(dec(tc.source), "TRY", tc.count, tc.due, Anchor{})
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestEditRowDriftIsReportedNotCorrected(t *testing.T) {
	rows, err := GeneratePlan(dec("1000"), "TRY", 4, date(2024, 1, 1), Anchor{})
	require.NoError(t, err)

	amount := dec("300")
	edited, err := EditRow(rows, 2, RowEdit{Amount: &amount})
	require.NoError(t, err)

	assert.True(t, dec("250").Equal(rows[1].Amount), "input must not change")
	assert.True(t, dec("300").Equal(edited[1].Amount))
	assert.True(t, dec("250").Equal(edited[3].Amount))

	bal := RebalanceCheck(edited, dec("1000"))
	assert.False(t, bal.Balanced)
	assert.True(t, dec("1050").Equal(bal.PlanTotal))
	assert.True(t, dec("50").Equal(bal.Difference))
}

func TestEditRowValidation(t *testing.T) {
	rows, err := GeneratePlan(dec("100"), "TRY", 2, date(2024, 1, 1), Anchor{})
	require.NoError(t, err)

	zero := decimal.Zero
	_, err = EditRow(rows, 1, RowEdit{Amount: &zero})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = EditRow(rows, 5, RowEdit{})
	assert.ErrorIs(t, err, shared.ErrValidation)

	rows[0].Status = StatusPaid
	due := date(2024, 6, 1)
	_, err = EditRow(rows, 1, RowEdit{DueAt: &due})
	assert.ErrorIs(t, err, shared.ErrValidation)

	moved, err := EditRow(rows, 2, RowEdit{DueAt: &due})
	require.NoError(t, err)
	assert.Equal(t, due, moved[1].DueAt)
}

func TestRebalanceCheckTolerance(t *testing.T) {
	rows := []Installment{{Amount: dec("50")}, {Amount: dec("49.995")}}
	assert.True(t, RebalanceCheck(rows, dec("100")).Balanced)

	rows[1].Amount = dec("49.99")
	assert.False(t, RebalanceCheck(rows, dec("100")).Balanced)
}
