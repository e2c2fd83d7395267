package payroll

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

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func ptrDec(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

var staff = []Employee{
	{ID: 1, Name: "Ayşe", BaseSalary: dec("20000"), Active: true},
	{ID: 2, Name: "Mehmet", BaseSalary: dec("0"), Active: true},
	{ID: 3, Name: "Eski", BaseSalary: dec("15000"), Active: false},
}

func TestAdvanceCarryForward(t *testing.T) {
	advances := []Advance{
		{ID: 1, EmployeeID: 1, GrantedAt: at(2024, 1, 5), Amount: dec("250")},
		{ID: 2, EmployeeID: 1, GrantedAt: at(2024, 1, 20), Amount: dec("350")},
	}

	jan, err := ReconcilePeriod("2024-01", staff, advances, nil)
	require.NoError(t, err)
	require.Len(t, jan.Rows, 1)
	row := jan.Rows[0]
	assert.Equal(t, PolicyFull, row.Policy)
	assert.True(t, dec("600").Equal(row.AdvanceBalance))
	assert.True(t, dec("600").Equal(row.Deducted))
	assert.True(t, dec("19400").Equal(row.Net))

	row, err = ApplyDeductionPolicy(row, PolicyPartial, ptrDec("400"))
	require.NoError(t, err)
	assert.True(t, dec("400").Equal(row.Deducted))
	assert.True(t, dec("19600").Equal(row.Net))

	feb, err := ReconcilePeriod("2024-02", staff, advances, []Settlement{row})
	require.NoError(t, err)
	require.Len(t, feb.Created, 1)
	assert.True(t, dec("200").Equal(feb.Created[0].AdvanceBalance))
	assert.True(t, dec("200").Equal(feb.Created[0].Deducted))
}

func TestReconcilePeriodCreatesForActiveWithSalaryOrBalance(t *testing.T) {
	advances := []Advance{{EmployeeID: 2, GrantedAt: at(2024, 3, 1), Amount: dec("100")}}

	res, err := ReconcilePeriod("2024-03", staff, advances, nil)
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.Equal(t, int64(1), res.Created[0].EmployeeID)
	assert.Equal(t, int64(2), res.Created[1].EmployeeID)
	assert.True(t, dec("-100").Equal(res.Created[1].Net))

	res, err = ReconcilePeriod("2024-02", staff, advances, nil)
	require.NoError(t, err)
	require.Len(t, res.Created, 1, "advance granted after the period must not count")
	assert.Equal(t, int64(1), res.Created[0].EmployeeID)
}

func TestReconcilePeriodIsIdempotent(t *testing.T) {
	advances := []Advance{{EmployeeID: 1, GrantedAt: at(2024, 1, 1), Amount: dec("500")}}

	first, err := ReconcilePeriod("2024-01", staff, advances, nil)
	require.NoError(t, err)
	second, err := ReconcilePeriod("2024-01", staff, advances, first.Rows)
	require.NoError(t, err)

	assert.Empty(t, second.Created)
	assert.Empty(t, second.Updated)
	assert.Equal(t, first.Rows, second.Rows)
}

func TestReconcilePeriodRefreshesStaleUnpaidRows(t *testing.T) {
	advances := []Advance{{EmployeeID: 1, GrantedAt: at(2024, 1, 1), Amount: dec("500")}}
	first, err := ReconcilePeriod("2024-01", staff, advances, nil)
	require.NoError(t, err)

	partial, err := ApplyDeductionPolicy(first.Rows[0], PolicyPartial, ptrDec("300"))
	require.NoError(t, err)

	advances = append(advances, Advance{EmployeeID: 1, GrantedAt: at(2024, 1, 15), Amount: dec("200")})
	res, err := ReconcilePeriod("2024-01", staff, advances, []Settlement{partial})
	require.NoError(t, err)
	require.Len(t, res.Updated, 1)
	assert.True(t, dec("700").Equal(res.Updated[0].AdvanceBalance))
	assert.True(t, dec("300").Equal(res.Updated[0].Deducted))
	assert.Equal(t, PolicyPartial, res.Updated[0].Policy)
}

func TestReconcilePolicyTable(t *testing.T) {
	base := Settlement{EmployeeID: 1, Period: "2024-01", Gross: dec("1000"), AdvanceBalance: dec("800"), Deducted: dec("500")}
	advances := []Advance{{EmployeeID: 1, GrantedAt: at(2024, 1, 1), Amount: dec("300")}}

	cases := []struct {
		policy   Policy
		deducted string
	}{
		{PolicyFull, "300"},
		{PolicyDeferred, "0"},
		{PolicyPartial, "300"},
	}
	for _, tc := range cases {
		t.Run(string(tc.policy), func(t *testing.T) {
			row := base
			row.Policy = tc.policy
			res, err := ReconcilePeriod("2024-01", nil, advances, []Settlement{row})
			require.NoError(t, err)
			require.Len(t, res.Updated, 1)
			assert.True(t, dec(tc.deducted).Equal(res.Updated[0].Deducted), res.Updated[0].Deducted.String())
			assert.True(t, dec("1000").Sub(dec(tc.deducted)).Equal(res.Updated[0].Net))
		})
	}
}

func TestReconcileNeverTouchesPaidRows(t *testing.T) {
	paidAt := at(2024, 1, 31)
	paid := Settlement{ID: 9, EmployeeID: 1, Period: "2024-01", Gross: dec("20000"), AdvanceBalance: dec("100"),
		Deducted: dec("100"), Policy: PolicyFull, Net: dec("19900"), Paid: true, PaidAt: &paidAt}
	advances := []Advance{
		{EmployeeID: 1, GrantedAt: at(2024, 1, 1), Amount: dec("100")},
		{EmployeeID: 1, GrantedAt: at(2024, 1, 20), Amount: dec("900")},
	}

	res, err := ReconcilePeriod("2024-01", staff, advances, []Settlement{paid})
	require.NoError(t, err)
	assert.Empty(t, res.Updated)
	assert.Empty(t, res.Created)
	assert.Equal(t, paid, res.Rows[0])

	bal, err := AdvanceBalance(1, "2024-02", advances, []Settlement{paid})
	require.NoError(t, err)
	assert.True(t, dec("900").Equal(bal))
}

func TestAdvanceBalanceNeverNegative(t *testing.T) {
	over := Settlement{EmployeeID: 1, Period: "2024-01", Deducted: dec("1000")}
	bal, err := AdvanceBalance(1, "2024-02", []Advance{{EmployeeID: 1, GrantedAt: at(2024, 1, 1), Amount: dec("100")}}, []Settlement{over})
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	_, err = AdvanceBalance(1, "2024/02", nil, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidPeriod)
}

func TestApplyDeductionPolicy(t *testing.T) {
	row := Settlement{Gross: dec("1000"), AdvanceBalance: dec("400"), Deducted: dec("400"), Policy: PolicyFull, Net: dec("600")}

	deferred, err := ApplyDeductionPolicy(row, PolicyDeferred, nil)
	require.NoError(t, err)
	assert.True(t, deferred.Deducted.IsZero())
	assert.True(t, dec("1000").Equal(deferred.Net))

	full, err := ApplyDeductionPolicy(deferred, PolicyFull, nil)
	require.NoError(t, err)
	assert.True(t, dec("400").Equal(full.Deducted))

	edge, err := ApplyDeductionPolicy(row, PolicyPartial, ptrDec("400.004"))
	require.NoError(t, err)
	assert.True(t, dec("400").Equal(edge.Deducted))

	rejected, err := ApplyDeductionPolicy(row, PolicyPartial, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, PolicyFull, rejected.Policy)
	rejected, err = ApplyDeductionPolicy(row, PolicyPartial, ptrDec("400.02"))
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, PolicyFull, rejected.Policy)
	assert.True(t, dec("400").Equal(rejected.Deducted))
	_, err = ApplyDeductionPolicy(row, PolicyPartial, ptrDec("-1"))
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = ApplyDeductionPolicy(row, "HALF", nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	row.Paid = true
	_, err = ApplyDeductionPolicy(row, PolicyDeferred, nil)
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestMarkPaidIsOneWay(t *testing.T) {
	when := at(2024, 2, 1)
	row, err := MarkPaid(Settlement{ID: 1}, when)
	require.NoError(t, err)
	assert.True(t, row.Paid)
	assert.Equal(t, when, *row.PaidAt)

	_, err = MarkPaid(row, when)
	assert.ErrorIs(t, err, ErrRowPaid)
}

func TestReconcileRejectsBadPeriod(t *testing.T) {
	_, err := ReconcilePeriod("24-1", staff, nil, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidPeriod)
}
