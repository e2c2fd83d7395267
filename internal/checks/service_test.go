package checks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/calendar"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/ledger"
	"github.com/aforoughifar-cmyk/Hardworker-Finance-sub000/internal/shared"
)

type memoryInvoiceRepo struct {
	invoices map[int64]ledger.Invoice
}

func (r *memoryInvoiceRepo) FindByID(_ context.Context, id int64) (ledger.Invoice, error) {
	i, ok := r.invoices[id]
	if !ok {
		return ledger.Invoice{}, shared.ErrNotFound
	}
	return i.Clone(), nil
}

func (r *memoryInvoiceRepo) All(context.Context) ([]ledger.Invoice, error) {
	out := make([]ledger.Invoice, 0, len(r.invoices))
	for _, i := range r.invoices {
		out = append(out, i.Clone())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r *memoryInvoiceRepo) Replace(_ context.Context, invoices []ledger.Invoice) error {
	for _, i := range invoices {
		r.invoices[i.ID] = i.Clone()
	}
	return nil
}

func (r *memoryInvoiceRepo) Create(context.Context, ledger.CreateInvoiceInput) (ledger.Invoice, error) {
	return ledger.Invoice{}, errors.New("not supported")
}

type memoryCheckRepo struct {
	checks   map[int64]Check
	nextID   int64
	invoices *memoryInvoiceRepo
}

func (r *memoryCheckRepo) All(context.Context) ([]Check, error) {
	out := make([]Check, 0, len(r.checks))
	for _, c := range r.checks {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r *memoryCheckRepo) FindByID(_ context.Context, id int64) (Check, error) {
	c, ok := r.checks[id]
	if !ok {
		return Check{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryCheckRepo) PriorVersion(ctx context.Context, id int64) (*Check, error) {
	c, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, nil
	}
	return &c, nil
}

func (r *memoryCheckRepo) Save(_ context.Context, c Check) (Check, error) {
	for _, id := range c.InvoiceIDs {
		if _, ok := r.invoices.invoices[id]; !ok {
			return Check{}, fmt.Errorf("checks: link invoice %d: foreign key violation", id)
		}
	}
	if c.ID == 0 {
		r.nextID++
		c.ID = r.nextID
	}
	c.InvoiceIDs = append([]int64(nil), c.InvoiceIDs...)
	r.checks[c.ID] = c
	return c, nil
}

func (r *memoryCheckRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.checks[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.checks, id)
	return nil
}

type memoryUnitOfWork struct {
	repos Repos
}

func (u memoryUnitOfWork) Do(ctx context.Context, fn func(context.Context, Repos) error) error {
	return fn(ctx, u.repos)
}

type fixture struct {
	invoices *memoryInvoiceRepo
	checks   *memoryCheckRepo
	entries  []calendar.Entry
	svc      *Service
}

func newFixture(invoices ...ledger.Invoice) *fixture {
	f := &fixture{
		invoices: &memoryInvoiceRepo{invoices: map[int64]ledger.Invoice{}},
	}
	f.checks = &memoryCheckRepo{checks: map[int64]Check{}, invoices: f.invoices}
	for _, i := range invoices {
		f.invoices.invoices[i.ID] = i
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(memoryUnitOfWork{repos: Repos{Checks: f.checks, Invoices: f.invoices}}, nil, logger)
	f.svc.SetCalendar(calendar.NewDispatcher(calendar.NotifierFunc(func(_ context.Context, e calendar.Entry) error {
		f.entries = append(f.entries, e)
		return nil
	}), logger, nil))
	return f
}

func TestServiceSaveAllocatesAndNotifies(t *testing.T) {
	f := newFixture(inv(1, "300", day(1)), inv(2, "400", day(5)))

	out, err := f.svc.Save(context.Background(), SaveInput{
		Number:     "A-77",
		IssuedAt:   day(10),
		DueAt:      time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Payee:      "Yılmaz Ltd",
		Amount:     dec("500"),
		Currency:   "try",
		InvoiceIDs: []int64{2, 1, 2},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), out.Check.ID)
	assert.Equal(t, StatusPending, out.Check.Status)
	assert.Equal(t, "TRY", out.Check.Currency)
	assert.Equal(t, []int64{2, 1}, out.Check.InvoiceIDs)
	assert.Equal(t, ledger.StatusPaid, f.invoices.invoices[1].Status)
	assert.Equal(t, ledger.StatusPartiallyPaid, f.invoices.invoices[2].Status)

	require.Len(t, f.entries, 2)
	assert.Equal(t, calendar.CategoryCheck, f.entries[0].Category)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), f.entries[0].Date)
	assert.Contains(t, f.entries[0].Description, "A-77")
	assert.Equal(t, day(10), f.entries[1].Date)
}

func TestServiceEditUsesPriorVersion(t *testing.T) {
	f := newFixture(inv(1, "300", day(1)), inv(2, "400", day(5)))
	ctx := context.Background()

	saved, err := f.svc.Save(ctx, SaveInput{Number: "A-77", IssuedAt: day(10), Amount: dec("500"), InvoiceIDs: []int64{1, 2}})
	require.NoError(t, err)

	out, err := f.svc.Save(ctx, SaveInput{ID: saved.Check.ID, Number: "A-77", IssuedAt: day(10), Amount: dec("500"), InvoiceIDs: []int64{2}})
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusUnpaid, f.invoices.invoices[1].Status)
	assert.Empty(t, f.invoices.invoices[1].Payments)
	assert.Equal(t, ledger.StatusPaid, f.invoices.invoices[2].Status)
	assert.True(t, dec("100").Equal(out.Result.Unallocated))
}

func TestServiceSaveSkipsMissingInvoices(t *testing.T) {
	f := newFixture(inv(1, "300", day(1)))

	out, err := f.svc.Save(context.Background(), SaveInput{
		Number:     "A-78",
		IssuedAt:   day(10),
		Amount:     dec("200"),
		InvoiceIDs: []int64{999, 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, out.Check.InvoiceIDs)
	assert.Equal(t, []int64{1}, f.checks.checks[out.Check.ID].InvoiceIDs)
	require.Len(t, out.Result.Allocations, 1)
	assert.Equal(t, int64(1), out.Result.Allocations[0].InvoiceID)
	assert.True(t, dec("200").Equal(out.Result.Allocations[0].Amount))
	assert.Equal(t, ledger.StatusPartiallyPaid, f.invoices.invoices[1].Status)
}

func TestServiceSaveUnknownIDIsNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Save(context.Background(), SaveInput{ID: 42, Number: "X", IssuedAt: day(1), Amount: dec("1")})
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, f.checks.checks)
}

func TestServiceSaveRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Save(context.Background(), SaveInput{Number: "X", IssuedAt: day(1), Amount: dec("0")})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceDeleteUnwinds(t *testing.T) {
	f := newFixture(inv(1, "300", day(1)))
	ctx := context.Background()
	saved, err := f.svc.Save(ctx, SaveInput{Number: "D", IssuedAt: day(2), Amount: dec("300"), InvoiceIDs: []int64{1}})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusPaid, f.invoices.invoices[1].Status)

	res, err := f.svc.Delete(ctx, saved.Check.ID)
	require.NoError(t, err)

	assert.Len(t, res.Changed, 1)
	assert.Equal(t, ledger.StatusUnpaid, f.invoices.invoices[1].Status)
	assert.Empty(t, f.invoices.invoices[1].CheckNumber)
	assert.Empty(t, f.checks.checks)

	_, err = f.svc.Delete(ctx, saved.Check.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestHandlerCreateAndEdit(t *testing.T) {
	f := newFixture(inv(1, "300", day(1)))
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc).MountRoutes(r)

	body := `{"number":"H-1","issued_at":"2024-01-02T00:00:00Z","amount":"100","invoice_ids":[1]}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"unallocated":"0"`)

	body = `{"number":"H-1","issued_at":"2024-01-02T00:00:00Z","amount":"400","invoice_ids":[1]}`
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/1", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"unallocated":"100"`)
	assert.Equal(t, ledger.StatusPaid, f.invoices.invoices[1].Status)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"5"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
