package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/repository"
	"github.com/smallbiznis/invoicer/internal/lineitem"
	"github.com/smallbiznis/invoicer/internal/numbering"
	"github.com/smallbiznis/invoicer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type auditRecorder struct {
	mock.Mock
}

func (a *auditRecorder) Record(ctx context.Context, action, targetType, targetID string, metadata map[string]any) error {
	args := a.Called(ctx, action, targetType, targetID, metadata)
	return args.Error(0)
}

func (a *auditRecorder) List(ctx context.Context, req auditdomain.ListAuditLogRequest) ([]auditdomain.AuditLog, error) {
	args := a.Called(ctx, req)
	return nil, args.Error(1)
}

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
}

func setup(t *testing.T, audit auditdomain.Service) fixture {
	t.Helper()

	db := testutil.NewDB(t, &domain.Invoice{}, &domain.InvoiceItem{})
	clk := clock.NewFakeClock(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    testutil.NewNode(t),
		Clock:    clk,
		Repo:     repository.Provide(),
		Numbers:  numbering.NewAllocator(nil, zap.NewNop()),
		Defaults: config.NewStaticDocumentDefaults(config.DefaultDocumentDefaults()),
		Audit:    audit,
	})
	return fixture{svc: svc, db: db, clock: clk}
}

func item(description string, quantity int64, rate string) lineitem.Item {
	return lineitem.Item{Description: description, Quantity: quantity, Rate: decimal.RequireFromString(rate)}
}

func sampleInput() domain.InvoiceInput {
	return domain.InvoiceInput{
		Date:          time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
		ClientName:    "Acme Corp",
		ClientContact: "billing@acme.test",
		ClientAddress: "1 Main St",
		Items: []lineitem.Item{
			item("Design", 2, "500"),
			item("Hosting", 3, "12.50"),
		},
		Advance:            decimal.RequireFromString("300"),
		PaymentTerms:       "Net 15",
		TermsAndConditions: "No refunds",
		BankAccountDetails: "ACME BANK 0001",
	}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestCreateAndGet(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, created.ID.String())
	require.NoError(t, err)

	assert.Equal(t, "0001", got.InvoiceNumber)
	assert.Equal(t, "Acme Corp", got.ClientName)
	assert.True(t, got.Date.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)), "date %s", got.Date)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("1037.50")), "total %s", got.Total)
	assert.True(t, got.Advance.Equal(decimal.RequireFromString("300")))
	assert.True(t, got.RemainingBalance.Equal(decimal.RequireFromString("737.50")))
	assert.Equal(t, "Net 15", got.PaymentTerms)
	assert.Equal(t, "ACME BANK 0001", got.BankAccountDetails)

	require.Len(t, got.Items, 2)
	assert.Equal(t, "Design", got.Items[0].Description)
	assert.True(t, got.Items[0].Amount.Equal(decimal.RequireFromString("1000")))
	assert.Equal(t, "Hosting", got.Items[1].Description)
	assert.True(t, got.Items[1].Amount.Equal(decimal.RequireFromString("37.50")))
	assert.Equal(t, created.ID, got.Items[1].InvoiceID)
}

func TestCreateAllocatesSequentialNumbers(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, sampleInput())
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	assert.Equal(t, "0001", first.InvoiceNumber)
	assert.Equal(t, "0002", second.InvoiceNumber)

	next, err := f.svc.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0003", next)
}

func TestNextNumberSkipsNonNumeric(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	for _, number := range []string{"0004", "abc", "0006"} {
		input := sampleInput()
		input.InvoiceNumber = number
		_, err := f.svc.Create(ctx, input)
		require.NoError(t, err)
	}

	next, err := f.svc.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0007", next)
}

func TestCreateDuplicateNumber(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	input := sampleInput()
	input.InvoiceNumber = "0042"
	_, err := f.svc.Create(ctx, input)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, input)
	assert.ErrorIs(t, err, domain.ErrDuplicateNumber)
	assert.EqualValues(t, 1, countRows(t, f.db, &domain.Invoice{}))
	assert.EqualValues(t, 2, countRows(t, f.db, &domain.InvoiceItem{}))
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.InvoiceInput)
		want   error
	}{
		{
			name:   "blank client",
			mutate: func(in *domain.InvoiceInput) { in.ClientName = "   " },
			want:   domain.ErrInvalidClientName,
		},
		{
			name:   "no items",
			mutate: func(in *domain.InvoiceInput) { in.Items = nil },
			want:   lineitem.ErrNoItems,
		},
		{
			name:   "zero quantity",
			mutate: func(in *domain.InvoiceInput) { in.Items[0].Quantity = 0 },
			want:   lineitem.ErrInvalidQuantity,
		},
		{
			name:   "negative rate",
			mutate: func(in *domain.InvoiceInput) { in.Items[0].Rate = decimal.RequireFromString("-1") },
			want:   lineitem.ErrInvalidRate,
		},
		{
			name:   "rate finer than a cent",
			mutate: func(in *domain.InvoiceInput) { in.Items[0].Rate = decimal.RequireFromString("0.125") },
			want:   lineitem.ErrInvalidRate,
		},
		{
			name:   "advance above total",
			mutate: func(in *domain.InvoiceInput) { in.Advance = decimal.RequireFromString("5000") },
			want:   lineitem.ErrInvalidAdvance,
		},
		{
			name:   "number too long",
			mutate: func(in *domain.InvoiceInput) { in.InvoiceNumber = "INV-0000000000000000000000000000001" },
			want:   domain.ErrInvalidNumber,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, nil)
			input := sampleInput()
			tt.mutate(&input)

			_, err := f.svc.Create(context.Background(), input)

			assert.ErrorIs(t, err, tt.want)
			assert.EqualValues(t, 0, countRows(t, f.db, &domain.Invoice{}))
		})
	}
}

func TestCreateRollsBackWhenItemsFail(t *testing.T) {
	f := setup(t, nil)
	testutil.FailInserts(t, f.db, "invoice_items")

	_, err := f.svc.Create(context.Background(), sampleInput())

	require.Error(t, err)
	assert.EqualValues(t, 0, countRows(t, f.db, &domain.Invoice{}))
}

func TestUpdateReplacesItems(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	input := sampleInput()
	input.InvoiceNumber = created.InvoiceNumber
	input.ClientName = "Acme Holdings"
	input.Items = []lineitem.Item{item("Retainer", 1, "250")}
	input.Advance = decimal.Zero

	updated, err := f.svc.Update(ctx, created.ID.String(), input)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Acme Holdings", updated.ClientName)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("250")))
	assert.True(t, updated.RemainingBalance.Equal(decimal.RequireFromString("250")))
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "Retainer", updated.Items[0].Description)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.EqualValues(t, 1, countRows(t, f.db, &domain.InvoiceItem{}))
}

func TestUpdateErrors(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	t.Run("number required", func(t *testing.T) {
		_, err := f.svc.Update(ctx, created.ID.String(), sampleInput())
		assert.ErrorIs(t, err, domain.ErrInvalidNumber)
	})

	t.Run("unknown id", func(t *testing.T) {
		input := sampleInput()
		input.InvoiceNumber = "0099"
		_, err := f.svc.Update(ctx, "123456789", input)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		input := sampleInput()
		input.InvoiceNumber = "0099"
		_, err := f.svc.Update(ctx, "not-an-id", input)
		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("number taken", func(t *testing.T) {
		other := sampleInput()
		other.InvoiceNumber = "0500"
		_, err := f.svc.Create(ctx, other)
		require.NoError(t, err)

		input := sampleInput()
		input.InvoiceNumber = "0500"
		_, err = f.svc.Update(ctx, created.ID.String(), input)
		assert.ErrorIs(t, err, domain.ErrDuplicateNumber)

		got, err := f.svc.Get(ctx, created.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "0001", got.InvoiceNumber)
		assert.Len(t, got.Items, 2)
	})
}

func TestDelete(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, created.ID.String()))

	_, err = f.svc.Get(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualValues(t, 0, countRows(t, f.db, &domain.InvoiceItem{}))

	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID.String()), domain.ErrNotFound)
}

func TestListNewestFirstAndSearch(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	for _, name := range []string{"Acme Corp", "Globex", "Initech"} {
		input := sampleInput()
		input.ClientName = name
		_, err := f.svc.Create(ctx, input)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	all, err := f.svc.List(ctx, domain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Initech", all[0].ClientName)
	assert.Equal(t, "Acme Corp", all[2].ClientName)
	assert.Len(t, all[0].Items, 2)

	found, err := f.svc.List(ctx, domain.ListInvoiceRequest{Query: "glob"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Globex", found[0].ClientName)

	byNumber, err := f.svc.List(ctx, domain.ListInvoiceRequest{Query: "0003"})
	require.NoError(t, err)
	require.Len(t, byNumber, 1)
	assert.Equal(t, "Initech", byNumber[0].ClientName)
}

func TestDraft(t *testing.T) {
	f := setup(t, nil)

	draft, err := f.svc.Draft(context.Background())
	require.NoError(t, err)

	defaults := config.DefaultDocumentDefaults()
	assert.Equal(t, "0001", draft.InvoiceNumber)
	assert.True(t, draft.Date.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, defaults.PaymentTerms, draft.PaymentTerms)
	assert.Equal(t, defaults.BankAccountDetails, draft.BankAccountDetails)
	require.Len(t, draft.Items, 1)
	assert.EqualValues(t, 1, draft.Items[0].Quantity)
	assert.True(t, draft.Total.IsZero())
	assert.True(t, draft.RemainingBalance.IsZero())
	assert.Zero(t, draft.ID)
	assert.EqualValues(t, 0, countRows(t, f.db, &domain.Invoice{}))
}

func TestAuditEmittedAfterCommit(t *testing.T) {
	audit := &auditRecorder{}
	audit.On("Record", mock.Anything, "invoice.created", "invoice", mock.AnythingOfType("string"), mock.MatchedBy(func(meta map[string]any) bool {
		return meta["invoice_number"] == "0001" && meta["total"] == "1037.50"
	})).Return(nil).Once()

	f := setup(t, audit)
	_, err := f.svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)

	audit.AssertExpectations(t)
}

func TestAuditSkippedOnFailure(t *testing.T) {
	audit := &auditRecorder{}
	f := setup(t, audit)

	input := sampleInput()
	input.ClientName = ""
	_, err := f.svc.Create(context.Background(), input)
	require.Error(t, err)

	audit.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
