package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t, &domain.Company{})
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
	})
	return svc, db
}

func TestGetWithoutCompany(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertKeepsSingleRow(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	first, err := svc.Upsert(ctx, domain.UpsertCompanyRequest{
		Name:    "Smallbiznis Studio",
		Address: "Jl. Sudirman 1",
		Email:   "hello@smallbiznis.test",
	})
	require.NoError(t, err)
	require.NotNil(t, first.Email)
	assert.Nil(t, first.Phone)

	second, err := svc.Upsert(ctx, domain.UpsertCompanyRequest{
		Name:  "Smallbiznis Studio Ltd",
		Phone: "+62 21 555",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Smallbiznis Studio Ltd", got.Name)
	require.NotNil(t, got.Phone)
	assert.Equal(t, "+62 21 555", *got.Phone)
	assert.Nil(t, got.Email)

	var count int64
	require.NoError(t, db.Model(&domain.Company{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, domain.UpsertCompanyRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Upsert(ctx, domain.UpsertCompanyRequest{Name: "Acme", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, domain.UpsertCompanyRequest{}))
	_, err := svc.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Seed(ctx, domain.UpsertCompanyRequest{Name: "Seeded"}))
	require.NoError(t, svc.Seed(ctx, domain.UpsertCompanyRequest{Name: "Ignored"}))

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Seeded", got.Name)
}
