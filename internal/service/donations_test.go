package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hingecraft/internal/adapter/repo"
	"hingecraft/internal/domain"
	"hingecraft/internal/infra"
)

func newTestService(t *testing.T) *DonationService {
	t.Helper()
	db, err := infra.OpenSQLite(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	r := repo.NewDonationGormRepository(db, 5*time.Second)
	require.NoError(t, r.EnsureSchema(context.Background()))
	return NewDonationService(r, zerolog.Nop())
}

// steppingClock returns strictly increasing timestamps.
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func strPtr(s string) *string { return &s }

func TestDonationService_CreateAppliesDefaults(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), domain.CreateDonationInput{
		Amount: decimal.RequireFromString("25.00"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "USD", created.Currency)
	assert.Equal(t, domain.DefaultSource, created.Source)
	assert.Equal(t, domain.PaymentStatusCompleted, created.PaymentStatus)
	assert.False(t, created.IsOtherAmount)
	assert.Nil(t, created.Metadata)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
}

func TestDonationService_CreateThenGetRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, amount := range []string{"0.01", "1", "25.00", "99999.99"} {
		created, err := svc.Create(ctx, domain.CreateDonationInput{
			Amount:        decimal.RequireFromString(amount),
			Currency:      "eur",
			IsOtherAmount: true,
		})
		require.NoError(t, err, "amount %s", amount)

		got, err := svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(decimal.RequireFromString(amount)), "amount %s round-tripped as %s", amount, got.Amount)
		assert.Equal(t, "EUR", got.Currency)
		assert.True(t, got.IsOtherAmount)

		again, err := svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, got, again, "repeated reads return identical data")
	}
}

func TestDonationService_CreateRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, amount := range []string{"0", "0.00", "-1", "-25.50"} {
		_, err := svc.Create(ctx, domain.CreateDonationInput{Amount: decimal.RequireFromString(amount)})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation, "amount %s", amount)
	}

	page, err := svc.ListAll(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total, "no record may be persisted")
}

func TestDonationService_CreateRejectsUnknownCurrency(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateDonationInput{
		Amount:   decimal.NewFromInt(5),
		Currency: "DOLLARS",
	})
	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "currency", vErr.Field)
}

func TestDonationService_CreateAcceptsNonISOCurrencyCode(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), domain.CreateDonationInput{
		Amount:   decimal.RequireFromString("0.005"),
		Currency: "btc",
	})
	require.NoError(t, err)
	assert.Equal(t, "BTC", created.Currency)

	_, err = svc.Create(context.Background(), domain.CreateDonationInput{
		Amount:   decimal.NewFromInt(1),
		Currency: "US$",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDonationService_CreateRejectsOutOfRangeAmounts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, amount := range []string{
		"1e1000000000",
		"1e-1000000000",
		"1e13",
		"1000000000000",
		"0.000000001",
		"1.123456789",
		"123456789012345678901234567890123456789012345678901234567890",
	} {
		start := time.Now()
		_, err := svc.Create(ctx, domain.CreateDonationInput{Amount: decimal.RequireFromString(amount)})
		assert.ErrorIs(t, err, domain.ErrValidation, "amount %s", amount)
		assert.Less(t, time.Since(start), time.Second, "amount %s", amount)
	}

	page, err := svc.ListAll(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total, "no record may be persisted")
}

func TestDonationService_CreateAcceptsAmountsAtColumnBounds(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, amount := range []string{"999999999999.99999999", "0.00000001", "25.000000000", "1.5e3"} {
		created, err := svc.Create(ctx, domain.CreateDonationInput{Amount: decimal.RequireFromString(amount)})
		require.NoError(t, err, "amount %s", amount)

		got, err := svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(decimal.RequireFromString(amount)), "amount %s stored as %s", amount, got.Amount)
	}
}

func TestDonationService_CreateSurfacesIDCollision(t *testing.T) {
	svc := newTestService(t)
	svc.newID = func() string { return "fixed-id" }
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateDonationInput{Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateDonationInput{Amount: decimal.NewFromInt(2)})
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)
}

func TestDonationService_UpdateOnlyTouchesWhitelistedFields(t *testing.T) {
	svc := newTestService(t)
	svc.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateDonationInput{
		Amount:        decimal.RequireFromString("25.00"),
		PaymentMethod: strPtr("card"),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, domain.DonationPatch{
		PaymentStatus: domain.Some(strPtr(domain.PaymentStatusRefunded)),
		Metadata:      domain.Some(domain.Metadata{"receipt": "confirmed"}),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, updated.PaymentStatus)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(created.Amount), "amount is immutable")
	assert.Equal(t, created.Currency, got.Currency)
	assert.Equal(t, "card", *got.PaymentMethod)
	assert.Equal(t, domain.Metadata{"receipt": "confirmed"}, got.Metadata)
}

func TestDonationService_EmptyPatchIsNoOp(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateDonationInput{Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	same, err := svc.Update(ctx, created.ID, domain.DonationPatch{})
	require.NoError(t, err)
	assert.Equal(t, created.PaymentStatus, same.PaymentStatus)
	assert.True(t, same.UpdatedAt.Equal(created.UpdatedAt), "no-op must not refresh updated_at")

	_, err = svc.Update(ctx, "missing", domain.DonationPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDonationService_UpdateRejectsEmptyPaymentStatus(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Update(context.Background(), "any", domain.DonationPatch{
		PaymentStatus: domain.Some[*string](nil),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Update(context.Background(), "any", domain.DonationPatch{
		PaymentStatus: domain.Some(strPtr("  ")),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDonationService_UpdateMissingIsNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Update(context.Background(), "missing", domain.DonationPatch{
		PaymentStatus: domain.Some(strPtr("failed")),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDonationService_GetLatest(t *testing.T) {
	svc := newTestService(t)
	svc.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.GetLatest(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Create(ctx, domain.CreateDonationInput{Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	second, err := svc.Create(ctx, domain.CreateDonationInput{Amount: decimal.NewFromInt(2)})
	require.NoError(t, err)

	latest, err := svc.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestDonationService_ListAllNewestFirst(t *testing.T) {
	svc := newTestService(t)
	svc.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	var ids []string
	for i := 1; i <= 5; i++ {
		d, err := svc.Create(ctx, domain.CreateDonationInput{Amount: decimal.NewFromInt(int64(i))})
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}

	page, err := svc.ListAll(ctx, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Limit)
	assert.Equal(t, 0, page.Offset)
	require.Len(t, page.Donations, 3)
	for i, d := range page.Donations {
		assert.Equal(t, ids[len(ids)-1-i], d.ID, "position %d", i)
	}

	_, err = svc.ListAll(ctx, -1, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	tooLarge := int64(math.MaxInt32) + 1
	_, err = svc.ListAll(ctx, int(tooLarge), 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.ListAll(ctx, 1, int(tooLarge))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDonationService_Export(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, domain.CreateDonationInput{Amount: decimal.NewFromInt(int64(i + 1))})
		require.NoError(t, err)
	}

	snap, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.TotalDonations)
	assert.Len(t, snap.Donations, 3)
	assert.False(t, snap.Timestamp.IsZero())
}

type brokenRepo struct {
	domain.DonationRepository
	err error
}

func (b brokenRepo) Ping(context.Context) (time.Time, error) { return time.Time{}, b.err }

func TestDonationService_HealthNeverFails(t *testing.T) {
	svc := newTestService(t)

	report := svc.Health(context.Background())
	assert.True(t, report.Healthy())
	assert.Equal(t, DatabaseConnected, report.Database)

	cause := fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
	broken := NewDonationService(brokenRepo{err: cause}, zerolog.Nop())
	report = broken.Health(context.Background())
	assert.False(t, report.Healthy())
	assert.Equal(t, HealthUnhealthy, report.Status)
	assert.Equal(t, DatabaseDisconnected, report.Database)
	assert.Contains(t, report.Error, "connection refused")
}
