package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/furima-app/furima-backend/internal/products"
	"github.com/furima-app/furima-backend/pkg/db/models"
	"github.com/furima-app/furima-backend/pkg/enums"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  price INTEGER NOT NULL,
  images TEXT NOT NULL DEFAULT '{}',
  category TEXT NOT NULL,
  condition TEXT NOT NULL DEFAULT 'good',
  status TEXT NOT NULL DEFAULT 'available',
  shipping_payer TEXT NOT NULL DEFAULT 'seller',
  reserved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, status enums.ProductStatus, reservedAt *time.Time) uuid.UUID {
	t.Helper()

	product := &models.Product{
		ID:         uuid.New(),
		SellerID:   uuid.New(),
		Title:      "Vintage camera",
		Price:      4500,
		Category:   "electronics",
		Condition:  enums.ProductConditionGood,
		Status:     status,
		ReservedAt: reservedAt,
	}
	require.NoError(t, db.Create(product).Error)
	return product.ID
}

func newInventoryService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()

	svc, err := NewService(db, products.NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestCheckAvailability(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	available := seedProduct(t, db, enums.ProductStatusAvailable, nil)
	sold := seedProduct(t, db, enums.ProductStatusSold, nil)
	now := time.Now()
	reserved := seedProduct(t, db, enums.ProductStatusReserved, &now)
	missing := uuid.New()

	unavailable, err := svc.CheckAvailability(ctx, []uuid.UUID{available, sold, reserved, missing})
	require.NoError(t, err)
	require.Len(t, unavailable, 3)

	reasons := map[uuid.UUID]enums.UnavailabilityReason{}
	for _, entry := range unavailable {
		reasons[entry.ProductID] = entry.Reason
	}
	assert.Equal(t, enums.UnavailabilityReasonSold, reasons[sold])
	assert.Equal(t, enums.UnavailabilityReasonReserved, reasons[reserved])
	assert.Equal(t, enums.UnavailabilityReasonNotFound, reasons[missing])
	assert.NotContains(t, reasons, available)
}

func TestCheckAvailability_EmptyAndClean(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	unavailable, err := svc.CheckAvailability(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, unavailable)

	clean := seedProduct(t, db, enums.ProductStatusAvailable, nil)
	unavailable, err = svc.CheckAvailability(ctx, []uuid.UUID{clean})
	require.NoError(t, err)
	assert.Empty(t, unavailable)
}

func TestReserve(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	first := seedProduct(t, db, enums.ProductStatusAvailable, nil)
	second := seedProduct(t, db, enums.ProductStatusAvailable, nil)

	now := time.Now()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(ctx, tx, []uuid.UUID{first, second}, now)
	}))

	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", first).Error)
	assert.Equal(t, enums.ProductStatusReserved, got.Status)
	require.NotNil(t, got.ReservedAt)
}

func TestReserve_LostRaceRollsBack(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	open := seedProduct(t, db, enums.ProductStatusAvailable, nil)
	now := time.Now()
	taken := seedProduct(t, db, enums.ProductStatusReserved, &now)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(ctx, tx, []uuid.UUID{open, taken}, now)
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// the partial reservation must not survive the rollback
	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", open).Error)
	assert.Equal(t, enums.ProductStatusAvailable, got.Status)
}

func TestReserve_ConflictDetailReadsThroughTx(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	listing := seedProduct(t, db, enums.ProductStatusAvailable, nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		// Uncommitted inside this tx; only a tx-bound read can see it.
		if err := tx.Model(&models.Product{}).
			Where("id = ?", listing).
			Update("status", enums.ProductStatusSold).Error; err != nil {
			return err
		}
		return svc.Reserve(ctx, tx, []uuid.UUID{listing}, time.Now())
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	unavailable, ok := details["unavailableProducts"].([]Unavailable)
	require.True(t, ok)
	require.Len(t, unavailable, 1)
	assert.Equal(t, listing, unavailable[0].ProductID)
	assert.Equal(t, enums.UnavailabilityReasonSold, unavailable[0].Reason)
}

func TestReleaseAndFinalize(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	now := time.Now()
	toRelease := seedProduct(t, db, enums.ProductStatusReserved, &now)
	toFinalize := seedProduct(t, db, enums.ProductStatusReserved, &now)
	untouched := seedProduct(t, db, enums.ProductStatusAvailable, nil)

	require.NoError(t, svc.Release(ctx, db, []uuid.UUID{toRelease, untouched}))
	require.NoError(t, svc.Finalize(ctx, db, []uuid.UUID{toFinalize, untouched}))

	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", toRelease).Error)
	assert.Equal(t, enums.ProductStatusAvailable, got.Status)
	assert.Nil(t, got.ReservedAt)

	got = models.Product{}
	require.NoError(t, db.First(&got, "id = ?", toFinalize).Error)
	assert.Equal(t, enums.ProductStatusSold, got.Status)

	// available listings are never finalized or re-released
	got = models.Product{}
	require.NoError(t, db.First(&got, "id = ?", untouched).Error)
	assert.Equal(t, enums.ProductStatusAvailable, got.Status)
}

func TestReleaseExpired(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryService(t, db)
	ctx := context.Background()

	stale := time.Now().Add(-time.Hour)
	fresh := time.Now()
	expired := seedProduct(t, db, enums.ProductStatusReserved, &stale)
	active := seedProduct(t, db, enums.ProductStatusReserved, &fresh)

	released, err := svc.ReleaseExpired(ctx, nil, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, expired, released[0])

	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", expired).Error)
	assert.Equal(t, enums.ProductStatusAvailable, got.Status)

	got = models.Product{}
	require.NoError(t, db.First(&got, "id = ?", active).Error)
	assert.Equal(t, enums.ProductStatusReserved, got.Status)
}
