package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/furima-app/furima-backend/internal/products"
	"github.com/furima-app/furima-backend/pkg/db/models"
	"github.com/furima-app/furima-backend/pkg/enums"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
)

// Unavailable describes one product that failed the availability gate.
type Unavailable struct {
	ProductID uuid.UUID                  `json:"productId"`
	Reason    enums.UnavailabilityReason `json:"reason"`
}

// Service guards single-quantity listings against double-selling. Status
// transitions are conditional updates so two concurrent checkouts can never
// both reserve the same listing.
type Service struct {
	db          *gorm.DB
	productRepo products.Repository
}

// NewService builds the inventory gate.
func NewService(db *gorm.DB, productRepo products.Repository) (*Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db required")
	}
	if productRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	return &Service{db: db, productRepo: productRepo}, nil
}

// CheckAvailability reports every offending product, not just the first, so
// the client can fix the whole cart in one round trip. An empty slice means
// the cart passes.
func (s *Service) CheckAvailability(ctx context.Context, ids []uuid.UUID) ([]Unavailable, error) {
	return checkAvailability(ctx, s.productRepo, ids)
}

func checkAvailability(ctx context.Context, repo products.Repository, ids []uuid.UUID) ([]Unavailable, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, product := range found {
		byID[product.ID] = product
	}

	var unavailable []Unavailable
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		product, ok := byID[id]
		if !ok {
			unavailable = append(unavailable, Unavailable{ProductID: id, Reason: enums.UnavailabilityReasonNotFound})
			continue
		}
		switch product.Status {
		case enums.ProductStatusSold:
			unavailable = append(unavailable, Unavailable{ProductID: id, Reason: enums.UnavailabilityReasonSold})
		case enums.ProductStatusReserved:
			unavailable = append(unavailable, Unavailable{ProductID: id, Reason: enums.UnavailabilityReasonReserved})
		}
	}
	return unavailable, nil
}

// Reserve flips every listing from available to reserved inside tx. When any
// listing lost the race the whole reservation fails with the offending list
// attached, and the caller rolls back.
func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, now time.Time) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no products to reserve")
	}

	result := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ? AND status = ?", ids, enums.ProductStatusAvailable).
		Updates(map[string]any{
			"status":      enums.ProductStatusReserved,
			"reserved_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == int64(len(ids)) {
		return nil
	}

	// Re-read through the same tx, otherwise the offending list reflects
	// whatever the base handle sees rather than the state the conditional
	// update just lost to.
	unavailable, err := checkAvailability(ctx, s.productRepo.WithTx(tx), ids)
	if err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "products unavailable").
		WithDetails(map[string]any{"unavailableProducts": unavailable})
}

// Release returns reserved listings to the available pool, used when a
// checkout fails downstream or a reservation times out.
func (s *Service) Release(ctx context.Context, db *gorm.DB, ids []uuid.UUID) error {
	if db == nil {
		db = s.db
	}
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ? AND status = ?", ids, enums.ProductStatusReserved).
		Updates(map[string]any{
			"status":      enums.ProductStatusAvailable,
			"reserved_at": nil,
		}).Error
}

// Finalize marks reserved listings as sold once payment is confirmed.
func (s *Service) Finalize(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	if tx == nil {
		tx = s.db
	}
	if len(ids) == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ? AND status = ?", ids, enums.ProductStatusReserved).
		Updates(map[string]any{
			"status":      enums.ProductStatusSold,
			"reserved_at": nil,
		}).Error
}

// ReleaseExpired releases reservations older than cutoff and returns the
// affected product ids so the caller can emit a release event.
func (s *Service) ReleaseExpired(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]uuid.UUID, error) {
	if tx == nil {
		tx = s.db
	}
	var expired []models.Product
	err := tx.WithContext(ctx).
		Select("id").
		Where("status = ? AND reserved_at IS NOT NULL AND reserved_at < ?", enums.ProductStatusReserved, cutoff).
		Find(&expired).Error
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(expired))
	for i, product := range expired {
		ids[i] = product.ID
	}
	if err := s.Release(ctx, tx, ids); err != nil {
		return nil, err
	}
	return ids, nil
}
