package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/furima-app/furima-backend/pkg/enums"
	"github.com/furima-app/furima-backend/pkg/logger"
	"github.com/furima-app/furima-backend/pkg/outbox"
	"github.com/furima-app/furima-backend/pkg/outbox/payloads"
)

const defaultReservationTTLMinutes = 30

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type expiredReservationReleaser interface {
	ReleaseExpired(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]uuid.UUID, error)
}

// ReservationReleaseJobParams configure the stale reservation scheduler.
type ReservationReleaseJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Inventory  expiredReservationReleaser
	Outbox     outboxEmitter
	TTLMinutes int
}

// NewReservationReleaseJob builds the job that returns products whose
// checkout never completed back to the available pool.
func NewReservationReleaseJob(params ReservationReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	ttl := params.TTLMinutes
	if ttl <= 0 {
		ttl = defaultReservationTTLMinutes
	}
	return &reservationReleaseJob{
		logg:       params.Logger,
		db:         params.DB,
		inventory:  params.Inventory,
		outbox:     params.Outbox,
		ttlMinutes: ttl,
		now:        time.Now,
	}, nil
}

type reservationReleaseJob struct {
	logg       *logger.Logger
	db         txRunner
	inventory  expiredReservationReleaser
	outbox     outboxEmitter
	ttlMinutes int
	now        func() time.Time
}

func (j *reservationReleaseJob) Name() string { return "reservation-release" }

func (j *reservationReleaseJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-time.Duration(j.ttlMinutes) * time.Minute)

	var released []uuid.UUID
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ids, err := j.inventory.ReleaseExpired(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		released = ids
		if len(ids) == 0 {
			return nil
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReservationReleased,
			AggregateType: enums.AggregateProduct,
			AggregateID:   ids[0],
			OccurredAt:    now,
			Data: payloads.ReservationReleasedEvent{
				ProductIDs: ids,
				Reason:     "reservation_expired",
				ReleasedAt: now,
			},
		})
	})
	if err != nil {
		return fmt.Errorf("release expired reservations: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"ttl_minutes":    j.ttlMinutes,
		"released_count": len(released),
	})
	j.logg.Info(logCtx, "reservation release complete")
	return nil
}
