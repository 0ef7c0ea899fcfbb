package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/furima-app/furima-backend/pkg/db/models"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/logger"
	"github.com/furima-app/furima-backend/pkg/redis"
)

const displayNameScope = "display-name"

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type displayCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(scope, id string) string
}

// Service resolves buyer display metadata with a read-through TTL cache so
// checkout does not hammer the users table on every request.
type Service struct {
	repo  userLoader
	cache displayCache
	ttl   time.Duration
	logg  *logger.Logger
}

// NewService builds the users read service. cache may be nil; lookups then
// always hit the database.
func NewService(repo userLoader, cache displayCache, ttl time.Duration, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	if ttl < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cache ttl must be non-negative")
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, logg: logg}, nil
}

// DisplayName resolves the user's display name, serving from cache when warm.
// Cache failures degrade to a database read rather than failing checkout.
func (s *Service) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var key string
	if s.cache != nil {
		key = s.cache.CacheKey(displayNameScope, userID.String())
		cached, err := s.cache.Get(ctx, key)
		if err == nil && cached != "" {
			return cached, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) && s.logg != nil {
			s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "display name cache read failed")
		}
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, user.DisplayName, s.ttl); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "display name cache write failed")
		}
	}
	return user.DisplayName, nil
}
