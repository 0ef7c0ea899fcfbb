package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/furima-app/furima-backend/pkg/db/models"
	pkgerrors "github.com/furima-app/furima-backend/pkg/errors"
	"github.com/furima-app/furima-backend/pkg/pagination"
)

type fakeRepo struct {
	items      []models.Notification
	nextCursor *pagination.Cursor
	listErr    error
	markResult notificationMarkResult
	markErr    error
	markedAll  int64
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, notification *models.Notification) error { return nil }

func (f *fakeRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	if f.listErr != nil {
		return nil, nil, f.listErr
	}
	return f.items, f.nextCursor, nil
}

func (f *fakeRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	return f.markResult, f.markErr
}

func (f *fakeRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	return f.markedAll, nil
}

func (f *fakeRepo) DeleteReadOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	return 0, nil
}

func TestServiceListRequiresUser(t *testing.T) {
	svc, err := NewService(&fakeRepo{})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestServiceListEncodesCursor(t *testing.T) {
	next := &pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	svc, err := NewService(&fakeRepo{
		items:      []models.Notification{{ID: uuid.New()}},
		nextCursor: next,
	})
	require.NoError(t, err)

	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New()})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, pagination.EncodeCursor(*next), result.Cursor)
}

func TestServiceListRejectsBadCursor(t *testing.T) {
	svc, err := NewService(&fakeRepo{})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "%%%"})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestServiceMarkReadNotFound(t *testing.T) {
	svc, err := NewService(&fakeRepo{markResult: notificationMarkResult{Found: false}})
	require.NoError(t, err)

	err = svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestServiceMarkReadDependencyError(t *testing.T) {
	svc, err := NewService(&fakeRepo{markErr: errors.New("db down")})
	require.NoError(t, err)

	err = svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeDependency, appErr.Code())
}

func TestServiceMarkAllRead(t *testing.T) {
	svc, err := NewService(&fakeRepo{markedAll: 4})
	require.NoError(t, err)

	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}
