package stripewebhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdempotencyStore struct {
	keys   map[string]bool
	setErr error
}

func (f *fakeIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	if f.keys[key] {
		return "1", nil
	}
	return "", errors.New("redis: nil")
}

func (f *fakeIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "fm:idempotency:" + scope + ":" + id
}

func TestIdempotencyGuardCheckAndMark(t *testing.T) {
	guard, err := NewIdempotencyGuard(&fakeIdempotencyStore{}, time.Hour, "stripe-webhook")
	require.NoError(t, err)

	duplicate, err := guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.False(t, duplicate)

	duplicate, err = guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.True(t, duplicate)
}

func TestIdempotencyGuardDeleteAllowsRetry(t *testing.T) {
	store := &fakeIdempotencyStore{}
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe-webhook")
	require.NoError(t, err)

	_, err = guard.CheckAndMark(context.Background(), "evt_2")
	require.NoError(t, err)
	require.NoError(t, guard.Delete(context.Background(), "evt_2"))

	duplicate, err := guard.CheckAndMark(context.Background(), "evt_2")
	require.NoError(t, err)
	assert.False(t, duplicate)
}

func TestIdempotencyGuardStoreError(t *testing.T) {
	guard, err := NewIdempotencyGuard(&fakeIdempotencyStore{setErr: errors.New("redis down")}, time.Hour, "stripe-webhook")
	require.NoError(t, err)

	_, err = guard.CheckAndMark(context.Background(), "evt_3")
	assert.Error(t, err)
}

func TestNewIdempotencyGuardValidation(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Hour, "stripe-webhook")
	assert.Error(t, err)

	_, err = NewIdempotencyGuard(&fakeIdempotencyStore{}, time.Hour, "")
	assert.Error(t, err)

	_, err = NewIdempotencyGuard(&fakeIdempotencyStore{}, -time.Second, "stripe-webhook")
	assert.Error(t, err)
}
