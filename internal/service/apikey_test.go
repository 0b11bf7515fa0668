package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soragemix/soragemix/internal/repository"
)

type fakeConfigStore struct {
	values map[string]string
	getErr error
	gets   int
}

func (f *fakeConfigStore) Get(ctx context.Context, key string) (string, error) {
	f.gets++
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", repository.ErrConfigNotFound
	}
	return v, nil
}

func (f *fakeConfigStore) Set(ctx context.Context, key, value string) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	return nil
}

func TestAPIKeyStoredValueWinsOverEnv(t *testing.T) {
	store := &fakeConfigStore{values: map[string]string{"nano_api_key": "db-key"}}
	svc := NewAPIKeyService(store, "env-key")

	key, err := svc.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "db-key", key)
}

func TestAPIKeyFallsBackToEnv(t *testing.T) {
	svc := NewAPIKeyService(&fakeConfigStore{}, "env-key")

	key, err := svc.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
}

func TestAPIKeyMissingEverywhere(t *testing.T) {
	svc := NewAPIKeyService(&fakeConfigStore{}, "")

	_, err := svc.APIKey(context.Background())
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
	assert.False(t, svc.Configured(context.Background()))
}

func TestAPIKeyCachedUntilInvalidated(t *testing.T) {
	store := &fakeConfigStore{values: map[string]string{"nano_api_key": "first"}}
	svc := NewAPIKeyService(store, "")

	key, err := svc.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", key)

	// A second read inside the TTL does not hit the store again.
	_, err = svc.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.gets)

	require.NoError(t, svc.Update(context.Background(), "second"))
	key, err = svc.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", key)
	assert.Equal(t, 2, store.gets)
}

func TestAPIKeyEnvFallbackOnStoreFailure(t *testing.T) {
	store := &fakeConfigStore{getErr: errors.New("connection refused")}
	svc := NewAPIKeyService(store, "env-key")

	key, err := svc.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
}
