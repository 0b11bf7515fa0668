// Package service holds the application services that sit between the
// HTTP handlers and the repositories: the generation pipeline, the
// runtime API key lookup and the event publisher.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/soragemix/soragemix/internal/model"
	"github.com/soragemix/soragemix/internal/repository"
)

// apiKeyTTL is how long a DB-loaded API key is reused before being
// re-read. Admin updates call Invalidate so rotation takes effect
// immediately on the node that handled the update; other nodes converge
// within the TTL.
const apiKeyTTL = 5 * time.Minute

// configStore is the slice of ConfigRepo the key service needs.
type configStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// APIKeyService resolves the Gemini API key: the admin-stored value in
// system_config wins, the environment variable is the fallback.
type APIKeyService struct {
	store    configStore
	envKey   string
	mu       sync.Mutex
	cached   string
	cachedAt time.Time
}

func NewAPIKeyService(store configStore, envKey string) *APIKeyService {
	return &APIKeyService{store: store, envKey: envKey}
}

// APIKey returns the key to use for the next upstream call, or
// ErrAPIKeyMissing when neither the DB nor the environment has one.
func (s *APIKeyService) APIKey(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != "" && time.Since(s.cachedAt) < apiKeyTTL {
		return s.cached, nil
	}
	v, err := s.store.Get(ctx, model.ConfigKeyAPIKey)
	switch {
	case err == nil && v != "":
		s.cached, s.cachedAt = v, time.Now()
		return v, nil
	case err != nil && err != repository.ErrConfigNotFound:
		// DB trouble; fall back to the env key if we have one.
	}
	if s.envKey != "" {
		return s.envKey, nil
	}
	if err != nil && err != repository.ErrConfigNotFound {
		return "", err
	}
	return "", ErrAPIKeyMissing
}

// Update stores a new key and drops the cached value.
func (s *APIKeyService) Update(ctx context.Context, key string) error {
	if err := s.store.Set(ctx, model.ConfigKeyAPIKey, key); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// Configured reports whether any key is available, without exposing it.
func (s *APIKeyService) Configured(ctx context.Context) bool {
	_, err := s.APIKey(ctx)
	return err == nil
}

// Invalidate drops the cached key so the next call re-reads the DB.
func (s *APIKeyService) Invalidate() {
	s.mu.Lock()
	s.cached, s.cachedAt = "", time.Time{}
	s.mu.Unlock()
}
