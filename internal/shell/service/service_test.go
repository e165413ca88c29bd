package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/artpar/muster/internal/core/domain"
	"github.com/artpar/muster/internal/shell/store"
)

// =============================================================================
// Test Helpers
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type published struct {
	topic   string
	payload any
}

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (r *recorder) Publish(_ context.Context, topic string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{topic: topic, payload: payload})
	return r.err
}

func (r *recorder) all() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]published(nil), r.events...)
}

// staleStore hands out deployments one version behind, so every
// compare-and-swap inside a transaction loses.
type staleStore struct {
	store.Store
}

func (s staleStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return s.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(staleStore{tx})
	})
}

func (s staleStore) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	d, err := s.Store.GetDeployment(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Version--
	return d, nil
}

// failingStore fails every template update.
type failingStore struct {
	store.Store
}

var errDiskFull = errors.New("disk full")

func (s failingStore) UpdateTemplate(context.Context, *domain.Template) error {
	return errDiskFull
}
