// ABOUTME: Store decorator that counts operation outcomes
// ABOUTME: Wraps any store.Store and reports each call to Metrics

package metrics

import (
	"context"

	"github.com/2389/races/internal/store"
)

// instrumentedStore reports every operation to Metrics before returning its result
type instrumentedStore struct {
	next    store.Store
	metrics *Metrics
}

// InstrumentStore wraps s so each operation is counted. A nil m returns s unchanged.
func InstrumentStore(s store.Store, m *Metrics) store.Store {
	if m == nil {
		return s
	}
	return &instrumentedStore{next: s, metrics: m}
}

func (s *instrumentedStore) List(ctx context.Context, scope store.Scope) ([]*store.Race, error) {
	races, err := s.next.List(ctx, scope)
	s.metrics.ObserveStore("list", err)
	return races, err
}

func (s *instrumentedStore) Get(ctx context.Context, id string) (*store.Race, error) {
	race, err := s.next.Get(ctx, id)
	s.metrics.ObserveStore("get", err)
	return race, err
}

func (s *instrumentedStore) Create(ctx context.Context, race *store.Race) error {
	err := s.next.Create(ctx, race)
	s.metrics.ObserveStore("create", err)
	return err
}

func (s *instrumentedStore) Update(ctx context.Context, id string, race *store.Race) error {
	err := s.next.Update(ctx, id, race)
	s.metrics.ObserveStore("update", err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, id string) error {
	err := s.next.Delete(ctx, id)
	s.metrics.ObserveStore("delete", err)
	return err
}

func (s *instrumentedStore) Archive(ctx context.Context, id string) error {
	err := s.next.Archive(ctx, id)
	s.metrics.ObserveStore("archive", err)
	return err
}

func (s *instrumentedStore) Restore(ctx context.Context, id string) error {
	err := s.next.Restore(ctx, id)
	s.metrics.ObserveStore("restore", err)
	return err
}

// Check is not counted; readiness probes would drown the other series.
func (s *instrumentedStore) Check(ctx context.Context) error {
	return s.next.Check(ctx)
}
