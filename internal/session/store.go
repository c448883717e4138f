// Package session keeps the per-upload wizard state in memory. Nothing
// here survives a restart: persistence beyond the current session is an
// explicit non-goal, so the store is a mutex-guarded map with TTL pruning.
package session

import (
	"sync"
	"time"

	"sellerstudio/internal/domain"
)

const defaultTTL = 2 * time.Hour

// Options configures the Store. OnEvict, when set, runs for every session
// dropped by TTL pruning or Delete, so the caller can reclaim the assets
// tied to it.
type Options struct {
	TTL     time.Duration
	OnEvict func(p domain.Product)
}

// Store holds active product sessions keyed by product ID.
type Store struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	ttl      time.Duration
	onEvict  func(p domain.Product)
	now      func() time.Time
}

// NewStore builds an empty store. A non-positive TTL falls back to two
// hours, roughly the span of one editing session.
func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		products: make(map[string]*domain.Product),
		ttl:      ttl,
		onEvict:  opts.OnEvict,
		now:      time.Now,
	}
}

// Put stores a new product session, stamping creation and update times.
func (s *Store) Put(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	clone := p.Clone()
	s.products[p.ID] = &clone
}

// Get returns a snapshot of the product session, if it is still alive.
func (s *Store) Get(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, false
	}
	return p.Clone(), true
}

// Update applies fn to the stored product under the lock and refreshes its
// activity timestamp. Returns domain.ErrNotFound for unknown or expired
// sessions; any error from fn aborts the update.
func (s *Store) Update(id string, fn func(*domain.Product) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	p, ok := s.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := fn(p); err != nil {
		return err
	}
	p.UpdatedAt = s.now()
	return nil
}

// Delete drops a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return
	}
	delete(s.products, id)
	if s.onEvict != nil {
		s.onEvict(p.Clone())
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	return len(s.products)
}

func (s *Store) pruneLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, p := range s.products {
		if p.UpdatedAt.Before(cutoff) {
			delete(s.products, id)
			if s.onEvict != nil {
				s.onEvict(p.Clone())
			}
		}
	}
}
