// Package session keeps the in-progress sales of the connected terminals.
// Each session owns one sale.Composer and is used by one request at a time.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pharmapos/m/internal/sale"
)

var (
	ErrNotFound = errors.New("sale session not found")
	ErrBusy     = errors.New("sale session is busy")
)

type entry struct {
	mu       sync.Mutex
	owner    int64
	composer *sale.Composer
	lastUsed time.Time
}

// Registry maps session ids to composers.
type Registry struct {
	orders sale.OrderAPI
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewRegistry returns a registry whose composers submit through orders.
func NewRegistry(orders sale.OrderAPI, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		orders:   orders,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create opens a session for the staff member owner and returns its id.
func (r *Registry) Create(owner int64) string {
	composer := sale.NewComposer(r.orders, r.logger)
	composer.SetSeller(owner)

	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = &entry{owner: owner, composer: composer, lastUsed: r.now()}
	r.mu.Unlock()
	r.logger.Debug("sale session opened", zap.String("session_id", id), zap.Int64("owner", owner))
	return id
}

// With runs fn with exclusive access to the session's composer. A session
// already held by another request is reported as ErrBusy instead of
// waiting, so a checkout in flight rejects concurrent edits.
func (r *Registry) With(id string, owner int64, fn func(*sale.Composer) error) error {
	e, err := r.lookup(id, owner)
	if err != nil {
		return err
	}
	if !e.mu.TryLock() {
		return ErrBusy
	}
	defer e.mu.Unlock()

	e.lastUsed = r.now()
	return fn(e.composer)
}

// Close discards a session. A session in use cannot be closed.
func (r *Registry) Close(id string, owner int64) error {
	e, err := r.lookup(id, owner)
	if err != nil {
		return err
	}
	if !e.mu.TryLock() {
		return ErrBusy
	}
	defer e.mu.Unlock()

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

// PurgeIdle closes sessions untouched for longer than maxIdle and returns
// how many were closed. Sessions in use are skipped.
func (r *Registry) PurgeIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	purged := 0
	for id, e := range r.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if e.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			purged++
		}
		e.mu.Unlock()
	}
	return purged
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sessions belonging to another user are reported as missing.
func (r *Registry) lookup(id string, owner int64) (*entry, error) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok || e.owner != owner {
		return nil, ErrNotFound
	}
	return e, nil
}
