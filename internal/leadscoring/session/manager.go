package session

import (
	"context"
	"time"

	"leadscore_backend/platform/apperr"
)

// Manager serializes access to each session. Reads and read-modify-write
// updates on one ID never interleave; different IDs proceed independently.
type Manager struct {
	store Store
	locks *keyedMutex
	now   func() time.Time
}

// NewManager wraps store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, locks: newKeyedMutex(), now: time.Now}
}

// Get returns a snapshot of the session.
func (m *Manager) Get(ctx context.Context, id string) (State, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	state, err := m.store.Load(ctx, id)
	if err != nil {
		return State{}, apperr.Wrap(apperr.KindInternal, "session unavailable", err).WithOp("session.Get")
	}
	return state, nil
}

// Update applies fn to the session and saves the result. If fn fails nothing
// is saved and its error is returned unchanged.
func (m *Manager) Update(ctx context.Context, id string, fn func(*State) error) (State, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	state, err := m.store.Load(ctx, id)
	if err != nil {
		return State{}, apperr.Wrap(apperr.KindInternal, "session unavailable", err).WithOp("session.Update")
	}
	if err := fn(&state); err != nil {
		return State{}, err
	}
	state.UpdatedAt = m.now().UTC()
	if err := m.store.Save(ctx, id, state); err != nil {
		return State{}, apperr.Wrap(apperr.KindInternal, "session unavailable", err).WithOp("session.Update")
	}
	return state, nil
}
