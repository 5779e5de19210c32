package session

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrSessionNotFound is returned when no case exists for an id.
var ErrSessionNotFound = errors.New("session: not found")

// Store keeps case state keyed by session id. Update runs fn against a copy
// of the stored state and commits it only when fn succeeds; implementations
// serialize Update calls so each case sees one mutation at a time.
type Store interface {
	Put(State)
	Get(id string) (State, error)
	Update(id string, fn func(*State) error) (State, error)
	Delete(id string)
	Len() int
}

// MemoryStore keeps every case for the life of the process. Nothing is ever
// evicted.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]State
}

// NewMemoryStore returns an empty unbounded store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]State{}}
}

// Put creates or replaces a case.
func (m *MemoryStore) Put(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[state.ID] = state.Clone()
}

// Get returns a copy of the case.
func (m *MemoryStore) Get(id string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return state.Clone(), nil
}

// Update applies fn to the case under the store lock.
func (m *MemoryStore) Update(id string, fn func(*State) error) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[id]
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return State{}, err
	}
	m.sessions[id] = next
	return next.Clone(), nil
}

// Delete drops a case.
func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len reports how many cases are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LRUStore bounds memory by evicting the least recently used case once
// capacity is reached. Evicted cases behave as if they never existed.
type LRUStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, State]
}

// NewLRUStore returns a store holding at most size cases.
func NewLRUStore(size int) (*LRUStore, error) {
	cache, err := lru.New[string, State](size)
	if err != nil {
		return nil, fmt.Errorf("session: lru store: %w", err)
	}
	return &LRUStore{cache: cache}, nil
}

// Put creates or replaces a case, possibly evicting the oldest one.
func (l *LRUStore) Put(state State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Add(state.ID, state.Clone())
}

// Get returns a copy of the case and marks it recently used.
func (l *LRUStore) Get(id string) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.cache.Get(id)
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return state.Clone(), nil
}

// Update applies fn to the case under the store lock.
func (l *LRUStore) Update(id string, fn func(*State) error) (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.cache.Get(id)
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return State{}, err
	}
	l.cache.Add(id, next)
	return next.Clone(), nil
}

// Delete drops a case.
func (l *LRUStore) Delete(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Remove(id)
}

// Len reports how many cases are held.
func (l *LRUStore) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Len()
}

// NewStore picks the unbounded store when maxEntries <= 0 and the LRU store
// otherwise.
func NewStore(maxEntries int) (Store, error) {
	if maxEntries <= 0 {
		return NewMemoryStore(), nil
	}
	return NewLRUStore(maxEntries)
}
