package store

import (
	"errors"
	"sync"

	"github.com/placementlab/gdroom/internal/models"
)

var (
	ErrExists   = errors.New("session already exists")
	ErrNotFound = errors.New("session not found")
)

// Store is the process-wide session registry. Sessions live until Delete or
// process exit; there is no eviction. The map lock only guards registry
// membership, each session serializes its own mutations.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func New() *Store {
	return &Store{sessions: make(map[string]*models.Session)}
}

func (st *Store) Create(id string) (*models.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; ok {
		return nil, ErrExists
	}
	s := models.NewSession(id)
	st.sessions[id] = s
	return s, nil
}

func (st *Store) Get(id string) (*models.Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
