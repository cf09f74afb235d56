// Package session holds the one bearer credential shared by every API call.
//
// The store keeps no timers: validity is decided at call time by comparing
// the stored expiry with the clock.
package session

import (
	"strconv"
	"sync"
	"time"

	"github.com/jasperwreed/guidera-chat/internal/models"
)

// Keys the credential is persisted under.
const (
	TokenKey  = "guidera_jwt"
	ExpiryKey = "guidera_jwt_exp"
)

// Backend is a string key/value store that outlives the process.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

type Store struct {
	backend Backend
	now     func() time.Time
}

type Option func(*Store)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Save(token string, expiry int64) error {
	if err := s.backend.Set(TokenKey, token); err != nil {
		return err
	}
	return s.backend.Set(ExpiryKey, strconv.FormatInt(expiry, 10))
}

// Credential returns whatever is persisted, valid or not. Read errors and
// unparseable expiries yield an empty credential.
func (s *Store) Credential() models.Credential {
	token, ok, err := s.backend.Get(TokenKey)
	if err != nil || !ok {
		return models.Credential{}
	}
	raw, ok, err := s.backend.Get(ExpiryKey)
	if err != nil || !ok {
		return models.Credential{Token: token}
	}
	exp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return models.Credential{Token: token}
	}
	return models.Credential{Token: token, ExpiresAt: exp}
}

func (s *Store) Token() string {
	return s.Credential().Token
}

func (s *Store) IsValid() bool {
	return s.Credential().ValidAt(s.now())
}

// Clear removes both keys. It is safe to call on an empty store.
func (s *Store) Clear() error {
	errTok := s.backend.Delete(TokenKey)
	errExp := s.backend.Delete(ExpiryKey)
	if errTok != nil {
		return errTok
	}
	return errExp
}

func (s *Store) Now() time.Time {
	return s.now()
}

// MemoryBackend keeps values for the lifetime of the process only.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (m *MemoryBackend) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
