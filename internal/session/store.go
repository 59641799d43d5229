// File: internal/session/store.go
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"satonic/internal/backend"

	"go.uber.org/zap"
)

// EventType names a session change.
type EventType string

const (
	EventAuthChanged EventType = "auth_changed"
	EventUserUpdated EventType = "user_updated"
)

// Event is delivered to subscribers after the session changes.
type Event struct {
	Type          EventType
	Authenticated bool
	User          *backend.User
}

// record is the persisted form, keyed like the web client's storage.
type record struct {
	Token     string        `json:"satonic_auth_token,omitempty"`
	User      *backend.User `json:"satonic_user,omitempty"`
	ExpiresAt string        `json:"satonic_token_expires,omitempty"`
}

// Store keeps the bearer token, cached user and expiry in a JSON file.
// It is safe for concurrent use and satisfies backend.TokenStore.
type Store struct {
	path   string
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	rec       record
	listeners map[int]func(Event)
	nextID    int
}

// Open loads the session at path. A missing file yields an empty session.
func Open(path string, logger *zap.Logger) (*Store, error) {
	s := &Store{
		path:      path,
		logger:    logger.Named("session"),
		now:       time.Now,
		listeners: make(map[int]func(Event)),
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.rec); err != nil {
		s.logger.Warn("Discarding unreadable session file", zap.String("path", path), zap.Error(err))
		s.rec = record{}
	}
	return s, nil
}

// SetAuth stores a fresh login result.
func (s *Store) SetAuth(tok backend.AuthToken) error {
	token := strings.TrimSpace(tok.Token)
	if token == "" {
		return backend.ErrInvalidTokenData
	}

	s.mu.Lock()
	s.rec = record{Token: token, User: tok.User, ExpiresAt: tok.ExpiresAt}
	err := s.persistLocked()
	user := s.rec.User
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Debug("Session stored", zap.String("expires_at", tok.ExpiresAt))
	s.emit(Event{Type: EventAuthChanged, Authenticated: true, User: user})
	return nil
}

// Clear removes token, user and expiry.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.rec = record{}
	err := s.persistLocked()
	s.mu.Unlock()
	s.emit(Event{Type: EventAuthChanged, Authenticated: false})
	return err
}

// Reset wipes every auth-related key, including ones this version does not write.
func (s *Store) Reset() error {
	s.mu.Lock()
	s.rec = record{}
	var err error
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = fmt.Errorf("remove session file: %w", rmErr)
	}
	s.mu.Unlock()
	s.emit(Event{Type: EventAuthChanged, Authenticated: false})
	return err
}

// IsAuthenticated requires both a token and a future expiry. An expired
// or unparseable expiry clears the session.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	if s.rec.Token == "" || s.rec.ExpiresAt == "" {
		s.mu.Unlock()
		return false
	}
	raw := s.rec.ExpiresAt
	expiresAt, err := time.Parse(time.RFC3339, raw)
	if err == nil && expiresAt.After(s.now()) {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	s.logger.Info("Session expired, clearing", zap.String("expires_at", raw))
	if clearErr := s.Clear(); clearErr != nil {
		s.logger.Warn("Failed to clear expired session", zap.Error(clearErr))
	}
	return false
}

// Token returns the bearer token of a live session, or "".
func (s *Store) Token() string {
	if !s.IsAuthenticated() {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Token
}

// ExpiresAt returns the raw stored expiry.
func (s *Store) ExpiresAt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.ExpiresAt
}

// CurrentUser returns the cached user of a live session, or nil.
func (s *Store) CurrentUser() *backend.User {
	if !s.IsAuthenticated() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.User
}

// UpdateUser replaces the cached user without touching the token.
func (s *Store) UpdateUser(u *backend.User) error {
	s.mu.Lock()
	s.rec.User = u
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.emit(Event{Type: EventUserUpdated, Authenticated: s.IsAuthenticated(), User: u})
	return nil
}

// Subscribe registers fn for session events and returns its unsubscribe func.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) emit(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.MarshalIndent(s.rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
