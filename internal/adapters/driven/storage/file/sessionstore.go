package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore persists per-account session state (tokens and cookies)
// as JSON files so a trusted session survives process restarts.
type SessionStore struct {
	mu  sync.RWMutex
	dir string
}

// NewSessionStore creates a session store rooted at dir.
// If dir is empty, defaults to ~/.icloud.
func NewSessionStore(dir string) (*SessionStore, error) {
	dir, err := configDir(dir)
	if err != nil {
		return nil, err
	}
	return &SessionStore{dir: dir}, nil
}

// Load returns the persisted session for an account, or
// domain.ErrNotFound when none exists.
func (s *SessionStore) Load(_ context.Context, account string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(account))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no persisted session for %s: %w", account, domain.ErrNotFound)
		}
		return nil, err
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("corrupt session file for %s: %w", account, err)
	}
	return &sess, nil
}

// Save stores the session for an account.
func (s *SessionStore) Save(_ context.Context, account string, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(account), data, 0600)
}

// Clear removes the persisted session for an account.
func (s *SessionStore) Clear(_ context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(account)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// path derives the session file for an account. The account name is
// reduced to word characters so it is always a safe filename.
func (s *SessionStore) path(account string) string {
	return filepath.Join(s.dir, "session_"+sanitize(account)+".json")
}

func sanitize(account string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(account) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
