package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

const credentialFile = "credentials.json"

// CredentialStore persists the account credential as a JSON file with
// owner-only permissions.
type CredentialStore struct {
	mu       sync.RWMutex
	filePath string
}

// NewCredentialStore creates a credential store rooted at dir.
// If dir is empty, defaults to ~/.icloud.
func NewCredentialStore(dir string) (*CredentialStore, error) {
	dir, err := configDir(dir)
	if err != nil {
		return nil, err
	}
	return &CredentialStore{filePath: filepath.Join(dir, credentialFile)}, nil
}

// Load returns the stored credential, or domain.ErrNotFound when none
// has been saved.
func (s *CredentialStore) Load(_ context.Context) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no stored credential: %w", domain.ErrNotFound)
		}
		return nil, err
	}

	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("corrupt credential file %s: %w", s.filePath, err)
	}
	return &cred, nil
}

// Save stores the credential, replacing any previous one.
func (s *CredentialStore) Save(_ context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// Clear removes the stored credential.
func (s *CredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the credential file path.
func (s *CredentialStore) Path() string {
	return s.filePath
}

// configDir resolves and creates the storage directory.
func configDir(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".icloud")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
