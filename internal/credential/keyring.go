// Package credential keeps secrets such as the Slack webhook URL out of the
// config file by storing them in the system keyring.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "splan"

// SlackWebhookKey is the keyring entry holding the Slack webhook URL.
const SlackWebhookKey = "slack_webhook_url"

// PasswordEnvVar holds the passphrase of the encrypted-file backend. When it
// is unset the passphrase is read from the terminal.
const PasswordEnvVar = "SPLAN_KEYRING_PASSWORD"

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes credentials in a keyring.
type Store struct {
	ring keyring.Keyring
}

// Open opens the system keyring. On systems without a native keyring the
// encrypted-file backend stores items under DefaultFileDir.
func Open() (*Store, error) {
	dir, err := DefaultFileDir()
	if err != nil {
		return nil, err
	}
	ring, err := keyring.Open(config(dir, os.Getenv(PasswordEnvVar)))
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewStore(ring), nil
}

// DefaultFileDir returns the per-user directory of the encrypted-file
// backend, outside any project tree.
func DefaultFileDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config directory: %w", err)
	}
	return filepath.Join(base, serviceName, "credentials"), nil
}

func config(fileDir, password string) keyring.Config {
	prompt := keyring.TerminalPrompt
	if password != "" {
		prompt = keyring.FixedStringPrompt(password)
	}
	return keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         prompt,
		KeychainTrustApplication: true,
	}
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Get retrieves a credential by key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential under key.
func (s *Store) Set(key, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "splan " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key.
func (s *Store) Delete(key string) error {
	if err := s.ring.Remove(key); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("deleting credential %q: %w", key, ErrNotFound)
		}
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
