// Package secrets stores credentials in the platform vault, falling back to
// an encrypted file when the vault is unavailable.
package secrets

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Fixed credential identifiers.
const (
	APIKeyID   = "DataConfessional_APIKey"
	APITokenID = "DataConfessional_APIToken"
)

// account is the vault account every credential is filed under.
const account = "confessional"

var (
	ErrNotFound    = errors.New("secret not found")
	ErrUnsupported = errors.New("secret backend not available on this platform")
)

// Backend is one place a secret can live.
type Backend interface {
	Name() string
	Get(id string) (string, error)
	Set(id, secret string) error
	Delete(id string) error
}

// Store tries its backends in order.
type Store struct {
	backends []Backend
}

// New returns a Store over the given backends, highest priority first.
func New(backends ...Backend) *Store {
	return &Store{backends: backends}
}

// Default returns the platform vault backed by an encrypted-file fallback
// in dir.
func Default(dir string) *Store {
	return New(PlatformBackend(), NewFileBackend(dir))
}

// Set writes secret to the first backend that accepts it.
func (s *Store) Set(id, secret string) error {
	if secret == "" {
		return fmt.Errorf("storing %s: secret is empty", id)
	}
	var errs []error
	for _, b := range s.backends {
		err := b.Set(id, secret)
		if err == nil {
			slog.Debug("secret stored", "id", id, "backend", b.Name())
			return nil
		}
		if !errors.Is(err, ErrUnsupported) {
			slog.Warn("secret backend rejected write, trying next", "id", id, "backend", b.Name(), "error", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	return fmt.Errorf("storing %s: %w", id, errors.Join(errs...))
}

// Get returns the secret from the first backend holding it.
func (s *Store) Get(id string) (string, error) {
	var errs []error
	for _, b := range s.backends {
		v, err := b.Get(id)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnsupported) {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	// Backend failures are joined in but the result still matches ErrNotFound.
	return "", fmt.Errorf("reading %s: %w", id, errors.Join(append([]error{ErrNotFound}, errs...)...))
}

// Has reports whether any backend holds the secret.
func (s *Store) Has(id string) bool {
	_, err := s.Get(id)
	return err == nil
}

// Delete removes the secret from every backend. It fails with ErrNotFound
// when no backend held it; failures of other backends are only logged once
// one deletion succeeded.
func (s *Store) Delete(id string) error {
	deleted := false
	var errs []error
	for _, b := range s.backends {
		err := b.Delete(id)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnsupported):
		default:
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		}
	}
	if deleted {
		for _, err := range errs {
			slog.Warn("secret backend delete failed", "id", id, "error", err)
		}
		return nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("deleting %s: %w", id, errors.Join(errs...))
	}
	return fmt.Errorf("deleting %s: %w", id, ErrNotFound)
}

// EnsureToken returns the secret stored under id, generating and storing a
// random token on first use.
func (s *Store) EnsureToken(id string) (string, error) {
	v, err := s.Get(id)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	token := uuid.New().String()
	if err := s.Set(id, token); err != nil {
		return "", err
	}
	return token, nil
}
