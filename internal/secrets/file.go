package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const passphraseFile = ".passphrase"

// FileBackend keeps each secret in <dir>/<id>.enc, encrypted with a key
// derived from a passphrase generated on first use.
type FileBackend struct {
	dir string
}

// NewFileBackend returns a file backend rooted at dir. Nothing is created
// until the first write.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (f *FileBackend) Name() string { return "encrypted file" }

func (f *FileBackend) Get(id string) (string, error) {
	path, err := f.path(id)
	if err != nil {
		return "", err
	}
	sealed, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading secret %s: %w", id, err)
	}

	key, err := f.key(false)
	if err != nil {
		return "", err
	}
	plain, err := open(sealed, &key)
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", id, err)
	}
	return string(plain), nil
}

func (f *FileBackend) Set(id, secret string) error {
	path, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	key, err := f.key(true)
	if err != nil {
		return err
	}
	sealed, err := seal([]byte(secret), &key)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("writing secret %s: %w", id, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing secret %s: %w", id, err)
	}
	return nil
}

func (f *FileBackend) Delete(id string) error {
	path, err := f.path(id)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (f *FileBackend) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid secret id %q", id)
	}
	return filepath.Join(f.dir, id+".enc"), nil
}

// key loads the passphrase, generating it when create is set and none
// exists yet.
func (f *FileBackend) key(create bool) ([keySize]byte, error) {
	p := filepath.Join(f.dir, passphraseFile)
	data, err := os.ReadFile(p)
	if err == nil {
		return deriveKey(strings.TrimSpace(string(data))), nil
	}
	if !errors.Is(err, os.ErrNotExist) || !create {
		return [keySize]byte{}, fmt.Errorf("reading passphrase: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return [keySize]byte{}, fmt.Errorf("generating passphrase: %w", err)
	}
	passphrase := hex.EncodeToString(buf)
	if err := os.WriteFile(p, []byte(passphrase), 0o600); err != nil {
		return [keySize]byte{}, fmt.Errorf("writing passphrase: %w", err)
	}
	return deriveKey(passphrase), nil
}
