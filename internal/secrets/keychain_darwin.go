//go:build darwin

package secrets

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// errSecItemNotFound is the exit status security(1) uses for a missing item.
const errSecItemNotFound = 44

// PlatformBackend returns the macOS Keychain backend.
func PlatformBackend() Backend { return keychainBackend{} }

type keychainBackend struct{}

func (keychainBackend) Name() string { return "macOS Keychain" }

func (keychainBackend) Get(id string) (string, error) {
	out, err := exec.Command(
		"security", "find-generic-password",
		"-s", id,
		"-a", account,
		"-w",
	).Output()
	if err != nil {
		return "", keychainErr("reading", id, err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (keychainBackend) Set(id, secret string) error {
	err := exec.Command(
		"security", "add-generic-password",
		"-U",
		"-s", id,
		"-a", account,
		"-w", secret,
	).Run()
	if err != nil {
		return keychainErr("writing", id, err)
	}
	return nil
}

func (keychainBackend) Delete(id string) error {
	err := exec.Command(
		"security", "delete-generic-password",
		"-s", id,
		"-a", account,
	).Run()
	if err != nil {
		return keychainErr("deleting", id, err)
	}
	return nil
}

func keychainErr(verb, id string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == errSecItemNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("%s keychain item %s: %w", verb, id, err)
}
