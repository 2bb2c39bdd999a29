//go:build linux

package secrets

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// PlatformBackend returns the Secret Service backend, driven through
// secret-tool(1). It reports ErrUnsupported when secret-tool is missing.
func PlatformBackend() Backend { return secretToolBackend{} }

type secretToolBackend struct{}

func (secretToolBackend) Name() string { return "Secret Service" }

func (secretToolBackend) Get(id string) (string, error) {
	if _, err := exec.LookPath("secret-tool"); err != nil {
		return "", ErrUnsupported
	}
	out, err := exec.Command("secret-tool", "lookup", "service", id, "account", account).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) == 0 {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("reading secret %s: %w", id, err)
	}
	if len(out) == 0 {
		return "", ErrNotFound
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (secretToolBackend) Set(id, secret string) error {
	if _, err := exec.LookPath("secret-tool"); err != nil {
		return ErrUnsupported
	}
	cmd := exec.Command("secret-tool", "store", "--label="+id, "service", id, "account", account)
	cmd.Stdin = strings.NewReader(secret)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("writing secret %s: %w: %s", id, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (b secretToolBackend) Delete(id string) error {
	// secret-tool clear succeeds whether or not the item exists.
	if _, err := b.Get(id); err != nil {
		return err
	}
	if err := exec.Command("secret-tool", "clear", "service", id, "account", account).Run(); err != nil {
		return fmt.Errorf("deleting secret %s: %w", id, err)
	}
	return nil
}
