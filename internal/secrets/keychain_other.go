//go:build !darwin && !linux

package secrets

// PlatformBackend returns a backend that rejects every call; the encrypted
// file backend takes over.
func PlatformBackend() Backend { return unsupportedBackend{} }

type unsupportedBackend struct{}

func (unsupportedBackend) Name() string               { return "platform vault" }
func (unsupportedBackend) Get(string) (string, error) { return "", ErrUnsupported }
func (unsupportedBackend) Set(string, string) error   { return ErrUnsupported }
func (unsupportedBackend) Delete(string) error        { return ErrUnsupported }
