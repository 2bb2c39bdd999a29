package engine

import (
	"fmt"

	"github.com/dataconfessional/confessional/internal/ollama"
)

// ProviderOllama is the only supported provider. An empty provider means
// the same.
const ProviderOllama = "ollama"

// Detect returns the backend for the configured provider.
func Detect(provider, baseURL string) (Backend, error) {
	switch provider {
	case "", ProviderOllama:
		if baseURL == "" {
			return nil, fmt.Errorf("base_url is empty")
		}
		return ollama.New(baseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
