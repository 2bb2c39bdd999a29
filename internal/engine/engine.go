// Package engine orchestrates the local inference server: it reports
// readiness, installs model packs and brokers chat and report generation.
// Every operation reads the engine configuration fresh from its store.
package engine

import (
	"context"
	"io"

	"golang.org/x/sync/singleflight"

	"github.com/dataconfessional/confessional/internal/config"
	"github.com/dataconfessional/confessional/internal/gpu"
	"github.com/dataconfessional/confessional/internal/ollama"
	"github.com/dataconfessional/confessional/internal/storage"
)

// Backend abstracts the inference server API. *ollama.Client implements it.
type Backend interface {
	// Probe reports whether the server is reachable. It never fails.
	Probe(ctx context.Context) bool

	// ListModels returns the names of all locally installed models.
	ListModels(ctx context.Context) ([]string, error)

	// PullModel downloads a model and returns once the server reports success.
	PullModel(ctx context.Context, name string) error

	// StreamChat opens a streaming chat completion. The caller closes the body.
	StreamChat(ctx context.Context, req ollama.ChatCompletionRequest) (io.ReadCloser, error)

	// Complete runs a non-streaming chat completion and returns the message content.
	Complete(ctx context.Context, req ollama.ChatCompletionRequest) (string, error)
}

// ConfigStore loads and persists the engine configuration.
// *config.FileStore implements it.
type ConfigStore interface {
	Load() (config.EngineConfig, error)
	Save(cfg config.EngineConfig) error
}

// Recorder persists a record of each chat and report. *storage.Store
// implements it.
type Recorder interface {
	SaveInteraction(i storage.Interaction) (string, error)
}

// DetectFunc builds a Backend for a provider and base URL.
type DetectFunc func(provider, baseURL string) (Backend, error)

// Service is the engine orchestrator. It holds no configuration state of
// its own and is safe for concurrent use.
type Service struct {
	store    ConfigStore
	detect   DetectFunc
	gpu      func() *gpu.Summary
	recorder Recorder
	observer InstallObserver
	installs singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithDetect replaces the backend factory.
func WithDetect(fn DetectFunc) Option {
	return func(s *Service) { s.detect = fn }
}

// WithGPUDetector replaces the GPU summary source.
func WithGPUDetector(fn func() *gpu.Summary) Option {
	return func(s *Service) { s.gpu = fn }
}

// WithRecorder records every chat and report into r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithInstallObserver reports pull progress during Install.
func WithInstallObserver(o InstallObserver) Option {
	return func(s *Service) { s.observer = o }
}

// New creates a Service backed by store.
func New(store ConfigStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		detect: Detect,
		gpu:    gpu.Detect,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadBackend reads the configuration and builds a backend for it.
func (s *Service) loadBackend(op string) (config.EngineConfig, Backend, error) {
	cfg, err := s.store.Load()
	if err != nil {
		return config.EngineConfig{}, nil, configError(op, err)
	}
	b, err := s.detect(cfg.Provider, cfg.BaseURL)
	if err != nil {
		return config.EngineConfig{}, nil, configError(op, err)
	}
	return cfg, b, nil
}
