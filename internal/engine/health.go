package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dataconfessional/confessional/internal/config"
	"github.com/dataconfessional/confessional/internal/gpu"
)

// ComputeHealth reports whether the server is reachable and which models of
// the active pack are missing. Only a configuration failure is an error;
// an unreachable server is reported in the result.
func (s *Service) ComputeHealth(ctx context.Context) (Health, error) {
	cfg, b, err := s.loadBackend("health")
	if err != nil {
		return Health{MissingModels: []string{}}, err
	}
	return s.health(ctx, cfg, b), nil
}

func (s *Service) health(ctx context.Context, cfg config.EngineConfig, b Backend) Health {
	var (
		available bool
		summary   *gpu.Summary
		g         errgroup.Group
	)
	g.Go(func() error {
		available = b.Probe(ctx)
		return nil
	})
	g.Go(func() error {
		summary = s.gpu()
		return nil
	})
	g.Wait()

	h := Health{
		ActivePackID:  cfg.ActivePackID,
		MissingModels: []string{},
		GPUSummary:    summary,
	}
	if !available {
		return h
	}
	h.OllamaAvailable = true

	installed, err := b.ListModels(ctx)
	if err != nil {
		slog.Warn("listing installed models failed, treating as none installed", "error", err)
		installed = nil
	}

	_, pack, ok := cfg.ActivePack()
	if !ok {
		return h
	}

	have := make(map[string]bool, len(installed))
	for _, name := range installed {
		have[name] = true
	}
	for _, m := range pack.Models() {
		if !have[m] {
			h.MissingModels = append(h.MissingModels, m)
		}
	}
	h.EngineConfigured = len(h.MissingModels) == 0
	return h
}
