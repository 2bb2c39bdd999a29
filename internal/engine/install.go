package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// Install pulls every model of a pack in order, then makes it the active
// pack and returns fresh health. Pulls are sequential and the first failure
// stops the install without touching active_pack_id. Models already pulled
// are left in place.
//
// Concurrent installs of the same pack share one run and its result; the
// first caller's context governs it.
func (s *Service) Install(ctx context.Context, packID string) (Health, error) {
	v, err, shared := s.installs.Do(packID, func() (any, error) {
		return s.install(ctx, packID)
	})
	if shared {
		slog.Debug("joined in-flight install", "pack", packID)
	}
	return v.(Health), err
}

func (s *Service) install(ctx context.Context, packID string) (Health, error) {
	const op = "install"
	empty := Health{MissingModels: []string{}}

	cfg, b, err := s.loadBackend(op)
	if err != nil {
		return empty, err
	}

	if !b.Probe(ctx) {
		return empty, &Error{Kind: KindServerUnavailable, Op: op, Err: fmt.Errorf("no response from %s", cfg.BaseURL)}
	}

	pack, ok := cfg.Pack(packID)
	if !ok {
		return empty, configError(op, fmt.Errorf("pack %q not found", packID))
	}

	models := pack.Models()
	for i, m := range models {
		step := InstallStep{PackID: packID, Model: m, Index: i + 1, Total: len(models), State: StepPulling}
		s.notify(step)
		slog.Info("pulling model", "pack", packID, "model", m, "step", step.Index, "total", step.Total)

		if err := b.PullModel(ctx, m); err != nil {
			inner := classify(op, err)
			slog.Error("model pull failed", "pack", packID, "model", m, "error", err)
			return empty, &Error{
				Kind:   KindPartialInstall,
				Op:     op,
				Model:  m,
				Status: inner.Status,
				Body:   inner.Body,
				Err:    err,
			}
		}

		step.State = StepPulled
		s.notify(step)
	}

	id := packID
	cfg.ActivePackID = &id
	if err := s.store.Save(cfg); err != nil {
		return empty, configError(op, err)
	}
	slog.Info("pack installed", "pack", packID, "models", len(models))

	return s.ComputeHealth(ctx)
}

func (s *Service) notify(step InstallStep) {
	if s.observer != nil {
		s.observer(step)
	}
}
