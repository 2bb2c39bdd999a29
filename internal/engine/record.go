package engine

import (
	"log/slog"
	"time"

	"github.com/dataconfessional/confessional/internal/storage"
)

// record saves an interaction when a Recorder is configured. Failures are
// logged and never change the operation's result.
func (s *Service) record(i storage.Interaction, start time.Time, opErr error) {
	if s.recorder == nil {
		return
	}
	i.CreatedAt = start
	i.DurationMS = time.Since(start).Milliseconds()
	i.Status = storage.StatusCompleted
	if opErr != nil {
		i.Status = storage.StatusFailed
		i.Error = opErr.Error()
	}
	if _, err := s.recorder.SaveInteraction(i); err != nil {
		slog.Warn("recording interaction failed", "kind", i.Kind, "error", err)
	}
}
