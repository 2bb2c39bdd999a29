package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dataconfessional/confessional/internal/ollama"
	"github.com/dataconfessional/confessional/internal/prompts"
	"github.com/dataconfessional/confessional/internal/storage"
	"github.com/dataconfessional/confessional/internal/stream"
)

// Sampling parameters for chat answers.
const (
	chatTemperature = 0.8
	chatTopP        = 0.6
	chatTopK        = 2
)

var errNoActivePack = errors.New("no active engine pack configured")

// listenerError marks a failure returned by the caller's Listener so it is
// passed back unchanged rather than classified as a server failure.
type listenerError struct{ err error }

func (e *listenerError) Error() string { return e.err.Error() }
func (e *listenerError) Unwrap() error { return e.err }

// Chat answers one question with the active pack's analysis model,
// streaming increments to l as they arrive. It returns the full answer.
// On failure no Done is delivered; increments already delivered stand.
func (s *Service) Chat(ctx context.Context, req ChatRequest, l Listener) (string, error) {
	const op = "chat"
	if l == nil {
		l = ListenerFuncs{}
	}

	cfg, b, err := s.loadBackend(op)
	if err != nil {
		return "", err
	}
	_, pack, ok := cfg.ActivePack()
	if !ok {
		return "", configError(op, errNoActivePack)
	}
	model := pack.AnalysisModel

	topK := chatTopK
	cr := ollama.ChatCompletionRequest{
		Model: model,
		Messages: []ollama.Message{
			{Role: "system", Content: prompts.System(req.Role)},
			{Role: "user", Content: prompts.User(req.ProjectMeta.Name, req.ProjectMeta.Audience, req.ContextSummary, req.Question)},
		},
		Temperature: chatTemperature,
		TopP:        chatTopP,
		TopK:        &topK,
	}

	start := time.Now()
	full, err := s.streamChat(ctx, op, b, cr, l)
	s.record(storage.Interaction{
		Kind:     storage.KindChat,
		Model:    model,
		Role:     req.Role,
		Audience: req.ProjectMeta.Audience,
		Prompt:   req.Question,
		Response: full,
	}, start, err)
	if err != nil {
		return "", err
	}
	return full, nil
}

func (s *Service) streamChat(ctx context.Context, op string, b Backend, cr ollama.ChatCompletionRequest, l Listener) (string, error) {
	body, err := b.StreamChat(ctx, cr)
	if err != nil {
		return "", classify(op, err)
	}
	defer body.Close()

	var acc strings.Builder
	stats, err := stream.Relay(body, func(text string) error {
		acc.WriteString(text)
		if err := l.Increment(text); err != nil {
			return &listenerError{err: err}
		}
		return nil
	})
	if err != nil {
		var le *listenerError
		if errors.As(err, &le) {
			return acc.String(), fmt.Errorf("%s: listener: %w", op, le.err)
		}
		return acc.String(), classify(op, err)
	}
	if stats.Skipped > 0 {
		slog.Debug("skipped malformed stream frames", "model", cr.Model, "skipped", stats.Skipped)
	}

	full := acc.String()
	if err := l.Done(full); err != nil {
		return full, fmt.Errorf("%s: listener: %w", op, err)
	}
	return full, nil
}
