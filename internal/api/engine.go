package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dataconfessional/confessional/internal/engine"
)

func handleEngineHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := deps.Engine.ComputeHealth(r.Context())
		if err != nil {
			engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}

func handlePacks(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packs, err := deps.Engine.Packs()
		if err != nil {
			engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, packs)
	}
}

func handleInstall(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		h, err := deps.Engine.Install(r.Context(), id)
		if err != nil {
			engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}

func handleReport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req engine.ReportRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := deps.Engine.GenerateReport(r.Context(), req)
		if err != nil {
			engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleChat relays chat increments as server-sent events:
//
//	event: chunk   data: {"text": "..."}
//	event: done    data: {"text": "<full answer>"}
//	event: error   data: {"error": {...}}
//
// Failures before the first event are answered with a plain JSON error and
// a status code instead.
func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req engine.ChatRequest
		if !decodeBody(w, r, &req) {
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		sse := &sseWriter{w: w, flusher: flusher}
		_, err := deps.Engine.Chat(r.Context(), req, engine.ListenerFuncs{
			OnIncrement: func(text string) error {
				return sse.event("chunk", map[string]string{"text": text})
			},
			OnDone: func(full string) error {
				return sse.event("done", map[string]string{"text": full})
			},
		})
		if err == nil {
			return
		}
		if !sse.started {
			engineError(w, err)
			return
		}
		slog.Warn("chat stream failed", "error", err)
		if werr := sse.event("error", map[string]any{"error": engineErrorBody(err)}); werr != nil {
			slog.Debug("writing stream error event failed", "error", werr)
		}
	}
}

// sseWriter writes event-stream frames, sending headers on first use.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseWriter) event(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
