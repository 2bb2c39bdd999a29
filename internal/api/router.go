// Package api exposes the engine over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dataconfessional/confessional/internal/engine"
	"github.com/dataconfessional/confessional/internal/storage"
)

const maxRequestBodySize = 4 << 20 // 4MB

// Engine is the subset of *engine.Service the API drives.
type Engine interface {
	ComputeHealth(ctx context.Context) (engine.Health, error)
	Packs() ([]engine.PackInfo, error)
	Install(ctx context.Context, packID string) (engine.Health, error)
	Chat(ctx context.Context, req engine.ChatRequest, l engine.Listener) (string, error)
	GenerateReport(ctx context.Context, req engine.ReportRequest) (engine.ReportResponse, error)
}

// History reads and prunes the interaction log.
type History interface {
	RecentInteractions(kind string, limit, offset int) ([]storage.Interaction, error)
	GetInteraction(id string) (storage.Interaction, error)
	DeleteInteraction(id string) error
}

// Credentials is the credential store.
type Credentials interface {
	Set(id, secret string) error
	Get(id string) (string, error)
	Has(id string) bool
	Delete(id string) error
}

// Deps holds the collaborators of the HTTP API. History and Credentials
// are optional; their routes answer 501 when nil.
type Deps struct {
	Engine      Engine
	History     History
	Credentials Credentials
	Token       string
}

// NewHandler returns the HTTP API. Everything under /v1 requires the bearer
// token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/engine/health", handleEngineHealth(deps))
		r.Get("/engine/packs", handlePacks(deps))
		r.Post("/engine/packs/{id}/install", handleInstall(deps))
		r.Post("/engine/chat", handleChat(deps))
		r.Post("/engine/report", handleReport(deps))

		r.Get("/credential", handleGetCredential(deps))
		r.Head("/credential", handleHasCredential(deps))
		r.Put("/credential", handleSetCredential(deps))
		r.Delete("/credential", handleDeleteCredential(deps))

		r.Get("/history", handleListHistory(deps))
		r.Get("/history/{id}", handleGetHistory(deps))
		r.Delete("/history/{id}", handleDeleteHistory(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// decodeBody reads a size-limited JSON body into dst and validates it.
// It writes the error response itself and reports whether decoding worked.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	if err := validateRequest(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return false
	}
	return true
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
