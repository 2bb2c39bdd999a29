package api

import (
	"errors"
	"net/http"

	"github.com/dataconfessional/confessional/internal/secrets"
)

type credentialRequest struct {
	Secret string `json:"secret" validate:"required"`
}

func credentialsOrFail(w http.ResponseWriter, deps Deps) bool {
	if deps.Credentials == nil {
		httpError(w, http.StatusNotImplemented, "api_error", "credential store not configured")
		return false
	}
	return true
}

func handleSetCredential(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !credentialsOrFail(w, deps) {
			return
		}
		var req credentialRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := deps.Credentials.Set(secrets.APIKeyID, req.Secret); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to store credential: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
	}
}

func handleGetCredential(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !credentialsOrFail(w, deps) {
			return
		}
		v, err := deps.Credentials.Get(secrets.APIKeyID)
		if errors.Is(err, secrets.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "no credential stored")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read credential: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"secret": v})
	}
}

func handleHasCredential(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Credentials == nil {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		if !deps.Credentials.Has(secrets.APIKeyID) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDeleteCredential(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !credentialsOrFail(w, deps) {
			return
		}
		err := deps.Credentials.Delete(secrets.APIKeyID)
		if errors.Is(err, secrets.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "no credential stored")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete credential: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
