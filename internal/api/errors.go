package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dataconfessional/confessional/internal/engine"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// errorBody is the JSON shape of an engine failure, shared by plain
// responses and the SSE error event.
type errorBody struct {
	Message     string `json:"message"`
	Type        string `json:"type"`
	Status      int    `json:"upstream_status,omitempty"`
	Code        string `json:"code"`
	UserMessage string `json:"user_message"`
	Recovery    string `json:"recovery,omitempty"`
}

func engineErrorBody(err error) errorBody {
	advice := engine.Advise(err)
	body := errorBody{
		Message:     err.Error(),
		Type:        "engine_error",
		Code:        advice.Code,
		UserMessage: advice.UserMessage,
		Recovery:    advice.Recovery,
	}
	if k := engine.KindOf(err); k != 0 {
		body.Type = k.String()
	}
	var ee *engine.Error
	if errors.As(err, &ee) {
		body.Status = ee.Status
	}
	return body
}

// statusFor maps an engine error kind to the HTTP status returned to callers.
func statusFor(err error) int {
	switch engine.KindOf(err) {
	case engine.KindServerUnavailable:
		return http.StatusServiceUnavailable
	case engine.KindServerError, engine.KindProtocol, engine.KindPartialInstall:
		return http.StatusBadGateway
	case engine.KindConfig:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func engineError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	json.NewEncoder(w).Encode(map[string]any{"error": engineErrorBody(err)})
}
