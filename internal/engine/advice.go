package engine

import (
	"context"
	"errors"
	"strings"
)

// Advice codes.
const (
	CodeNotReachable   = "OLLAMA_NOT_REACHABLE"
	CodeModelMissing   = "MODEL_MISSING"
	CodeTimeout        = "TIMEOUT"
	CodeRuntimeError   = "RUNTIME_ERROR"
	CodeOOM            = "OOM"
	CodePromptTooLarge = "PROMPT_TOO_LARGE"
	CodeUnknown        = "UNKNOWN"
)

// Advice is a user-facing explanation of an engine failure.
type Advice struct {
	Code        string `json:"code"`
	UserMessage string `json:"user_message"`
	Recovery    string `json:"recovery,omitempty"`
}

var advice = map[string]Advice{
	CodeNotReachable: {
		Code:        CodeNotReachable,
		UserMessage: "The booth can't reach your local AI engine. Make sure Ollama is installed and running, then retry.",
		Recovery:    "Open engine setup",
	},
	CodeModelMissing: {
		Code:        CodeModelMissing,
		UserMessage: "This engine pack is missing one or more models. Reinstall the pack to fix this.",
		Recovery:    "Repair this pack",
	},
	CodeTimeout: {
		Code:        CodeTimeout,
		UserMessage: "This question took too long to answer. Try a shorter question, or simplify the data summary.",
	},
	CodeOOM: {
		Code:        CodeOOM,
		UserMessage: "The model ran into a resource limit on your machine. Try switching to a lighter engine pack in settings.",
		Recovery:    "Open engine settings",
	},
	CodePromptTooLarge: {
		Code:        CodePromptTooLarge,
		UserMessage: "The data summary is too large. Try reducing the amount of data or splitting into smaller questions.",
	},
	CodeRuntimeError: {
		Code:        CodeRuntimeError,
		UserMessage: "The local AI engine reported an error while answering. Check the engine settings for more details.",
		Recovery:    "Open engine settings",
	},
	CodeUnknown: {
		Code:        CodeUnknown,
		UserMessage: "An unexpected error occurred. Check the engine settings for more details.",
		Recovery:    "Open engine settings",
	},
}

// Advise turns err into a message a user can act on. Timeouts and
// unreachable servers are recognized by kind; server-reported failures by
// the text of their body.
func Advise(err error) Advice {
	if err == nil {
		return Advice{}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return advice[CodeTimeout]
	}
	if errors.Is(err, ErrServerUnavailable) {
		return advice[CodeNotReachable]
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "out of memory") ||
		strings.Contains(err.Error(), "OOM") ||
		strings.Contains(msg, "resource limit") ||
		strings.Contains(msg, "requires more system memory"):
		return advice[CodeOOM]
	case strings.Contains(msg, "context") && (strings.Contains(msg, "too large") || strings.Contains(msg, "too long")):
		return advice[CodePromptTooLarge]
	case errors.Is(err, ErrPartialInstall),
		strings.Contains(msg, "model") && (strings.Contains(msg, "not found") || strings.Contains(msg, "missing")):
		return advice[CodeModelMissing]
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "took too long"):
		return advice[CodeTimeout]
	case errors.Is(err, ErrServerError):
		return advice[CodeRuntimeError]
	}
	return advice[CodeUnknown]
}
