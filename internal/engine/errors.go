package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dataconfessional/confessional/internal/ollama"
)

// Kind classifies engine failures.
type Kind int

const (
	KindServerUnavailable Kind = iota + 1
	KindServerError
	KindProtocol
	KindConfig
	KindPartialInstall
)

func (k Kind) String() string {
	switch k {
	case KindServerUnavailable:
		return "server_unavailable"
	case KindServerError:
		return "server_error"
	case KindProtocol:
		return "protocol_error"
	case KindConfig:
		return "config_error"
	case KindPartialInstall:
		return "partial_install_failure"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrServerUnavailable = errors.New("inference server unavailable")
	ErrServerError       = errors.New("inference server error")
	ErrProtocol          = errors.New("malformed response")
	ErrConfig            = errors.New("engine configuration error")
	ErrPartialInstall    = errors.New("pack install incomplete")
)

func (k Kind) sentinel() error {
	switch k {
	case KindServerUnavailable:
		return ErrServerUnavailable
	case KindServerError:
		return ErrServerError
	case KindProtocol:
		return ErrProtocol
	case KindConfig:
		return ErrConfig
	case KindPartialInstall:
		return ErrPartialInstall
	}
	return nil
}

// Error is returned by every Service operation. Status and Body are set
// when the server answered with a non-2xx status; Body is verbatim. Model
// names the model whose pull failed for KindPartialInstall.
type Error struct {
	Kind   Kind
	Op     string
	Model  string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	switch e.Kind {
	case KindServerError:
		fmt.Fprintf(&b, "server returned status %d", e.Status)
		if e.Body != "" {
			b.WriteString(": ")
			b.WriteString(e.Body)
		}
		return b.String()
	case KindPartialInstall:
		fmt.Fprintf(&b, "pulling model %s failed", e.Model)
	default:
		b.WriteString(e.Kind.sentinel().Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func configError(op string, err error) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

// classify maps a backend failure onto an engine error kind. Anything that
// is neither a status error nor a malformed body is a transport failure.
func classify(op string, err error) *Error {
	var se *ollama.StatusError
	switch {
	case errors.As(err, &se):
		return &Error{Kind: KindServerError, Op: op, Status: se.StatusCode, Body: se.Body}
	case errors.Is(err, ollama.ErrMalformed):
		return &Error{Kind: KindProtocol, Op: op, Err: err}
	default:
		return &Error{Kind: KindServerUnavailable, Op: op, Err: err}
	}
}

// KindOf returns the kind of an engine error, or 0 for any other error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
