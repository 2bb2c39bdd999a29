// Package stream decodes the server-sent event stream returned by an
// OpenAI-compatible chat completions endpoint into text increments.
package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
)

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"
	readSize   = 4096
)

// Stats counts what a Parser has seen so far.
type Stats struct {
	Lines      int
	Frames     int
	Increments int
	Skipped    int
}

// EmitFunc receives one text increment. A non-nil error stops parsing and
// is returned to the caller unchanged.
type EmitFunc func(text string) error

// Parser is a line-oriented state machine. The only state carried between
// chunks is the trailing partial line, so output does not depend on how the
// byte stream was split.
type Parser struct {
	partial []byte
	stats   Stats
}

// Feed consumes one chunk and emits the increments of every line the chunk
// completes, in order.
func (p *Parser) Feed(chunk []byte, emit EmitFunc) error {
	p.partial = append(p.partial, chunk...)
	for {
		i := bytes.IndexByte(p.partial, '\n')
		if i < 0 {
			return nil
		}
		line := p.partial[:i]
		rest := p.partial[i+1:]
		if err := p.line(line, emit); err != nil {
			p.partial = append(p.partial[:0], rest...)
			return err
		}
		p.partial = append(p.partial[:0], rest...)
	}
}

// Flush treats any unterminated trailing bytes as a final line.
func (p *Parser) Flush(emit EmitFunc) error {
	if len(p.partial) == 0 {
		return nil
	}
	line := p.partial
	p.partial = nil
	return p.line(line, emit)
}

// Stats returns the counters accumulated so far.
func (p *Parser) Stats() Stats { return p.stats }

type frame struct {
	Choices []struct {
		Delta struct {
			Content json.RawMessage `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (p *Parser) line(raw []byte, emit EmitFunc) error {
	p.stats.Lines++
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	text := strings.ToValidUTF8(string(raw), "�")

	payload, ok := strings.CutPrefix(text, dataPrefix)
	if !ok {
		return nil
	}
	p.stats.Frames++
	if strings.TrimSpace(payload) == doneMarker {
		return nil
	}

	var f frame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		p.stats.Skipped++
		slog.Debug("skipping malformed stream frame", "error", err, "payload", clip(payload, 120))
		return nil
	}
	if len(f.Choices) == 0 || len(f.Choices[0].Delta.Content) == 0 {
		return nil
	}

	var content string
	if err := json.Unmarshal(f.Choices[0].Delta.Content, &content); err != nil || content == "" {
		return nil
	}
	p.stats.Increments++
	return emit(content)
}

// Relay reads r to EOF, feeding every chunk through a fresh Parser. Each
// chunk's increments are delivered before the next read.
func Relay(r io.Reader, emit EmitFunc) (Stats, error) {
	var p Parser
	buf := make([]byte, readSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := p.Feed(buf[:n], emit); ferr != nil {
				return p.Stats(), ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return p.Stats(), p.Flush(emit)
		}
		if err != nil {
			return p.Stats(), err
		}
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
