package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMalformed marks a response whose JSON does not have the expected shape.
var ErrMalformed = errors.New("malformed response")

// StatusError is returned when the server answers with a non-2xx status.
// Body holds the response body verbatim.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Timeouts bounds every call the client makes.
type Timeouts struct {
	Probe      time.Duration
	List       time.Duration
	Pull       time.Duration
	Chat       time.Duration
	Completion time.Duration
}

// DefaultTimeouts are sized for a local server: quick liveness checks, long
// model downloads.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Probe:      5 * time.Second,
		List:       5 * time.Second,
		Pull:       300 * time.Second,
		Chat:       90 * time.Second,
		Completion: 120 * time.Second,
	}
}

// Message represents a chat message in the OpenAI-compatible format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the JSON body for POST /v1/chat/completions.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	TopK        *int      `json:"top_k,omitempty"`
}

// Client communicates with a local Ollama instance over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeouts   Timeouts
}

// New creates a Client targeting the given Ollama base URL.
func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: 0}, DefaultTimeouts())
}

// NewWithHTTPClient creates a Client with a custom transport and timeouts.
func NewWithHTTPClient(baseURL string, hc *http.Client, t Timeouts) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		timeouts:   t,
	}
}

// BaseURL returns the server address the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Probe reports whether the server answers GET /api/tags with a 2xx status.
// Every failure, including timeouts, is reported as false.
func (c *Client) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Probe)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// ListModels returns the names of all models installed on the server, in
// the order the server lists them.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.List)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting model list: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("list models", resp); err != nil {
		return nil, err
	}

	var tags struct {
		Models json.RawMessage `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("list models: decoding response: %w: %w", ErrMalformed, err)
	}

	var entries []map[string]json.RawMessage
	if len(tags.Models) == 0 || json.Unmarshal(tags.Models, &entries) != nil || entries == nil {
		return nil, fmt.Errorf("list models: %w: models is not an array", ErrMalformed)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		var name string
		if err := json.Unmarshal(e["name"], &name); err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// pullRequest is the JSON body for POST /api/pull.
type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// PullModel downloads a model and waits for the server to finish. Progress
// streaming is disabled; success is any 2xx answer.
func (c *Client) PullModel(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Pull)
	defer cancel()

	body, err := json.Marshal(pullRequest{Name: name, Stream: false})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pulling model %s: %w", name, err)
	}
	defer resp.Body.Close()

	if err := checkStatus("pull "+name, resp); err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// StreamChat opens a streaming chat completion and returns the response body.
// The caller must close it. The chat timeout covers the whole stream.
func (c *Client) StreamChat(ctx context.Context, cr ChatCompletionRequest) (io.ReadCloser, error) {
	cr.Stream = true
	reqCtx, cancel := context.WithTimeout(ctx, c.timeouts.Chat)

	resp, err := c.postChat(reqCtx, cr)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := checkStatus("chat", resp); err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

// completionResponse uses pointers so an absent field is distinguishable
// from an empty one.
type completionResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a non-streaming chat completion and returns
// choices[0].message.content.
func (c *Client) Complete(ctx context.Context, cr ChatCompletionRequest) (string, error) {
	cr.Stream = false
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Completion)
	defer cancel()

	resp, err := c.postChat(ctx, cr)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus("completion", resp); err != nil {
		return "", err
	}

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("completion: decoding response: %w: %w", ErrMalformed, err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message == nil || result.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("completion: %w: choices[0].message.content missing", ErrMalformed)
	}
	return *result.Choices[0].Message.Content, nil
}

func (c *Client) postChat(ctx context.Context, cr ChatCompletionRequest) (*http.Response, error) {
	body, err := json.Marshal(cr)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	return resp, nil
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
}

// cancelOnClose wraps a ReadCloser and cancels a context on Close.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
