// Package llm holds the model callers used by every pipeline stage.
//
// A Client sends one prompt and returns raw text. Generate and Extract build
// on it: Generate returns cleaned free text, Extract decodes and validates a
// structured object. Provider clients live beside this file; Resilient adds
// rate limiting, a circuit breaker and the shared retry policy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/valpere/tibtran/internal/postprocess"
)

var (
	// ErrEmptyResponse is returned when a provider answers without any text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrMissingAPIKey is returned by constructors that need credentials.
	ErrMissingAPIKey = errors.New("API key required")
)

// Exchange is one few-shot example turn pair placed before the prompt.
type Exchange struct {
	User  string
	Model string
}

// Request is one prompt submission.
type Request struct {
	System      string
	Examples    []Exchange
	Prompt      string
	MaxTokens   int
	Temperature *float64
	// JSON asks providers with a native JSON mode to use it.
	JSON bool
}

// Response is the raw text answer of a provider.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client is implemented by every provider.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Retrier is implemented by clients that own a retry policy. Generate and
// Extract run the whole call-and-decode step through it so that a reply that
// fails to parse is retried like a transport failure.
type Retrier interface {
	Retry(ctx context.Context, op string, fn func(ctx context.Context) error) error
}

// StatusError is a non-2xx answer from a provider endpoint.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, body)
}

// Temporary reports whether the request may succeed if sent again:
// rate limiting, timeouts and server-side failures.
func (e *StatusError) Temporary() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusConflict,
		e.StatusCode >= 500:
		return true
	}
	return false
}

func withRetry(ctx context.Context, c Client, op string, fn func(ctx context.Context) error) error {
	if r, ok := c.(Retrier); ok {
		return r.Retry(ctx, op, fn)
	}
	return fn(ctx)
}

// Generate sends a freeform prompt and returns the cleaned reply.
func Generate(ctx context.Context, c Client, prompt string) (string, error) {
	return GenerateRequest(ctx, c, Request{Prompt: prompt})
}

// GenerateRequest is Generate with full control over the request.
func GenerateRequest(ctx context.Context, c Client, req Request) (string, error) {
	var text string
	err := withRetry(ctx, c, c.Name()+" generate", func(ctx context.Context) error {
		resp, err := c.Complete(ctx, req)
		if err != nil {
			return err
		}
		cleaned := postprocess.Clean(resp.Text)
		if strings.TrimSpace(cleaned) == "" {
			return ErrEmptyResponse
		}
		text = cleaned
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
