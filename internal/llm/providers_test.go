package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGemini_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/models/gemini-test:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "k" {
			t.Errorf("expected api key in query")
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("expected JSON mime type, got %q", req.GenerationConfig.ResponseMimeType)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "be terse" {
			t.Errorf("system instruction not sent")
		}
		// one example pair plus the prompt
		if len(req.Contents) != 3 || req.Contents[1].Role != "model" {
			t.Errorf("unexpected contents: %+v", req.Contents)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Homage "},{"text":"to Manjushri"}]}}],"usageMetadata":{"promptTokenCount":7,"candidatesTokenCount":3}}`))
	}))
	defer server.Close()

	g, err := NewGemini("k", "gemini-test", server.URL)
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	resp, err := g.Complete(context.Background(), Request{
		System:   "be terse",
		Examples: []Exchange{{User: "q", Model: "a"}},
		Prompt:   "translate",
		JSON:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "Homage to Manjushri" {
		t.Errorf("got %q", resp.Text)
	}
	if resp.InputTokens != 7 || resp.OutputTokens != 3 {
		t.Errorf("usage not mapped: %+v", resp)
	}
}

func TestGemini_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota"}}`))
	}))
	defer server.Close()

	g, _ := NewGemini("k", "", server.URL)
	_, err := g.Complete(context.Background(), Request{Prompt: "x"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !se.Temporary() {
		t.Error("429 should be temporary")
	}
}

func TestGemini_MissingKey(t *testing.T) {
	if _, err := NewGemini("", "", ""); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestOpenRouter_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "m1" {
			t.Errorf("expected model m1, got %v", body["model"])
		}
		if _, ok := body["response_format"]; !ok {
			t.Error("expected response_format for JSON request")
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}],"usage":{"prompt_tokens":2,"completion_tokens":1}}`))
	}))
	defer server.Close()

	c, err := NewOpenRouter("secret", server.URL, []string{"m1"})
	if err != nil {
		t.Fatalf("NewOpenRouter: %v", err)
	}
	resp, err := c.Complete(context.Background(), Request{Prompt: "p", JSON: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != `{"ok":true}` || resp.Model != "m1" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestOpenRouter_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	c, _ := NewOpenRouter("secret", server.URL, nil)
	if _, err := c.Complete(context.Background(), Request{Prompt: "p"}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOllama_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("expected stream=false")
		}
		if req.Format != "json" {
			t.Errorf("expected format json, got %q", req.Format)
		}
		if !strings.HasPrefix(req.Prompt, "ex-user\nex-model\n\n") {
			t.Errorf("examples not flattened: %q", req.Prompt)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Model: "llama3.2", Response: "{}", EvalCount: 1})
	}))
	defer server.Close()

	o := NewOllama("", server.URL)
	resp, err := o.Complete(context.Background(), Request{
		Prompt:   "p",
		JSON:     true,
		Examples: []Exchange{{User: "ex-user", Model: "ex-model"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "{}" {
		t.Errorf("got %q", resp.Text)
	}
}

func TestOllama_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewOllama("m", server.URL).Complete(context.Background(), Request{Prompt: "p"})
	var se *StatusError
	if !errors.As(err, &se) || se.Temporary() {
		t.Errorf("expected permanent StatusError, got %v", err)
	}
}

func TestAnthropic_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "ak" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",` +
			`"content":[{"type":"text","text":"The awakening mind"}],` +
			`"stop_reason":"end_turn","usage":{"input_tokens":11,"output_tokens":4}}`))
	}))
	defer server.Close()

	a, err := NewAnthropic("ak", "claude-test", server.URL)
	if err != nil {
		t.Fatalf("NewAnthropic: %v", err)
	}
	resp, err := a.Complete(context.Background(), Request{Prompt: "translate", System: "scholar"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "The awakening mind" || resp.InputTokens != 11 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestAnthropic_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
	}))
	defer server.Close()

	a, _ := NewAnthropic("ak", "", server.URL)
	_, err := a.Complete(context.Background(), Request{Prompt: "p"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable || !se.Temporary() {
		t.Errorf("unexpected status error %+v", se)
	}
}

func TestNew_Providers(t *testing.T) {
	if _, err := New(ProviderConfig{Provider: "bogus"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := New(ProviderConfig{Provider: "anthropic"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
	c, err := New(ProviderConfig{Provider: "ollama"})
	if err != nil || c.Name() != "ollama" {
		t.Errorf("ollama provider: %v", err)
	}
}

func TestStatusError_Temporary(t *testing.T) {
	cases := map[int]bool{400: false, 401: false, 404: false, 408: true, 429: true, 500: true, 529: true}
	for code, want := range cases {
		if got := (&StatusError{StatusCode: code}).Temporary(); got != want {
			t.Errorf("status %d: Temporary() = %v, want %v", code, got, want)
		}
	}
}
