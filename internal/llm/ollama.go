package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultOllamaModel = "llama3.2"

// Ollama calls a local Ollama server. It needs no credentials.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllama(model, baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (o *Ollama) Complete(ctx context.Context, req Request) (*Response, error) {
	body := ollamaRequest{
		Model:  o.model,
		Prompt: flattenExamples(req.Examples, req.Prompt),
		System: req.System,
		Stream: false,
	}
	if req.JSON {
		body.Format = "json"
	}
	opts := map[string]any{}
	if req.Temperature != nil {
		opts["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if len(opts) > 0 {
		body.Options = opts
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Provider: o.Name(), StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var or ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if strings.TrimSpace(or.Response) == "" {
		return nil, ErrEmptyResponse
	}
	return &Response{
		Text:         or.Response,
		Model:        or.Model,
		InputTokens:  or.PromptEvalCount,
		OutputTokens: or.EvalCount,
	}, nil
}

// flattenExamples renders few-shot turns inline for endpoints without a chat history.
func flattenExamples(examples []Exchange, prompt string) string {
	if len(examples) == 0 {
		return prompt
	}
	var sb strings.Builder
	for _, ex := range examples {
		fmt.Fprintf(&sb, "%s\n%s\n\n", ex.User, ex.Model)
	}
	sb.WriteString(prompt)
	return sb.String()
}
