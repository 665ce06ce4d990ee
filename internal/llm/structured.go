package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/tibtran/internal/postprocess"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// StructuredPrompt appends the output contract for T to prompt.
func StructuredPrompt[T any](prompt string) string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return prompt + "\n\nRespond with a single JSON object and nothing else. It must conform to this JSON schema:\n" + SchemaFor(t)
}

// Extract sends prompt and decodes the reply into a validated T.
func Extract[T any](ctx context.Context, c Client, prompt string) (T, error) {
	return ExtractRequest[T](ctx, c, Request{Prompt: prompt})
}

// ExtractRequest is Extract with full control over the request.
func ExtractRequest[T any](ctx context.Context, c Client, req Request) (T, error) {
	var out T
	req.Prompt = StructuredPrompt[T](req.Prompt)
	req.JSON = true

	op := fmt.Sprintf("%s extract %T", c.Name(), out)
	err := withRetry(ctx, c, op, func(ctx context.Context) error {
		resp, err := c.Complete(ctx, req)
		if err != nil {
			return err
		}
		v, err := Decode[T](resp.Text)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Decode parses the first JSON value in text into T and validates it.
func Decode[T any](text string) (T, error) {
	var v T
	raw, err := postprocess.ExtractJSON(text)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	if reflect.Indirect(reflect.ValueOf(&v)).Kind() == reflect.Struct {
		if err := validate.Struct(v); err != nil {
			return v, fmt.Errorf("validate %T: %w", v, err)
		}
	}
	return v, nil
}

// ExtractBatch runs Extract for every prompt with at most concurrency calls
// in flight. It is one logical unit: results are returned in prompt order
// only when every item succeeded, otherwise the first error is returned.
func ExtractBatch[T any](ctx context.Context, c Client, prompts []string, concurrency int) ([]T, error) {
	results := make([]T, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, p := range prompts {
		g.Go(func() error {
			v, err := Extract[T](gctx, c, p)
			if err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
