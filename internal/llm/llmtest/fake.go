// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/valpere/tibtran/internal/llm"
)

// ErrNoRule is returned when no rule matches a prompt and no default is set.
var ErrNoRule = errors.New("llmtest: no rule matches prompt")

// Rule answers prompts containing Match. Replies are consumed in order and
// the last one repeats. Err, when set, is returned instead of a reply.
type Rule struct {
	Match   string
	Replies []string
	Err     error

	used int
}

// Fake is a concurrency-safe scripted client. Rules are tried in order.
type Fake struct {
	mu      sync.Mutex
	rules   []*Rule
	Default string

	calls   atomic.Int32
	prompts []string
}

// New returns a Fake with the given rules.
func New(rules ...Rule) *Fake {
	f := &Fake{}
	for i := range rules {
		r := rules[i]
		f.rules = append(f.rules, &r)
	}
	return f
}

// On adds a rule and returns f for chaining.
func (f *Fake) On(match string, replies ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, &Rule{Match: match, Replies: replies})
	return f
}

// Fail adds a rule that always returns err.
func (f *Fake) Fail(match string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, &Rule{Match: match, Err: err})
	return f
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Prompt)

	for _, r := range f.rules {
		if !strings.Contains(req.Prompt, r.Match) {
			continue
		}
		if r.Err != nil {
			return nil, r.Err
		}
		if len(r.Replies) == 0 {
			return &llm.Response{Text: f.Default, Model: "fake"}, nil
		}
		idx := r.used
		if idx >= len(r.Replies) {
			idx = len(r.Replies) - 1
		}
		r.used++
		return &llm.Response{Text: r.Replies[idx], Model: "fake"}, nil
	}
	if f.Default != "" {
		return &llm.Response{Text: f.Default, Model: "fake"}, nil
	}
	return nil, ErrNoRule
}

// Calls returns the number of Complete calls.
func (f *Fake) Calls() int { return int(f.calls.Load()) }

// Prompts returns a copy of every prompt received, in call order.
func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// CallsMatching counts received prompts containing substr.
func (f *Fake) CallsMatching(substr string) int {
	n := 0
	for _, p := range f.Prompts() {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}
