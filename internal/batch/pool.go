package batch

import (
	"context"
	"sync"
	"time"
)

// DefaultWorkers is the number of input files processed at once.
const DefaultWorkers = 3

type PoolConfig struct {
	Workers int
	// Timeout bounds the processing of one file; zero means no limit.
	Timeout time.Duration
}

// FileResult is the outcome of one input file.
type FileResult struct {
	Input   string
	Output  string
	Err     error
	Latency time.Duration
}

type PoolResult struct {
	// Results are in completion order.
	Results   []FileResult
	Succeeded int
	Failed    int
}

// FileFunc processes one input file and returns the path it wrote.
type FileFunc func(ctx context.Context, input string) (string, error)

// Pool runs a FileFunc over whole files with a bounded number of workers.
// Workers share nothing but fn.
type Pool struct {
	config PoolConfig
}

func NewPool(config PoolConfig) *Pool {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	return &Pool{config: config}
}

func (p *Pool) Process(ctx context.Context, files []string, fn FileFunc) *PoolResult {
	result := &PoolResult{Results: make([]FileResult, 0, len(files))}

	results := make(chan FileResult, len(files))
	sem := make(chan struct{}, p.config.Workers)

	var wg sync.WaitGroup
	for _, file := range files {
		wg.Add(1)
		go func(input string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- FileResult{Input: input, Err: ctx.Err()}
				return
			}

			fileCtx, cancel := p.fileContext(ctx)
			defer cancel()

			start := time.Now()
			output, err := fn(fileCtx, input)
			results <- FileResult{Input: input, Output: output, Err: err, Latency: time.Since(start)}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.Err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
		result.Results = append(result.Results, r)
	}

	return result
}

func (p *Pool) fileContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.config.Timeout > 0 {
		return context.WithTimeout(ctx, p.config.Timeout)
	}
	return context.WithCancel(ctx)
}
