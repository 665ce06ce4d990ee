// Package batch drives many passages through the workflow and many files
// through the simple translator.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/jsonl"
)

// ErrNoRecords is returned when a run has nothing to translate.
var ErrNoRecords = errors.New("no records to translate")

const (
	DefaultBatchSize = 2
	DefaultRunName   = "translation_states"
)

// Workflow translates one record.
type Workflow interface {
	Run(ctx context.Context, rec internal.Record) (internal.Record, error)
}

// Memory remembers accepted records across runs.
type Memory interface {
	GetRecord(ctx context.Context, source, language string) (internal.Record, bool, error)
	SaveRecord(ctx context.Context, rec internal.Record, runName string) error
}

// Summary counts the records of one run.
type Summary struct {
	Output     string
	FailOutput string
	Batches    int
	Failed     int
	Succeeded  int
	Skipped    int
	// FailedBatches counts batches written to the fail sink.
	FailedBatches int
}

type Runner struct {
	workflow Workflow
	memory   Memory
	dir      string
	logger   *zap.Logger
}

// NewRunner writes run files into dir.
func NewRunner(workflow Workflow, dir string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{workflow: workflow, dir: dir, logger: logger.Named("batch")}
}

// WithMemory makes the runner skip records already accepted in an earlier
// run and remember the ones accepted now.
func (r *Runner) WithMemory(m Memory) *Runner {
	r.memory = m
	return r
}

// Paths returns the output and fail sink of runName.
func (r *Runner) Paths(runName string) (string, string) {
	return filepath.Join(r.dir, runName+".jsonl"), filepath.Join(r.dir, runName+"_fail.jsonl")
}

// Run processes records in consecutive batches of batchSize. Records of one
// batch run concurrently. A batch is all or nothing: when any record fails,
// every input record of the batch is appended to the fail sink and the run
// continues with the next batch. Only cancellation of ctx stops the run.
func (r *Runner) Run(ctx context.Context, records []internal.Record, batchSize int, runName string) (Summary, error) {
	if len(records) == 0 {
		return Summary{}, ErrNoRecords
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if runName == "" {
		runName = DefaultRunName
	}
	out, fail := r.Paths(runName)
	sum := Summary{Output: out, FailOutput: fail}
	sink, failSink := jsonl.NewWriter(out), jsonl.NewWriter(fail)

	pending, err := r.pending(ctx, records, &sum)
	if err != nil {
		return sum, err
	}

	for start := 0; start < len(pending); start += batchSize {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		end := min(start+batchSize, len(pending))
		batch := pending[start:end]
		sum.Batches++
		log := r.logger.With(zap.String("run", runName), zap.Int("batch", sum.Batches), zap.Int("size", len(batch)))

		results, err := r.runBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			log.Error("batch failed", zap.Error(err))
			sum.Failed += len(batch)
			sum.FailedBatches++
			if err := appendAll(failSink, batch); err != nil {
				return sum, fmt.Errorf("write fail sink: %w", err)
			}
			continue
		}

		if err := appendAll(sink, results); err != nil {
			return sum, fmt.Errorf("write output: %w", err)
		}
		sum.Succeeded += len(results)
		r.remember(ctx, results, runName)
		log.Info("batch done")
	}

	return sum, nil
}

// pending drops records the memory already holds.
func (r *Runner) pending(ctx context.Context, records []internal.Record, sum *Summary) ([]internal.Record, error) {
	if r.memory == nil {
		return records, nil
	}
	out := make([]internal.Record, 0, len(records))
	for _, rec := range records {
		_, found, err := r.memory.GetRecord(ctx, rec.Source, rec.Language)
		if err != nil {
			return nil, fmt.Errorf("translation memory: %w", err)
		}
		if found {
			sum.Skipped++
			continue
		}
		out = append(out, rec)
	}
	if sum.Skipped > 0 {
		r.logger.Info("skipping records from translation memory", zap.Int("skipped", sum.Skipped))
	}
	return out, nil
}

func (r *Runner) runBatch(ctx context.Context, batch []internal.Record) ([]internal.Record, error) {
	results := make([]internal.Record, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for i, rec := range batch {
		g.Go(func() error {
			res, err := r.workflow.Run(gctx, rec)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) remember(ctx context.Context, results []internal.Record, runName string) {
	if r.memory == nil {
		return
	}
	for _, rec := range results {
		if err := r.memory.SaveRecord(ctx, rec, runName); err != nil {
			r.logger.Warn("failed to save record to translation memory", zap.String("record", rec.ID), zap.Error(err))
		}
	}
}

func appendAll(w *jsonl.Writer, records []internal.Record) error {
	values := make([]any, len(records))
	for i, rec := range records {
		values[i] = rec
	}
	return w.Append(values...)
}
