package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/bdougie/handpose/internal/models"
	"github.com/bdougie/handpose/internal/storage"
	"github.com/bdougie/handpose/internal/visualize"
)

const maxWorkers = 4

// BatchSource yields batches, such as a dataset.Stream
type BatchSource interface {
	Next(ctx context.Context) (models.Batch, error)
}

// Processor renders diagnostic figures for batches pulled from a stream
type Processor struct {
	source    BatchSource
	storage   storage.Storage
	logger    *slog.Logger
	outputDir string
	workers   int

	// now is the clock used to name output files
	now func() time.Time
}

// NewProcessor creates a processor writing figures to outputDir
func NewProcessor(source BatchSource, store storage.Storage, outputDir string, logger *slog.Logger) *Processor {
	return &Processor{
		source:    source,
		storage:   store,
		logger:    logger,
		outputDir: outputDir,
		workers:   maxWorkers,
		now:       time.Now,
	}
}

// WithWorkers sets the number of render workers
func (p *Processor) WithWorkers(n int) *Processor {
	if n > 0 {
		p.workers = n
	}
	return p
}

// ProcessEval pulls total batches and renders the first example of each.
// A stream error stops the run; render errors are collected and returned
// together after every pulled batch has been handled.
func (p *Processor) ProcessEval(ctx context.Context, total int) (int, error) {
	p.logger.Info("rendering evaluation samples", "total", total, "workers", p.workers, "output", p.outputDir)
	start := time.Now()

	workChan := make(chan models.Example, p.workers)
	errorsChan := make(chan error, total)

	var wg sync.WaitGroup
	var rendered atomic.Int64

	bar := pb.StartNew(total)

	// Start worker pool
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ex := range workChan {
				if err := p.render(ctx, ex); err != nil {
					errorsChan <- fmt.Errorf("sample %d failed: %w", ex.Sample.Index, err)
					continue
				}
				rendered.Add(1)
				bar.Increment()
			}
		}()
	}

	// Pull batches and hand them to the workers
	var streamErr error
	for i := 0; i < total; i++ {
		batch, err := p.source.Next(ctx)
		if err != nil {
			streamErr = fmt.Errorf("batch %d/%d: %w", i+1, total, err)
			break
		}
		if len(batch) == 0 {
			continue
		}
		workChan <- batch[0]
	}
	close(workChan)

	wg.Wait()
	close(errorsChan)
	bar.Finish()

	// Flush any remaining results
	flushErr := p.storage.Flush()
	if flushErr != nil {
		flushErr = fmt.Errorf("failed to flush final results: %w", flushErr)
	}

	var errs []error
	for err := range errorsChan {
		errs = append(errs, err)
	}
	errs = append(errs, streamErr, flushErr)
	err := errors.Join(errs...)

	n := int(rendered.Load())
	if err != nil {
		p.logger.Error("rendering finished with errors", "rendered", n, "err", err)
	} else {
		p.logger.Info("rendering finished", "rendered", n, "elapsed", time.Since(start).Round(time.Millisecond))
	}
	return n, err
}

func (p *Processor) render(ctx context.Context, ex models.Example) error {
	fig := visualize.Render(ex)
	path, err := visualize.Save(p.outputDir, fig, p.now())
	if err != nil {
		return err
	}
	p.logger.Debug("figure saved", "sample", ex.Sample.Index, "path", path)

	return p.storage.AddResult(ctx, models.RenderResult{
		Index:       ex.Sample.Index,
		ImagePath:   ex.Sample.ImagePath,
		OutputPath:  path,
		Keypoints3D: ex.Sample.Keypoints3D,
	})
}
