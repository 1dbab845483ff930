package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bdougie/handpose/internal/models"
)

// ErrConfig marks a split or stream that cannot be built from the given parameters
var ErrConfig = errors.New("dataset config error")

// ErrClosed is returned by Next after Close
var ErrClosed = errors.New("dataset stream closed")

const (
	DefaultBatchSize     = 4
	DefaultShuffleBuffer = 320
	DefaultWorkers       = 4
	DefaultTrainCount    = 140000
)

// Source is a positional sample collection such as annotations.Store
type Source interface {
	Len() int
	Samples(from, to int) []models.Sample
}

// Split returns the train split (every sample) and the eval split (samples
// from boundary on).
func Split(src Source, boundary int) (train, eval []models.Sample, err error) {
	n := src.Len()
	if boundary <= 0 || boundary >= n {
		return nil, nil, fmt.Errorf("%w: split boundary %d outside (0, %d)", ErrConfig, boundary, n)
	}
	return src.Samples(0, n), src.Samples(boundary, n), nil
}

// TransformFunc maps one sample to an example; it must be safe for concurrent use
type TransformFunc func(models.Sample) (models.Example, error)

// Options configures a Stream. Zero fields take the package defaults.
type Options struct {
	BatchSize     int
	ShuffleBuffer int
	Workers       int
	// Seed fixes the shuffle order; 0 seeds from the clock.
	Seed uint64
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.ShuffleBuffer <= 0 {
		o.ShuffleBuffer = DefaultShuffleBuffer
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Seed == 0 {
		o.Seed = uint64(time.Now().UnixNano())
	}
	return o
}

type result struct {
	example models.Example
	err     error
}

// Stream is an infinite, shuffled, batched sequence of examples.
// Samples repeat forever; ordering across epochs is not guaranteed.
type Stream struct {
	batchSize int
	results   chan result
	done      <-chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// NewStream starts the feeder and transform workers. Call Close to stop them.
func NewStream(samples []models.Sample, transform TransformFunc, opts Options) (*Stream, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty sample list", ErrConfig)
	}
	if transform == nil {
		return nil, fmt.Errorf("%w: nil transform", ErrConfig)
	}
	opts = opts.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream{
		batchSize: opts.BatchSize,
		results:   make(chan result, opts.BatchSize*2),
		done:      ctx.Done(),
		cancel:    cancel,
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	shuffler := NewShuffler(NewCycle(samples), opts.ShuffleBuffer, rng)
	workChan := make(chan models.Sample)

	// Feed shuffled samples to the workers
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(workChan)
		for {
			select {
			case workChan <- shuffler.Next():
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start worker pool
	for i := 0; i < opts.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for sample := range workChan {
				ex, err := transform(sample)
				select {
				case s.results <- result{example: ex, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	return s, nil
}

// Next blocks until a full batch is ready. A transform error is returned as is
// and ends the stream; later calls return the same error.
func (s *Stream) Next(ctx context.Context) (models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	batch := make(models.Batch, 0, s.batchSize)
	for len(batch) < s.batchSize {
		select {
		case r := <-s.results:
			if r.err != nil {
				s.err = r.err
				s.Close()
				return nil, r.err
			}
			batch = append(batch, r.example)
		case <-s.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return batch, nil
}

// Close stops the feeder and workers and waits for them to exit
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}
