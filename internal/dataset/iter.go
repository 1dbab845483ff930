package dataset

import (
	"math/rand/v2"

	"github.com/bdougie/handpose/internal/models"
)

// Cycle repeats a fixed sample list forever, restarting at the first
// sample after the last one.
type Cycle struct {
	samples []models.Sample
	pos     int
	epoch   int
}

// NewCycle panics on an empty list; callers validate first.
func NewCycle(samples []models.Sample) *Cycle {
	if len(samples) == 0 {
		panic("dataset: cycle over empty sample list")
	}
	return &Cycle{samples: samples}
}

// Next returns the next sample
func (c *Cycle) Next() models.Sample {
	s := c.samples[c.pos]
	c.pos++
	if c.pos == len(c.samples) {
		c.pos = 0
		c.epoch++
	}
	return s
}

// Epoch returns how many full passes have completed
func (c *Cycle) Epoch() int { return c.epoch }

// Shuffler draws uniformly from a bounded buffer that is refilled from the
// source after every draw. With an infinite source the buffer never drains.
type Shuffler struct {
	src *Cycle
	buf []models.Sample
	cap int
	rng *rand.Rand
}

// NewShuffler wraps src with a look-ahead buffer of size bufSize
func NewShuffler(src *Cycle, bufSize int, rng *rand.Rand) *Shuffler {
	if bufSize < 1 {
		bufSize = 1
	}
	return &Shuffler{src: src, cap: bufSize, rng: rng, buf: make([]models.Sample, 0, bufSize)}
}

// Next returns one sample from the buffer and replaces it with the next source sample
func (s *Shuffler) Next() models.Sample {
	for len(s.buf) < s.cap {
		s.buf = append(s.buf, s.src.Next())
	}
	i := s.rng.IntN(len(s.buf))
	out := s.buf[i]
	s.buf[i] = s.src.Next()
	return out
}
