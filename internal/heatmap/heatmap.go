package heatmap

import "math"

// DefaultSigma is the spread of every Gaussian bump, in pixels
const DefaultSigma = 25.0

// Stack is an (H, W, N) score map, one channel per keypoint.
// Data is row-major with the channel index innermost.
type Stack struct {
	H, W, N int
	Data    []float32
}

type options struct {
	sigma float64
	valid []bool
}

// Option configures Gaussian
type Option func(*options)

// WithSigma overrides DefaultSigma
func WithSigma(sigma float64) Option {
	return func(o *options) { o.sigma = sigma }
}

// WithValid marks which keypoints take part. Keypoints whose entry is false
// get an all-zero channel. Without this option every keypoint is valid.
// valid is matched to coords by index; keypoints past the end of a shorter
// slice count as valid and extra entries are ignored.
func WithValid(valid []bool) Option {
	return func(o *options) { o.valid = valid }
}

// Gaussian rasterizes one Gaussian bump per (u, v) coordinate over an h x w grid.
//
// Coordinates are truncated to integer pixels before the distance is taken.
// A keypoint that is invalid, or whose integer position is not strictly inside
// the grid (0 < v < h-1 and 0 < u < w-1), yields a channel of zeros.
func Gaussian(coords [][2]float32, h, w int, opts ...Option) *Stack {
	o := options{sigma: DefaultSigma}
	for _, opt := range opts {
		opt(&o)
	}

	n := len(coords)
	s := &Stack{H: h, W: w, N: n, Data: make([]float32, h*w*n)}
	sigmaSq := o.sigma * o.sigma

	for i, c := range coords {
		if o.valid != nil && i < len(o.valid) && !o.valid[i] {
			continue
		}
		u, v := int(c[0]), int(c[1])
		if v <= 0 || v >= h-1 || u <= 0 || u >= w-1 {
			continue
		}
		for row := 0; row < h; row++ {
			dy := float64(row - v)
			base := row * w * n
			for col := 0; col < w; col++ {
				dx := float64(col - u)
				s.Data[base+col*n+i] = float32(math.Exp(-(dy*dy + dx*dx) / sigmaSq))
			}
		}
	}
	return s
}

// At returns the value of channel ch at pixel (row, col)
func (s *Stack) At(row, col, ch int) float32 {
	return s.Data[(row*s.W+col)*s.N+ch]
}

// Channel copies out one channel as an h*w row-major plane
func (s *Stack) Channel(ch int) []float32 {
	out := make([]float32, s.H*s.W)
	for p := range out {
		out[p] = s.Data[p*s.N+ch]
	}
	return out
}

// Sum collapses the channels into one h*w plane
func (s *Stack) Sum() []float32 {
	out := make([]float32, s.H*s.W)
	for p := range out {
		var total float32
		for _, v := range s.Data[p*s.N : (p+1)*s.N] {
			total += v
		}
		out[p] = total
	}
	return out
}
