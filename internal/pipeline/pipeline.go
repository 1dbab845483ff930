package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/nfnt/resize"

	"github.com/bdougie/handpose/internal/heatmap"
	"github.com/bdougie/handpose/internal/models"
)

// ErrDecode marks an image file that could not be decoded
var ErrDecode = errors.New("image decode failed")

// Transformer turns a Sample into a network-ready Example.
// The zero value uses models.ImageSize and heatmap.DefaultSigma.
type Transformer struct {
	Size  int
	Sigma float64
}

// Transform decodes, resizes and normalizes the sample image and rasterizes
// its 2D keypoints. It holds no state and may run concurrently.
func (t Transformer) Transform(s models.Sample) (models.Example, error) {
	size := t.Size
	if size <= 0 {
		size = models.ImageSize
	}
	sigma := t.Sigma
	if sigma <= 0 {
		sigma = heatmap.DefaultSigma
	}

	img, err := decode(s.ImagePath)
	if err != nil {
		return models.Example{}, err
	}

	coords := make([][2]float32, models.NumJoints)
	for i, kp := range s.Keypoints2D {
		coords[i] = kp
	}
	hm := heatmap.Gaussian(coords, size, size, heatmap.WithSigma(sigma))

	return models.Example{
		Sample:  s,
		Image:   Normalize(img, size),
		Heatmap: hm.Data,
		Height:  size,
		Width:   size,
	}, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return img, nil
}

// Normalize resizes img to size x size with nearest-neighbour sampling and
// maps each RGB channel from [0,255] to [-0.5,0.5]. Alpha is dropped without
// darkening: channels are read un-premultiplied.
func Normalize(img image.Image, size int) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.NearestNeighbor)
	b := resized.Bounds()

	out := make([]float32, size*size*3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.NRGBAModel.Convert(resized.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			p := (y*size + x) * 3
			out[p] = float32(c.R)/255.0 - 0.5
			out[p+1] = float32(c.G)/255.0 - 0.5
			out[p+2] = float32(c.B)/255.0 - 0.5
		}
	}
	return out
}
