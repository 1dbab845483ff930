// Package visualize builds the diagnostic figure for one example and writes
// it to disk.
package visualize

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"time"

	"github.com/bdougie/handpose/internal/heatmap"
	"github.com/bdougie/handpose/internal/models"
	"github.com/bdougie/handpose/internal/plot"
	"github.com/bdougie/handpose/internal/skeleton"
)

const (
	panelSize = 320
	margin    = 16

	// TimeLayout names output files; two figures saved within the same
	// second share a name and the later one wins.
	TimeLayout = "2006-01-02-15_04_05"
)

// Render draws a 2x2 grid: the image with the 2D skeleton, the 3D skeleton
// seen from the camera, and the summed heatmap. The fourth cell is empty.
func Render(ex models.Example) *plot.Figure {
	side := 2*panelSize + 3*margin
	fig := plot.NewFigure(side, side)

	cell := func(col, row int) image.Rectangle {
		x := margin + col*(panelSize+margin)
		y := margin + row*(panelSize+margin)
		return image.Rect(x, y, x+panelSize, y+panelSize)
	}

	xs, ys := joints2D(ex.Sample.Keypoints2D)

	ax1 := fig.Panel(cell(0, 0))
	ax1.Imshow(Denormalize(ex.Image, ex.Height, ex.Width))
	skeleton.Draw2D(ax1, ex.Sample.Keypoints2D, nil)
	ax1.Scatter(xs, ys, 2, color.Black)

	ax2 := fig.Panel3D(cell(1, 0))
	skeleton.Draw3D(ax2, ex.Sample.Keypoints3D, nil)
	ax2.SetLimits3D([2]float64{-2, 2}, [2]float64{-2, 2}, [2]float64{-2, 2})
	// line up the 3D frame with the camera image
	ax2.ViewInit(-90, -90)

	ax3 := fig.Panel(cell(0, 1))
	hm := heatmap.Stack{H: ex.Height, W: ex.Width, N: models.NumJoints, Data: ex.Heatmap}
	ax3.Heatmap(hm.Sum(), ex.Height, ex.Width)
	ax3.Scatter(xs, ys, 2, color.Black)

	return fig
}

func joints2D(kp models.Keypoints2D) ([]float64, []float64) {
	xs := make([]float64, len(kp))
	ys := make([]float64, len(kp))
	for i, p := range kp {
		xs[i], ys[i] = float64(p[0]), float64(p[1])
	}
	return xs, ys
}

// Denormalize maps [-0.5,0.5] RGB values back to 8-bit pixels, truncating
func Denormalize(data []float32, h, w int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := (y*w + x) * 3
			img.SetRGBA(x, y, color.RGBA{
				R: to8(data[p]),
				G: to8(data[p+1]),
				B: to8(data[p+2]),
				A: 255,
			})
		}
	}
	return img
}

func to8(v float32) uint8 {
	f := (v + 0.5) * 255
	return uint8(max(0, min(f, 255)))
}

// FileName returns the output name for a figure saved at t
func FileName(t time.Time) string {
	return t.Format(TimeLayout) + ".png"
}

// Save writes fig into dir, named after t, and returns the path
func Save(dir string, fig *plot.Figure, t time.Time) (string, error) {
	path := filepath.Join(dir, FileName(t))
	if err := fig.SavePNG(path); err != nil {
		return "", fmt.Errorf("save figure %s: %w", path, err)
	}
	return path, nil
}
