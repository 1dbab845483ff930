// Package plot is a small raster plotting surface: a white figure split into
// panels, each with its own data limits. It is enough to draw the diagnostic
// hand figures and nothing more.
package plot

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// DefaultLineWidth is the stroke width in pixels
const DefaultLineWidth = 1.0

// Figure is the canvas every panel draws into
type Figure struct {
	img     *image.RGBA
	pending []*Panel3D
}

// NewFigure returns a white w x h figure
func NewFigure(w, h int) *Figure {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return &Figure{img: img}
}

// Image renders any pending 3D panels and returns the backing image
func (f *Figure) Image() *image.RGBA {
	for _, p := range f.pending {
		p.render()
	}
	return f.img
}

// SavePNG encodes the figure to a temporary file next to path and renames it
// into place. Concurrent saves to the same path leave one complete image.
func (f *Figure) SavePNG(path string) error {
	out, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := out.Name()
	if err := png.Encode(out, f.Image()); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Panel is a two-axis plot occupying rect on the figure.
// Data y grows upward unless the panel shows an image.
type Panel struct {
	fig       *Figure
	rect      image.Rectangle
	x0, x1    float64
	y0, y1    float64
	invertY   bool
	LineWidth float64
}

// Panel adds a two-axis panel with unit limits
func (f *Figure) Panel(rect image.Rectangle) *Panel {
	return &Panel{fig: f, rect: rect.Intersect(f.img.Bounds()), x0: 0, x1: 1, y0: 0, y1: 1, LineWidth: DefaultLineWidth}
}

// Rect returns the panel area in figure pixels
func (p *Panel) Rect() image.Rectangle { return p.rect }

// SetLimits sets the visible data range
func (p *Panel) SetLimits(xmin, xmax, ymin, ymax float64) {
	p.x0, p.x1, p.y0, p.y1 = xmin, xmax, ymin, ymax
}

// Imshow stretches img over the panel and switches to image coordinates:
// pixel centres at integers, origin top left, y growing downward.
func (p *Panel) Imshow(img image.Image) {
	b := img.Bounds()
	draw.NearestNeighbor.Scale(p.fig.img, p.rect, img, b, draw.Src, nil)
	p.SetLimits(-0.5, float64(b.Dx())-0.5, -0.5, float64(b.Dy())-0.5)
	p.invertY = true
}

// Heatmap shows an h x w scalar field with the viridis colour map, scaled
// between its own minimum and maximum.
func (p *Panel) Heatmap(values []float32, h, w int) {
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var t float64
			if span > 0 {
				t = float64((values[y*w+x] - lo) / span)
			}
			img.SetRGBA(x, y, Viridis(t))
		}
	}
	p.Imshow(img)
}

// toPixel maps data coordinates to panel-relative pixel coordinates
func (p *Panel) toPixel(x, y float64) (float64, float64) {
	px := (x - p.x0) / (p.x1 - p.x0) * float64(p.rect.Dx())
	ty := (y - p.y0) / (p.y1 - p.y0)
	if !p.invertY {
		ty = 1 - ty
	}
	return px, ty * float64(p.rect.Dy())
}

// Plot draws the segment (xs[0], ys[0]) to (xs[1], ys[1])
func (p *Panel) Plot(xs, ys [2]float64, c color.Color) {
	ax, ay := p.toPixel(xs[0], ys[0])
	bx, by := p.toPixel(xs[1], ys[1])
	p.strokePixels(ax, ay, bx, by, c)
}

// Scatter draws a filled dot of the given pixel radius at every point
func (p *Panel) Scatter(xs, ys []float64, radius float64, c color.Color) {
	w, h := p.rect.Dx(), p.rect.Dy()
	for i := range xs {
		cx, cy := p.toPixel(xs[i], ys[i])
		if cx < -radius || cy < -radius || cx > float64(w)+radius || cy > float64(h)+radius {
			continue
		}
		r := vector.NewRasterizer(w, h)
		const steps = 12
		for k := 0; k <= steps; k++ {
			a := 2 * math.Pi * float64(k) / steps
			x := float32(cx + radius*math.Cos(a))
			y := float32(cy + radius*math.Sin(a))
			if k == 0 {
				r.MoveTo(clampF(x, w), clampF(y, h))
			} else {
				r.LineTo(clampF(x, w), clampF(y, h))
			}
		}
		r.ClosePath()
		r.Draw(p.fig.img, p.rect, image.NewUniform(c), image.Point{})
	}
}

// strokePixels fills a LineWidth-wide quad around the clipped segment
func (p *Panel) strokePixels(ax, ay, bx, by float64, c color.Color) {
	w, h := float64(p.rect.Dx()), float64(p.rect.Dy())
	ax, ay, bx, by, ok := clip(ax, ay, bx, by, w, h)
	if !ok {
		return
	}
	half := p.LineWidth / 2
	if half <= 0 {
		half = DefaultLineWidth / 2
	}
	dx, dy := bx-ax, by-ay
	n := math.Hypot(dx, dy)
	var nx, ny float64
	if n == 0 {
		// zero-length bone still leaves a dot
		nx, ny = half, 0
		ax, bx = ax-half, bx+half
	} else {
		nx, ny = -dy/n*half, dx/n*half
	}

	r := vector.NewRasterizer(p.rect.Dx(), p.rect.Dy())
	iw, ih := p.rect.Dx(), p.rect.Dy()
	r.MoveTo(clampF(float32(ax+nx), iw), clampF(float32(ay+ny), ih))
	r.LineTo(clampF(float32(bx+nx), iw), clampF(float32(by+ny), ih))
	r.LineTo(clampF(float32(bx-nx), iw), clampF(float32(by-ny), ih))
	r.LineTo(clampF(float32(ax-nx), iw), clampF(float32(ay-ny), ih))
	r.ClosePath()
	r.Draw(p.fig.img, p.rect, image.NewUniform(c), image.Point{})
}

func clampF(v float32, limit int) float32 {
	return max(0, min(v, float32(limit)))
}

// clip trims a segment to [0,w] x [0,h] (Liang-Barsky)
func clip(ax, ay, bx, by, w, h float64) (float64, float64, float64, float64, bool) {
	t0, t1 := 0.0, 1.0
	dx, dy := bx-ax, by-ay
	edges := [4][2]float64{
		{-dx, ax},
		{dx, w - ax},
		{-dy, ay},
		{dy, h - ay},
	}
	for _, e := range edges {
		pe, qe := e[0], e[1]
		if pe == 0 {
			if qe < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := qe / pe
		if pe < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = min(t1, t)
		}
	}
	return ax + t0*dx, ay + t0*dy, ax + t1*dx, ay + t1*dy, true
}
