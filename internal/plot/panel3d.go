package plot

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/draw"
)

type segment3D struct {
	a, b mgl64.Vec3
	c    color.Color
}

// Panel3D is a three-axis panel drawn with an orthographic camera.
// Segments are kept until the figure is rendered, so the camera and limits
// in effect at that point apply to everything plotted.
type Panel3D struct {
	*Panel
	lo, hi mgl64.Vec3
	view   mgl64.Mat3
	segs   []segment3D
}

// Panel3D adds a three-axis panel with limits [-1,1] on each axis and the
// camera looking straight down the z axis.
func (f *Figure) Panel3D(rect image.Rectangle) *Panel3D {
	p := &Panel3D{Panel: f.Panel(rect)}
	// a unit cube spans at most sqrt(3) after rotation
	const r = 1.7320508075688772
	p.Panel.SetLimits(-r, r, -r, r)
	p.SetLimits3D([2]float64{-1, 1}, [2]float64{-1, 1}, [2]float64{-1, 1})
	p.ViewInit(-90, 90)
	f.pending = append(f.pending, p)
	return p
}

// SetLimits3D sets the data range shown along each axis
func (p *Panel3D) SetLimits3D(x, y, z [2]float64) {
	p.lo = mgl64.Vec3{x[0], y[0], z[0]}
	p.hi = mgl64.Vec3{x[1], y[1], z[1]}
}

// ViewInit places the camera. Angles are in degrees; elev=90 looks down the
// z axis with x to the right and y up, azim rotates about z, and azim=-90
// keeps x to the right.
func (p *Panel3D) ViewInit(azim, elev float64) {
	rz := mgl64.Rotate3DZ(-mgl64.DegToRad(azim + 90))
	rx := mgl64.Rotate3DX(mgl64.DegToRad(elev - 90))
	p.view = rx.Mul3(rz)
}

// Project maps a data point into the rotated unit cube frame; x and y are
// screen axes, z is depth toward the viewer
func (p *Panel3D) Project(v mgl64.Vec3) mgl64.Vec3 {
	var n mgl64.Vec3
	for i := 0; i < 3; i++ {
		span := p.hi[i] - p.lo[i]
		if span == 0 || math.IsNaN(span) {
			continue
		}
		n[i] = 2*(v[i]-p.lo[i])/span - 1
	}
	return p.view.Mul3x1(n)
}

// Plot3D queues one segment
func (p *Panel3D) Plot3D(xs, ys, zs [2]float64, c color.Color) {
	p.segs = append(p.segs, segment3D{
		a: mgl64.Vec3{xs[0], ys[0], zs[0]},
		b: mgl64.Vec3{xs[1], ys[1], zs[1]},
		c: c,
	})
}

// Segments returns how many segments are queued
func (p *Panel3D) Segments() int { return len(p.segs) }

// render clears the panel and draws the queued segments with the current camera
func (p *Panel3D) render() {
	draw.Draw(p.fig.img, p.rect, image.White, image.Point{}, draw.Src)
	for _, s := range p.segs {
		a, b := p.Project(s.a), p.Project(s.b)
		p.Panel.Plot([2]float64{a[0], b[0]}, [2]float64{a[1], b[1]}, s.c)
	}
}
