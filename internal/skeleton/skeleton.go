// Package skeleton draws the 21-joint hand stick figure.
//
// Joint order is W, T0-T3, I0-I3, M0-M3, R0-R3, L0-L3: the wrist first, then
// thumb, index, middle, ring and little finger, each from base to tip.
package skeleton

import (
	"image/color"

	"github.com/bdougie/handpose/internal/models"
)

// Bone connects joint A to joint B
type Bone struct {
	A, B  int
	Color color.RGBA
}

// Bones is the fixed hand topology, one entry per bone, coloured along a
// blue to red ramp finger by finger.
var Bones = [20]Bone{
	{0, 1, rgb(0, 0, 0.5)},
	{4, 3, rgb(0, 0, 0.73172906)},
	{3, 2, rgb(0, 0, 0.96345811)},
	{2, 1, rgb(0, 0.12745098, 1)},

	{0, 5, rgb(0, 0.33137255, 1)},
	{8, 7, rgb(0, 0.55098039, 1)},
	{7, 6, rgb(0, 0.75490196, 1)},
	{6, 5, rgb(0.06008855, 0.9745098, 0.90765338)},

	{0, 9, rgb(0.22454143, 1, 0.74320051)},
	{12, 11, rgb(0.40164453, 1, 0.56609741)},
	{11, 10, rgb(0.56609741, 1, 0.40164453)},
	{10, 9, rgb(0.74320051, 1, 0.22454143)},

	{0, 13, rgb(0.90765338, 1, 0.06008855)},
	{16, 15, rgb(1, 0.82861293, 0)},
	{15, 14, rgb(1, 0.63979666, 0)},
	{14, 13, rgb(1, 0.43645606, 0)},

	{0, 17, rgb(1, 0.2476398, 0)},
	{20, 19, rgb(0.96345811, 0.0442992, 0)},
	{19, 18, rgb(0.73172906, 0, 0)},
	{18, 17, rgb(0.5, 0, 0)},
}

func rgb(r, g, b float64) color.RGBA {
	return color.RGBA{R: uint8(r*255 + 0.5), G: uint8(g*255 + 0.5), B: uint8(b*255 + 0.5), A: 255}
}

// Axes2D is a two-axis drawing surface
type Axes2D interface {
	Plot(xs, ys [2]float64, c color.Color)
}

// Axes3D is a three-axis drawing surface with a camera
type Axes3D interface {
	Plot3D(xs, ys, zs [2]float64, c color.Color)
	ViewInit(azim, elev float64)
}

// Draw2D plots every bone of kp. A non-nil fixed colour replaces the bone colours.
func Draw2D(ax Axes2D, kp models.Keypoints2D, fixed color.Color) {
	for _, b := range Bones {
		p, q := kp[b.A], kp[b.B]
		ax.Plot(
			[2]float64{float64(p[0]), float64(q[0])},
			[2]float64{float64(p[1]), float64(q[1])},
			pick(b, fixed),
		)
	}
}

// Draw3D plots every bone of kp and points the camera straight down the z axis.
func Draw3D(ax Axes3D, kp models.Keypoints3D, fixed color.Color) {
	for _, b := range Bones {
		p, q := kp[b.A], kp[b.B]
		ax.Plot3D(
			[2]float64{float64(p[0]), float64(q[0])},
			[2]float64{float64(p[1]), float64(q[1])},
			[2]float64{float64(p[2]), float64(q[2])},
			pick(b, fixed),
		)
	}
	ax.ViewInit(-90, 90)
}

func pick(b Bone, fixed color.Color) color.Color {
	if fixed != nil {
		return fixed
	}
	return b.Color
}
