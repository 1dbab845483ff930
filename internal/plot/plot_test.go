package plot

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

var red = color.RGBA{R: 255, A: 255}

func isWhite(c color.RGBA) bool { return c == color.RGBA{255, 255, 255, 255} }

// TestPlotDrawsInsidePanel checks a horizontal line lands on the expected row only inside its panel.
func TestPlotDrawsInsidePanel(t *testing.T) {
	fig := NewFigure(200, 100)
	p := fig.Panel(image.Rect(0, 0, 100, 100))
	p.SetLimits(0, 10, 0, 10)
	p.LineWidth = 2
	p.Plot([2]float64{1, 9}, [2]float64{5, 5}, red)

	img := fig.Image()
	if got := img.RGBAAt(50, 50); got != red {
		t.Fatalf("line pixel = %v", got)
	}
	if got := img.RGBAAt(50, 20); !isWhite(got) {
		t.Fatalf("off-line pixel = %v", got)
	}
	for x := 100; x < 200; x++ {
		for y := 0; y < 100; y++ {
			if !isWhite(img.RGBAAt(x, y)) {
				t.Fatalf("pixel (%d,%d) outside panel touched", x, y)
			}
		}
	}
}

// TestPlotClipsOutOfRange checks a segment crossing the panel edge is clipped, not dropped.
func TestPlotClipsOutOfRange(t *testing.T) {
	fig := NewFigure(100, 100)
	p := fig.Panel(image.Rect(0, 0, 100, 100))
	p.SetLimits(0, 10, 0, 10)
	p.LineWidth = 2
	p.Plot([2]float64{-50, 50}, [2]float64{5, 5}, red)
	if got := fig.Image().RGBAAt(50, 50); got != red {
		t.Fatalf("clipped line missing: %v", got)
	}
	// fully outside
	fig2 := NewFigure(10, 10)
	q := fig2.Panel(image.Rect(0, 0, 10, 10))
	q.Plot([2]float64{5, 6}, [2]float64{5, 6}, red)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if !isWhite(fig2.Image().RGBAAt(x, y)) {
				t.Fatalf("out of range segment drew at (%d,%d)", x, y)
			}
		}
	}
}

// TestImshowCoordinates checks image coordinates put (0,0) at the top left.
func TestImshowCoordinates(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	fig := NewFigure(100, 100)
	p := fig.Panel(image.Rect(0, 0, 100, 100))
	p.Imshow(src)
	x, y := p.toPixel(0, 0)
	if math.Abs(x-5) > 1e-9 || math.Abs(y-5) > 1e-9 {
		t.Fatalf("pixel (0,0) centre maps to (%v,%v)", x, y)
	}
	_, y = p.toPixel(0, 9)
	if math.Abs(y-95) > 1e-9 {
		t.Fatalf("row 9 maps to %v", y)
	}
}

// TestScatter checks a dot is filled at its centre.
func TestScatter(t *testing.T) {
	fig := NewFigure(50, 50)
	p := fig.Panel(image.Rect(0, 0, 50, 50))
	p.SetLimits(0, 50, 0, 50)
	p.Scatter([]float64{25}, []float64{25}, 3, color.Black)
	if got := fig.Image().RGBAAt(25, 25); got != (color.RGBA{0, 0, 0, 255}) {
		t.Fatalf("dot centre = %v", got)
	}
}

// TestViewInit checks the two camera poses used by the hand figure.
func TestViewInit(t *testing.T) {
	fig := NewFigure(10, 10)
	p := fig.Panel3D(image.Rect(0, 0, 10, 10))
	p.SetLimits3D([2]float64{-2, 2}, [2]float64{-2, 2}, [2]float64{-2, 2})

	p.ViewInit(-90, 90)
	if got := p.Project(mgl64.Vec3{2, 1, 0}); !got.ApproxEqual(mgl64.Vec3{1, 0.5, 0}) {
		t.Fatalf("top view projects to %v", got)
	}
	p.ViewInit(-90, -90)
	if got := p.Project(mgl64.Vec3{2, 1, 0}); !got.ApproxEqualThreshold(mgl64.Vec3{1, -0.5, 0}, 1e-9) {
		t.Fatalf("camera view projects to %v", got)
	}
	p.ViewInit(-90, 0)
	if got := p.Project(mgl64.Vec3{0, 0, 2}); !got.ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Fatalf("side view projects z to %v", got)
	}
}

// TestViridisEnds checks the colour map endpoints and clamping.
func TestViridisEnds(t *testing.T) {
	if got := Viridis(0); got != (color.RGBA{68, 1, 84, 255}) {
		t.Fatalf("viridis(0) = %v", got)
	}
	if got := Viridis(1); got != (color.RGBA{253, 231, 37, 255}) {
		t.Fatalf("viridis(1) = %v", got)
	}
	if Viridis(-3) != Viridis(0) || Viridis(7) != Viridis(1) {
		t.Fatalf("viridis does not clamp")
	}
}

// TestSavePNG writes a figure to disk, replacing an existing file whole.
func TestSavePNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.png")
	if err := NewFigure(40, 40).SavePNG(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := NewFigure(4, 6).SavePNG(path); err != nil {
		t.Fatalf("save over: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 4, 6) {
		t.Fatalf("bounds %v", img.Bounds())
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v %v", entries, err)
	}

	fig := NewFigure(4, 4)
	if err := fig.SavePNG(filepath.Join(t.TempDir(), "missing", "f.png")); err == nil {
		t.Fatalf("expect error for missing directory")
	}
}

// TestPanel3DDeferred checks segments are drawn with the camera in effect at render time.
func TestPanel3DDeferred(t *testing.T) {
	fig := NewFigure(100, 100)
	p := fig.Panel3D(image.Rect(0, 0, 100, 100))
	p.LineWidth = 2
	p.SetLimits3D([2]float64{-2, 2}, [2]float64{-2, 2}, [2]float64{-2, 2})
	// a segment along +y from the origin
	p.Plot3D([2]float64{0, 0}, [2]float64{0, 1.5}, [2]float64{0, 0}, red)
	p.ViewInit(-90, -90)
	if p.Segments() != 1 {
		t.Fatalf("segments = %d", p.Segments())
	}

	img := fig.Image()
	// camera view flips y: the segment points down from the centre
	if got := img.RGBAAt(50, 60); got != red {
		t.Fatalf("expected segment below centre, got %v", got)
	}
	if got := img.RGBAAt(50, 40); !isWhite(got) {
		t.Fatalf("expected nothing above centre, got %v", got)
	}
}
