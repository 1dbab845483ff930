package visualize

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bdougie/handpose/internal/heatmap"
	"github.com/bdougie/handpose/internal/models"
)

func example() models.Example {
	const size = 64
	var s models.Sample
	for j := range s.Keypoints2D {
		s.Keypoints2D[j] = [2]float32{float32(5 + 2*j), float32(10 + j)}
		s.Keypoints3D[j] = [3]float32{float32(j%5) * 0.3, float32(j/5) * 0.3, 0}
	}
	coords := make([][2]float32, models.NumJoints)
	for i, kp := range s.Keypoints2D {
		coords[i] = kp
	}
	img := make([]float32, size*size*3)
	for i := range img {
		img[i] = -0.5
	}
	return models.Example{
		Sample:  s,
		Image:   img,
		Heatmap: heatmap.Gaussian(coords, size, size, heatmap.WithSigma(4)).Data,
		Height:  size,
		Width:   size,
	}
}

// TestDenormalize checks the inverse pixel mapping with truncation and clamping.
func TestDenormalize(t *testing.T) {
	img := Denormalize([]float32{-0.5, 0, 0.5, 0.9, -1, 0.25}, 1, 2)
	if got := img.RGBAAt(0, 0); got.R != 0 || got.G != 127 || got.B != 255 || got.A != 255 {
		t.Fatalf("pixel 0 = %v", got)
	}
	if got := img.RGBAAt(1, 0); got.R != 255 || got.G != 0 || got.B != 191 {
		t.Fatalf("pixel 1 = %v", got)
	}
}

// TestRenderPanels checks each populated panel received ink.
func TestRenderPanels(t *testing.T) {
	fig := Render(example())
	img := fig.Image()
	side := 2*panelSize + 3*margin
	if b := img.Bounds(); b.Dx() != side || b.Dy() != side {
		t.Fatalf("figure %v", b)
	}
	nonWhite := func(x0, y0 int) int {
		n := 0
		for y := y0; y < y0+panelSize; y++ {
			for x := x0; x < x0+panelSize; x++ {
				c := img.RGBAAt(x, y)
				if c.R != 255 || c.G != 255 || c.B != 255 {
					n++
				}
			}
		}
		return n
	}
	if nonWhite(margin, margin) == 0 {
		t.Fatalf("image panel empty")
	}
	if nonWhite(2*margin+panelSize, margin) == 0 {
		t.Fatalf("3D panel empty")
	}
	if nonWhite(margin, 2*margin+panelSize) == 0 {
		t.Fatalf("heatmap panel empty")
	}
	if nonWhite(2*margin+panelSize, 2*margin+panelSize) != 0 {
		t.Fatalf("fourth cell should stay blank")
	}
}

// TestSaveSameSecond documents that two saves within one second share a file.
func TestSaveSameSecond(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	fig := Render(example())

	p1, err := Save(dir, fig, ts)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(p1) != "2024-03-09-14_05_07.png" {
		t.Fatalf("name %s", filepath.Base(p1))
	}
	p2, err := Save(dir, fig, ts.Add(400*time.Millisecond))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("expected same path, got %s and %s", p1, p2)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one file, got %d", len(entries))
	}
}

// TestSaveMissingDir surfaces the create error.
func TestSaveMissingDir(t *testing.T) {
	if _, err := Save(filepath.Join(t.TempDir(), "gone"), Render(example()), time.Now()); err == nil {
		t.Fatalf("expect error")
	}
}
