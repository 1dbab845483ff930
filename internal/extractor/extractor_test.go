package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bdougie/handpose/internal/annotations"
	"github.com/bdougie/handpose/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func values(n int, base float64) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%g", base+float64(i)/4)
	}
	return strings.Join(parts, ",")
}

// writeSequence creates the per-sample files for ids and a listing naming them
func writeSequence(t *testing.T, dataDir, listDir, name string, ids []string) {
	t.Helper()
	var lines []string
	for n, id := range ids {
		stem := filepath.Join(dataDir, name+"_"+id)
		files := map[string]string{
			"_color_composed.png":   "png",
			"_crop_params.txt":      "0,0,1",
			"_joint2D.txt":          values(42, float64(n*10)),
			"_joint_pos.txt":        values(63, -float64(n)),
			"_joint_pos_global.txt": values(63, 0),
		}
		for _, suffix := range suffixes {
			if err := os.WriteFile(stem+suffix, []byte(files[suffix]+"\n"), 0o644); err != nil {
				t.Fatal(err)
			}
			lines = append(lines, stem+suffix)
		}
	}
	if err := os.WriteFile(filepath.Join(listDir, name+".txt"), []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func dirs(t *testing.T) (string, string, string) {
	root := t.TempDir()
	data, list, cache := filepath.Join(root, "data"), filepath.Join(root, "list"), filepath.Join(root, "cache")
	for _, d := range []string{data, list} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return data, list, cache
}

// TestExtractRoundTrip checks the cache loads back through the annotation store.
func TestExtractRoundTrip(t *testing.T) {
	data, list, cache := dirs(t)
	writeSequence(t, data, list, "0001", []string{"0000", "0001"})
	writeSequence(t, data, list, "0002", []string{"0000"})

	n, err := ExtractAnnotations(context.Background(), list, cache, quietLogger())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if n != 3 {
		t.Fatalf("samples = %d", n)
	}

	store, err := annotations.Load(
		filepath.Join(cache, config.PathsFile),
		filepath.Join(cache, config.Keypoints2DFile),
		filepath.Join(cache, config.Keypoints3DFile),
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if store.Len() != 3 {
		t.Fatalf("store len %d", store.Len())
	}
	s := store.Sample(1)
	if !strings.HasSuffix(s.ImagePath, "0001_0001_color_composed.png") {
		t.Fatalf("path %s", s.ImagePath)
	}
	if s.Keypoints2D[0] != [2]float32{10, 10.25} {
		t.Fatalf("2D %v", s.Keypoints2D[0])
	}
	if s.Keypoints3D[0] != [3]float32{-1, -0.75, -0.5} {
		t.Fatalf("3D %v", s.Keypoints3D[0])
	}

	// a second run leaves the cache alone
	n, err = ExtractAnnotations(context.Background(), list, cache, quietLogger())
	if err != nil || n != 0 {
		t.Fatalf("second run n=%d err=%v", n, err)
	}
}

// TestExtractIDMismatch checks cross-file id validation.
func TestExtractIDMismatch(t *testing.T) {
	data, list, cache := dirs(t)
	writeSequence(t, data, list, "0001", []string{"0000"})
	listing := filepath.Join(list, "0001.txt")
	raw, err := os.ReadFile(listing)
	if err != nil {
		t.Fatal(err)
	}
	bad := strings.Replace(string(raw), "0001_0000_joint_pos.txt", "0001_0009_joint_pos.txt", 1)
	if err := os.WriteFile(listing, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = ExtractAnnotations(context.Background(), list, cache, quietLogger())
	if !errors.Is(err, ErrListing) || !strings.Contains(err.Error(), "ids") {
		t.Fatalf("expect id mismatch, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cache, config.PathsFile)); !os.IsNotExist(statErr) {
		t.Fatalf("no cache should be written on failure")
	}
}

// TestExtractSuffixOrder checks a group out of order is rejected.
func TestExtractSuffixOrder(t *testing.T) {
	_, list, cache := dirs(t)
	lines := []string{
		"a_0000_crop_params.txt",
		"a_0000_color_composed.png",
		"a_0000_joint2D.txt",
		"a_0000_joint_pos.txt",
		"a_0000_joint_pos_global.txt",
	}
	if err := os.WriteFile(filepath.Join(list, "x.txt"), []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractAnnotations(context.Background(), list, cache, quietLogger()); !errors.Is(err, ErrListing) {
		t.Fatalf("expect ErrListing, got %v", err)
	}
}

// TestExtractPartialGroup checks line counts must be whole samples.
func TestExtractPartialGroup(t *testing.T) {
	_, list, cache := dirs(t)
	if err := os.WriteFile(filepath.Join(list, "x.txt"), []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractAnnotations(context.Background(), list, cache, quietLogger()); !errors.Is(err, ErrListing) {
		t.Fatalf("expect ErrListing, got %v", err)
	}
}

// TestExtractMissingDir reports a missing listing directory.
func TestExtractMissingDir(t *testing.T) {
	if _, err := ExtractAnnotations(context.Background(), filepath.Join(t.TempDir(), "none"), t.TempDir(), quietLogger()); err == nil {
		t.Fatalf("expect error")
	}
}

// TestExtractCanceled stops before reading listings.
func TestExtractCanceled(t *testing.T) {
	data, list, cache := dirs(t)
	writeSequence(t, data, list, "0001", []string{"0000"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ExtractAnnotations(ctx, list, cache, quietLogger()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expect context.Canceled, got %v", err)
	}
}
