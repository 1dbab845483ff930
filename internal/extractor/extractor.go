package extractor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cheggaaa/pb/v3"

	"github.com/bdougie/handpose/internal/config"
	"github.com/bdougie/handpose/internal/models"
)

// ErrListing marks a listing file whose entries do not describe whole samples
var ErrListing = errors.New("bad sample listing")

// Every sample is described by five files, in this order
var suffixes = [5]string{
	"_color_composed.png",
	"_crop_params.txt",
	"_joint2D.txt",
	"_joint_pos.txt",
	"_joint_pos_global.txt",
}

const idLen = 4

type entry struct {
	image string
	kp2d  []float64
	kp3d  []float64
}

// ExtractAnnotations reads every listing in listDir and writes the three flat
// annotation files into cacheDir. It returns the number of samples written,
// or zero when the cache is already complete.
func ExtractAnnotations(ctx context.Context, listDir, cacheDir string, logger *slog.Logger) (int, error) {
	// Check if listing directory exists
	if _, err := os.Stat(listDir); os.IsNotExist(err) {
		return 0, fmt.Errorf("listing directory does not exist at path: '%s'", listDir)
	}

	// Check if the cache already exists
	outPaths := []string{
		filepath.Join(cacheDir, config.PathsFile),
		filepath.Join(cacheDir, config.Keypoints2DFile),
		filepath.Join(cacheDir, config.Keypoints3DFile),
	}
	if cacheComplete(outPaths) {
		logger.Info("annotation cache already exists, skipping extraction", "dir", cacheDir)
		return 0, nil
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create cache directory '%s': %w", cacheDir, err)
	}

	files, err := os.ReadDir(listDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read listing directory '%s': %w", listDir, err)
	}
	var listings []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(strings.ToLower(file.Name()), ".txt") {
			listings = append(listings, filepath.Join(listDir, file.Name()))
		}
	}
	if len(listings) == 0 {
		return 0, fmt.Errorf("no listing files found in directory '%s'", listDir)
	}
	sort.Strings(listings)

	logger.Info("extracting annotations", "listings", len(listings), "cache", cacheDir)

	bar := pb.StartNew(len(listings))
	defer bar.Finish()

	var entries []entry
	for _, listing := range listings {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		got, err := readListing(listing)
		if err != nil {
			return 0, err
		}
		entries = append(entries, got...)
		bar.Increment()
	}

	if err := writeCache(outPaths, entries); err != nil {
		return 0, err
	}
	logger.Info("annotation cache written", "samples", len(entries), "cache", cacheDir)
	return len(entries), nil
}

func cacheComplete(paths []string) bool {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.Size() == 0 {
			return false
		}
	}
	return true
}

// readListing validates one listing and loads the joint files it names
func readListing(path string) ([]entry, error) {
	lines, err := nonEmptyLines(path)
	if err != nil {
		return nil, err
	}
	if len(lines)%len(suffixes) != 0 {
		return nil, fmt.Errorf("%w: %s has %d lines, not a multiple of %d", ErrListing, path, len(lines), len(suffixes))
	}

	var out []entry
	for i := 0; i < len(lines); i += len(suffixes) {
		group := lines[i : i+len(suffixes)]
		ids := make([]string, len(suffixes))
		for k, suffix := range suffixes {
			if !strings.HasSuffix(group[k], suffix) {
				return nil, fmt.Errorf("%w: %s line %d: %q does not end with %s", ErrListing, path, i+k+1, group[k], suffix)
			}
			ids[k] = sampleID(group[k], suffix)
		}
		if ids[0] != ids[2] || ids[2] != ids[3] {
			return nil, fmt.Errorf("%w: %s line %d: sample ids %q, %q, %q differ", ErrListing, path, i+1, ids[0], ids[2], ids[3])
		}

		kp2d, err := readValues(group[2], models.NumJoints*2)
		if err != nil {
			return nil, err
		}
		kp3d, err := readValues(group[3], models.NumJoints*3)
		if err != nil {
			return nil, err
		}
		out = append(out, entry{image: group[0], kp2d: kp2d, kp3d: kp3d})
	}
	return out, nil
}

// sampleID returns the four characters in front of the suffix
func sampleID(name, suffix string) string {
	stem := strings.TrimSuffix(name, suffix)
	if len(stem) < idLen {
		return stem
	}
	return stem[len(stem)-idLen:]
}

func nonEmptyLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, sc.Err()
}

// readValues parses a comma-delimited file holding exactly want numbers
func readValues(path string, want int) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fields := strings.FieldsFunc(string(data), func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
	if len(fields) != want {
		return nil, fmt.Errorf("%w: %s has %d values, want %d", ErrListing, path, len(fields), want)
	}
	out := make([]float64, want)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s value %d: %w", ErrListing, path, i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// writeCache writes each output to a temporary file first and renames it
// into place, so an interrupted run never leaves a complete-looking cache
func writeCache(outPaths []string, entries []entry) error {
	writers := []func(*bufio.Writer, entry) error{
		func(w *bufio.Writer, e entry) error {
			_, err := fmt.Fprintln(w, e.image)
			return err
		},
		func(w *bufio.Writer, e entry) error { return writeRow(w, e.kp2d) },
		func(w *bufio.Writer, e entry) error { return writeRow(w, e.kp3d) },
	}

	for i, dest := range outPaths {
		tmp := dest + ".tmp"
		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("failed to create '%s': %w", tmp, err)
		}
		w := bufio.NewWriter(f)
		for _, e := range entries {
			if err := writers[i](w, e); err != nil {
				f.Close()
				return err
			}
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		if err := os.Rename(tmp, dest); err != nil {
			return fmt.Errorf("failed to move '%s' into place: %w", dest, err)
		}
	}
	return nil
}

func writeRow(w *bufio.Writer, values []float64) error {
	for i, v := range values {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(strconv.FormatFloat(v, 'f', 6, 64)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}
