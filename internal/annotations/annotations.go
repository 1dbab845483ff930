// Package annotations loads the flat per-sample annotation files into memory.
package annotations

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bdougie/handpose/internal/models"
)

// ErrConfig marks annotation files that cannot describe a consistent dataset
var ErrConfig = errors.New("annotation config error")

const (
	cols2D = models.NumJoints * 2
	cols3D = models.NumJoints * 3
)

// Store holds every sample's image path and joint arrays. Rows are aligned
// by position across the three source files.
type Store struct {
	paths []string
	kp2d  []models.Keypoints2D
	kp3d  []models.Keypoints3D
}

// Load reads the image path list and the two comma-delimited keypoint matrices.
// All three files must have the same number of rows.
func Load(pathsFile, kp2dFile, kp3dFile string) (*Store, error) {
	paths, err := readLines(pathsFile)
	if err != nil {
		return nil, err
	}
	rows2D, err := readMatrix(kp2dFile, cols2D)
	if err != nil {
		return nil, err
	}
	rows3D, err := readMatrix(kp3dFile, cols3D)
	if err != nil {
		return nil, err
	}

	if len(paths) != len(rows2D) || len(paths) != len(rows3D) {
		return nil, fmt.Errorf("%w: row counts differ: %d paths, %d 2D rows, %d 3D rows",
			ErrConfig, len(paths), len(rows2D), len(rows3D))
	}

	s := &Store{
		paths: paths,
		kp2d:  make([]models.Keypoints2D, len(paths)),
		kp3d:  make([]models.Keypoints3D, len(paths)),
	}
	for i := range paths {
		for j := 0; j < models.NumJoints; j++ {
			s.kp2d[i][j] = [2]float32{rows2D[i][2*j], rows2D[i][2*j+1]}
			s.kp3d[i][j] = [3]float32{rows3D[i][3*j], rows3D[i][3*j+1], rows3D[i][3*j+2]}
		}
	}
	return s, nil
}

// Len returns the number of samples
func (s *Store) Len() int { return len(s.paths) }

// Sample returns row i
func (s *Store) Sample(i int) models.Sample {
	return models.Sample{
		Index:       i,
		ImagePath:   s.paths[i],
		Keypoints2D: s.kp2d[i],
		Keypoints3D: s.kp3d[i],
	}
}

// Samples returns rows [from, to)
func (s *Store) Samples(from, to int) []models.Sample {
	out := make([]models.Sample, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, s.Sample(i))
	}
	return out
}

// readLines returns every line of the file. A trailing empty line is dropped,
// any other blank line is an error.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfig, path, err)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		if l == "" {
			return nil, fmt.Errorf("%w: %s line %d is blank", ErrConfig, path, i+1)
		}
	}
	return lines, nil
}

func readMatrix(path string, cols int) ([][]float32, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	rows := make([][]float32, len(lines))
	for i, l := range lines {
		fields := strings.Split(l, ",")
		if len(fields) != cols {
			return nil, fmt.Errorf("%w: %s line %d has %d columns, want %d",
				ErrConfig, path, i+1, len(fields), cols)
		}
		row := make([]float32, cols)
		for j, field := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d column %d: %w", ErrConfig, path, i+1, j+1, err)
			}
			row[j] = float32(v)
		}
		rows[i] = row
	}
	return rows, nil
}
