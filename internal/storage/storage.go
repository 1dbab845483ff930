package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bdougie/handpose/internal/models"
)

const batchSize = 10 // Number of results to batch write

// IndexFile is the manifest written next to the rendered figures
const IndexFile = "render_index.json"

// Storage defines the interface for recording rendered figures
type Storage interface {
	// AddResult adds a single render result
	AddResult(ctx context.Context, result models.RenderResult) error

	// Flush ensures all pending results are saved
	Flush() error
}

// FileStorage keeps a JSON manifest of rendered figures in the output directory
type FileStorage struct {
	results   []models.RenderResult
	mu        sync.Mutex
	outputDir string
}

// NewFileStorage creates a manifest writer for outputDir
func NewFileStorage(outputDir string) *FileStorage {
	return &FileStorage{
		results:   []models.RenderResult{},
		outputDir: outputDir,
	}
}

// Path returns the manifest location
func (s *FileStorage) Path() string {
	return filepath.Join(s.outputDir, IndexFile)
}

// AddResult adds a result to the batch and flushes if the batch is full
func (s *FileStorage) AddResult(ctx context.Context, result models.RenderResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)

	// Write to disk when batch is full
	if len(s.results) >= batchSize {
		return s.flush()
	}
	return nil
}

// Flush writes all pending results to disk
func (s *FileStorage) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *FileStorage) flush() error {
	if len(s.results) == 0 {
		return nil
	}

	existing, err := ReadIndex(s.Path())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	all := append(existing, s.results...)

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for index: %w", err)
	}
	file, err := os.Create(s.Path())
	if err != nil {
		return err
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(all); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	s.results = nil // Clear the batch
	return nil
}

// ReadIndex loads a manifest written by FileStorage
func ReadIndex(path string) ([]models.RenderResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var results []models.RenderResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index %s: %w", path, err)
	}
	return results, nil
}

// Multi fans results out to several stores
type Multi []Storage

// AddResult forwards to every store and stops at the first error
func (m Multi) AddResult(ctx context.Context, result models.RenderResult) error {
	for _, s := range m {
		if err := s.AddResult(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes every store and stops at the first error
func (m Multi) Flush() error {
	for _, s := range m {
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}
