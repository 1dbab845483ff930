package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/bdougie/handpose/internal/embeddings"
	"github.com/bdougie/handpose/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresConfig holds connection details for PostgreSQL
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ConnString builds the pgx connection URL
func (c PostgresConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.DBName,
	}
	return u.String()
}

// PoseSearchResult is one nearest-pose hit
type PoseSearchResult struct {
	SampleIndex int
	ImagePath   string
	OutputPath  string
	Distance    float64
}

// PostgresStorage indexes rendered samples by their pose vector
type PostgresStorage struct {
	pool      *pgxpool.Pool
	splitID   int
	splitName string
	vectors   *embeddings.Service
}

// NewPostgresStorage creates a new PostgreSQL storage connection for one split
func NewPostgresStorage(ctx context.Context, config PostgresConfig, splitName string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	storage := &PostgresStorage{
		pool:      pool,
		splitName: splitName,
		vectors:   embeddings.NewService(),
	}

	splitID, err := storage.getOrCreateSplit(ctx, splitName)
	if err != nil {
		pool.Close()
		return nil, err
	}
	storage.splitID = splitID

	return storage, nil
}

// Close closes the database connection
func (s *PostgresStorage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// getOrCreateSplit gets an existing split entry or creates a new one
func (s *PostgresStorage) getOrCreateSplit(ctx context.Context, name string) (int, error) {
	var id int
	err := s.pool.QueryRow(ctx,
		"SELECT id FROM splits WHERE name = $1",
		name).Scan(&id)

	if err == nil {
		return id, nil
	} else if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("error checking for existing split: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		"INSERT INTO splits (name, created_at) VALUES ($1, $2) RETURNING id",
		name, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create split entry: %w", err)
	}

	return id, nil
}

// AddResult stores the render and the pose vector of its sample
func (s *PostgresStorage) AddResult(ctx context.Context, result models.RenderResult) error {
	var renderID int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO renders
        (split_id, sample_index, image_path, output_path, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (split_id, sample_index)
        DO UPDATE SET output_path = EXCLUDED.output_path, created_at = EXCLUDED.created_at
        RETURNING id`,
		s.splitID, result.Index, result.ImagePath, result.OutputPath, time.Now()).Scan(&renderID)
	if err != nil {
		return fmt.Errorf("failed to store render information: %w", err)
	}

	vec := s.vectors.Get(models.Sample{
		Index:       result.Index,
		ImagePath:   result.ImagePath,
		Keypoints3D: result.Keypoints3D,
	})

	_, err = s.pool.Exec(ctx,
		`INSERT INTO poses (render_id, embedding, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (render_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		renderID, pgvector.NewVector(vec), time.Now())
	if err != nil {
		return fmt.Errorf("failed to store pose: %w", err)
	}

	return nil
}

// Flush implements the Storage interface - no-op for Postgres as we save immediately
func (s *PostgresStorage) Flush() error {
	return nil
}

// SearchSimilarPoses returns the indexed samples closest to kp in pose space
func (s *PostgresStorage) SearchSimilarPoses(ctx context.Context, kp models.Keypoints3D, limit int) ([]PoseSearchResult, error) {
	query := pgvector.NewVector(embeddings.PoseVector(kp))

	rows, err := s.pool.Query(ctx,
		`SELECT r.sample_index, r.image_path, r.output_path,
        p.embedding <-> $1 AS distance
        FROM poses p
        JOIN renders r ON p.render_id = r.id
        WHERE r.split_id = $2
        ORDER BY p.embedding <-> $1
        LIMIT $3`,
		query, s.splitID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar poses: %w", err)
	}
	defer rows.Close()

	var results []PoseSearchResult
	for rows.Next() {
		var r PoseSearchResult
		if err := rows.Scan(&r.SampleIndex, &r.ImagePath, &r.OutputPath, &r.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan search results: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// InitSchema creates the database schema if it doesn't exist
func InitSchema(ctx context.Context, config PostgresConfig) error {
	conn, err := pgx.Connect(ctx, config.ConnString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	return nil
}

var schemaSQL = fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS splits (
            id SERIAL PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            UNIQUE(name)
        );

        CREATE TABLE IF NOT EXISTS renders (
            id SERIAL PRIMARY KEY,
            split_id INTEGER REFERENCES splits(id) ON DELETE CASCADE,
            sample_index INTEGER NOT NULL,
            image_path TEXT NOT NULL,
            output_path TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            UNIQUE(split_id, sample_index)
        );

        CREATE TABLE IF NOT EXISTS poses (
            id SERIAL PRIMARY KEY,
            render_id INTEGER REFERENCES renders(id) ON DELETE CASCADE,
            embedding vector(%d),
            created_at TIMESTAMPTZ NOT NULL,
            UNIQUE(render_id)
        );

        CREATE INDEX IF NOT EXISTS idx_renders_split_id ON renders(split_id);
    `, embeddings.Dim)
