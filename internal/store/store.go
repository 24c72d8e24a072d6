// Package store persists completed transcripts keyed by video identifier,
// so repeat requests for the same video skip the whole pipeline.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/funlogix/Youtube-transcriber-api/internal/orchestrator"
)

// Store wraps a sql.DB holding cached transcripts.
type Store struct {
	db *sql.DB
}

// NewStore opens the transcript database and verifies connectivity.
func NewStore(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the transcripts table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
		create table if not exists transcripts (
			video_id   text primary key,
			source     text not null,
			transcript text not null,
			segments   jsonb not null,
			created_at timestamptz not null default now()
		)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create transcripts table: %w", err)
	}
	return nil
}

// Get returns the cached transcript for a video, or nil when none exists.
func (s *Store) Get(ctx context.Context, videoID string) (*orchestrator.Result, error) {
	const query = `select source, transcript, segments from transcripts where video_id = $1`

	var (
		source     string
		transcript string
		rawSegs    []byte
	)
	err := s.db.QueryRowContext(ctx, query, videoID).Scan(&source, &transcript, &rawSegs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}

	var segments []orchestrator.Segment
	if err := json.Unmarshal(rawSegs, &segments); err != nil {
		return nil, fmt.Errorf("unmarshal cached segments: %w", err)
	}

	return &orchestrator.Result{
		Source:     orchestrator.Source(source),
		Transcript: transcript,
		Segments:   segments,
	}, nil
}

// Save upserts the transcript for a video.
func (s *Store) Save(ctx context.Context, videoID string, result *orchestrator.Result) error {
	const query = `
		insert into transcripts (video_id, source, transcript, segments)
		values ($1, $2, $3, $4)
		on conflict (video_id) do update
		set source = excluded.source,
		    transcript = excluded.transcript,
		    segments = excluded.segments,
		    created_at = now()`

	rawSegs, err := json.Marshal(result.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, videoID, string(result.Source), result.Transcript, rawSegs); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}
