// Package archive copies finished transcripts to a GCS bucket for
// long-term retention. Archival is best-effort: a failed upload is logged
// and never fails the request that produced the transcript.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
	"github.com/funlogix/Youtube-transcriber-api/internal/orchestrator"
)

// Archiver writes transcript JSON objects into a bucket.
type Archiver struct {
	bucket string
	client *storage.Client
}

// NewArchiver creates an Archiver using ambient GCP credentials.
func NewArchiver(ctx context.Context, bucket string) (*Archiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Archiver{bucket: bucket, client: client}, nil
}

func (a *Archiver) Close() error {
	return a.client.Close()
}

// Archive stores the transcript as transcripts/<videoID>.json. Errors are
// returned for the caller to log; the object layout keeps one current
// transcript per video.
func (a *Archiver) Archive(ctx context.Context, videoID string, result *orchestrator.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	key := "transcripts/" + videoID + ".json"
	w := a.client.Bucket(a.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write transcript object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize transcript object: %w", err)
	}

	logger.Debug(ctx, "archived transcript", logger.Fields{
		"bucket": a.bucket,
		"object": key,
	})
	return nil
}
