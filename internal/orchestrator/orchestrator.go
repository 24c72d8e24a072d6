// Package orchestrator coordinates the end-to-end transcription request:
// media fetch, transcode, quota admission, the primary engine call, the
// caption fallback, and the guaranteed cleanup of transient files.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/funlogix/Youtube-transcriber-api/internal/captions"
	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
	"github.com/funlogix/Youtube-transcriber-api/internal/media"
	"github.com/funlogix/Youtube-transcriber-api/internal/transcribe"
)

// Source names which path produced a result.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// Segment is one normalized transcript span with formatted boundaries.
type Segment struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Text  string `json:"text"`
}

// Result is the unified response shape for both paths.
type Result struct {
	Source     Source    `json:"source"`
	Transcript string    `json:"transcript"`
	Segments   []Segment `json:"segments"`
}

// ErrUnavailable is the single error surfaced to callers when both the
// primary path and the caption fallback are exhausted. The underlying
// causes are logged, never propagated.
var ErrUnavailable = errors.New("transcription unavailable")

// Collaborator contracts. The orchestrator only depends on these, so tests
// can substitute each external service.
type (
	Fetcher interface {
		Fetch(ctx context.Context, url, outPath string) (string, error)
	}
	Transcoder interface {
		Transcode(ctx context.Context, inputPath string) (string, error)
	}
	Prober interface {
		Duration(ctx context.Context, audioPath string) float64
	}
	Admitter interface {
		Admit(audioSeconds float64) error
	}
	CaptionSource interface {
		Transcript(ctx context.Context, videoID string) ([]captions.Cue, error)
	}
)

type Deps struct {
	Fetcher    Fetcher
	Transcoder Transcoder
	Prober     Prober
	Quota      Admitter
	Engine     transcribe.Engine
	Captions   CaptionSource

	WorkDir        string
	PrimaryTimeout time.Duration
}

type Orchestrator struct {
	deps Deps
}

func New(deps Deps) *Orchestrator {
	if deps.WorkDir == "" {
		deps.WorkDir = os.TempDir()
	}
	return &Orchestrator{deps: deps}
}

// artifactSet tracks the transient files a single request created. One
// request owns its set exclusively; no lock needed.
type artifactSet struct {
	paths []string
}

func (a *artifactSet) track(path string) {
	a.paths = append(a.paths, path)
}

// cleanup removes every tracked artifact. It runs on a context detached
// from the request so files are released even when the caller aborted.
func (a *artifactSet) cleanup(ctx context.Context) {
	media.RemoveArtifacts(context.WithoutCancel(ctx), a.paths...)
}

// Transcribe runs the full request lifecycle and returns exactly one of:
// a primary result, a fallback result, or ErrUnavailable. Any failure up to
// and including the primary engine call routes to the fallback branch
// instead of surfacing. Transient artifacts are deleted on every exit path.
func (o *Orchestrator) Transcribe(ctx context.Context, videoURL string) (*Result, error) {
	artifacts := &artifactSet{}
	defer artifacts.cleanup(ctx)

	result, primaryErr := o.primary(ctx, videoURL, artifacts)
	if primaryErr == nil {
		return result, nil
	}
	logger.Warn(ctx, "primary transcription failed, falling back to captions", primaryErr, logger.Fields{
		"engine": o.deps.Engine.Name(),
	})

	result, fallbackErr := o.fallback(ctx, videoURL)
	if fallbackErr != nil {
		logger.Error(ctx, "caption fallback failed, both paths exhausted", fallbackErr, logger.Fields{
			"url": videoURL,
		})
		return nil, ErrUnavailable
	}

	logger.Info(ctx, "caption fallback succeeded", logger.Fields{"segments": len(result.Segments)})
	return result, nil
}

// primary walks fetch → (hosted only: transcode → size ceiling → probe →
// quota) → engine call → normalize. The first failure aborts the branch.
func (o *Orchestrator) primary(ctx context.Context, videoURL string, artifacts *artifactSet) (*Result, error) {
	mediaPath := filepath.Join(o.deps.WorkDir, uuid.NewString()+".mp4")
	artifacts.track(mediaPath)

	if _, err := o.deps.Fetcher.Fetch(ctx, videoURL, mediaPath); err != nil {
		return nil, err
	}
	logger.Info(ctx, "media downloaded", logger.Fields{"url": videoURL})

	audioPath := mediaPath
	if hosted, ok := o.deps.Engine.(transcribe.HostedEngine); ok {
		// The encoder may leave a partial output behind when it fails, so
		// the output path joins the artifact set before the call, not after.
		transcodedPath := strings.TrimSuffix(mediaPath, ".mp4") + ".mp3"
		artifacts.track(transcodedPath)

		transcoded, err := o.deps.Transcoder.Transcode(ctx, mediaPath)
		if err != nil {
			return nil, err
		}
		if transcoded != transcodedPath {
			artifacts.track(transcoded)
		}
		audioPath = transcoded
		logger.Info(ctx, "media transcoded for upload")

		info, err := os.Stat(audioPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat transcoded audio: %w", err)
		}
		if info.Size() > hosted.MaxUploadBytes() {
			return nil, fmt.Errorf("audio file is %d bytes, exceeds the %dMB upload ceiling",
				info.Size(), hosted.MaxUploadBytes()/(1024*1024))
		}

		audioSeconds := o.deps.Prober.Duration(ctx, audioPath)
		if err := o.deps.Quota.Admit(audioSeconds); err != nil {
			return nil, err
		}
	}

	callCtx := ctx
	if o.deps.PrimaryTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.deps.PrimaryTimeout)
		defer cancel()
	}

	raw, err := o.deps.Engine.Transcribe(callCtx, audioPath)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "primary transcription complete", logger.Fields{
		"engine":   o.deps.Engine.Name(),
		"segments": len(raw.Segments),
	})

	return normalizePrimary(raw), nil
}

// fallback derives the video identifier and retrieves pre-existing
// captions. Caption cues arrive as {start, duration} pairs and are
// reconciled to {start, end} here.
func (o *Orchestrator) fallback(ctx context.Context, videoURL string) (*Result, error) {
	videoID, err := captions.ExtractVideoID(videoURL)
	if err != nil {
		return nil, err
	}

	cues, err := o.deps.Captions.Transcript(ctx, videoID)
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, len(cues))
	texts := make([]string, 0, len(cues))
	for _, cue := range cues {
		text := strings.TrimSpace(cue.Text)
		segments = append(segments, Segment{
			Start: FormatTimestamp(cue.Start),
			End:   FormatTimestamp(cue.Start + cue.Duration),
			Text:  text,
		})
		texts = append(texts, text)
	}

	return &Result{
		Source:     SourceFallback,
		Transcript: strings.Join(texts, " "),
		Segments:   segments,
	}, nil
}

func normalizePrimary(raw *transcribe.Result) *Result {
	segments := make([]Segment, 0, len(raw.Segments))
	for _, seg := range raw.Segments {
		segments = append(segments, Segment{
			Start: FormatTimestamp(seg.Start),
			End:   FormatTimestamp(seg.End),
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return &Result{
		Source:     SourcePrimary,
		Transcript: strings.TrimSpace(raw.Text),
		Segments:   segments,
	}
}
