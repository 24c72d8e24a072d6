package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funlogix/Youtube-transcriber-api/internal/captions"
	"github.com/funlogix/Youtube-transcriber-api/internal/quota"
	"github.com/funlogix/Youtube-transcriber-api/internal/transcribe"
)

const watchURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

// fakeFetcher writes a small media file unless rigged to fail.
type fakeFetcher struct {
	err    error
	called bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, outPath string) (string, error) {
	f.called = true
	if f.err != nil {
		return "", f.err
	}
	if err := os.WriteFile(outPath, []byte("media"), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

// fakeTranscoder writes an mp3 next to the input unless rigged to fail.
// With partialOutput set it writes the output file and then fails anyway,
// like an encoder dying mid-encode.
type fakeTranscoder struct {
	err           error
	partialOutput bool
	payload       []byte
	called        bool
}

func (t *fakeTranscoder) Transcode(ctx context.Context, inputPath string) (string, error) {
	t.called = true
	if t.err != nil {
		if t.partialOutput {
			outPath := strings.TrimSuffix(inputPath, ".mp4") + ".mp3"
			if werr := os.WriteFile(outPath, nil, 0o644); werr != nil {
				return "", werr
			}
		}
		return "", t.err
	}
	outPath := strings.TrimSuffix(inputPath, ".mp4") + ".mp3"
	payload := t.payload
	if payload == nil {
		payload = []byte("audio")
	}
	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

type fakeProber struct {
	seconds float64
}

func (p *fakeProber) Duration(ctx context.Context, audioPath string) float64 {
	return p.seconds
}

type fakeQuota struct {
	err    error
	called bool
}

func (q *fakeQuota) Admit(audioSeconds float64) error {
	q.called = true
	return q.err
}

// fakeHostedEngine implements transcribe.HostedEngine.
type fakeHostedEngine struct {
	result   *transcribe.Result
	err      error
	maxBytes int64
	called   bool
}

func (e *fakeHostedEngine) Name() string          { return "fake-hosted" }
func (e *fakeHostedEngine) MaxUploadBytes() int64 { return e.maxBytes }

func (e *fakeHostedEngine) Transcribe(ctx context.Context, audioPath string) (*transcribe.Result, error) {
	e.called = true
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

// fakeLocalEngine is a plain engine with no upload ceiling.
type fakeLocalEngine struct {
	result *transcribe.Result
	err    error
	called bool
}

func (e *fakeLocalEngine) Name() string { return "fake-local" }

func (e *fakeLocalEngine) Transcribe(ctx context.Context, audioPath string) (*transcribe.Result, error) {
	e.called = true
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

type fakeCaptions struct {
	cues   []captions.Cue
	err    error
	called bool
}

func (c *fakeCaptions) Transcript(ctx context.Context, videoID string) ([]captions.Cue, error) {
	c.called = true
	if c.err != nil {
		return nil, c.err
	}
	return c.cues, nil
}

type fixture struct {
	fetcher    *fakeFetcher
	transcoder *fakeTranscoder
	prober     *fakeProber
	quota      *fakeQuota
	captions   *fakeCaptions
	workDir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		fetcher:    &fakeFetcher{},
		transcoder: &fakeTranscoder{},
		prober:     &fakeProber{seconds: 10},
		quota:      &fakeQuota{},
		captions:   &fakeCaptions{},
		workDir:    t.TempDir(),
	}
}

func (f *fixture) orchestrator(engine transcribe.Engine) *Orchestrator {
	return New(Deps{
		Fetcher:        f.fetcher,
		Transcoder:     f.transcoder,
		Prober:         f.prober,
		Quota:          f.quota,
		Engine:         engine,
		Captions:       f.captions,
		WorkDir:        f.workDir,
		PrimaryTimeout: time.Minute,
	})
}

func (f *fixture) assertNoArtifactsLeft(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.workDir)
	require.NoError(t, err)
	for _, e := range entries {
		t.Errorf("transient artifact left behind: %s", e.Name())
	}
}

func helloWorldResult() *transcribe.Result {
	return &transcribe.Result{
		Text: "hello world",
		Segments: []transcribe.Segment{
			{Start: 0, End: 1, Text: "hello"},
			{Start: 1, End: 2, Text: "world"},
		},
	}
}

// Scenario A: every stage of the primary path succeeds.
func TestTranscribe_PrimarySuccess(t *testing.T) {
	f := newFixture(t)
	engine := &fakeHostedEngine{result: helloWorldResult(), maxBytes: 25 * 1024 * 1024}

	result, err := f.orchestrator(engine).Transcribe(context.Background(), watchURL)
	require.NoError(t, err)

	assert.Equal(t, SourcePrimary, result.Source)
	assert.Equal(t, "hello world", result.Transcript)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, Segment{Start: "0:00:00", End: "0:00:01", Text: "hello"}, result.Segments[0])
	assert.Equal(t, Segment{Start: "0:00:01", End: "0:00:02", Text: "world"}, result.Segments[1])

	assert.False(t, f.captions.called, "fallback must not run on primary success")
	f.assertNoArtifactsLeft(t)
}

// Scenario B: the transcoder fails, so quota and the primary call are
// skipped entirely and the request goes straight to captions.
func TestTranscribe_TranscodeFailureSkipsToFallback(t *testing.T) {
	f := newFixture(t)
	f.transcoder.err = errors.New("conversion failed")
	f.captions.cues = []captions.Cue{
		{Text: "first", Start: 0, Duration: 2},
		{Text: "second", Start: 2, Duration: 3.5},
	}
	engine := &fakeHostedEngine{maxBytes: 25 * 1024 * 1024}

	result, err := f.orchestrator(engine).Transcribe(context.Background(), watchURL)
	require.NoError(t, err)

	assert.False(t, f.quota.called, "quota must be skipped when transcode fails")
	assert.False(t, engine.called, "primary call must be skipped when transcode fails")

	assert.Equal(t, SourceFallback, result.Source)
	assert.Equal(t, "first second", result.Transcript)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, Segment{Start: "0:00:00", End: "0:00:02", Text: "first"}, result.Segments[0])
	assert.Equal(t, Segment{Start: "0:00:02", End: "0:00:05", Text: "second"}, result.Segments[1])
	f.assertNoArtifactsLeft(t)
}

// A failed encode that still wrote its output file must not leak that
// file; cleanup covers it like any other artifact.
func TestTranscribe_TranscodeFailureRemovesPartialOutput(t *testing.T) {
	f := newFixture(t)
	f.transcoder.err = errors.New("conversion failed")
	f.transcoder.partialOutput = true
	f.captions.cues = []captions.Cue{{Text: "first", Start: 0, Duration: 2}}
	engine := &fakeHostedEngine{maxBytes: 25 * 1024 * 1024}

	result, err := f.orchestrator(engine).Transcribe(context.Background(), watchURL)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, result.Source)
	f.assertNoArtifactsLeft(t)
}

// Scenario C: quota rejects and the fallback also fails; the caller gets
// one unified error, not a stack of nested causes.
func TestTranscribe_QuotaRejectionThenFallbackFailure(t *testing.T) {
	f := newFixture(t)
	f.quota.err = &quota.ExceededError{Dimension: quota.RequestsPerMinute}
	f.captions.err = &captions.Error{Kind: captions.KindNotFound, VideoID: "dQw4w9WgXcQ"}
	engine := &fakeHostedEngine{maxBytes: 25 * 1024 * 1024}

	result, err := f.orchestrator(engine).Transcribe(context.Background(), watchURL)
	require.Nil(t, result)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "transcription unavailable", err.Error())

	assert.False(t, engine.called, "primary call must be skipped when quota rejects")
	assert.True(t, f.captions.called)
	f.assertNoArtifactsLeft(t)
}

// Scenario D: a URL with no extractable identifier reaching the fallback
// branch is handled like any other fallback failure.
func TestTranscribe_InvalidURLInFallback(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = errors.New("extractor broke")
	engine := &fakeHostedEngine{maxBytes: 25 * 1024 * 1024}

	result, err := f.orchestrator(engine).Transcribe(context.Background(), "https://example.com/clip")
	require.Nil(t, result)
	require.ErrorIs(t, err, ErrUnavailable)

	assert.False(t, f.captions.called, "caption client must not be called without a video ID")
	f.assertNoArtifactsLeft(t)
}

func TestTranscribe_FetchFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = errors.New("geo blocked")
	f.captions.cues = []captions.Cue{{Text: "hi", Start: 1.0, Duration: 2.5}}
	engine := &fakeHostedEngine{maxBytes: 25 * 1024 * 1024}

	result, err := f.orchestrator(engine).Transcribe(context.Background(), watchURL)
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, result.Source)
	require.Len(t, result.Segments, 1)
	// Caption timing arrives as {start, duration}; end must be start+duration.
	assert.Equal(t, Segment{Start: "0:00:01", End: "0:00:03", Text: "hi"}, result.Segments[0])
}

func TestTranscribe_OversizeUploadFallsBack(t *testing.T) {
	f := newFixture(t)
	f.transcoder.payload = []byte(strings.Repeat("x", 2048))
	f.captions.cues = []captions.Cue{{Text: "hi", Start: 0, Duration: 1}}
	engine := &fakeHostedEngine{result: helloWorldResult(), maxBytes: 1024}

	result, err := f.orchestrator(engine).Transcribe(context.Background(), watchURL)
	require.NoError(t, err)

	assert.False(t, f.quota.called, "quota must not be consumed for an oversize file")
	assert.False(t, engine.called)
	assert.Equal(t, SourceFallback, result.Source)
	f.assertNoArtifactsLeft(t)
}

func TestTranscribe_PrimaryCallErrorFallsBack(t *testing.T) {
	f := newFixture(t)
	f.captions.cues = []captions.Cue{{Text: "hi", Start: 0, Duration: 1}}
	engine := &fakeHostedEngine{err: errors.New("groq API returned 503"), maxBytes: 25 * 1024 * 1024}

	result, err := f.orchestrator(engine).Transcribe(context.Background(), watchURL)
	require.NoError(t, err)

	assert.True(t, f.quota.called, "quota is committed before the call and never refunded")
	assert.Equal(t, SourceFallback, result.Source)
	f.assertNoArtifactsLeft(t)
}

// A local engine transcribes the downloaded media directly: no transcode,
// no quota, no upload ceiling.
func TestTranscribe_LocalEngineSkipsHostedStages(t *testing.T) {
	f := newFixture(t)
	engine := &fakeLocalEngine{result: helloWorldResult()}

	result, err := f.orchestrator(engine).Transcribe(context.Background(), watchURL)
	require.NoError(t, err)

	assert.False(t, f.transcoder.called, "local engine must not trigger a transcode")
	assert.False(t, f.quota.called, "local engine consumes no provider quota")
	assert.Equal(t, SourcePrimary, result.Source)
	f.assertNoArtifactsLeft(t)
}

func TestTranscribe_SegmentTextIsTrimmed(t *testing.T) {
	f := newFixture(t)
	engine := &fakeLocalEngine{result: &transcribe.Result{
		Text:     " padded text ",
		Segments: []transcribe.Segment{{Start: 0, End: 1, Text: "  padded  "}},
	}}

	result, err := f.orchestrator(engine).Transcribe(context.Background(), watchURL)
	require.NoError(t, err)
	assert.Equal(t, "padded text", result.Transcript)
	assert.Equal(t, "padded", result.Segments[0].Text)
}

// Cleanup tolerates artifacts that were never created: a fetch failure
// leaves nothing on disk, and cleanup of the missing paths is a no-op.
func TestTranscribe_CleanupWithNoArtifacts(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = errors.New("network down")
	f.captions.cues = []captions.Cue{{Text: "hi", Start: 0, Duration: 1}}
	engine := &fakeHostedEngine{maxBytes: 25 * 1024 * 1024}

	_, err := f.orchestrator(engine).Transcribe(context.Background(), watchURL)
	require.NoError(t, err)
	f.assertNoArtifactsLeft(t)
}

// Cleanup still runs when the caller's context is already canceled.
func TestTranscribe_CleanupOnCanceledContext(t *testing.T) {
	f := newFixture(t)
	engine := &fakeHostedEngine{maxBytes: 25 * 1024 * 1024}

	ctx, cancel := context.WithCancel(context.Background())
	// Rig the engine to cancel mid-flight, after artifacts exist.
	engine.err = errors.New("canceled upstream")
	f.captions.err = &captions.Error{Kind: captions.KindTransport, VideoID: "dQw4w9WgXcQ"}
	cancel()

	_, err := f.orchestrator(engine).Transcribe(ctx, watchURL)
	require.ErrorIs(t, err, ErrUnavailable)
	f.assertNoArtifactsLeft(t)
}

func TestTranscribe_ArtifactPathsAreUnique(t *testing.T) {
	f := newFixture(t)
	engine := &fakeLocalEngine{result: helloWorldResult()}
	o := f.orchestrator(engine)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		artifacts := &artifactSet{}
		_, err := o.primary(context.Background(), watchURL, artifacts)
		require.NoError(t, err)
		require.NotEmpty(t, artifacts.paths)
		path := artifacts.paths[0]
		require.False(t, seen[path], "artifact path reused: %s", path)
		seen[path] = true
		artifacts.cleanup(context.Background())
	}

	// Paths live under the configured work directory.
	for path := range seen {
		require.Equal(t, f.workDir, filepath.Dir(path))
	}
}
