// Package captions retrieves pre-existing subtitles for a video, used as
// the fallback when the primary transcription path fails.
package captions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
)

// Kind classifies a caption retrieval failure.
type Kind string

const (
	KindDisabled  Kind = "disabled"  // captions are turned off for the video
	KindNotFound  Kind = "not_found" // no usable caption track exists
	KindTransport Kind = "transport" // network or protocol failure
)

// Error is a classified caption retrieval failure.
type Error struct {
	Kind    Kind
	VideoID string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("captions %s for video %s: %v", e.Kind, e.VideoID, e.Err)
	}
	return fmt.Sprintf("captions %s for video %s", e.Kind, e.VideoID)
}

func (e *Error) Unwrap() error { return e.Err }

// Cue is one caption entry as the platform serves it: a start offset and a
// duration, both in seconds.
type Cue struct {
	Text     string
	Start    float64
	Duration float64
}

// Client fetches caption tracks from the video platform. Outbound requests
// go through a politeness limiter so a burst of fallbacks does not hammer
// the watch-page endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a caption client. fetchesPerSecond bounds outbound
// request rate; zero or negative disables the limiter.
func NewClient(fetchesPerSecond float64) *Client {
	var limiter *rate.Limiter
	if fetchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(fetchesPerSecond), 1)
	}
	return &Client{
		baseURL: "https://www.youtube.com",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a fake
// platform endpoint.
func NewClientWithBaseURL(baseURL string, fetchesPerSecond float64) *Client {
	c := NewClient(fetchesPerSecond)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// captionTrack mirrors the relevant part of the player response embedded in
// the watch page.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" for auto-generated tracks
}

// timedTextEvents mirrors the json3 timedtext payload.
type timedTextEvents struct {
	Events []struct {
		StartMs    int64 `json:"tStartMs"`
		DurationMs int64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Transcript returns the caption cues for a video. Human-provided tracks
// are preferred over auto-generated ones. Failures are classified as
// Disabled, NotFound or Transport so the caller can log the cause without
// surfacing it.
func (c *Client) Transcript(ctx context.Context, videoID string) ([]Cue, error) {
	page, err := c.get(ctx, c.baseURL+"/watch?v="+videoID)
	if err != nil {
		return nil, &Error{Kind: KindTransport, VideoID: videoID, Err: err}
	}

	tracks, err := parseCaptionTracks(page)
	if err != nil {
		return nil, &Error{Kind: KindDisabled, VideoID: videoID, Err: err}
	}

	track := pickTrack(tracks)
	if track == nil {
		return nil, &Error{Kind: KindNotFound, VideoID: videoID, Err: fmt.Errorf("no usable caption track")}
	}

	trackURL, err := trackRequestURL(track.BaseURL)
	if err != nil {
		return nil, &Error{Kind: KindTransport, VideoID: videoID, Err: err}
	}
	body, err := c.get(ctx, trackURL)
	if err != nil {
		return nil, &Error{Kind: KindTransport, VideoID: videoID, Err: err}
	}

	cues, err := parseTimedText(body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, VideoID: videoID, Err: err}
	}
	if len(cues) == 0 {
		return nil, &Error{Kind: KindNotFound, VideoID: videoID, Err: fmt.Errorf("caption track is empty")}
	}

	logger.Debug(ctx, "fetched caption track", logger.Fields{
		"video_id": videoID,
		"language": track.LanguageCode,
		"cues":     len(cues),
	})

	return cues, nil
}

func (c *Client) get(ctx context.Context, url string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en-US,en")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// trackRequestURL asks for the json3 timedtext format. A track's baseUrl
// may or may not already carry a query string, so the parameter goes
// through the parsed query rather than string concatenation.
func trackRequestURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("malformed caption track url: %w", err)
	}
	q := u.Query()
	q.Set("fmt", "json3")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

const captionTracksMarker = `"captionTracks":`

// parseCaptionTracks extracts the caption track list embedded in the watch
// page. Absence of the list means the video has captions disabled.
func parseCaptionTracks(page string) ([]captionTrack, error) {
	idx := strings.Index(page, captionTracksMarker)
	if idx == -1 {
		return nil, fmt.Errorf("no caption tracks in player response")
	}

	dec := json.NewDecoder(strings.NewReader(page[idx+len(captionTracksMarker):]))
	var tracks []captionTrack
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("malformed caption track list: %w", err)
	}
	return tracks, nil
}

// pickTrack prefers a human-provided track over an auto-generated one.
func pickTrack(tracks []captionTrack) *captionTrack {
	for i := range tracks {
		if tracks[i].Kind != "asr" {
			return &tracks[i]
		}
	}
	if len(tracks) > 0 {
		return &tracks[0]
	}
	return nil
}

func parseTimedText(body string) ([]Cue, error) {
	var payload timedTextEvents
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("malformed timedtext payload: %w", err)
	}

	cues := make([]Cue, 0, len(payload.Events))
	for _, ev := range payload.Events {
		var text strings.Builder
		for _, seg := range ev.Segs {
			text.WriteString(seg.UTF8)
		}
		trimmed := strings.TrimSpace(text.String())
		if trimmed == "" {
			continue
		}
		cues = append(cues, Cue{
			Text:     trimmed,
			Start:    float64(ev.StartMs) / 1000.0,
			Duration: float64(ev.DurationMs) / 1000.0,
		})
	}
	return cues, nil
}
