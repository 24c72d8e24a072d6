// Package transcribe provides the primary speech-to-text capability behind
// a single interface, with interchangeable hosted and local
// implementations.
package transcribe

import "context"

// Segment is one timestamped span of raw engine output, in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the raw engine output before normalization.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Engine converts an audio file on disk into a transcript.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// HostedEngine is an Engine that uploads the audio to a remote provider.
// Such engines require the audio to be transcoded first, enforce a
// per-file byte ceiling, and consume provider quota per call.
type HostedEngine interface {
	Engine
	MaxUploadBytes() int64
}
