package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
)

// ErrConversionFailed indicates ffmpeg ran but did not produce a usable
// audio file.
var ErrConversionFailed = errors.New("audio conversion failed")

// Transcoder normalizes downloaded media into an mp3 suitable for upload to
// a hosted transcription engine.
type Transcoder struct {
	Bin string
}

func NewTranscoder() *Transcoder {
	return &Transcoder{Bin: "ffmpeg"}
}

// Transcode strips the video stream and re-encodes the audio as mp3,
// returning the output path. Postcondition: on success the output file
// exists and is non-empty.
func (t *Transcoder) Transcode(ctx context.Context, inputPath string) (string, error) {
	outPath := strings.TrimSuffix(inputPath, ".mp4") + ".mp3"

	cmd := exec.CommandContext(ctx, t.Bin,
		"-y",
		"-i", inputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "4",
		outPath,
	)

	logger.Debug(ctx, "transcoding media to mp3", logger.Fields{"input": inputPath})
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		return "", ErrConversionFailed
	}

	return outPath, nil
}
