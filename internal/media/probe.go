package media

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
)

// Prober measures audio duration with ffprobe.
type Prober struct {
	Bin string
}

func NewProber() *Prober {
	return &Prober{Bin: "ffprobe"}
}

// Duration returns the audio length in seconds, or 0.0 when the probe
// fails. Callers treat 0.0 as "unknown"; quota accounting then charges
// nothing for audio time, matching the provider's own behavior for
// unreadable uploads.
func (p *Prober) Duration(ctx context.Context, audioPath string) float64 {
	cmd := exec.CommandContext(ctx, p.Bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)

	out, err := cmd.Output()
	if err != nil {
		logger.Warn(ctx, "ffprobe failed, assuming unknown duration", err, logger.Fields{"path": audioPath})
		return 0.0
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0.0
	}
	return seconds
}
