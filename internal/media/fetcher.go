package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
)

// Fetcher downloads the media behind a video URL to a local file using
// yt-dlp. Downloads carry a fixed socket timeout so a stalled extractor
// cannot hang a request indefinitely.
type Fetcher struct {
	Bin     string
	Format  string
	Timeout time.Duration
}

// NewFetcher creates a Fetcher for the given yt-dlp binary. Format follows
// yt-dlp's -f syntax; "bestaudio/best" keeps the download small for
// audio-only pipelines.
func NewFetcher(bin string, timeout time.Duration) *Fetcher {
	if bin == "" {
		bin = "yt-dlp"
	}
	return &Fetcher{
		Bin:     bin,
		Format:  "bestaudio/best",
		Timeout: timeout,
	}
}

// Fetch downloads the media at url into outPath and returns the path. The
// downloader is forced to write exactly outPath so the caller owns the
// artifact name. An empty or missing output file is treated as a failure.
func (f *Fetcher) Fetch(ctx context.Context, url, outPath string) (string, error) {
	args := []string{
		"-f", f.Format,
		"-o", outPath,
		"--no-playlist",
		"--quiet",
		"--socket-timeout", strconv.Itoa(int(f.Timeout.Seconds())),
		url,
	}

	cmd := exec.CommandContext(ctx, f.Bin, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	logger.Debug(ctx, "fetching media", logger.Fields{"url": url})
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("media download failed: %s: %w", msg, err)
		}
		return "", fmt.Errorf("media download failed: %w", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return "", fmt.Errorf("media download produced no output: %w", err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("media download produced an empty file")
	}

	return outPath, nil
}
