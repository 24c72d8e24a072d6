package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
)

// WhisperEngine runs the whisper CLI locally. No provider quota applies and
// the input does not need transcoding; whisper reads the downloaded media
// directly.
type WhisperEngine struct {
	Bin   string
	Model string
}

func NewWhisperEngine(bin, model string) *WhisperEngine {
	if bin == "" {
		bin = "whisper"
	}
	return &WhisperEngine{Bin: bin, Model: model}
}

func (w *WhisperEngine) Name() string { return "whisper" }

// Transcribe invokes the whisper CLI with JSON output and parses the
// result file it writes next to the audio. The JSON artifact is removed
// before returning; the audio file itself stays owned by the caller.
func (w *WhisperEngine) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	outDir := filepath.Dir(audioPath)

	cmd := exec.CommandContext(ctx, w.Bin,
		audioPath,
		"--model", w.Model,
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	logger.Info(ctx, "running local whisper", logger.Fields{"model": w.Model})
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("whisper failed: %s: %w", msg, err)
		}
		return nil, fmt.Errorf("whisper failed: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outDir, base+".json")
	defer os.Remove(jsonPath)

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %w", err)
	}

	return &result, nil
}
