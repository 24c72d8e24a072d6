package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
)

// GroqConfig configures the hosted Groq whisper engine.
type GroqConfig struct {
	APIURL    string
	APIKey    string
	Model     string
	MaxFileMB int64
	Timeout   time.Duration
}

// GroqEngine transcribes audio through Groq's OpenAI-compatible
// audio/transcriptions endpoint.
type GroqEngine struct {
	cfg        GroqConfig
	httpClient *http.Client
}

func NewGroqEngine(cfg GroqConfig) *GroqEngine {
	return &GroqEngine{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (g *GroqEngine) Name() string { return "groq" }

// MaxUploadBytes returns the provider's fixed per-file size ceiling.
func (g *GroqEngine) MaxUploadBytes() int64 {
	return g.cfg.MaxFileMB * 1024 * 1024
}

// Transcribe uploads the audio file as multipart form data and decodes the
// verbose JSON response into timestamped segments. Any non-200 response is
// an error; the caller decides whether to fall back.
func (g *GroqEngine) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("model", g.cfg.Model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("failed to write response_format field: %w", err)
	}

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to copy audio into request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	logger.Info(ctx, "calling groq speech-to-text API", logger.Fields{
		"model":      g.cfg.Model,
		"size_bytes": buf.Len(),
	})

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read groq response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq API returned %d: %s", resp.StatusCode, string(body))
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse groq response: %w", err)
	}

	return &result, nil
}
