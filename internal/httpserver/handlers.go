package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/funlogix/Youtube-transcriber-api/internal/captions"
	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
	"github.com/funlogix/Youtube-transcriber-api/internal/orchestrator"
)

// Transcriber runs the transcription pipeline for one URL.
type Transcriber interface {
	Transcribe(ctx context.Context, videoURL string) (*orchestrator.Result, error)
}

// TranscriptCache returns previously produced transcripts by video ID.
// Get returns (nil, nil) on a miss.
type TranscriptCache interface {
	Get(ctx context.Context, videoID string) (*orchestrator.Result, error)
	Save(ctx context.Context, videoID string, result *orchestrator.Result) error
}

// TranscriptArchiver copies finished transcripts to long-term storage.
type TranscriptArchiver interface {
	Archive(ctx context.Context, videoID string, result *orchestrator.Result) error
}

// Deps carries the handler's collaborators. Cache and Archiver are
// optional; nil disables them.
type Deps struct {
	Transcriber Transcriber
	Cache       TranscriptCache
	Archiver    TranscriptArchiver
}

type transcribeRequest struct {
	VideoURL string `json:"video_url"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// unavailableDetail is the only failure message callers ever see for an
// exhausted pipeline. Provider error internals stay in the logs.
const unavailableDetail = "Transcription failed: primary engine and captions unavailable"

type transcribeHandler struct {
	deps Deps
}

func NewTranscribeHandler(deps Deps) http.Handler {
	return &transcribeHandler{deps: deps}
}

func (h *transcribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Detail: "method not allowed"})
		return
	}

	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	req.VideoURL = strings.TrimSpace(req.VideoURL)
	if req.VideoURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "video_url is required"})
		return
	}

	logger.Info(ctx, "transcription request received", logger.Fields{"url": req.VideoURL})

	// The cache and the archive key on the video ID. When the URL has no
	// recognizable ID both are skipped; the pipeline itself decides
	// whether the URL is usable.
	videoID, idErr := captions.ExtractVideoID(req.VideoURL)
	if idErr == nil && h.deps.Cache != nil {
		cached, err := h.deps.Cache.Get(ctx, videoID)
		if err != nil {
			logger.Warn(ctx, "transcript cache lookup failed", err, logger.Fields{"video_id": videoID})
		} else if cached != nil {
			logger.Info(ctx, "serving cached transcript", logger.Fields{"video_id": videoID})
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	result, err := h.deps.Transcriber.Transcribe(ctx, req.VideoURL)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: unavailableDetail})
		return
	}

	if idErr == nil {
		h.persist(ctx, videoID, result)
	}

	writeJSON(w, http.StatusOK, result)
}

// persist stores and archives the finished transcript. Both are
// best-effort; a failure here never fails the request.
func (h *transcribeHandler) persist(ctx context.Context, videoID string, result *orchestrator.Result) {
	if h.deps.Cache != nil {
		if err := h.deps.Cache.Save(ctx, videoID, result); err != nil {
			logger.Warn(ctx, "failed to cache transcript", err, logger.Fields{"video_id": videoID})
		}
	}
	if h.deps.Archiver != nil {
		if err := h.deps.Archiver.Archive(ctx, videoID, result); err != nil {
			logger.Warn(ctx, "failed to archive transcript", err, logger.Fields{"video_id": videoID})
		}
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(context.Background(), "failed to encode response", err)
	}
}
