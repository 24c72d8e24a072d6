package httpserver

import (
	"net/http"

	"github.com/funlogix/Youtube-transcriber-api/internal/config"
	"github.com/funlogix/Youtube-transcriber-api/internal/middleware"
)

// NewHandler builds the top-level HTTP handler for the service. The health
// probe stays outside the auth wrapper; transcription requires the static
// bearer token before any work begins.
func NewHandler(cfg config.Config, deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", http.HandlerFunc(handleHealth))
	mux.Handle("/transcribe", middleware.BearerAuth(cfg.APIToken, NewTranscribeHandler(deps)))

	return middleware.RequestID(mux)
}
