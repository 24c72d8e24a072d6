package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Engine names accepted in ENGINE.
const (
	EngineGroq    = "groq"
	EngineWhisper = "whisper"
)

type Config struct {
	Port     string
	APIToken string

	// Primary transcription engine selection
	Engine string

	// Groq hosted engine
	GroqAPIKey    string
	GroqAPIURL    string
	GroqModel     string
	GroqMaxFileMB int64

	// Groq quota limits
	GroqRequestsPerMinute int
	GroqRequestsPerDay    int
	GroqAudioSecondsHour  float64
	GroqAudioSecondsDay   float64

	// Local whisper engine
	WhisperBin   string
	WhisperModel string

	// Media tooling
	YtdlpBin string
	WorkDir  string

	FetchTimeout      time.Duration
	TranscribeTimeout time.Duration

	// Captions fallback politeness limit (requests per second)
	CaptionFetchesPerSecond float64

	// Optional integrations; empty disables them.
	DatabaseURL string
	GCSBucket   string
}

// Environment variable names used by the service
const (
	EnvPort     = "PORT"
	EnvAPIToken = "API_TOKEN"
	EnvEngine   = "ENGINE"

	EnvGroqAPIKey    = "GROQ_API_KEY"
	EnvGroqAPIURL    = "GROQ_API_URL"
	EnvGroqModel     = "GROQ_MODEL"
	EnvGroqMaxFileMB = "GROQ_MAX_FILE_MB"

	EnvGroqRPMLimit = "GROQ_RPM_LIMIT"
	EnvGroqRPDLimit = "GROQ_RPD_LIMIT"
	EnvGroqASHLimit = "GROQ_ASH_LIMIT"
	EnvGroqASDLimit = "GROQ_ASD_LIMIT"

	EnvWhisperBin   = "WHISPER_BIN"
	EnvWhisperModel = "WHISPER_MODEL"

	EnvYtdlpBin = "YTDLP_BIN"
	EnvWorkDir  = "WORK_DIR"

	EnvFetchTimeoutSeconds      = "FETCH_TIMEOUT_SECONDS"
	EnvTranscribeTimeoutSeconds = "TRANSCRIBE_TIMEOUT_SECONDS"

	EnvCaptionFetchesPerSecond = "CAPTION_FETCHES_PER_SECOND"

	EnvDatabaseURL = "DATABASE_URL"
	EnvGCSBucket   = "GCS_BUCKET"
)

// collectRequired reads the provided environment keys and returns a map of values
// alongside a slice of any missing keys (values that were empty/whitespace).
func collectRequired(keys []string) (map[string]string, []string) {
	missing := make([]string, 0)
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			missing = append(missing, k)
			continue
		}
		values[k] = v
	}
	return values, missing
}

// collectOptional reads optional env vars and applies defaults when empty/whitespace.
func collectOptional(defaults map[string]string) map[string]string {
	values := make(map[string]string, len(defaults))
	for k, def := range defaults {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			v = def
		}
		values[k] = v
	}
	return values
}

func mustInt(values map[string]string, key string) int {
	n, err := strconv.Atoi(values[key])
	if err != nil {
		panic(fmt.Sprintf("invalid %s: must be an integer", key))
	}
	return n
}

func mustFloat(values map[string]string, key string) float64 {
	f, err := strconv.ParseFloat(values[key], 64)
	if err != nil {
		panic(fmt.Sprintf("invalid %s: must be a number", key))
	}
	return f
}

func Load() Config {
	required := []string{
		EnvAPIToken,
	}
	requiredEnvVars, missingEnvVars := collectRequired(required)
	if len(missingEnvVars) > 0 {
		panic(fmt.Sprintf("missing required env vars: %s", strings.Join(missingEnvVars, ", ")))
	}

	optionalEnvVars := collectOptional(map[string]string{
		EnvPort:          "8080",
		EnvEngine:        EngineGroq,
		EnvGroqAPIURL:    "https://api.groq.com/openai/v1/audio/transcriptions",
		EnvGroqModel:     "whisper-large-v3-turbo",
		EnvGroqMaxFileMB: "25",
		// Free-tier limits published by Groq for whisper-large-v3-turbo.
		EnvGroqRPMLimit: "20",
		EnvGroqRPDLimit: "2000",
		EnvGroqASHLimit: "7200",
		EnvGroqASDLimit: "28800",

		EnvWhisperBin:   "whisper",
		EnvWhisperModel: "tiny",

		EnvYtdlpBin: "yt-dlp",
		EnvWorkDir:  os.TempDir(),

		EnvFetchTimeoutSeconds:      "30",
		EnvTranscribeTimeoutSeconds: "300",

		EnvCaptionFetchesPerSecond: "2",

		EnvDatabaseURL: "",
		EnvGCSBucket:   "",
	})

	engine := strings.ToLower(optionalEnvVars[EnvEngine])
	if engine != EngineGroq && engine != EngineWhisper {
		panic(fmt.Sprintf("invalid %s: must be %q or %q", EnvEngine, EngineGroq, EngineWhisper))
	}

	groqAPIKey := strings.TrimSpace(os.Getenv(EnvGroqAPIKey))
	if engine == EngineGroq && groqAPIKey == "" {
		panic(fmt.Sprintf("missing required env vars: %s (required when %s=%s)", EnvGroqAPIKey, EnvEngine, EngineGroq))
	}

	return Config{
		Port:     optionalEnvVars[EnvPort],
		APIToken: requiredEnvVars[EnvAPIToken],

		Engine: engine,

		GroqAPIKey:    groqAPIKey,
		GroqAPIURL:    optionalEnvVars[EnvGroqAPIURL],
		GroqModel:     optionalEnvVars[EnvGroqModel],
		GroqMaxFileMB: int64(mustInt(optionalEnvVars, EnvGroqMaxFileMB)),

		GroqRequestsPerMinute: mustInt(optionalEnvVars, EnvGroqRPMLimit),
		GroqRequestsPerDay:    mustInt(optionalEnvVars, EnvGroqRPDLimit),
		GroqAudioSecondsHour:  mustFloat(optionalEnvVars, EnvGroqASHLimit),
		GroqAudioSecondsDay:   mustFloat(optionalEnvVars, EnvGroqASDLimit),

		WhisperBin:   optionalEnvVars[EnvWhisperBin],
		WhisperModel: optionalEnvVars[EnvWhisperModel],

		YtdlpBin: optionalEnvVars[EnvYtdlpBin],
		WorkDir:  optionalEnvVars[EnvWorkDir],

		FetchTimeout:      time.Duration(mustInt(optionalEnvVars, EnvFetchTimeoutSeconds)) * time.Second,
		TranscribeTimeout: time.Duration(mustInt(optionalEnvVars, EnvTranscribeTimeoutSeconds)) * time.Second,

		CaptionFetchesPerSecond: mustFloat(optionalEnvVars, EnvCaptionFetchesPerSecond),

		DatabaseURL: strings.TrimSpace(os.Getenv(EnvDatabaseURL)),
		GCSBucket:   strings.TrimSpace(os.Getenv(EnvGCSBucket)),
	}
}
