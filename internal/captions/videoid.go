package captions

import (
	"errors"
	"regexp"
)

// videoIDPattern matches the 11-character identifier embedded in watch,
// short-link and embed style URLs.
var videoIDPattern = regexp.MustCompile(`(?:v=|\/)([0-9A-Za-z_-]{11})`)

// ErrInvalidURL is returned when no recognizable video identifier can be
// extracted from a URL.
var ErrInvalidURL = errors.New("no video identifier found in URL")

// ExtractVideoID derives the stable video identifier from a video URL.
func ExtractVideoID(url string) (string, error) {
	match := videoIDPattern.FindStringSubmatch(url)
	if match == nil {
		return "", ErrInvalidURL
	}
	return match[1], nil
}
