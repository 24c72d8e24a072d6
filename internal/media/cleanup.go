package media

import (
	"context"
	"os"

	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
)

// RemoveArtifacts deletes the given transient files. Paths that were never
// created are skipped silently, so cleanup is safe to run on every exit
// path of a request regardless of how far it got.
func RemoveArtifacts(ctx context.Context, paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			logger.Warn(ctx, "failed to remove transient artifact", err, logger.Fields{"path": path})
		}
	}
}
