package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"knowledge_platform/internal/platform/config"
	"knowledge_platform/internal/platform/logger"
)

// CleanupWorker consumes the file cleanup queue and removes uploaded files
// from disk. Deletion is best-effort: a missing file counts as success and
// failures are logged, never retried.
type CleanupWorker struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewCleanupWorker(rdb *redis.Client, log *logger.Logger) *CleanupWorker {
	return &CleanupWorker{rdb: rdb, log: log}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	w.log.Info("cleanup worker started", "queue", config.AppConfig.CleanupQueueName)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("cleanup worker stopping")
			return
		default:
			res, err := w.rdb.BRPop(ctx, 5*time.Second, config.AppConfig.CleanupQueueName).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				w.log.Error("failed to pop from cleanup queue", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}

			// res is [queueName, value]
			if len(res) < 2 || res[1] == "" {
				continue
			}
			w.deleteUpload(res[1])
		}
	}
}

// deleteUpload maps an upload URL back to its on-disk path and removes it.
// The path is confined to the upload directory so a malformed queue entry
// can never reach outside it.
func (w *CleanupWorker) deleteUpload(url string) {
	prefix := config.AppConfig.UploadURLPrefix + "/"
	if !strings.HasPrefix(url, prefix) {
		w.log.Warn("ignoring non-upload cleanup entry", "url", url)
		return
	}

	name := filepath.Base(strings.TrimPrefix(url, prefix))
	path := filepath.Join(config.AppConfig.UploadDir, name)

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			w.log.Debug("file already gone", "path", path)
			return
		}
		w.log.Error("failed to delete file", "path", path, "error", err)
		return
	}
	w.log.Info("deleted file", "path", path)
}
