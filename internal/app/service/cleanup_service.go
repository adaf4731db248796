package service

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"knowledge_platform/internal/platform/config"
	"knowledge_platform/internal/platform/logger"
)

// FileCleanupService hands file paths to the cleanup worker via Redis.
// Deletion is fire-and-forget: a failed enqueue is logged and swallowed so
// it never blocks the response path.
type FileCleanupService struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewFileCleanupService(rdb *redis.Client, log *logger.Logger) *FileCleanupService {
	return &FileCleanupService{rdb: rdb, log: log}
}

// EnqueueDeletion pushes upload URLs onto the cleanup queue. Only paths
// under the upload prefix are accepted; external links are ignored.
func (s *FileCleanupService) EnqueueDeletion(ctx context.Context, urls ...string) {
	prefix := config.AppConfig.UploadURLPrefix + "/"
	for _, u := range urls {
		if u == "" || !strings.HasPrefix(u, prefix) {
			continue
		}
		if err := s.rdb.LPush(ctx, config.AppConfig.CleanupQueueName, u).Err(); err != nil {
			s.log.Warn("failed to enqueue file deletion", "url", u, "error", err)
			continue
		}
		s.log.Debug("file deletion enqueued", "url", u)
	}
}
