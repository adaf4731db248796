package worker

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"knowledge_platform/internal/domain/repository"
	"knowledge_platform/internal/platform/config"
	"knowledge_platform/internal/platform/logger"
)

// OrphanSweeper periodically removes uploaded files no course references
// anymore. Cleanup-queue deletions can be lost (process restart, redis
// outage); the sweep catches what slipped through. Files younger than the
// grace period are left alone so in-flight uploads survive between "file
// saved" and "course updated".
type OrphanSweeper struct {
	courseRepo repository.CourseRepository
	log        *logger.Logger
}

func NewOrphanSweeper(courseRepo repository.CourseRepository, log *logger.Logger) *OrphanSweeper {
	return &OrphanSweeper{courseRepo: courseRepo, log: log}
}

// Sweep is the cron entrypoint.
func (s *OrphanSweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	referenced, err := s.referencedFilenames(ctx)
	if err != nil {
		s.log.Error("orphan sweep aborted, could not list course references", "error", err)
		return
	}

	entries, err := os.ReadDir(config.AppConfig.UploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		s.log.Error("orphan sweep aborted, could not read upload dir", "error", err)
		return
	}

	cutoff := time.Now().Add(-config.AppConfig.OrphanGracePeriod)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || referenced[entry.Name()] {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(config.AppConfig.UploadDir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove orphaned file", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info("orphan sweep finished", "removed", removed)
	}
}

func (s *OrphanSweeper) referencedFilenames(ctx context.Context) (map[string]bool, error) {
	courses, err := s.courseRepo.ListCourses(ctx, repository.CourseFilter{})
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool)
	add := func(url string) {
		if url != "" {
			referenced[filepath.Base(url)] = true
		}
	}
	for _, course := range courses {
		add(course.ImageURL)
		for _, module := range course.Modules {
			for _, res := range module.Resources {
				add(res)
			}
		}
	}
	return referenced, nil
}
