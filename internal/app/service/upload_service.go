package service

import (
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"knowledge_platform/internal/common"
	"knowledge_platform/internal/platform/config"
)

// UploadService stores multipart uploads under the configured upload
// directory and returns the public URL they are served from.
type UploadService struct{}

func NewUploadService() *UploadService {
	return &UploadService{}
}

// SaveFile writes the uploaded file with a collision-free name and returns
// its URL path (e.g. /uploads/resource-1712-483920114.pdf).
func (s *UploadService) SaveFile(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", common.Errorf("opening uploaded file: %w: %w", err, common.ErrBadRequest)
	}
	defer src.Close()

	destDir := config.AppConfig.UploadDir
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", common.Errorf("creating upload dir: %w", err)
	}

	ext := filepath.Ext(file.Filename)
	name := fmt.Sprintf("resource-%d-%d%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), ext)
	destPath := filepath.Join(destDir, name)

	dst, err := os.Create(destPath)
	if err != nil {
		return "", common.Errorf("creating destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", common.Errorf("writing uploaded file: %w", err)
	}

	return config.AppConfig.UploadURLPrefix + "/" + name, nil
}
