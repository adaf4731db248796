package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"knowledge_platform/internal/api/middleware"
	"knowledge_platform/internal/app/service"
	"knowledge_platform/internal/common"
	"knowledge_platform/internal/domain/model"
	"knowledge_platform/internal/platform/config"
)

type UploadHandler struct {
	uploadService *service.UploadService
}

func NewUploadHandler(us *service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: us}
}

func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.With(middleware.RequireRoles(model.RoleAdmin, model.RoleInstructor)).Post("/", h.upload)
}

// upload accepts multipart form files under the "resources" field and
// returns the URLs they are now served from.
func (h *UploadHandler) upload(w http.ResponseWriter, r *http.Request) {
	maxBytes := config.AppConfig.MaxUploadSizeMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	files := r.MultipartForm.File["resources"]
	if len(files) == 0 {
		common.RespondWithError(w, http.StatusBadRequest, `No files provided under "resources"`)
		return
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := h.uploadService.SaveFile(fh)
		if err != nil {
			common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
			return
		}
		urls = append(urls, url)
	}

	common.RespondWithJSON(w, http.StatusCreated, map[string][]string{"urls": urls})
}
