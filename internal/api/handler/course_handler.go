package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"knowledge_platform/internal/api/middleware"
	"knowledge_platform/internal/app/service"
	"knowledge_platform/internal/common"
	"knowledge_platform/internal/domain/model"
	"knowledge_platform/internal/domain/repository"
)

type CourseHandler struct {
	courseService *service.CourseService
}

func NewCourseHandler(cs *service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: cs}
}

func (h *CourseHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listCourses) // public

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)

		authed.Get("/{courseID}", h.getCourse)

		authoring := authed.With(middleware.RequireRoles(model.RoleAdmin, model.RoleInstructor))
		authoring.Post("/", h.createCourse)
		authoring.Put("/{courseID}", h.updateCourse)
		authoring.Post("/{courseID}/modules", h.addModule)
		authoring.Put("/{courseID}/modules/{moduleID}/quiz", h.updateModuleQuiz)

		authed.With(middleware.RequireRoles(model.RoleAdmin)).Delete("/{courseID}", h.deleteCourse)

		student := authed.With(middleware.RequireRoles(model.RoleStudent))
		student.Put("/{courseID}/enroll", h.enrollStudent)
		student.Put("/{courseID}/progress", h.updateProgress)
		student.Get("/{courseID}/modules/{moduleID}/quiz", h.getModuleQuiz)
		student.Post("/{courseID}/modules/{moduleID}/quiz/submit", h.submitModuleQuiz)
	})
}

func (h *CourseHandler) listCourses(w http.ResponseWriter, r *http.Request) {
	filter := repository.CourseFilter{
		Search:     r.URL.Query().Get("search"),
		Category:   r.URL.Query().Get("category"),
		Difficulty: model.CourseDifficulty(r.URL.Query().Get("difficulty")),
	}

	courses, err := h.courseService.ListCourses(r.Context(), filter)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, courses)
}

func (h *CourseHandler) createCourse(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	course, err := h.courseService.CreateCourse(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, course)
}

func (h *CourseHandler) getCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	viewerID, _ := middleware.GetUserIDFromContext(r.Context())
	viewerRole, _ := middleware.GetUserRoleFromContext(r.Context())

	view, err := h.courseService.GetCourseView(r.Context(), courseID, viewerID, viewerRole)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *CourseHandler) updateCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	var req service.UpdateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	course, err := h.courseService.UpdateCourse(r.Context(), courseID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	if err := h.courseService.DeleteCourse(r.Context(), courseID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "Course deleted successfully"})
}

func (h *CourseHandler) addModule(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	var req service.ModuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	course, err := h.courseService.AddModule(r.Context(), courseID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, course)
}

func (h *CourseHandler) enrollStudent(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	studentID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	view, err := h.courseService.EnrollStudent(r.Context(), courseID, studentID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *CourseHandler) updateProgress(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	studentID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	progressStr := r.URL.Query().Get("progress")
	if progressStr == "" {
		common.RespondWithError(w, http.StatusBadRequest, "Progress query parameter is required")
		return
	}
	percent, err := strconv.Atoi(progressStr)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Progress must be an integer")
		return
	}

	course, err := h.courseService.UpdateProgress(r.Context(), courseID, studentID, percent)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) getModuleQuiz(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	moduleID := chi.URLParam(r, "moduleID")

	questions, err := h.courseService.GetModuleQuiz(r.Context(), courseID, moduleID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, questions)
}

func (h *CourseHandler) updateModuleQuiz(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	moduleID := chi.URLParam(r, "moduleID")

	var req struct {
		Questions []model.Question `json:"questions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if req.Questions == nil {
		common.RespondWithError(w, http.StatusBadRequest, `Request body must contain a "questions" array`)
		return
	}

	questions, err := h.courseService.UpdateModuleQuiz(r.Context(), courseID, moduleID, req.Questions)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, questions)
}

func (h *CourseHandler) submitModuleQuiz(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	moduleID := chi.URLParam(r, "moduleID")
	studentID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.courseService.SubmitModuleQuiz(r.Context(), courseID, moduleID, studentID, req.Answers)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}
