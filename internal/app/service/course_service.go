package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"knowledge_platform/internal/app/progression"
	"knowledge_platform/internal/common"
	"knowledge_platform/internal/domain/model"
	"knowledge_platform/internal/domain/repository"
	"knowledge_platform/internal/platform/logger"
)

// FileCleaner is what CourseService needs from the cleanup pipeline.
type FileCleaner interface {
	EnqueueDeletion(ctx context.Context, urls ...string)
}

type CourseService struct {
	courseRepo repository.CourseRepository
	userRepo   repository.UserRepository
	cleanup    FileCleaner
	log        *logger.Logger
}

func NewCourseService(
	courseRepo repository.CourseRepository,
	userRepo repository.UserRepository,
	cleanup FileCleaner,
	log *logger.Logger,
) *CourseService {
	return &CourseService{
		courseRepo: courseRepo,
		userRepo:   userRepo,
		cleanup:    cleanup,
		log:        log,
	}
}

type ModuleRequest struct {
	Title         string           `json:"title" validate:"required"`
	Content       string           `json:"content"`
	Resources     []string         `json:"resources"`
	QuizQuestions []model.Question `json:"quiz_questions"`
}

type CreateCourseRequest struct {
	Title       string                 `json:"title" validate:"required"`
	Description string                 `json:"description"`
	ImageURL    string                 `json:"image_url"`
	Category    string                 `json:"category"`
	Difficulty  model.CourseDifficulty `json:"difficulty"`
	Modules     []ModuleRequest        `json:"modules"`
}

type UpdateCourseRequest struct {
	Title       *string                 `json:"title,omitempty"`
	Description *string                 `json:"description,omitempty"`
	ImageURL    *string                 `json:"image_url,omitempty"`
	Category    *string                 `json:"category,omitempty"`
	Difficulty  *model.CourseDifficulty `json:"difficulty,omitempty"`
}

// validateQuestions enforces the quiz authoring invariant: four options per
// question and the answer must be one of them.
func validateQuestions(questions []model.Question) error {
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return common.Errorf("question %d has no text: %w", i, common.ErrValidation)
		}
		if len(q.Options) != 4 {
			return common.Errorf("question %d must have exactly 4 options: %w", i, common.ErrValidation)
		}
		valid := false
		for _, opt := range q.Options {
			if q.Answer == opt {
				valid = true
				break
			}
		}
		if !valid {
			return common.Errorf("question %d answer is not one of its options: %w", i, common.ErrValidation)
		}
	}
	return nil
}

func buildModule(req ModuleRequest) (model.Module, error) {
	if err := common.ValidateStruct(req); err != nil {
		return model.Module{}, err
	}
	if err := validateQuestions(req.QuizQuestions); err != nil {
		return model.Module{}, err
	}
	questions := make([]model.Question, len(req.QuizQuestions))
	copy(questions, req.QuizQuestions)
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
	}
	return model.Module{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Content:       req.Content,
		Resources:     req.Resources,
		QuizQuestions: questions,
		Scores:        map[string]int{},
	}, nil
}

func (s *CourseService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*model.Course, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	category := req.Category
	if category == "" {
		category = model.DefaultCategory
	}

	course := &model.Course{
		ID:                     uuid.NewString(),
		Title:                  req.Title,
		Slug:                   slug.Make(req.Title),
		Description:            req.Description,
		ImageURL:               req.ImageURL,
		Category:               category,
		Difficulty:             req.Difficulty,
		EnrolledStudents:       []string{},
		Modules:                []model.Module{},
		Progress:               map[string]int{},
		HighestCompletedModule: map[string]int{},
	}

	for _, mr := range req.Modules {
		module, err := buildModule(mr)
		if err != nil {
			return nil, err
		}
		course.Modules = append(course.Modules, module)
	}

	if err := s.courseRepo.CreateCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	s.log.Info("course created", "course_id", course.ID, "slug", course.Slug)
	return course, nil
}

func (s *CourseService) ListCourses(ctx context.Context, filter repository.CourseFilter) ([]model.Course, error) {
	courses, err := s.courseRepo.ListCourses(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// GetCourseView loads a course and projects it for the viewer via the
// progression engine. Locked modules come back as stubs for students;
// instructors and admins see everything.
func (s *CourseService) GetCourseView(ctx context.Context, courseID, viewerID, viewerRole string) (*progression.CourseView, error) {
	course, err := s.courseRepo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	return s.buildView(ctx, course, viewerID, viewerRole), nil
}

func (s *CourseService) buildView(ctx context.Context, course *model.Course, viewerID, viewerRole string) *progression.CourseView {
	enrolled := make([]model.EnrolledStudent, 0, len(course.EnrolledStudents))
	for _, studentID := range course.EnrolledStudents {
		user, err := s.userRepo.FindByID(ctx, studentID)
		if err != nil {
			// Enrollment referencing a missing user is skipped, matching the
			// null-filtering the original population step did.
			s.log.Warn("enrolled student not found", "course_id", course.ID, "student_id", studentID)
			continue
		}
		enrolled = append(enrolled, model.EnrolledStudent{ID: user.ID, Name: user.Name, Email: user.Email})
	}

	return &progression.CourseView{
		ID:          course.ID,
		Title:       course.Title,
		Slug:        course.Slug,
		Description: course.Description,
		ImageURL:    course.ImageURL,
		Category:    course.Category,
		Difficulty:  course.Difficulty,
		Enrolled:    enrolled,
		Modules:     progression.ResolveModules(course, viewerID, viewerRole),
		Progress:    course.Progress,
		CreatedAt:   course.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   course.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *CourseService) UpdateCourse(ctx context.Context, courseID string, req UpdateCourseRequest) (*model.Course, error) {
	course, err := s.courseRepo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}

	oldImageURL := course.ImageURL

	if req.Title != nil {
		course.Title = *req.Title
		course.Slug = slug.Make(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.ImageURL != nil {
		course.ImageURL = *req.ImageURL
	}
	if req.Category != nil {
		course.Category = *req.Category
	}
	if req.Difficulty != nil {
		course.Difficulty = *req.Difficulty
	}

	if err := s.courseRepo.UpdateCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	// Replacing the image orphans the old file; hand it to the cleanup queue.
	if req.ImageURL != nil && oldImageURL != "" && *req.ImageURL != oldImageURL {
		s.cleanup.EnqueueDeletion(ctx, oldImageURL)
	}
	return course, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, courseID string) error {
	course, err := s.courseRepo.DeleteCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	var files []string
	if course.ImageURL != "" {
		files = append(files, course.ImageURL)
	}
	for _, module := range course.Modules {
		files = append(files, module.Resources...)
	}
	// EnqueueDeletion ignores resource entries that aren't local uploads.
	s.cleanup.EnqueueDeletion(ctx, files...)

	s.log.Info("course deleted", "course_id", courseID, "files_enqueued", len(files))
	return nil
}

func (s *CourseService) AddModule(ctx context.Context, courseID string, req ModuleRequest) (*model.Course, error) {
	course, err := s.courseRepo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}

	module, err := buildModule(req)
	if err != nil {
		return nil, err
	}
	course.Modules = append(course.Modules, module)

	if err := s.courseRepo.UpdateCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to add module: %w", err)
	}
	return course, nil
}

// EnrollStudent adds the student to the course roster. Enrolling twice is a
// no-op; a student appears at most once.
func (s *CourseService) EnrollStudent(ctx context.Context, courseID, studentID string) (*progression.CourseView, error) {
	course, err := s.courseRepo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}

	if !course.IsEnrolled(studentID) {
		course.EnrolledStudents = append(course.EnrolledStudents, studentID)
		if err := s.courseRepo.UpdateCourse(ctx, course); err != nil {
			return nil, fmt.Errorf("failed to enroll student: %w", err)
		}
		s.log.Info("student enrolled", "course_id", courseID, "student_id", studentID)
	}

	return s.buildView(ctx, course, studentID, model.RoleStudent), nil
}

// UpdateProgress sets the student's self-reported overall percent. It is an
// independent field, deliberately not derived from module completion.
func (s *CourseService) UpdateProgress(ctx context.Context, courseID, studentID string, percent int) (*model.Course, error) {
	if percent < 0 || percent > 100 {
		return nil, common.Errorf("progress must be between 0 and 100: %w", common.ErrBadRequest)
	}

	course, err := s.courseRepo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}

	if course.Progress == nil {
		course.Progress = make(map[string]int)
	}
	course.Progress[studentID] = percent

	if err := s.courseRepo.UpdateCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}
	return course, nil
}

// GetModuleQuiz returns the module's questions with the answers stripped,
// for a student about to take the quiz.
func (s *CourseService) GetModuleQuiz(ctx context.Context, courseID, moduleID string) ([]model.Question, error) {
	course, err := s.courseRepo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}

	module, _ := course.ModuleByID(moduleID)
	if module == nil {
		return nil, common.Errorf("module not found in course: %w", common.ErrNotFound)
	}

	questions := make([]model.Question, 0, len(module.QuizQuestions))
	for _, q := range module.QuizQuestions {
		questions = append(questions, model.Question{ID: q.ID, Question: q.Question, Options: q.Options})
	}
	return questions, nil
}

// UpdateModuleQuiz overwrites the module's question set.
func (s *CourseService) UpdateModuleQuiz(ctx context.Context, courseID, moduleID string, questions []model.Question) ([]model.Question, error) {
	if err := validateQuestions(questions); err != nil {
		return nil, err
	}

	course, err := s.courseRepo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}

	module, _ := course.ModuleByID(moduleID)
	if module == nil {
		return nil, common.Errorf("module not found in course: %w", common.ErrNotFound)
	}

	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
	}
	module.QuizQuestions = questions

	if err := s.courseRepo.UpdateCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}
	return questions, nil
}

// SubmitModuleQuiz grades a student's answers, records the score on the
// module and advances the unlock frontier. Advancement is monotonic and
// position-based; any submission on the next module in sequence completes
// it regardless of score.
func (s *CourseService) SubmitModuleQuiz(ctx context.Context, courseID, moduleID, studentID string, userAnswers map[string]string) (*progression.QuizResult, error) {
	if userAnswers == nil {
		return nil, common.Errorf("answers payload is required: %w", common.ErrBadRequest)
	}

	course, err := s.courseRepo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}

	module, moduleIndex := course.ModuleByID(moduleID)
	if module == nil {
		return nil, common.Errorf("module not found in course: %w", common.ErrNotFound)
	}

	result := progression.Grade(module.QuizQuestions, userAnswers)

	if module.Scores == nil {
		module.Scores = make(map[string]int)
	}
	module.Scores[studentID] = result.Score

	course.SetFrontier(studentID, progression.AdvanceFrontier(course.Frontier(studentID), moduleIndex))

	if err := s.courseRepo.UpdateCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to record quiz submission: %w", err)
	}

	s.log.Info("quiz submitted",
		"course_id", courseID, "module_id", moduleID, "student_id", studentID,
		"score", result.Score, "frontier", course.Frontier(studentID))
	return &result, nil
}
