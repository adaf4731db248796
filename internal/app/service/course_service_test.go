package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge_platform/internal/common"
	"knowledge_platform/internal/domain/model"
	"knowledge_platform/internal/domain/repository"
	"knowledge_platform/internal/platform/logger"
)

// memCourseRepo is an in-memory CourseRepository. Reads hand out clones so
// service-side mutations only stick after UpdateCourse, like a real store.
type memCourseRepo struct {
	courses map[string]*model.Course
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{courses: map[string]*model.Course{}}
}

func cloneCourse(c *model.Course) *model.Course {
	raw, _ := json.Marshal(c)
	var out model.Course
	_ = json.Unmarshal(raw, &out)
	return &out
}

func (r *memCourseRepo) CreateCourse(_ context.Context, c *model.Course) error {
	r.courses[c.ID] = cloneCourse(c)
	return nil
}

func (r *memCourseRepo) FindCourseByID(_ context.Context, id string) (*model.Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneCourse(c), nil
}

func (r *memCourseRepo) ListCourses(_ context.Context, _ repository.CourseFilter) ([]model.Course, error) {
	out := []model.Course{}
	for _, c := range r.courses {
		out = append(out, *cloneCourse(c))
	}
	return out, nil
}

func (r *memCourseRepo) UpdateCourse(_ context.Context, c *model.Course) error {
	if _, ok := r.courses[c.ID]; !ok {
		return common.ErrNotFound
	}
	r.courses[c.ID] = cloneCourse(c)
	return nil
}

func (r *memCourseRepo) DeleteCourse(_ context.Context, id string) (*model.Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(r.courses, id)
	return c, nil
}

type memUserRepo struct {
	users map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*model.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return common.ErrConflict
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) ListAll(_ context.Context) ([]model.User, error) {
	out := []model.User{}
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

type recordingCleaner struct {
	enqueued []string
}

func (c *recordingCleaner) EnqueueDeletion(_ context.Context, urls ...string) {
	c.enqueued = append(c.enqueued, urls...)
}

func courseTestSetup(t *testing.T) (*CourseService, *memCourseRepo, *memUserRepo, *recordingCleaner) {
	t.Helper()
	courseRepo := newMemCourseRepo()
	userRepo := newMemUserRepo()
	cleaner := &recordingCleaner{}
	svc := NewCourseService(courseRepo, userRepo, cleaner, logger.NewNop())
	return svc, courseRepo, userRepo, cleaner
}

func seedCourse(t *testing.T, repo *memCourseRepo) *model.Course {
	t.Helper()
	course := &model.Course{
		ID:       "c1",
		Title:    "Intro to Databases",
		Slug:     "intro-to-databases",
		Category: "General",
		ImageURL: "/uploads/cover.png",
		Modules: []model.Module{
			{
				ID: "m0", Title: "Relations", Content: "tables and rows",
				Resources: []string{"/uploads/relations.pdf", "https://example.com/external"},
				QuizQuestions: []model.Question{
					{ID: "q1", Question: "Rows are?", Options: []string{"tuples", "trees", "heaps", "sets"}, Answer: "tuples"},
					{ID: "q2", Question: "SQL is?", Options: []string{"imperative", "declarative", "binary", "manual"}, Answer: "declarative"},
				},
			},
			{ID: "m1", Title: "Joins", Content: "combining tables"},
			{ID: "m2", Title: "Indexes", Content: "speeding up reads"},
		},
	}
	require.NoError(t, repo.CreateCourse(context.Background(), course))
	return course
}

func TestSubmitModuleQuiz_GradesPersistsAndAdvances(t *testing.T) {
	svc, repo, _, _ := courseTestSetup(t)
	seedCourse(t, repo)
	ctx := context.Background()

	res, err := svc.SubmitModuleQuiz(ctx, "c1", "m0", "stu1", map[string]string{"q1": "tuples", "q2": "declarative"})
	require.NoError(t, err)

	assert.Equal(t, 100, res.Score)
	assert.Equal(t, 2, res.CorrectCount)
	assert.Equal(t, 2, res.TotalQuestions)
	assert.Equal(t, "tuples", res.QuizQuestions[0].Answer)

	stored, err := repo.FindCourseByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Modules[0].Scores["stu1"])
	assert.Equal(t, 0, stored.Frontier("stu1"))
}

func TestSubmitModuleQuiz_ZeroScoreStillAdvances(t *testing.T) {
	svc, repo, _, _ := courseTestSetup(t)
	seedCourse(t, repo)
	ctx := context.Background()

	res, err := svc.SubmitModuleQuiz(ctx, "c1", "m0", "stu1", map[string]string{"q1": "trees"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)

	stored, _ := repo.FindCourseByID(ctx, "c1")
	assert.Equal(t, 0, stored.Frontier("stu1"))

	// a second view-worthy submission on the now-unlocked module advances again
	_, err = svc.SubmitModuleQuiz(ctx, "c1", "m1", "stu1", map[string]string{})
	require.NoError(t, err)
	stored, _ = repo.FindCourseByID(ctx, "c1")
	assert.Equal(t, 1, stored.Frontier("stu1"))
}

func TestSubmitModuleQuiz_FrontierNeverRegresses(t *testing.T) {
	svc, repo, _, _ := courseTestSetup(t)
	seedCourse(t, repo)
	ctx := context.Background()

	_, err := svc.SubmitModuleQuiz(ctx, "c1", "m0", "stu1", map[string]string{})
	require.NoError(t, err)
	_, err = svc.SubmitModuleQuiz(ctx, "c1", "m1", "stu1", map[string]string{})
	require.NoError(t, err)

	// resubmitting the first module keeps the frontier at 1
	_, err = svc.SubmitModuleQuiz(ctx, "c1", "m0", "stu1", map[string]string{"q1": "tuples", "q2": "declarative"})
	require.NoError(t, err)

	stored, _ := repo.FindCourseByID(ctx, "c1")
	assert.Equal(t, 1, stored.Frontier("stu1"))
	assert.Equal(t, 100, stored.Modules[0].Scores["stu1"]) // new score still recorded
}

func TestSubmitModuleQuiz_Errors(t *testing.T) {
	svc, repo, _, _ := courseTestSetup(t)
	seedCourse(t, repo)
	ctx := context.Background()

	_, err := svc.SubmitModuleQuiz(ctx, "missing", "m0", "stu1", map[string]string{})
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.SubmitModuleQuiz(ctx, "c1", "missing", "stu1", map[string]string{})
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.SubmitModuleQuiz(ctx, "c1", "m0", "stu1", nil)
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestGetCourseView_StudentGetsLockedStubs(t *testing.T) {
	svc, repo, userRepo, _ := courseTestSetup(t)
	course := seedCourse(t, repo)
	ctx := context.Background()

	userRepo.users["stu1"] = &model.User{ID: "stu1", Name: "Ada", Email: "ada@example.com", Role: model.RoleStudent}
	course.EnrolledStudents = []string{"stu1", "ghost"}
	require.NoError(t, repo.UpdateCourse(ctx, course))

	view, err := svc.GetCourseView(ctx, "c1", "stu1", model.RoleStudent)
	require.NoError(t, err)

	require.Len(t, view.Modules, 3)
	assert.False(t, view.Modules[0].IsLocked)
	assert.True(t, view.Modules[1].IsLocked)
	assert.Empty(t, view.Modules[1].Content)

	// missing users are filtered out of the roster
	require.Len(t, view.Enrolled, 1)
	assert.Equal(t, "Ada", view.Enrolled[0].Name)
}

func TestGetCourseView_InstructorSeesEverything(t *testing.T) {
	svc, repo, _, _ := courseTestSetup(t)
	seedCourse(t, repo)

	view, err := svc.GetCourseView(context.Background(), "c1", "inst1", model.RoleInstructor)
	require.NoError(t, err)
	for _, m := range view.Modules {
		assert.False(t, m.IsLocked)
	}
}

func TestEnrollStudent_Idempotent(t *testing.T) {
	svc, repo, userRepo, _ := courseTestSetup(t)
	seedCourse(t, repo)
	ctx := context.Background()
	userRepo.users["stu1"] = &model.User{ID: "stu1", Name: "Ada", Email: "ada@example.com"}

	_, err := svc.EnrollStudent(ctx, "c1", "stu1")
	require.NoError(t, err)
	_, err = svc.EnrollStudent(ctx, "c1", "stu1")
	require.NoError(t, err)

	stored, _ := repo.FindCourseByID(ctx, "c1")
	assert.Equal(t, []string{"stu1"}, stored.EnrolledStudents)
}

func TestUpdateProgress(t *testing.T) {
	svc, repo, _, _ := courseTestSetup(t)
	seedCourse(t, repo)
	ctx := context.Background()

	_, err := svc.UpdateProgress(ctx, "c1", "stu1", 140)
	assert.ErrorIs(t, err, common.ErrBadRequest)
	_, err = svc.UpdateProgress(ctx, "c1", "stu1", -1)
	assert.ErrorIs(t, err, common.ErrBadRequest)

	_, err = svc.UpdateProgress(ctx, "c1", "stu1", 100)
	require.NoError(t, err)

	// self-reported progress is independent of the unlock frontier
	stored, _ := repo.FindCourseByID(ctx, "c1")
	assert.Equal(t, 100, stored.Progress["stu1"])
	assert.Equal(t, -1, stored.Frontier("stu1"))
}

func TestUpdateModuleQuiz_ValidatesQuestions(t *testing.T) {
	svc, repo, _, _ := courseTestSetup(t)
	seedCourse(t, repo)
	ctx := context.Background()

	tests := []struct {
		name      string
		questions []model.Question
	}{
		{"answer not an option", []model.Question{
			{Question: "Q?", Options: []string{"a", "b", "c", "d"}, Answer: "z"},
		}},
		{"too few options", []model.Question{
			{Question: "Q?", Options: []string{"a", "b"}, Answer: "a"},
		}},
		{"no question text", []model.Question{
			{Question: " ", Options: []string{"a", "b", "c", "d"}, Answer: "a"},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateModuleQuiz(ctx, "c1", "m1", tc.questions)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestUpdateModuleQuiz_OverwritesAndAssignsIDs(t *testing.T) {
	svc, repo, _, _ := courseTestSetup(t)
	seedCourse(t, repo)
	ctx := context.Background()

	questions, err := svc.UpdateModuleQuiz(ctx, "c1", "m1", []model.Question{
		{Question: "Join type?", Options: []string{"inner", "outer", "left", "right"}, Answer: "inner"},
	})
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.NotEmpty(t, questions[0].ID)

	stored, _ := repo.FindCourseByID(ctx, "c1")
	module, _ := stored.ModuleByID("m1")
	require.Len(t, module.QuizQuestions, 1)
	assert.Equal(t, "inner", module.QuizQuestions[0].Answer)
}

func TestGetModuleQuiz_HidesAnswers(t *testing.T) {
	svc, repo, _, _ := courseTestSetup(t)
	seedCourse(t, repo)

	questions, err := svc.GetModuleQuiz(context.Background(), "c1", "m0")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	for _, q := range questions {
		assert.Empty(t, q.Answer)
		assert.Len(t, q.Options, 4)
	}
}

func TestDeleteCourse_EnqueuesLocalFilesOnly(t *testing.T) {
	svc, repo, _, cleaner := courseTestSetup(t)
	seedCourse(t, repo)

	require.NoError(t, svc.DeleteCourse(context.Background(), "c1"))

	// image + all module resources are handed over; the cleaner itself
	// filters out external links
	assert.Contains(t, cleaner.enqueued, "/uploads/cover.png")
	assert.Contains(t, cleaner.enqueued, "/uploads/relations.pdf")
	assert.Contains(t, cleaner.enqueued, "https://example.com/external")

	_, err := repo.FindCourseByID(context.Background(), "c1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateCourse_ReplacingImageEnqueuesOldOne(t *testing.T) {
	svc, repo, _, cleaner := courseTestSetup(t)
	seedCourse(t, repo)
	ctx := context.Background()

	newImage := "/uploads/new-cover.png"
	course, err := svc.UpdateCourse(ctx, "c1", UpdateCourseRequest{ImageURL: &newImage})
	require.NoError(t, err)
	assert.Equal(t, newImage, course.ImageURL)
	assert.Equal(t, []string{"/uploads/cover.png"}, cleaner.enqueued)

	// updating without touching the image enqueues nothing further
	title := "Databases, Revisited"
	course, err = svc.UpdateCourse(ctx, "c1", UpdateCourseRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "databases-revisited", course.Slug)
	assert.Len(t, cleaner.enqueued, 1)
}

func TestCreateCourse(t *testing.T) {
	svc, repo, _, _ := courseTestSetup(t)
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, CreateCourseRequest{
		Title:      "Go for Gophers",
		Difficulty: model.DifficultyBeginner,
		Modules: []ModuleRequest{
			{Title: "Hello", Content: "hello world", QuizQuestions: []model.Question{
				{Question: "Keyword?", Options: []string{"func", "def", "fn", "sub"}, Answer: "func"},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "go-for-gophers", course.Slug)
	assert.Equal(t, model.DefaultCategory, course.Category)
	require.Len(t, course.Modules, 1)
	assert.NotEmpty(t, course.Modules[0].ID)
	assert.NotEmpty(t, course.Modules[0].QuizQuestions[0].ID)

	_, err = repo.FindCourseByID(ctx, course.ID)
	assert.NoError(t, err)

	_, err = svc.CreateCourse(ctx, CreateCourseRequest{})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCreateCourse_RejectsInvalidQuiz(t *testing.T) {
	svc, _, _, _ := courseTestSetup(t)

	_, err := svc.CreateCourse(context.Background(), CreateCourseRequest{
		Title: "Broken Quiz",
		Modules: []ModuleRequest{
			{Title: "M", QuizQuestions: []model.Question{
				{Question: "Q?", Options: []string{"a", "b", "c", "d"}, Answer: "nope"},
			}},
		},
	})
	assert.ErrorIs(t, err, common.ErrValidation)
}
