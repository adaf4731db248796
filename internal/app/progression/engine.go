// Package progression implements the course progression core: per-viewer
// module visibility and quiz grading with monotonic frontier advancement.
// It is pure computation over course aggregates; persistence and transport
// stay with the callers.
package progression

import (
	"math"

	"knowledge_platform/internal/domain/model"
)

// ModuleView is a module as a particular viewer is allowed to see it. For a
// locked module only ID, Title and IsLocked are populated; content,
// resources and quiz questions are withheld entirely.
type ModuleView struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	IsLocked      bool             `json:"is_locked"`
	Content       string           `json:"content,omitempty"`
	Resources     []string         `json:"resources,omitempty"`
	QuizQuestions []model.Question `json:"quiz_questions,omitempty"`
	Scores        map[string]int   `json:"scores,omitempty"`
}

// CourseView is the course aggregate shaped for one viewer.
type CourseView struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	Slug        string                  `json:"slug"`
	Description string                  `json:"description"`
	ImageURL    string                  `json:"image_url,omitempty"`
	Category    string                  `json:"category"`
	Difficulty  model.CourseDifficulty  `json:"difficulty,omitempty"`
	Enrolled    []model.EnrolledStudent `json:"enrolled_students"`
	Modules     []ModuleView            `json:"modules"`
	Progress    map[string]int          `json:"progress,omitempty"`
	CreatedAt   string                  `json:"created_at,omitempty"`
	UpdatedAt   string                  `json:"updated_at,omitempty"`
}

// QuizResult is what a graded submission reports back. QuizQuestions carries
// the full question set including correct answers so the caller can render a
// review screen.
type QuizResult struct {
	Score          int               `json:"score"`
	CorrectCount   int               `json:"correct_count"`
	TotalQuestions int               `json:"total_questions"`
	QuizQuestions  []model.Question  `json:"quiz_questions"`
	UserAnswers    map[string]string `json:"user_answers"`
}

// ResolveModules projects the course's modules for the given viewer.
// Students see modules up to and including the one just past their frontier;
// everything beyond is a locked stub. Non-student roles see every module
// unlocked. The input course is not mutated.
func ResolveModules(course *model.Course, viewerID, viewerRole string) []ModuleView {
	views := make([]ModuleView, 0, len(course.Modules))

	if viewerRole != model.RoleStudent {
		for _, m := range course.Modules {
			views = append(views, unlockedView(m))
		}
		return views
	}

	nextAvailable := course.Frontier(viewerID) + 1
	for i, m := range course.Modules {
		if i <= nextAvailable {
			views = append(views, unlockedView(m))
		} else {
			views = append(views, ModuleView{ID: m.ID, Title: m.Title, IsLocked: true})
		}
	}
	return views
}

func unlockedView(m model.Module) ModuleView {
	return ModuleView{
		ID:            m.ID,
		Title:         m.Title,
		IsLocked:      false,
		Content:       m.Content,
		Resources:     m.Resources,
		QuizQuestions: m.QuizQuestions,
		Scores:        m.Scores,
	}
}

// Grade compares submitted answers against the module's question set.
// Matching is exact string equality; a missing or empty answer is simply
// incorrect. A module with no questions grades to zero.
func Grade(questions []model.Question, userAnswers map[string]string) QuizResult {
	correct := 0
	for _, q := range questions {
		if ans, ok := userAnswers[q.ID]; ok && ans == q.Answer && ans != "" {
			correct++
		}
	}

	total := len(questions)
	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return QuizResult{
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: total,
		QuizQuestions:  questions,
		UserAnswers:    userAnswers,
	}
}

// AdvanceFrontier computes the new frontier after a submission on the module
// at moduleIndex. Advancement is position-based, not score-gated: any
// submission on the next module in sequence (or the very first submission)
// marks it completed. The frontier never regresses.
func AdvanceFrontier(existing, moduleIndex int) int {
	if moduleIndex == existing+1 || existing < 0 {
		if moduleIndex > existing {
			return moduleIndex
		}
	}
	return existing
}
