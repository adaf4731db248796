package model

import (
	"time"
)

type CourseDifficulty string

const (
	DifficultyBeginner     CourseDifficulty = "Beginner"
	DifficultyIntermediate CourseDifficulty = "Intermediate"
	DifficultyAdvanced     CourseDifficulty = "Advanced"

	DefaultCategory = "General"
)

// Question is a single quiz question embedded in a module. Answer must be
// one of Options; authoring validates that before persisting.
type Question struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer,omitempty"`
}

// Module is an ordered unit of course content. Its index within
// Course.Modules defines the unlock order for students.
type Module struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Content       string         `json:"content,omitempty"`
	Resources     []string       `json:"resources,omitempty"`
	QuizQuestions []Question     `json:"quiz_questions,omitempty"`
	Scores        map[string]int `json:"scores,omitempty"` // studentID -> percent
}

// Course is the aggregate root. Modules, the quiz questions inside them and
// the per-student maps are embedded, mirroring a document model; the
// repository stores them as JSONB columns.
type Course struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	ImageURL    string           `json:"image_url,omitempty"`
	Category    string           `json:"category"`
	Difficulty  CourseDifficulty `json:"difficulty,omitempty"`

	EnrolledStudents []string `json:"enrolled_students"`
	Modules          []Module `json:"modules"`

	// Progress is the self-reported overall percent per student. It is
	// deliberately independent of HighestCompletedModule; the two can
	// diverge.
	Progress map[string]int `json:"progress,omitempty"`

	// HighestCompletedModule maps studentID to the 0-based index of the
	// most recently completed module (the frontier). Absent entry means
	// nothing completed yet (-1).
	HighestCompletedModule map[string]int `json:"highest_completed_module,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEnrolled reports whether studentID appears in EnrolledStudents.
func (c *Course) IsEnrolled(studentID string) bool {
	for _, id := range c.EnrolledStudents {
		if id == studentID {
			return true
		}
	}
	return false
}

// Frontier returns the student's highest completed module index, -1 when
// the student has no record yet.
func (c *Course) Frontier(studentID string) int {
	if c.HighestCompletedModule == nil {
		return -1
	}
	if idx, ok := c.HighestCompletedModule[studentID]; ok {
		return idx
	}
	return -1
}

// SetFrontier records a frontier value, never letting it regress.
func (c *Course) SetFrontier(studentID string, moduleIndex int) {
	if c.HighestCompletedModule == nil {
		c.HighestCompletedModule = make(map[string]int)
	}
	if existing, ok := c.HighestCompletedModule[studentID]; ok && existing >= moduleIndex {
		return
	}
	c.HighestCompletedModule[studentID] = moduleIndex
}

// ModuleByID returns the module and its index, or nil and -1.
func (c *Course) ModuleByID(moduleID string) (*Module, int) {
	for i := range c.Modules {
		if c.Modules[i].ID == moduleID {
			return &c.Modules[i], i
		}
	}
	return nil, -1
}
