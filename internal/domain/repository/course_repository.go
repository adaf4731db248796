package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"knowledge_platform/internal/common"
	"knowledge_platform/internal/domain/model"
)

// CourseFilter narrows ListCourses. Zero values mean no filtering.
type CourseFilter struct {
	Search     string
	Category   string
	Difficulty model.CourseDifficulty
}

type CourseRepository interface {
	CreateCourse(ctx context.Context, course *model.Course) error
	FindCourseByID(ctx context.Context, id string) (*model.Course, error)
	ListCourses(ctx context.Context, filter CourseFilter) ([]model.Course, error)
	// UpdateCourse persists the whole aggregate: scalar columns plus the
	// embedded modules and per-student maps.
	UpdateCourse(ctx context.Context, course *model.Course) error
	// DeleteCourse removes the row and returns the deleted aggregate so the
	// caller can clean up files it referenced.
	DeleteCourse(ctx context.Context, id string) (*model.Course, error)
}

type pgCourseRepository struct {
	db *sql.DB
}

func NewPgCourseRepository(db *sql.DB) CourseRepository {
	return &pgCourseRepository{db: db}
}

// courseJSONB marshals the embedded parts of the aggregate for storage.
func courseJSONB(c *model.Course) (modules, enrolled, progress, frontier []byte, err error) {
	if modules, err = json.Marshal(orEmptyModules(c.Modules)); err != nil {
		return
	}
	if enrolled, err = json.Marshal(orEmptyStrings(c.EnrolledStudents)); err != nil {
		return
	}
	if progress, err = json.Marshal(orEmptyMap(c.Progress)); err != nil {
		return
	}
	frontier, err = json.Marshal(orEmptyMap(c.HighestCompletedModule))
	return
}

func orEmptyModules(m []model.Module) []model.Module {
	if m == nil {
		return []model.Module{}
	}
	return m
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyMap(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func (r *pgCourseRepository) CreateCourse(ctx context.Context, c *model.Course) error {
	modules, enrolled, progress, frontier, err := courseJSONB(c)
	if err != nil {
		return fmt.Errorf("pgCourseRepository.CreateCourse marshal: %w", err)
	}

	query := `INSERT INTO courses (id, title, slug, description, image_url, category, difficulty,
	                               enrolled_students, modules, progress, highest_completed_module)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.db.ExecContext(ctx, query, c.ID, c.Title, c.Slug, c.Description, c.ImageURL, c.Category,
		c.Difficulty, enrolled, modules, progress, frontier)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("course with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgCourseRepository.CreateCourse: %w", err)
	}
	return nil
}

const courseColumns = `id, title, slug, description, image_url, category, difficulty,
	enrolled_students, modules, progress, highest_completed_module, created_at, updated_at`

func scanCourse(row interface {
	Scan(dest ...interface{}) error
}) (*model.Course, error) {
	c := &model.Course{}
	var imageURL, difficulty sql.NullString
	var enrolled, modules, progress, frontier []byte

	err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &imageURL, &c.Category, &difficulty,
		&enrolled, &modules, &progress, &frontier, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ImageURL = imageURL.String
	c.Difficulty = model.CourseDifficulty(difficulty.String)

	if err := json.Unmarshal(enrolled, &c.EnrolledStudents); err != nil {
		return nil, fmt.Errorf("unmarshal enrolled_students: %w", err)
	}
	if err := json.Unmarshal(modules, &c.Modules); err != nil {
		return nil, fmt.Errorf("unmarshal modules: %w", err)
	}
	if err := json.Unmarshal(progress, &c.Progress); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}
	if err := json.Unmarshal(frontier, &c.HighestCompletedModule); err != nil {
		return nil, fmt.Errorf("unmarshal highest_completed_module: %w", err)
	}
	return c, nil
}

func (r *pgCourseRepository) FindCourseByID(ctx context.Context, id string) (*model.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	course, err := scanCourse(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCourseRepository.FindCourseByID: %w", err)
	}
	return course, nil
}

func (r *pgCourseRepository) ListCourses(ctx context.Context, filter CourseFilter) ([]model.Course, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + courseColumns + ` FROM courses`)

	var conditions []string
	var args []interface{}
	argID := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argID, argID+1))
		likeTerm := "%" + filter.Search + "%"
		args = append(args, likeTerm, likeTerm)
		argID += 2
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argID))
		args = append(args, filter.Category)
		argID++
	}
	if filter.Difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("difficulty = $%d", argID))
		args = append(args, filter.Difficulty)
		argID++
	}

	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC")

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pgCourseRepository.ListCourses query: %w", err)
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("pgCourseRepository.ListCourses scan: %w", err)
		}
		courses = append(courses, *course)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgCourseRepository.ListCourses rows.Err: %w", err)
	}
	return courses, nil
}

func (r *pgCourseRepository) UpdateCourse(ctx context.Context, c *model.Course) error {
	modules, enrolled, progress, frontier, err := courseJSONB(c)
	if err != nil {
		return fmt.Errorf("pgCourseRepository.UpdateCourse marshal: %w", err)
	}

	query := `UPDATE courses SET
	            title = $1, slug = $2, description = $3, image_url = $4, category = $5, difficulty = $6,
	            enrolled_students = $7, modules = $8, progress = $9, highest_completed_module = $10,
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $11`
	res, err := r.db.ExecContext(ctx, query, c.Title, c.Slug, c.Description, c.ImageURL, c.Category,
		c.Difficulty, enrolled, modules, progress, frontier, c.ID)
	if err != nil {
		return fmt.Errorf("pgCourseRepository.UpdateCourse: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgCourseRepository) DeleteCourse(ctx context.Context, id string) (*model.Course, error) {
	query := `DELETE FROM courses WHERE id = $1 RETURNING ` + courseColumns
	course, err := scanCourse(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCourseRepository.DeleteCourse: %w", err)
	}
	return course, nil
}
