package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/camp-school-api/internal/models"
)

const classColumns = `id, class_name, instructor_name, instructor_email, image, price, available_seat, enrolled, status, feedback, created_at, updated_at`

// ClassRepository manages persistence for class offerings.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns class offerings, newest first.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassOffering, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.InstructorEmail != "" {
		conditions = append(conditions, fmt.Sprintf("instructor_email = LOWER($%d)", len(args)+1))
		args = append(args, filter.InstructorEmail)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s FROM classes%s ORDER BY created_at DESC", classColumns, clause)
	classes := make([]models.ClassOffering, 0)
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID fetches a class offering by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassOffering, error) {
	const query = `SELECT ` + classColumns + ` FROM classes WHERE id = $1`
	var class models.ClassOffering
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// FindByNameAndInstructor returns every class offering matching the (class name, instructor email)
// pair. Callers decide how to treat zero or several matches.
func (r *ClassRepository) FindByNameAndInstructor(ctx context.Context, className, instructorEmail string) ([]models.ClassOffering, error) {
	const query = `SELECT ` + classColumns + ` FROM classes WHERE class_name = $1 AND instructor_email = LOWER($2) LIMIT 2`
	var classes []models.ClassOffering
	if err := r.db.SelectContext(ctx, &classes, query, className, instructorEmail); err != nil {
		return nil, fmt.Errorf("find class by name and instructor: %w", err)
	}
	return classes, nil
}

// Create inserts a new class offering.
func (r *ClassRepository) Create(ctx context.Context, class *models.ClassOffering) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	class.InstructorEmail = strings.ToLower(class.InstructorEmail)
	if class.Status == "" {
		class.Status = models.ClassStatusPending
	}

	const query = `INSERT INTO classes (id, class_name, instructor_name, instructor_email, image, price, available_seat, enrolled, status, feedback, created_at, updated_at)
        VALUES (:id, :class_name, :instructor_name, :instructor_email, :image, :price, :available_seat, :enrolled, :status, :feedback, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update persists descriptive fields. Seat counters are never written here.
func (r *ClassRepository) Update(ctx context.Context, class *models.ClassOffering) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET class_name = :class_name, image = :image, price = :price, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return expectAffected(res, "update class")
}

// UpdateStatus moderates a class offering.
func (r *ClassRepository) UpdateStatus(ctx context.Context, id string, status models.ClassStatus, feedback string) error {
	const query = `UPDATE classes SET status = $2, feedback = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, feedback, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update class status: %w", err)
	}
	return expectAffected(res, "update class status")
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
