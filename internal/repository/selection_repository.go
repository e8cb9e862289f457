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

const selectionColumns = `id, class_id, email, class_name, instructor_email, price, image, created_at`

// SelectionRepository persists the pre-enrollment class selections of students.
type SelectionRepository struct {
	db *sqlx.DB
}

// NewSelectionRepository constructs a SelectionRepository.
func NewSelectionRepository(db *sqlx.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// Create stores a selection. A second selection of the same class by the same email yields ErrDuplicate.
func (r *SelectionRepository) Create(ctx context.Context, sel *models.SelectedClass) error {
	if sel.ID == "" {
		sel.ID = uuid.NewString()
	}
	if sel.CreatedAt.IsZero() {
		sel.CreatedAt = time.Now().UTC()
	}
	sel.Email = strings.ToLower(sel.Email)
	const query = `INSERT INTO selected_classes (id, class_id, email, class_name, instructor_email, price, image, created_at)
        VALUES (:id, :class_id, :email, :class_name, :instructor_email, :price, :image, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sel); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create selection: %w", err)
	}
	return nil
}

// FindByID returns a selection by id.
func (r *SelectionRepository) FindByID(ctx context.Context, id string) (*models.SelectedClass, error) {
	const query = `SELECT ` + selectionColumns + ` FROM selected_classes WHERE id = $1`
	var sel models.SelectedClass
	if err := r.db.GetContext(ctx, &sel, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find selection: %w", err)
	}
	return &sel, nil
}

// ListByEmail returns the selections of a student, oldest first.
func (r *SelectionRepository) ListByEmail(ctx context.Context, email string) ([]models.SelectedClass, error) {
	const query = `SELECT ` + selectionColumns + ` FROM selected_classes WHERE email = LOWER($1) ORDER BY created_at ASC`
	selections := make([]models.SelectedClass, 0)
	if err := r.db.SelectContext(ctx, &selections, query, email); err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	return selections, nil
}

// DeleteByID removes a selection. Deleting an absent id is not an error and reports zero rows.
func (r *SelectionRepository) DeleteByID(ctx context.Context, id string) (int64, error) {
	const query = `DELETE FROM selected_classes WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete selection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete selection rows affected: %w", err)
	}
	return affected, nil
}
