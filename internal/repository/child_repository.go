package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ash-tracker/behavior-api/internal/models"
)

const childColumns = "id, animal_name, animal_emoji, date_of_birth, age_range, diagnosis, notes, created_at, updated_at, archived_at"

// ChildRepository manages persistence for child profiles.
type ChildRepository struct {
	db *sqlx.DB
}

// NewChildRepository constructs a new repository.
func NewChildRepository(db *sqlx.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

// List returns child profiles, newest first. Archived profiles are excluded
// unless the filter asks for them.
func (r *ChildRepository) List(ctx context.Context, filter models.ChildFilter) ([]models.Child, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if !filter.IncludeArchived {
		where = append(where, "archived_at IS NULL")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM children WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		childColumns, whereClause, size, offset)
	var children []models.Child
	if err := r.db.SelectContext(ctx, &children, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list children: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM children WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count children: %w", err)
	}
	return children, total, nil
}

// FindByID loads one child profile.
func (r *ChildRepository) FindByID(ctx context.Context, id string) (*models.Child, error) {
	query := fmt.Sprintf("SELECT %s FROM children WHERE id = $1", childColumns)
	var child models.Child
	if err := r.db.GetContext(ctx, &child, query, id); err != nil {
		return nil, err
	}
	return &child, nil
}

// ExistsByAnimalName reports whether a non-archived profile already uses the
// pseudonym.
func (r *ChildRepository) ExistsByAnimalName(ctx context.Context, name string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM children WHERE animal_name = $1 AND archived_at IS NULL"
	if err := r.db.GetContext(ctx, &count, query, name); err != nil {
		return false, fmt.Errorf("check animal name: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new child profile.
func (r *ChildRepository) Create(ctx context.Context, child *models.Child) error {
	if child.ID == "" {
		child.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if child.CreatedAt.IsZero() {
		child.CreatedAt = now
	}
	child.UpdatedAt = now
	query := `INSERT INTO children (id, animal_name, animal_emoji, date_of_birth, age_range, diagnosis, notes, created_at, updated_at)
VALUES (:id, :animal_name, :animal_emoji, :date_of_birth, :age_range, :diagnosis, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, child); err != nil {
		return fmt.Errorf("create child: %w", err)
	}
	return nil
}

// Update modifies the mutable fields of a child profile. The pseudonym is
// immutable after creation and is deliberately absent from the statement.
func (r *ChildRepository) Update(ctx context.Context, child *models.Child) error {
	child.UpdatedAt = time.Now().UTC()
	query := `UPDATE children SET date_of_birth = :date_of_birth, age_range = :age_range, diagnosis = :diagnosis, notes = :notes, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, child); err != nil {
		return fmt.Errorf("update child: %w", err)
	}
	return nil
}

// Archive soft-deletes the profile by stamping archived_at.
func (r *ChildRepository) Archive(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE children SET archived_at = $1, updated_at = $1 WHERE id = $2", at.UTC(), id); err != nil {
		return fmt.Errorf("archive child: %w", err)
	}
	return nil
}

// Unarchive clears the archive stamp.
func (r *ChildRepository) Unarchive(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE children SET archived_at = NULL, updated_at = $1 WHERE id = $2", time.Now().UTC(), id); err != nil {
		return fmt.Errorf("unarchive child: %w", err)
	}
	return nil
}
