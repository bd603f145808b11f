package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ash-tracker/behavior-api/internal/models"
)

// TemplateRepository reads curated behavior templates. Templates are seeded
// once and never authored through the API.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs a new repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// List returns every template in behavior-type order.
func (r *TemplateRepository) List(ctx context.Context) ([]models.BehaviorTemplate, error) {
	query := "SELECT id, behavior_type, behavior_name, icon, common_antecedents, common_consequences FROM behavior_templates ORDER BY behavior_type ASC"
	var templates []models.BehaviorTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// Count reports how many templates exist.
func (r *TemplateRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM behavior_templates"); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return count, nil
}

// Seed inserts the provided templates. Callers guard with Count so seeding
// only happens on an empty table.
func (r *TemplateRepository) Seed(ctx context.Context, templates []models.BehaviorTemplate) error {
	query := `INSERT INTO behavior_templates (id, behavior_type, behavior_name, icon, common_antecedents, common_consequences)
VALUES (:id, :behavior_type, :behavior_name, :icon, :common_antecedents, :common_consequences)`
	for i := range templates {
		if _, err := r.db.NamedExecContext(ctx, query, &templates[i]); err != nil {
			return fmt.Errorf("seed template %s: %w", templates[i].ID, err)
		}
	}
	return nil
}
