package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ash-tracker/behavior-api/internal/models"
)

const incidentColumns = "id, child_id, antecedent, behavior, behavior_type, consequence, occurred_at, duration_minutes, intensity, location, people, recorded_by, recorded_at, notes"

// IncidentRepository manages persistence for behavior incidents.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository constructs a new repository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// List returns incidents per provided filter, newest first.
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]models.BehaviorIncident, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ChildID != "" {
		where = append(where, fmt.Sprintf("child_id = $%d", len(args)+1))
		args = append(args, filter.ChildID)
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("occurred_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("occurred_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(filter.BehaviorTypes) > 0 {
		placeholder := fmt.Sprintf("$%d", len(args)+1)
		values := make([]string, len(filter.BehaviorTypes))
		for i, t := range filter.BehaviorTypes {
			values[i] = string(t)
		}
		args = append(args, pq.Array(values))
		where = append(where, fmt.Sprintf("behavior_type = ANY(%s)", placeholder))
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

	query := fmt.Sprintf("SELECT %s FROM behavior_incidents WHERE %s ORDER BY occurred_at DESC, recorded_at DESC LIMIT %d OFFSET %d",
		incidentColumns, whereClause, size, offset)
	var incidents []models.BehaviorIncident
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM behavior_incidents WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}
	return incidents, total, nil
}

// ListForExport returns every incident of one child inside the optional
// inclusive range, oldest first. Exports must read chronologically regardless
// of how rows happen to be ordered in memory, so the ordering lives in the
// statement.
func (r *IncidentRepository) ListForExport(ctx context.Context, childID string, from, to *time.Time) ([]models.BehaviorIncident, error) {
	where := []string{"child_id = $1"}
	args := []interface{}{childID}
	if from != nil {
		where = append(where, fmt.Sprintf("occurred_at >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("occurred_at <= $%d", len(args)+1))
		args = append(args, *to)
	}
	query := fmt.Sprintf("SELECT %s FROM behavior_incidents WHERE %s ORDER BY occurred_at ASC",
		incidentColumns, strings.Join(where, " AND "))
	var incidents []models.BehaviorIncident
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, fmt.Errorf("list incidents for export: %w", err)
	}
	return incidents, nil
}

// FindByID loads one incident.
func (r *IncidentRepository) FindByID(ctx context.Context, id string) (*models.BehaviorIncident, error) {
	query := fmt.Sprintf("SELECT %s FROM behavior_incidents WHERE id = $1", incidentColumns)
	var incident models.BehaviorIncident
	if err := r.db.GetContext(ctx, &incident, query, id); err != nil {
		return nil, err
	}
	return &incident, nil
}

// Create inserts a new incident. RecordedAt is system-set here and immutable
// afterwards.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.BehaviorIncident) error {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	incident.RecordedAt = now
	if incident.OccurredAt.IsZero() {
		incident.OccurredAt = now
	}
	query := `INSERT INTO behavior_incidents (id, child_id, antecedent, behavior, behavior_type, consequence, occurred_at, duration_minutes, intensity, location, people, recorded_by, recorded_at, notes)
VALUES (:id, :child_id, :antecedent, :behavior, :behavior_type, :consequence, :occurred_at, :duration_minutes, :intensity, :location, :people, :recorded_by, :recorded_at, :notes)`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// Update modifies an existing incident.
func (r *IncidentRepository) Update(ctx context.Context, incident *models.BehaviorIncident) error {
	query := `UPDATE behavior_incidents SET antecedent = :antecedent, behavior = :behavior, behavior_type = :behavior_type, consequence = :consequence, occurred_at = :occurred_at, duration_minutes = :duration_minutes, intensity = :intensity, location = :location, people = :people, recorded_by = :recorded_by, notes = :notes
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// Delete removes an incident permanently.
func (r *IncidentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM behavior_incidents WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	return nil
}
