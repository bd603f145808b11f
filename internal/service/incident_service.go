package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ash-tracker/behavior-api/internal/models"
	appErrors "github.com/ash-tracker/behavior-api/pkg/errors"
)

type incidentRepository interface {
	List(ctx context.Context, filter models.IncidentFilter) ([]models.BehaviorIncident, int, error)
	FindByID(ctx context.Context, id string) (*models.BehaviorIncident, error)
	Create(ctx context.Context, incident *models.BehaviorIncident) error
	Update(ctx context.Context, incident *models.BehaviorIncident) error
	Delete(ctx context.Context, id string) error
}

type incidentChildLookup interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
}

// IncidentService handles ABC incident logging.
type IncidentService struct {
	repo      incidentRepository
	children  incidentChildLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIncidentService constructs the service.
func NewIncidentService(repo incidentRepository, children incidentChildLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *IncidentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &IncidentService{repo: repo, children: children, cache: cache, validator: validate, logger: logger}
	svc.validator.RegisterValidation("behavior_type", func(fl validator.FieldLevel) bool {
		return models.ValidBehaviorType(models.BehaviorType(fl.Field().String()))
	})
	return svc
}

// IncidentListRequest describes filters for listing incidents.
type IncidentListRequest struct {
	ChildID       string     `json:"child_id"`
	From          *time.Time `json:"from"`
	To            *time.Time `json:"to"`
	BehaviorTypes []string   `json:"behavior_types"`
	Page          int        `json:"page"`
	PageSize      int        `json:"page_size"`
}

// CreateIncidentRequest describes the create payload. Antecedent and
// consequence are optional; blank values are stored as the "Not specified"
// sentinel so downstream aggregation can skip them.
type CreateIncidentRequest struct {
	ChildID         string     `json:"child_id" validate:"required"`
	Antecedent      string     `json:"antecedent"`
	Behavior        string     `json:"behavior" validate:"required"`
	BehaviorType    string     `json:"behavior_type" validate:"required,behavior_type"`
	Consequence     string     `json:"consequence"`
	OccurredAt      *time.Time `json:"occurred_at"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=0"`
	Intensity       *int       `json:"intensity" validate:"omitempty,min=1,max=5"`
	Location        string     `json:"location"`
	People          []string   `json:"people"`
	RecordedBy      string     `json:"recorded_by"`
	Notes           string     `json:"notes"`
}

// UpdateIncidentRequest describes the update payload. RecordedAt is
// system-owned and cannot be changed.
type UpdateIncidentRequest struct {
	Antecedent      string     `json:"antecedent"`
	Behavior        string     `json:"behavior" validate:"required"`
	BehaviorType    string     `json:"behavior_type" validate:"required,behavior_type"`
	Consequence     string     `json:"consequence"`
	OccurredAt      *time.Time `json:"occurred_at"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=0"`
	Intensity       *int       `json:"intensity" validate:"omitempty,min=1,max=5"`
	Location        string     `json:"location"`
	People          []string   `json:"people"`
	RecordedBy      string     `json:"recorded_by"`
	Notes           string     `json:"notes"`
}

// List returns incidents with pagination, newest first.
func (s *IncidentService) List(ctx context.Context, req IncidentListRequest) ([]models.BehaviorIncident, *models.Pagination, error) {
	filter := models.IncidentFilter{
		ChildID:  req.ChildID,
		From:     req.From,
		To:       req.To,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	for _, raw := range req.BehaviorTypes {
		t := models.BehaviorType(raw)
		if !models.ValidBehaviorType(t) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown behavior type %q", raw))
		}
		filter.BehaviorTypes = append(filter.BehaviorTypes, t)
	}
	incidents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incidents")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return incidents, pagination, nil
}

// Get loads one incident.
func (s *IncidentService) Get(ctx context.Context, id string) (*models.BehaviorIncident, error) {
	incident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	return incident, nil
}

// Create logs a new incident against an active child profile. OccurredAt may
// be backdated; it defaults to the time of recording.
func (s *IncidentService) Create(ctx context.Context, req CreateIncidentRequest) (*models.BehaviorIncident, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	child, err := s.children.FindByID(ctx, req.ChildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if child.Archived() {
		return nil, appErrors.Clone(appErrors.ErrArchived, "cannot log incidents for an archived child")
	}

	incident := &models.BehaviorIncident{
		ChildID:         req.ChildID,
		Antecedent:      orNotSpecified(req.Antecedent),
		Behavior:        req.Behavior,
		BehaviorType:    models.BehaviorType(req.BehaviorType),
		Consequence:     orNotSpecified(req.Consequence),
		DurationMinutes: req.DurationMinutes,
		Intensity:       req.Intensity,
		Location:        req.Location,
		People:          pq.StringArray(req.People),
		RecordedBy:      req.RecordedBy,
		Notes:           req.Notes,
	}
	if req.OccurredAt != nil {
		incident.OccurredAt = *req.OccurredAt
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create incident")
	}
	s.invalidateInsights(ctx, incident.ChildID)
	return incident, nil
}

// Update modifies an existing incident. The recording timestamp survives
// unchanged.
func (s *IncidentService) Update(ctx context.Context, id string, req UpdateIncidentRequest) (*models.BehaviorIncident, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	incident, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	incident.Antecedent = orNotSpecified(req.Antecedent)
	incident.Behavior = req.Behavior
	incident.BehaviorType = models.BehaviorType(req.BehaviorType)
	incident.Consequence = orNotSpecified(req.Consequence)
	if req.OccurredAt != nil {
		incident.OccurredAt = *req.OccurredAt
	}
	incident.DurationMinutes = req.DurationMinutes
	incident.Intensity = req.Intensity
	incident.Location = req.Location
	incident.People = pq.StringArray(req.People)
	incident.RecordedBy = req.RecordedBy
	incident.Notes = req.Notes

	if err := s.repo.Update(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update incident")
	}
	s.invalidateInsights(ctx, incident.ChildID)
	return incident, nil
}

// Delete removes an incident permanently. There is no soft delete for
// incident records.
func (s *IncidentService) Delete(ctx context.Context, id string) error {
	incident, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete incident")
	}
	s.invalidateInsights(ctx, incident.ChildID)
	return nil
}

func (s *IncidentService) invalidateInsights(ctx context.Context, childID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("insights:child:%s:*", childID)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("insight cache invalidation failed", zap.String("child_id", childID), zap.Error(err))
	}
}

func orNotSpecified(v string) string {
	if v == "" {
		return models.AntecedentNotSpecified
	}
	return v
}
