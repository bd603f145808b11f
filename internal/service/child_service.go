package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ash-tracker/behavior-api/internal/models"
	"github.com/ash-tracker/behavior-api/internal/pseudonym"
	appErrors "github.com/ash-tracker/behavior-api/pkg/errors"
)

type childRepository interface {
	List(ctx context.Context, filter models.ChildFilter) ([]models.Child, int, error)
	FindByID(ctx context.Context, id string) (*models.Child, error)
	ExistsByAnimalName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, child *models.Child) error
	Update(ctx context.Context, child *models.Child) error
	Archive(ctx context.Context, id string, at time.Time) error
	Unarchive(ctx context.Context, id string) error
}

// ChildService manages pseudonymous child profiles. Real names are never
// accepted, stored, or returned anywhere in this service.
type ChildService struct {
	repo      childRepository
	names     *pseudonym.Generator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChildService constructs the service.
func NewChildService(repo childRepository, names *pseudonym.Generator, validate *validator.Validate, logger *zap.Logger) *ChildService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if names == nil {
		names = pseudonym.NewGenerator()
	}
	svc := &ChildService{repo: repo, names: names, validator: validate, logger: logger}
	svc.validator.RegisterValidation("age_range", func(fl validator.FieldLevel) bool {
		return models.ValidAgeRange(models.AgeRange(fl.Field().String()))
	})
	return svc
}

// CreateChildRequest describes the create payload. There is deliberately no
// name field; the server assigns the pseudonym.
type CreateChildRequest struct {
	DateOfBirth *time.Time `json:"date_of_birth"`
	AgeRange    string     `json:"age_range" validate:"omitempty,age_range"`
	Diagnosis   []string   `json:"diagnosis"`
	Notes       string     `json:"notes"`
}

// UpdateChildRequest describes the mutable profile fields. The pseudonym is
// immutable and absent here.
type UpdateChildRequest struct {
	DateOfBirth *time.Time `json:"date_of_birth"`
	AgeRange    string     `json:"age_range" validate:"omitempty,age_range"`
	Diagnosis   []string   `json:"diagnosis"`
	Notes       string     `json:"notes"`
}

// List returns child profiles with pagination.
func (s *ChildService) List(ctx context.Context, filter models.ChildFilter) ([]models.Child, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	children, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list children")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return children, pagination, nil
}

// Get loads one profile.
func (s *ChildService) Get(ctx context.Context, id string) (*models.Child, error) {
	child, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	return child, nil
}

// Create assigns a fresh pseudonym and inserts the profile.
func (s *ChildService) Create(ctx context.Context, req CreateChildRequest) (*models.Child, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	name, emoji, err := s.names.Generate(ctx, func(ctx context.Context, candidate string) (bool, error) {
		exists, err := s.repo.ExistsByAnimalName(ctx, candidate)
		return !exists, err
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign pseudonym")
	}

	child := &models.Child{
		AnimalName:  name,
		AnimalEmoji: emoji,
		DateOfBirth: req.DateOfBirth,
		Diagnosis:   pq.StringArray(req.Diagnosis),
		Notes:       req.Notes,
	}
	if req.AgeRange != "" {
		ar := models.AgeRange(req.AgeRange)
		child.AgeRange = &ar
	}
	if err := s.repo.Create(ctx, child); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create child")
	}
	s.logger.Info("child profile created", zap.String("child_id", child.ID), zap.String("animal_name", child.AnimalName))
	return child, nil
}

// Update modifies the mutable fields of an active profile. Archived profiles
// reject writes until unarchived.
func (s *ChildService) Update(ctx context.Context, id string, req UpdateChildRequest) (*models.Child, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	child, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if child.Archived() {
		return nil, appErrors.Clone(appErrors.ErrArchived, "child profile is archived")
	}

	child.DateOfBirth = req.DateOfBirth
	child.Diagnosis = pq.StringArray(req.Diagnosis)
	child.Notes = req.Notes
	child.AgeRange = nil
	if req.AgeRange != "" {
		ar := models.AgeRange(req.AgeRange)
		child.AgeRange = &ar
	}
	if err := s.repo.Update(ctx, child); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update child")
	}
	return child, nil
}

// Archive soft-deletes the profile. Incident history is retained and the
// operation is idempotent.
func (s *ChildService) Archive(ctx context.Context, id string) (*models.Child, error) {
	child, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if child.Archived() {
		return child, nil
	}
	now := time.Now().UTC()
	if err := s.repo.Archive(ctx, id, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive child")
	}
	child.ArchivedAt = &now
	s.logger.Info("child profile archived", zap.String("child_id", id))
	return child, nil
}

// Unarchive restores an archived profile. Idempotent.
func (s *ChildService) Unarchive(ctx context.Context, id string) (*models.Child, error) {
	child, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !child.Archived() {
		return child, nil
	}
	if err := s.repo.Unarchive(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unarchive child")
	}
	child.ArchivedAt = nil
	s.logger.Info("child profile unarchived", zap.String("child_id", id))
	return child, nil
}
