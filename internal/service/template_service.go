package service

import (
	"context"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ash-tracker/behavior-api/internal/models"
	appErrors "github.com/ash-tracker/behavior-api/pkg/errors"
)

type templateRepository interface {
	List(ctx context.Context) ([]models.BehaviorTemplate, error)
	Count(ctx context.Context) (int, error)
	Seed(ctx context.Context, templates []models.BehaviorTemplate) error
}

// TemplateService serves curated behavior templates used to pre-fill the ABC
// entry form.
type TemplateService struct {
	repo   templateRepository
	logger *zap.Logger
}

// NewTemplateService constructs the service.
func NewTemplateService(repo templateRepository, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{repo: repo, logger: logger}
}

// List returns every template.
func (s *TemplateService) List(ctx context.Context) ([]models.BehaviorTemplate, error) {
	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	return templates, nil
}

// EnsureSeeded inserts the default template set on first run. Existing rows
// short-circuit the seed so operator edits survive restarts.
func (s *TemplateService) EnsureSeeded(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count templates")
	}
	if count > 0 {
		return nil
	}
	if err := s.repo.Seed(ctx, DefaultTemplates()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed templates")
	}
	s.logger.Info("behavior templates seeded", zap.Int("count", len(DefaultTemplates())))
	return nil
}

// DefaultTemplates returns the built-in template set, one per clinical
// behavior type (the "other" type is free-form and has no template).
func DefaultTemplates() []models.BehaviorTemplate {
	return []models.BehaviorTemplate{
		{
			ID:           "aggression",
			BehaviorType: models.BehaviorAggression,
			BehaviorName: "Aggression",
			Icon:         "👊",
			CommonAntecedents: pq.StringArray{
				"Denied preferred item",
				"Transition between activities",
				"Difficult task presented",
				"Peer interaction",
				"Attention diverted",
			},
			CommonConsequences: pq.StringArray{
				"Redirected to calm space",
				"Provided sensory break",
				"Ignored behavior",
				"Removed from situation",
				"Provided alternative communication",
			},
		},
		{
			ID:           "self-injury",
			BehaviorType: models.BehaviorSelfInjury,
			BehaviorName: "Self-Injury",
			Icon:         "✋",
			CommonAntecedents: pq.StringArray{
				"Sensory overwhelm",
				"Communication frustration",
				"Denied request",
				"Change in routine",
				"Physical discomfort",
			},
			CommonConsequences: pq.StringArray{
				"Provided sensory input",
				"Offered communication device",
				"Redirected to safe behavior",
				"Assessed for pain/discomfort",
				"Provided reassurance",
			},
		},
		{
			ID:           "elopement",
			BehaviorType: models.BehaviorElopement,
			BehaviorName: "Elopement",
			Icon:         "🏃",
			CommonAntecedents: pq.StringArray{
				"Overwhelmed by environment",
				"Avoiding task",
				"Seeking preferred activity",
				"Following peer",
				"Sensory seeking",
			},
			CommonConsequences: pq.StringArray{
				"Returned to safe area",
				"Offered break",
				"Provided visual schedule",
				"Increased supervision",
				"Discussed safety",
			},
		},
		{
			ID:           "property-destruction",
			BehaviorType: models.BehaviorPropertyDestruction,
			BehaviorName: "Property Destruction",
			Icon:         "💥",
			CommonAntecedents: pq.StringArray{
				"Frustration with task",
				"Denied access",
				"Seeking attention",
				"Sensory exploration",
				"Imitating others",
			},
			CommonConsequences: pq.StringArray{
				"Required cleanup/repair",
				"Redirected to appropriate activity",
				"Provided alternative",
				"Loss of privilege",
				"Discussed consequences",
			},
		},
		{
			ID:           "tantrum-meltdown",
			BehaviorType: models.BehaviorTantrumMeltdown,
			BehaviorName: "Tantrum/Meltdown",
			Icon:         "😭",
			CommonAntecedents: pq.StringArray{
				"Told \"no\"",
				"Overstimulation",
				"Fatigue",
				"Hunger/thirst",
				"Change in routine",
			},
			CommonConsequences: pq.StringArray{
				"Allowed to calm down",
				"Removed sensory input",
				"Provided quiet space",
				"Offered comfort item",
				"Maintained safety",
			},
		},
	}
}
