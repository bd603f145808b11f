package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ash-tracker/behavior-api/internal/models"
	"github.com/ash-tracker/behavior-api/internal/stats"
	appErrors "github.com/ash-tracker/behavior-api/pkg/errors"
)

type insightIncidentSource interface {
	ListForExport(ctx context.Context, childID string, from, to *time.Time) ([]models.BehaviorIncident, error)
}

type insightChildLookup interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
}

// DefaultInsightsWindow is used when no window is requested.
const DefaultInsightsWindow = 30

// insightsWindows are the only accepted window sizes.
var insightsWindows = map[int]bool{7: true, 30: true, 90: true}

// InsightsService derives behavior aggregates for one child over a rolling
// window. Results are cached per child and window; incident writes invalidate
// the child's entries.
type InsightsService struct {
	incidents insightIncidentSource
	children  insightChildLookup
	cache     *CacheService
	metrics   *MetricsService
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewInsightsService constructs the service.
func NewInsightsService(incidents insightIncidentSource, children insightChildLookup, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *InsightsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightsService{
		incidents: incidents,
		children:  children,
		cache:     cache,
		metrics:   metrics,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Get computes insights for the child over the requested window (7, 30 or 90
// days; zero selects the default).
func (s *InsightsService) Get(ctx context.Context, childID string, days int) (*models.Insights, error) {
	if days == 0 {
		days = DefaultInsightsWindow
	}
	if !insightsWindows[days] {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported window %d, expected 7, 30 or 90", days))
	}

	if _, err := s.children.FindByID(ctx, childID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}

	key := fmt.Sprintf("insights:child:%s:days:%d", childID, days)
	if s.cache != nil {
		var cached models.Insights
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	now := s.now()
	windowStart := startOfLocalDay(now).AddDate(0, 0, -(days - 1))
	queryStart := time.Now()
	incidents, err := s.incidents.ListForExport(ctx, childID, &windowStart, nil)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("insights_window", time.Since(queryStart))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incidents")
	}

	insights := &models.Insights{
		ChildID:        childID,
		WindowDays:     days,
		TotalIncidents: len(incidents),
		DailyFrequency: stats.DailyFrequency(incidents, days, now),
		Breakdown:      stats.Breakdown(incidents),
		TimeOfDay:      stats.TimeOfDay(incidents),
		Triggers:       stats.TopTriggers(incidents, 5),
		Trend:          stats.ComputeTrend(incidents, days, now),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, insights, s.ttl); err != nil {
			s.logger.Warn("insights cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return insights, nil
}

func startOfLocalDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
