package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ash-tracker/behavior-api/internal/models"
	appErrors "github.com/ash-tracker/behavior-api/pkg/errors"
)

type mockChildRepo struct {
	items       map[string]*models.Child
	nameIndex   map[string]bool
	nameChecks  int
	listResult  []models.Child
	listTotal   int
	listErr     error
	archived    []string
	unarchived  []string
	lastUpdated *models.Child
}

func (m *mockChildRepo) List(ctx context.Context, filter models.ChildFilter) ([]models.Child, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listResult, m.listTotal, nil
}

func (m *mockChildRepo) FindByID(ctx context.Context, id string) (*models.Child, error) {
	if child, ok := m.items[id]; ok {
		cp := *child
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockChildRepo) ExistsByAnimalName(ctx context.Context, name string) (bool, error) {
	m.nameChecks++
	return m.nameIndex[name], nil
}

func (m *mockChildRepo) Create(ctx context.Context, child *models.Child) error {
	if m.items == nil {
		m.items = make(map[string]*models.Child)
	}
	if child.ID == "" {
		child.ID = "generated"
	}
	now := time.Now()
	child.CreatedAt = now
	child.UpdatedAt = now
	cp := *child
	m.items[child.ID] = &cp
	return nil
}

func (m *mockChildRepo) Update(ctx context.Context, child *models.Child) error {
	cp := *child
	m.lastUpdated = &cp
	if m.items != nil {
		m.items[child.ID] = &cp
	}
	return nil
}

func (m *mockChildRepo) Archive(ctx context.Context, id string, at time.Time) error {
	m.archived = append(m.archived, id)
	if child, ok := m.items[id]; ok {
		child.ArchivedAt = &at
	}
	return nil
}

func (m *mockChildRepo) Unarchive(ctx context.Context, id string) error {
	m.unarchived = append(m.unarchived, id)
	if child, ok := m.items[id]; ok {
		child.ArchivedAt = nil
	}
	return nil
}

func TestChildServiceCreateAssignsPseudonym(t *testing.T) {
	repo := &mockChildRepo{}
	service := NewChildService(repo, nil, validator.New(), zap.NewNop())

	child, err := service.Create(context.Background(), CreateChildRequest{
		AgeRange:  "preschool",
		Diagnosis: []string{"autism"},
	})
	require.NoError(t, err)
	assert.Len(t, strings.Fields(child.AnimalName), 2)
	assert.NotEmpty(t, child.AnimalEmoji)
	assert.GreaterOrEqual(t, repo.nameChecks, 1)
	require.NotNil(t, child.AgeRange)
	assert.Equal(t, models.AgeRangePreschool, *child.AgeRange)
	assert.Len(t, repo.items, 1)
}

func TestChildServiceCreateRejectsUnknownAgeRange(t *testing.T) {
	service := NewChildService(&mockChildRepo{}, nil, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateChildRequest{AgeRange: "grown-up"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestChildServiceGetNotFound(t *testing.T) {
	service := NewChildService(&mockChildRepo{}, nil, validator.New(), zap.NewNop())

	_, err := service.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestChildServiceUpdateRejectsArchived(t *testing.T) {
	archivedAt := time.Now()
	repo := &mockChildRepo{
		items: map[string]*models.Child{
			"c1": {ID: "c1", AnimalName: "Brave Panda", ArchivedAt: &archivedAt},
		},
	}
	service := NewChildService(repo, nil, validator.New(), zap.NewNop())

	_, err := service.Update(context.Background(), "c1", UpdateChildRequest{Notes: "new notes"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrArchived.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.lastUpdated)
}

func TestChildServiceUpdateKeepsPseudonym(t *testing.T) {
	repo := &mockChildRepo{
		items: map[string]*models.Child{
			"c1": {ID: "c1", AnimalName: "Brave Panda", AnimalEmoji: "🐼"},
		},
	}
	service := NewChildService(repo, nil, validator.New(), zap.NewNop())

	updated, err := service.Update(context.Background(), "c1", UpdateChildRequest{
		AgeRange: "school-age",
		Notes:    "started new program",
	})
	require.NoError(t, err)
	assert.Equal(t, "Brave Panda", updated.AnimalName)
	assert.Equal(t, "started new program", updated.Notes)
	require.NotNil(t, repo.lastUpdated)
	assert.Equal(t, "Brave Panda", repo.lastUpdated.AnimalName)
}

func TestChildServiceArchiveIdempotent(t *testing.T) {
	repo := &mockChildRepo{
		items: map[string]*models.Child{
			"c1": {ID: "c1", AnimalName: "Brave Panda"},
		},
	}
	service := NewChildService(repo, nil, validator.New(), zap.NewNop())

	first, err := service.Archive(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, first.Archived())

	second, err := service.Archive(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, second.Archived())
	assert.Equal(t, []string{"c1"}, repo.archived)
}

func TestChildServiceUnarchiveRestores(t *testing.T) {
	archivedAt := time.Now()
	repo := &mockChildRepo{
		items: map[string]*models.Child{
			"c1": {ID: "c1", AnimalName: "Brave Panda", ArchivedAt: &archivedAt},
		},
	}
	service := NewChildService(repo, nil, validator.New(), zap.NewNop())

	child, err := service.Unarchive(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, child.Archived())

	_, err = service.Update(context.Background(), "c1", UpdateChildRequest{Notes: "back"})
	require.NoError(t, err)
}
