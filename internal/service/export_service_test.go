package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ash-tracker/behavior-api/internal/models"
	appErrors "github.com/ash-tracker/behavior-api/pkg/errors"
	"github.com/ash-tracker/behavior-api/pkg/storage"
)

func newExportService(t *testing.T, incidents []models.BehaviorIncident) (*ExportService, *mockIncidentWindow) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	source := &mockIncidentWindow{incidents: incidents}
	service := NewExportService(activeChildLookup(), source, store, signer, nil, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop())
	service.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local) }
	return service, source
}

func exportTestIncidents() []models.BehaviorIncident {
	five := 5
	three := 3
	return []models.BehaviorIncident{
		{
			ChildID:      "c1",
			Antecedent:   "Transition between activities",
			Behavior:     "Hitting",
			BehaviorType: models.BehaviorAggression,
			Consequence:  "Redirected to calm space",
			OccurredAt:   time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local),
			RecordedAt:   time.Date(2024, 3, 1, 9, 45, 0, 0, time.Local),
			Intensity:    &three,
			People:       []string{"Mom", "Therapist"},
			RecordedBy:   "Mom",
		},
		{
			ChildID:         "c1",
			Antecedent:      models.AntecedentNotSpecified,
			Behavior:        "Screaming",
			BehaviorType:    models.BehaviorTantrumMeltdown,
			Consequence:     "Provided quiet space",
			OccurredAt:      time.Date(2024, 3, 10, 17, 0, 0, 0, time.Local),
			RecordedAt:      time.Date(2024, 3, 10, 17, 20, 0, 0, time.Local),
			DurationMinutes: &five,
		},
	}
}

func TestExportServiceGenerateCSV(t *testing.T) {
	service, _ := newExportService(t, exportTestIncidents())

	result, err := service.Generate(context.Background(), "c1", models.ExportOptions{
		UseAnimalName:      true,
		IncludeFullDetails: true,
		Format:             models.ExportFormatCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, "ash-behavior-data_Brave-Panda_2024-03-15.csv", result.Filename)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))
	assert.Equal(t, 2, result.Summary.TotalIncidents)
	assert.Equal(t, 1, result.Summary.BehaviorTypes[models.BehaviorAggression])
	require.NotNil(t, result.Summary.DateRange)
	assert.Equal(t, "Mar 1, 2024", result.Summary.DateRange.Start)
	assert.Equal(t, "Mar 10, 2024", result.Summary.DateRange.End)

	token := strings.TrimPrefix(result.URL, "/api/v1/exports/")
	_, relPath, _, err := service.ParseToken(token, false)
	require.NoError(t, err)
	file, err := service.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	payload, err := os.ReadFile(file.Name())
	require.NoError(t, err)

	body := string(payload)
	lines := strings.Split(strings.TrimSuffix(body, "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"Date","Time","Child Name","Behavior Type","Behavior","Antecedent","Consequence","Duration (min)","Intensity","Location","People Present","Notes","Recorded By","Recorded At"`, lines[0])
	assert.Contains(t, lines[1], `"Brave Panda"`)
	assert.Contains(t, lines[1], `"3/5"`)
	assert.Contains(t, lines[1], `"Mom, Therapist"`)
	assert.Contains(t, lines[2], `"tantrum meltdown"`)
	assert.Contains(t, lines[2], `"5"`)
	// Chronological order, oldest row first.
	assert.Contains(t, lines[1], `"2024-03-01"`)
	assert.Contains(t, lines[2], `"2024-03-10"`)
}

func TestExportServiceRedactsName(t *testing.T) {
	service, _ := newExportService(t, exportTestIncidents())

	result, err := service.Generate(context.Background(), "c1", models.ExportOptions{
		UseAnimalName: false,
		Format:        models.ExportFormatCSV,
	})
	require.NoError(t, err)

	token := strings.TrimPrefix(result.URL, "/api/v1/exports/")
	_, relPath, _, err := service.ParseToken(token, false)
	require.NoError(t, err)
	file, err := service.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	payload, err := os.ReadFile(file.Name())
	require.NoError(t, err)

	body := string(payload)
	assert.Contains(t, body, NameProtected)
	assert.NotContains(t, body, "Brave Panda")
	// The filename still carries the pseudonym; it never holds a real name.
	assert.Contains(t, result.Filename, "Brave-Panda")
}

func TestExportServiceFilenameRangeVariants(t *testing.T) {
	service, _ := newExportService(t, nil)
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2024, 2, 29, 23, 59, 59, 0, time.Local)

	both, err := service.Generate(context.Background(), "c1", models.ExportOptions{StartDate: &start, EndDate: &end, UseAnimalName: true})
	require.NoError(t, err)
	assert.Equal(t, "ash-behavior-data_Brave-Panda_2024-02-01_to_2024-02-29_2024-03-15.csv", both.Filename)

	onlyStart, err := service.Generate(context.Background(), "c1", models.ExportOptions{StartDate: &start, UseAnimalName: true})
	require.NoError(t, err)
	assert.Equal(t, "ash-behavior-data_Brave-Panda_from_2024-02-01_2024-03-15.csv", onlyStart.Filename)

	onlyEnd, err := service.Generate(context.Background(), "c1", models.ExportOptions{EndDate: &end, UseAnimalName: true})
	require.NoError(t, err)
	assert.Equal(t, "ash-behavior-data_Brave-Panda_until_2024-02-29_2024-03-15.csv", onlyEnd.Filename)
}

func TestExportServiceEmptySummary(t *testing.T) {
	service, _ := newExportService(t, nil)

	summary, err := service.Summary(context.Background(), "c1", models.ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalIncidents)
	assert.Nil(t, summary.DateRange)
	assert.Empty(t, summary.BehaviorTypes)
}

func TestExportServiceEmptyGeneratesHeaderOnlyCSV(t *testing.T) {
	service, _ := newExportService(t, nil)

	result, err := service.Generate(context.Background(), "c1", models.ExportOptions{UseAnimalName: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Summary.TotalIncidents)

	token := strings.TrimPrefix(result.URL, "/api/v1/exports/")
	_, relPath, _, err := service.ParseToken(token, false)
	require.NoError(t, err)
	file, err := service.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	payload, err := os.ReadFile(file.Name())
	require.NoError(t, err)
	assert.Equal(t, `"Date","Time","Child Name","Behavior Type","Behavior"`+"\r\n", string(payload))
}

func TestExportServiceChildNotFound(t *testing.T) {
	service, _ := newExportService(t, nil)

	_, err := service.Summary(context.Background(), "missing", models.ExportOptions{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	service, _ := newExportService(t, nil)

	_, err := service.Generate(context.Background(), "c1", models.ExportOptions{Format: "xlsx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServicePassesRangeToStore(t *testing.T) {
	service, source := newExportService(t, nil)
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local)

	_, err := service.Summary(context.Background(), "c1", models.ExportOptions{StartDate: &start})
	require.NoError(t, err)
	require.NotNil(t, source.lastFrom)
	assert.Equal(t, start, *source.lastFrom)
}
