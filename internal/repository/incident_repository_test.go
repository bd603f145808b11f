package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-tracker/behavior-api/internal/models"
)

func incidentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "child_id", "antecedent", "behavior", "behavior_type", "consequence", "occurred_at", "duration_minutes", "intensity", "location", "people", "recorded_by", "recorded_at", "notes"})
}

func TestIncidentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	rows := incidentRows().AddRow("i1", "c1", "Transition", "Hitting", "aggression", "Redirected", time.Now(), nil, nil, "", "{}", "", time.Now(), "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+incidentColumns+" FROM behavior_incidents WHERE 1=1 AND child_id = $1 AND occurred_at >= $2 AND occurred_at <= $3 AND behavior_type = ANY($4) ORDER BY occurred_at DESC, recorded_at DESC LIMIT 50 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM behavior_incidents WHERE 1=1 AND child_id = $1 AND occurred_at >= $2 AND occurred_at <= $3 AND behavior_type = ANY($4)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	incidents, total, err := repo.List(context.Background(), models.IncidentFilter{
		ChildID:       "c1",
		From:          &from,
		To:            &to,
		BehaviorTypes: []models.BehaviorType{models.BehaviorAggression},
	})
	require.NoError(t, err)
	assert.Len(t, incidents, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.BehaviorAggression, incidents[0].BehaviorType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepositoryListForExportAscending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	older := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 1, 10, 16, 0, 0, 0, time.UTC)
	rows := incidentRows().
		AddRow("i1", "c1", "Transition", "Hitting", "aggression", "Redirected", older, nil, nil, "", "{}", "", older, "").
		AddRow("i2", "c1", "Loud noise", "Screaming", "tantrum-meltdown", "Quiet space", newer, nil, nil, "", "{}", "", newer, "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+incidentColumns+" FROM behavior_incidents WHERE child_id = $1 ORDER BY occurred_at ASC")).
		WithArgs("c1").
		WillReturnRows(rows)

	incidents, err := repo.ListForExport(context.Background(), "c1", nil, nil)
	require.NoError(t, err)
	require.Len(t, incidents, 2)
	assert.True(t, incidents[0].OccurredAt.Before(incidents[1].OccurredAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepositoryCreateStampsRecordedAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectExec("INSERT INTO behavior_incidents").
		WillReturnResult(sqlmock.NewResult(1, 1))

	incident := &models.BehaviorIncident{
		ChildID:      "c1",
		Behavior:     "Hitting",
		BehaviorType: models.BehaviorAggression,
		OccurredAt:   time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	}
	err := repo.Create(context.Background(), incident)
	require.NoError(t, err)
	assert.NotEmpty(t, incident.ID)
	assert.False(t, incident.RecordedAt.IsZero())
	assert.Equal(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), incident.OccurredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepositoryCreateDefaultsOccurredAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectExec("INSERT INTO behavior_incidents").
		WillReturnResult(sqlmock.NewResult(1, 1))

	incident := &models.BehaviorIncident{ChildID: "c1", Behavior: "Hitting", BehaviorType: models.BehaviorAggression}
	err := repo.Create(context.Background(), incident)
	require.NoError(t, err)
	assert.Equal(t, incident.RecordedAt, incident.OccurredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIncidentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM behavior_incidents WHERE id = $1")).
		WithArgs("i1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "i1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
