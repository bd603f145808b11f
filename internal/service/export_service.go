package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ash-tracker/behavior-api/internal/models"
	appErrors "github.com/ash-tracker/behavior-api/pkg/errors"
	"github.com/ash-tracker/behavior-api/pkg/export"
	"github.com/ash-tracker/behavior-api/pkg/storage"
)

// NameProtected replaces the pseudonym in exports when the caregiver opts out
// of including it.
const NameProtected = "[Name Protected]"

const exportFilenamePrefix = "ash-behavior-data"

type exportIncidentSource interface {
	ListForExport(ctx context.Context, childID string, from, to *time.Time) ([]models.BehaviorIncident, error)
}

type exportChildLookup interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService turns a child's incident history into a downloadable file.
// Generation is synchronous; the rendered file is stored locally and handed
// out through an expiring signed token.
type ExportService struct {
	children  exportChildLookup
	incidents exportIncidentSource
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(children exportChildLookup, incidents exportIncidentSource, store fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		children:  children,
		incidents: incidents,
		storage:   store,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		signer:    signer,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Summary previews what an export would contain without rendering a file. It
// reads the same filtered incident list the file generation reads, so the two
// always agree.
func (s *ExportService) Summary(ctx context.Context, childID string, opts models.ExportOptions) (*models.ExportSummary, error) {
	_, incidents, err := s.load(ctx, childID, opts)
	if err != nil {
		return nil, err
	}
	summary := buildExportSummary(incidents)
	return &summary, nil
}

// Generate renders, stores and signs an export file for the child.
func (s *ExportService) Generate(ctx context.Context, childID string, opts models.ExportOptions) (*models.ExportResult, error) {
	child, incidents, err := s.load(ctx, childID, opts)
	if err != nil {
		return nil, err
	}

	if opts.Format == "" {
		opts.Format = models.ExportFormatCSV
	}
	dataset := buildExportDataset(child, incidents, opts)

	var payload []byte
	switch opts.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Behavior Data for %s", displayName(child, opts)))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", opts.Format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := s.buildFilename(child, opts)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	exportID := uuid.NewString()
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	if s.metrics != nil {
		s.metrics.RecordExport(string(opts.Format))
	}
	s.logger.Info("export generated",
		zap.String("child_id", child.ID),
		zap.String("filename", filename),
		zap.String("format", string(opts.Format)),
		zap.Int("incidents", len(incidents)))

	return &models.ExportResult{
		ID:        exportID,
		Filename:  filename,
		Format:    opts.Format,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		ExpiresAt: expiresAt,
		Summary:   buildExportSummary(incidents),
	}, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes stored exports older than ttl (configured ResultTTL when
// ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) load(ctx context.Context, childID string, opts models.ExportOptions) (*models.Child, []models.BehaviorIncident, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	incidents, err := s.incidents.ListForExport(ctx, childID, opts.StartDate, opts.EndDate)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incidents")
	}
	return child, incidents, nil
}

func (s *ExportService) buildFilename(child *models.Child, opts models.ExportOptions) string {
	parts := []string{exportFilenamePrefix, strings.ReplaceAll(child.AnimalName, " ", "-")}
	switch {
	case opts.StartDate != nil && opts.EndDate != nil:
		parts = append(parts, fmt.Sprintf("%s_to_%s", opts.StartDate.Format("2006-01-02"), opts.EndDate.Format("2006-01-02")))
	case opts.StartDate != nil:
		parts = append(parts, fmt.Sprintf("from_%s", opts.StartDate.Format("2006-01-02")))
	case opts.EndDate != nil:
		parts = append(parts, fmt.Sprintf("until_%s", opts.EndDate.Format("2006-01-02")))
	}
	parts = append(parts, s.now().Format("2006-01-02"))
	ext := string(opts.Format)
	if ext == "" {
		ext = string(models.ExportFormatCSV)
	}
	return fmt.Sprintf("%s.%s", strings.Join(parts, "_"), ext)
}

func displayName(child *models.Child, opts models.ExportOptions) string {
	if opts.UseAnimalName {
		return child.AnimalName
	}
	return NameProtected
}

// exportBasicHeaders are always present; exportDetailHeaders follow when full
// details are requested. Column order is part of the file contract.
var exportBasicHeaders = []string{"Date", "Time", "Child Name", "Behavior Type", "Behavior"}

var exportDetailHeaders = []string{"Antecedent", "Consequence", "Duration (min)", "Intensity", "Location", "People Present", "Notes", "Recorded By", "Recorded At"}

func buildExportDataset(child *models.Child, incidents []models.BehaviorIncident, opts models.ExportOptions) export.Dataset {
	headers := append([]string{}, exportBasicHeaders...)
	if opts.IncludeFullDetails {
		headers = append(headers, exportDetailHeaders...)
	}

	name := displayName(child, opts)
	rows := make([]map[string]string, 0, len(incidents))
	for _, incident := range incidents {
		occurred := incident.OccurredAt.Local()
		row := map[string]string{
			"Date":          occurred.Format("2006-01-02"),
			"Time":          occurred.Format("15:04:05"),
			"Child Name":    name,
			"Behavior Type": incident.BehaviorType.Label(),
			"Behavior":      incident.Behavior,
		}
		if opts.IncludeFullDetails {
			row["Antecedent"] = incident.Antecedent
			row["Consequence"] = incident.Consequence
			row["Duration (min)"] = formatOptionalInt(incident.DurationMinutes)
			row["Intensity"] = formatIntensity(incident.Intensity)
			row["Location"] = incident.Location
			row["People Present"] = strings.Join(incident.People, ", ")
			row["Notes"] = incident.Notes
			row["Recorded By"] = incident.RecordedBy
			row["Recorded At"] = incident.RecordedAt.Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func buildExportSummary(incidents []models.BehaviorIncident) models.ExportSummary {
	summary := models.ExportSummary{
		TotalIncidents: len(incidents),
		BehaviorTypes:  map[models.BehaviorType]int{},
	}
	for _, incident := range incidents {
		summary.BehaviorTypes[incident.BehaviorType]++
	}
	if len(incidents) > 0 {
		// Incidents arrive in chronological order from the store.
		summary.DateRange = &models.ExportDateRange{
			Start: incidents[0].OccurredAt.Local().Format("Jan 2, 2006"),
			End:   incidents[len(incidents)-1].OccurredAt.Local().Format("Jan 2, 2006"),
		}
	}
	return summary
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatIntensity(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d/5", *v)
}
