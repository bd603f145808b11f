package models

import "time"

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportOptions shape one export request.
type ExportOptions struct {
	StartDate *time.Time
	EndDate   *time.Time
	// UseAnimalName substitutes the child's pseudonym; when false every name
	// cell holds the fixed redaction placeholder instead.
	UseAnimalName bool
	// IncludeFullDetails adds the full ABC columns beyond the basic five.
	IncludeFullDetails bool
	Format             ExportFormat
}

// ExportDateRange is the human-readable event-date span of an export.
type ExportDateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ExportSummary previews what an export will contain. It is computed from the
// same filtered incident list that feeds the CSV body.
type ExportSummary struct {
	TotalIncidents int                  `json:"total_incidents"`
	DateRange      *ExportDateRange     `json:"date_range"` // nil when no incidents
	BehaviorTypes  map[BehaviorType]int `json:"behavior_types"`
}

// ExportResult captures a stored export and its signed download link.
type ExportResult struct {
	ID        string        `json:"id"`
	Filename  string        `json:"filename"`
	Format    ExportFormat  `json:"format"`
	URL       string        `json:"url"`
	ExpiresAt time.Time     `json:"expires_at"`
	Summary   ExportSummary `json:"summary"`
}
