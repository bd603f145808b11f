package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// BehaviorType classifies an incident.
type BehaviorType string

const (
	BehaviorAggression          BehaviorType = "aggression"
	BehaviorSelfInjury          BehaviorType = "self-injury"
	BehaviorElopement           BehaviorType = "elopement"
	BehaviorPropertyDestruction BehaviorType = "property-destruction"
	BehaviorTantrumMeltdown     BehaviorType = "tantrum-meltdown"
	BehaviorOther               BehaviorType = "other"
)

// BehaviorTypes lists every known type in display order.
var BehaviorTypes = []BehaviorType{
	BehaviorAggression,
	BehaviorSelfInjury,
	BehaviorElopement,
	BehaviorPropertyDestruction,
	BehaviorTantrumMeltdown,
	BehaviorOther,
}

// ValidBehaviorType reports whether the value is a known type.
func ValidBehaviorType(v BehaviorType) bool {
	for _, t := range BehaviorTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Label returns the human-readable form, hyphens replaced with spaces.
func (t BehaviorType) Label() string {
	return strings.ReplaceAll(string(t), "-", " ")
}

// AntecedentNotSpecified is the sentinel stored when a caregiver skips the
// antecedent or consequence field. Insight aggregation ignores it.
const AntecedentNotSpecified = "Not specified"

// BehaviorIncident is one logged ABC (Antecedent-Behavior-Consequence)
// observation. OccurredAt is caregiver-editable and may precede RecordedAt;
// backdating is allowed. Incidents are hard-deleted, there is no archive.
type BehaviorIncident struct {
	ID              string         `db:"id" json:"id"`
	ChildID         string         `db:"child_id" json:"child_id"`
	Antecedent      string         `db:"antecedent" json:"antecedent"`
	Behavior        string         `db:"behavior" json:"behavior"`
	BehaviorType    BehaviorType   `db:"behavior_type" json:"behavior_type"`
	Consequence     string         `db:"consequence" json:"consequence"`
	OccurredAt      time.Time      `db:"occurred_at" json:"occurred_at"`
	DurationMinutes *int           `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Intensity       *int           `db:"intensity" json:"intensity,omitempty"`
	Location        string         `db:"location" json:"location,omitempty"`
	People          pq.StringArray `db:"people" json:"people,omitempty"`
	RecordedBy      string         `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt      time.Time      `db:"recorded_at" json:"recorded_at"`
	Notes           string         `db:"notes" json:"notes,omitempty"`
}

// IncidentFilter encapsulates list parameters for incidents.
type IncidentFilter struct {
	ChildID       string
	From          *time.Time
	To            *time.Time
	BehaviorTypes []BehaviorType
	Page          int
	PageSize      int
}

// BehaviorTemplate is curated reference data used to pre-populate the ABC
// entry form for a behavior type. Read-only from the API's perspective.
type BehaviorTemplate struct {
	ID                 string         `db:"id" json:"id"`
	BehaviorType       BehaviorType   `db:"behavior_type" json:"behavior_type"`
	BehaviorName       string         `db:"behavior_name" json:"behavior_name"`
	Icon               string         `db:"icon" json:"icon"`
	CommonAntecedents  pq.StringArray `db:"common_antecedents" json:"common_antecedents"`
	CommonConsequences pq.StringArray `db:"common_consequences" json:"common_consequences"`
}
