package models

import (
	"time"

	"github.com/lib/pq"
)

// AgeRange is a coarse age band attached to a child profile.
type AgeRange string

const (
	AgeRangeToddler   AgeRange = "toddler"
	AgeRangePreschool AgeRange = "preschool"
	AgeRangeSchoolAge AgeRange = "school-age"
	AgeRangeTeen      AgeRange = "teen"
	AgeRangeAdult     AgeRange = "adult"
)

// ValidAgeRange reports whether the value is one of the five known bands.
func ValidAgeRange(v AgeRange) bool {
	switch v {
	case AgeRangeToddler, AgeRangePreschool, AgeRangeSchoolAge, AgeRangeTeen, AgeRangeAdult:
		return true
	}
	return false
}

// Child is a pseudonymous profile. The animal name stands in for the child's
// real name everywhere, including exports; no directly identifying data is
// stored. Profiles are archived, never hard-deleted.
type Child struct {
	ID          string         `db:"id" json:"id"`
	AnimalName  string         `db:"animal_name" json:"animal_name"`
	AnimalEmoji string         `db:"animal_emoji" json:"animal_emoji,omitempty"`
	DateOfBirth *time.Time     `db:"date_of_birth" json:"date_of_birth,omitempty"`
	AgeRange    *AgeRange      `db:"age_range" json:"age_range,omitempty"`
	Diagnosis   pq.StringArray `db:"diagnosis" json:"diagnosis,omitempty"`
	Notes       string         `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
	ArchivedAt  *time.Time     `db:"archived_at" json:"archived_at,omitempty"`
}

// Archived reports whether the profile is hidden from the active roster.
func (c *Child) Archived() bool {
	return c.ArchivedAt != nil
}

// ChildFilter encapsulates list parameters for child profiles.
type ChildFilter struct {
	IncludeArchived bool
	Page            int
	PageSize        int
}
