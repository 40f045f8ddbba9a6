// Package domain contains core business entities and types for the
// preliminary disease prediction and clinical decision support service:
// prediction records, doctor feedback, clinical outcomes, and the
// training samples derived from validated feedback.
package domain

import (
	"errors"
)

// Sex represents the patient sex recorded on a prediction request.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

// Provenance tags how a training sample entered the dataset.
type Provenance string

const (
	ProvenanceManual           Provenance = "manual"
	ProvenanceClinicalFeedback Provenance = "clinical_feedback"
	ProvenanceMigrated         Provenance = "migrated"
)

// OutcomeCategory represents the final patient outcome reported for a case.
type OutcomeCategory string

const (
	OutcomeRecovered OutcomeCategory = "recovered"
	OutcomeImproved  OutcomeCategory = "improved"
	OutcomeUnchanged OutcomeCategory = "unchanged"
	OutcomeWorsened  OutcomeCategory = "worsened"
	OutcomeDeceased  OutcomeCategory = "deceased"
)

// TestUrgency represents how urgently a recommended test should be performed.
type TestUrgency string

const (
	UrgencyRoutine TestUrgency = "routine"
	UrgencyUrgent  TestUrgency = "urgent"
	UrgencyStat    TestUrgency = "stat"
)

// Validation errors for clinical data integrity
var (
	ErrInvalidSex        = errors.New("invalid sex")
	ErrInvalidProvenance = errors.New("invalid provenance")
	ErrInvalidOutcome    = errors.New("invalid outcome category")
	ErrInvalidUrgency    = errors.New("invalid test urgency")
)

// IsValid reports whether the sex value is one of the accepted enum members.
func (s Sex) IsValid() bool {
	switch s {
	case SexMale, SexFemale, SexOther:
		return true
	default:
		return false
	}
}

// String returns the string representation of the sex value.
func (s Sex) String() string {
	return string(s)
}

// IsValid reports whether the provenance tag is a known member.
func (p Provenance) IsValid() bool {
	switch p {
	case ProvenanceManual, ProvenanceClinicalFeedback, ProvenanceMigrated:
		return true
	default:
		return false
	}
}

// String returns the string representation of the provenance tag.
func (p Provenance) String() string {
	return string(p)
}

// IsValid validates the outcome category reported on a clinical outcome.
// Only valid categories may enter the outcome log used for quality review.
func (o OutcomeCategory) IsValid() bool {
	switch o {
	case OutcomeRecovered, OutcomeImproved, OutcomeUnchanged, OutcomeWorsened, OutcomeDeceased:
		return true
	default:
		return false
	}
}

// String returns the string representation of the outcome category.
func (o OutcomeCategory) String() string {
	return string(o)
}

// LogFields returns structured logging fields for outcome audit trails.
func (o OutcomeCategory) LogFields() map[string]any {
	return map[string]any{
		"patient_outcome":    string(o),
		"is_valid":           o.IsValid(),
		"requires_follow_up": o.RequiresFollowUp(),
	}
}

// RequiresFollowUp determines if the outcome warrants clinical review.
// Worsened and deceased outcomes feed the case-review queue.
func (o OutcomeCategory) RequiresFollowUp() bool {
	switch o {
	case OutcomeWorsened, OutcomeDeceased:
		return true
	case OutcomeRecovered, OutcomeImproved, OutcomeUnchanged:
		return false
	default:
		return true
	}
}

// IsValid validates the urgency level of a test recommendation.
func (u TestUrgency) IsValid() bool {
	switch u {
	case UrgencyRoutine, UrgencyUrgent, UrgencyStat:
		return true
	default:
		return false
	}
}

// String returns the string representation of the urgency level.
func (u TestUrgency) String() string {
	return string(u)
}
