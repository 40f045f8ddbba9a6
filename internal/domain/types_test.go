package domain

import (
	"testing"
)

func TestSexConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    Sex
		expected string
	}{
		{"Male", SexMale, "male"},
		{"Female", SexFemale, "female"},
		{"Other", SexOther, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}
		})
	}
}

func TestSexIsValid(t *testing.T) {
	tests := []struct {
		name     string
		value    Sex
		expected bool
	}{
		{"Male", SexMale, true},
		{"Female", SexFemale, true},
		{"Other", SexOther, true},
		{"Empty", Sex(""), false},
		{"Uppercase", Sex("MALE"), false},
		{"Unknown", Sex("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.IsValid() != tt.expected {
				t.Errorf("Expected IsValid()=%v for %q", tt.expected, string(tt.value))
			}
		})
	}
}

func TestProvenanceConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    Provenance
		expected string
	}{
		{"Manual", ProvenanceManual, "manual"},
		{"Clinical Feedback", ProvenanceClinicalFeedback, "clinical_feedback"},
		{"Migrated", ProvenanceMigrated, "migrated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}
		})
	}
}

func TestProvenanceIsValid(t *testing.T) {
	tests := []struct {
		name     string
		value    Provenance
		expected bool
	}{
		{"Manual", ProvenanceManual, true},
		{"Clinical Feedback", ProvenanceClinicalFeedback, true},
		{"Migrated", ProvenanceMigrated, true},
		{"Empty", Provenance(""), false},
		{"Synthetic", Provenance("synthetic"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.IsValid() != tt.expected {
				t.Errorf("Expected IsValid()=%v for %q", tt.expected, string(tt.value))
			}
		})
	}
}

func TestOutcomeCategoryConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    OutcomeCategory
		expected string
	}{
		{"Recovered", OutcomeRecovered, "recovered"},
		{"Improved", OutcomeImproved, "improved"},
		{"Unchanged", OutcomeUnchanged, "unchanged"},
		{"Worsened", OutcomeWorsened, "worsened"},
		{"Deceased", OutcomeDeceased, "deceased"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}
		})
	}
}

func TestOutcomeCategoryIsValid(t *testing.T) {
	valid := []OutcomeCategory{OutcomeRecovered, OutcomeImproved, OutcomeUnchanged, OutcomeWorsened, OutcomeDeceased}
	for _, oc := range valid {
		if !oc.IsValid() {
			t.Errorf("Expected %q to be valid", string(oc))
		}
	}

	invalid := []OutcomeCategory{"", "stable", "RECOVERED", "cured"}
	for _, oc := range invalid {
		if oc.IsValid() {
			t.Errorf("Expected %q to be invalid", string(oc))
		}
	}
}

func TestOutcomeCategoryRequiresFollowUp(t *testing.T) {
	tests := []struct {
		name     string
		value    OutcomeCategory
		expected bool
	}{
		{"Recovered", OutcomeRecovered, false},
		{"Improved", OutcomeImproved, false},
		{"Unchanged", OutcomeUnchanged, false},
		{"Worsened", OutcomeWorsened, true},
		{"Deceased", OutcomeDeceased, true},
		{"Unknown defaults to follow-up", OutcomeCategory("unknown"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.RequiresFollowUp() != tt.expected {
				t.Errorf("Expected RequiresFollowUp()=%v for %q", tt.expected, string(tt.value))
			}
		})
	}
}

func TestOutcomeCategoryLogFields(t *testing.T) {
	fields := OutcomeWorsened.LogFields()

	if fields["patient_outcome"] != "worsened" {
		t.Errorf("Expected patient_outcome=worsened, got %v", fields["patient_outcome"])
	}
	if fields["is_valid"] != true {
		t.Errorf("Expected is_valid=true, got %v", fields["is_valid"])
	}
	if fields["requires_follow_up"] != true {
		t.Errorf("Expected requires_follow_up=true, got %v", fields["requires_follow_up"])
	}
}

func TestTestUrgencyIsValid(t *testing.T) {
	tests := []struct {
		name     string
		value    TestUrgency
		expected bool
	}{
		{"Routine", UrgencyRoutine, true},
		{"Urgent", UrgencyUrgent, true},
		{"Stat", UrgencyStat, true},
		{"Empty", TestUrgency(""), false},
		{"Asap", TestUrgency("asap"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.IsValid() != tt.expected {
				t.Errorf("Expected IsValid()=%v for %q", tt.expected, string(tt.value))
			}
		})
	}
}
