package service

import (
	"strings"

	"github.com/pdpcds-server/internal/domain"
)

// normalizeList trims and lowercases every entry, drops empties, and
// removes duplicates while preserving first-seen order. Returns nil for
// a list with no usable entries so that empty and absent lists store
// identically.
func normalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	normalized := make([]string, 0, len(values))
	for _, value := range values {
		cleaned := strings.ToLower(strings.TrimSpace(value))
		if cleaned == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		normalized = append(normalized, cleaned)
	}

	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

// normalizeSnapshot canonicalizes the list fields of a snapshot in place
// and trims the free-text fields. Scoring and storage both operate on
// the normalized form, so repeated submissions of the same case produce
// identical snapshots.
func normalizeSnapshot(snapshot *domain.PatientSnapshot) {
	snapshot.SymptomList = normalizeList(snapshot.SymptomList)
	snapshot.PMHList = normalizeList(snapshot.PMHList)
	snapshot.CurrentMedications = normalizeList(snapshot.CurrentMedications)
	snapshot.Allergies = normalizeList(snapshot.Allergies)

	snapshot.ChiefComplaint = strings.TrimSpace(snapshot.ChiefComplaint)
	snapshot.FreeTextNotes = strings.TrimSpace(snapshot.FreeTextNotes)
}

// coalesceList replaces a nil list with an empty one so stored JSON
// arrays are never null.
func coalesceList(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
