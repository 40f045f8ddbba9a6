// Package icd10 validates and decomposes ICD-10-CM diagnosis codes.
package icd10

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdpcds-server/internal/domain"
)

// ICD-10-CM code patterns
var (
	// Full code pattern: J18.9, R51, Z00.00, S72.001A
	codePattern = regexp.MustCompile(`^[A-Z]\d{2}(\.[A-Z0-9]{1,4})?$`)

	// Category pattern: the three-character rubric (J18, R51)
	categoryPattern = regexp.MustCompile(`^[A-Z]\d{2}$`)
)

// chapterRange maps a category range to its ICD-10-CM chapter title.
type chapterRange struct {
	from, to string
	name     string
}

// Chapter boundaries follow the ICD-10-CM tabular list. Categories are
// fixed-width, so lexicographic comparison matches chapter order.
var chapters = []chapterRange{
	{"A00", "B99", "Certain infectious and parasitic diseases"},
	{"C00", "D49", "Neoplasms"},
	{"D50", "D89", "Diseases of the blood and blood-forming organs"},
	{"E00", "E89", "Endocrine, nutritional and metabolic diseases"},
	{"F01", "F99", "Mental, behavioral and neurodevelopmental disorders"},
	{"G00", "G99", "Diseases of the nervous system"},
	{"H00", "H59", "Diseases of the eye and adnexa"},
	{"H60", "H95", "Diseases of the ear and mastoid process"},
	{"I00", "I99", "Diseases of the circulatory system"},
	{"J00", "J99", "Diseases of the respiratory system"},
	{"K00", "K95", "Diseases of the digestive system"},
	{"L00", "L99", "Diseases of the skin and subcutaneous tissue"},
	{"M00", "M99", "Diseases of the musculoskeletal system and connective tissue"},
	{"N00", "N99", "Diseases of the genitourinary system"},
	{"O00", "O9A", "Pregnancy, childbirth and the puerperium"},
	{"P00", "P96", "Certain conditions originating in the perinatal period"},
	{"Q00", "Q99", "Congenital malformations, deformations and chromosomal abnormalities"},
	{"R00", "R99", "Symptoms, signs and abnormal clinical and laboratory findings"},
	{"S00", "T88", "Injury, poisoning and certain other consequences of external causes"},
	{"U00", "U85", "Codes for special purposes"},
	{"V00", "Y99", "External causes of morbidity"},
	{"Z00", "Z99", "Factors influencing health status and contact with health services"},
}

// Validator provides ICD-10 code validation functionality
type Validator struct{}

// NewValidator creates a new ICD-10 validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCode validates ICD-10-CM code format. Codes are case
// sensitive; lowercase input is rejected, not corrected.
func (v *Validator) ValidateCode(code string) error {
	if code == "" {
		return domain.NewValidationError("icd10_code", "ICD-10 code cannot be empty", code)
	}

	if !codePattern.MatchString(code) {
		return domain.NewValidationError("icd10_code", "Invalid ICD-10 code format", code)
	}

	return nil
}

// ValidateCategory validates a three-character category rubric.
func (v *Validator) ValidateCategory(category string) error {
	if category == "" {
		return nil // Category is optional
	}

	if !categoryPattern.MatchString(category) {
		return domain.NewValidationError("icd10_category", "Invalid ICD-10 category format", category)
	}

	return nil
}

// NormalizeCode trims and uppercases a code, then validates it.
func (v *Validator) NormalizeCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if err := v.ValidateCode(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ParseComponents extracts components from an ICD-10-CM code
func (v *Validator) ParseComponents(code string) (*Components, error) {
	if err := v.ValidateCode(code); err != nil {
		return nil, err
	}

	components := &Components{
		Original: code,
		Category: code[:3],
	}

	if len(code) > 3 {
		components.Subcategory = code[4:]
	}

	components.Chapter = chapterFor(components.Category)
	if components.Chapter == "" {
		return nil, fmt.Errorf("unable to classify ICD-10 category: %s", components.Category)
	}

	return components, nil
}

// chapterFor returns the chapter title for a category, or "" when the
// category falls outside every assigned range.
func chapterFor(category string) string {
	for _, chapter := range chapters {
		if category >= chapter.from && category <= chapter.to {
			return chapter.name
		}
	}
	return ""
}

// Components represents parsed ICD-10-CM code components
type Components struct {
	Original    string `json:"original"`
	Category    string `json:"category"`              // three-character rubric, J18
	Subcategory string `json:"subcategory,omitempty"` // digits after the dot, 9
	Chapter     string `json:"chapter"`               // tabular-list chapter title
}
