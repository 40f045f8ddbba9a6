package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
)

const (
	// maxRuleResults caps the ranked list the engine returns.
	maxRuleResults = 3

	// defaultRuleVersion is reported when no model version is configured.
	defaultRuleVersion = "v1.0"
)

// RuleEngine scores patient snapshots against a fixed clinical rule
// table. It implements the same predictor contract as the remote model
// service and serves two roles: the only scoring source when the model
// service is disabled, and the degradation target when the service is
// unreachable. Output is fully deterministic for a given snapshot.
type RuleEngine struct {
	logger  *logrus.Logger
	version string
	chains  [][]*clinicalRule

	mu            sync.RWMutex
	differentials []differentialEntry
}

// clinicalRule maps one symptom presentation to a ranked diagnosis.
// Rules are grouped into chains; within a chain only the first matching
// rule fires, so fever with cough shadows fever alone.
type clinicalRule struct {
	Name    string
	Matches func(f *caseFeatures) bool
	Build   func(f *caseFeatures) domain.DiseasePrediction
}

// caseFeatures is the normalized view of a snapshot the rule table
// matches on.
type caseFeatures struct {
	temperature    float64
	hasTemperature bool
	symptoms       []string
}

func newCaseFeatures(snapshot *domain.PatientSnapshot) *caseFeatures {
	features := &caseFeatures{
		symptoms: make([]string, 0, len(snapshot.SymptomList)),
	}
	if snapshot.VitalTemperatureC != nil {
		features.temperature = *snapshot.VitalTemperatureC
		features.hasTemperature = true
	}
	for _, symptom := range snapshot.SymptomList {
		features.symptoms = append(features.symptoms, strings.ToLower(strings.TrimSpace(symptom)))
	}
	return features
}

// hasSymptom reports whether any reported symptom contains the term,
// so "productive cough" satisfies "cough".
func (f *caseFeatures) hasSymptom(term string) bool {
	for _, symptom := range f.symptoms {
		if strings.Contains(symptom, term) {
			return true
		}
	}
	return false
}

// differentialEntry is one catalog row available for padding the ranked
// list up to maxRuleResults.
type differentialEntry struct {
	DiseaseID int64
	Code      string
	Diagnosis string
}

// NewRuleEngine creates a rule engine reporting the given model version.
// The engine starts with a built-in differential list; call
// LoadDifferentials to replace it with the active ICD-10 catalog.
func NewRuleEngine(version string, logger *logrus.Logger) *RuleEngine {
	if version == "" {
		version = defaultRuleVersion
	}

	engine := &RuleEngine{
		logger:        logger,
		version:       version,
		differentials: builtinDifferentials(),
	}
	engine.initializeChains()

	return engine
}

// ModelVersion reports the configured local model version.
func (e *RuleEngine) ModelVersion() string {
	return e.version
}

// Predict evaluates the rule chains against the snapshot and returns up
// to three diagnoses ordered by descending confidence. A snapshot that
// matches no rule still yields a general-examination result, so the
// ranked list is never empty.
func (e *RuleEngine) Predict(ctx context.Context, snapshot *domain.PatientSnapshot) (domain.RankedPredictions, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("%w: snapshot is required", domain.ErrInvalidInput)
	}

	features := newCaseFeatures(snapshot)

	predictions := make(domain.RankedPredictions, 0, maxRuleResults)
	for _, chain := range e.chains {
		for _, rule := range chain {
			if !rule.Matches(features) {
				continue
			}
			e.logger.WithField("rule", rule.Name).Debug("Clinical rule matched")
			predictions = append(predictions, rule.Build(features))
			break
		}
	}

	if len(predictions) == 0 {
		predictions = append(predictions, generalExamPrediction())
	}

	// The ranked contract requires descending confidence regardless of
	// rule table order.
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Confidence > predictions[j].Confidence
	})

	predictions = e.padDifferentials(predictions)
	if len(predictions) > maxRuleResults {
		predictions = predictions[:maxRuleResults]
	}

	e.logger.WithFields(logrus.Fields{
		"prediction_count": len(predictions),
		"top_code":         predictions[0].ICD10Code,
		"top_confidence":   predictions[0].Confidence,
	}).Info("Completed rule-based scoring")

	return predictions, nil
}

// LoadDifferentials replaces the built-in differential list with the
// active ICD-10 catalog, ordered by catalog identifier. The built-ins
// keep the engine usable when no catalog is configured.
func (e *RuleEngine) LoadDifferentials(ctx context.Context, catalog domain.CatalogStore) error {
	codes, err := catalog.ListActiveICD10(ctx)
	if err != nil {
		return fmt.Errorf("loading differential catalog: %w", err)
	}

	entries := make([]differentialEntry, 0, len(codes))
	for _, code := range codes {
		entries = append(entries, differentialEntry{
			DiseaseID: code.ID,
			Code:      code.Code,
			Diagnosis: code.Description,
		})
	}

	e.mu.Lock()
	e.differentials = entries
	e.mu.Unlock()

	e.logger.WithField("differential_count", len(entries)).Info("Loaded differential diagnoses from catalog")
	return nil
}

// padDifferentials extends the ranked list to maxRuleResults with
// low-confidence differential considerations drawn positionally from
// the catalog list. Position i is offered at confidence 0.3-i*0.1,
// floored at 0.1.
func (e *RuleEngine) padDifferentials(predictions domain.RankedPredictions) domain.RankedPredictions {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for len(predictions) < maxRuleResults && len(predictions) < len(e.differentials) {
		position := len(predictions)
		entry := e.differentials[position]

		confidence := 0.3 - float64(position)*0.1
		if confidence < 0.1 {
			confidence = 0.1
		}

		predictions = append(predictions, domain.DiseasePrediction{
			DiseaseID:              entry.DiseaseID,
			ICD10Code:              entry.Code,
			Diagnosis:              entry.Diagnosis,
			Confidence:             confidence,
			RecommendedTests:       []domain.TestRecommendation{},
			RecommendedMedications: []domain.MedicationRecommendation{},
			AssessmentPlan:         "Consider as differential diagnosis. Additional evaluation may be needed.",
			Rationale:              []string{"Differential diagnosis consideration"},
		})
	}

	return predictions
}

// initializeChains builds the rule table. The chains are evaluated
// independently, so a febrile patient with both cough and headache
// receives a diagnosis from each.
func (e *RuleEngine) initializeChains() {
	// Fever chain: fever with cough shadows fever alone.
	e.chains = append(e.chains, []*clinicalRule{
		{
			Name: "fever with cough",
			Matches: func(f *caseFeatures) bool {
				return f.hasTemperature && f.temperature > 38.0 && f.hasSymptom("cough")
			},
			Build: func(f *caseFeatures) domain.DiseasePrediction {
				return domain.DiseasePrediction{
					ICD10Code:  "J18.9",
					Diagnosis:  "Pneumonia, unspecified organism",
					Confidence: 0.82,
					RecommendedTests: []domain.TestRecommendation{
						{Test: "Chest X-ray (PA/AP)", Confidence: 0.9, Urgency: domain.UrgencyRoutine},
						{Test: "Complete Blood Count (CBC)", Confidence: 0.8, Urgency: domain.UrgencyRoutine},
					},
					RecommendedMedications: []domain.MedicationRecommendation{
						{
							Medication:     "Amoxicillin-clavulanate",
							Confidence:     0.78,
							DoseSuggestion: "500 mg PO TID",
							Duration:       "7-10 days",
						},
					},
					AssessmentPlan: "Likely community-acquired pneumonia. Obtain chest x-ray and CBC; start empiric oral antibiotics considering allergy history. Re-evaluate in 48 hours.",
					Rationale: []string{
						fmt.Sprintf("Fever (%.1f°C)", f.temperature),
						"Productive cough reported",
						"Clinical presentation consistent with respiratory infection",
					},
				}
			},
		},
		{
			Name: "fever alone",
			Matches: func(f *caseFeatures) bool {
				return f.hasTemperature && f.temperature > 37.5
			},
			Build: func(f *caseFeatures) domain.DiseasePrediction {
				return domain.DiseasePrediction{
					ICD10Code:  "R50.9",
					Diagnosis:  "Fever, unspecified",
					Confidence: 0.65,
					RecommendedTests: []domain.TestRecommendation{
						{Test: "Complete Blood Count (CBC)", Confidence: 0.8, Urgency: domain.UrgencyRoutine},
						{Test: "Urinalysis", Confidence: 0.6, Urgency: domain.UrgencyRoutine},
					},
					RecommendedMedications: []domain.MedicationRecommendation{
						{
							Medication:     "Acetaminophen",
							Confidence:     0.9,
							DoseSuggestion: "650 mg PO q6h PRN",
							Duration:       "As needed",
						},
					},
					AssessmentPlan: "Fever of unknown origin. Supportive care and symptomatic treatment. Monitor for additional symptoms.",
					Rationale: []string{
						fmt.Sprintf("Elevated temperature (%.1f°C)", f.temperature),
						"No clear source identified",
					},
				}
			},
		},
	})

	// Symptom chain: headache shadows isolated cough.
	e.chains = append(e.chains, []*clinicalRule{
		{
			Name: "headache",
			Matches: func(f *caseFeatures) bool {
				return f.hasSymptom("headache")
			},
			Build: func(f *caseFeatures) domain.DiseasePrediction {
				return domain.DiseasePrediction{
					ICD10Code:  "R51",
					Diagnosis:  "Headache",
					Confidence: 0.70,
					RecommendedTests: []domain.TestRecommendation{
						{Test: "Basic Metabolic Panel", Confidence: 0.5, Urgency: domain.UrgencyRoutine},
					},
					RecommendedMedications: []domain.MedicationRecommendation{
						{
							Medication:     "Ibuprofen",
							Confidence:     0.85,
							DoseSuggestion: "400 mg PO q6h PRN",
							Duration:       "As needed",
						},
					},
					AssessmentPlan: "Primary headache. Symptomatic treatment with NSAIDs. Consider neurological evaluation if persistent or severe.",
					Rationale:      []string{"Patient reports headache"},
				}
			},
		},
		{
			Name: "cough without fever",
			Matches: func(f *caseFeatures) bool {
				return f.hasSymptom("cough")
			},
			Build: func(f *caseFeatures) domain.DiseasePrediction {
				return domain.DiseasePrediction{
					ICD10Code:  "J40",
					Diagnosis:  "Bronchitis, not specified as acute or chronic",
					Confidence: 0.68,
					RecommendedTests: []domain.TestRecommendation{
						{Test: "Chest X-ray (PA/AP)", Confidence: 0.7, Urgency: domain.UrgencyRoutine},
					},
					RecommendedMedications: []domain.MedicationRecommendation{
						{
							Medication:     "Dextromethorphan",
							Confidence:     0.75,
							DoseSuggestion: "15 mg PO q4h PRN",
							Duration:       "As needed for cough",
						},
					},
					AssessmentPlan: "Bronchitis, likely viral etiology. Supportive care with cough suppressants. Monitor for bacterial superinfection.",
					Rationale:      []string{"Cough without fever suggests viral bronchitis"},
				}
			},
		},
	})
}

// generalExamPrediction is the default result when no rule matches.
func generalExamPrediction() domain.DiseasePrediction {
	return domain.DiseasePrediction{
		ICD10Code:  "Z00.00",
		Diagnosis:  "Encounter for general adult medical examination without abnormal findings",
		Confidence: 0.40,
		RecommendedTests: []domain.TestRecommendation{
			{Test: "Complete Blood Count (CBC)", Confidence: 0.6, Urgency: domain.UrgencyRoutine},
		},
		RecommendedMedications: []domain.MedicationRecommendation{},
		AssessmentPlan:         "Non-specific symptoms. Recommend follow-up if symptoms persist or worsen. Consider routine health maintenance.",
		Rationale:              []string{"Non-specific clinical presentation"},
	}
}

// builtinDifferentials is the fallback differential list used until the
// catalog is loaded.
func builtinDifferentials() []differentialEntry {
	return []differentialEntry{
		{Code: "J18.9", Diagnosis: "Pneumonia, unspecified organism"},
		{Code: "R50.9", Diagnosis: "Fever, unspecified"},
		{Code: "R51", Diagnosis: "Headache"},
		{Code: "R69", Diagnosis: "Illness, unspecified"},
	}
}
