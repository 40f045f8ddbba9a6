package domain

import (
	"fmt"
	"time"
)

// Request/Response Models

// PredictionRequest represents an incoming disease-prediction request.
// List fields are normalized (trimmed, lowercased, de-duplicated) by the
// prediction service before scoring.
type PredictionRequest struct {
	PatientID string `json:"patient_id,omitempty"`
	PatientSnapshot
}

// Validate ensures the request meets the documented clinical ranges.
func (r *PredictionRequest) Validate() error {
	return r.PatientSnapshot.Validate()
}

// PredictionResponse represents the response for a disease prediction.
// PredictionID is assigned before the record is durably persisted; an
// immediate read of that ID may transiently miss while the background
// write completes.
type PredictionResponse struct {
	PredictionID int64  `json:"prediction_id"`
	PatientID    string `json:"patient_id"`

	Predictions RankedPredictions `json:"predictions"`

	ModelVersion        string  `json:"model_version"`
	ProcessingTimeMS    float64 `json:"processing_time_ms"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	GeneratedAt time.Time `json:"generated_at"`

	ClinicalWarnings []string `json:"clinical_warnings"`
	Disclaimer       string   `json:"disclaimer"`
}

// DoctorFeedback represents a doctor's assessment of a stored prediction.
// Required scalars are pointers so that an absent field is distinguishable
// from a zero value and can be rejected with its field path.
type DoctorFeedback struct {
	PredictionID          int64      `json:"prediction_id"`
	DoctorID              string     `json:"doctor_id"`
	DoctorName            string     `json:"doctor_name,omitempty"`
	PredictionAccurate    *bool      `json:"prediction_accurate"`
	ConfidenceInFeedback  *float64   `json:"confidence_in_feedback"`
	ActualDiseaseID       *int64     `json:"actual_disease_id,omitempty"`
	ActualConditionName   string     `json:"actual_condition_name,omitempty"`
	OrderedTests          []string   `json:"ordered_tests,omitempty"`
	PrescribedMedications []string   `json:"prescribed_medications,omitempty"`
	ClinicalNotes         string     `json:"clinical_notes,omitempty"`
	OutcomeNotes          string     `json:"outcome_notes,omitempty"`
	FeedbackTimestamp     *time.Time `json:"feedback_timestamp,omitempty"`
	HospitalUnit          string     `json:"hospital_unit,omitempty"`
}

// Validate checks the feedback candidate against the submission contract.
// A false accuracy assessment must carry the corrected diagnosis, both
// identifier and condition name.
func (f *DoctorFeedback) Validate() error {
	if f.PredictionID <= 0 {
		return NewValidationError("prediction_id", "must be a positive identifier", f.PredictionID)
	}
	if f.DoctorID == "" {
		return NewValidationError("doctor_id", "is required", f.DoctorID)
	}
	if f.PredictionAccurate == nil {
		return NewValidationError("prediction_accurate", "is required", nil)
	}
	if f.ConfidenceInFeedback == nil {
		return NewValidationError("confidence_in_feedback", "is required", nil)
	}
	if c := *f.ConfidenceInFeedback; c < 0.0 || c > 1.0 {
		return NewValidationError("confidence_in_feedback", "must be between 0.0 and 1.0", c)
	}
	if !*f.PredictionAccurate {
		if f.ActualDiseaseID == nil || *f.ActualDiseaseID <= 0 {
			return NewValidationError("actual_disease_id", "is required when prediction_accurate is false", f.ActualDiseaseID)
		}
		if f.ActualConditionName == "" {
			return NewValidationError("actual_condition_name", "is required when prediction_accurate is false", f.ActualConditionName)
		}
	}
	return nil
}

// FeedbackResponse represents the response after submitting feedback.
// Accuracy is recomputed from the full feedback log on every submission
// rather than maintained as a running counter.
type FeedbackResponse struct {
	Message          string `json:"message"`
	FeedbackID       int64  `json:"feedback_id"`
	TrainingDataAdded bool  `json:"training_data_added"`
	TrainingRecordID *int64 `json:"training_record_id,omitempty"`

	TotalFeedbackForPrediction int64   `json:"total_feedback_for_prediction"`
	PredictionAccuracyRate     float64 `json:"prediction_accuracy_rate"`
}

// ClinicalOutcome represents a final-outcome report for a prediction.
type ClinicalOutcome struct {
	PredictionID              int64           `json:"prediction_id"`
	PatientOutcome            OutcomeCategory `json:"patient_outcome"`
	FinalDiagnosisID          *int64          `json:"final_diagnosis_id"`
	FinalConditionName        string          `json:"final_condition_name"`
	TreatmentEffective        *bool           `json:"treatment_effective"`
	SideEffects               []string        `json:"side_effects,omitempty"`
	DiagnosisConfirmationDays *int            `json:"diagnosis_confirmation_days,omitempty"`
	TreatmentDurationDays     *int            `json:"treatment_duration_days,omitempty"`
	ReadmissionRequired       bool            `json:"readmission_required"`
	Complications             []string        `json:"complications,omitempty"`
	ReportedBy                string          `json:"reported_by"`
	OutcomeDate               *time.Time      `json:"outcome_date"`
}

// Validate checks that every required outcome field is present.
func (o *ClinicalOutcome) Validate() error {
	if o.PredictionID <= 0 {
		return NewValidationError("prediction_id", "must be a positive identifier", o.PredictionID)
	}
	if o.PatientOutcome == "" {
		return NewValidationError("patient_outcome", "is required", o.PatientOutcome)
	}
	if !o.PatientOutcome.IsValid() {
		return NewValidationError("patient_outcome", fmt.Sprintf("must be one of %s, %s, %s, %s, %s",
			OutcomeRecovered, OutcomeImproved, OutcomeUnchanged, OutcomeWorsened, OutcomeDeceased), o.PatientOutcome)
	}
	if o.FinalDiagnosisID == nil || *o.FinalDiagnosisID <= 0 {
		return NewValidationError("final_diagnosis_id", "is required", o.FinalDiagnosisID)
	}
	if o.FinalConditionName == "" {
		return NewValidationError("final_condition_name", "is required", o.FinalConditionName)
	}
	if o.TreatmentEffective == nil {
		return NewValidationError("treatment_effective", "is required", nil)
	}
	if o.ReportedBy == "" {
		return NewValidationError("reported_by", "is required", o.ReportedBy)
	}
	if o.OutcomeDate == nil {
		return NewValidationError("outcome_date", "is required", nil)
	}
	return nil
}

// TrainingDataRequest represents a manual submission of a validated
// clinical case by a medical expert.
type TrainingDataRequest struct {
	Age                  int      `json:"age"`
	Sex                  Sex      `json:"sex"`
	VitalTemperatureC    *float64 `json:"vital_temperature_c"`
	VitalHeartRate       *int     `json:"vital_heart_rate"`
	VitalBPSystolic      *int     `json:"vital_blood_pressure_systolic,omitempty"`
	VitalBPDiastolic     *int     `json:"vital_blood_pressure_diastolic,omitempty"`
	SymptomList          []string `json:"symptom_list"`
	PMHList              []string `json:"pmh_list,omitempty"`
	CurrentMedications   []string `json:"current_medications,omitempty"`
	Allergies            []string `json:"allergies,omitempty"`
	ChiefComplaint       string   `json:"chief_complaint,omitempty"`
	FreeTextNotes        string   `json:"free_text_notes,omitempty"`
	ConfirmedDiseaseID   int64    `json:"confirmed_disease_id"`
	ConfirmedCondition   string   `json:"confirmed_condition_name"`
	OrderedTests         []string `json:"ordered_tests"`
	PrescribedMedications []string `json:"prescribed_medications"`
	DataSource           Provenance `json:"data_source,omitempty"`
	QualityScore         *float64 `json:"quality_score,omitempty"`
	IsValidated          *bool    `json:"is_validated,omitempty"`
	CreatedBy            string   `json:"created_by"`
	AddToValidationSet   bool     `json:"add_to_validation_set,omitempty"`
}

// Validate checks the manual curation contract. Manual cases carry
// stricter requirements than feedback-derived samples: vitals and at
// least one symptom are mandatory.
func (t *TrainingDataRequest) Validate() error {
	if t.Age < 0 || t.Age > 120 {
		return NewValidationError("age", "must be between 0 and 120", t.Age)
	}
	if !t.Sex.IsValid() {
		return NewValidationError("sex", "must be one of male, female, other", t.Sex)
	}
	if t.VitalTemperatureC == nil {
		return NewValidationError("vital_temperature_c", "is required", nil)
	}
	if v := *t.VitalTemperatureC; v < 30.0 || v > 45.0 {
		return NewValidationError("vital_temperature_c", "must be between 30.0 and 45.0", v)
	}
	if t.VitalHeartRate == nil {
		return NewValidationError("vital_heart_rate", "is required", nil)
	}
	if v := *t.VitalHeartRate; v < 30 || v > 200 {
		return NewValidationError("vital_heart_rate", "must be between 30 and 200", v)
	}
	if len(t.SymptomList) == 0 {
		return NewValidationError("symptom_list", "must contain at least one symptom", t.SymptomList)
	}
	if t.ConfirmedDiseaseID <= 0 {
		return NewValidationError("confirmed_disease_id", "must be a positive identifier", t.ConfirmedDiseaseID)
	}
	if t.ConfirmedCondition == "" {
		return NewValidationError("confirmed_condition_name", "is required", t.ConfirmedCondition)
	}
	if t.DataSource != "" && !t.DataSource.IsValid() {
		return NewValidationError("data_source", "must be one of manual, clinical_feedback, migrated", t.DataSource)
	}
	if t.QualityScore != nil {
		if q := *t.QualityScore; q < 0.0 || q > 1.0 {
			return NewValidationError("quality_score", "must be between 0.0 and 1.0", q)
		}
	}
	if t.CreatedBy == "" {
		return NewValidationError("created_by", "is required", t.CreatedBy)
	}
	return nil
}

// Core Data Models

// PatientSnapshot is the clinical input captured with a prediction and
// copied verbatim into any training sample derived from it.
type PatientSnapshot struct {
	Age                int      `json:"age"`
	Sex                Sex      `json:"sex"`
	VitalTemperatureC  *float64 `json:"vital_temperature_c,omitempty"`
	VitalHeartRate     *int     `json:"vital_heart_rate,omitempty"`
	VitalBPSystolic    *int     `json:"vital_blood_pressure_systolic,omitempty"`
	VitalBPDiastolic   *int     `json:"vital_blood_pressure_diastolic,omitempty"`
	SymptomList        []string `json:"symptom_list"`
	PMHList            []string `json:"pmh_list"`
	CurrentMedications []string `json:"current_medications,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
	ChiefComplaint     string   `json:"chief_complaint,omitempty"`
	FreeTextNotes      string   `json:"free_text_notes,omitempty"`
}

// Validate ensures the snapshot values fall inside the documented
// physiological ranges.
func (p *PatientSnapshot) Validate() error {
	if p.Age < 0 || p.Age > 150 {
		return NewValidationError("age", "must be between 0 and 150", p.Age)
	}
	if !p.Sex.IsValid() {
		return NewValidationError("sex", "must be one of male, female, other", p.Sex)
	}
	if p.VitalTemperatureC != nil {
		if v := *p.VitalTemperatureC; v < 30.0 || v > 45.0 {
			return NewValidationError("vital_temperature_c", "must be between 30.0 and 45.0", v)
		}
	}
	if p.VitalHeartRate != nil {
		if v := *p.VitalHeartRate; v < 30 || v > 250 {
			return NewValidationError("vital_heart_rate", "must be between 30 and 250", v)
		}
	}
	if p.VitalBPSystolic != nil {
		if v := *p.VitalBPSystolic; v < 50 || v > 300 {
			return NewValidationError("vital_blood_pressure_systolic", "must be between 50 and 300", v)
		}
	}
	if p.VitalBPDiastolic != nil {
		if v := *p.VitalBPDiastolic; v < 30 || v > 200 {
			return NewValidationError("vital_blood_pressure_diastolic", "must be between 30 and 200", v)
		}
	}
	if len(p.ChiefComplaint) > 500 {
		return NewValidationError("chief_complaint", "must not exceed 500 characters", len(p.ChiefComplaint))
	}
	if len(p.FreeTextNotes) > 2000 {
		return NewValidationError("free_text_notes", "must not exceed 2000 characters", len(p.FreeTextNotes))
	}
	return nil
}

// TestRecommendation is a single diagnostic test suggested with a prediction.
type TestRecommendation struct {
	Test       string      `json:"test"`
	TestCode   string      `json:"test_code,omitempty"`
	Confidence float64     `json:"confidence"`
	Urgency    TestUrgency `json:"urgency,omitempty"`
	Rationale  string      `json:"rationale,omitempty"`
}

// MedicationRecommendation is a single medication suggested with a prediction.
type MedicationRecommendation struct {
	Medication           string  `json:"medication"`
	GenericName          string  `json:"generic_name,omitempty"`
	Confidence           float64 `json:"confidence"`
	DoseSuggestion       string  `json:"dose_suggestion,omitempty"`
	Duration             string  `json:"duration,omitempty"`
	ContraindicationCheck bool   `json:"contraindication_check"`
	Rationale            string  `json:"rationale,omitempty"`
}

// DiseasePrediction is one ranked diagnosis with its recommendations.
// DiseaseID references the ICD-10 catalog row; zero means the scoring
// source could not map the code to the catalog.
type DiseasePrediction struct {
	DiseaseID  int64   `json:"disease_id,omitempty"`
	ICD10Code  string  `json:"icd10_code"`
	Diagnosis  string  `json:"diagnosis"`
	Confidence float64 `json:"confidence"`

	RecommendedTests       []TestRecommendation       `json:"recommended_tests"`
	RecommendedMedications []MedicationRecommendation `json:"recommended_medications"`

	AssessmentPlan string   `json:"assessment_plan"`
	Rationale      []string `json:"rationale,omitempty"`

	RiskFactors           []string `json:"risk_factors,omitempty"`
	DifferentialDiagnoses []string `json:"differential_diagnoses,omitempty"`
}

// RankedPredictions is the ordered diagnosis list stored with a
// prediction, highest confidence first.
type RankedPredictions []DiseasePrediction

// First returns the top-ranked entry and whether one exists. Feedback
// processing must read the head of the list through this accessor only;
// a prediction stored with an empty or missing list is a valid state.
func (r RankedPredictions) First() (DiseasePrediction, bool) {
	if len(r) == 0 {
		return DiseasePrediction{}, false
	}
	return r[0], true
}

// ResolvedDiagnosis is the target diagnosis attached to a training sample
// after feedback resolution. The zero value means no diagnosis could be
// resolved, which is representable and never an error.
type ResolvedDiagnosis struct {
	DiseaseID     int64  `json:"disease_id"`
	ConditionName string `json:"condition_name"`
}

// Present reports whether the resolution produced a usable diagnosis.
// Both the catalog identifier and the condition name are required for a
// sample target.
func (d ResolvedDiagnosis) Present() bool {
	return d.DiseaseID > 0 && d.ConditionName != ""
}

// PredictionRecord is the stored input and output of one prediction
// request. Immutable after creation.
type PredictionRecord struct {
	ID        int64  `json:"id"`
	PatientID string `json:"patient_id"`

	PatientSnapshot

	Predictions RankedPredictions `json:"predictions"`

	ModelVersion        string  `json:"model_version"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	ProcessingTimeMS    float64 `json:"processing_time_ms"`

	CreatedAt time.Time `json:"created_at"`
}

// FeedbackRecord is one reviewer's stored assessment of a prediction.
// Created once per review and never mutated; many records may reference
// one prediction.
type FeedbackRecord struct {
	ID           int64  `json:"id"`
	PredictionID int64  `json:"prediction_id"`
	DoctorID     string `json:"doctor_id"`
	DoctorName   string `json:"doctor_name,omitempty"`
	HospitalUnit string `json:"hospital_unit,omitempty"`

	PredictionAccurate   bool    `json:"prediction_accurate"`
	ConfidenceInFeedback float64 `json:"confidence_in_feedback"`

	ActualDiseaseID     *int64 `json:"actual_disease_id,omitempty"`
	ActualConditionName string `json:"actual_condition_name,omitempty"`

	OrderedTests          []string `json:"ordered_tests"`
	PrescribedMedications []string `json:"prescribed_medications"`

	ClinicalNotes string `json:"clinical_notes,omitempty"`
	OutcomeNotes  string `json:"outcome_notes,omitempty"`

	FeedbackTimestamp time.Time `json:"feedback_timestamp"`
	CreatedAt         time.Time `json:"created_at"`
}

// OutcomeRecord is a stored final clinical outcome. Pure append; the
// referenced prediction is never modified.
type OutcomeRecord struct {
	ID           int64 `json:"id"`
	PredictionID int64 `json:"prediction_id"`

	PatientOutcome     OutcomeCategory `json:"patient_outcome"`
	FinalDiagnosisID   int64           `json:"final_diagnosis_id"`
	FinalConditionName string          `json:"final_condition_name"`
	TreatmentEffective bool            `json:"treatment_effective"`

	SideEffects               []string `json:"side_effects"`
	DiagnosisConfirmationDays *int     `json:"diagnosis_confirmation_days,omitempty"`
	TreatmentDurationDays     *int     `json:"treatment_duration_days,omitempty"`
	ReadmissionRequired       bool     `json:"readmission_required"`
	Complications             []string `json:"complications"`

	ReportedBy  string    `json:"reported_by"`
	OutcomeDate time.Time `json:"outcome_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrainingSample is one labeled example for offline model retraining.
// Append-only; never updated or deleted by this service.
type TrainingSample struct {
	ID int64 `json:"id"`

	PatientSnapshot

	TargetDisease     int64    `json:"target_disease"`
	TargetTests       []string `json:"target_tests"`
	TargetMedications []string `json:"target_medications"`
	ConditionName     string   `json:"condition_name"`

	DataSource   Provenance `json:"data_source"`
	QualityScore float64    `json:"quality_score"`
	IsValidated  bool       `json:"is_validated"`
	CreatedBy    string     `json:"created_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate ensures a sample is complete before it enters the dataset.
func (s *TrainingSample) Validate() error {
	if s.TargetDisease <= 0 {
		return NewValidationError("target_disease", "must be a positive identifier", s.TargetDisease)
	}
	if s.ConditionName == "" {
		return NewValidationError("condition_name", "is required", s.ConditionName)
	}
	if s.QualityScore < 0.0 || s.QualityScore > 1.0 {
		return NewValidationError("quality_score", "must be between 0.0 and 1.0", s.QualityScore)
	}
	if !s.DataSource.IsValid() {
		return NewValidationError("data_source", "must be one of manual, clinical_feedback, migrated", s.DataSource)
	}
	return nil
}

// Catalog Models

// ICD10Code is one row of the ICD-10 reference catalog.
type ICD10Code struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// MedicalTest is one row of the diagnostic test catalog.
type MedicalTest struct {
	ID           int64     `json:"id"`
	TestName     string    `json:"test_name"`
	TestCode     string    `json:"test_code"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	TypicalRange string    `json:"typical_range,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Medication is one row of the medication catalog.
type Medication struct {
	ID                int64     `json:"id"`
	MedicationName    string    `json:"medication_name"`
	GenericName       string    `json:"generic_name,omitempty"`
	BrandNames        []string  `json:"brand_names,omitempty"`
	DrugClass         string    `json:"drug_class,omitempty"`
	TypicalDosage     string    `json:"typical_dosage,omitempty"`
	Contraindications []string  `json:"contraindications,omitempty"`
	SideEffects       []string  `json:"side_effects,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

// Aggregate Models

// FeedbackSummary aggregates all feedback on one prediction.
type FeedbackSummary struct {
	PredictionID       int64   `json:"prediction_id"`
	TotalFeedbackCount int64   `json:"total_feedback_count"`
	AccuracyRate       float64 `json:"accuracy_rate"`
	ConsensusReached   bool    `json:"consensus_reached"`
	AverageConfidence  float64 `json:"average_confidence"`

	MostCommonActualDiagnosis *string `json:"most_common_actual_diagnosis"`
}

// FeedbackStats aggregates feedback activity over a trailing window.
type FeedbackStats struct {
	PeriodDays                    int     `json:"period_days"`
	TotalFeedback                 int64   `json:"total_feedback"`
	UniquePredictionsWithFeedback int64   `json:"unique_predictions_with_feedback"`
	UniqueDoctors                 int64   `json:"unique_doctors"`
	PredictionAccuracyRate        float64 `json:"prediction_accuracy_rate"`
	AverageDoctorConfidence       float64 `json:"average_doctor_confidence"`
	FeedbackPerPrediction         float64 `json:"feedback_per_prediction"`
}

// PredictionHistory is the stored prediction log for one patient.
type PredictionHistory struct {
	PatientID       string              `json:"patient_id"`
	PredictionCount int                 `json:"prediction_count"`
	Predictions     []*PredictionRecord `json:"predictions"`
}
