package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
	"github.com/pdpcds-server/internal/training"
)

const (
	// trainingConfidenceThreshold is the minimum doctor confidence for a
	// feedback submission to materialize a training sample.
	trainingConfidenceThreshold = 0.8

	// trainingQualityCap bounds the quality score derived from doctor
	// confidence.
	trainingQualityCap = 0.95

	// defaultManualQuality is assigned to manually curated samples that
	// arrive without an explicit quality score.
	defaultManualQuality = 0.95

	// consensusAgreement is the accuracy-rate threshold at which the
	// reviewer pool is considered to agree, in either direction.
	consensusAgreement = 0.8

	// defaultStatsWindowDays is the trailing window for feedback
	// statistics when no period is requested.
	defaultStatsWindowDays = 7
)

// FeedbackService processes doctor assessments of stored predictions,
// grows the training dataset from high-confidence submissions, and
// serves aggregate accuracy reads. All writes are append-only.
type FeedbackService struct {
	predictions domain.PredictionStore
	feedback    domain.FeedbackStore
	outcomes    domain.OutcomeStore
	training    training.Store
	publisher   domain.FeedbackPublisher
	logger      *logrus.Logger
}

// NewFeedbackService creates a feedback service. The training store and
// publisher may be nil; without a training store no samples are
// materialized, and without a publisher accepted feedback is not
// broadcast.
func NewFeedbackService(
	predictions domain.PredictionStore,
	feedback domain.FeedbackStore,
	outcomes domain.OutcomeStore,
	trainingStore training.Store,
	publisher domain.FeedbackPublisher,
	logger *logrus.Logger,
) *FeedbackService {
	return &FeedbackService{
		predictions: predictions,
		feedback:    feedback,
		outcomes:    outcomes,
		training:    trainingStore,
		publisher:   publisher,
		logger:      logger,
	}
}

// TrainingDataResult reports where a curated sample was stored.
type TrainingDataResult struct {
	RecordID  int64
	Dataset   training.Dataset
	Condition string
}

// SubmitFeedback validates and stores one doctor assessment, derives a
// training sample when the submission qualifies, and returns the updated
// accuracy aggregate for the prediction. A failed training write
// degrades to training_data_added=false; it never fails the submission.
func (s *FeedbackService) SubmitFeedback(ctx context.Context, submission *domain.DoctorFeedback) (*domain.FeedbackResponse, error) {
	if submission == nil {
		return nil, fmt.Errorf("feedback submission is required: %w", domain.ErrInvalidInput)
	}
	if err := submission.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feedback submission: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"prediction_id": submission.PredictionID,
		"doctor_id":     submission.DoctorID,
		"accurate":      *submission.PredictionAccurate,
	}).Info("Processing doctor feedback")

	// Step 1: the referenced prediction must exist.
	prediction, err := s.predictions.Get(ctx, submission.PredictionID)
	if err != nil {
		return nil, err
	}

	// Step 2: append the feedback record.
	record := s.buildFeedbackRecord(submission)
	feedbackID, err := s.feedback.Insert(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("storing feedback: %w", err)
	}

	// Step 3: resolve the target diagnosis and materialize a training
	// sample for high-confidence submissions.
	resolved := s.resolveDiagnosis(record, prediction)

	trainingAdded := false
	var trainingRecordID *int64
	if s.training != nil && record.ConfidenceInFeedback >= trainingConfidenceThreshold && resolved.Present() {
		sample := &domain.TrainingSample{
			PatientSnapshot:   prediction.PatientSnapshot,
			TargetDisease:     resolved.DiseaseID,
			ConditionName:     resolved.ConditionName,
			TargetTests:       record.OrderedTests,
			TargetMedications: record.PrescribedMedications,
			DataSource:        domain.ProvenanceClinicalFeedback,
			QualityScore:      trainingQuality(record.ConfidenceInFeedback),
			IsValidated:       true,
			CreatedBy:         record.DoctorID,
		}
		recordID, insertErr := s.training.Insert(ctx, training.DatasetTraining, sample)
		if insertErr != nil {
			s.logger.WithFields(logrus.Fields{
				"prediction_id": record.PredictionID,
				"feedback_id":   feedbackID,
				"error":         insertErr,
			}).Warn("Training sample could not be stored; feedback kept")
		} else {
			trainingAdded = true
			trainingRecordID = &recordID
		}
	}

	// Step 4: recompute the accuracy aggregate from the full log.
	total, accurate, err := s.feedback.CountsByPrediction(ctx, record.PredictionID)
	if err != nil {
		return nil, fmt.Errorf("counting feedback: %w", err)
	}
	accuracyRate := 0.0
	if total > 0 {
		accuracyRate = float64(accurate) / float64(total)
	}

	if s.publisher != nil {
		s.publisher.PublishFeedback(domain.FeedbackEvent{
			FeedbackID:        feedbackID,
			PredictionID:      record.PredictionID,
			Accurate:          record.PredictionAccurate,
			Confidence:        record.ConfidenceInFeedback,
			TrainingDataAdded: trainingAdded,
			At:                time.Now().UTC(),
		})
	}

	s.logger.WithFields(logrus.Fields{
		"feedback_id":         feedbackID,
		"prediction_id":       record.PredictionID,
		"accurate":            record.PredictionAccurate,
		"training_data_added": trainingAdded,
		"accuracy_rate":       accuracyRate,
	}).Info("Feedback processed")

	return &domain.FeedbackResponse{
		Message:                    "Feedback submitted successfully",
		FeedbackID:                 feedbackID,
		TrainingDataAdded:          trainingAdded,
		TrainingRecordID:           trainingRecordID,
		TotalFeedbackForPrediction: total,
		PredictionAccuracyRate:     accuracyRate,
	}, nil
}

// RecordOutcome validates and appends a final clinical outcome for a
// stored prediction, returning the new outcome ID.
func (s *FeedbackService) RecordOutcome(ctx context.Context, outcome *domain.ClinicalOutcome) (int64, error) {
	if outcome == nil {
		return 0, fmt.Errorf("outcome report is required: %w", domain.ErrInvalidInput)
	}
	if err := outcome.Validate(); err != nil {
		return 0, fmt.Errorf("invalid outcome report: %w", err)
	}

	if _, err := s.predictions.Get(ctx, outcome.PredictionID); err != nil {
		return 0, err
	}

	record := &domain.OutcomeRecord{
		PredictionID:              outcome.PredictionID,
		PatientOutcome:            outcome.PatientOutcome,
		FinalDiagnosisID:          *outcome.FinalDiagnosisID,
		FinalConditionName:        outcome.FinalConditionName,
		TreatmentEffective:        *outcome.TreatmentEffective,
		SideEffects:               coalesceList(outcome.SideEffects),
		DiagnosisConfirmationDays: outcome.DiagnosisConfirmationDays,
		TreatmentDurationDays:     outcome.TreatmentDurationDays,
		ReadmissionRequired:       outcome.ReadmissionRequired,
		Complications:             coalesceList(outcome.Complications),
		ReportedBy:                outcome.ReportedBy,
		OutcomeDate:               *outcome.OutcomeDate,
	}

	outcomeID, err := s.outcomes.Insert(ctx, record)
	if err != nil {
		return 0, fmt.Errorf("storing outcome: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"outcome_id":      outcomeID,
		"prediction_id":   outcome.PredictionID,
		"patient_outcome": outcome.PatientOutcome,
	}).Info("Clinical outcome recorded")

	return outcomeID, nil
}

// ListFeedback returns every feedback record for a prediction in
// submission order. A prediction with no feedback yields an empty list,
// not an error.
func (s *FeedbackService) ListFeedback(ctx context.Context, predictionID int64) ([]*domain.FeedbackRecord, error) {
	if predictionID <= 0 {
		return nil, domain.NewValidationError("prediction_id", "must be a positive identifier", predictionID)
	}
	records, err := s.feedback.ListByPrediction(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("loading feedback: %w", err)
	}
	if records == nil {
		records = []*domain.FeedbackRecord{}
	}
	return records, nil
}

// Summary aggregates the feedback log for one prediction. Consensus is
// reached when at least 80% of reviewers agree in either direction. The
// most common corrected diagnosis is the mode over inaccurate records;
// ties resolve to the diagnosis that reached the winning count first.
func (s *FeedbackService) Summary(ctx context.Context, predictionID int64) (*domain.FeedbackSummary, error) {
	if predictionID <= 0 {
		return nil, domain.NewValidationError("prediction_id", "must be a positive identifier", predictionID)
	}
	records, err := s.feedback.ListByPrediction(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("loading feedback: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no feedback for prediction %d: %w", predictionID, domain.ErrNotFound)
	}

	total := len(records)
	accurate := 0
	confidenceSum := 0.0
	counts := make(map[string]int)
	mostCommon := ""
	mostCommonCount := 0
	for _, record := range records {
		if record.PredictionAccurate {
			accurate++
		}
		confidenceSum += record.ConfidenceInFeedback
		if !record.PredictionAccurate && record.ActualConditionName != "" {
			counts[record.ActualConditionName]++
			if counts[record.ActualConditionName] > mostCommonCount {
				mostCommonCount = counts[record.ActualConditionName]
				mostCommon = record.ActualConditionName
			}
		}
	}

	accuracyRate := float64(accurate) / float64(total)
	summary := &domain.FeedbackSummary{
		PredictionID:       predictionID,
		TotalFeedbackCount: int64(total),
		AccuracyRate:       accuracyRate,
		ConsensusReached:   accuracyRate >= consensusAgreement || (1.0-accuracyRate) >= consensusAgreement,
		AverageConfidence:  confidenceSum / float64(total),
	}
	if mostCommonCount > 0 {
		summary.MostCommonActualDiagnosis = &mostCommon
	}
	return summary, nil
}

// Stats aggregates feedback activity over the trailing window. A
// non-positive day count falls back to the default window.
func (s *FeedbackService) Stats(ctx context.Context, days int) (*domain.FeedbackStats, error) {
	if days <= 0 {
		days = defaultStatsWindowDays
	}
	since := time.Now().AddDate(0, 0, -days)
	stats, err := s.feedback.StatsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("aggregating feedback stats: %w", err)
	}
	stats.PeriodDays = days
	return stats, nil
}

// AddTrainingData stores a manually curated sample in the requested
// dataset. Provenance defaults to manual, quality to 0.95, and the
// validated flag to true when the request leaves them unset.
func (s *FeedbackService) AddTrainingData(ctx context.Context, request *domain.TrainingDataRequest) (*TrainingDataResult, error) {
	if request == nil {
		return nil, fmt.Errorf("training data request is required: %w", domain.ErrInvalidInput)
	}
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("invalid training data: %w", err)
	}
	if s.training == nil {
		return nil, fmt.Errorf("training store not configured: %w", domain.ErrStoreClosed)
	}

	dataset := training.DatasetTraining
	if request.AddToValidationSet {
		dataset = training.DatasetValidation
	}

	snapshot := domain.PatientSnapshot{
		Age:                request.Age,
		Sex:                request.Sex,
		VitalTemperatureC:  request.VitalTemperatureC,
		VitalHeartRate:     request.VitalHeartRate,
		VitalBPSystolic:    request.VitalBPSystolic,
		VitalBPDiastolic:   request.VitalBPDiastolic,
		SymptomList:        request.SymptomList,
		PMHList:            request.PMHList,
		CurrentMedications: request.CurrentMedications,
		Allergies:          request.Allergies,
		ChiefComplaint:     request.ChiefComplaint,
		FreeTextNotes:      request.FreeTextNotes,
	}
	normalizeSnapshot(&snapshot)

	dataSource := request.DataSource
	if dataSource == "" {
		dataSource = domain.ProvenanceManual
	}
	quality := defaultManualQuality
	if request.QualityScore != nil {
		quality = *request.QualityScore
	}
	validated := true
	if request.IsValidated != nil {
		validated = *request.IsValidated
	}

	sample := &domain.TrainingSample{
		PatientSnapshot:   snapshot,
		TargetDisease:     request.ConfirmedDiseaseID,
		ConditionName:     request.ConfirmedCondition,
		TargetTests:       coalesceList(request.OrderedTests),
		TargetMedications: coalesceList(request.PrescribedMedications),
		DataSource:        dataSource,
		QualityScore:      quality,
		IsValidated:       validated,
		CreatedBy:         request.CreatedBy,
	}

	recordID, err := s.training.Insert(ctx, dataset, sample)
	if err != nil {
		return nil, fmt.Errorf("storing training sample: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"record_id":   recordID,
		"dataset":     dataset,
		"condition":   request.ConfirmedCondition,
		"data_source": dataSource,
	}).Info("Training data added")

	return &TrainingDataResult{
		RecordID:  recordID,
		Dataset:   dataset,
		Condition: request.ConfirmedCondition,
	}, nil
}

// buildFeedbackRecord maps a validated submission onto the stored form,
// stamping the timestamp when the submitter omitted one.
func (s *FeedbackService) buildFeedbackRecord(submission *domain.DoctorFeedback) *domain.FeedbackRecord {
	timestamp := time.Now().UTC()
	if submission.FeedbackTimestamp != nil {
		timestamp = *submission.FeedbackTimestamp
	}
	return &domain.FeedbackRecord{
		PredictionID:          submission.PredictionID,
		DoctorID:              submission.DoctorID,
		DoctorName:            submission.DoctorName,
		HospitalUnit:          submission.HospitalUnit,
		PredictionAccurate:    *submission.PredictionAccurate,
		ConfidenceInFeedback:  *submission.ConfidenceInFeedback,
		ActualDiseaseID:       submission.ActualDiseaseID,
		ActualConditionName:   submission.ActualConditionName,
		OrderedTests:          coalesceList(submission.OrderedTests),
		PrescribedMedications: coalesceList(submission.PrescribedMedications),
		ClinicalNotes:         submission.ClinicalNotes,
		OutcomeNotes:          submission.OutcomeNotes,
		FeedbackTimestamp:     timestamp,
	}
}

// resolveDiagnosis determines the sample target for a feedback record.
// Accurate feedback confirms the stored top-ranked diagnosis; inaccurate
// feedback carries its own correction. Accurate feedback on a prediction
// with no ranked results resolves to nothing.
func (s *FeedbackService) resolveDiagnosis(record *domain.FeedbackRecord, prediction *domain.PredictionRecord) domain.ResolvedDiagnosis {
	if record.PredictionAccurate {
		top, ok := prediction.Predictions.First()
		if !ok {
			s.logger.WithField("prediction_id", record.PredictionID).
				Warn("Accurate feedback on a prediction with no ranked results")
			return domain.ResolvedDiagnosis{}
		}
		return domain.ResolvedDiagnosis{DiseaseID: top.DiseaseID, ConditionName: top.Diagnosis}
	}
	if record.ActualDiseaseID == nil {
		return domain.ResolvedDiagnosis{}
	}
	return domain.ResolvedDiagnosis{DiseaseID: *record.ActualDiseaseID, ConditionName: record.ActualConditionName}
}

// trainingQuality derives a sample quality score from doctor confidence.
func trainingQuality(confidence float64) float64 {
	quality := confidence + 0.1
	if quality > trainingQualityCap {
		quality = trainingQualityCap
	}
	return quality
}
