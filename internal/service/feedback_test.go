package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdpcds-server/internal/domain"
	"github.com/pdpcds-server/internal/training"
)

// memFeedbackStore is an in-memory FeedbackStore.
type memFeedbackStore struct {
	mu      sync.Mutex
	nextID  int64
	records []*domain.FeedbackRecord

	insertErr error
	stats     *domain.FeedbackStats
	statsErr  error
	lastSince time.Time
}

func (s *memFeedbackStore) Insert(ctx context.Context, record *domain.FeedbackRecord) (int64, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = s.nextID
	record.CreatedAt = time.Now()
	s.records = append(s.records, record)
	return record.ID, nil
}

func (s *memFeedbackStore) ListByPrediction(ctx context.Context, predictionID int64) ([]*domain.FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.FeedbackRecord
	for _, record := range s.records {
		if record.PredictionID == predictionID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *memFeedbackStore) CountsByPrediction(ctx context.Context, predictionID int64) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total, accurate int64
	for _, record := range s.records {
		if record.PredictionID != predictionID {
			continue
		}
		total++
		if record.PredictionAccurate {
			accurate++
		}
	}
	return total, accurate, nil
}

func (s *memFeedbackStore) StatsSince(ctx context.Context, since time.Time) (*domain.FeedbackStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSince = since
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	if s.stats != nil {
		return s.stats, nil
	}
	return &domain.FeedbackStats{}, nil
}

// memOutcomeStore is an in-memory OutcomeStore.
type memOutcomeStore struct {
	mu      sync.Mutex
	nextID  int64
	records []*domain.OutcomeRecord
}

func (s *memOutcomeStore) Insert(ctx context.Context, record *domain.OutcomeRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = s.nextID
	s.records = append(s.records, record)
	return record.ID, nil
}

// memTrainingStore is an in-memory training.Store.
type memTrainingStore struct {
	mu      sync.Mutex
	nextID  int64
	samples map[training.Dataset][]*domain.TrainingSample

	insertErr error
}

func newMemTrainingStore() *memTrainingStore {
	return &memTrainingStore{samples: make(map[training.Dataset][]*domain.TrainingSample)}
}

func (s *memTrainingStore) Insert(ctx context.Context, dataset training.Dataset, sample *domain.TrainingSample) (int64, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sample.ID = s.nextID
	s.samples[dataset] = append(s.samples[dataset], sample)
	return sample.ID, nil
}

func (s *memTrainingStore) List(ctx context.Context, dataset training.Dataset, limit, offset int) ([]*domain.TrainingSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples[dataset], nil
}

func (s *memTrainingStore) Count(ctx context.Context, dataset training.Dataset) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.samples[dataset])), nil
}

func (s *memTrainingStore) Delete(ctx context.Context, dataset training.Dataset, id int64) error {
	return nil
}

func (s *memTrainingStore) ExportJSON(ctx context.Context, dataset training.Dataset, writer io.Writer) error {
	return nil
}

func (s *memTrainingStore) ImportJSON(ctx context.Context, dataset training.Dataset, reader io.Reader) (int, int, error) {
	return 0, 0, nil
}

func (s *memTrainingStore) Close() error { return nil }

func (s *memTrainingStore) only(t *testing.T, dataset training.Dataset) *domain.TrainingSample {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.samples[dataset], 1)
	return s.samples[dataset][0]
}

// capturePublisher records published feedback events.
type capturePublisher struct {
	mu     sync.Mutex
	events []domain.FeedbackEvent
}

func (p *capturePublisher) PublishFeedback(event domain.FeedbackEvent) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

type feedbackFixture struct {
	predictions *memPredictionStore
	feedback    *memFeedbackStore
	outcomes    *memOutcomeStore
	training    *memTrainingStore
	publisher   *capturePublisher
	service     *FeedbackService
}

func newFeedbackFixture() *feedbackFixture {
	f := &feedbackFixture{
		predictions: newMemPredictionStore(),
		feedback:    &memFeedbackStore{},
		outcomes:    &memOutcomeStore{},
		training:    newMemTrainingStore(),
		publisher:   &capturePublisher{},
	}
	f.service = NewFeedbackService(f.predictions, f.feedback, f.outcomes, f.training, f.publisher, testLogger())
	return f
}

func (f *feedbackFixture) seedPrediction(id int64) *domain.PredictionRecord {
	temp := 38.5
	record := &domain.PredictionRecord{
		ID:        id,
		PatientID: "patient-1",
		PatientSnapshot: domain.PatientSnapshot{
			Age:               44,
			Sex:               domain.SexMale,
			VitalTemperatureC: &temp,
			SymptomList:       []string{"fever", "productive cough"},
			ChiefComplaint:    "cough and fever",
		},
		Predictions: domain.RankedPredictions{
			{DiseaseID: 27, ICD10Code: "J18.9", Diagnosis: "Pneumonia, unspecified organism", Confidence: 0.82},
			{ICD10Code: "J40", Diagnosis: "Bronchitis, not specified as acute or chronic", Confidence: 0.68},
		},
		ModelVersion: "v1.0",
	}
	f.predictions.records[id] = record
	return record
}

func feedbackFor(predictionID int64, accurate bool, confidence float64) *domain.DoctorFeedback {
	return &domain.DoctorFeedback{
		PredictionID:         predictionID,
		DoctorID:             "dr-house",
		PredictionAccurate:   &accurate,
		ConfidenceInFeedback: &confidence,
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestFeedbackService_SubmitFeedback_AccurateHighConfidence(t *testing.T) {
	f := newFeedbackFixture()
	prediction := f.seedPrediction(1)

	submission := feedbackFor(1, true, 0.9)
	submission.OrderedTests = []string{"Chest X-ray (PA/AP)", "Complete Blood Count (CBC)"}
	submission.PrescribedMedications = []string{"Amoxicillin-clavulanate"}

	response, err := f.service.SubmitFeedback(context.Background(), submission)
	require.NoError(t, err)

	assert.Equal(t, "Feedback submitted successfully", response.Message)
	assert.Equal(t, int64(1), response.FeedbackID)
	assert.True(t, response.TrainingDataAdded)
	require.NotNil(t, response.TrainingRecordID)
	assert.Equal(t, int64(1), response.TotalFeedbackForPrediction)
	assert.InDelta(t, 1.0, response.PredictionAccuracyRate, 1e-9)

	sample := f.training.only(t, training.DatasetTraining)
	assert.Equal(t, *response.TrainingRecordID, sample.ID)
	// Accurate feedback confirms the stored top-ranked diagnosis.
	assert.Equal(t, int64(27), sample.TargetDisease)
	assert.Equal(t, "Pneumonia, unspecified organism", sample.ConditionName)
	assert.Equal(t, submission.OrderedTests, sample.TargetTests)
	assert.Equal(t, submission.PrescribedMedications, sample.TargetMedications)
	assert.Equal(t, domain.ProvenanceClinicalFeedback, sample.DataSource)
	assert.InDelta(t, 0.95, sample.QualityScore, 1e-9)
	assert.True(t, sample.IsValidated)
	assert.Equal(t, "dr-house", sample.CreatedBy)
	// The sample carries the prediction's input snapshot verbatim.
	assert.Equal(t, prediction.PatientSnapshot, sample.PatientSnapshot)
}

func TestFeedbackService_SubmitFeedback_QualityScoreFromConfidence(t *testing.T) {
	tests := []struct {
		confidence float64
		want       float64
	}{
		{0.80, 0.90},
		{0.85, 0.95},
		{0.90, 0.95},
		{1.00, 0.95},
	}

	for _, tt := range tests {
		f := newFeedbackFixture()
		f.seedPrediction(1)

		_, err := f.service.SubmitFeedback(context.Background(), feedbackFor(1, true, tt.confidence))
		require.NoError(t, err)

		sample := f.training.only(t, training.DatasetTraining)
		assert.InDeltaf(t, tt.want, sample.QualityScore, 1e-9, "confidence %.2f", tt.confidence)
	}
}

func TestFeedbackService_SubmitFeedback_BelowThresholdSkipsTraining(t *testing.T) {
	f := newFeedbackFixture()
	f.seedPrediction(1)

	response, err := f.service.SubmitFeedback(context.Background(), feedbackFor(1, true, 0.79))
	require.NoError(t, err)

	assert.False(t, response.TrainingDataAdded)
	assert.Nil(t, response.TrainingRecordID)
	count, err := f.training.Count(context.Background(), training.DatasetTraining)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestFeedbackService_SubmitFeedback_InaccurateUsesCorrectedDiagnosis(t *testing.T) {
	f := newFeedbackFixture()
	f.seedPrediction(1)

	submission := feedbackFor(1, false, 0.9)
	submission.ActualDiseaseID = int64Ptr(9)
	submission.ActualConditionName = "Influenza due to identified seasonal virus"

	response, err := f.service.SubmitFeedback(context.Background(), submission)
	require.NoError(t, err)
	assert.True(t, response.TrainingDataAdded)

	sample := f.training.only(t, training.DatasetTraining)
	assert.Equal(t, int64(9), sample.TargetDisease)
	assert.Equal(t, "Influenza due to identified seasonal virus", sample.ConditionName)
}

func TestFeedbackService_SubmitFeedback_RequiresCorrectionWhenInaccurate(t *testing.T) {
	f := newFeedbackFixture()
	f.seedPrediction(1)

	_, err := f.service.SubmitFeedback(context.Background(), feedbackFor(1, false, 0.9))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "actual_disease_id", validationErr.Field)
}

func TestFeedbackService_SubmitFeedback_UnknownPrediction(t *testing.T) {
	f := newFeedbackFixture()

	_, err := f.service.SubmitFeedback(context.Background(), feedbackFor(99, true, 0.9))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, "Prediction with ID 99 not found")
}

func TestFeedbackService_SubmitFeedback_EmptyRankedListAccurate(t *testing.T) {
	f := newFeedbackFixture()
	record := f.seedPrediction(1)
	record.Predictions = nil

	response, err := f.service.SubmitFeedback(context.Background(), feedbackFor(1, true, 0.95))
	require.NoError(t, err)

	// With no stored diagnosis to confirm, the submission is kept but no
	// sample is derived.
	assert.False(t, response.TrainingDataAdded)
	assert.Equal(t, int64(1), response.TotalFeedbackForPrediction)
}

func TestFeedbackService_SubmitFeedback_TrainingFailureDegrades(t *testing.T) {
	f := newFeedbackFixture()
	f.seedPrediction(1)
	f.training.insertErr = errors.New("disk full")

	response, err := f.service.SubmitFeedback(context.Background(), feedbackFor(1, true, 0.9))
	require.NoError(t, err)

	assert.False(t, response.TrainingDataAdded)
	assert.Nil(t, response.TrainingRecordID)
	// The feedback row itself is still stored.
	assert.Equal(t, int64(1), response.TotalFeedbackForPrediction)
}

func TestFeedbackService_SubmitFeedback_AccuracyRecomputedPerSubmission(t *testing.T) {
	f := newFeedbackFixture()
	f.seedPrediction(1)

	first, err := f.service.SubmitFeedback(context.Background(), feedbackFor(1, true, 0.9))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.TotalFeedbackForPrediction)
	assert.InDelta(t, 1.0, first.PredictionAccuracyRate, 1e-9)

	disagreement := feedbackFor(1, false, 0.85)
	disagreement.ActualDiseaseID = int64Ptr(9)
	disagreement.ActualConditionName = "Influenza"

	second, err := f.service.SubmitFeedback(context.Background(), disagreement)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.TotalFeedbackForPrediction)
	assert.InDelta(t, 0.5, second.PredictionAccuracyRate, 1e-9)
}

func TestFeedbackService_SubmitFeedback_PublishesEvent(t *testing.T) {
	f := newFeedbackFixture()
	f.seedPrediction(1)

	_, err := f.service.SubmitFeedback(context.Background(), feedbackFor(1, true, 0.9))
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, int64(1), event.FeedbackID)
	assert.Equal(t, int64(1), event.PredictionID)
	assert.True(t, event.Accurate)
	assert.InDelta(t, 0.9, event.Confidence, 1e-9)
	assert.True(t, event.TrainingDataAdded)
	assert.False(t, event.At.IsZero())
}

func TestFeedbackService_SubmitFeedback_TimestampDefaulted(t *testing.T) {
	f := newFeedbackFixture()
	f.seedPrediction(1)

	_, err := f.service.SubmitFeedback(context.Background(), feedbackFor(1, true, 0.5))
	require.NoError(t, err)
	require.Len(t, f.feedback.records, 1)
	assert.WithinDuration(t, time.Now(), f.feedback.records[0].FeedbackTimestamp, time.Minute)

	explicit := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	submission := feedbackFor(1, true, 0.5)
	submission.FeedbackTimestamp = &explicit

	_, err = f.service.SubmitFeedback(context.Background(), submission)
	require.NoError(t, err)
	require.Len(t, f.feedback.records, 2)
	assert.Equal(t, explicit, f.feedback.records[1].FeedbackTimestamp)
}

func TestFeedbackService_ListFeedback(t *testing.T) {
	f := newFeedbackFixture()
	f.seedPrediction(1)

	records, err := f.service.ListFeedback(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	_, err = f.service.SubmitFeedback(context.Background(), feedbackFor(1, true, 0.9))
	require.NoError(t, err)

	records, err = f.service.ListFeedback(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFeedbackService_ListFeedback_InvalidID(t *testing.T) {
	f := newFeedbackFixture()

	_, err := f.service.ListFeedback(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func summaryRecord(predictionID int64, accurate bool, confidence float64, actual string) *domain.FeedbackRecord {
	record := &domain.FeedbackRecord{
		PredictionID:         predictionID,
		DoctorID:             "dr-house",
		PredictionAccurate:   accurate,
		ConfidenceInFeedback: confidence,
		ActualConditionName:  actual,
	}
	return record
}

func TestFeedbackService_Summary(t *testing.T) {
	tests := []struct {
		name           string
		records        []*domain.FeedbackRecord
		wantAccuracy   float64
		wantConsensus  bool
		wantConfidence float64
		wantMostCommon *string
	}{
		{
			name: "Split pool without consensus",
			records: []*domain.FeedbackRecord{
				summaryRecord(1, true, 0.9, ""),
				summaryRecord(1, true, 0.8, ""),
				summaryRecord(1, true, 0.7, ""),
				summaryRecord(1, false, 0.9, "Influenza"),
				summaryRecord(1, false, 0.85, "Influenza"),
			},
			wantAccuracy:   0.6,
			wantConsensus:  false,
			wantConfidence: 0.83,
			wantMostCommon: strPtr("Influenza"),
		},
		{
			name: "Positive consensus at the threshold",
			records: []*domain.FeedbackRecord{
				summaryRecord(1, true, 0.9, ""),
				summaryRecord(1, true, 0.9, ""),
				summaryRecord(1, true, 0.9, ""),
				summaryRecord(1, true, 0.9, ""),
				summaryRecord(1, false, 0.9, "Influenza"),
			},
			wantAccuracy:   0.8,
			wantConsensus:  true,
			wantConfidence: 0.9,
			wantMostCommon: strPtr("Influenza"),
		},
		{
			name: "Negative consensus when all disagree",
			records: []*domain.FeedbackRecord{
				summaryRecord(1, false, 0.9, "Influenza"),
				summaryRecord(1, false, 0.8, "Influenza"),
			},
			wantAccuracy:   0.0,
			wantConsensus:  true,
			wantConfidence: 0.85,
			wantMostCommon: strPtr("Influenza"),
		},
		{
			name: "Tie resolves to first reaching the count",
			records: []*domain.FeedbackRecord{
				summaryRecord(1, false, 0.9, "Influenza"),
				summaryRecord(1, false, 0.9, "Rhinovirus infection"),
			},
			wantAccuracy:   0.0,
			wantConsensus:  true,
			wantConfidence: 0.9,
			wantMostCommon: strPtr("Influenza"),
		},
		{
			name: "All accurate leaves no corrected diagnosis",
			records: []*domain.FeedbackRecord{
				summaryRecord(1, true, 0.9, ""),
			},
			wantAccuracy:   1.0,
			wantConsensus:  true,
			wantConfidence: 0.9,
			wantMostCommon: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFeedbackFixture()
			f.feedback.records = tt.records

			summary, err := f.service.Summary(context.Background(), 1)
			require.NoError(t, err)

			assert.Equal(t, int64(1), summary.PredictionID)
			assert.Equal(t, int64(len(tt.records)), summary.TotalFeedbackCount)
			assert.InDelta(t, tt.wantAccuracy, summary.AccuracyRate, 1e-9)
			assert.Equal(t, tt.wantConsensus, summary.ConsensusReached)
			assert.InDelta(t, tt.wantConfidence, summary.AverageConfidence, 1e-9)
			if tt.wantMostCommon == nil {
				assert.Nil(t, summary.MostCommonActualDiagnosis)
			} else {
				require.NotNil(t, summary.MostCommonActualDiagnosis)
				assert.Equal(t, *tt.wantMostCommon, *summary.MostCommonActualDiagnosis)
			}
		})
	}
}

func TestFeedbackService_Summary_NoFeedback(t *testing.T) {
	f := newFeedbackFixture()

	_, err := f.service.Summary(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFeedbackService_Stats(t *testing.T) {
	f := newFeedbackFixture()
	f.feedback.stats = &domain.FeedbackStats{
		TotalFeedback:                 12,
		UniquePredictionsWithFeedback: 6,
		UniqueDoctors:                 4,
		PredictionAccuracyRate:        0.75,
		AverageDoctorConfidence:       0.81,
		FeedbackPerPrediction:         2.0,
	}

	stats, err := f.service.Stats(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.PeriodDays)
	assert.Equal(t, int64(12), stats.TotalFeedback)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -7), f.feedback.lastSince, time.Minute)

	stats, err = f.service.Stats(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 30, stats.PeriodDays)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -30), f.feedback.lastSince, time.Minute)
}

func validOutcome(predictionID int64) *domain.ClinicalOutcome {
	diagnosisID := int64(27)
	effective := true
	date := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	return &domain.ClinicalOutcome{
		PredictionID:       predictionID,
		PatientOutcome:     domain.OutcomeRecovered,
		FinalDiagnosisID:   &diagnosisID,
		FinalConditionName: "Pneumonia, unspecified organism",
		TreatmentEffective: &effective,
		ReportedBy:         "dr-house",
		OutcomeDate:        &date,
	}
}

func TestFeedbackService_RecordOutcome(t *testing.T) {
	f := newFeedbackFixture()
	f.seedPrediction(1)

	outcomeID, err := f.service.RecordOutcome(context.Background(), validOutcome(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), outcomeID)

	require.Len(t, f.outcomes.records, 1)
	stored := f.outcomes.records[0]
	assert.Equal(t, int64(27), stored.FinalDiagnosisID)
	assert.True(t, stored.TreatmentEffective)
	assert.NotNil(t, stored.SideEffects)
	assert.NotNil(t, stored.Complications)
}

func TestFeedbackService_RecordOutcome_UnknownPrediction(t *testing.T) {
	f := newFeedbackFixture()

	_, err := f.service.RecordOutcome(context.Background(), validOutcome(5))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFeedbackService_RecordOutcome_Validation(t *testing.T) {
	f := newFeedbackFixture()
	f.seedPrediction(1)

	outcome := validOutcome(1)
	outcome.TreatmentEffective = nil

	_, err := f.service.RecordOutcome(context.Background(), outcome)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func validTrainingRequest() *domain.TrainingDataRequest {
	temp := 38.2
	heartRate := 92
	return &domain.TrainingDataRequest{
		Age:                51,
		Sex:                domain.SexFemale,
		VitalTemperatureC:  &temp,
		VitalHeartRate:     &heartRate,
		SymptomList:        []string{"Fever", "chills", "fever"},
		ConfirmedDiseaseID: 14,
		ConfirmedCondition: "Influenza due to identified seasonal virus",
		OrderedTests:       []string{"Influenza A/B antigen"},
		CreatedBy:          "dr-wilson",
	}
}

func TestFeedbackService_AddTrainingData_Defaults(t *testing.T) {
	f := newFeedbackFixture()

	result, err := f.service.AddTrainingData(context.Background(), validTrainingRequest())
	require.NoError(t, err)
	assert.Equal(t, training.DatasetTraining, result.Dataset)
	assert.Equal(t, "Influenza due to identified seasonal virus", result.Condition)

	sample := f.training.only(t, training.DatasetTraining)
	assert.Equal(t, result.RecordID, sample.ID)
	assert.Equal(t, int64(14), sample.TargetDisease)
	assert.Equal(t, domain.ProvenanceManual, sample.DataSource)
	assert.InDelta(t, 0.95, sample.QualityScore, 1e-9)
	assert.True(t, sample.IsValidated)
	assert.Equal(t, "dr-wilson", sample.CreatedBy)
	// Input lists are normalized like prediction requests.
	assert.Equal(t, []string{"fever", "chills"}, sample.SymptomList)
}

func TestFeedbackService_AddTrainingData_ExplicitFields(t *testing.T) {
	f := newFeedbackFixture()

	quality := 0.6
	validated := false
	request := validTrainingRequest()
	request.DataSource = domain.ProvenanceMigrated
	request.QualityScore = &quality
	request.IsValidated = &validated
	request.AddToValidationSet = true

	result, err := f.service.AddTrainingData(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, training.DatasetValidation, result.Dataset)

	sample := f.training.only(t, training.DatasetValidation)
	assert.Equal(t, domain.ProvenanceMigrated, sample.DataSource)
	assert.InDelta(t, 0.6, sample.QualityScore, 1e-9)
	assert.False(t, sample.IsValidated)
}

func TestFeedbackService_AddTrainingData_Validation(t *testing.T) {
	f := newFeedbackFixture()

	request := validTrainingRequest()
	request.Age = 200

	_, err := f.service.AddTrainingData(context.Background(), request)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFeedbackService_AddTrainingData_WithoutStore(t *testing.T) {
	service := NewFeedbackService(newMemPredictionStore(), &memFeedbackStore{}, &memOutcomeStore{}, nil, nil, testLogger())

	_, err := service.AddTrainingData(context.Background(), validTrainingRequest())
	assert.ErrorIs(t, err, domain.ErrStoreClosed)
}

func strPtr(s string) *string { return &s }
