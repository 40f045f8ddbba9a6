package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
)

const (
	// defaultPersistTimeout bounds the detached prediction write.
	defaultPersistTimeout = 10 * time.Second

	// defaultHistoryLimit caps a patient history read when the caller
	// supplies no limit.
	defaultHistoryLimit = 50

	// medicalDisclaimer accompanies every prediction response.
	medicalDisclaimer = "This is a preliminary prediction tool. Always consult with healthcare professionals for clinical decisions."
)

// clinicalWarnings returns the fixed warning set attached to every
// prediction response.
func clinicalWarnings() []string {
	return []string{
		"This is a preliminary assessment tool only",
		"Always consider patient history and clinical context",
		"Confirm diagnoses with appropriate diagnostic tests",
		"Consider contraindications before prescribing medications",
	}
}

// PredictionService orchestrates the prediction pipeline: it normalizes
// the snapshot, scores it through the configured predictor, resolves
// catalog identifiers, and hands the finished record to a detached
// persist. Store and catalog are optional so the lite deployment can run
// the same pipeline without Postgres.
type PredictionService struct {
	predictor domain.Predictor
	store     domain.PredictionStore
	catalog   domain.CatalogStore
	config    domain.PredictionConfig
	logger    *logrus.Logger

	idMu   sync.Mutex
	lastID int64
}

// NewPredictionService creates the prediction pipeline.
func NewPredictionService(
	predictor domain.Predictor,
	store domain.PredictionStore,
	catalog domain.CatalogStore,
	config domain.PredictionConfig,
	logger *logrus.Logger,
) *PredictionService {
	return &PredictionService{
		predictor: predictor,
		store:     store,
		catalog:   catalog,
		config:    config,
		logger:    logger,
	}
}

// Predict runs the full prediction workflow for one request.
//
// The response carries an identifier assigned before the record is
// durably written; the write itself runs on a background goroutine so a
// slow database never delays the clinical response. An immediate read
// of the returned id may transiently miss.
func (s *PredictionService) Predict(ctx context.Context, request *domain.PredictionRequest) (*domain.PredictionResponse, error) {
	startTime := time.Now()

	if request == nil {
		return nil, fmt.Errorf("%w: request is required", domain.ErrInvalidInput)
	}
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("invalid prediction request: %w", err)
	}

	snapshot := request.PatientSnapshot
	normalizeSnapshot(&snapshot)

	patientID := strings.TrimSpace(request.PatientID)
	if patientID == "" {
		patientID = uuid.NewString()
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":    patientID,
		"age":           snapshot.Age,
		"sex":           snapshot.Sex,
		"symptom_count": len(snapshot.SymptomList),
	}).Info("Starting disease prediction")

	// Step 1: score the normalized snapshot.
	predictions, err := s.predictor.Predict(ctx, &snapshot)
	if err != nil {
		return nil, fmt.Errorf("scoring snapshot: %w", err)
	}

	// Step 2: keep the configured number of top diagnoses.
	if max := s.maxPredictions(); len(predictions) > max {
		predictions = predictions[:max]
	}

	// Step 3: attach catalog identifiers so feedback on a confirmed
	// first diagnosis can resolve a training target later.
	s.resolveDiseaseIDs(ctx, predictions)

	predictionID := s.nextPredictionID()
	processingTime := float64(time.Since(startTime).Microseconds()) / 1000.0

	response := &domain.PredictionResponse{
		PredictionID:        predictionID,
		PatientID:           patientID,
		Predictions:         predictions,
		ModelVersion:        s.predictor.ModelVersion(),
		ProcessingTimeMS:    processingTime,
		ConfidenceThreshold: s.config.ConfidenceThreshold,
		GeneratedAt:         time.Now().UTC(),
		ClinicalWarnings:    clinicalWarnings(),
		Disclaimer:          medicalDisclaimer,
	}

	// Step 4: persist off the request path.
	s.persistAsync(&domain.PredictionRecord{
		ID:                  predictionID,
		PatientID:           patientID,
		PatientSnapshot:     snapshot,
		Predictions:         predictions,
		ModelVersion:        response.ModelVersion,
		ConfidenceThreshold: response.ConfidenceThreshold,
		ProcessingTimeMS:    processingTime,
	})

	s.logger.WithFields(logrus.Fields{
		"prediction_id":      predictionID,
		"patient_id":         patientID,
		"prediction_count":   len(predictions),
		"top_code":           topCode(predictions),
		"model_version":      response.ModelVersion,
		"processing_time_ms": processingTime,
	}).Info("Disease prediction completed")

	return response, nil
}

// History returns the stored prediction log for a patient, newest
// first. A non-positive limit selects the default.
func (s *PredictionService) History(ctx context.Context, patientID string, limit int) (*domain.PredictionHistory, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, domain.NewValidationError("patient_id", "is required", patientID)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	history := &domain.PredictionHistory{
		PatientID:   patientID,
		Predictions: []*domain.PredictionRecord{},
	}
	if s.store == nil {
		return history, nil
	}

	records, err := s.store.HistoryByPatient(ctx, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading prediction history: %w", err)
	}
	if len(records) > 0 {
		history.Predictions = records
	}
	history.PredictionCount = len(history.Predictions)

	return history, nil
}

// maxPredictions returns the configured ranked-list cap.
func (s *PredictionService) maxPredictions() int {
	if s.config.MaxPredictions > 0 {
		return s.config.MaxPredictions
	}
	return maxRuleResults
}

// nextPredictionID assigns a time-ordered identifier unique within the
// process. Identifiers are handed out before the background persist so
// the response can reference the record immediately.
func (s *PredictionService) nextPredictionID() int64 {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id := time.Now().UnixMicro()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	return id
}

// resolveDiseaseIDs attaches catalog identifiers to predictions whose
// scoring source did not supply one. A code unknown to the catalog
// keeps a zero id, which the feedback loop treats as unresolvable.
func (s *PredictionService) resolveDiseaseIDs(ctx context.Context, predictions domain.RankedPredictions) {
	if s.catalog == nil {
		return
	}

	for i := range predictions {
		if predictions[i].DiseaseID != 0 || predictions[i].ICD10Code == "" {
			continue
		}

		code, err := s.catalog.ICD10ByCode(ctx, predictions[i].ICD10Code)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"icd10_code": predictions[i].ICD10Code,
				"error":      err,
			}).Debug("Prediction code not resolvable against catalog")
			continue
		}
		predictions[i].DiseaseID = code.ID
	}
}

// persistAsync writes the prediction record on a detached goroutine.
// The write runs on context.Background with its own timeout: the
// response has already been composed, and a canceled request context
// must not lose the record. Failures are logged, never surfaced.
func (s *PredictionService) persistAsync(record *domain.PredictionRecord) {
	if s.store == nil {
		return
	}

	timeout := s.config.PersistTimeout
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if _, err := s.store.Create(ctx, record); err != nil {
			s.logger.WithFields(logrus.Fields{
				"prediction_id": record.ID,
				"patient_id":    record.PatientID,
				"error":         err,
			}).Error("Failed to persist prediction record")
			return
		}

		s.logger.WithField("prediction_id", record.ID).Debug("Prediction record persisted")
	}()
}

// topCode returns the highest-ranked ICD-10 code for logging.
func topCode(predictions domain.RankedPredictions) string {
	if first, ok := predictions.First(); ok {
		return first.ICD10Code
	}
	return ""
}
