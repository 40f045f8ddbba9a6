package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
)

// FeedbackRepository handles doctor feedback persistence
type FeedbackRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *pgxpool.Pool, logger *logrus.Logger) *FeedbackRepository {
	return &FeedbackRepository{
		db:  db,
		log: logger,
	}
}

// Insert stores a new feedback record and returns its generated ID
func (r *FeedbackRepository) Insert(ctx context.Context, record *domain.FeedbackRecord) (int64, error) {
	orderedTestsJSON, err := json.Marshal(record.OrderedTests)
	if err != nil {
		return 0, fmt.Errorf("marshaling ordered tests: %w", err)
	}
	prescribedJSON, err := json.Marshal(record.PrescribedMedications)
	if err != nil {
		return 0, fmt.Errorf("marshaling prescribed medications: %w", err)
	}

	query := `
		INSERT INTO clinical_feedback (
			prediction_id, doctor_id, doctor_name, hospital_unit,
			prediction_accurate, confidence_in_feedback,
			actual_disease_id, actual_condition_name,
			ordered_tests, prescribed_medications,
			clinical_notes, outcome_notes, feedback_timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING id, created_at`

	err = r.db.QueryRow(ctx, query,
		record.PredictionID,
		record.DoctorID,
		record.DoctorName,
		record.HospitalUnit,
		record.PredictionAccurate,
		record.ConfidenceInFeedback,
		record.ActualDiseaseID,
		record.ActualConditionName,
		orderedTestsJSON,
		prescribedJSON,
		record.ClinicalNotes,
		record.OutcomeNotes,
		record.FeedbackTimestamp,
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"prediction_id": record.PredictionID,
			"doctor_id":     record.DoctorID,
			"error":         err,
		}).Error("Failed to insert feedback")
		return 0, fmt.Errorf("inserting feedback: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"feedback_id":   record.ID,
		"prediction_id": record.PredictionID,
		"doctor_id":     record.DoctorID,
		"accurate":      record.PredictionAccurate,
	}).Info("Feedback inserted successfully")

	return record.ID, nil
}

// ListByPrediction retrieves all feedback for a prediction in submission order
func (r *FeedbackRepository) ListByPrediction(ctx context.Context, predictionID int64) ([]*domain.FeedbackRecord, error) {
	query := `
		SELECT id, prediction_id, doctor_id, doctor_name, hospital_unit,
			   prediction_accurate, confidence_in_feedback,
			   actual_disease_id, actual_condition_name,
			   ordered_tests, prescribed_medications,
			   clinical_notes, outcome_notes, feedback_timestamp, created_at
		FROM clinical_feedback
		WHERE prediction_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, predictionID)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"prediction_id": predictionID,
			"error":         err,
		}).Error("Failed to list feedback by prediction")
		return nil, fmt.Errorf("listing feedback by prediction: %w", err)
	}
	defer rows.Close()

	var records []*domain.FeedbackRecord
	for rows.Next() {
		var record domain.FeedbackRecord
		var orderedTestsJSON, prescribedJSON []byte

		err := rows.Scan(
			&record.ID,
			&record.PredictionID,
			&record.DoctorID,
			&record.DoctorName,
			&record.HospitalUnit,
			&record.PredictionAccurate,
			&record.ConfidenceInFeedback,
			&record.ActualDiseaseID,
			&record.ActualConditionName,
			&orderedTestsJSON,
			&prescribedJSON,
			&record.ClinicalNotes,
			&record.OutcomeNotes,
			&record.FeedbackTimestamp,
			&record.CreatedAt,
		)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"prediction_id": predictionID,
				"error":         err,
			}).Error("Failed to scan feedback row")
			return nil, fmt.Errorf("scanning feedback row: %w", err)
		}

		if err := json.Unmarshal(orderedTestsJSON, &record.OrderedTests); err != nil {
			return nil, fmt.Errorf("unmarshaling ordered tests: %w", err)
		}
		if err := json.Unmarshal(prescribedJSON, &record.PrescribedMedications); err != nil {
			return nil, fmt.Errorf("unmarshaling prescribed medications: %w", err)
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback rows: %w", err)
	}

	return records, nil
}

// CountsByPrediction returns the total and accurate feedback counts for a
// prediction. Accuracy is always recomputed from these counts rather than
// kept as a running tally.
func (r *FeedbackRepository) CountsByPrediction(ctx context.Context, predictionID int64) (total, accurate int64, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE prediction_accurate)
		FROM clinical_feedback
		WHERE prediction_id = $1`

	err = r.db.QueryRow(ctx, query, predictionID).Scan(&total, &accurate)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"prediction_id": predictionID,
			"error":         err,
		}).Error("Failed to count feedback by prediction")
		return 0, 0, fmt.Errorf("counting feedback by prediction: %w", err)
	}

	return total, accurate, nil
}

// StatsSince aggregates feedback activity from the given instant onward.
// PeriodDays is left for the caller to fill in.
func (r *FeedbackRepository) StatsSince(ctx context.Context, since time.Time) (*domain.FeedbackStats, error) {
	query := `
		SELECT COUNT(*),
			   COUNT(DISTINCT prediction_id),
			   COUNT(DISTINCT doctor_id),
			   COALESCE(AVG(CASE WHEN prediction_accurate THEN 1.0 ELSE 0.0 END), 0),
			   COALESCE(AVG(confidence_in_feedback), 0)
		FROM clinical_feedback
		WHERE created_at >= $1`

	stats := &domain.FeedbackStats{}
	err := r.db.QueryRow(ctx, query, since).Scan(
		&stats.TotalFeedback,
		&stats.UniquePredictionsWithFeedback,
		&stats.UniqueDoctors,
		&stats.PredictionAccuracyRate,
		&stats.AverageDoctorConfidence,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"since": since,
			"error": err,
		}).Error("Failed to aggregate feedback stats")
		return nil, fmt.Errorf("aggregating feedback stats: %w", err)
	}

	if stats.UniquePredictionsWithFeedback > 0 {
		stats.FeedbackPerPrediction = float64(stats.TotalFeedback) / float64(stats.UniquePredictionsWithFeedback)
	}

	return stats, nil
}
