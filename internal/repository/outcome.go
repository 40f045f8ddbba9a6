package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
)

// OutcomeRepository handles clinical outcome persistence
type OutcomeRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewOutcomeRepository creates a new outcome repository
func NewOutcomeRepository(db *pgxpool.Pool, logger *logrus.Logger) *OutcomeRepository {
	return &OutcomeRepository{
		db:  db,
		log: logger,
	}
}

// Insert stores a new clinical outcome and returns its generated ID
func (r *OutcomeRepository) Insert(ctx context.Context, record *domain.OutcomeRecord) (int64, error) {
	sideEffectsJSON, err := json.Marshal(record.SideEffects)
	if err != nil {
		return 0, fmt.Errorf("marshaling side effects: %w", err)
	}
	complicationsJSON, err := json.Marshal(record.Complications)
	if err != nil {
		return 0, fmt.Errorf("marshaling complications: %w", err)
	}

	query := `
		INSERT INTO clinical_outcomes (
			prediction_id, patient_outcome, final_diagnosis_id, final_condition_name,
			treatment_effective, side_effects, diagnosis_confirmation_days,
			treatment_duration_days, readmission_required, complications,
			reported_by, outcome_date
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING id, created_at`

	err = r.db.QueryRow(ctx, query,
		record.PredictionID,
		record.PatientOutcome,
		record.FinalDiagnosisID,
		record.FinalConditionName,
		record.TreatmentEffective,
		sideEffectsJSON,
		record.DiagnosisConfirmationDays,
		record.TreatmentDurationDays,
		record.ReadmissionRequired,
		complicationsJSON,
		record.ReportedBy,
		record.OutcomeDate,
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"prediction_id":   record.PredictionID,
			"patient_outcome": record.PatientOutcome,
			"error":           err,
		}).Error("Failed to insert clinical outcome")
		return 0, fmt.Errorf("inserting clinical outcome: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"outcome_id":      record.ID,
		"prediction_id":   record.PredictionID,
		"patient_outcome": record.PatientOutcome,
	}).Info("Clinical outcome inserted successfully")

	return record.ID, nil
}
