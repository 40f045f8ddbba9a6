// Package repository provides PostgreSQL persistence for predictions,
// feedback, outcomes, and the reference catalogs.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
)

// PredictionRepository handles prediction record persistence
type PredictionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *pgxpool.Pool, logger *logrus.Logger) *PredictionRepository {
	return &PredictionRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new prediction record. The record id is assigned by the
// caller before the insert so the API response can carry it while this
// write completes in the background.
func (r *PredictionRepository) Create(ctx context.Context, record *domain.PredictionRecord) (int64, error) {
	// Marshal JSONB fields
	symptomsJSON, err := json.Marshal(record.SymptomList)
	if err != nil {
		return 0, fmt.Errorf("marshaling symptom list: %w", err)
	}
	pmhJSON, err := json.Marshal(record.PMHList)
	if err != nil {
		return 0, fmt.Errorf("marshaling pmh list: %w", err)
	}
	medsJSON, err := json.Marshal(record.CurrentMedications)
	if err != nil {
		return 0, fmt.Errorf("marshaling current medications: %w", err)
	}
	allergiesJSON, err := json.Marshal(record.Allergies)
	if err != nil {
		return 0, fmt.Errorf("marshaling allergies: %w", err)
	}
	predictionsJSON, err := json.Marshal(record.Predictions)
	if err != nil {
		return 0, fmt.Errorf("marshaling predictions: %w", err)
	}

	query := `
		INSERT INTO predictions (
			id, patient_id, age, sex, vital_temperature_c, vital_heart_rate,
			vital_blood_pressure_systolic, vital_blood_pressure_diastolic,
			symptom_list, pmh_list, current_medications, allergies,
			chief_complaint, free_text_notes, predictions,
			model_version, confidence_threshold, processing_time_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)`

	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.PatientID,
		record.Age,
		record.Sex,
		record.VitalTemperatureC,
		record.VitalHeartRate,
		record.VitalBPSystolic,
		record.VitalBPDiastolic,
		symptomsJSON,
		pmhJSON,
		medsJSON,
		allergiesJSON,
		record.ChiefComplaint,
		record.FreeTextNotes,
		predictionsJSON,
		record.ModelVersion,
		record.ConfidenceThreshold,
		record.ProcessingTimeMS,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"prediction_id": record.ID,
			"patient_id":    record.PatientID,
			"error":         err,
		}).Error("Failed to create prediction record")
		return 0, fmt.Errorf("creating prediction record: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"prediction_id": record.ID,
		"patient_id":    record.PatientID,
		"predictions":   len(record.Predictions),
		"model_version": record.ModelVersion,
	}).Info("Prediction record created successfully")

	return record.ID, nil
}

// Get retrieves a prediction record by its ID
func (r *PredictionRepository) Get(ctx context.Context, id int64) (*domain.PredictionRecord, error) {
	query := `
		SELECT id, patient_id, age, sex, vital_temperature_c, vital_heart_rate,
			   vital_blood_pressure_systolic, vital_blood_pressure_diastolic,
			   symptom_list, pmh_list, current_medications, allergies,
			   chief_complaint, free_text_notes, predictions,
			   model_version, confidence_threshold, processing_time_ms, created_at
		FROM predictions
		WHERE id = $1`

	record, err := scanPredictionRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("Prediction", id)
		}
		r.log.WithFields(logrus.Fields{
			"prediction_id": id,
			"error":         err,
		}).Error("Failed to get prediction by ID")
		return nil, fmt.Errorf("getting prediction by ID: %w", err)
	}

	return record, nil
}

// HistoryByPatient retrieves the most recent predictions for a patient
func (r *PredictionRepository) HistoryByPatient(ctx context.Context, patientID string, limit int) ([]*domain.PredictionRecord, error) {
	query := `
		SELECT id, patient_id, age, sex, vital_temperature_c, vital_heart_rate,
			   vital_blood_pressure_systolic, vital_blood_pressure_diastolic,
			   symptom_list, pmh_list, current_medications, allergies,
			   chief_complaint, free_text_notes, predictions,
			   model_version, confidence_threshold, processing_time_ms, created_at
		FROM predictions
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, patientID, limit)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to get predictions by patient")
		return nil, fmt.Errorf("getting predictions by patient: %w", err)
	}
	defer rows.Close()

	var records []*domain.PredictionRecord
	for rows.Next() {
		record, err := scanPredictionRow(rows)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"patient_id": patientID,
				"error":      err,
			}).Error("Failed to scan prediction row")
			return nil, fmt.Errorf("scanning prediction row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prediction rows: %w", err)
	}

	return records, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPredictionRow(row rowScanner) (*domain.PredictionRecord, error) {
	var record domain.PredictionRecord
	var symptomsJSON, pmhJSON, medsJSON, allergiesJSON, predictionsJSON []byte

	err := row.Scan(
		&record.ID,
		&record.PatientID,
		&record.Age,
		&record.Sex,
		&record.VitalTemperatureC,
		&record.VitalHeartRate,
		&record.VitalBPSystolic,
		&record.VitalBPDiastolic,
		&symptomsJSON,
		&pmhJSON,
		&medsJSON,
		&allergiesJSON,
		&record.ChiefComplaint,
		&record.FreeTextNotes,
		&predictionsJSON,
		&record.ModelVersion,
		&record.ConfidenceThreshold,
		&record.ProcessingTimeMS,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Unmarshal JSONB fields
	if err := json.Unmarshal(symptomsJSON, &record.SymptomList); err != nil {
		return nil, fmt.Errorf("unmarshaling symptom list: %w", err)
	}
	if err := json.Unmarshal(pmhJSON, &record.PMHList); err != nil {
		return nil, fmt.Errorf("unmarshaling pmh list: %w", err)
	}
	if err := json.Unmarshal(medsJSON, &record.CurrentMedications); err != nil {
		return nil, fmt.Errorf("unmarshaling current medications: %w", err)
	}
	if err := json.Unmarshal(allergiesJSON, &record.Allergies); err != nil {
		return nil, fmt.Errorf("unmarshaling allergies: %w", err)
	}
	if err := json.Unmarshal(predictionsJSON, &record.Predictions); err != nil {
		return nil, fmt.Errorf("unmarshaling predictions: %w", err)
	}

	return &record, nil
}
