package training

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pdpcds-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite. It backs the
// standalone server where no PostgreSQL instance is available.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite training store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Create schema
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the sample tables and indexes. Training and
// validation samples share one column layout.
func createSchema(db *sql.DB) error {
	for _, table := range []string{"training_data", "validation_data"} {
		schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			age INTEGER NOT NULL,
			sex TEXT NOT NULL,
			vital_temperature_c REAL NOT NULL,
			vital_heart_rate INTEGER NOT NULL,
			vital_blood_pressure_systolic INTEGER,
			vital_blood_pressure_diastolic INTEGER,
			symptom_list TEXT NOT NULL,
			pmh_list TEXT NOT NULL DEFAULT '[]',
			current_medications TEXT NOT NULL DEFAULT '[]',
			allergies TEXT NOT NULL DEFAULT '[]',
			chief_complaint TEXT DEFAULT '',
			free_text_notes TEXT DEFAULT '',
			target_disease INTEGER NOT NULL,
			target_tests TEXT NOT NULL DEFAULT '[]',
			target_medications TEXT NOT NULL DEFAULT '[]',
			condition_name TEXT NOT NULL,
			data_source TEXT NOT NULL DEFAULT 'manual',
			quality_score REAL NOT NULL DEFAULT 1.0,
			is_validated INTEGER NOT NULL DEFAULT 0,
			created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_condition ON %[1]s(condition_name);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s(data_source);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s(created_at);
		`, table)

		if _, err := db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// sampleLists holds the JSON-encoded list columns of one sample.
type sampleLists struct {
	symptoms    []byte
	pmh         []byte
	medications []byte
	allergies   []byte
	targetTests []byte
	targetMeds  []byte
}

// encodeLists marshals the list fields for storage. Nil lists persist
// as empty JSON arrays to match the column defaults.
func encodeLists(sample *domain.TrainingSample) (*sampleLists, error) {
	lists := &sampleLists{}
	var err error
	if lists.symptoms, err = jsonList(sample.SymptomList); err != nil {
		return nil, fmt.Errorf("failed to marshal symptom list: %w", err)
	}
	if lists.pmh, err = jsonList(sample.PMHList); err != nil {
		return nil, fmt.Errorf("failed to marshal pmh list: %w", err)
	}
	if lists.medications, err = jsonList(sample.CurrentMedications); err != nil {
		return nil, fmt.Errorf("failed to marshal current medications: %w", err)
	}
	if lists.allergies, err = jsonList(sample.Allergies); err != nil {
		return nil, fmt.Errorf("failed to marshal allergies: %w", err)
	}
	if lists.targetTests, err = jsonList(sample.TargetTests); err != nil {
		return nil, fmt.Errorf("failed to marshal target tests: %w", err)
	}
	if lists.targetMeds, err = jsonList(sample.TargetMedications); err != nil {
		return nil, fmt.Errorf("failed to marshal target medications: %w", err)
	}
	return lists, nil
}

func jsonList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

// scanSample scans a row into a TrainingSample.
func scanSample(s scanner) (*domain.TrainingSample, error) {
	sample := &domain.TrainingSample{}
	var symptoms, pmh, medications, allergies, targetTests, targetMeds []byte

	err := s.Scan(
		&sample.ID, &sample.Age, &sample.Sex,
		&sample.VitalTemperatureC, &sample.VitalHeartRate,
		&sample.VitalBPSystolic, &sample.VitalBPDiastolic,
		&symptoms, &pmh, &medications, &allergies,
		&sample.ChiefComplaint, &sample.FreeTextNotes,
		&sample.TargetDisease, &targetTests, &targetMeds,
		&sample.ConditionName, &sample.DataSource, &sample.QualityScore,
		&sample.IsValidated, &sample.CreatedBy, &sample.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(symptoms, &sample.SymptomList); err != nil {
		return nil, fmt.Errorf("failed to unmarshal symptom list: %w", err)
	}
	if err := json.Unmarshal(pmh, &sample.PMHList); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pmh list: %w", err)
	}
	if err := json.Unmarshal(medications, &sample.CurrentMedications); err != nil {
		return nil, fmt.Errorf("failed to unmarshal current medications: %w", err)
	}
	if err := json.Unmarshal(allergies, &sample.Allergies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allergies: %w", err)
	}
	if err := json.Unmarshal(targetTests, &sample.TargetTests); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target tests: %w", err)
	}
	if err := json.Unmarshal(targetMeds, &sample.TargetMedications); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target medications: %w", err)
	}
	return sample, nil
}

const sampleColumns = `id, age, sex, vital_temperature_c, vital_heart_rate,
		vital_blood_pressure_systolic, vital_blood_pressure_diastolic,
		symptom_list, pmh_list, current_medications, allergies,
		chief_complaint, free_text_notes,
		target_disease, target_tests, target_medications,
		condition_name, data_source, quality_score, is_validated,
		created_by, created_at`

// Insert appends a sample to the dataset.
func (s *SQLiteStore) Insert(ctx context.Context, dataset Dataset, sample *domain.TrainingSample) (int64, error) {
	table, err := dataset.Table()
	if err != nil {
		return 0, err
	}

	lists, err := encodeLists(sample)
	if err != nil {
		return 0, err
	}

	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			age, sex, vital_temperature_c, vital_heart_rate,
			vital_blood_pressure_systolic, vital_blood_pressure_diastolic,
			symptom_list, pmh_list, current_medications, allergies,
			chief_complaint, free_text_notes,
			target_disease, target_tests, target_medications,
			condition_name, data_source, quality_score, is_validated,
			created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, table),
		sample.Age,
		string(sample.Sex),
		sample.VitalTemperatureC,
		sample.VitalHeartRate,
		sample.VitalBPSystolic,
		sample.VitalBPDiastolic,
		lists.symptoms,
		lists.pmh,
		lists.medications,
		lists.allergies,
		sample.ChiefComplaint,
		sample.FreeTextNotes,
		sample.TargetDisease,
		lists.targetTests,
		lists.targetMeds,
		sample.ConditionName,
		string(sample.DataSource),
		sample.QualityScore,
		sample.IsValidated,
		sample.CreatedBy,
		sample.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert ID: %w", err)
	}
	sample.ID = id

	return id, nil
}

// List returns samples newest-first with pagination.
func (s *SQLiteStore) List(ctx context.Context, dataset Dataset, limit, offset int) ([]*domain.TrainingSample, error) {
	table, err := dataset.Table()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, sampleColumns, table), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*domain.TrainingSample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, sample)
	}
	return result, rows.Err()
}

// Count returns the total number of samples in the dataset.
func (s *SQLiteStore) Count(ctx context.Context, dataset Dataset) (int64, error) {
	table, err := dataset.Table()
	if err != nil {
		return 0, err
	}

	var count int64
	err = s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	return count, err
}

// Delete removes a sample by ID.
func (s *SQLiteStore) Delete(ctx context.Context, dataset Dataset, id int64) error {
	table, err := dataset.Table()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all samples in the dataset to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, dataset Dataset, writer io.Writer) error {
	all, err := s.List(ctx, dataset, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list samples: %w", err)
	}

	export := &TrainingExport{
		Version:    "1.0",
		Dataset:    dataset,
		ExportedAt: time.Now(),
		Count:      len(all),
		Samples:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports samples from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, dataset Dataset, reader io.Reader) (imported int, skipped int, err error) {
	table, err := dataset.Table()
	if err != nil {
		return 0, 0, err
	}

	var export TrainingExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, sample := range export.Samples {
		// Check if exists
		exists, err := s.sampleExists(ctx, table, sample)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if exists {
			skipped++
			continue
		}

		// Import
		if _, err := s.Insert(ctx, dataset, sample); err != nil {
			return imported, skipped, fmt.Errorf("failed to insert: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// sampleExists reports whether a row with the same target, condition
// name and creation timestamp is already stored. Samples without a
// creation timestamp are never considered duplicates.
func (s *SQLiteStore) sampleExists(ctx context.Context, table string, sample *domain.TrainingSample) (bool, error) {
	if sample.CreatedAt.IsZero() {
		return false, nil
	}

	var id int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id FROM %s
		WHERE target_disease = ? AND condition_name = ? AND created_at = ?
		LIMIT 1
	`, table), sample.TargetDisease, sample.ConditionName, sample.CreatedAt).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
