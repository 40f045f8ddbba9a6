package training

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/pdpcds-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL training store.
// It expects the database and schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL training store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Insert appends a sample to the dataset.
func (s *PostgresStore) Insert(ctx context.Context, dataset Dataset, sample *domain.TrainingSample) (int64, error) {
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

	// List columns bind as strings; lib/pq sends []byte as bytea,
	// which jsonb columns reject.
	query := fmt.Sprintf(`
		INSERT INTO %s (
			age, sex, vital_temperature_c, vital_heart_rate,
			vital_blood_pressure_systolic, vital_blood_pressure_diastolic,
			symptom_list, pmh_list, current_medications, allergies,
			chief_complaint, free_text_notes,
			target_disease, target_tests, target_medications,
			condition_name, data_source, quality_score, is_validated,
			created_by, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
		RETURNING id, created_at
	`, table)

	err = s.db.QueryRowContext(ctx, query,
		sample.Age,
		string(sample.Sex),
		sample.VitalTemperatureC,
		sample.VitalHeartRate,
		sample.VitalBPSystolic,
		sample.VitalBPDiastolic,
		string(lists.symptoms),
		string(lists.pmh),
		string(lists.medications),
		string(lists.allergies),
		sample.ChiefComplaint,
		sample.FreeTextNotes,
		sample.TargetDisease,
		string(lists.targetTests),
		string(lists.targetMeds),
		sample.ConditionName,
		string(sample.DataSource),
		sample.QualityScore,
		sample.IsValidated,
		sample.CreatedBy,
		sample.CreatedAt,
	).Scan(&sample.ID, &sample.CreatedAt)

	if err != nil {
		return 0, fmt.Errorf("failed to insert sample: %w", err)
	}

	return sample.ID, nil
}

// List returns samples newest-first with pagination.
func (s *PostgresStore) List(ctx context.Context, dataset Dataset, limit, offset int) ([]*domain.TrainingSample, error) {
	table, err := dataset.Table()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, sampleColumns, table)

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
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
func (s *PostgresStore) Count(ctx context.Context, dataset Dataset) (int64, error) {
	table, err := dataset.Table()
	if err != nil {
		return 0, err
	}

	var count int64
	err = s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count samples: %w", err)
	}
	return count, nil
}

// Delete removes a sample by ID.
func (s *PostgresStore) Delete(ctx context.Context, dataset Dataset, id int64) error {
	table, err := dataset.Table()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return fmt.Errorf("failed to delete sample: %w", err)
	}
	return nil
}

// ExportJSON exports all samples in the dataset to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, dataset Dataset, writer io.Writer) error {
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
func (s *PostgresStore) ImportJSON(ctx context.Context, dataset Dataset, reader io.Reader) (imported int, skipped int, err error) {
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
// name and creation timestamp is already stored.
func (s *PostgresStore) sampleExists(ctx context.Context, table string, sample *domain.TrainingSample) (bool, error) {
	if sample.CreatedAt.IsZero() {
		return false, nil
	}

	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE target_disease = $1 AND condition_name = $2 AND created_at = $3
		LIMIT 1
	`, table)

	var id int64
	err := s.db.QueryRowContext(ctx, query, sample.TargetDisease, sample.ConditionName, sample.CreatedAt).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
