package training

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdpcds-server/internal/domain"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	store, err := NewPostgresStore(nil)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestPostgresStore_Insert(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	store := &PostgresStore{db: db}
	ctx := context.Background()

	createdAt := time.Now().UTC().Truncate(time.Microsecond)
	mock.ExpectQuery("INSERT INTO training_data").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), createdAt))

	sample := sampleCase("Pneumonia, unspecified organism")

	id, err := store.Insert(ctx, DatasetTraining, sample)

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, int64(7), sample.ID)
	assert.Equal(t, createdAt, sample.CreatedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert_ValidationDataset(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	store := &PostgresStore{db: db}
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO validation_data").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	_, err := store.Insert(ctx, DatasetValidation, sampleCase("Headache"))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert_UnknownDataset(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	store := &PostgresStore{db: db}

	_, err := store.Insert(context.Background(), Dataset("bogus"), sampleCase("Headache"))

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "Unknown dataset must not reach the database")
}

func TestPostgresStore_List(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	store := &PostgresStore{db: db}
	ctx := context.Background()

	columns := []string{
		"id", "age", "sex", "vital_temperature_c", "vital_heart_rate",
		"vital_blood_pressure_systolic", "vital_blood_pressure_diastolic",
		"symptom_list", "pmh_list", "current_medications", "allergies",
		"chief_complaint", "free_text_notes",
		"target_disease", "target_tests", "target_medications",
		"condition_name", "data_source", "quality_score", "is_validated",
		"created_by", "created_at",
	}

	rows := sqlmock.NewRows(columns).AddRow(
		int64(3), 45, "male", 38.5, 95,
		nil, nil,
		[]byte(`["fever","cough"]`), []byte(`[]`), []byte(`[]`), []byte(`[]`),
		"fever and cough", "",
		int64(32), []byte(`["Chest X-ray (PA/AP)"]`), []byte(`["Amoxicillin-clavulanate"]`),
		"Pneumonia, unspecified organism", "clinical_feedback", 0.95, true,
		"dr_smith", time.Now(),
	)

	mock.ExpectQuery("SELECT (.+) FROM training_data").
		WithArgs(10, 0).
		WillReturnRows(rows)

	list, err := store.List(ctx, DatasetTraining, 10, 0)

	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, domain.SexMale, got.Sex)
	require.NotNil(t, got.VitalTemperatureC)
	assert.Equal(t, 38.5, *got.VitalTemperatureC)
	assert.Nil(t, got.VitalBPSystolic)
	assert.Equal(t, []string{"fever", "cough"}, got.SymptomList)
	assert.Empty(t, got.PMHList)
	assert.Equal(t, []string{"Amoxicillin-clavulanate"}, got.TargetMedications)
	assert.Equal(t, domain.ProvenanceClinicalFeedback, got.DataSource)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	store := &PostgresStore{db: db}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM validation_data`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))

	count, err := store.Count(context.Background(), DatasetValidation)

	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	store := &PostgresStore{db: db}

	mock.ExpectExec("DELETE FROM training_data").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Delete(context.Background(), DatasetTraining, 3)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportJSON_SkipsExisting(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	store := &PostgresStore{db: db}
	ctx := context.Background()

	// Round-trip an export through a fresh mock: one sample already
	// present, one new.
	exportJSON := `{
		"version": "1.0",
		"dataset": "training",
		"count": 2,
		"samples": [
			{
				"age": 45, "sex": "male",
				"vital_temperature_c": 38.5, "vital_heart_rate": 95,
				"symptom_list": ["fever"],
				"target_disease": 32,
				"condition_name": "Pneumonia, unspecified organism",
				"data_source": "clinical_feedback", "quality_score": 0.95,
				"is_validated": true, "created_by": "dr_smith",
				"created_at": "2026-08-01T10:00:00Z"
			},
			{
				"age": 30, "sex": "female",
				"vital_temperature_c": 37.0, "vital_heart_rate": 72,
				"symptom_list": ["headache"],
				"target_disease": 41,
				"condition_name": "Headache",
				"data_source": "manual", "quality_score": 1.0,
				"is_validated": true, "created_by": "dr_jones",
				"created_at": "2026-08-02T09:30:00Z"
			}
		]
	}`

	// First sample exists
	mock.ExpectQuery("SELECT id FROM training_data").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	// Second does not, so it is inserted
	mock.ExpectQuery("SELECT id FROM training_data").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO training_data").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), time.Now()))

	imported, skipped, err := store.ImportJSON(ctx, DatasetTraining, bytes.NewReader([]byte(exportJSON)))

	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}
