package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pdpcds-server/internal/database"
	"github.com/pdpcds-server/internal/domain"
)

// generateTestPassword creates a secure random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a default test password if random generation fails
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	ctx := context.Background()

	// Generate secure random password for test database
	testPassword := generateTestPassword()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	// Get connection details
	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create database connection
	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	// Run migrations
	migrationRunner, err := database.NewMigrationRunnerForConfig(config, "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}

	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func samplePredictionRecord(id int64) *domain.PredictionRecord {
	return &domain.PredictionRecord{
		ID:        id,
		PatientID: uuid.New().String(),
		PatientSnapshot: domain.PatientSnapshot{
			Age:               45,
			Sex:               domain.SexMale,
			VitalTemperatureC: floatPtr(38.5),
			VitalHeartRate:    intPtr(95),
			VitalBPSystolic:   intPtr(130),
			VitalBPDiastolic:  intPtr(85),
			SymptomList:       []string{"fever", "cough"},
			PMHList:           []string{"hypertension"},
		},
		Predictions: domain.RankedPredictions{
			{
				DiseaseID:  32,
				ICD10Code:  "J18.9",
				Diagnosis:  "Pneumonia, unspecified organism",
				Confidence: 0.82,
				RecommendedTests: []domain.TestRecommendation{
					{Test: "Chest X-ray (PA/AP)", Confidence: 0.9, Urgency: domain.UrgencyRoutine},
				},
				RecommendedMedications: []domain.MedicationRecommendation{
					{Medication: "Amoxicillin-clavulanate", Confidence: 0.78, DoseSuggestion: "500 mg PO TID"},
				},
				AssessmentPlan: "Likely community-acquired pneumonia. Start empiric antibiotics and obtain chest imaging.",
			},
		},
		ModelVersion:        "v1.0",
		ConfidenceThreshold: 0.5,
		ProcessingTimeMS:    12.4,
	}
}

func TestPredictionRepository_CreateAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPredictionRepository(db.Pool, testLogger())

	record := samplePredictionRecord(time.Now().UnixNano())

	ctx := context.Background()
	id, err := repo.Create(ctx, record)
	if err != nil {
		t.Fatalf("Failed to create prediction: %v", err)
	}
	if id != record.ID {
		t.Errorf("Expected ID %d, got %d", record.ID, id)
	}

	retrieved, err := repo.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve prediction: %v", err)
	}

	if retrieved.PatientID != record.PatientID {
		t.Errorf("Expected patient ID %s, got %s", record.PatientID, retrieved.PatientID)
	}
	if retrieved.Age != 45 {
		t.Errorf("Expected age 45, got %d", retrieved.Age)
	}
	if retrieved.VitalTemperatureC == nil || *retrieved.VitalTemperatureC != 38.5 {
		t.Errorf("Expected temperature 38.5, got %v", retrieved.VitalTemperatureC)
	}
	if len(retrieved.Predictions) != 1 {
		t.Fatalf("Expected 1 prediction, got %d", len(retrieved.Predictions))
	}

	first, ok := retrieved.Predictions.First()
	if !ok {
		t.Fatal("Expected a top prediction, got none")
	}
	if first.ICD10Code != "J18.9" {
		t.Errorf("Expected ICD-10 code J18.9, got %s", first.ICD10Code)
	}
	if first.DiseaseID != 32 {
		t.Errorf("Expected disease ID 32, got %d", first.DiseaseID)
	}
	if len(first.RecommendedTests) != 1 {
		t.Errorf("Expected 1 recommended test, got %d", len(first.RecommendedTests))
	}
}

func TestPredictionRepository_GetNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPredictionRepository(db.Pool, testLogger())

	_, err := repo.Get(context.Background(), 999999)
	if err == nil {
		t.Fatal("Expected error for missing prediction, got nil")
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %T", err)
	}
	if notFound.Error() != "Prediction with ID 999999 not found" {
		t.Errorf("Unexpected not-found message: %s", notFound.Error())
	}
}

func TestPredictionRepository_HistoryByPatient(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPredictionRepository(db.Pool, testLogger())
	ctx := context.Background()

	patientID := uuid.New().String()
	base := time.Now().UnixNano()
	for i := 0; i < 3; i++ {
		record := samplePredictionRecord(base + int64(i))
		record.PatientID = patientID
		if _, err := repo.Create(ctx, record); err != nil {
			t.Fatalf("Failed to create prediction %d: %v", i, err)
		}
	}

	// A record for another patient must not appear in the history
	other := samplePredictionRecord(base + 100)
	if _, err := repo.Create(ctx, other); err != nil {
		t.Fatalf("Failed to create unrelated prediction: %v", err)
	}

	records, err := repo.HistoryByPatient(ctx, patientID, 10)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 records, got %d", len(records))
	}
	for _, record := range records {
		if record.PatientID != patientID {
			t.Errorf("Expected patient ID %s, got %s", patientID, record.PatientID)
		}
	}

	limited, err := repo.HistoryByPatient(ctx, patientID, 2)
	if err != nil {
		t.Fatalf("Failed to get limited history: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 records with limit 2, got %d", len(limited))
	}
}

func TestCatalogRepository_SeededLookups(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCatalogRepository(db.Pool, testLogger())
	ctx := context.Background()

	icd, err := repo.ICD10ByCode(ctx, "J18.9")
	if err != nil {
		t.Fatalf("Failed to look up J18.9: %v", err)
	}
	if icd.Description != "Pneumonia, unspecified organism" {
		t.Errorf("Unexpected description: %s", icd.Description)
	}
	if !icd.IsActive {
		t.Error("Expected J18.9 to be active")
	}

	byID, err := repo.ICD10ByID(ctx, icd.ID)
	if err != nil {
		t.Fatalf("Failed to look up ICD-10 by ID: %v", err)
	}
	if byID.Code != "J18.9" {
		t.Errorf("Expected code J18.9, got %s", byID.Code)
	}

	codes, err := repo.ListActiveICD10(ctx)
	if err != nil {
		t.Fatalf("Failed to list active ICD-10 codes: %v", err)
	}
	if len(codes) < 50 {
		t.Errorf("Expected at least 50 seeded codes, got %d", len(codes))
	}

	test, err := repo.TestByName(ctx, "Complete Blood Count (CBC)")
	if err != nil {
		t.Fatalf("Failed to look up CBC: %v", err)
	}
	if test.TestCode != "85025" {
		t.Errorf("Expected test code 85025, got %s", test.TestCode)
	}

	med, err := repo.MedicationByName(ctx, "Amoxicillin-clavulanate")
	if err != nil {
		t.Fatalf("Failed to look up medication: %v", err)
	}
	if len(med.BrandNames) == 0 || med.BrandNames[0] != "Augmentin" {
		t.Errorf("Expected brand name Augmentin, got %v", med.BrandNames)
	}

	_, err = repo.ICD10ByCode(ctx, "X99.99")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown code, got %v", err)
	}
}
