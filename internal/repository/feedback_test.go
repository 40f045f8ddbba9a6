package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pdpcds-server/internal/domain"
)

func sampleFeedbackRecord(predictionID int64, accurate bool) *domain.FeedbackRecord {
	record := &domain.FeedbackRecord{
		PredictionID:          predictionID,
		DoctorID:              "dr_smith",
		DoctorName:            "Dr. Smith",
		HospitalUnit:          "Emergency",
		PredictionAccurate:    accurate,
		ConfidenceInFeedback:  0.9,
		OrderedTests:          []string{"Complete Blood Count (CBC)"},
		PrescribedMedications: []string{"Amoxicillin-clavulanate"},
		ClinicalNotes:         "Consistent with imaging findings",
		FeedbackTimestamp:     time.Now().UTC(),
	}
	if !accurate {
		diseaseID := int64(7)
		record.ActualDiseaseID = &diseaseID
		record.ActualConditionName = "Acute bronchitis"
	}
	return record
}

func TestFeedbackRepository_InsertAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewFeedbackRepository(db.Pool, testLogger())
	ctx := context.Background()

	predictionID := time.Now().UnixNano()

	record := sampleFeedbackRecord(predictionID, true)
	id, err := repo.Insert(ctx, record)
	if err != nil {
		t.Fatalf("Failed to insert feedback: %v", err)
	}
	if id == 0 {
		t.Error("Expected assigned feedback ID, got 0")
	}
	if record.ID != id {
		t.Errorf("Expected record ID %d to match returned ID %d", record.ID, id)
	}
	if record.CreatedAt.IsZero() {
		t.Error("Expected populated created_at timestamp")
	}

	inaccurate := sampleFeedbackRecord(predictionID, false)
	if _, err := repo.Insert(ctx, inaccurate); err != nil {
		t.Fatalf("Failed to insert second feedback: %v", err)
	}

	records, err := repo.ListByPrediction(ctx, predictionID)
	if err != nil {
		t.Fatalf("Failed to list feedback: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 feedback records, got %d", len(records))
	}

	// Insertion order is preserved
	if records[0].ID != record.ID {
		t.Errorf("Expected first record ID %d, got %d", record.ID, records[0].ID)
	}
	if records[0].DoctorID != "dr_smith" {
		t.Errorf("Expected doctor ID dr_smith, got %s", records[0].DoctorID)
	}
	if len(records[0].OrderedTests) != 1 {
		t.Errorf("Expected 1 ordered test, got %d", len(records[0].OrderedTests))
	}

	if records[1].ActualDiseaseID == nil || *records[1].ActualDiseaseID != 7 {
		t.Errorf("Expected actual disease ID 7, got %v", records[1].ActualDiseaseID)
	}
	if records[1].ActualConditionName != "Acute bronchitis" {
		t.Errorf("Expected corrected condition name, got %s", records[1].ActualConditionName)
	}
}

func TestFeedbackRepository_CountsByPrediction(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewFeedbackRepository(db.Pool, testLogger())
	ctx := context.Background()

	predictionID := time.Now().UnixNano()

	total, accurate, err := repo.CountsByPrediction(ctx, predictionID)
	if err != nil {
		t.Fatalf("Failed to count feedback: %v", err)
	}
	if total != 0 || accurate != 0 {
		t.Errorf("Expected zero counts for fresh prediction, got %d/%d", total, accurate)
	}

	for i, ok := range []bool{true, true, false} {
		if _, err := repo.Insert(ctx, sampleFeedbackRecord(predictionID, ok)); err != nil {
			t.Fatalf("Failed to insert feedback %d: %v", i, err)
		}
	}

	total, accurate, err = repo.CountsByPrediction(ctx, predictionID)
	if err != nil {
		t.Fatalf("Failed to count feedback: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected 3 total, got %d", total)
	}
	if accurate != 2 {
		t.Errorf("Expected 2 accurate, got %d", accurate)
	}
}

func TestFeedbackRepository_StatsSince(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewFeedbackRepository(db.Pool, testLogger())
	ctx := context.Background()

	since := time.Now().Add(-7 * 24 * time.Hour)

	stats, err := repo.StatsSince(ctx, since)
	if err != nil {
		t.Fatalf("Failed to compute stats: %v", err)
	}
	if stats.TotalFeedback != 0 {
		t.Errorf("Expected empty window, got %d records", stats.TotalFeedback)
	}

	predictionA := time.Now().UnixNano()
	predictionB := predictionA + 1

	if _, err := repo.Insert(ctx, sampleFeedbackRecord(predictionA, true)); err != nil {
		t.Fatalf("Failed to insert feedback: %v", err)
	}
	if _, err := repo.Insert(ctx, sampleFeedbackRecord(predictionA, false)); err != nil {
		t.Fatalf("Failed to insert feedback: %v", err)
	}
	second := sampleFeedbackRecord(predictionB, true)
	second.DoctorID = "dr_jones"
	if _, err := repo.Insert(ctx, second); err != nil {
		t.Fatalf("Failed to insert feedback: %v", err)
	}

	stats, err = repo.StatsSince(ctx, since)
	if err != nil {
		t.Fatalf("Failed to compute stats: %v", err)
	}
	if stats.TotalFeedback != 3 {
		t.Errorf("Expected 3 total feedback, got %d", stats.TotalFeedback)
	}
	if stats.UniquePredictionsWithFeedback != 2 {
		t.Errorf("Expected 2 unique predictions, got %d", stats.UniquePredictionsWithFeedback)
	}
	if stats.UniqueDoctors != 2 {
		t.Errorf("Expected 2 unique doctors, got %d", stats.UniqueDoctors)
	}
	if stats.PredictionAccuracyRate < 0.66 || stats.PredictionAccuracyRate > 0.67 {
		t.Errorf("Expected accuracy near 2/3, got %f", stats.PredictionAccuracyRate)
	}
	if stats.FeedbackPerPrediction != 1.5 {
		t.Errorf("Expected 1.5 feedback per prediction, got %f", stats.FeedbackPerPrediction)
	}
}

func TestOutcomeRepository_Insert(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOutcomeRepository(db.Pool, testLogger())
	ctx := context.Background()

	days := 3
	record := &domain.OutcomeRecord{
		PredictionID:              time.Now().UnixNano(),
		PatientOutcome:            domain.OutcomeRecovered,
		FinalDiagnosisID:          32,
		FinalConditionName:        "Pneumonia, unspecified organism",
		TreatmentEffective:        true,
		SideEffects:               []string{"mild nausea"},
		DiagnosisConfirmationDays: &days,
		ReadmissionRequired:       false,
		Complications:             []string{},
		ReportedBy:                "dr_smith",
		OutcomeDate:               time.Now().UTC(),
	}

	id, err := repo.Insert(ctx, record)
	if err != nil {
		t.Fatalf("Failed to insert outcome: %v", err)
	}
	if id == 0 {
		t.Error("Expected assigned outcome ID, got 0")
	}
	if record.CreatedAt.IsZero() {
		t.Error("Expected populated created_at timestamp")
	}
}
