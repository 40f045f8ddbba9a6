package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pdpcds-server/internal/domain"
	"github.com/pdpcds-server/internal/service"
	"github.com/pdpcds-server/internal/training"
)

// predictionService is what the prediction tool needs from the service
// layer. Narrow so handler tests can stub it.
type predictionService interface {
	Predict(ctx context.Context, request *domain.PredictionRequest) (*domain.PredictionResponse, error)
}

// feedbackService covers the feedback and curation tools.
type feedbackService interface {
	SubmitFeedback(ctx context.Context, submission *domain.DoctorFeedback) (*domain.FeedbackResponse, error)
	Summary(ctx context.Context, predictionID int64) (*domain.FeedbackSummary, error)
	Stats(ctx context.Context, days int) (*domain.FeedbackStats, error)
	AddTrainingData(ctx context.Context, request *domain.TrainingDataRequest) (*service.TrainingDataResult, error)
}

// trainingExporter is the slice of training.Store the export tool uses.
type trainingExporter interface {
	Count(ctx context.Context, dataset training.Dataset) (int64, error)
	ExportJSON(ctx context.Context, dataset training.Dataset, writer io.Writer) error
}

// toolset carries the service surface the tool handlers run against.
// The full server wires every field; the lite server leaves the
// feedback-store-backed tools unregistered.
type toolset struct {
	predictions predictionService
	feedback    feedbackService
	exporter    trainingExporter
	exportDir   string
	logger      *logrus.Logger
}

// PredictDiseaseParams defines parameters for the predict_disease tool.
type PredictDiseaseParams struct {
	PatientID          string   `json:"patient_id,omitempty" jsonschema:"stable patient identifier; generated when absent"`
	Age                int      `json:"age" jsonschema:"patient age in years, 0 to 150"`
	Sex                string   `json:"sex" jsonschema:"patient sex: male, female or other"`
	VitalTemperatureC  *float64 `json:"vital_temperature_c,omitempty" jsonschema:"body temperature in Celsius, 30.0 to 45.0"`
	VitalHeartRate     *int     `json:"vital_heart_rate,omitempty" jsonschema:"heart rate in beats per minute, 30 to 250"`
	VitalBPSystolic    *int     `json:"vital_blood_pressure_systolic,omitempty" jsonschema:"systolic blood pressure in mmHg"`
	VitalBPDiastolic   *int     `json:"vital_blood_pressure_diastolic,omitempty" jsonschema:"diastolic blood pressure in mmHg"`
	SymptomList        []string `json:"symptom_list" jsonschema:"observed symptoms as free-form terms"`
	PMHList            []string `json:"pmh_list,omitempty" jsonschema:"past medical history entries"`
	CurrentMedications []string `json:"current_medications,omitempty" jsonschema:"medications the patient currently takes"`
	Allergies          []string `json:"allergies,omitempty" jsonschema:"known allergies"`
	ChiefComplaint     string   `json:"chief_complaint,omitempty" jsonschema:"primary reason for the visit"`
	FreeTextNotes      string   `json:"free_text_notes,omitempty" jsonschema:"additional clinical notes"`
}

// SubmitFeedbackParams defines parameters for submit_prediction_feedback.
type SubmitFeedbackParams struct {
	PredictionID          int64    `json:"prediction_id" jsonschema:"identifier of the prediction being assessed"`
	DoctorID              string   `json:"doctor_id" jsonschema:"identifier of the reviewing doctor"`
	DoctorName            string   `json:"doctor_name,omitempty" jsonschema:"display name of the reviewing doctor"`
	PredictionAccurate    *bool    `json:"prediction_accurate" jsonschema:"whether the top prediction matched the confirmed diagnosis"`
	ConfidenceInFeedback  *float64 `json:"confidence_in_feedback" jsonschema:"doctor confidence in this assessment, 0.0 to 1.0"`
	ActualDiseaseID       *int64   `json:"actual_disease_id,omitempty" jsonschema:"catalog identifier of the confirmed diagnosis"`
	ActualConditionName   string   `json:"actual_condition_name,omitempty" jsonschema:"name of the confirmed diagnosis"`
	OrderedTests          []string `json:"ordered_tests,omitempty" jsonschema:"diagnostic tests the doctor ordered"`
	PrescribedMedications []string `json:"prescribed_medications,omitempty" jsonschema:"medications the doctor prescribed"`
	ClinicalNotes         string   `json:"clinical_notes,omitempty" jsonschema:"free-form clinical notes"`
	OutcomeNotes          string   `json:"outcome_notes,omitempty" jsonschema:"notes on the patient outcome"`
	HospitalUnit          string   `json:"hospital_unit,omitempty" jsonschema:"unit or ward where the patient was seen"`
}

// FeedbackSummaryParams defines parameters for get_feedback_summary.
type FeedbackSummaryParams struct {
	PredictionID int64 `json:"prediction_id" jsonschema:"identifier of the prediction to summarize"`
}

// FeedbackStatsParams defines parameters for get_feedback_stats.
type FeedbackStatsParams struct {
	Days int `json:"days,omitempty" jsonschema:"trailing window in days; defaults to 7"`
}

// AddTrainingDataParams defines parameters for the add_training_data tool.
type AddTrainingDataParams struct {
	Age                   int      `json:"age" jsonschema:"patient age in years, 0 to 150"`
	Sex                   string   `json:"sex" jsonschema:"patient sex: male, female or other"`
	VitalTemperatureC     *float64 `json:"vital_temperature_c,omitempty" jsonschema:"body temperature in Celsius"`
	VitalHeartRate        *int     `json:"vital_heart_rate,omitempty" jsonschema:"heart rate in beats per minute"`
	VitalBPSystolic       *int     `json:"vital_blood_pressure_systolic,omitempty" jsonschema:"systolic blood pressure in mmHg"`
	VitalBPDiastolic      *int     `json:"vital_blood_pressure_diastolic,omitempty" jsonschema:"diastolic blood pressure in mmHg"`
	SymptomList           []string `json:"symptom_list" jsonschema:"observed symptoms as free-form terms"`
	PMHList               []string `json:"pmh_list,omitempty" jsonschema:"past medical history entries"`
	CurrentMedications    []string `json:"current_medications,omitempty" jsonschema:"medications the patient currently takes"`
	Allergies             []string `json:"allergies,omitempty" jsonschema:"known allergies"`
	ChiefComplaint        string   `json:"chief_complaint,omitempty" jsonschema:"primary reason for the visit"`
	FreeTextNotes         string   `json:"free_text_notes,omitempty" jsonschema:"additional clinical notes"`
	ConfirmedDiseaseID    int64    `json:"confirmed_disease_id" jsonschema:"catalog identifier of the confirmed diagnosis"`
	ConfirmedCondition    string   `json:"confirmed_condition_name" jsonschema:"name of the confirmed diagnosis"`
	OrderedTests          []string `json:"ordered_tests" jsonschema:"tests that confirmed the diagnosis"`
	PrescribedMedications []string `json:"prescribed_medications" jsonschema:"medications prescribed for the confirmed diagnosis"`
	DataSource            string   `json:"data_source,omitempty" jsonschema:"sample provenance: manual, clinical_feedback or migrated; defaults to manual"`
	QualityScore          *float64 `json:"quality_score,omitempty" jsonschema:"label quality, 0.0 to 1.0; defaults to 0.95"`
	IsValidated           *bool    `json:"is_validated,omitempty" jsonschema:"whether the label was reviewed; defaults to true"`
	CreatedBy             string   `json:"created_by" jsonschema:"identifier of the curator"`
	AddToValidationSet    bool     `json:"add_to_validation_set,omitempty" jsonschema:"store in the validation set instead of the training set"`
}

// AddTrainingDataResult reports where a curated sample landed.
type AddTrainingDataResult struct {
	Message     string `json:"message"`
	RecordID    int64  `json:"record_id"`
	Condition   string `json:"condition"`
	DatasetType string `json:"dataset_type"`
}

// ExportTrainingDataParams defines parameters for export_training_data.
type ExportTrainingDataParams struct {
	Dataset string `json:"dataset,omitempty" jsonschema:"dataset to export: training or validation; defaults to training"`
}

// ExportTrainingDataResult describes a completed export.
type ExportTrainingDataResult struct {
	Dataset  string `json:"dataset"`
	FilePath string `json:"file_path"`
	Count    int64  `json:"count"`
	Message  string `json:"message"`
}

// handlePredictDisease handles the predict_disease tool invocation.
func (t *toolset) handlePredictDisease(ctx context.Context, req *mcp.CallToolRequest, params PredictDiseaseParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "predict_disease").Info("Tool invoked")

	request := &domain.PredictionRequest{
		PatientID: params.PatientID,
		PatientSnapshot: domain.PatientSnapshot{
			Age:                params.Age,
			Sex:                domain.Sex(params.Sex),
			VitalTemperatureC:  params.VitalTemperatureC,
			VitalHeartRate:     params.VitalHeartRate,
			VitalBPSystolic:    params.VitalBPSystolic,
			VitalBPDiastolic:   params.VitalBPDiastolic,
			SymptomList:        params.SymptomList,
			PMHList:            params.PMHList,
			CurrentMedications: params.CurrentMedications,
			Allergies:          params.Allergies,
			ChiefComplaint:     params.ChiefComplaint,
			FreeTextNotes:      params.FreeTextNotes,
		},
	}

	response, err := t.predictions.Predict(ctx, request)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return errorResult("Invalid prediction request", err), nil, nil
		}
		t.logger.WithError(err).Error("Prediction failed")
		return errorResult("Prediction failed", err), nil, nil
	}

	text := fmt.Sprintf("Prediction %d for patient %s: no differentials ranked", response.PredictionID, response.PatientID)
	if top, ok := response.Predictions.First(); ok {
		text = fmt.Sprintf("Prediction %d for patient %s: top differential %s (%s) at %.0f%% confidence, %d candidates ranked",
			response.PredictionID, response.PatientID, top.Diagnosis, top.ICD10Code, top.Confidence*100, len(response.Predictions))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, response, nil
}

// handleSubmitFeedback handles the submit_prediction_feedback tool
// invocation.
func (t *toolset) handleSubmitFeedback(ctx context.Context, req *mcp.CallToolRequest, params SubmitFeedbackParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "submit_prediction_feedback").Info("Tool invoked")

	submission := &domain.DoctorFeedback{
		PredictionID:          params.PredictionID,
		DoctorID:              params.DoctorID,
		DoctorName:            params.DoctorName,
		PredictionAccurate:    params.PredictionAccurate,
		ConfidenceInFeedback:  params.ConfidenceInFeedback,
		ActualDiseaseID:       params.ActualDiseaseID,
		ActualConditionName:   params.ActualConditionName,
		OrderedTests:          params.OrderedTests,
		PrescribedMedications: params.PrescribedMedications,
		ClinicalNotes:         params.ClinicalNotes,
		OutcomeNotes:          params.OutcomeNotes,
		HospitalUnit:          params.HospitalUnit,
	}

	response, err := t.feedback.SubmitFeedback(ctx, submission)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return errorResult(fmt.Sprintf("Prediction %d not found", params.PredictionID), nil), nil, nil
		case errors.Is(err, domain.ErrInvalidInput):
			return errorResult("Invalid feedback submission", err), nil, nil
		default:
			t.logger.WithError(err).Error("Feedback submission failed")
			return errorResult("Feedback submission failed", err), nil, nil
		}
	}

	text := fmt.Sprintf("Feedback %d recorded for prediction %d; %d total assessments, accuracy rate %.2f, training data added: %t",
		response.FeedbackID, params.PredictionID, response.TotalFeedbackForPrediction,
		response.PredictionAccuracyRate, response.TrainingDataAdded)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, response, nil
}

// handleFeedbackSummary handles the get_feedback_summary tool invocation.
func (t *toolset) handleFeedbackSummary(ctx context.Context, req *mcp.CallToolRequest, params FeedbackSummaryParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "get_feedback_summary").Info("Tool invoked")

	summary, err := t.feedback.Summary(ctx, params.PredictionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errorResult(fmt.Sprintf("No feedback found for prediction %d", params.PredictionID), nil), nil, nil
		}
		t.logger.WithError(err).Error("Feedback summary failed")
		return errorResult("Feedback summary failed", err), nil, nil
	}

	text := fmt.Sprintf("Prediction %d: %d feedback entries, accuracy rate %.2f, consensus reached: %t",
		summary.PredictionID, summary.TotalFeedbackCount, summary.AccuracyRate, summary.ConsensusReached)
	if summary.MostCommonActualDiagnosis != nil {
		text += fmt.Sprintf(", most common confirmed diagnosis: %s", *summary.MostCommonActualDiagnosis)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, summary, nil
}

// handleFeedbackStats handles the get_feedback_stats tool invocation.
func (t *toolset) handleFeedbackStats(ctx context.Context, req *mcp.CallToolRequest, params FeedbackStatsParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "get_feedback_stats").Info("Tool invoked")

	if params.Days < 0 {
		return errorResult("Invalid window", fmt.Errorf("days must not be negative, got %d", params.Days)), nil, nil
	}

	stats, err := t.feedback.Stats(ctx, params.Days)
	if err != nil {
		t.logger.WithError(err).Error("Feedback stats failed")
		return errorResult("Feedback stats failed", err), nil, nil
	}

	text := fmt.Sprintf("Last %d days: %d feedback entries from %d doctors across %d predictions, accuracy rate %.2f",
		stats.PeriodDays, stats.TotalFeedback, stats.UniqueDoctors,
		stats.UniquePredictionsWithFeedback, stats.PredictionAccuracyRate)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, stats, nil
}

// handleAddTrainingData handles the add_training_data tool invocation.
func (t *toolset) handleAddTrainingData(ctx context.Context, req *mcp.CallToolRequest, params AddTrainingDataParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "add_training_data").Info("Tool invoked")

	request := &domain.TrainingDataRequest{
		Age:                   params.Age,
		Sex:                   domain.Sex(params.Sex),
		VitalTemperatureC:     params.VitalTemperatureC,
		VitalHeartRate:        params.VitalHeartRate,
		VitalBPSystolic:       params.VitalBPSystolic,
		VitalBPDiastolic:      params.VitalBPDiastolic,
		SymptomList:           params.SymptomList,
		PMHList:               params.PMHList,
		CurrentMedications:    params.CurrentMedications,
		Allergies:             params.Allergies,
		ChiefComplaint:        params.ChiefComplaint,
		FreeTextNotes:         params.FreeTextNotes,
		ConfirmedDiseaseID:    params.ConfirmedDiseaseID,
		ConfirmedCondition:    params.ConfirmedCondition,
		OrderedTests:          params.OrderedTests,
		PrescribedMedications: params.PrescribedMedications,
		DataSource:            domain.Provenance(params.DataSource),
		QualityScore:          params.QualityScore,
		IsValidated:           params.IsValidated,
		CreatedBy:             params.CreatedBy,
		AddToValidationSet:    params.AddToValidationSet,
	}

	result, err := t.feedback.AddTrainingData(ctx, request)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return errorResult("Invalid training data", err), nil, nil
		}
		t.logger.WithError(err).Error("Training data insert failed")
		return errorResult("Training data insert failed", err), nil, nil
	}

	out := AddTrainingDataResult{
		Message:     fmt.Sprintf("Training data added successfully to %s set", result.Dataset),
		RecordID:    result.RecordID,
		Condition:   result.Condition,
		DatasetType: string(result.Dataset),
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s (record %d, condition %s)", out.Message, out.RecordID, out.Condition)},
		},
	}, out, nil
}

// handleExportTrainingData handles the export_training_data tool
// invocation. The export lands as a timestamped JSON file under the
// configured export directory.
func (t *toolset) handleExportTrainingData(ctx context.Context, req *mcp.CallToolRequest, params ExportTrainingDataParams) (*mcp.CallToolResult, any, error) {
	t.logger.WithField("tool", "export_training_data").Info("Tool invoked")

	dataset := training.DatasetTraining
	if params.Dataset != "" {
		dataset = training.Dataset(params.Dataset)
	}
	if _, err := dataset.Table(); err != nil {
		return errorResult("Invalid dataset", err), nil, nil
	}

	if err := os.MkdirAll(t.exportDir, 0755); err != nil {
		return errorResult("Failed to create export directory", err), nil, nil
	}

	filename := fmt.Sprintf("%s_export_%s.json", dataset, time.Now().UTC().Format("20060102_150405"))
	filePath := filepath.Join(t.exportDir, filename)

	file, err := os.Create(filePath)
	if err != nil {
		return errorResult("Failed to create export file", err), nil, nil
	}
	defer file.Close()

	if err := t.exporter.ExportJSON(ctx, dataset, file); err != nil {
		t.logger.WithError(err).Error("Training data export failed")
		return errorResult("Training data export failed", err), nil, nil
	}

	count, err := t.exporter.Count(ctx, dataset)
	if err != nil {
		count = -1
	}

	out := ExportTrainingDataResult{
		Dataset:  string(dataset),
		FilePath: filePath,
		Count:    count,
		Message:  fmt.Sprintf("Exported %d %s samples to %s", count, dataset, filePath),
	}

	t.logger.WithFields(logrus.Fields{
		"dataset": dataset,
		"count":   count,
		"path":    filePath,
	}).Info("Training data exported")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: out.Message},
		},
	}, out, nil
}

// errorResult creates a standardized error result for tool calls.
func errorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
