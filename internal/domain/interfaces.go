package domain

import (
	"context"
	"time"
)

// Predictor is the opaque scoring function mapping a patient snapshot to
// ranked diagnoses. Implementations must return results ordered by
// descending confidence; the pipeline never inspects how scores are made.
type Predictor interface {
	Predict(ctx context.Context, snapshot *PatientSnapshot) (RankedPredictions, error)
	ModelVersion() string
}

// PredictionStore persists prediction records and serves reads for the
// feedback loop. The feedback processor only reads via Get; records are
// immutable once created.
type PredictionStore interface {
	Create(ctx context.Context, record *PredictionRecord) (int64, error)
	Get(ctx context.Context, id int64) (*PredictionRecord, error)
	HistoryByPatient(ctx context.Context, patientID string, limit int) ([]*PredictionRecord, error)
}

// FeedbackStore persists doctor feedback and serves aggregate reads.
// Rows are append-only; accuracy is always recomputed from the log.
type FeedbackStore interface {
	Insert(ctx context.Context, record *FeedbackRecord) (int64, error)
	ListByPrediction(ctx context.Context, predictionID int64) ([]*FeedbackRecord, error)
	CountsByPrediction(ctx context.Context, predictionID int64) (total, accurate int64, err error)
	StatsSince(ctx context.Context, since time.Time) (*FeedbackStats, error)
}

// OutcomeStore persists final clinical outcomes. Pure append.
type OutcomeStore interface {
	Insert(ctx context.Context, record *OutcomeRecord) (int64, error)
}

// CatalogStore serves the reference catalogs. Read-only at request time;
// rows are maintained by migrations and seed data.
type CatalogStore interface {
	ICD10ByID(ctx context.Context, id int64) (*ICD10Code, error)
	ICD10ByCode(ctx context.Context, code string) (*ICD10Code, error)
	ListActiveICD10(ctx context.Context) ([]*ICD10Code, error)
	TestByName(ctx context.Context, name string) (*MedicalTest, error)
	MedicationByName(ctx context.Context, name string) (*Medication, error)
}

// FeedbackEvent is the payload broadcast to stream subscribers after a
// feedback submission is accepted.
type FeedbackEvent struct {
	FeedbackID        int64     `json:"feedback_id"`
	PredictionID      int64     `json:"prediction_id"`
	Accurate          bool      `json:"accurate"`
	Confidence        float64   `json:"confidence"`
	TrainingDataAdded bool      `json:"training_data_added"`
	At                time.Time `json:"at"`
}

// FeedbackPublisher broadcasts accepted feedback to stream subscribers.
// Implementations must never block the submit path; events to slow or
// absent subscribers are dropped.
type FeedbackPublisher interface {
	PublishFeedback(event FeedbackEvent)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetModelServiceConfig() *ModelServiceConfig
	GetPredictionConfig() *PredictionConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
