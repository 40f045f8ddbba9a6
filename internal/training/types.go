// Package training provides append-only storage for labeled training
// samples. Samples accumulate from the doctor-feedback loop and from
// manual curation; model retraining consumes them out of band.
package training

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdpcds-server/internal/domain"
)

// Dataset selects which sample table a store operation targets.
type Dataset string

const (
	// DatasetTraining is the default destination for new samples.
	DatasetTraining Dataset = "training"

	// DatasetValidation holds curated hold-out cases.
	DatasetValidation Dataset = "validation"
)

// Table returns the backing table name for the dataset.
func (d Dataset) Table() (string, error) {
	switch d {
	case DatasetTraining:
		return "training_data", nil
	case DatasetValidation:
		return "validation_data", nil
	default:
		return "", fmt.Errorf("unknown dataset: %q", d)
	}
}

// Store defines the interface for training sample storage operations.
type Store interface {
	// Insert appends a sample to the dataset and assigns its ID.
	// A zero CreatedAt is stamped with the current time; a non-zero
	// one is preserved so that restored exports keep their history.
	Insert(ctx context.Context, dataset Dataset, sample *domain.TrainingSample) (int64, error)

	// List returns samples newest-first with pagination.
	List(ctx context.Context, dataset Dataset, limit, offset int) ([]*domain.TrainingSample, error)

	// Count returns the total number of samples in the dataset.
	Count(ctx context.Context, dataset Dataset) (int64, error)

	// Delete removes a sample by ID.
	Delete(ctx context.Context, dataset Dataset, id int64) error

	// ExportJSON exports all samples in the dataset to a JSON writer.
	ExportJSON(ctx context.Context, dataset Dataset, writer io.Writer) error

	// ImportJSON imports samples from a JSON reader. A sample whose
	// target, condition name and creation timestamp match a stored row
	// is skipped, so re-importing an export does not duplicate rows.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, dataset Dataset, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// TrainingExport represents the JSON export format.
type TrainingExport struct {
	Version    string                   `json:"version"`
	Dataset    Dataset                  `json:"dataset"`
	ExportedAt time.Time                `json:"exported_at"`
	Count      int                      `json:"count"`
	Samples    []*domain.TrainingSample `json:"samples"`
}
