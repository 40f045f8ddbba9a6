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

// CatalogRepository serves the ICD-10, medical test, and medication
// reference catalogs. Rows are maintained by migrations; request-time
// access is read-only.
type CatalogRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *pgxpool.Pool, logger *logrus.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:  db,
		log: logger,
	}
}

// ICD10ByID retrieves an ICD-10 catalog row by its ID
func (r *CatalogRepository) ICD10ByID(ctx context.Context, id int64) (*domain.ICD10Code, error) {
	query := `
		SELECT id, code, description, category, is_active, created_at
		FROM icd10_codes
		WHERE id = $1`

	var code domain.ICD10Code
	err := r.db.QueryRow(ctx, query, id).Scan(
		&code.ID,
		&code.Code,
		&code.Description,
		&code.Category,
		&code.IsActive,
		&code.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("ICD-10 code", id)
		}
		r.log.WithFields(logrus.Fields{
			"icd10_id": id,
			"error":    err,
		}).Error("Failed to get ICD-10 code by ID")
		return nil, fmt.Errorf("getting ICD-10 code by ID: %w", err)
	}

	return &code, nil
}

// ICD10ByCode retrieves an ICD-10 catalog row by its code
func (r *CatalogRepository) ICD10ByCode(ctx context.Context, icdCode string) (*domain.ICD10Code, error) {
	query := `
		SELECT id, code, description, category, is_active, created_at
		FROM icd10_codes
		WHERE code = $1`

	var code domain.ICD10Code
	err := r.db.QueryRow(ctx, query, icdCode).Scan(
		&code.ID,
		&code.Code,
		&code.Description,
		&code.Category,
		&code.IsActive,
		&code.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("ICD-10 code", icdCode)
		}
		r.log.WithFields(logrus.Fields{
			"icd10_code": icdCode,
			"error":      err,
		}).Error("Failed to get ICD-10 code by code")
		return nil, fmt.Errorf("getting ICD-10 code by code: %w", err)
	}

	return &code, nil
}

// ListActiveICD10 retrieves all active ICD-10 codes ordered by ID
func (r *CatalogRepository) ListActiveICD10(ctx context.Context) ([]*domain.ICD10Code, error) {
	query := `
		SELECT id, code, description, category, is_active, created_at
		FROM icd10_codes
		WHERE is_active
		ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithField("error", err).Error("Failed to list active ICD-10 codes")
		return nil, fmt.Errorf("listing active ICD-10 codes: %w", err)
	}
	defer rows.Close()

	var codes []*domain.ICD10Code
	for rows.Next() {
		var code domain.ICD10Code
		err := rows.Scan(
			&code.ID,
			&code.Code,
			&code.Description,
			&code.Category,
			&code.IsActive,
			&code.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning ICD-10 row: %w", err)
		}
		codes = append(codes, &code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ICD-10 rows: %w", err)
	}

	return codes, nil
}

// TestByName retrieves a medical test catalog row by its exact name
func (r *CatalogRepository) TestByName(ctx context.Context, name string) (*domain.MedicalTest, error) {
	query := `
		SELECT id, test_name, test_code, description, category, typical_range, is_active, created_at
		FROM medical_tests
		WHERE test_name = $1`

	var test domain.MedicalTest
	err := r.db.QueryRow(ctx, query, name).Scan(
		&test.ID,
		&test.TestName,
		&test.TestCode,
		&test.Description,
		&test.Category,
		&test.TypicalRange,
		&test.IsActive,
		&test.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("Medical test", name)
		}
		r.log.WithFields(logrus.Fields{
			"test_name": name,
			"error":     err,
		}).Error("Failed to get medical test by name")
		return nil, fmt.Errorf("getting medical test by name: %w", err)
	}

	return &test, nil
}

// MedicationByName retrieves a medication catalog row by its exact name
func (r *CatalogRepository) MedicationByName(ctx context.Context, name string) (*domain.Medication, error) {
	query := `
		SELECT id, medication_name, generic_name, brand_names, drug_class,
			   typical_dosage, contraindications, side_effects, is_active, created_at
		FROM medications
		WHERE medication_name = $1`

	var med domain.Medication
	var brandNamesJSON, contraindicationsJSON, sideEffectsJSON []byte

	err := r.db.QueryRow(ctx, query, name).Scan(
		&med.ID,
		&med.MedicationName,
		&med.GenericName,
		&brandNamesJSON,
		&med.DrugClass,
		&med.TypicalDosage,
		&contraindicationsJSON,
		&sideEffectsJSON,
		&med.IsActive,
		&med.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("Medication", name)
		}
		r.log.WithFields(logrus.Fields{
			"medication_name": name,
			"error":           err,
		}).Error("Failed to get medication by name")
		return nil, fmt.Errorf("getting medication by name: %w", err)
	}

	if err := json.Unmarshal(brandNamesJSON, &med.BrandNames); err != nil {
		return nil, fmt.Errorf("unmarshaling brand names: %w", err)
	}
	if err := json.Unmarshal(contraindicationsJSON, &med.Contraindications); err != nil {
		return nil, fmt.Errorf("unmarshaling contraindications: %w", err)
	}
	if err := json.Unmarshal(sideEffectsJSON, &med.SideEffects); err != nil {
		return nil, fmt.Errorf("unmarshaling side effects: %w", err)
	}

	return &med, nil
}
