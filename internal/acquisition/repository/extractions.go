package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/domain"
)

// RecordExtraction stores one contract-scoped OCR result.
func (r *Repository) RecordExtraction(ctx context.Context, contractID uuid.UUID, requested domain.DocumentType, result domain.ExtractionResult) error {
	fields, err := marshalJSON(result.Fields)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO ocr_extractions (id, contract_id, requested_type, detected_type, confidence, success, fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), contractID, string(requested), string(result.DetectedType), result.Confidence, result.Success, fields)
	if err != nil {
		return fmt.Errorf("record extraction: %w", err)
	}
	return nil
}
