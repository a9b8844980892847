package applications

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const applicationColumns = `
	id, applicant_name, applicant_phone, applicant_address,
	loan_amount, loan_purpose, claimed_land_size, latitude, longitude,
	document_key, document_type, status,
	ocr_outcome, ocr_failure_reason, ocr_text, ocr_confidence, ocr_extracted_size,
	satellite_outcome, satellite_failure_reason, satellite_image_url,
	satellite_source, satellite_detected_size, satellite_confidence,
	fraud_score, risk_level, size_difference, size_difference_percent,
	verification_status, risk_factors, recommendations,
	confidence_scores, analysis_metadata,
	submitted_at, processed_at, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, app *LoanApplication) error {
	query := `
		INSERT INTO loan_applications (
			id, applicant_name, applicant_phone, applicant_address,
			loan_amount, loan_purpose, claimed_land_size, latitude, longitude,
			document_key, document_type, status, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING submitted_at, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		app.ID, app.ApplicantName, app.ApplicantPhone, app.ApplicantAddress,
		app.LoanAmount, app.LoanPurpose, app.ClaimedLandSize, app.Latitude, app.Longitude,
		app.DocumentKey, app.DocumentType, app.Status,
	).Scan(&app.SubmittedAt, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE id = $1`

	app, err := scanApplication(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*LoanApplication, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.RiskLevel != "" {
		args = append(args, filter.RiskLevel)
		conditions = append(conditions, "risk_level = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + applicationColumns + ` FROM loan_applications`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY submitted_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*LoanApplication
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (r *PostgresRepository) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		ByStatus:    make(map[string]int64),
		ByRiskLevel: make(map[string]int64),
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM loan_applications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate statuses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
		stats.TotalApplications += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	riskRows, err := r.pool.Query(ctx, `
		SELECT risk_level, COUNT(*) FROM loan_applications
		WHERE risk_level IS NOT NULL GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate risk levels: %w", err)
	}
	defer riskRows.Close()
	for riskRows.Next() {
		var level string
		var count int64
		if err := riskRows.Scan(&level, &count); err != nil {
			return nil, err
		}
		stats.ByRiskLevel[level] = count
	}
	if err := riskRows.Err(); err != nil {
		return nil, err
	}

	var avg *float64
	err = r.pool.QueryRow(ctx, `SELECT AVG(fraud_score) FROM loan_applications WHERE fraud_score IS NOT NULL`).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("failed to average scores: %w", err)
	}
	stats.AverageFraudScore = avg

	return stats, nil
}

func (r *PostgresRepository) SetDocument(ctx context.Context, id uuid.UUID, documentKey, documentType string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE loan_applications
		SET document_key = $2, document_type = $3, updated_at = NOW()
		WHERE id = $1`, id, documentKey, documentType)
	if err != nil {
		return fmt.Errorf("failed to attach document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) BeginProcessing(ctx context.Context, id uuid.UUID) error {
	// The WHERE clause is the atomic check-and-set: zero rows on an
	// existing application means it is already PROCESSING.
	tag, err := r.pool.Exec(ctx, `
		UPDATE loan_applications
		SET status = 'PROCESSING', updated_at = NOW()
		WHERE id = $1 AND status <> 'PROCESSING'`, id)
	if err != nil {
		return fmt.Errorf("failed to begin processing: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM loan_applications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check application: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyProcessing
}

func (r *PostgresRepository) SaveEvidence(ctx context.Context, id uuid.UUID, ocr *OCRSnapshot, satellite *SatelliteSnapshot) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE loan_applications SET
			ocr_outcome = $2, ocr_failure_reason = $3, ocr_text = $4,
			ocr_confidence = $5, ocr_extracted_size = $6,
			satellite_outcome = $7, satellite_failure_reason = $8,
			satellite_image_url = $9, satellite_source = $10,
			satellite_detected_size = $11, satellite_confidence = $12,
			updated_at = NOW()
		WHERE id = $1`,
		id,
		ocr.Outcome, nullable(ocr.FailureReason), nullable(ocr.Text),
		ocr.Confidence, ocr.ExtractedSize,
		satellite.Outcome, nullable(satellite.FailureReason),
		nullable(satellite.ImageURL), nullable(satellite.Source),
		satellite.DetectedSize, satellite.Confidence,
	)
	if err != nil {
		return fmt.Errorf("failed to save evidence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CompleteAnalysis(ctx context.Context, id uuid.UUID, record *AnalysisRecord) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE loan_applications SET
			status = 'COMPLETED',
			fraud_score = $2, risk_level = $3,
			size_difference = $4, size_difference_percent = $5,
			verification_status = $6,
			risk_factors = $7, recommendations = $8,
			confidence_scores = $9, analysis_metadata = $10,
			processed_at = NOW(), updated_at = NOW()
		WHERE id = $1`,
		id,
		record.FraudScore, record.RiskLevel,
		record.SizeDifference, record.SizeDifferencePercent,
		record.VerificationStatus,
		record.RiskFactors, record.Recommendations,
		record.ConfidenceScores, record.AnalysisMetadata,
	)
	if err != nil {
		return fmt.Errorf("failed to complete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE loan_applications SET
			status = 'FAILED',
			verification_status = 'NEEDS_REVIEW',
			failure_reason = $2,
			updated_at = NOW()
		WHERE id = $1`, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark application failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*LoanApplication, error) {
	var (
		app LoanApplication

		ocrOutcome, ocrFailure, ocrText         *string
		ocrConfidence, ocrExtracted             *float64
		satOutcome, satFailure, satURL, satSrc  *string
		satDetected, satConfidence              *float64
	)

	err := row.Scan(
		&app.ID, &app.ApplicantName, &app.ApplicantPhone, &app.ApplicantAddress,
		&app.LoanAmount, &app.LoanPurpose, &app.ClaimedLandSize, &app.Latitude, &app.Longitude,
		&app.DocumentKey, &app.DocumentType, &app.Status,
		&ocrOutcome, &ocrFailure, &ocrText, &ocrConfidence, &ocrExtracted,
		&satOutcome, &satFailure, &satURL, &satSrc, &satDetected, &satConfidence,
		&app.FraudScore, &app.RiskLevel, &app.SizeDifference, &app.SizeDifferencePercent,
		&app.VerificationStatus, &app.RiskFactors, &app.Recommendations,
		&app.ConfidenceScores, &app.AnalysisMetadata,
		&app.SubmittedAt, &app.ProcessedAt, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ocrOutcome != nil {
		app.OCR = &OCRSnapshot{
			Outcome:       *ocrOutcome,
			FailureReason: deref(ocrFailure),
			Text:          deref(ocrText),
			Confidence:    derefFloat(ocrConfidence),
			ExtractedSize: ocrExtracted,
		}
	}
	if satOutcome != nil {
		app.Satellite = &SatelliteSnapshot{
			Outcome:       *satOutcome,
			FailureReason: deref(satFailure),
			ImageURL:      deref(satURL),
			Source:        deref(satSrc),
			DetectedSize:  satDetected,
			Confidence:    derefFloat(satConfidence),
		}
	}

	return &app, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
