package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/agroverify/internal/applications"
	"github.com/richxcame/agroverify/internal/evidence"
	"github.com/richxcame/agroverify/pkg/common"
	"github.com/richxcame/agroverify/pkg/logger"
)

// Collector is the evidence-gathering side of an evaluation
type Collector interface {
	Collect(ctx context.Context, documentKey string, latitude, longitude float64) evidence.Bundle
}

// failWriteTimeout bounds the FAILED transition. The write runs on a
// detached context because the evaluation context may already be the
// reason the pipeline is failing.
const failWriteTimeout = 5 * time.Second

// Service runs the evaluation pipeline for one application at a time:
// claim the application, collect evidence, persist it, score, persist
// the analysis.
type Service struct {
	repo      applications.Repository
	collector Collector
	analyzer  *Analyzer
}

func NewService(repo applications.Repository, collector Collector, analyzer *Analyzer) *Service {
	return &Service{
		repo:      repo,
		collector: collector,
		analyzer:  analyzer,
	}
}

// Evaluate runs one full evaluation. It returns a Conflict error when
// the application is already PROCESSING and a NotFound error for an
// unknown id. Persistence failures after the claim drive the
// application to FAILED before returning.
func (s *Service) Evaluate(ctx context.Context, id uuid.UUID) (*FraudAnalysis, error) {
	started := time.Now()
	log := logger.WithContext(ctx).With(zap.String("application_id", id.String()))

	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, applications.ErrNotFound) {
			recordEvaluation("not_found", started)
			return nil, common.NewNotFoundError("application not found", err)
		}
		recordEvaluation("error", started)
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	if err := s.repo.BeginProcessing(ctx, id); err != nil {
		if errors.Is(err, applications.ErrAlreadyProcessing) {
			recordEvaluation("conflict", started)
			return nil, common.NewConflictError("application is already being processed")
		}
		if errors.Is(err, applications.ErrNotFound) {
			recordEvaluation("not_found", started)
			return nil, common.NewNotFoundError("application not found", err)
		}
		recordEvaluation("error", started)
		return nil, fmt.Errorf("failed to claim application: %w", err)
	}

	log.Info("evaluation started",
		zap.Float64("claimed_land_size", app.ClaimedLandSize),
		zap.Float64("loan_amount", app.LoanAmount))

	bundle := s.collector.Collect(ctx, app.DocumentKey, app.Latitude, app.Longitude)
	if !bundle.Text.IsPresent() {
		recordEvidenceFailure("text")
	}
	if !bundle.Satellite.IsPresent() {
		recordEvidenceFailure("satellite")
	}

	if err := s.repo.SaveEvidence(ctx, id, toOCRSnapshot(bundle.Text), toSatelliteSnapshot(bundle.Satellite)); err != nil {
		return nil, s.fail(ctx, id, started, fmt.Errorf("failed to persist evidence: %w", err))
	}

	analysis := s.analyzer.Analyze(app, bundle)

	record, err := toAnalysisRecord(analysis)
	if err != nil {
		return nil, s.fail(ctx, id, started, fmt.Errorf("failed to encode analysis: %w", err))
	}
	if err := s.repo.CompleteAnalysis(ctx, id, record); err != nil {
		return nil, s.fail(ctx, id, started, fmt.Errorf("failed to persist analysis: %w", err))
	}

	recordEvaluation("completed", started)
	recordRiskLevel(analysis.RiskLevel)
	log.Info("evaluation completed",
		zap.Int("fraud_score", analysis.Score),
		zap.String("risk_level", string(analysis.RiskLevel)),
		zap.String("verification_status", string(analysis.VerificationStatus)),
		zap.Duration("duration", time.Since(started)))

	return analysis, nil
}

// Fail moves the application to FAILED. Used by the worker when a job
// panics or times out outside the service's own error paths.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
	defer cancel()
	if err := s.repo.MarkFailed(markCtx, id, reason); err != nil {
		return fmt.Errorf("failed to mark application failed: %w", err)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, started time.Time, cause error) error {
	recordEvaluation("failed", started)
	logger.WithContext(ctx).Error("evaluation failed",
		zap.String("application_id", id.String()),
		zap.Error(cause))

	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
	defer cancel()
	if err := s.repo.MarkFailed(markCtx, id, cause.Error()); err != nil {
		logger.WithContext(ctx).Error("failed to mark application failed",
			zap.String("application_id", id.String()),
			zap.Error(err))
	}
	return cause
}

func toOCRSnapshot(text evidence.TextEvidence) *applications.OCRSnapshot {
	return &applications.OCRSnapshot{
		Outcome:       string(text.Status),
		FailureReason: text.FailureReason,
		Text:          text.Text,
		Confidence:    text.Confidence,
		ExtractedSize: text.LandSizeHectares,
	}
}

func toSatelliteSnapshot(sat evidence.SatelliteEvidence) *applications.SatelliteSnapshot {
	return &applications.SatelliteSnapshot{
		Outcome:       string(sat.Status),
		FailureReason: sat.FailureReason,
		ImageURL:      sat.ImageURL,
		Source:        sat.Source,
		DetectedSize:  sat.DetectedHectares,
		Confidence:    sat.Confidence,
	}
}

func toAnalysisRecord(analysis *FraudAnalysis) (*applications.AnalysisRecord, error) {
	factors, err := json.Marshal(analysis.RiskFactors)
	if err != nil {
		return nil, err
	}
	recommendations, err := json.Marshal(analysis.Recommendations)
	if err != nil {
		return nil, err
	}
	confidence, err := json.Marshal(analysis.Confidence)
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(analysis.Metadata)
	if err != nil {
		return nil, err
	}

	return &applications.AnalysisRecord{
		FraudScore:            analysis.Score,
		RiskLevel:             string(analysis.RiskLevel),
		SizeDifference:        analysis.SizeDifference,
		SizeDifferencePercent: analysis.SizeDifferencePercent,
		VerificationStatus:    string(analysis.VerificationStatus),
		RiskFactors:           factors,
		Recommendations:       recommendations,
		ConfidenceScores:      confidence,
		AnalysisMetadata:      metadata,
	}, nil
}
