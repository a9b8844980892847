package fraud

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/agroverify/internal/applications"
	"github.com/richxcame/agroverify/pkg/common"
	"github.com/richxcame/agroverify/pkg/logger"
)

// Submitter queues evaluations; satisfied by *Worker
type Submitter interface {
	Submit(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	repo      applications.Repository
	submitter Submitter
}

func NewHandler(repo applications.Repository, submitter Submitter) *Handler {
	return &Handler{repo: repo, submitter: submitter}
}

// Evaluate queues a (re-)evaluation of the application
func (h *Handler) Evaluate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid application id")
		return
	}

	app, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, applications.ErrNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "Application not found")
			return
		}
		logger.WithContext(c.Request.Context()).Error("failed to load application", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to load application")
		return
	}

	// The worker re-checks atomically; this check keeps the common
	// double-submit answered synchronously.
	if app.Status == applications.StatusProcessing {
		common.ErrorResponse(c, http.StatusConflict, "Application is already being processed")
		return
	}

	if err := h.submitter.Submit(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrQueueFull) {
			common.ErrorResponse(c, http.StatusServiceUnavailable, "Evaluation queue is full, try again later")
			return
		}
		logger.WithContext(c.Request.Context()).Error("failed to queue evaluation", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to queue evaluation")
		return
	}

	common.AcceptedResponse(c, gin.H{
		"id":     id,
		"status": "queued",
	})
}

// Status returns the lifecycle state and the latest analysis summary
func (h *Handler) Status(c *gin.Context) {
	app, ok := h.loadApplication(c)
	if !ok {
		return
	}

	common.SuccessResponse(c, gin.H{
		"id":                  app.ID,
		"status":              app.Status,
		"fraud_score":         app.FraudScore,
		"risk_level":          app.RiskLevel,
		"verification_status": app.VerificationStatus,
		"processed_at":        app.ProcessedAt,
	})
}

// Report returns the application with its evidence snapshots and the
// full analysis
func (h *Handler) Report(c *gin.Context) {
	app, ok := h.loadApplication(c)
	if !ok {
		return
	}

	common.SuccessResponse(c, gin.H{
		"application": gin.H{
			"id":                app.ID,
			"applicant_name":    app.ApplicantName,
			"applicant_phone":   app.ApplicantPhone,
			"applicant_address": app.ApplicantAddress,
			"loan_amount":       app.LoanAmount,
			"loan_purpose":      app.LoanPurpose,
			"claimed_land_size": app.ClaimedLandSize,
			"latitude":          app.Latitude,
			"longitude":         app.Longitude,
			"document_key":      app.DocumentKey,
			"document_type":     app.DocumentType,
			"status":            app.Status,
			"submitted_at":      app.SubmittedAt,
			"processed_at":      app.ProcessedAt,
		},
		"evidence": gin.H{
			"ocr":       app.OCR,
			"satellite": app.Satellite,
		},
		"analysis": gin.H{
			"fraud_score":             app.FraudScore,
			"risk_level":              app.RiskLevel,
			"size_difference":         app.SizeDifference,
			"size_difference_percent": app.SizeDifferencePercent,
			"verification_status":     app.VerificationStatus,
			"risk_factors":            app.RiskFactors,
			"recommendations":         app.Recommendations,
			"confidence_scores":       app.ConfidenceScores,
			"metadata":                app.AnalysisMetadata,
		},
	})
}

func (h *Handler) loadApplication(c *gin.Context) (*applications.LoanApplication, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid application id")
		return nil, false
	}

	app, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, applications.ErrNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "Application not found")
			return nil, false
		}
		logger.WithContext(c.Request.Context()).Error("failed to load application", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to load application")
		return nil, false
	}
	return app, true
}
