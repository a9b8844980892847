package applications

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/agroverify/pkg/common"
	"github.com/richxcame/agroverify/pkg/logger"
	"github.com/richxcame/agroverify/pkg/storage"
)

// Evaluator accepts an application for asynchronous fraud evaluation
type Evaluator interface {
	Submit(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	repo      Repository
	evaluator Evaluator
	storage   storage.Storage
}

func NewHandler(repo Repository, evaluator Evaluator, store storage.Storage) *Handler {
	return &Handler{repo: repo, evaluator: evaluator, storage: store}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications", h.Create)
	rg.GET("/applications", h.List)
	rg.GET("/applications/:id", h.Get)
	rg.POST("/applications/:id/document", h.UploadDocument)
	rg.GET("/statistics", h.Statistics)
}

type CreateApplicationRequest struct {
	ApplicantName    string  `json:"applicant_name" binding:"required"`
	ApplicantPhone   string  `json:"applicant_phone" binding:"required"`
	ApplicantAddress string  `json:"applicant_address"`
	LoanAmount       float64 `json:"loan_amount" binding:"required,gt=0"`
	LoanPurpose      string  `json:"loan_purpose"`
	ClaimedLandSize  float64 `json:"claimed_land_size" binding:"required,gt=0"`
	Latitude         float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude        float64 `json:"longitude" binding:"min=-180,max=180"`
	DocumentKey      string  `json:"document_key"`
	DocumentType     string  `json:"document_type"`
}

// Create registers a loan application and queues its first evaluation
func (h *Handler) Create(c *gin.Context) {
	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	app := &LoanApplication{
		ID:               uuid.New(),
		ApplicantName:    req.ApplicantName,
		ApplicantPhone:   req.ApplicantPhone,
		ApplicantAddress: req.ApplicantAddress,
		LoanAmount:       req.LoanAmount,
		LoanPurpose:      req.LoanPurpose,
		ClaimedLandSize:  req.ClaimedLandSize,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		DocumentKey:      req.DocumentKey,
		DocumentType:     req.DocumentType,
		Status:           StatusSubmitted,
	}

	if err := h.repo.Create(c.Request.Context(), app); err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to create application", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to create application")
		return
	}

	if h.evaluator != nil {
		if err := h.evaluator.Submit(c.Request.Context(), app.ID); err != nil {
			// The application is stored; evaluation can be retriggered
			// through the evaluate endpoint.
			logger.WithContext(c.Request.Context()).Warn("failed to queue initial evaluation",
				zap.String("application_id", app.ID.String()),
				zap.Error(err))
		}
	}

	common.CreatedResponse(c, app)
}

var allowedDocumentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

const maxDocumentSize = 10 << 20 // 10 MiB

// UploadDocument stores a land document for the application and
// attaches its storage key
func (h *Handler) UploadDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid application id")
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Missing document file")
		return
	}
	if fileHeader.Size > maxDocumentSize {
		common.ErrorResponse(c, http.StatusBadRequest, "Document exceeds the 10MB limit")
		return
	}

	mimeType := storage.GetMimeTypeFromExtension(fileHeader.Filename)
	if !storage.ValidateMimeType(mimeType, allowedDocumentTypes) {
		common.ErrorResponse(c, http.StatusBadRequest, "Unsupported document type, use JPEG, PNG or PDF")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Unable to read document")
		return
	}
	defer file.Close()

	key := storage.GenerateDocumentKey(id, fileHeader.Filename)
	result, err := h.storage.Upload(c.Request.Context(), key, file, fileHeader.Size, mimeType)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to upload document",
			zap.String("application_id", id.String()),
			zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to store document")
		return
	}

	documentType := c.DefaultPostForm("document_type", "land_certificate")
	if err := h.repo.SetDocument(c.Request.Context(), id, key, documentType); err != nil {
		if err == ErrNotFound {
			common.ErrorResponse(c, http.StatusNotFound, "Application not found")
			return
		}
		logger.WithContext(c.Request.Context()).Error("failed to attach document", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to attach document")
		return
	}

	common.SuccessResponse(c, gin.H{
		"document_key": result.Key,
		"url":          result.URL,
		"size":         result.Size,
		"mime_type":    result.MimeType,
	})
}

// List returns applications, optionally filtered by status and risk level
func (h *Handler) List(c *gin.Context) {
	filter := ListFilter{
		Status:    c.Query("status"),
		RiskLevel: c.Query("risk_level"),
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filter.Offset = offset
	}

	apps, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to list applications", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to list applications")
		return
	}
	if apps == nil {
		apps = []*LoanApplication{}
	}

	common.SuccessResponse(c, gin.H{
		"applications": apps,
		"count":        len(apps),
	})
}

// Get returns a single application by id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid application id")
		return
	}

	app, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if err == ErrNotFound {
			common.ErrorResponse(c, http.StatusNotFound, "Application not found")
			return
		}
		logger.WithContext(c.Request.Context()).Error("failed to get application", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to get application")
		return
	}

	common.SuccessResponse(c, app)
}

// Statistics returns portfolio-level aggregates
func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.repo.Statistics(c.Request.Context())
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to compute statistics", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}

	common.SuccessResponse(c, stats)
}
