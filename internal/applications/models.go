package applications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the application lifecycle state. SUBMITTED moves to
// PROCESSING when an evaluation starts; PROCESSING ends in COMPLETED
// or FAILED. Terminal states may re-enter PROCESSING on re-evaluation.
type Status string

const (
	StatusSubmitted  Status = "SUBMITTED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// OCRSnapshot is the persisted document-evidence outcome
type OCRSnapshot struct {
	Outcome       string   `json:"outcome"`
	FailureReason string   `json:"failure_reason,omitempty"`
	Text          string   `json:"text,omitempty"`
	Confidence    float64  `json:"confidence"`
	ExtractedSize *float64 `json:"extracted_size,omitempty"`
}

// SatelliteSnapshot is the persisted satellite-evidence outcome
type SatelliteSnapshot struct {
	Outcome       string   `json:"outcome"`
	FailureReason string   `json:"failure_reason,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	Source        string   `json:"source,omitempty"`
	DetectedSize  *float64 `json:"detected_size,omitempty"`
	Confidence    float64  `json:"confidence"`
}

// AnalysisRecord is a completed fraud analysis in its persisted form.
// The structured slices are stored as jsonb so the analysis schema can
// evolve without migrations.
type AnalysisRecord struct {
	FraudScore            int             `json:"fraud_score"`
	RiskLevel             string          `json:"risk_level"`
	SizeDifference        *float64        `json:"size_difference,omitempty"`
	SizeDifferencePercent *float64        `json:"size_difference_percent,omitempty"`
	VerificationStatus    string          `json:"verification_status"`
	RiskFactors           json.RawMessage `json:"risk_factors"`
	Recommendations       json.RawMessage `json:"recommendations"`
	ConfidenceScores      json.RawMessage `json:"confidence_scores"`
	AnalysisMetadata      json.RawMessage `json:"analysis_metadata"`
}

// LoanApplication is the aggregate root: one row per submitted loan
// application, carrying the claim, the collected evidence snapshots,
// and the latest completed analysis.
type LoanApplication struct {
	ID               uuid.UUID `json:"id"`
	ApplicantName    string    `json:"applicant_name"`
	ApplicantPhone   string    `json:"applicant_phone"`
	ApplicantAddress string    `json:"applicant_address,omitempty"`
	LoanAmount       float64   `json:"loan_amount"`
	LoanPurpose      string    `json:"loan_purpose,omitempty"`
	ClaimedLandSize  float64   `json:"claimed_land_size"` // hectares
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	DocumentKey      string    `json:"document_key,omitempty"`
	DocumentType     string    `json:"document_type,omitempty"`

	Status    Status             `json:"status"`
	OCR       *OCRSnapshot       `json:"ocr,omitempty"`
	Satellite *SatelliteSnapshot `json:"satellite,omitempty"`

	FraudScore            *int            `json:"fraud_score,omitempty"`
	RiskLevel             *string         `json:"risk_level,omitempty"`
	SizeDifference        *float64        `json:"size_difference,omitempty"`
	SizeDifferencePercent *float64        `json:"size_difference_percent,omitempty"`
	VerificationStatus    *string         `json:"verification_status,omitempty"`
	RiskFactors           json.RawMessage `json:"risk_factors,omitempty"`
	Recommendations       json.RawMessage `json:"recommendations,omitempty"`
	ConfidenceScores      json.RawMessage `json:"confidence_scores,omitempty"`
	AnalysisMetadata      json.RawMessage `json:"analysis_metadata,omitempty"`

	SubmittedAt time.Time  `json:"submitted_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ListFilter narrows application listings
type ListFilter struct {
	Status    string
	RiskLevel string
	Limit     int
	Offset    int
}

// Statistics aggregates the portfolio for dashboards
type Statistics struct {
	TotalApplications int64            `json:"total_applications"`
	ByStatus          map[string]int64 `json:"by_status"`
	ByRiskLevel       map[string]int64 `json:"by_risk_level"`
	AverageFraudScore *float64         `json:"average_fraud_score,omitempty"`
}
