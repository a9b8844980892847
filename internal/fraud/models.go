package fraud

import (
	"time"
)

// RiskLevel classifies a fraud score into an operational tier
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// VerificationStatus is the loan-side decision derived from the tier
type VerificationStatus string

const (
	VerificationApproved    VerificationStatus = "APPROVED"
	VerificationNeedsReview VerificationStatus = "NEEDS_REVIEW"
	VerificationRejected    VerificationStatus = "REJECTED"
)

// Risk factor codes raised by the assessor
const (
	FactorHighLoanToLandRatio    = "HIGH_LOAN_TO_LAND_RATIO"
	FactorLowSatelliteConfidence = "LOW_SATELLITE_CONFIDENCE"
	FactorOCRExtractionFailed    = "OCR_EXTRACTION_FAILED"
	FactorSuspiciousCoordinates  = "SUSPICIOUS_COORDINATES"
)

// RiskFactor is a discrete finding independent of the numeric score
type RiskFactor struct {
	Code        string    `json:"code"`
	Severity    RiskLevel `json:"severity"`
	Description string    `json:"description"`
}

// ConfidenceScores carries the evidence confidences used in scoring
// and their average. Absent evidence defaults to 50 so degraded runs
// stay scoreable.
type ConfidenceScores struct {
	OCR       float64 `json:"ocr"`
	Satellite float64 `json:"satellite"`
	Overall   float64 `json:"overall"`
}

// AnalysisMetadata records how the evidence collection went and the
// land sizes the scoring actually saw
type AnalysisMetadata struct {
	ClaimedSize            float64   `json:"claimed_size"`
	OCRExtractedSize       *float64  `json:"ocr_extracted_size,omitempty"`
	DetectedSize           *float64  `json:"detected_size,omitempty"`
	OCRAvailable           bool      `json:"ocr_available"`
	OCRFailureReason       string    `json:"ocr_failure_reason,omitempty"`
	SatelliteAvailable     bool      `json:"satellite_available"`
	SatelliteFailureReason string    `json:"satellite_failure_reason,omitempty"`
	SatelliteSource        string    `json:"satellite_source,omitempty"`
	EvaluatedAt            time.Time `json:"evaluated_at"`
}

// FraudAnalysis is the full result of one evaluation run
type FraudAnalysis struct {
	Score                 int                `json:"score"`
	RiskLevel             RiskLevel          `json:"risk_level"`
	VerificationStatus    VerificationStatus `json:"verification_status"`
	SizeDifference        *float64           `json:"size_difference,omitempty"`
	SizeDifferencePercent *float64           `json:"size_difference_percent,omitempty"`
	RiskFactors           []RiskFactor       `json:"risk_factors"`
	Recommendations       []string           `json:"recommendations"`
	Confidence            ConfidenceScores   `json:"confidence"`
	Metadata              AnalysisMetadata   `json:"metadata"`
}
