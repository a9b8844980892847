package evidence

import (
	"context"
	"time"
)

// OutcomeStatus tags whether an evidence chain produced a value
type OutcomeStatus string

const (
	OutcomePresent OutcomeStatus = "present"
	OutcomeAbsent  OutcomeStatus = "absent"
)

// Outcome records how an evidence chain ended. A chain is either
// present (the provider answered) or absent with the failure reason.
// "Answered but nothing usable was found" is still present; the
// payload carries a nil value in that case.
type Outcome struct {
	Status        OutcomeStatus `json:"status"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

// Present returns a successful outcome
func Present() Outcome {
	return Outcome{Status: OutcomePresent}
}

// Absent returns a failed outcome carrying the reason
func Absent(reason string) Outcome {
	return Outcome{Status: OutcomeAbsent, FailureReason: reason}
}

// IsPresent reports whether the chain produced a value
func (o Outcome) IsPresent() bool {
	return o.Status == OutcomePresent
}

// TextEvidence is the document-extraction chain result.
// LandSizeHectares is nil when the text was extracted but no
// recognizable land size could be parsed from it.
type TextEvidence struct {
	Outcome
	Text             string   `json:"text,omitempty"`
	Confidence       float64  `json:"confidence"`
	LandSizeHectares *float64 `json:"land_size_hectares,omitempty"`
}

// SatelliteEvidence is the satellite-fetch-then-detect chain result
type SatelliteEvidence struct {
	Outcome
	ImageURL         string   `json:"image_url,omitempty"`
	Source           string   `json:"source,omitempty"`
	DetectedHectares *float64 `json:"detected_hectares,omitempty"`
	Confidence       float64  `json:"confidence"`
}

// Bundle is the joined output of both evidence chains
type Bundle struct {
	Text      TextEvidence      `json:"text"`
	Satellite SatelliteEvidence `json:"satellite"`
}

// ExtractionResult is the raw output of the document text extractor
type ExtractionResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// SatelliteImage is the output of the satellite image fetcher
type SatelliteImage struct {
	ImageURL    string    `json:"image_url"`
	Source      string    `json:"source"`
	Resolution  string    `json:"resolution"`
	CaptureDate time.Time `json:"capture_date"`
}

// AreaDetection is the output of the land-area detector
type AreaDetection struct {
	DetectedHectares float64 `json:"detected_hectares"`
	Confidence       float64 `json:"confidence"`
}

// TextExtractor extracts text from a stored loan document
type TextExtractor interface {
	ExtractText(ctx context.Context, documentKey string) (*ExtractionResult, error)
}

// ImageFetcher acquires recent satellite imagery for a coordinate.
// Implementations fall back across providers internally and expose a
// single success/failure outcome.
type ImageFetcher interface {
	FetchImage(ctx context.Context, latitude, longitude float64) (*SatelliteImage, error)
}

// AreaDetector estimates cultivated area from a satellite image
type AreaDetector interface {
	DetectArea(ctx context.Context, imageURL string) (*AreaDetection, error)
}
