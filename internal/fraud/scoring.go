package fraud

import (
	"math"
	"time"

	"github.com/richxcame/agroverify/internal/applications"
	"github.com/richxcame/agroverify/internal/evidence"
)

const (
	// Evidence confidence assumed when a chain produced nothing.
	// Neutral on purpose: absent evidence raises the score through the
	// confidence penalty without dominating it.
	defaultConfidence = 50.0

	sizeScoreWeight       = 0.6
	confidenceWeight      = 0.4
	documentMismatchLimit = 20.0 // percent
	documentMismatchScore = 20.0
)

// Analyzer turns a loan application and its evidence bundle into a
// fraud analysis. All methods are pure; the analyzer holds only
// configuration.
type Analyzer struct {
	loanPerHectareCeiling float64
}

func NewAnalyzer(loanPerHectareCeiling float64) *Analyzer {
	if loanPerHectareCeiling <= 0 {
		loanPerHectareCeiling = 100000
	}
	return &Analyzer{loanPerHectareCeiling: loanPerHectareCeiling}
}

func (a *Analyzer) Analyze(app *applications.LoanApplication, bundle evidence.Bundle) *FraudAnalysis {
	confidence := ConfidenceScores{
		OCR:       defaultConfidence,
		Satellite: defaultConfidence,
	}
	if bundle.Text.IsPresent() {
		confidence.OCR = bundle.Text.Confidence
	}
	if bundle.Satellite.IsPresent() {
		confidence.Satellite = bundle.Satellite.Confidence
	}
	confidence.Overall = (confidence.OCR + confidence.Satellite) / 2

	var (
		sizeScore             float64
		sizeDifference        *float64
		sizeDifferencePercent *float64
	)
	if bundle.Satellite.IsPresent() && bundle.Satellite.DetectedHectares != nil && app.ClaimedLandSize > 0 {
		diff := math.Abs(app.ClaimedLandSize - *bundle.Satellite.DetectedHectares)
		pct := diff / app.ClaimedLandSize * 100
		sizeScore = sizeDifferenceScore(pct)
		sizeDifference = &diff
		sizeDifferencePercent = &pct
	}

	var flatPenalty float64
	if bundle.Text.IsPresent() && bundle.Text.LandSizeHectares != nil && app.ClaimedLandSize > 0 {
		ocrDiffPct := math.Abs(app.ClaimedLandSize-*bundle.Text.LandSizeHectares) / app.ClaimedLandSize * 100
		if ocrDiffPct > documentMismatchLimit {
			flatPenalty += documentMismatchScore
		}
	}

	penalty := confidencePenalty(confidence.OCR, confidence.Satellite)
	score := clampScore(sizeScore*sizeScoreWeight + penalty*confidenceWeight + flatPenalty)

	level := classifyScore(score)

	analysis := &FraudAnalysis{
		Score:                 score,
		RiskLevel:             level,
		VerificationStatus:    verificationFor(level),
		SizeDifference:        sizeDifference,
		SizeDifferencePercent: sizeDifferencePercent,
		Confidence:            confidence,
		Metadata: AnalysisMetadata{
			ClaimedSize:            app.ClaimedLandSize,
			OCRExtractedSize:       bundle.Text.LandSizeHectares,
			DetectedSize:           bundle.Satellite.DetectedHectares,
			OCRAvailable:           bundle.Text.IsPresent(),
			OCRFailureReason:       bundle.Text.FailureReason,
			SatelliteAvailable:     bundle.Satellite.IsPresent(),
			SatelliteFailureReason: bundle.Satellite.FailureReason,
			SatelliteSource:        bundle.Satellite.Source,
			EvaluatedAt:            time.Now().UTC(),
		},
	}

	analysis.RiskFactors = a.assessRiskFactors(app, bundle)
	analysis.Recommendations = buildRecommendations(analysis)

	return analysis
}

// sizeDifferenceScore maps the claimed-vs-detected gap to a tiered
// score. The tiers are inclusive at the upper edge: a 5% gap is still
// a perfect match.
func sizeDifferenceScore(pct float64) float64 {
	switch {
	case pct <= 5:
		return 0
	case pct <= 10:
		return 10
	case pct <= 20:
		return 25
	case pct <= 50:
		return 50
	case pct <= 100:
		return 75
	default:
		return 100
	}
}

// confidencePenalty grows as evidence confidence shrinks: two fully
// confident sources yield 0, two absent sources yield 25.
func confidencePenalty(ocrConfidence, satelliteConfidence float64) float64 {
	return (200 - ocrConfidence - satelliteConfidence) / 4
}

func clampScore(v float64) int {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return int(math.Round(v))
}

// classifyScore applies the tier thresholds; lower boundaries are
// inclusive, so 20 is still LOW and 60 still MEDIUM.
func classifyScore(score int) RiskLevel {
	switch {
	case score <= 20:
		return RiskLow
	case score <= 60:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func verificationFor(level RiskLevel) VerificationStatus {
	switch level {
	case RiskLow:
		return VerificationApproved
	case RiskMedium:
		return VerificationNeedsReview
	default:
		return VerificationRejected
	}
}
