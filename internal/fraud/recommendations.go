package fraud

const (
	lowDocumentConfidenceLimit     = 50.0
	lowSatelliteQualityLimit       = 40.0
	excellentMatchScoreLimit       = 10
	sizeDiscrepancyReviewPercent   = 25.0
	sizeDiscrepancyCriticalPercent = 50.0
)

// buildRecommendations produces reviewer guidance in a fixed order:
// the tier decision first, then size-discrepancy findings, then
// evidence-quality caveats, then one line per raised risk factor.
func buildRecommendations(analysis *FraudAnalysis) []string {
	recommendations := []string{}

	switch analysis.RiskLevel {
	case RiskLow:
		recommendations = append(recommendations, "Application approved. Claimed land size is consistent with the collected evidence.")
	case RiskMedium:
		recommendations = append(recommendations,
			"Manual review recommended before loan disbursement.",
			"Consider a physical site visit to confirm the cultivated area.",
			"Verify the land ownership documents against official records.")
	default:
		recommendations = append(recommendations,
			"Application rejected. Significant discrepancies detected between the claim and the evidence.",
			"Physical verification of the land is mandatory before reconsideration.",
			"Review all submitted documents for authenticity.")
	}

	if analysis.Score < excellentMatchScoreLimit {
		recommendations = append(recommendations, "Excellent match between claimed and detected land size.")
	}

	if analysis.SizeDifferencePercent != nil {
		switch {
		case *analysis.SizeDifferencePercent > sizeDiscrepancyCriticalPercent:
			recommendations = append(recommendations, "Claimed land size differs from the satellite measurement by more than 50%. Investigate ownership records before proceeding.")
		case *analysis.SizeDifferencePercent > sizeDiscrepancyReviewPercent:
			recommendations = append(recommendations, "Claimed land size differs from the satellite measurement by more than 25%. Verify the land boundaries.")
		}
	}

	if analysis.Metadata.OCRAvailable && analysis.Confidence.OCR < lowDocumentConfidenceLimit {
		recommendations = append(recommendations, "Document quality is low. Request clearer land ownership documents.")
	}
	if analysis.Metadata.SatelliteAvailable && analysis.Confidence.Satellite < lowSatelliteQualityLimit {
		recommendations = append(recommendations, "Satellite analysis confidence is low. Consider a field visit for verification.")
	}

	for _, factor := range analysis.RiskFactors {
		switch factor.Code {
		case FactorHighLoanToLandRatio:
			recommendations = append(recommendations, "Requested loan amount is high for the stated land size. Verify income projections.")
		case FactorLowSatelliteConfidence:
			recommendations = append(recommendations, "Satellite detection was uncertain for this field. Cross-check with cadastral data.")
		case FactorOCRExtractionFailed:
			recommendations = append(recommendations, "Land size could not be read from the submitted documents. Request resubmission.")
		case FactorSuspiciousCoordinates:
			recommendations = append(recommendations, "Provided coordinates are implausible for farmland. Confirm the field location with the applicant.")
		}
	}

	return recommendations
}
