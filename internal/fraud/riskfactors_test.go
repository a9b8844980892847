package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/agroverify/internal/evidence"
)

func factorCodes(factors []RiskFactor) []string {
	codes := make([]string, 0, len(factors))
	for _, f := range factors {
		codes = append(codes, f.Code)
	}
	return codes
}

func TestAssessRiskFactors_CleanApplication(t *testing.T) {
	analyzer := NewAnalyzer(100000)
	app := testApplication(10, 500000) // 50000 per hectare
	bundle := fullBundle(floatPtr(10), 85, floatPtr(9.8), 80)

	factors := analyzer.assessRiskFactors(app, bundle)

	assert.Empty(t, factors)
}

func TestAssessRiskFactors_HighLoanToLandRatio(t *testing.T) {
	analyzer := NewAnalyzer(100000)
	app := testApplication(5, 1000000) // 200000 per hectare
	bundle := fullBundle(floatPtr(5), 85, floatPtr(5), 80)

	factors := analyzer.assessRiskFactors(app, bundle)

	require.Len(t, factors, 1)
	assert.Equal(t, FactorHighLoanToLandRatio, factors[0].Code)
	assert.Equal(t, RiskMedium, factors[0].Severity)
}

func TestAssessRiskFactors_ConfigurableCeiling(t *testing.T) {
	analyzer := NewAnalyzer(250000)
	app := testApplication(5, 1000000) // 200000 per hectare, under the raised ceiling
	bundle := fullBundle(floatPtr(5), 85, floatPtr(5), 80)

	assert.Empty(t, analyzer.assessRiskFactors(app, bundle))
}

func TestAssessRiskFactors_LowSatelliteConfidence(t *testing.T) {
	analyzer := NewAnalyzer(100000)
	app := testApplication(10, 500000)
	bundle := fullBundle(floatPtr(10), 85, floatPtr(10), 25)

	factors := analyzer.assessRiskFactors(app, bundle)

	assert.Contains(t, factorCodes(factors), FactorLowSatelliteConfidence)
}

func TestAssessRiskFactors_AbsentSatelliteDoesNotFlagConfidence(t *testing.T) {
	analyzer := NewAnalyzer(100000)
	app := testApplication(10, 500000)
	bundle := fullBundle(floatPtr(10), 85, floatPtr(10), 80)
	bundle.Satellite = evidence.SatelliteEvidence{Outcome: evidence.Absent("providers down")}

	factors := analyzer.assessRiskFactors(app, bundle)

	assert.NotContains(t, factorCodes(factors), FactorLowSatelliteConfidence)
}

func TestAssessRiskFactors_OCRExtractionFailed(t *testing.T) {
	analyzer := NewAnalyzer(100000)
	app := testApplication(10, 500000)

	// Text extracted but no size found
	noSize := fullBundle(nil, 85, floatPtr(10), 80)
	assert.Contains(t, factorCodes(analyzer.assessRiskFactors(app, noSize)), FactorOCRExtractionFailed)

	// Extraction failed outright
	failed := fullBundle(nil, 0, floatPtr(10), 80)
	failed.Text = evidence.TextEvidence{Outcome: evidence.Absent("ocr timeout")}
	assert.Contains(t, factorCodes(analyzer.assessRiskFactors(app, failed)), FactorOCRExtractionFailed)
}

func TestAssessRiskFactors_NoDocumentNoOCRFactor(t *testing.T) {
	analyzer := NewAnalyzer(100000)
	app := testApplication(10, 500000)
	app.DocumentKey = ""
	bundle := fullBundle(nil, 0, floatPtr(10), 80)
	bundle.Text = evidence.TextEvidence{Outcome: evidence.Absent("no document provided")}

	factors := analyzer.assessRiskFactors(app, bundle)

	assert.NotContains(t, factorCodes(factors), FactorOCRExtractionFailed)
}

func TestAssessRiskFactors_SuspiciousCoordinates(t *testing.T) {
	analyzer := NewAnalyzer(100000)
	bundle := fullBundle(floatPtr(10), 85, floatPtr(10), 80)

	nullIsland := testApplication(10, 500000)
	nullIsland.Latitude, nullIsland.Longitude = 0, 0
	factors := analyzer.assessRiskFactors(nullIsland, bundle)
	require.Len(t, factors, 1)
	assert.Equal(t, FactorSuspiciousCoordinates, factors[0].Code)
	assert.Equal(t, RiskHigh, factors[0].Severity)

	polar := testApplication(10, 500000)
	polar.Latitude = -85.2
	assert.Contains(t, factorCodes(analyzer.assessRiskFactors(polar, bundle)), FactorSuspiciousCoordinates)
}

func TestAssessRiskFactors_StableOrder(t *testing.T) {
	analyzer := NewAnalyzer(100000)
	app := testApplication(1, 1000000)
	app.Latitude, app.Longitude = 0, 0
	bundle := fullBundle(nil, 10, floatPtr(1), 10)

	factors := analyzer.assessRiskFactors(app, bundle)

	assert.Equal(t, []string{
		FactorHighLoanToLandRatio,
		FactorLowSatelliteConfidence,
		FactorOCRExtractionFailed,
		FactorSuspiciousCoordinates,
	}, factorCodes(factors))
}
