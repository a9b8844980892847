package fraud

import (
	"fmt"
	"math"

	"github.com/richxcame/agroverify/internal/applications"
	"github.com/richxcame/agroverify/internal/evidence"
)

const (
	lowSatelliteConfidenceLimit = 30.0
	implausibleLatitudeLimit    = 80.0
)

// assessRiskFactors raises discrete findings independent of the
// numeric score. The order is fixed so repeated runs over the same
// evidence produce identical factor lists.
func (a *Analyzer) assessRiskFactors(app *applications.LoanApplication, bundle evidence.Bundle) []RiskFactor {
	factors := []RiskFactor{}

	if app.ClaimedLandSize > 0 && app.LoanAmount/app.ClaimedLandSize > a.loanPerHectareCeiling {
		factors = append(factors, RiskFactor{
			Code:     FactorHighLoanToLandRatio,
			Severity: RiskMedium,
			Description: fmt.Sprintf("Requested amount is %.0f per hectare, above the %.0f ceiling",
				app.LoanAmount/app.ClaimedLandSize, a.loanPerHectareCeiling),
		})
	}

	if bundle.Satellite.IsPresent() && bundle.Satellite.Confidence < lowSatelliteConfidenceLimit {
		factors = append(factors, RiskFactor{
			Code:     FactorLowSatelliteConfidence,
			Severity: RiskLow,
			Description: fmt.Sprintf("Satellite detection confidence %.0f is below %.0f",
				bundle.Satellite.Confidence, lowSatelliteConfidenceLimit),
		})
	}

	// Raised both when extraction failed outright and when text came
	// back without a recognizable land size.
	if app.DocumentKey != "" && (!bundle.Text.IsPresent() || bundle.Text.LandSizeHectares == nil) {
		factors = append(factors, RiskFactor{
			Code:        FactorOCRExtractionFailed,
			Severity:    RiskMedium,
			Description: "No land size could be extracted from the submitted document",
		})
	}

	if (app.Latitude == 0 && app.Longitude == 0) || math.Abs(app.Latitude) > implausibleLatitudeLimit {
		factors = append(factors, RiskFactor{
			Code:        FactorSuspiciousCoordinates,
			Severity:    RiskHigh,
			Description: "Field coordinates are implausible for agricultural land",
		})
	}

	return factors
}
