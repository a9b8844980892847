package evidence

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	hectaresPerAcre    = 0.4047
	sqMetersPerHectare = 10000
)

// ParsedLandSize is a land-size mention recognized in document text
type ParsedLandSize struct {
	OriginalValue float64 `json:"original_value"`
	Unit          string  `json:"unit"`
	Hectares      float64 `json:"hectares"`
	Confidence    float64 `json:"confidence"`
}

var landSizePatterns = []*regexp.Regexp{
	// "X hectares", "X ha"
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hectares?|ha)\b`),
	// "X acres"
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:acres?)\b`),
	// "Area: X hectares", "Land size: X ha"
	regexp.MustCompile(`(?i)(?:area|land\s*size|farm\s*size)\s*:?\s*(\d+(?:\.\d+)?)\s*(?:hectares?|ha|acres?)`),
	// "X sq m", "X square meters", "X sqm"
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:sq\.?\s*m|square\s*meters?|sqm)\b`),
}

// ParseLandSize extracts the most confident land-size mention from OCR
// text and normalizes it to hectares. Returns nil when the text holds
// no recognizable size.
func ParseLandSize(text string) *ParsedLandSize {
	var best *ParsedLandSize

	for _, pattern := range landSizePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			value, err := strconv.ParseFloat(match[1], 64)
			if err != nil || value <= 0 {
				continue
			}

			unit := detectUnit(match[0])
			hectares := value
			switch unit {
			case "acres":
				hectares = value * hectaresPerAcre
			case "square_meters":
				hectares = value / sqMetersPerHectare
			}

			candidate := &ParsedLandSize{
				OriginalValue: value,
				Unit:          unit,
				Hectares:      hectares,
				Confidence:    parseConfidence(match[0], text),
			}
			if best == nil || candidate.Confidence > best.Confidence {
				best = candidate
			}
		}
	}

	return best
}

func detectUnit(match string) string {
	match = strings.ToLower(match)
	switch {
	case strings.Contains(match, "hectare"), strings.Contains(match, "ha"):
		return "hectares"
	case strings.Contains(match, "acre"):
		return "acres"
	case strings.Contains(match, "sq"), strings.Contains(match, "square"):
		return "square_meters"
	default:
		return "unknown"
	}
}

// parseConfidence scores a match by how explicitly it names the land
// area, capped at 95 because OCR text is never a certain source
func parseConfidence(match, fullText string) float64 {
	confidence := 50.0

	lower := strings.ToLower(match)
	if strings.Contains(lower, "area") || strings.Contains(lower, "land") || strings.Contains(lower, "farm") {
		confidence += 30
	}
	if strings.Contains(lower, "hectare") || strings.Contains(lower, "acre") {
		confidence += 20
	}

	fullLower := strings.ToLower(fullText)
	for _, word := range []string{"total", "size", "cultivated", "agricultural"} {
		if strings.Contains(fullLower, word) {
			confidence += 10
			break
		}
	}

	if confidence > 95 {
		confidence = 95
	}
	return confidence
}
