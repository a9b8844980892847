package evidence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/agroverify/pkg/logger"
)

// AggregatorConfig bounds each evidence chain independently so one
// slow provider cannot starve the other.
type AggregatorConfig struct {
	TextTimeout      time.Duration
	SatelliteTimeout time.Duration
}

// Aggregator collects document and satellite evidence concurrently.
// Each chain degrades to an absent outcome on failure instead of
// aborting the whole collection.
type Aggregator struct {
	extractor TextExtractor
	fetcher   ImageFetcher
	detector  AreaDetector
	config    AggregatorConfig
}

func NewAggregator(extractor TextExtractor, fetcher ImageFetcher, detector AreaDetector, config AggregatorConfig) *Aggregator {
	if config.TextTimeout <= 0 {
		config.TextTimeout = 30 * time.Second
	}
	if config.SatelliteTimeout <= 0 {
		config.SatelliteTimeout = 45 * time.Second
	}
	return &Aggregator{
		extractor: extractor,
		fetcher:   fetcher,
		detector:  detector,
		config:    config,
	}
}

// Collect runs both evidence chains and joins their results. It never
// returns an error: a failed chain is reported through its outcome.
func (a *Aggregator) Collect(ctx context.Context, documentKey string, latitude, longitude float64) Bundle {
	var (
		wg        sync.WaitGroup
		text      TextEvidence
		satellite SatelliteEvidence
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		chainCtx, cancel := context.WithTimeout(ctx, a.config.TextTimeout)
		defer cancel()
		text = a.collectText(chainCtx, documentKey)
	}()

	go func() {
		defer wg.Done()
		chainCtx, cancel := context.WithTimeout(ctx, a.config.SatelliteTimeout)
		defer cancel()
		satellite = a.collectSatellite(chainCtx, latitude, longitude)
	}()

	wg.Wait()

	return Bundle{Text: text, Satellite: satellite}
}

func (a *Aggregator) collectText(ctx context.Context, documentKey string) TextEvidence {
	log := logger.WithContext(ctx)

	if documentKey == "" {
		return TextEvidence{Outcome: Absent("no document provided")}
	}
	if a.extractor == nil {
		return TextEvidence{Outcome: Absent("text extraction not configured")}
	}

	result, err := a.extractor.ExtractText(ctx, documentKey)
	if err != nil {
		log.Warn("text extraction failed",
			zap.String("document_key", documentKey),
			zap.Error(err))
		return TextEvidence{Outcome: Absent(fmt.Sprintf("text extraction failed: %v", err))}
	}

	evidence := TextEvidence{
		Outcome:    Present(),
		Text:       result.Text,
		Confidence: result.Confidence,
	}

	// Text that yields no parsable size is still present evidence;
	// the assessor flags the extraction gap separately.
	if parsed := ParseLandSize(result.Text); parsed != nil {
		hectares := parsed.Hectares
		evidence.LandSizeHectares = &hectares
	} else {
		log.Info("no land size found in extracted text",
			zap.String("document_key", documentKey))
	}

	return evidence
}

func (a *Aggregator) collectSatellite(ctx context.Context, latitude, longitude float64) SatelliteEvidence {
	log := logger.WithContext(ctx)

	if a.fetcher == nil || a.detector == nil {
		return SatelliteEvidence{Outcome: Absent("satellite analysis not configured")}
	}

	image, err := a.fetcher.FetchImage(ctx, latitude, longitude)
	if err != nil {
		log.Warn("satellite image fetch failed",
			zap.Float64("latitude", latitude),
			zap.Float64("longitude", longitude),
			zap.Error(err))
		return SatelliteEvidence{Outcome: Absent(fmt.Sprintf("satellite image unavailable: %v", err))}
	}

	detection, err := a.detector.DetectArea(ctx, image.ImageURL)
	if err != nil {
		log.Warn("area detection failed",
			zap.String("image_url", image.ImageURL),
			zap.Error(err))
		return SatelliteEvidence{Outcome: Absent(fmt.Sprintf("area detection failed: %v", err))}
	}

	hectares := detection.DetectedHectares
	return SatelliteEvidence{
		Outcome:          Present(),
		ImageURL:         image.ImageURL,
		Source:           image.Source,
		DetectedHectares: &hectares,
		Confidence:       detection.Confidence,
	}
}
