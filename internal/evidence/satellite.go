package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/agroverify/pkg/config"
	"github.com/richxcame/agroverify/pkg/httpclient"
	"github.com/richxcame/agroverify/pkg/logger"
	"github.com/richxcame/agroverify/pkg/redis"
	"github.com/richxcame/agroverify/pkg/resilience"
)

const (
	// A ~1km square around the field coordinate, in degrees
	boundingBoxDelta = 0.005

	satelliteCachePrefix = "satellite:image:"
	tokenRefreshMargin   = time.Minute
)

// SatelliteFetcher acquires imagery for a field coordinate. Sentinel
// Hub is the primary source when credentials are configured; NASA
// Earth serves as the fallback. Resolved images are cached in Redis
// because imagery for a coordinate changes slowly.
type SatelliteFetcher struct {
	cfg     config.ProvidersConfig
	cache   *redis.Client
	breaker *resilience.Breaker

	sentinel *httpclient.Client
	nasa     *httpclient.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewSatelliteFetcher(cfg config.ProvidersConfig, cache *redis.Client) *SatelliteFetcher {
	timeout := time.Duration(cfg.SatelliteTimeout) * time.Second

	f := &SatelliteFetcher{
		cfg:      cfg,
		cache:    cache,
		sentinel: httpclient.NewClient(cfg.SentinelBaseURL, timeout),
		nasa:     httpclient.NewClient(cfg.NASABaseURL, timeout).WithDefaultRetry(),
	}

	f.breaker = resilience.NewBreaker(
		resilience.BuildSettings("sentinel-hub",
			cfg.SentinelBreakerInterval, cfg.SentinelBreakerTimeout,
			cfg.SentinelBreakerFailures, cfg.SentinelBreakerSuccesses),
		resilience.GracefulDegradation("sentinel-hub"),
	)

	return f
}

func (f *SatelliteFetcher) FetchImage(ctx context.Context, latitude, longitude float64) (*SatelliteImage, error) {
	log := logger.WithContext(ctx)
	cacheKey := fmt.Sprintf("%s%.4f:%.4f", satelliteCachePrefix, latitude, longitude)

	if cached := f.fromCache(ctx, cacheKey); cached != nil {
		log.Debug("satellite image cache hit", zap.String("key", cacheKey))
		return cached, nil
	}

	image, err := f.fetchFresh(ctx, latitude, longitude)
	if err != nil {
		return nil, err
	}

	f.toCache(ctx, cacheKey, image)
	return image, nil
}

// fetchFresh tries Sentinel Hub first, then NASA Earth. Sentinel is
// skipped entirely when no credentials are configured.
func (f *SatelliteFetcher) fetchFresh(ctx context.Context, latitude, longitude float64) (*SatelliteImage, error) {
	log := logger.WithContext(ctx)

	if f.sentinelConfigured() {
		result, err := f.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return f.fetchSentinel(ctx, latitude, longitude)
		})
		if err == nil {
			return result.(*SatelliteImage), nil
		}
		log.Warn("sentinel hub unavailable, falling back to nasa earth",
			zap.Error(err))
	}

	image, err := f.fetchNASA(ctx, latitude, longitude)
	if err != nil {
		return nil, fmt.Errorf("all satellite providers failed: %w", err)
	}
	return image, nil
}

func (f *SatelliteFetcher) sentinelConfigured() bool {
	return f.cfg.SentinelClientID != "" && f.cfg.SentinelSecret != ""
}

// ========================================================================
// Sentinel Hub
// ========================================================================

type sentinelProcessRequest struct {
	Input  sentinelInput  `json:"input"`
	Output sentinelOutput `json:"output"`
}

type sentinelInput struct {
	Bounds sentinelBounds `json:"bounds"`
	Data   []sentinelData `json:"data"`
}

type sentinelBounds struct {
	BBox [4]float64 `json:"bbox"`
}

type sentinelData struct {
	Type string `json:"type"`
}

type sentinelOutput struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type sentinelProcessResponse struct {
	ImageURL    string    `json:"image_url"`
	CaptureDate time.Time `json:"capture_date"`
}

func (f *SatelliteFetcher) fetchSentinel(ctx context.Context, latitude, longitude float64) (*SatelliteImage, error) {
	token, err := f.sentinelToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("sentinel auth failed: %w", err)
	}

	req := sentinelProcessRequest{
		Input: sentinelInput{
			Bounds: sentinelBounds{
				BBox: [4]float64{
					longitude - boundingBoxDelta,
					latitude - boundingBoxDelta,
					longitude + boundingBoxDelta,
					latitude + boundingBoxDelta,
				},
			},
			Data: []sentinelData{{Type: "sentinel-2-l2a"}},
		},
		Output: sentinelOutput{
			Width:  f.cfg.SatelliteImageSize,
			Height: f.cfg.SatelliteImageSize,
		},
	}

	body, err := f.sentinel.Post(ctx, "/process", req, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return nil, err
	}

	var resp sentinelProcessResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode sentinel response: %w", err)
	}

	return &SatelliteImage{
		ImageURL:    resp.ImageURL,
		Source:      "sentinel-hub",
		Resolution:  "10m",
		CaptureDate: resp.CaptureDate,
	}, nil
}

type sentinelTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (f *SatelliteFetcher) sentinelToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.accessToken != "" && time.Now().Before(f.tokenExpiry.Add(-tokenRefreshMargin)) {
		return f.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", f.cfg.SentinelClientID)
	form.Set("client_secret", f.cfg.SentinelSecret)

	body, err := f.sentinel.PostForm(ctx, "/oauth/token", form, nil)
	if err != nil {
		return "", err
	}

	var resp sentinelTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}

	f.accessToken = resp.AccessToken
	f.tokenExpiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	return f.accessToken, nil
}

// ========================================================================
// NASA Earth
// ========================================================================

type nasaAssetsResponse struct {
	URL  string `json:"url"`
	Date string `json:"date"`
}

func (f *SatelliteFetcher) fetchNASA(ctx context.Context, latitude, longitude float64) (*SatelliteImage, error) {
	path := fmt.Sprintf("/assets?lat=%.6f&lon=%.6f&dim=%.3f&api_key=%s",
		latitude, longitude, boundingBoxDelta*2, url.QueryEscape(f.cfg.NASAAPIKey))

	body, err := f.nasa.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var resp nasaAssetsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode nasa response: %w", err)
	}
	if resp.URL == "" {
		return nil, fmt.Errorf("nasa returned no imagery for coordinate")
	}

	captureDate, _ := time.Parse("2006-01-02T15:04:05", strings.TrimSuffix(resp.Date, "Z"))

	return &SatelliteImage{
		ImageURL:    resp.URL,
		Source:      "nasa-earth",
		Resolution:  "30m",
		CaptureDate: captureDate,
	}, nil
}

// ========================================================================
// Cache
// ========================================================================

func (f *SatelliteFetcher) fromCache(ctx context.Context, key string) *SatelliteImage {
	if f.cache == nil {
		return nil
	}

	raw, err := f.cache.GetString(ctx, key)
	if err != nil || raw == "" {
		return nil
	}

	var image SatelliteImage
	if err := json.Unmarshal([]byte(raw), &image); err != nil {
		return nil
	}
	return &image
}

func (f *SatelliteFetcher) toCache(ctx context.Context, key string, image *SatelliteImage) {
	if f.cache == nil {
		return
	}

	raw, err := json.Marshal(image)
	if err != nil {
		return
	}

	ttl := time.Duration(f.cfg.SatelliteCacheTTL) * time.Minute
	if err := f.cache.SetWithExpiration(ctx, key, raw, ttl); err != nil {
		logger.WithContext(ctx).Warn("failed to cache satellite image", zap.Error(err))
	}
}
