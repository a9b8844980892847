package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/agroverify/pkg/httpclient"
)

// DetectorClient estimates cultivated area from satellite imagery
// through the field-detection service.
type DetectorClient struct {
	client *httpclient.Client
}

func NewDetectorClient(baseURL string, timeout time.Duration) *DetectorClient {
	return &DetectorClient{
		client: httpclient.NewClient(baseURL, timeout).WithDefaultRetry(),
	}
}

type detectAreaRequest struct {
	ImageURL string `json:"image_url"`
}

type detectAreaResponse struct {
	DetectedHectares float64 `json:"detected_hectares"`
	Confidence       float64 `json:"confidence"`
}

func (c *DetectorClient) DetectArea(ctx context.Context, imageURL string) (*AreaDetection, error) {
	// Detection runs are billed per submission; the key lets the
	// service dedupe retried POSTs.
	body, err := c.client.PostWithIdempotency(ctx, "/detect", detectAreaRequest{ImageURL: imageURL}, nil, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("area detection request failed: %w", err)
	}

	var resp detectAreaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}

	if resp.DetectedHectares < 0 {
		return nil, fmt.Errorf("detector returned invalid area: %f", resp.DetectedHectares)
	}

	return &AreaDetection{
		DetectedHectares: resp.DetectedHectares,
		Confidence:       resp.Confidence,
	}, nil
}
