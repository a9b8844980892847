package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/agroverify/pkg/httpclient"
	"github.com/richxcame/agroverify/pkg/logger"
	"github.com/richxcame/agroverify/pkg/storage"
)

const presignedDocumentTTL = 15 * time.Minute

// OCRClient extracts text from stored loan documents through the OCR
// service. Documents are handed to the service by presigned URL so
// the raw bytes never pass through this process.
type OCRClient struct {
	client  *httpclient.Client
	storage storage.Storage
}

func NewOCRClient(baseURL string, timeout time.Duration, store storage.Storage) *OCRClient {
	return &OCRClient{
		client:  httpclient.NewClient(baseURL, timeout).WithDefaultRetry(),
		storage: store,
	}
}

type ocrExtractRequest struct {
	DocumentURL string `json:"document_url"`
}

type ocrExtractResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (c *OCRClient) ExtractText(ctx context.Context, documentKey string) (*ExtractionResult, error) {
	presigned, err := c.storage.GetPresignedDownloadURL(ctx, documentKey, presignedDocumentTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign document: %w", err)
	}

	body, err := c.client.Post(ctx, "/extract", ocrExtractRequest{DocumentURL: presigned.URL}, nil)
	if err != nil {
		return nil, fmt.Errorf("ocr request failed: %w", err)
	}

	var resp ocrExtractResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode ocr response: %w", err)
	}

	logger.WithContext(ctx).Debug("text extracted from document",
		zap.String("document_key", documentKey),
		zap.Int("text_length", len(resp.Text)),
		zap.Float64("confidence", resp.Confidence))

	return &ExtractionResult{Text: resp.Text, Confidence: resp.Confidence}, nil
}
