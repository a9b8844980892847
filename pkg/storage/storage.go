package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds storage configuration
type Config struct {
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"` // For S3-compatible storage
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url"` // Public URL prefix
}

// UploadResult contains the result of an upload operation
type UploadResult struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// PresignedURLResult contains a presigned URL for direct upload/download
type PresignedURLResult struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Storage interface defines the document storage operations
type Storage interface {
	// Upload uploads a file to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*UploadResult, error)

	// Download downloads a file from storage
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete deletes a file from storage
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for a file
	GetURL(key string) string

	// GetPresignedDownloadURL generates a presigned URL for direct download
	GetPresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (*PresignedURLResult, error)

	// Exists checks if a file exists
	Exists(ctx context.Context, key string) (bool, error)
}

// GenerateDocumentKey generates a unique storage key for a loan document
func GenerateDocumentKey(applicationID uuid.UUID, filename string) string {
	ext := path.Ext(filename)
	uniqueID := uuid.New().String()[:8]
	timestamp := time.Now().Format("20060102")

	// Format: applications/{application_id}/documents/{timestamp}_{unique_id}{ext}
	return fmt.Sprintf("applications/%s/documents/%s_%s%s",
		applicationID.String(),
		timestamp,
		uniqueID,
		ext,
	)
}

// ValidateMimeType checks if the mime type is allowed
func ValidateMimeType(mimeType string, allowedTypes []string) bool {
	if len(allowedTypes) == 0 {
		return true
	}

	mimeType = strings.ToLower(mimeType)
	for _, allowed := range allowedTypes {
		if strings.ToLower(allowed) == mimeType {
			return true
		}
		// Support wildcards like "image/*"
		if strings.HasSuffix(allowed, "/*") {
			prefix := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(mimeType, prefix) {
				return true
			}
		}
	}
	return false
}

// GetMimeTypeFromExtension returns the MIME type for supported document extensions
func GetMimeTypeFromExtension(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	mimeTypes := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".pdf":  "application/pdf",
	}

	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
