package applications

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means no application exists with the given id
	ErrNotFound = errors.New("application not found")

	// ErrAlreadyProcessing means an evaluation is already running for
	// the application
	ErrAlreadyProcessing = errors.New("application is already being processed")
)

// Repository persists loan applications and their evaluation state
type Repository interface {
	Create(ctx context.Context, app *LoanApplication) error
	GetByID(ctx context.Context, id uuid.UUID) (*LoanApplication, error)
	List(ctx context.Context, filter ListFilter) ([]*LoanApplication, error)
	Statistics(ctx context.Context) (*Statistics, error)

	// SetDocument attaches an uploaded document to the application
	SetDocument(ctx context.Context, id uuid.UUID, documentKey, documentType string) error

	// BeginProcessing atomically moves the application to PROCESSING.
	// Returns ErrAlreadyProcessing when it is already PROCESSING and
	// ErrNotFound when the id is unknown.
	BeginProcessing(ctx context.Context, id uuid.UUID) error

	// SaveEvidence stores both evidence snapshots mid-evaluation so a
	// later failure still leaves the collected evidence inspectable.
	SaveEvidence(ctx context.Context, id uuid.UUID, ocr *OCRSnapshot, satellite *SatelliteSnapshot) error

	// CompleteAnalysis stores the analysis, moves the application to
	// COMPLETED and stamps processed_at.
	CompleteAnalysis(ctx context.Context, id uuid.UUID, record *AnalysisRecord) error

	// MarkFailed moves the application to FAILED and forces the
	// verification status to NEEDS_REVIEW. processed_at is untouched
	// and any prior analysis is retained.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}
