package fraud

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/agroverify/internal/applications"
	"github.com/richxcame/agroverify/internal/evidence"
	"github.com/richxcame/agroverify/pkg/common"
)

// ========================================================================
// Mocks
// ========================================================================

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, app *applications.LoanApplication) error {
	return m.Called(ctx, app).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*applications.LoanApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*applications.LoanApplication), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter applications.ListFilter) ([]*applications.LoanApplication, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*applications.LoanApplication), args.Error(1)
}

func (m *MockRepository) Statistics(ctx context.Context) (*applications.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*applications.Statistics), args.Error(1)
}

func (m *MockRepository) SetDocument(ctx context.Context, id uuid.UUID, documentKey, documentType string) error {
	return m.Called(ctx, id, documentKey, documentType).Error(0)
}

func (m *MockRepository) BeginProcessing(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) SaveEvidence(ctx context.Context, id uuid.UUID, ocr *applications.OCRSnapshot, satellite *applications.SatelliteSnapshot) error {
	return m.Called(ctx, id, ocr, satellite).Error(0)
}

func (m *MockRepository) CompleteAnalysis(ctx context.Context, id uuid.UUID, record *applications.AnalysisRecord) error {
	return m.Called(ctx, id, record).Error(0)
}

func (m *MockRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

type stubCollector struct {
	bundle evidence.Bundle
}

func (s *stubCollector) Collect(ctx context.Context, documentKey string, latitude, longitude float64) evidence.Bundle {
	return s.bundle
}

// ========================================================================
// Tests
// ========================================================================

func newTestService(repo applications.Repository, bundle evidence.Bundle) *Service {
	return NewService(repo, &stubCollector{bundle: bundle}, NewAnalyzer(100000))
}

func TestEvaluate_CompletesAndPersists(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	app := testApplication(100, 500000)
	app.ID = id

	repo.On("GetByID", mock.Anything, id).Return(app, nil)
	repo.On("BeginProcessing", mock.Anything, id).Return(nil)
	repo.On("SaveEvidence", mock.Anything, id, mock.Anything, mock.Anything).Return(nil)
	repo.On("CompleteAnalysis", mock.Anything, id, mock.MatchedBy(func(record *applications.AnalysisRecord) bool {
		return record.RiskLevel == "LOW" && record.VerificationStatus == "APPROVED"
	})).Return(nil)

	service := newTestService(repo, fullBundle(floatPtr(100), 90, floatPtr(97), 90))
	analysis, err := service.Evaluate(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, 2, analysis.Score)
	assert.Equal(t, RiskLow, analysis.RiskLevel)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_PersistsEvidenceSnapshots(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	app := testApplication(100, 500000)
	app.ID = id

	var savedOCR *applications.OCRSnapshot
	var savedSat *applications.SatelliteSnapshot
	repo.On("GetByID", mock.Anything, id).Return(app, nil)
	repo.On("BeginProcessing", mock.Anything, id).Return(nil)
	repo.On("SaveEvidence", mock.Anything, id, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			savedOCR = args.Get(2).(*applications.OCRSnapshot)
			savedSat = args.Get(3).(*applications.SatelliteSnapshot)
		}).Return(nil)
	repo.On("CompleteAnalysis", mock.Anything, id, mock.Anything).Return(nil)

	bundle := fullBundle(floatPtr(80), 70, floatPtr(95), 60)
	_, err := newTestService(repo, bundle).Evaluate(context.Background(), id)

	require.NoError(t, err)
	require.NotNil(t, savedOCR)
	assert.Equal(t, "present", savedOCR.Outcome)
	require.NotNil(t, savedOCR.ExtractedSize)
	assert.Equal(t, 80.0, *savedOCR.ExtractedSize)
	require.NotNil(t, savedSat)
	assert.Equal(t, "sentinel-hub", savedSat.Source)
}

func TestEvaluate_ConflictWhenAlreadyProcessing(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	app := testApplication(100, 500000)
	app.ID = id
	app.Status = applications.StatusProcessing

	repo.On("GetByID", mock.Anything, id).Return(app, nil)
	repo.On("BeginProcessing", mock.Anything, id).Return(applications.ErrAlreadyProcessing)

	_, err := newTestService(repo, absentBundle()).Evaluate(context.Background(), id)

	require.Error(t, err)
	assert.True(t, common.IsConflict(err))
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_NotFound(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()

	repo.On("GetByID", mock.Anything, id).Return(nil, applications.ErrNotFound)

	_, err := newTestService(repo, absentBundle()).Evaluate(context.Background(), id)

	require.Error(t, err)
	assert.True(t, common.IsNotFound(err))
}

func TestEvaluate_EvidencePersistenceFailureMarksFailed(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	app := testApplication(100, 500000)
	app.ID = id

	repo.On("GetByID", mock.Anything, id).Return(app, nil)
	repo.On("BeginProcessing", mock.Anything, id).Return(nil)
	repo.On("SaveEvidence", mock.Anything, id, mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))
	repo.On("MarkFailed", mock.Anything, id, mock.Anything).Return(nil)

	_, err := newTestService(repo, absentBundle()).Evaluate(context.Background(), id)

	require.Error(t, err)
	repo.AssertCalled(t, "MarkFailed", mock.Anything, id, mock.Anything)
	repo.AssertNotCalled(t, "CompleteAnalysis", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_AnalysisPersistenceFailureMarksFailed(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	app := testApplication(100, 500000)
	app.ID = id

	repo.On("GetByID", mock.Anything, id).Return(app, nil)
	repo.On("BeginProcessing", mock.Anything, id).Return(nil)
	repo.On("SaveEvidence", mock.Anything, id, mock.Anything, mock.Anything).Return(nil)
	repo.On("CompleteAnalysis", mock.Anything, id, mock.Anything).Return(errors.New("connection reset"))
	repo.On("MarkFailed", mock.Anything, id, mock.Anything).Return(nil)

	_, err := newTestService(repo, fullBundle(floatPtr(100), 90, floatPtr(97), 90)).Evaluate(context.Background(), id)

	require.Error(t, err)
	repo.AssertCalled(t, "MarkFailed", mock.Anything, id, mock.Anything)
}

func TestEvaluate_ExpiredContextStillMarksFailed(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	app := testApplication(100, 500000)
	app.ID = id

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo.On("GetByID", mock.Anything, id).Return(app, nil)
	repo.On("BeginProcessing", mock.Anything, id).Return(nil)
	// Persistence honors the evaluation context, which has expired
	repo.On("SaveEvidence", mock.Anything, id, mock.Anything, mock.Anything).Return(context.Canceled)
	// The FAILED write must not run on the expired context
	repo.On("MarkFailed", mock.MatchedBy(func(c context.Context) bool {
		return c.Err() == nil
	}), id, mock.Anything).Return(nil)

	_, err := newTestService(repo, fullBundle(floatPtr(100), 90, floatPtr(97), 90)).Evaluate(ctx, id)

	require.Error(t, err)
	repo.AssertExpectations(t)
}

func TestFail_UsesDetachedWriteContext(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo.On("MarkFailed", mock.MatchedBy(func(c context.Context) bool {
		return c.Err() == nil
	}), id, "evaluation deadline exceeded").Return(nil)

	err := newTestService(repo, absentBundle()).Fail(ctx, id, "evaluation deadline exceeded")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
