package applications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/agroverify/pkg/storage"
)

// ========================================================================
// Mocks
// ========================================================================

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, app *LoanApplication) error {
	return m.Called(ctx, app).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*LoanApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoanApplication), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter ListFilter) ([]*LoanApplication, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*LoanApplication), args.Error(1)
}

func (m *MockRepository) Statistics(ctx context.Context) (*Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Statistics), args.Error(1)
}

func (m *MockRepository) SetDocument(ctx context.Context, id uuid.UUID, documentKey, documentType string) error {
	return m.Called(ctx, id, documentKey, documentType).Error(0)
}

func (m *MockRepository) BeginProcessing(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) SaveEvidence(ctx context.Context, id uuid.UUID, ocr *OCRSnapshot, satellite *SatelliteSnapshot) error {
	return m.Called(ctx, id, ocr, satellite).Error(0)
}

func (m *MockRepository) CompleteAnalysis(ctx context.Context, id uuid.UUID, record *AnalysisRecord) error {
	return m.Called(ctx, id, record).Error(0)
}

func (m *MockRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

type fakeStorage struct {
	uploads map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	f.uploads[key] = data
	return &storage.UploadResult{
		Key:        key,
		URL:        "https://docs.example/" + key,
		Size:       size,
		MimeType:   contentType,
		UploadedAt: time.Now(),
	}, nil
}

func (f *fakeStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error { return nil }

func (f *fakeStorage) GetURL(key string) string { return "https://docs.example/" + key }

func (f *fakeStorage) GetPresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (*storage.PresignedURLResult, error) {
	return &storage.PresignedURLResult{
		URL:       "https://docs.example/presigned/" + key,
		Method:    http.MethodGet,
		ExpiresAt: time.Now().Add(expiresIn),
	}, nil
}

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.uploads[key]
	return ok, nil
}

type stubEvaluator struct {
	submitted []uuid.UUID
}

func (s *stubEvaluator) Submit(ctx context.Context, id uuid.UUID) error {
	s.submitted = append(s.submitted, id)
	return nil
}

func setupRouter(repo Repository, evaluator Evaluator) *gin.Engine {
	return setupRouterWithStorage(repo, evaluator, newFakeStorage())
}

func setupRouterWithStorage(repo Repository, evaluator Evaluator, store storage.Storage) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(repo, evaluator, store).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func validCreateBody() map[string]interface{} {
	return map[string]interface{}{
		"applicant_name":    "Amina Yusuf",
		"applicant_phone":   "+2348012345678",
		"loan_amount":       500000,
		"claimed_land_size": 4.5,
		"latitude":          9.0563,
		"longitude":         7.4985,
		"document_key":      "applications/x/doc.pdf",
		"document_type":     "land_certificate",
	}
}

// ========================================================================
// Tests
// ========================================================================

func TestCreateApplication_QueuesEvaluation(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(app *LoanApplication) bool {
		return app.Status == StatusSubmitted && app.ApplicantName == "Amina Yusuf"
	})).Return(nil)

	evaluator := &stubEvaluator{}
	router := setupRouter(repo, evaluator)

	payload, _ := json.Marshal(validCreateBody())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, evaluator.submitted, 1)
	repo.AssertExpectations(t)
}

func TestCreateApplication_RejectsMissingFields(t *testing.T) {
	router := setupRouter(new(MockRepository), &stubEvaluator{})

	for _, missing := range []string{"applicant_name", "applicant_phone", "loan_amount", "claimed_land_size"} {
		body := validCreateBody()
		delete(body, missing)
		payload, _ := json.Marshal(body)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "missing %s must be rejected", missing)
	}
}

func TestCreateApplication_RejectsNonPositiveClaim(t *testing.T) {
	router := setupRouter(new(MockRepository), &stubEvaluator{})

	body := validCreateBody()
	body["claimed_land_size"] = -2
	payload, _ := json.Marshal(body)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListApplications_PassesFilter(t *testing.T) {
	repo := new(MockRepository)
	repo.On("List", mock.Anything, ListFilter{
		Status:    "COMPLETED",
		RiskLevel: "HIGH",
		Limit:     10,
		Offset:    0,
	}).Return([]*LoanApplication{{ID: uuid.New()}}, nil)

	router := setupRouter(repo, &stubEvaluator{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications?status=COMPLETED&risk_level=HIGH&limit=10", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func multipartDocument(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("document", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("document bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("document_type", "land_certificate"))
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadDocument_StoresAndAttaches(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	repo.On("SetDocument", mock.Anything, id, mock.MatchedBy(func(key string) bool {
		return key != ""
	}), "land_certificate").Return(nil)

	store := newFakeStorage()
	router := setupRouterWithStorage(repo, &stubEvaluator{}, store)

	body, contentType := multipartDocument(t, "certificate.pdf")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/"+id.String()+"/document", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, store.uploads, 1)
	repo.AssertExpectations(t)
}

func TestUploadDocument_RejectsUnsupportedType(t *testing.T) {
	router := setupRouter(new(MockRepository), &stubEvaluator{})

	body, contentType := multipartDocument(t, "certificate.exe")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/"+uuid.New().String()+"/document", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadDocument_UnknownApplication(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	repo.On("SetDocument", mock.Anything, id, mock.Anything, mock.Anything).Return(ErrNotFound)

	router := setupRouter(repo, &stubEvaluator{})

	body, contentType := multipartDocument(t, "certificate.pdf")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/"+id.String()+"/document", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetApplication_NotFound(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(nil, ErrNotFound)

	router := setupRouter(repo, &stubEvaluator{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/"+id.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatisticsEndpoint(t *testing.T) {
	repo := new(MockRepository)
	avg := 34.5
	repo.On("Statistics", mock.Anything).Return(&Statistics{
		TotalApplications: 12,
		ByStatus:          map[string]int64{"COMPLETED": 10, "FAILED": 2},
		ByRiskLevel:       map[string]int64{"LOW": 6, "MEDIUM": 3, "HIGH": 1},
		AverageFraudScore: &avg,
	}, nil)

	router := setupRouter(repo, &stubEvaluator{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/statistics", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data Statistics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(12), body.Data.TotalApplications)
	assert.Equal(t, int64(1), body.Data.ByRiskLevel["HIGH"])
	require.NotNil(t, body.Data.AverageFraudScore)
	assert.Equal(t, 34.5, *body.Data.AverageFraudScore)
}
