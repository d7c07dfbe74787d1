package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"tumorexpr/domain/core"
	"tumorexpr/domain/run"
	apperrors "tumorexpr/internal/errors"
	"tumorexpr/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const metadataCSV = `sample,structure_color,survival_days
s1,218FA5,10
s2,218FA5,30
s3,218FA5,20
s4,D104D0,25
s5,D104D0,5
s6,D104D0,15
`

const expressionCSV = `,s1,s2,s3,s4,s5,s6
EGFR,1,2,3,10,11,12
PTEN,12,11,10,3,2,1
`

type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Save(ctx context.Context, report *run.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockRunRepository) GetByID(ctx context.Context, id core.RunID) (*run.Report, error) {
	args := m.Called(ctx, id)
	rep, _ := args.Get(0).(*run.Report)
	return rep, args.Error(1)
}

func (m *MockRunRepository) List(ctx context.Context, limit, offset int) ([]run.Summary, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]run.Summary), args.Error(1)
}

func newTestServer(t *testing.T, repo *MockRunRepository) *Server {
	t.Helper()
	runner, err := pipeline.NewRunner(pipeline.DefaultOptions())
	require.NoError(t, err)
	if repo != nil {
		runner.WithRepository(repo)
		return NewServer(runner, repo, ServerOptions{GinMode: gin.TestMode})
	}
	return NewServer(runner, nil, ServerOptions{GinMode: gin.TestMode})
}

func uploadRequest(t *testing.T, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, content := range files {
		part, err := w.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyses", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthcheck(t *testing.T) {
	rec := serve(newTestServer(t, nil), httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestRegions(t *testing.T) {
	rec := serve(newTestServer(t, nil), httptest.NewRequest(http.MethodGet, "/api/regions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Regions []struct {
			Code  string `json:"code"`
			Label string `json:"label"`
		} `json:"regions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Regions, 7)
	assert.Equal(t, "218FA5", body.Regions[0].Code)
	assert.Equal(t, "Leading Edge", body.Regions[0].Label)
}

func TestCreateAnalysis(t *testing.T) {
	repo := &MockRunRepository{}
	repo.On("Save", mock.Anything, mock.AnythingOfType("*run.Report")).Return(nil)
	s := newTestServer(t, repo)

	req := uploadRequest(t,
		map[string]string{"metadata": metadataCSV, "expression": expressionCSV},
		map[string]string{"gene": "PTEN"})
	rec := serve(s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PTEN", body["gene"])
	assert.Contains(t, body, "cascade")
	assert.Contains(t, body, "survival")
	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestCreateAnalysisBatch(t *testing.T) {
	req := uploadRequest(t,
		map[string]string{"metadata": metadataCSV, "expression": expressionCSV},
		map[string]string{"batch": "true"})
	rec := serve(newTestServer(t, nil), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Items []run.BatchItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, "EGFR", body.Items[0].Gene)
	assert.False(t, body.Items[1].Failed())
}

func TestCreateAnalysisRequiresBothFiles(t *testing.T) {
	req := uploadRequest(t, map[string]string{"metadata": metadataCSV}, nil)
	rec := serve(newTestServer(t, nil), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeInvalidInput)
}

func TestCreateAnalysisReportsMissingColumn(t *testing.T) {
	req := uploadRequest(t,
		map[string]string{"metadata": metadataCSV, "expression": expressionCSV},
		map[string]string{"metadata_columns": "structure_color,survival_days,grade"})
	rec := serve(newTestServer(t, nil), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeMissingColumn)
	assert.Contains(t, rec.Body.String(), "grade")
}

func TestCreateAnalysisRejectsBadAlpha(t *testing.T) {
	req := uploadRequest(t,
		map[string]string{"metadata": metadataCSV, "expression": expressionCSV},
		map[string]string{"alpha": "2"})
	rec := serve(newTestServer(t, nil), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRequiresStore(t *testing.T) {
	rec := serve(newTestServer(t, nil), httptest.NewRequest(http.MethodGet, "/api/analyses", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListAnalyses(t *testing.T) {
	repo := &MockRunRepository{}
	repo.On("List", mock.Anything, 10, 0).Return([]run.Summary{{ID: "a", Gene: "EGFR", Status: run.StatusCompleted}}, nil)

	rec := serve(newTestServer(t, repo), httptest.NewRequest(http.MethodGet, "/api/analyses?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gene":"EGFR"`)
	repo.AssertExpectations(t)
}

func TestGetAnalysis(t *testing.T) {
	id := core.NewRunID()
	missing := core.NewRunID()
	repo := &MockRunRepository{}
	repo.On("GetByID", mock.Anything, id).Return(&run.Report{Manifest: &run.Manifest{RunID: id}, Gene: "EGFR"}, nil)
	repo.On("GetByID", mock.Anything, missing).Return(nil, apperrors.NotFound("analysis run"))
	s := newTestServer(t, repo)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/analyses/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gene":"EGFR"`)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/analyses/"+missing.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/analyses/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReportRendersHTML(t *testing.T) {
	id := core.NewRunID()
	repo := &MockRunRepository{}
	repo.On("GetByID", mock.Anything, id).Return(&run.Report{Manifest: &run.Manifest{RunID: id}, Gene: "EGFR"}, nil)

	rec := serve(newTestServer(t, repo), httptest.NewRequest(http.MethodGet, "/api/analyses/"+id.String()+"/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "EGFR")
}
