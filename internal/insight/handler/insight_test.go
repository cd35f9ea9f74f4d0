package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/los-insight/internal/insight/biz"
	"github.com/kart-io/los-insight/internal/insight/metrics"
	"github.com/kart-io/los-insight/internal/pkg/clinical"
	"github.com/kart-io/los-insight/internal/pkg/cohort"
	"github.com/kart-io/los-insight/internal/pkg/notes"
	apierrors "github.com/kart-io/los-insight/pkg/errors"
	"github.com/kart-io/los-insight/pkg/validator"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Install()

	records := []*clinical.PatientRecord{
		{ID: "1", Department: "A", Gender: clinical.GenderFemale, AdmissionDate: day("2024-03-01"), DischargeDate: day("2024-03-04"), DateOfBirth: day("1980-06-15"), ReadmitCount: "0"},
		{ID: "2", Department: "B", Gender: clinical.GenderMale, AdmissionDate: day("2024-04-01"), DischargeDate: day("2024-04-12"), DateOfBirth: day("1950-01-01"), ReadmitCount: "1"},
	}
	ns, err := notes.NewFileStore(filepath.Join(t.TempDir(), "notes.json"))
	require.NoError(t, err)
	svc := biz.NewInsightService(cohort.New(records, time.Now()), ns, nil, nil, nil, metrics.New())

	h := NewInsightHandler(svc)
	r := gin.New()
	v1 := r.Group("/v1")
	v1.GET("/patients", h.Patients)
	v1.GET("/patients/:id", h.Patient)
	v1.GET("/patients/:id/assessment", h.Assessment)
	v1.POST("/patients/:id/answer", h.Answer)
	v1.GET("/patients/:id/note", h.GetNote)
	v1.PUT("/patients/:id/note", h.PutNote)
	v1.GET("/cohort/kpis", h.KPIs)
	v1.GET("/cohort/departments", h.Departments)
	v1.GET("/cohort/assessments", h.Assessments)
	v1.POST("/citations", h.Citations)
	v1.GET("/stats", h.Stats)
	return r
}

func do(r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestPatient(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodGet, "/v1/patients/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	assert.Contains(t, string(env.Data), `"A"`)

	w, env = do(r, http.MethodGet, "/v1/patients/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.ErrPatientNotFound.Code, env.Code)
	assert.Equal(t, "Patient 404 not found", env.Message)
}

func TestAssessment(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodGet, "/v1/patients/2/assessment", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var pa map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &pa))
	assert.Contains(t, pa, "assessment")
	assert.Contains(t, pa, "follow_up")
	assert.Contains(t, pa, "lab_panel")
}

func TestAnswerValidation(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodPost, "/v1/patients/1/answer", AnswerRequest{Question: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.ErrEmptyQuestion.Code, env.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/patients/1/answer", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotes(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodGet, "/v1/patients/1/note", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"patient_id":"1","note":""}`, string(env.Data))

	w, env = do(r, http.MethodPut, "/v1/patients/1/note", NoteRequest{Note: "stable"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "note saved", env.Message)

	_, env = do(r, http.MethodGet, "/v1/patients/1/note", nil)
	assert.JSONEq(t, `{"patient_id":"1","note":"stable"}`, string(env.Data))

	w, _ = do(r, http.MethodPut, "/v1/patients/9/note", NoteRequest{Note: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(r, http.MethodGet, "/v1/patients/9/note", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatients(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodGet, "/v1/patients", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page biz.PatientPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Patients, 2)

	_, env = do(r, http.MethodGet, "/v1/patients?page=2&page_size=1", nil)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Patients, 1)
	assert.Equal(t, "2", page.Patients[0].ID)

	_, env = do(r, http.MethodGet, "/v1/patients?q=b&gender=M", nil)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "2", page.Patients[0].ID)

	w, _ = do(r, http.MethodGet, "/v1/patients?page=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(r, http.MethodGet, "/v1/patients?page_size=1000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCohortViews(t *testing.T) {
	r := setupRouter(t)

	_, env := do(r, http.MethodGet, "/v1/cohort/kpis", nil)
	var k cohort.KPIs
	require.NoError(t, json.Unmarshal(env.Data, &k))
	assert.Equal(t, 2, k.Patients)

	_, env = do(r, http.MethodGet, "/v1/cohort/kpis?department=B", nil)
	require.NoError(t, json.Unmarshal(env.Data, &k))
	assert.Equal(t, 1, k.Patients)

	_, env = do(r, http.MethodGet, "/v1/cohort/kpis?from=2024-04-01&to=2024-04-30", nil)
	require.NoError(t, json.Unmarshal(env.Data, &k))
	assert.Equal(t, 1, k.Patients)

	w, _ := do(r, http.MethodGet, "/v1/cohort/kpis?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(r, http.MethodGet, "/v1/cohort/departments", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAssessments(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodGet, "/v1/cohort/assessments?department=A", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out AssessmentsResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 1, out.Total)
	assert.Len(t, out.Assessments, 1)
}

func TestCitations(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodPost, "/v1/citations", CitationsRequest{Documents: []CitationDocument{
		{Filename: "a.pdf", Title: "a", Authors: "Lee K", Year: "2020"},
		{Filename: "a.pdf", Title: "a again"},
		{Filename: "b.pdf", Title: "b"},
	}})
	require.Equal(t, http.StatusOK, w.Code)

	var out []string
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, []string{"a (Lee K, 2020)", "b"}, out)

	w, env = do(r, http.MethodPost, "/v1/citations", map[string]any{"documents": []map[string]string{{"title": "x"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.ErrInvalidParam.Code, env.Code)
	assert.Contains(t, string(env.Data), `"documents[0].filename"`)

	w, env = do(r, http.MethodPost, "/v1/citations", map[string]any{"documents": []map[string]string{{"filename": "  "}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env.Data), "must not be blank")
}

func TestStats(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"cohort"`)
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewInsightHandler(biz.NewInsightService(nil, nil, nil, nil, nil, metrics.New()))
	r := gin.New()
	r.GET("/healthz", h.Healthz)

	w, env := do(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apierrors.ErrCohortNotLoaded.Code, env.Code)
}
