package biz

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/los-insight/internal/insight/metrics"
	"github.com/kart-io/los-insight/internal/pkg/citation"
	"github.com/kart-io/los-insight/internal/pkg/clinical"
	"github.com/kart-io/los-insight/internal/pkg/cohort"
	"github.com/kart-io/los-insight/internal/pkg/notes"
	apierrors "github.com/kart-io/los-insight/pkg/errors"
)

func newTestService(t *testing.T, chat *fakeChat) *InsightService {
	t.Helper()

	r1 := newRecord()
	r2 := newRecord()
	r2.ID, r2.FirstName, r2.Department = "2", "Bob", "B"
	r2.DischargeDate = date("2024-03-12")
	r2.LengthOfStay = 0
	r3 := newRecord()
	r3.ID, r3.FirstName = "3", "Cy"

	c := cohort.New([]*clinical.PatientRecord{r1, r2, r3}, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

	ns, err := notes.NewFileStore(filepath.Join(t.TempDir(), "notes.json"))
	require.NoError(t, err)

	m := metrics.New()
	idx, _ := newEvidence(&keywordEmbedder{})
	resp := NewResponder(nil, idx, chat, &ResponderConfig{Timeout: time.Second}, m)
	return NewInsightService(c, ns, resp, idx, nil, m)
}

func TestInsightService_Patient(t *testing.T) {
	svc := newTestService(t, &fakeChat{reply: "ok"})

	r, err := svc.Patient(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, 11, r.LengthOfStay)

	_, err = svc.Patient(context.Background(), "404")
	assert.ErrorIs(t, err, apierrors.ErrPatientNotFound)
}

func TestInsightService_Assess(t *testing.T) {
	svc := newTestService(t, &fakeChat{reply: "ok"})

	pa, err := svc.Assess(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "1", pa.Assessment.PatientID)
	assert.Equal(t, clinical.FollowUp(pa.Record), pa.FollowUp)
	assert.Len(t, pa.LabPanel.Results, len(clinical.LabPanel(pa.Record).Results))
}

func TestInsightService_AskUsesNote(t *testing.T) {
	chat := &fakeChat{reply: "Consider a pneumonia workup."}
	svc := newTestService(t, chat)
	ctx := context.Background()

	_, err := svc.Ask(ctx, "1", "   ", nil)
	assert.ErrorIs(t, err, apierrors.ErrEmptyQuestion)

	_, err = svc.Ask(ctx, "404", "Why?", nil)
	assert.ErrorIs(t, err, apierrors.ErrPatientNotFound)

	require.NoError(t, svc.SaveNote(ctx, "1", "Suspected pneumonia on chest x-ray."))
	ans, err := svc.Ask(ctx, "1", "What should we check?", nil)
	require.NoError(t, err)

	assert.Equal(t, "Consider a pneumonia workup.", ans.Text)
	assert.Equal(t, []string{"Pneumonia"}, ans.Conditions)
	assert.True(t, ans.Grounded)
	assert.Contains(t, chat.lastPrompt(), "Suspected pneumonia on chest x-ray.")
}

func TestInsightService_Notes(t *testing.T) {
	svc := newTestService(t, &fakeChat{})
	ctx := context.Background()

	text, err := svc.Note(ctx, "3")
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, svc.SaveNote(ctx, "3", "first"))
	require.NoError(t, svc.SaveNote(ctx, "3", "second"))
	text, err = svc.Note(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "second", text)

	assert.ErrorIs(t, svc.SaveNote(ctx, "404", "x"), apierrors.ErrPatientNotFound)
}

func TestInsightService_CohortViews(t *testing.T) {
	svc := newTestService(t, &fakeChat{})
	ctx := context.Background()

	view, err := svc.Cohort(ctx, cohort.Filter{Departments: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, 2, view.Len())

	all, err := svc.Cohort(ctx, cohort.Filter{})
	require.NoError(t, err)
	assert.Equal(t, all.Percentiles(), view.Percentiles())

	out, err := svc.AssessCohort(ctx, cohort.Filter{Departments: []string{"B"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2", out[0].PatientID)
}

func TestInsightService_Patients(t *testing.T) {
	svc := newTestService(t, &fakeChat{})
	ctx := context.Background()

	page, err := svc.Patients(ctx, cohort.Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Len(t, page.Patients, 3)

	page, err = svc.Patients(ctx, cohort.Filter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Patients, 1)
	assert.Equal(t, "3", page.Patients[0].ID)

	page, err = svc.Patients(ctx, cohort.Filter{Query: "bob"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Patients, 1)
	assert.Equal(t, "2", page.Patients[0].ID)

	page, err = svc.Patients(ctx, cohort.Filter{}, math.MaxInt, MaxPageSize+1)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.PageSize)
	assert.Empty(t, page.Patients)
}

func TestInsightService_NoCohort(t *testing.T) {
	svc := NewInsightService(nil, nil, NewResponder(nil, nil, nil, nil, metrics.New()), nil, nil, metrics.New())

	_, err := svc.Patient(context.Background(), "1")
	assert.ErrorIs(t, err, apierrors.ErrCohortNotLoaded)
	_, err = svc.Cohort(context.Background(), cohort.Filter{})
	assert.ErrorIs(t, err, apierrors.ErrCohortNotLoaded)
	_, err = svc.Patients(context.Background(), cohort.Filter{}, 1, 10)
	assert.ErrorIs(t, err, apierrors.ErrCohortNotLoaded)
	_, err = svc.Note(context.Background(), "1")
	assert.ErrorIs(t, err, apierrors.ErrNoteStore)
	assert.NotContains(t, svc.Stats(context.Background()), "cohort")
}

func TestInsightService_Citations(t *testing.T) {
	svc := newTestService(t, &fakeChat{})
	got := svc.Citations([]citation.Document{
		{Filename: "a.pdf", Authors: "Lee K", Year: "2020"},
		{Filename: "a.pdf", Authors: "Other", Year: "2001"},
		{Filename: "b.txt", Authors: "Unknown", Year: "nan"},
	})
	assert.Equal(t, []string{"a (Lee K, 2020)", "b"}, got)
}

func TestInsightService_Stats(t *testing.T) {
	svc := newTestService(t, &fakeChat{reply: "ok"})
	_, err := svc.Ask(context.Background(), "1", "How is she?", nil)
	require.NoError(t, err)

	stats := svc.Stats(context.Background())
	require.Contains(t, stats, "cohort")
	assert.Equal(t, 3, stats["cohort"].(map[string]any)["patients"])
	assert.EqualValues(t, 4, stats["evidence_documents"])
}
