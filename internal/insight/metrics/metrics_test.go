package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
	old := Get()
	Reset()
	assert.NotSame(t, old, Get())
}

func TestRecordAnswer(t *testing.T) {
	m := New()
	m.RecordAnswer(true, "")
	m.RecordAnswer(false, "transient")
	m.RecordAnswer(false, "transient")

	answers := m.Stats()["answers"].(map[string]any)
	assert.Equal(t, uint64(3), answers["total"])
	assert.Equal(t, uint64(1), answers["grounded"])
	assert.Equal(t, uint64(2), answers["direct"])
	assert.Equal(t, map[string]uint64{"transient": 2}, answers["fallbacks"])
}

func TestRecordRetrievalAndLLM(t *testing.T) {
	m := New()
	m.RecordRetrieval(100*time.Millisecond, 3, nil)
	m.RecordRetrieval(300*time.Millisecond, 0, nil)
	m.RecordRetrieval(time.Second, 0, errors.New("boom"))
	m.RecordLLMCall(time.Second, nil)
	m.RecordLLMCall(0, errors.New("boom"))

	s := m.Stats()
	r := s["retrieval"].(map[string]any)
	assert.Equal(t, uint64(3), r["total"])
	assert.Equal(t, uint64(1), r["errors"])
	assert.Equal(t, uint64(1), r["empty"])
	assert.InDelta(t, 0.2, r["avg_duration_sec"], 1e-9)

	l := s["llm"].(map[string]any)
	assert.Equal(t, uint64(2), l["calls"])
	assert.InDelta(t, 1.0, l["avg_duration_sec"], 1e-9)
}

func TestRecordAssessment(t *testing.T) {
	m := New()
	m.RecordAssessment(0)
	m.RecordAssessment(10)
	a := m.Stats()["assessments"].(map[string]any)
	assert.Equal(t, uint64(11), a["total"])
	assert.Equal(t, uint64(1), a["batches"])
}

func TestConcurrentRecording(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordAnswer(true, "rate_limited")
			m.RecordLLMCall(time.Millisecond, nil)
		}()
	}
	wg.Wait()
	answers := m.Stats()["answers"].(map[string]any)
	assert.Equal(t, uint64(50), answers["total"])
	assert.Equal(t, map[string]uint64{"rate_limited": 50}, answers["fallbacks"])
}

func TestExport(t *testing.T) {
	m := New()
	m.RecordAnswer(false, "unauthorized")
	out := m.Export("los_insight")
	assert.Contains(t, out, "los_insight_answers_total 1")
	assert.Contains(t, out, `los_insight_answer_fallbacks_total{kind="unauthorized"} 1`)
	assert.Contains(t, out, "# TYPE los_insight_uptime_seconds gauge")
}
