// Package metrics 提供问答服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// InsightMetrics 问答服务业务指标。
type InsightMetrics struct {
	// 问答指标
	answersTotal    uint64   // 总问答次数
	answersDirect   uint64   // 无检索条件的直接问答
	answersGrounded uint64   // 带证据的问答
	fallbacks       sync.Map // FailureKind -> *uint64

	// 检索指标
	retrievalTotal    uint64  // 总检索次数
	retrievalDuration float64 // 检索总耗时（秒）
	retrievalErrors   uint64  // 检索错误次数
	retrievalEmpty    uint64  // 返回空结果次数

	// LLM 调用指标
	llmCallsTotal    uint64  // LLM 总调用次数
	llmCallsDuration float64 // LLM 调用总耗时（秒）
	llmCallsErrors   uint64  // LLM 调用错误次数

	// 评估指标
	assessmentsTotal uint64 // 单个评估次数
	batchAssessments uint64 // 批量评估次数

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	globalMetrics *InsightMetrics
	metricsMu     sync.Mutex
)

// Get 获取全局指标实例。
func Get() *InsightMetrics {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = New()
	}
	return globalMetrics
}

// New 创建独立的指标实例。
func New() *InsightMetrics {
	return &InsightMetrics{startTime: time.Now()}
}

// Reset 重置全局指标实例（测试用）。
func Reset() {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = New()
}

// RecordAnswer 记录一次问答。fallback 为空表示模型调用成功。
func (m *InsightMetrics) RecordAnswer(grounded bool, fallback string) {
	atomic.AddUint64(&m.answersTotal, 1)
	if grounded {
		atomic.AddUint64(&m.answersGrounded, 1)
	} else {
		atomic.AddUint64(&m.answersDirect, 1)
	}
	if fallback != "" {
		v, _ := m.fallbacks.LoadOrStore(fallback, new(uint64))
		atomic.AddUint64(v.(*uint64), 1)
	}
}

// RecordRetrieval 记录检索操作。
func (m *InsightMetrics) RecordRetrieval(duration time.Duration, results int, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}
	if results == 0 {
		atomic.AddUint64(&m.retrievalEmpty, 1)
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall 记录 LLM 调用。
func (m *InsightMetrics) RecordLLMCall(duration time.Duration, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordAssessment 记录评估。batch 为批量评估的记录数，0 表示单个评估。
func (m *InsightMetrics) RecordAssessment(batch int) {
	if batch > 0 {
		atomic.AddUint64(&m.batchAssessments, 1)
		atomic.AddUint64(&m.assessmentsTotal, uint64(batch))
		return
	}
	atomic.AddUint64(&m.assessmentsTotal, 1)
}

func (m *InsightMetrics) fallbackCounts() map[string]uint64 {
	out := make(map[string]uint64)
	m.fallbacks.Range(func(k, v any) bool {
		out[k.(string)] = atomic.LoadUint64(v.(*uint64))
		return true
	})
	return out
}

// Stats 返回当前统计信息（用于 API）。
func (m *InsightMetrics) Stats() map[string]any {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	retrievalOK := retrievalTotal - atomic.LoadUint64(&m.retrievalErrors)
	avgRetrieval := 0.0
	if retrievalOK > 0 {
		avgRetrieval = retrievalDuration / float64(retrievalOK)
	}

	llmTotal := atomic.LoadUint64(&m.llmCallsTotal)
	llmOK := llmTotal - atomic.LoadUint64(&m.llmCallsErrors)
	avgLLM := 0.0
	if llmOK > 0 {
		avgLLM = llmDuration / float64(llmOK)
	}

	return map[string]any{
		"answers": map[string]any{
			"total":     atomic.LoadUint64(&m.answersTotal),
			"direct":    atomic.LoadUint64(&m.answersDirect),
			"grounded":  atomic.LoadUint64(&m.answersGrounded),
			"fallbacks": m.fallbackCounts(),
		},
		"retrieval": map[string]any{
			"total":            retrievalTotal,
			"errors":           atomic.LoadUint64(&m.retrievalErrors),
			"empty":            atomic.LoadUint64(&m.retrievalEmpty),
			"avg_duration_sec": avgRetrieval,
		},
		"llm": map[string]any{
			"calls":            llmTotal,
			"errors":           atomic.LoadUint64(&m.llmCallsErrors),
			"avg_duration_sec": avgLLM,
		},
		"assessments": map[string]any{
			"total":   atomic.LoadUint64(&m.assessmentsTotal),
			"batches": atomic.LoadUint64(&m.batchAssessments),
		},
		"uptime_sec": time.Since(m.startTime).Seconds(),
	}
}

// Export 导出 Prometheus 文本格式指标。
func (m *InsightMetrics) Export(namespace string) string {
	var sb strings.Builder
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(&sb, "# HELP %s_%s %s\n", namespace, name, help)
		fmt.Fprintf(&sb, "# TYPE %s_%s counter\n", namespace, name)
		fmt.Fprintf(&sb, "%s_%s %d\n\n", namespace, name, v)
	}

	counter("answers_total", "Total number of answers.", atomic.LoadUint64(&m.answersTotal))
	counter("answers_grounded_total", "Answers built with retrieved evidence.", atomic.LoadUint64(&m.answersGrounded))
	counter("answers_direct_total", "Answers built without retrieval.", atomic.LoadUint64(&m.answersDirect))

	fmt.Fprintf(&sb, "# HELP %s_answer_fallbacks_total Fallback answers by failure kind.\n", namespace)
	fmt.Fprintf(&sb, "# TYPE %s_answer_fallbacks_total counter\n", namespace)
	for kind, n := range m.fallbackCounts() {
		fmt.Fprintf(&sb, "%s_answer_fallbacks_total{kind=%q} %d\n", namespace, kind, n)
	}
	sb.WriteString("\n")

	counter("retrieval_total", "Total number of retrievals.", atomic.LoadUint64(&m.retrievalTotal))
	counter("retrieval_errors_total", "Number of retrieval errors.", atomic.LoadUint64(&m.retrievalErrors))
	counter("retrieval_empty_total", "Retrievals that returned no evidence.", atomic.LoadUint64(&m.retrievalEmpty))
	counter("llm_calls_total", "Total number of LLM calls.", atomic.LoadUint64(&m.llmCallsTotal))
	counter("llm_calls_errors_total", "Number of LLM call errors.", atomic.LoadUint64(&m.llmCallsErrors))
	counter("assessments_total", "Records scored by the rule engine.", atomic.LoadUint64(&m.assessmentsTotal))

	fmt.Fprintf(&sb, "# HELP %s_uptime_seconds Service uptime in seconds.\n", namespace)
	fmt.Fprintf(&sb, "# TYPE %s_uptime_seconds gauge\n", namespace)
	fmt.Fprintf(&sb, "%s_uptime_seconds %.2f\n", namespace, time.Since(m.startTime).Seconds())
	return sb.String()
}
