package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/los-insight/internal/insight/metrics"
	"github.com/kart-io/los-insight/internal/pkg/citation"
	"github.com/kart-io/los-insight/internal/pkg/clinical"
	"github.com/kart-io/los-insight/internal/pkg/conditions"
	ctxlog "github.com/kart-io/los-insight/pkg/infra/logger"
	"github.com/kart-io/los-insight/pkg/infra/tracing"
	"github.com/kart-io/los-insight/pkg/llm"
)

// AnswerRequest 单次问答请求。
type AnswerRequest struct {
	Record      *clinical.PatientRecord
	Percentiles clinical.Percentiles
	Question    string
	Note        string
	File        *FileContext
}

// Answer 问答结果。Fallback 非空时 Text 为固定提示加规则引擎回答。
type Answer struct {
	RequestID  string           `json:"request_id"`
	Text       string           `json:"answer"`
	Evidence   []ScoredDocument `json:"evidence"`
	Conditions []string         `json:"conditions"`
	Trace      []string         `json:"trace"`
	Grounded   bool             `json:"grounded"`
	Fallback   llm.FailureKind  `json:"fallback,omitempty"`
	Code       int              `json:"code,omitempty"`
}

// ResponderConfig 问答配置。
type ResponderConfig struct {
	// Timeout 单次模型调用超时。不做自动重试。
	Timeout time.Duration
	// TopK 检索文档数量。
	TopK int
	// SystemPrompt 为空时使用 SystemPrompt。
	SystemPrompt string
}

// Responder 编排条件提取、证据检索、提示词组装与模型调用。
type Responder struct {
	extractor *conditions.Extractor
	evidence  *EvidenceIndex
	chat      llm.ChatProvider
	config    *ResponderConfig
	metrics   *metrics.InsightMetrics
}

// NewResponder 创建 Responder。chat 为 nil 时所有请求都走规则回答。
func NewResponder(extractor *conditions.Extractor, evidence *EvidenceIndex, chat llm.ChatProvider, config *ResponderConfig, m *metrics.InsightMetrics) *Responder {
	if config == nil {
		config = &ResponderConfig{}
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = SystemPrompt
	}
	if extractor == nil {
		extractor = conditions.NewExtractor()
	}
	if evidence == nil {
		evidence = NewEvidenceIndex(nil, nil, nil, m)
	}
	if m == nil {
		m = metrics.Get()
	}
	return &Responder{
		extractor: extractor,
		evidence:  evidence,
		chat:      chat,
		config:    config,
		metrics:   m,
	}
}

// Answer 回答关于某次住院的问题。错误不会向调用方传播，而是转换为降级回答。
func (r *Responder) Answer(ctx context.Context, req AnswerRequest) *Answer {
	ans := &Answer{
		RequestID: ulid.Make().String(),
		Evidence:  []ScoredDocument{},
	}

	ctx, span := tracing.StartSpan(ctx, "insight.answer")
	defer span.End()
	ctx = ctxlog.WithPatientID(ctx, req.Record.ID)

	extracted := r.extractor.Extract(req.Record, req.Note)
	ans.Conditions = extracted.Conditions
	ans.Trace = append(ans.Trace, extracted.Trace...)

	if extracted.Empty() {
		ans.Trace = append(ans.Trace, "retrieval skipped: no specific conditions")
	} else {
		found := r.evidence.Search(ctx, extracted.Conditions, r.config.TopK)
		ans.Evidence = citation.Dedup(found, func(d ScoredDocument) string { return d.Document.Filename })
		ans.Grounded = len(ans.Evidence) > 0
		ans.Trace = append(ans.Trace, fmt.Sprintf("retrieval: %d documents (%d after dedup) for %q",
			len(found), len(ans.Evidence), extracted.Query()))
	}

	prompt := BuildPrompt(PromptInput{
		Record:     req.Record,
		Question:   req.Question,
		Note:       req.Note,
		File:       req.File,
		Conditions: extracted.Conditions,
		Evidence:   ans.Evidence,
	})

	raw, err := r.generate(ctx, prompt)
	if err != nil {
		kind := llm.Classify(err)
		tracing.RecordError(ctx, err)
		ctxlog.FromContext(ctx).Warnw("Language model call failed, using rule-based answer",
			"answer_id", ans.RequestID,
			"kind", string(kind),
			"error", err.Error(),
		)
		assessment := clinical.Assess(req.Record, req.Percentiles)
		ans.Fallback = kind
		ans.Code = ErrnoForFailure(kind).Code
		ans.Text = kind.UserMessage() + "\n\n" + RuleBasedAnswer(req.Question, req.Record, assessment)
		ans.Trace = append(ans.Trace, "llm: "+string(kind)+", rule-based answer used")
		r.metrics.RecordAnswer(ans.Grounded, string(kind))
		return ans
	}

	ans.Text = CleanAnswer(raw)
	ans.Trace = append(ans.Trace, "llm: ok")
	span.SetAttributes(
		attribute.Bool("insight.grounded", ans.Grounded),
		attribute.Int("insight.evidence", len(ans.Evidence)),
	)
	r.metrics.RecordAnswer(ans.Grounded, "")
	return ans
}

func (r *Responder) generate(ctx context.Context, prompt string) (string, error) {
	if r.chat == nil {
		return "", llm.ErrNotConfigured
	}
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	ctx, span := tracing.StartSpan(ctx, "insight.llm.generate")
	defer span.End()

	start := time.Now()
	out, err := r.chat.Generate(ctx, prompt, r.config.SystemPrompt)
	r.metrics.RecordLLMCall(time.Since(start), err)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("empty completion")
	}
	return out, nil
}
