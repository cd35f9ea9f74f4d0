package biz

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/kart-io/logger"

	"github.com/kart-io/los-insight/internal/insight/metrics"
	"github.com/kart-io/los-insight/internal/pkg/citation"
	"github.com/kart-io/los-insight/internal/pkg/clinical"
	"github.com/kart-io/los-insight/internal/pkg/cohort"
	"github.com/kart-io/los-insight/internal/pkg/notes"
	apierrors "github.com/kart-io/los-insight/pkg/errors"
	"github.com/kart-io/los-insight/pkg/infra/pool"
)

// Service 定义问答与队列分析服务接口。返回的错误均为 *apierrors.Errno。
type Service interface {
	// Patients 分页列出过滤后的住院记录。
	Patients(ctx context.Context, f cohort.Filter, page, pageSize int) (*PatientPage, error)
	// Patient 查询单次住院记录。
	Patient(ctx context.Context, id string) (*clinical.PatientRecord, error)
	// Assess 返回规则引擎评估、随访计划与化验面板。
	Assess(ctx context.Context, id string) (*PatientAssessment, error)
	// Ask 回答关于某次住院的问题。
	Ask(ctx context.Context, id, question string, file *FileContext) (*Answer, error)
	// Note 读取临床笔记。
	Note(ctx context.Context, id string) (string, error)
	// SaveNote 保存临床笔记（后写覆盖）。
	SaveNote(ctx context.Context, id, text string) error
	// Cohort 返回过滤后的队列视图。
	Cohort(ctx context.Context, f cohort.Filter) (*cohort.Cohort, error)
	// AssessCohort 批量评估过滤后的队列。
	AssessCohort(ctx context.Context, f cohort.Filter) ([]clinical.Assessment, error)
	// Citations 格式化引用并按文件名去重。
	Citations(docs []citation.Document) []string
	// Stats 返回服务统计信息。
	Stats(ctx context.Context) map[string]any
}

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// PatientPage 住院记录分页结果。
type PatientPage struct {
	Total    int                       `json:"total"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"page_size"`
	Patients []*clinical.PatientRecord `json:"patients"`
}

// PatientAssessment 单个患者的完整评估。
type PatientAssessment struct {
	Record     *clinical.PatientRecord `json:"record"`
	Assessment clinical.Assessment     `json:"assessment"`
	FollowUp   clinical.FollowUpPlan   `json:"follow_up"`
	LabPanel   clinical.Panel          `json:"lab_panel"`
}

// InsightService 实现 Service。
type InsightService struct {
	cohort    atomic.Pointer[cohort.Cohort]
	notes     notes.Store
	responder *Responder
	evidence  *EvidenceIndex
	pool      *pool.Pool
	metrics   *metrics.InsightMetrics
}

// NewInsightService 创建服务实例。p 为 nil 时批量评估串行执行。
func NewInsightService(c *cohort.Cohort, ns notes.Store, responder *Responder, evidence *EvidenceIndex, p *pool.Pool, m *metrics.InsightMetrics) *InsightService {
	if m == nil {
		m = metrics.Get()
	}
	s := &InsightService{
		notes:     ns,
		responder: responder,
		evidence:  evidence,
		pool:      p,
		metrics:   m,
	}
	if c != nil {
		s.cohort.Store(c)
	}
	return s
}

// SetCohort 替换队列快照。已有视图保留其原有分位数。
func (s *InsightService) SetCohort(c *cohort.Cohort) {
	s.cohort.Store(c)
}

func (s *InsightService) snapshot() (*cohort.Cohort, error) {
	c := s.cohort.Load()
	if c == nil {
		return nil, apierrors.ErrCohortNotLoaded
	}
	return c, nil
}

func (s *InsightService) record(id string) (*cohort.Cohort, *clinical.PatientRecord, error) {
	c, err := s.snapshot()
	if err != nil {
		return nil, nil, err
	}
	r, ok := c.Get(id)
	if !ok {
		return nil, nil, apierrors.ErrPatientNotFound.WithMessagef("Patient %s not found", id)
	}
	return c, r, nil
}

// Patients 实现 Service。page 从 1 开始，pageSize 超出范围时取默认值或上限。
func (s *InsightService) Patients(ctx context.Context, f cohort.Filter, page, pageSize int) (*PatientPage, error) {
	view, err := s.Cohort(ctx, f)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	// 页码过大时直接越过末尾，避免 offset 溢出
	offset := view.Len()
	if page-1 <= view.Len()/pageSize {
		offset = (page - 1) * pageSize
	}
	return &PatientPage{
		Total:    view.Len(),
		Page:     page,
		PageSize: pageSize,
		Patients: view.Page(offset, pageSize),
	}, nil
}

// Patient 实现 Service。
func (s *InsightService) Patient(_ context.Context, id string) (*clinical.PatientRecord, error) {
	_, r, err := s.record(id)
	return r, err
}

// Assess 实现 Service。
func (s *InsightService) Assess(_ context.Context, id string) (*PatientAssessment, error) {
	c, r, err := s.record(id)
	if err != nil {
		return nil, err
	}
	a := clinical.Assess(r, c.Percentiles())
	if len(a.Skipped) > 0 {
		logger.Warnw("Rules skipped for missing values", "patient_id", id, "skipped", a.Skipped)
	}
	s.metrics.RecordAssessment(0)
	return &PatientAssessment{
		Record:     r,
		Assessment: a,
		FollowUp:   clinical.FollowUp(r),
		LabPanel:   clinical.LabPanel(r),
	}, nil
}

// Ask 实现 Service。笔记读取失败时不带笔记继续回答。
func (s *InsightService) Ask(ctx context.Context, id, question string, file *FileContext) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, apierrors.ErrEmptyQuestion
	}
	c, r, err := s.record(id)
	if err != nil {
		return nil, err
	}

	var note string
	if s.notes != nil {
		if note, err = s.notes.Get(ctx, id); err != nil {
			logger.Warnw("Failed to read clinical note, answering without it", "patient_id", id, "error", err.Error())
			note = ""
		}
	}

	return s.responder.Answer(ctx, AnswerRequest{
		Record:      r,
		Percentiles: c.Percentiles(),
		Question:    question,
		Note:        note,
		File:        file,
	}), nil
}

// Note 实现 Service。
func (s *InsightService) Note(ctx context.Context, id string) (string, error) {
	if s.notes == nil {
		return "", apierrors.ErrNoteStore
	}
	text, err := s.notes.Get(ctx, id)
	if err != nil {
		logger.Warnw("Failed to read clinical note", "patient_id", id, "error", err.Error())
		return "", apierrors.ErrNoteStore.WithCause(err)
	}
	return text, nil
}

// SaveNote 实现 Service。
func (s *InsightService) SaveNote(ctx context.Context, id, text string) error {
	if _, _, err := s.record(id); err != nil {
		return err
	}
	if s.notes == nil {
		return apierrors.ErrNoteStore
	}
	if err := s.notes.Put(ctx, id, text); err != nil {
		logger.Warnw("Failed to save clinical note", "patient_id", id, "error", err.Error())
		return apierrors.ErrNoteStore.WithCause(err)
	}
	logger.Infow("Clinical note saved", "patient_id", id, "length", len(text))
	return nil
}

// Cohort 实现 Service。
func (s *InsightService) Cohort(_ context.Context, f cohort.Filter) (*cohort.Cohort, error) {
	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return c.Filter(f), nil
}

// AssessCohort 实现 Service。
func (s *InsightService) AssessCohort(ctx context.Context, f cohort.Filter) ([]clinical.Assessment, error) {
	c, err := s.Cohort(ctx, f)
	if err != nil {
		return nil, err
	}
	out, err := c.AssessAll(ctx, s.pool)
	if err != nil {
		logger.Warnw("Batch assessment aborted", "error", err.Error())
		return nil, apierrors.ErrInternal.WithCause(err)
	}
	s.metrics.RecordAssessment(len(out))
	return out, nil
}

// Citations 实现 Service。
func (s *InsightService) Citations(docs []citation.Document) []string {
	docs = citation.Dedup(docs, func(d citation.Document) string { return d.Filename })
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = citation.Format(d)
	}
	return out
}

// Stats 实现 Service。
func (s *InsightService) Stats(ctx context.Context) map[string]any {
	stats := s.metrics.Stats()
	if c := s.cohort.Load(); c != nil {
		stats["cohort"] = map[string]any{
			"patients":    c.Len(),
			"percentiles": c.Percentiles(),
			"loaded_at":   c.LoadedAt(),
		}
	}
	if s.evidence != nil {
		stats["evidence_documents"] = s.evidence.Count(ctx)
	}
	if s.pool != nil {
		stats["pool"] = s.pool.Stats()
	}
	return stats
}

var _ Service = (*InsightService)(nil)
