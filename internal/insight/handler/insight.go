// Package handler provides HTTP handlers for the insight service.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/los-insight/internal/insight/biz"
	"github.com/kart-io/los-insight/internal/pkg/citation"
	"github.com/kart-io/los-insight/internal/pkg/clinical"
	"github.com/kart-io/los-insight/internal/pkg/cohort"
	"github.com/kart-io/los-insight/pkg/response"
)

// InsightHandler handles insight HTTP requests.
type InsightHandler struct {
	service biz.Service
}

// NewInsightHandler creates a new InsightHandler.
func NewInsightHandler(service biz.Service) *InsightHandler {
	return &InsightHandler{service: service}
}

// PageQuery is the pagination part of a list request.
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// Patients lists admissions matching the filter query, one page at a time.
// q searches name, admission id and department.
func (h *InsightHandler) Patients(c *gin.Context) {
	var (
		f cohort.Filter
		p PageQuery
	)
	if err := c.ShouldBindQuery(&f); err != nil {
		response.FailWithBindOrValidation(c, err)
		return
	}
	if err := c.ShouldBindQuery(&p); err != nil {
		response.FailWithBindOrValidation(c, err)
		return
	}
	page, err := h.service.Patients(c.Request.Context(), f, p.Page, p.PageSize)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, page)
}

// Patient returns one admission.
func (h *InsightHandler) Patient(c *gin.Context) {
	r, err := h.service.Patient(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, r)
}

// Assessment returns the rule-engine assessment, follow-up plan and lab panel.
func (h *InsightHandler) Assessment(c *gin.Context) {
	pa, err := h.service.Assess(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, pa)
}

// AnswerRequest represents a question about one admission.
type AnswerRequest struct {
	Question string           `json:"question"`
	File     *biz.FileContext `json:"file,omitempty"`
}

// Answer answers a clinical question. Model failures still answer 200 with
// the rule-based text; Fallback and Code describe the failure.
func (h *InsightHandler) Answer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithBindOrValidation(c, err)
		return
	}

	ans, err := h.service.Ask(c.Request.Context(), c.Param("id"), req.Question, req.File)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, ans)
}

// NoteRequest represents a clinical note update.
type NoteRequest struct {
	Note string `json:"note"`
}

// NoteResponse is the clinical note of an admission.
type NoteResponse struct {
	PatientID string `json:"patient_id"`
	Note      string `json:"note"`
}

// GetNote returns the clinical note ("" when none was saved).
func (h *InsightHandler) GetNote(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.service.Patient(c.Request.Context(), id); err != nil {
		response.FailWithError(c, err)
		return
	}
	text, err := h.service.Note(c.Request.Context(), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, NoteResponse{PatientID: id, Note: text})
}

// PutNote saves the clinical note, replacing any previous one.
func (h *InsightHandler) PutNote(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithBindOrValidation(c, err)
		return
	}

	id := c.Param("id")
	if err := h.service.SaveNote(c.Request.Context(), id, req.Note); err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OKWithMessage(c, "note saved", NoteResponse{PatientID: id, Note: req.Note})
}

// view binds the filter query parameters and returns the filtered cohort.
func (h *InsightHandler) view(c *gin.Context) (*cohort.Cohort, bool) {
	var f cohort.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		response.FailWithBindOrValidation(c, err)
		return nil, false
	}
	view, err := h.service.Cohort(c.Request.Context(), f)
	if err != nil {
		response.FailWithError(c, err)
		return nil, false
	}
	return view, true
}

// KPIs returns the headline indicators of the filtered cohort.
func (h *InsightHandler) KPIs(c *gin.Context) {
	if view, ok := h.view(c); ok {
		response.OK(c, view.KPIs())
	}
}

// Departments returns mean LOS per department.
func (h *InsightHandler) Departments(c *gin.Context) {
	if view, ok := h.view(c); ok {
		response.OK(c, view.DepartmentStats())
	}
}

// Conditions returns mean LOS per comorbidity flag.
func (h *InsightHandler) Conditions(c *gin.Context) {
	if view, ok := h.view(c); ok {
		response.OK(c, view.ConditionImpact())
	}
}

// Trends returns the monthly LOS trend.
func (h *InsightHandler) Trends(c *gin.Context) {
	if view, ok := h.view(c); ok {
		response.OK(c, view.MonthlyTrends())
	}
}

// AssessmentsResponse is a batch assessment result.
type AssessmentsResponse struct {
	Total       int                   `json:"total"`
	Assessments []clinical.Assessment `json:"assessments"`
}

// Assessments scores every admission of the filtered cohort.
func (h *InsightHandler) Assessments(c *gin.Context) {
	var f cohort.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		response.FailWithBindOrValidation(c, err)
		return
	}
	out, err := h.service.AssessCohort(c.Request.Context(), f)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, AssessmentsResponse{Total: len(out), Assessments: out})
}

// CitationDocument is one document to cite.
type CitationDocument struct {
	Filename string `json:"filename" binding:"required,notblank"`
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Year     string `json:"year"`
}

// CitationsRequest represents a citation formatting request.
type CitationsRequest struct {
	Documents []CitationDocument `json:"documents" binding:"required,dive"`
}

// Citations formats citations and drops repeated filenames.
func (h *InsightHandler) Citations(c *gin.Context) {
	var req CitationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithBindOrValidation(c, err)
		return
	}

	docs := make([]citation.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = citation.Document{Filename: d.Filename, Title: d.Title, Authors: d.Authors, Year: d.Year}
	}
	response.OK(c, h.service.Citations(docs))
}

// Stats returns service statistics.
func (h *InsightHandler) Stats(c *gin.Context) {
	response.OK(c, h.service.Stats(c.Request.Context()))
}

// Healthz reports readiness: 200 once a cohort snapshot is loaded.
func (h *InsightHandler) Healthz(c *gin.Context) {
	view, err := h.service.Cohort(c.Request.Context(), cohort.Filter{})
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, gin.H{"status": "ok", "patients": view.Len()})
}
