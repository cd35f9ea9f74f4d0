// Package cohort holds an immutable snapshot of admissions together with the
// length-of-stay percentiles computed when the snapshot was built.
package cohort

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/los-insight/internal/pkg/clinical"
)

// Cohort is a read-only set of derived records. Filtered views share the
// percentiles of the snapshot they came from.
type Cohort struct {
	records  []*clinical.PatientRecord
	byID     map[string]*clinical.PatientRecord
	pct      clinical.Percentiles
	loadedAt time.Time
}

// New derives every record and computes the P75/P90 length-of-stay cut-offs.
// Records with a duplicate id keep the first occurrence.
func New(records []*clinical.PatientRecord, now time.Time) *Cohort {
	c := &Cohort{
		records:  make([]*clinical.PatientRecord, 0, len(records)),
		byID:     make(map[string]*clinical.PatientRecord, len(records)),
		loadedAt: now,
	}

	for _, r := range records {
		if r == nil {
			continue
		}
		if _, dup := c.byID[r.ID]; dup {
			logger.Warnw("Duplicate admission id skipped", "id", r.ID)
			continue
		}
		if r.LengthOfStay == 0 && r.DischargeDate.After(r.AdmissionDate) {
			r.LengthOfStay = clinical.DaysBetween(r.AdmissionDate, r.DischargeDate)
		}
		c.byID[r.ID] = r
		c.records = append(c.records, r)
	}

	los := make([]float64, len(c.records))
	for i, r := range c.records {
		los[i] = float64(r.LengthOfStay)
	}
	c.pct = clinical.Percentiles{P75: Percentile(los, 0.75), P90: Percentile(los, 0.90)}

	for _, r := range c.records {
		r.Derive(c.pct)
	}
	return c
}

// Percentile returns the q-quantile of values using linear interpolation
// between closest ranks. It returns 0 for an empty slice.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// Len returns the number of records.
func (c *Cohort) Len() int { return len(c.records) }

// Records returns the records in load order. Callers must not modify them.
func (c *Cohort) Records() []*clinical.PatientRecord {
	return slices.Clone(c.records)
}

// Get looks up a record by admission id.
func (c *Cohort) Get(id string) (*clinical.PatientRecord, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Percentiles returns the snapshot cut-offs.
func (c *Cohort) Percentiles() clinical.Percentiles { return c.pct }

// LoadedAt returns the snapshot time.
func (c *Cohort) LoadedAt() time.Time { return c.loadedAt }

// Filter selects records. Empty fields match everything; From and To bound
// the admission date inclusively. Query matches the patient name, admission
// id or department as a case-insensitive substring.
type Filter struct {
	Query       string               `form:"q" json:"q,omitempty"`
	Departments []string             `form:"department" json:"departments,omitempty"`
	Genders     []clinical.Gender    `form:"gender" json:"genders,omitempty"`
	RiskLevels  []clinical.RiskLevel `form:"risk_level" json:"risk_levels,omitempty"`
	AgeGroups   []string             `form:"age_group" json:"age_groups,omitempty"`
	From        time.Time            `form:"from" time_format:"2006-01-02" time_utc:"1" json:"from,omitempty"`
	To          time.Time            `form:"to" time_format:"2006-01-02" time_utc:"1" json:"to,omitempty"`
}

func (f Filter) match(r *clinical.PatientRecord) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" &&
		!strings.Contains(strings.ToLower(r.Name()), q) &&
		!strings.Contains(strings.ToLower(r.ID), q) &&
		!strings.Contains(strings.ToLower(r.Department), q) {
		return false
	}
	if len(f.Departments) > 0 && !slices.Contains(f.Departments, r.Department) {
		return false
	}
	if len(f.Genders) > 0 && !slices.Contains(f.Genders, r.Gender) {
		return false
	}
	if len(f.RiskLevels) > 0 && !slices.Contains(f.RiskLevels, r.RiskLevel) {
		return false
	}
	if len(f.AgeGroups) > 0 && !slices.Contains(f.AgeGroups, r.AgeGroup) {
		return false
	}
	if !f.From.IsZero() && r.AdmissionDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.AdmissionDate.After(f.To) {
		return false
	}
	return true
}

// Filter returns a view of the matching records. The view keeps the parent
// percentiles so risk levels never shift under a filter.
func (c *Cohort) Filter(f Filter) *Cohort {
	v := &Cohort{
		byID:     make(map[string]*clinical.PatientRecord),
		pct:      c.pct,
		loadedAt: c.loadedAt,
	}
	for _, r := range c.records {
		if f.match(r) {
			v.records = append(v.records, r)
			v.byID[r.ID] = r
		}
	}
	return v
}

// Page returns records [offset, offset+limit) in load order. An offset past
// the end yields an empty slice.
func (c *Cohort) Page(offset, limit int) []*clinical.PatientRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(c.records) || limit <= 0 {
		return []*clinical.PatientRecord{}
	}
	end := min(offset+limit, len(c.records))
	return slices.Clone(c.records[offset:end])
}
