// Package conditions maps a patient record and its clinical note to the
// named conditions used to query the evidence index.
package conditions

import (
	"fmt"
	"strings"

	"github.com/kart-io/los-insight/internal/pkg/clinical"
)

// KeywordRule maps a case-insensitive substring of the note to a condition.
type KeywordRule struct {
	Keyword   string `json:"keyword" mapstructure:"keyword"`
	Condition string `json:"condition" mapstructure:"condition"`
}

// DefaultKeywordRules are used when no rules are configured.
var DefaultKeywordRules = []KeywordRule{
	{"diabetes", "Diabetes"},
	{"hyperglycemia", "Hyperglycemia"},
	{"high blood sugar", "Hyperglycemia"},
	{"kidney", "Kidney dysfunction"},
	{"renal", "Kidney dysfunction"},
	{"ckd", "Chronic kidney disease"},
	{"anemia", "Anemia"},
	{"anaemia", "Anemia"},
	{"sepsis", "Sepsis"},
	{"septic", "Sepsis"},
	{"heart failure", "Heart failure"},
	{"chf", "Heart failure"},
	{"copd", "COPD"},
	{"pneumonia", "Pneumonia"},
	{"asthma", "Asthma"},
	{"hypertension", "Hypertension"},
	{"atrial fibrillation", "Atrial fibrillation"},
	{"stroke", "Stroke"},
	{"depression", "Depression"},
	{"malnutrition", "Malnutrition"},
	{"infection", "Infection"},
}

// GenericTerms are non-actionable candidates that never count as a specific
// condition.
var GenericTerms = []string{"length of stay", "hospital admission", "medical care"}

type flagRule struct {
	field     string
	condition string
	set       func(clinical.DiseaseFlags) bool
}

var flagRules = []flagRule{
	{"dialysisrenalendstage", "End-stage renal disease", func(f clinical.DiseaseFlags) bool { return f.RenalEndStage }},
	{"asthma", "Asthma", func(f clinical.DiseaseFlags) bool { return f.Asthma }},
	{"irondef", "Iron deficiency", func(f clinical.DiseaseFlags) bool { return f.IronDeficiency }},
	{"pneum", "Pneumonia", func(f clinical.DiseaseFlags) bool { return f.Pneumonia }},
	{"substancedependence", "Substance dependence", func(f clinical.DiseaseFlags) bool { return f.SubstanceDependence }},
	{"psychologicaldisordermajor", "Major psychological disorder", func(f clinical.DiseaseFlags) bool { return f.MajorPsychological }},
	{"depress", "Depression", func(f clinical.DiseaseFlags) bool { return f.Depression }},
	{"psychother", "Requiring psychotherapy", func(f clinical.DiseaseFlags) bool { return f.Psychotherapy }},
	{"fibrosisandother", "Fibrosis and related conditions", func(f clinical.DiseaseFlags) bool { return f.FibrosisAndOther }},
	{"malnutrition", "Malnutrition", func(f clinical.DiseaseFlags) bool { return f.Malnutrition }},
}

type labSignal struct {
	metric    clinical.Metric
	condition string
	when      func(float64) bool
}

var labSignals = []labSignal{
	{clinical.MetricGlucose, "Hyperglycemia", func(v float64) bool { return v > 140 }},
	{clinical.MetricCreatinine, "Kidney dysfunction", func(v float64) bool { return v > 1.2 }},
	{clinical.MetricHematocrit, "Anemia", func(v float64) bool { return v < 12 }},
}

// Result is the outcome of an extraction.
type Result struct {
	// Conditions are the specific conditions in first-detection order.
	Conditions []string `json:"conditions"`
	Trace      []string `json:"trace"`
}

// Empty reports whether no specific condition was found.
func (r Result) Empty() bool { return len(r.Conditions) == 0 }

// Query joins the conditions into the evidence search string.
func (r Result) Query() string { return strings.Join(r.Conditions, ", ") }

// Option configures an Extractor.
type Option func(*Extractor)

// WithKeywordRules replaces the default keyword rules.
func WithKeywordRules(rules []KeywordRule) Option {
	return func(e *Extractor) {
		if len(rules) > 0 {
			e.rules = rules
		}
	}
}

// WithLabSignals enables the laboratory threshold rules.
func WithLabSignals(enabled bool) Option {
	return func(e *Extractor) { e.labSignals = enabled }
}

// Extractor is safe for concurrent use; it holds no mutable state.
type Extractor struct {
	rules      []KeywordRule
	labSignals bool
	generic    map[string]bool
}

// NewExtractor creates an extractor with the default keyword rules.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		rules:   DefaultKeywordRules,
		generic: make(map[string]bool, len(GenericTerms)),
	}
	for _, t := range GenericTerms {
		e.generic[t] = true
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the specific conditions of the record and note.
func (e *Extractor) Extract(r *clinical.PatientRecord, note string) Result {
	res := Result{Conditions: []string{}, Trace: []string{}}
	seen := make(map[string]bool)
	filtered := make(map[string]bool)
	add := func(cond, trace string) {
		res.Trace = append(res.Trace, trace)
		key := strings.ToLower(cond)
		if e.generic[key] {
			if !filtered[key] {
				filtered[key] = true
				res.Trace = append(res.Trace, fmt.Sprintf("filtered generic term %q", key))
			}
			return
		}
		if seen[key] {
			return
		}
		seen[key] = true
		res.Conditions = append(res.Conditions, cond)
	}

	for _, fr := range flagRules {
		if fr.set(r.Flags) {
			add(fr.condition, fmt.Sprintf("flag:%s -> %s", fr.field, fr.condition))
		}
	}

	if lower := strings.ToLower(note); lower != "" {
		for _, kr := range e.rules {
			if kr.Keyword == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kr.Keyword)) {
				add(kr.Condition, fmt.Sprintf("note:%q -> %s", kr.Keyword, kr.Condition))
			}
		}
	}

	if e.labSignals {
		for _, ls := range labSignals {
			if v := r.Labs.Value(ls.metric); v != nil && ls.when(*v) {
				add(ls.condition, fmt.Sprintf("lab:%s -> %s", ls.metric, ls.condition))
			}
		}
	}

	// 通用词总是作为候选项出现，然后被过滤
	for _, t := range GenericTerms {
		if filtered[t] {
			continue
		}
		res.Trace = append(res.Trace, fmt.Sprintf("filtered generic term %q", t))
	}
	return res
}
