package clinical

import "fmt"

// Tier is the urgency of a priority action.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
)

// Action is a recommended intervention.
type Action struct {
	Issue    string `json:"issue"`
	Action   string `json:"action"`
	Timeline string `json:"timeline"`
}

// Priorities groups actions by tier. Tiers are evaluated independently, so the
// same finding can appear in more than one tier.
type Priorities struct {
	Critical []Action `json:"critical"`
	High     []Action `json:"high"`
	Medium   []Action `json:"medium"`
	Low      []Action `json:"low"`
}

func (p *Priorities) add(t Tier, a Action) {
	switch t {
	case TierCritical:
		p.Critical = append(p.Critical, a)
	case TierHigh:
		p.High = append(p.High, a)
	case TierMedium:
		p.Medium = append(p.Medium, a)
	case TierLow:
		p.Low = append(p.Low, a)
	}
}

// Urgent reports whether any critical or high priority action fired.
func (p Priorities) Urgent() bool {
	return len(p.Critical) > 0 || len(p.High) > 0
}

// Empty reports whether no action fired.
func (p Priorities) Empty() bool {
	return !p.Urgent() && len(p.Medium) == 0 && len(p.Low) == 0
}

// DischargeStatus is the readiness band.
type DischargeStatus string

const (
	DischargeReady    DischargeStatus = "READY FOR DISCHARGE"
	DischargePlanning DischargeStatus = "DISCHARGE PLANNING NEEDED"
	DischargeNotReady DischargeStatus = "NOT READY"
)

// Discharge is the discharge readiness assessment.
type Discharge struct {
	Score           int             `json:"score"`
	Status          DischargeStatus `json:"status"`
	Timeline        string          `json:"timeline"`
	ReadyFactors    []string        `json:"ready_factors"`
	BlockingFactors []string        `json:"blocking_factors"`
}

// Assessment is the full output of the rule engine for one record.
type Assessment struct {
	PatientID   string     `json:"patient_id"`
	RiskLevel   RiskLevel  `json:"risk_level"`
	RiskFactors []string   `json:"risk_factors"`
	Priorities  Priorities `json:"priorities"`
	Discharge   Discharge  `json:"discharge"`
	Emergency   []string   `json:"emergency"`
	// Skipped lists rules that could not be evaluated because a value was missing.
	Skipped []string `json:"skipped,omitempty"`
}

// labRule fires on a single metric. Missing values skip the rule.
type labRule struct {
	name   string
	metric Metric
	when   func(float64) bool
}

// recordRule fires on non-laboratory fields and is always evaluable.
type recordRule struct {
	name string
	when func(*PatientRecord, Percentiles) bool
}

func above(limit float64) func(float64) bool { return func(v float64) bool { return v > limit } }
func below(limit float64) func(float64) bool { return func(v float64) bool { return v < limit } }

type riskRule struct {
	lab *labRule
	rec *recordRule
}

var riskRules = []riskRule{
	{rec: &recordRule{"Extended length of stay", func(r *PatientRecord, p Percentiles) bool { return float64(r.LengthOfStay) > p.P75 }}},
	{rec: &recordRule{"Previous readmission", func(r *PatientRecord, _ Percentiles) bool { return r.ReadmitFlag }}},
	{rec: &recordRule{"Advanced age", func(r *PatientRecord, _ Percentiles) bool { return r.AgeAtAdmission > 65 }}},
	{lab: &labRule{"Elevated creatinine", MetricCreatinine, above(1.2)}},
	{lab: &labRule{"Elevated glucose", MetricGlucose, above(140)}},
	{lab: &labRule{"High hematocrit", MetricHematocrit, above(16)}},
	{lab: &labRule{"Low hematocrit", MetricHematocrit, below(12)}},
}

type actionRule struct {
	tier     Tier
	action   string
	timeline string
	lab      *labRule
	rec      *recordRule
}

var actionRules = []actionRule{
	// Critical
	{TierCritical, "Immediate insulin protocol + hourly glucose monitoring", "NOW",
		&labRule{"Severe Hyperglycemia", MetricGlucose, above(300)}, nil},
	{TierCritical, "Urgent nephrology consult + fluid balance review", "Within 2 hours",
		&labRule{"Severe Kidney Dysfunction", MetricCreatinine, above(2.0)}, nil},
	{TierCritical, "ECG + cardiac monitoring + vitals q15min", "NOW",
		&labRule{"High Heart Rate", MetricPulse, above(120)}, nil},
	{TierCritical, "ECG + cardiac monitoring + vitals q15min", "NOW",
		&labRule{"Low Heart Rate", MetricPulse, below(50)}, nil},
	{TierCritical, "Type & cross + consider transfusion", "Within 1 hour",
		&labRule{"Severe Anemia", MetricHematocrit, below(8)}, nil},

	// High
	{TierHigh, "Adjust insulin regimen + q6h glucose checks", "Within 4 hours",
		&labRule{"Hyperglycemia", MetricGlucose, above(180)}, nil},
	{TierHigh, "Review medications + increase monitoring", "Today",
		&labRule{"Kidney Function Decline", MetricCreatinine, above(1.5)}, nil},
	{TierHigh, "Discharge planning meeting + complications review", "Today",
		nil, &recordRule{"Extended Stay Risk", func(r *PatientRecord, _ Percentiles) bool { return r.LengthOfStay > 10 }}},

	// Medium
	{TierMedium, "Iron studies + nutrition consult", "Within 24h",
		&labRule{"Anemia", MetricHematocrit, below(12)}, nil},
	{TierMedium, "Nutrition assessment + calorie count", "Within 48h",
		&labRule{"Underweight", MetricBMI, below(18.5)}, nil},
	{TierMedium, "Psychology/psychiatry consult", "Within 48h",
		nil, &recordRule{"Mental Health Needs", func(r *PatientRecord, _ Percentiles) bool { return r.Flags.MentalHealth() }}},

	// Low
	{TierLow, "Dietary counseling + activity plan", "Before discharge",
		&labRule{"Weight Management", MetricBMI, above(25)}, nil},
	{TierLow, "Enhanced discharge education + follow-up", "Before discharge",
		nil, &recordRule{"Readmission Risk", func(r *PatientRecord, _ Percentiles) bool { return r.ReadmitFlag }}},
}

var emergencyRules = []labRule{
	{"Severe kidney dysfunction", MetricCreatinine, above(2.0)},
	{"Severe hyperglycemia", MetricGlucose, above(300)},
	{"High heart rate", MetricPulse, above(120)},
	{"Low heart rate", MetricPulse, below(50)},
	{"Severe anemia", MetricHematocrit, below(8)},
}

// evaluator accumulates skipped rules while evaluating.
type evaluator struct {
	r       *PatientRecord
	p       Percentiles
	skipped []string
	seen    map[string]bool
}

func (e *evaluator) lab(rule *labRule) bool {
	v := e.r.Labs.Value(rule.metric)
	if v == nil {
		e.skip(fmt.Sprintf("%s (%s missing)", rule.name, rule.metric))
		return false
	}
	return rule.when(*v)
}

func (e *evaluator) skip(s string) {
	if e.seen[s] {
		return
	}
	e.seen[s] = true
	e.skipped = append(e.skipped, s)
}

// Assess runs every rule against the record. It is pure and deterministic.
func Assess(r *PatientRecord, p Percentiles) Assessment {
	e := &evaluator{r: r, p: p, seen: make(map[string]bool)}
	a := Assessment{
		PatientID:   r.ID,
		RiskLevel:   r.RiskLevel,
		RiskFactors: []string{},
		Emergency:   []string{},
	}

	for _, rule := range riskRules {
		var fired bool
		var name string
		if rule.lab != nil {
			name, fired = rule.lab.name, e.lab(rule.lab)
		} else {
			name, fired = rule.rec.name, rule.rec.when(r, p)
		}
		if fired {
			a.RiskFactors = append(a.RiskFactors, name)
		}
	}

	for _, rule := range actionRules {
		var fired bool
		var issue string
		if rule.lab != nil {
			issue, fired = rule.lab.name, e.lab(rule.lab)
		} else {
			issue, fired = rule.rec.name, rule.rec.when(r, p)
		}
		if fired {
			a.Priorities.add(rule.tier, Action{Issue: issue, Action: rule.action, Timeline: rule.timeline})
		}
	}

	for i := range emergencyRules {
		if e.lab(&emergencyRules[i]) {
			a.Emergency = append(a.Emergency, emergencyRules[i].name)
		}
	}

	a.Discharge = discharge(r, a.Priorities)
	a.Skipped = e.skipped
	return a
}

// labCheck is one component of the laboratory stability sub-score.
type labCheck struct {
	metric  Metric
	stable  func(float64) bool
	ready   string
	blocked func(float64) string
}

var labChecks = []labCheck{
	{
		metric: MetricGlucose,
		stable: func(v float64) bool { return v >= 70 && v <= 180 },
		ready:  "Glucose controlled",
		blocked: func(v float64) string {
			if v > 180 {
				return "Uncontrolled glucose"
			}
			return "Low glucose"
		},
	},
	{
		metric: MetricCreatinine,
		stable: func(v float64) bool { return v >= 0.6 && v <= 1.5 },
		ready:  "Kidney function stable",
		blocked: func(v float64) string {
			if v > 1.5 {
				return "Kidney function concerns"
			}
			return "Low creatinine"
		},
	},
	{
		metric:  MetricHematocrit,
		stable:  func(v float64) bool { return v >= 10 },
		ready:   "Adequate blood levels",
		blocked: func(float64) string { return "Severe anemia needs treatment" },
	},
}

func discharge(r *PatientRecord, pr Priorities) Discharge {
	d := Discharge{ReadyFactors: []string{}, BlockingFactors: []string{}}
	ready := func(s string) { d.ReadyFactors = append(d.ReadyFactors, s) }
	block := func(s string) { d.BlockingFactors = append(d.BlockingFactors, s) }

	// 医疗稳定性 40
	if !pr.Urgent() {
		d.Score += 40
		ready("Medical condition stable")
	} else {
		block("Unresolved critical/high priority issues")
	}

	// 化验稳定性 30，缺失值按不稳定计
	stable := 0
	for _, c := range labChecks {
		v := r.Labs.Value(c.metric)
		switch {
		case v == nil:
			block(Ranges[c.metric].Label + " not available")
		case c.stable(*v):
			stable++
			ready(c.ready)
		default:
			block(c.blocked(*v))
		}
	}
	d.Score += 30 * stable / len(labChecks)

	// 住院时长 20
	switch {
	case r.LengthOfStay <= 7:
		d.Score += 20
		ready("Appropriate length of stay")
	case r.LengthOfStay <= 14:
		d.Score += 10
		ready("Length of stay within 14 days")
	default:
		block("Extended stay - investigate barriers")
	}

	// 社会因素 10
	if !r.Flags.Malnutrition {
		d.Score += 5
		ready("Nutrition adequate")
	} else {
		block("Nutrition concerns need addressing")
	}
	if !r.Flags.MentalHealth() {
		d.Score += 5
		ready("Mental health stable")
	} else {
		block("Mental health needs ongoing care")
	}

	switch {
	case d.Score >= 80:
		d.Status, d.Timeline = DischargeReady, "Today - within 24 hours"
	case d.Score >= 60:
		d.Status, d.Timeline = DischargePlanning, "24-48 hours (after addressing issues)"
	default:
		d.Status, d.Timeline = DischargeNotReady, "48+ hours (significant interventions needed)"
	}
	return d
}
