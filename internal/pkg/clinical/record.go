// Package clinical holds the patient record model, the laboratory normal
// ranges and the deterministic rule engine that scores an admission.
package clinical

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// Gender of the patient.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// RiskLevel is the coarse risk classification of an admission.
type RiskLevel string

const (
	RiskStandard RiskLevel = "Standard Risk"
	RiskHigh     RiskLevel = "High Risk"
)

// Labs holds laboratory values and vitals. A nil pointer means the value is
// missing and every rule depending on it is skipped.
type Labs struct {
	Glucose           *float64 `json:"glucose,omitempty"`
	Creatinine        *float64 `json:"creatinine,omitempty"`
	Hematocrit        *float64 `json:"hematocrit,omitempty"`
	Pulse             *float64 `json:"pulse,omitempty"`
	Respiration       *float64 `json:"respiration,omitempty"`
	BMI               *float64 `json:"bmi,omitempty"`
	Sodium            *float64 `json:"sodium,omitempty"`
	Neutrophils       *float64 `json:"neutrophils,omitempty"`
	BloodUreaNitrogen *float64 `json:"blood_urea_nitrogen,omitempty"`
}

// Value returns the value of metric m.
func (l *Labs) Value(m Metric) *float64 {
	switch m {
	case MetricGlucose:
		return l.Glucose
	case MetricCreatinine:
		return l.Creatinine
	case MetricHematocrit:
		return l.Hematocrit
	case MetricPulse:
		return l.Pulse
	case MetricRespiration:
		return l.Respiration
	case MetricBMI:
		return l.BMI
	case MetricSodium:
		return l.Sodium
	case MetricNeutrophils:
		return l.Neutrophils
	case MetricBUN:
		return l.BloodUreaNitrogen
	}
	return nil
}

func (l *Labs) slot(m Metric) **float64 {
	switch m {
	case MetricGlucose:
		return &l.Glucose
	case MetricCreatinine:
		return &l.Creatinine
	case MetricHematocrit:
		return &l.Hematocrit
	case MetricPulse:
		return &l.Pulse
	case MetricRespiration:
		return &l.Respiration
	case MetricBMI:
		return &l.BMI
	case MetricSodium:
		return &l.Sodium
	case MetricNeutrophils:
		return &l.Neutrophils
	case MetricBUN:
		return &l.BloodUreaNitrogen
	}
	return nil
}

// Sanitize drops non-finite or negative values and returns the metrics it
// cleared.
func (l *Labs) Sanitize() []Metric {
	var dropped []Metric
	for _, m := range Metrics {
		p := l.slot(m)
		if *p == nil {
			continue
		}
		v := **p
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			*p = nil
			dropped = append(dropped, m)
		}
	}
	return dropped
}

// DiseaseFlags are the binary comorbidity indicators of an admission.
type DiseaseFlags struct {
	RenalEndStage       bool `json:"renal_end_stage"`
	Asthma              bool `json:"asthma"`
	IronDeficiency      bool `json:"iron_deficiency"`
	Pneumonia           bool `json:"pneumonia"`
	SubstanceDependence bool `json:"substance_dependence"`
	MajorPsychological  bool `json:"major_psychological_disorder"`
	Depression          bool `json:"depression"`
	Psychotherapy       bool `json:"psychotherapy"`
	FibrosisAndOther    bool `json:"fibrosis_and_other"`
	Malnutrition        bool `json:"malnutrition"`
}

// MentalHealth reports depression or a major psychological disorder.
func (f DiseaseFlags) MentalHealth() bool {
	return f.Depression || f.MajorPsychological
}

// PatientRecord is one hospital admission.
type PatientRecord struct {
	ID            string    `json:"id" validate:"required"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Gender        Gender    `json:"gender" validate:"omitempty,oneof=M F"`
	Department    string    `json:"department"`
	AdmissionDate time.Time `json:"admission_date" validate:"required"`
	DischargeDate time.Time `json:"discharge_date" validate:"required,gtefield=AdmissionDate"`
	DateOfBirth   time.Time `json:"date_of_birth" validate:"required,ltefield=AdmissionDate"`
	ReadmitCount  string    `json:"readmit_count"`
	LengthOfStay  int       `json:"length_of_stay" validate:"gte=0"`

	Labs  Labs         `json:"labs"`
	Flags DiseaseFlags `json:"flags"`

	// 由 Derive 计算
	AgeAtAdmission float64   `json:"age_at_admission"`
	AgeGroup       string    `json:"age_group"`
	Month          string    `json:"month"`
	IsLongStay     bool      `json:"is_long_stay"`
	ReadmitFlag    bool      `json:"readmit_flag"`
	RiskLevel      RiskLevel `json:"risk_level"`
}

// Name returns "First Last".
func (r *PatientRecord) Name() string {
	switch {
	case r.FirstName == "":
		return r.LastName
	case r.LastName == "":
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural invariants of the record.
func (r *PatientRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("record %q: field %s failed %q", r.ID, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("record %q: %w", r.ID, err)
	}
	return nil
}

// Percentiles are cohort-level length-of-stay cut-offs.
type Percentiles struct {
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

var ageBins = []struct {
	upper float64
	label string
}{
	{18, "0-18"},
	{35, "19-35"},
	{50, "36-50"},
	{65, "51-65"},
	{80, "66-80"},
}

// AgeGroup maps an age onto the right-closed bins (0,18], (18,35], (35,50],
// (50,65], (65,80], (80,100]. Ages outside (0,100] fall into the nearest
// edge group.
func AgeGroup(age float64) string {
	for _, b := range ageBins {
		if age <= b.upper {
			return b.label
		}
	}
	return "80+"
}

// Derive fills the derived fields from the raw fields and the cohort
// percentiles. LengthOfStay is computed from the dates when it is zero and
// the dates differ.
func (r *PatientRecord) Derive(p Percentiles) {
	if r.LengthOfStay == 0 && r.DischargeDate.After(r.AdmissionDate) {
		r.LengthOfStay = DaysBetween(r.AdmissionDate, r.DischargeDate)
	}
	r.AgeAtAdmission = float64(DaysBetween(r.DateOfBirth, r.AdmissionDate)) / 365.25
	r.AgeGroup = AgeGroup(r.AgeAtAdmission)
	r.Month = r.AdmissionDate.Format("2006-01")
	r.ReadmitFlag = r.ReadmitCount != "" && r.ReadmitCount != "0"
	r.IsLongStay = float64(r.LengthOfStay) > p.P75

	r.RiskLevel = RiskStandard
	if float64(r.LengthOfStay) > p.P90 || r.ReadmitFlag {
		r.RiskLevel = RiskHigh
	}
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
