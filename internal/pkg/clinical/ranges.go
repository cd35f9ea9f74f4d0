package clinical

import "fmt"

// Metric identifies a laboratory value or vital sign.
type Metric string

const (
	MetricGlucose     Metric = "glucose"
	MetricCreatinine  Metric = "creatinine"
	MetricHematocrit  Metric = "hematocrit"
	MetricPulse       Metric = "pulse"
	MetricRespiration Metric = "respiration"
	MetricBMI         Metric = "bmi"
	MetricSodium      Metric = "sodium"
	MetricNeutrophils Metric = "neutrophils"
	MetricBUN         Metric = "bloodureanitro"
)

// Metrics lists every metric in display order.
var Metrics = []Metric{
	MetricGlucose,
	MetricCreatinine,
	MetricHematocrit,
	MetricPulse,
	MetricRespiration,
	MetricBMI,
	MetricSodium,
	MetricNeutrophils,
	MetricBUN,
}

// Status of a value relative to its normal range.
type Status string

const (
	StatusLow     Status = "Low"
	StatusNormal  Status = "Normal"
	StatusHigh    Status = "High"
	StatusUnknown Status = "Unknown"
)

// Range is a closed normal interval [Min, Max].
type Range struct {
	Metric    Metric  `json:"metric"`
	Label     string  `json:"label"`
	Unit      string  `json:"unit"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Precision int     `json:"precision"`
}

// Ranges holds the normal range of each metric. Hematocrit uses 12-16 g/dL.
var Ranges = map[Metric]Range{
	MetricGlucose:     {MetricGlucose, "Glucose", "mg/dL", 70, 140, 1},
	MetricCreatinine:  {MetricCreatinine, "Creatinine", "mg/dL", 0.6, 1.2, 3},
	MetricHematocrit:  {MetricHematocrit, "Hematocrit", "g/dL", 12, 16, 1},
	MetricPulse:       {MetricPulse, "Pulse", "bpm", 60, 100, 1},
	MetricRespiration: {MetricRespiration, "Respiration", "/min", 12, 20, 1},
	MetricBMI:         {MetricBMI, "BMI", "kg/m²", 18.5, 24.9, 1},
	MetricSodium:      {MetricSodium, "Sodium", "mEq/L", 135, 145, 1},
	MetricNeutrophils: {MetricNeutrophils, "Neutrophils", "%", 40, 70, 1},
	MetricBUN:         {MetricBUN, "Blood Urea Nitrogen", "mg/dL", 7, 20, 1},
}

// Contains reports whether v lies inside the closed range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Status classifies v against the range.
func (r Range) Status(v float64) Status {
	switch {
	case v < r.Min:
		return StatusLow
	case v > r.Max:
		return StatusHigh
	default:
		return StatusNormal
	}
}

// Format renders v with the metric's precision.
func (r Range) Format(v float64) string {
	return fmt.Sprintf("%.*f", r.Precision, v)
}

// String renders the range as "min-max unit".
func (r Range) String() string {
	return fmt.Sprintf("%g-%g %s", r.Min, r.Max, r.Unit)
}

// BMICategory returns the weight category for a BMI value.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Normal"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}
