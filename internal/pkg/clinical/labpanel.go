package clinical

// LabResult is one row of the laboratory panel.
type LabResult struct {
	Metric Metric   `json:"metric"`
	Label  string   `json:"label"`
	Value  *float64 `json:"value"`
	// Display 为按精度格式化的值，缺失时为 "N/A"
	Display string `json:"display"`
	Unit    string `json:"unit"`
	Range   string `json:"range"`
	Status  Status `json:"status"`
}

// Panel is the laboratory panel of a record.
type Panel struct {
	Results     []LabResult `json:"results"`
	BMICategory string      `json:"bmi_category,omitempty"`
}

// LabPanel evaluates every metric of the record against its normal range.
func LabPanel(r *PatientRecord) Panel {
	p := Panel{Results: make([]LabResult, 0, len(Metrics))}
	for _, m := range Metrics {
		rng := Ranges[m]
		res := LabResult{
			Metric:  m,
			Label:   rng.Label,
			Unit:    rng.Unit,
			Range:   rng.String(),
			Display: "N/A",
			Status:  StatusUnknown,
		}
		if v := r.Labs.Value(m); v != nil {
			val := *v
			res.Value = &val
			res.Display = rng.Format(val)
			res.Status = rng.Status(val)
		}
		p.Results = append(p.Results, res)
	}
	if r.Labs.BMI != nil {
		p.BMICategory = BMICategory(*r.Labs.BMI)
	}
	return p
}

// Result returns the panel row of metric m.
func (p Panel) Result(m Metric) (LabResult, bool) {
	for _, r := range p.Results {
		if r.Metric == m {
			return r, true
		}
	}
	return LabResult{}, false
}
