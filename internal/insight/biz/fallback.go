package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/los-insight/internal/pkg/clinical"
)

// RuleBasedAnswer 在模型不可用时根据规则引擎结果给出确定性回答。
func RuleBasedAnswer(question string, r *clinical.PatientRecord, a clinical.Assessment) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "risk"):
		factors := "no additional risk factors"
		if len(a.RiskFactors) > 0 {
			factors = fmt.Sprintf("%d risk factors (%s)", len(a.RiskFactors), strings.Join(a.RiskFactors, ", "))
		}
		return fmt.Sprintf("Patient has %s classification with %s. Length of stay: %d days.",
			a.RiskLevel, factors, r.LengthOfStay)

	case strings.Contains(q, "glucose"), strings.Contains(q, "blood sugar"):
		return labAnswer(r, clinical.MetricGlucose, "Consider glucose management.")

	case strings.Contains(q, "kidney"), strings.Contains(q, "creatinine"):
		return labAnswer(r, clinical.MetricCreatinine, "Monitor kidney function.")

	case strings.Contains(q, "discharge"):
		d := a.Discharge
		msg := fmt.Sprintf("Discharge readiness score %d/100: %s (%s).", d.Score, d.Status, d.Timeline)
		if len(d.BlockingFactors) > 0 {
			msg += " Blocking factors: " + strings.Join(d.BlockingFactors, "; ") + "."
		}
		if r.LengthOfStay > 7 {
			msg += fmt.Sprintf(" Extended stay (%d days). Review the case for potential discharge barriers.", r.LengthOfStay)
		}
		return msg

	default:
		return fmt.Sprintf("I can help you analyze %s's case. Ask about risk factors, lab values, discharge readiness or treatment plans.", r.Name())
	}
}

func labAnswer(r *clinical.PatientRecord, m clinical.Metric, advice string) string {
	rng := clinical.Ranges[m]
	v := r.Labs.Value(m)
	if v == nil {
		return fmt.Sprintf("%s result is not available for this admission.", rng.Label)
	}
	if *v > rng.Max {
		return fmt.Sprintf("%s is elevated at %s %s (normal: %s). %s",
			rng.Label, rng.Format(*v), rng.Unit, rng.String(), advice)
	}
	if *v < rng.Min {
		return fmt.Sprintf("%s is low at %s %s (normal: %s).", rng.Label, rng.Format(*v), rng.Unit, rng.String())
	}
	return fmt.Sprintf("%s is %s %s - within normal range.", rng.Label, rng.Format(*v), rng.Unit)
}
