package clinical

import "time"

// FollowUpType describes the urgency of the post-discharge visit.
type FollowUpType string

const (
	FollowUpHighPriority FollowUpType = "High-priority"
	FollowUpRoutine      FollowUpType = "Routine"
)

// FollowUpPlan is the recommended post-discharge appointment.
type FollowUpPlan struct {
	Date time.Time    `json:"date"`
	Type FollowUpType `json:"type"`
	Days int          `json:"days"`
}

// FollowUp schedules the follow-up visit relative to the discharge date.
// High Risk admissions are seen within a week, everything else within 30 days.
func FollowUp(r *PatientRecord) FollowUpPlan {
	if r.RiskLevel == RiskHigh {
		return FollowUpPlan{Date: r.DischargeDate.AddDate(0, 0, 7), Type: FollowUpHighPriority, Days: 7}
	}
	return FollowUpPlan{Date: r.DischargeDate.AddDate(0, 0, 30), Type: FollowUpRoutine, Days: 30}
}
