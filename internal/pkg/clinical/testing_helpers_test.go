package clinical

import "time"

func f(v float64) *float64 { return &v }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// newRecord returns a clean, discharge-ready admission.
func newRecord() *PatientRecord {
	return &PatientRecord{
		ID:            "1",
		FirstName:     "Ada",
		LastName:      "Byron",
		Gender:        GenderFemale,
		Department:    "A",
		AdmissionDate: date("2024-03-01"),
		DischargeDate: date("2024-03-04"),
		DateOfBirth:   date("1980-06-15"),
		ReadmitCount:  "0",
		Labs: Labs{
			Glucose:    f(100),
			Creatinine: f(1.0),
			Hematocrit: f(14),
			Pulse:      f(75),
			BMI:        f(22),
		},
	}
}
