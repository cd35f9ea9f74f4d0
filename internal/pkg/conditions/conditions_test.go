package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/los-insight/internal/pkg/clinical"
)

func f(v float64) *float64 { return &v }

func TestExtractEmpty(t *testing.T) {
	res := NewExtractor().Extract(&clinical.PatientRecord{ID: "1"}, "")
	assert.True(t, res.Empty())
	assert.Equal(t, "", res.Query())
	assert.Equal(t, []string{
		`filtered generic term "length of stay"`,
		`filtered generic term "hospital admission"`,
		`filtered generic term "medical care"`,
	}, res.Trace)
}

func TestExtractFlagsAndNote(t *testing.T) {
	r := &clinical.PatientRecord{
		ID:    "1",
		Flags: clinical.DiseaseFlags{Pneumonia: true, Depression: true},
	}
	res := NewExtractor().Extract(r, "History of DIABETES, recurrent pneumonia and anemia.")

	assert.Equal(t, []string{"Pneumonia", "Depression", "Diabetes", "Anemia"}, res.Conditions)
	assert.Equal(t, "Pneumonia, Depression, Diabetes, Anemia", res.Query())
	assert.Contains(t, res.Trace, "flag:pneum -> Pneumonia")
	assert.Contains(t, res.Trace, `note:"diabetes" -> Diabetes`)
	assert.Contains(t, res.Trace, `note:"pneumonia" -> Pneumonia`)
}

func TestExtractLabSignals(t *testing.T) {
	r := &clinical.PatientRecord{
		ID:   "1",
		Labs: clinical.Labs{Glucose: f(190), Creatinine: f(1.0), Hematocrit: f(10)},
	}

	assert.True(t, NewExtractor().Extract(r, "").Empty())

	res := NewExtractor(WithLabSignals(true)).Extract(r, "")
	assert.Equal(t, []string{"Hyperglycemia", "Anemia"}, res.Conditions)
	assert.Contains(t, res.Trace, "lab:glucose -> Hyperglycemia")
}

func TestExtractCustomRulesFilterGeneric(t *testing.T) {
	e := NewExtractor(WithKeywordRules([]KeywordRule{
		{Keyword: "los", Condition: "length of stay"},
		{Keyword: "cough", Condition: "Bronchitis"},
	}))
	res := e.Extract(&clinical.PatientRecord{ID: "1"}, "long LOS, persistent cough")

	assert.Equal(t, []string{"Bronchitis"}, res.Conditions)
	n := 0
	for _, line := range res.Trace {
		if line == `filtered generic term "length of stay"` {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestExtractDeterministic(t *testing.T) {
	r := &clinical.PatientRecord{ID: "1", Flags: clinical.DiseaseFlags{Asthma: true, Malnutrition: true}}
	e := NewExtractor()
	assert.Equal(t, e.Extract(r, "copd"), e.Extract(r, "copd"))
}
