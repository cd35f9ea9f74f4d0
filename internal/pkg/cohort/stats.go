package cohort

import (
	"cmp"
	"slices"

	"github.com/kart-io/los-insight/internal/pkg/clinical"
)

const (
	// ExtendedStayDays 超过该天数视为延长住院
	ExtendedStayDays = 7
	minDepartmentN   = 10
	minConditionN    = 5
)

// KPIs are the headline indicators of a cohort.
type KPIs struct {
	Patients         int     `json:"patients"`
	AvgLengthOfStay  float64 `json:"avg_length_of_stay"`
	ExtendedStayRate float64 `json:"extended_stay_rate"`
	ReadmissionRate  float64 `json:"readmission_rate"`
	BedTurnover      float64 `json:"bed_turnover"`
}

// KPIs computes the headline indicators. Rates are percentages; all values
// are zero for an empty cohort.
func (c *Cohort) KPIs() KPIs {
	k := KPIs{Patients: len(c.records)}
	if k.Patients == 0 {
		return k
	}

	var total, extended, readmit int
	for _, r := range c.records {
		total += r.LengthOfStay
		if r.LengthOfStay > ExtendedStayDays {
			extended++
		}
		if r.ReadmitFlag {
			readmit++
		}
	}
	n := float64(k.Patients)
	k.AvgLengthOfStay = float64(total) / n
	k.ExtendedStayRate = float64(extended) / n * 100
	k.ReadmissionRate = float64(readmit) / n * 100
	if k.AvgLengthOfStay > 0 {
		k.BedTurnover = 365 / k.AvgLengthOfStay
	}
	return k
}

// GroupStat is the mean length of stay of a group.
type GroupStat struct {
	Name            string  `json:"name"`
	Count           int     `json:"count"`
	AvgLengthOfStay float64 `json:"avg_length_of_stay"`
}

type accumulator struct {
	order []string
	sum   map[string]int
	count map[string]int
}

func newAccumulator() *accumulator {
	return &accumulator{sum: make(map[string]int), count: make(map[string]int)}
}

func (a *accumulator) add(key string, los int) {
	if _, ok := a.count[key]; !ok {
		a.order = append(a.order, key)
	}
	a.sum[key] += los
	a.count[key]++
}

func (a *accumulator) stats(minCount int) []GroupStat {
	out := make([]GroupStat, 0, len(a.order))
	for _, k := range a.order {
		n := a.count[k]
		if n < minCount {
			continue
		}
		out = append(out, GroupStat{Name: k, Count: n, AvgLengthOfStay: float64(a.sum[k]) / float64(n)})
	}
	return out
}

func byMeanAsc(a, b GroupStat) int {
	if c := cmp.Compare(a.AvgLengthOfStay, b.AvgLengthOfStay); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// DepartmentStats returns departments with at least ten admissions ordered
// by mean length of stay ascending.
func (c *Cohort) DepartmentStats() []GroupStat {
	acc := newAccumulator()
	for _, r := range c.records {
		acc.add(r.Department, r.LengthOfStay)
	}
	out := acc.stats(minDepartmentN)
	slices.SortFunc(out, byMeanAsc)
	return out
}

var conditionLabels = []struct {
	name string
	set  func(clinical.DiseaseFlags) bool
}{
	{"Renal Disease", func(f clinical.DiseaseFlags) bool { return f.RenalEndStage }},
	{"Asthma", func(f clinical.DiseaseFlags) bool { return f.Asthma }},
	{"Iron Deficiency", func(f clinical.DiseaseFlags) bool { return f.IronDeficiency }},
	{"Pneumonia", func(f clinical.DiseaseFlags) bool { return f.Pneumonia }},
	{"Substance Abuse", func(f clinical.DiseaseFlags) bool { return f.SubstanceDependence }},
	{"Psychological Disorder", func(f clinical.DiseaseFlags) bool { return f.MajorPsychological }},
	{"Depression", func(f clinical.DiseaseFlags) bool { return f.Depression }},
	{"Psychotherapy", func(f clinical.DiseaseFlags) bool { return f.Psychotherapy }},
	{"Fibrosis", func(f clinical.DiseaseFlags) bool { return f.FibrosisAndOther }},
	{"Malnutrition", func(f clinical.DiseaseFlags) bool { return f.Malnutrition }},
}

// ConditionImpact returns the mean length of stay per disease flag for flags
// present in at least five admissions, ordered ascending.
func (c *Cohort) ConditionImpact() []GroupStat {
	acc := newAccumulator()
	for _, cl := range conditionLabels {
		for _, r := range c.records {
			if cl.set(r.Flags) {
				acc.add(cl.name, r.LengthOfStay)
			}
		}
	}
	out := acc.stats(minConditionN)
	slices.SortFunc(out, byMeanAsc)
	return out
}

// MonthlyTrend is the admission volume and mean stay of one month.
type MonthlyTrend struct {
	Month           string  `json:"month"`
	Volume          int     `json:"volume"`
	AvgLengthOfStay float64 `json:"avg_length_of_stay"`
}

// MonthlyTrends returns one entry per admission month in chronological order.
func (c *Cohort) MonthlyTrends() []MonthlyTrend {
	acc := newAccumulator()
	for _, r := range c.records {
		acc.add(r.Month, r.LengthOfStay)
	}
	stats := acc.stats(1)
	out := make([]MonthlyTrend, 0, len(stats))
	for _, s := range stats {
		out = append(out, MonthlyTrend{Month: s.Name, Volume: s.Count, AvgLengthOfStay: s.AvgLengthOfStay})
	}
	// "YYYY-MM" 按字典序即时间序
	slices.SortFunc(out, func(a, b MonthlyTrend) int { return cmp.Compare(a.Month, b.Month) })
	return out
}
