package cohort

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kart-io/logger"

	"github.com/kart-io/los-insight/internal/pkg/clinical"
	options "github.com/kart-io/los-insight/pkg/options/cohort"
)

// Raw column names of the admissions dataset.
const (
	colID          = "eid"
	colAdmission   = "vdate"
	colDischarge   = "discharged"
	colBirth       = "date_of_birth"
	colFirstName   = "first_name"
	colLastName    = "last_name"
	colGender      = "gender"
	colDepartment  = "facid"
	colReadmit     = "rcount"
	colLengthStay  = "lengthofstay"
	colGlucose     = "glucose"
	colCreatinine  = "creatinine"
	colHematocrit  = "hematocrit"
	colPulse       = "pulse"
	colRespiration = "respiration"
	colBMI         = "bmi"
	colSodium      = "sodium"
	colNeutrophils = "neutrophils"
	colBUN         = "bloodureanitro"
)

var requiredColumns = []string{colID, colAdmission, colDischarge, colBirth}

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04",
	time.RFC3339,
}

var flagColumns = []struct {
	name string
	set  func(*clinical.DiseaseFlags, bool)
}{
	{"dialysisrenalendstage", func(f *clinical.DiseaseFlags, v bool) { f.RenalEndStage = v }},
	{"asthma", func(f *clinical.DiseaseFlags, v bool) { f.Asthma = v }},
	{"irondef", func(f *clinical.DiseaseFlags, v bool) { f.IronDeficiency = v }},
	{"pneum", func(f *clinical.DiseaseFlags, v bool) { f.Pneumonia = v }},
	{"substancedependence", func(f *clinical.DiseaseFlags, v bool) { f.SubstanceDependence = v }},
	{"psychologicaldisordermajor", func(f *clinical.DiseaseFlags, v bool) { f.MajorPsychological = v }},
	{"depress", func(f *clinical.DiseaseFlags, v bool) { f.Depression = v }},
	{"psychother", func(f *clinical.DiseaseFlags, v bool) { f.Psychotherapy = v }},
	{"fibrosisandother", func(f *clinical.DiseaseFlags, v bool) { f.FibrosisAndOther = v }},
	{"malnutrition", func(f *clinical.DiseaseFlags, v bool) { f.Malnutrition = v }},
}

var labColumns = []struct {
	name string
	slot func(*clinical.Labs) **float64
}{
	{colGlucose, func(l *clinical.Labs) **float64 { return &l.Glucose }},
	{colCreatinine, func(l *clinical.Labs) **float64 { return &l.Creatinine }},
	{colHematocrit, func(l *clinical.Labs) **float64 { return &l.Hematocrit }},
	{colPulse, func(l *clinical.Labs) **float64 { return &l.Pulse }},
	{colRespiration, func(l *clinical.Labs) **float64 { return &l.Respiration }},
	{colBMI, func(l *clinical.Labs) **float64 { return &l.BMI }},
	{colSodium, func(l *clinical.Labs) **float64 { return &l.Sodium }},
	{colNeutrophils, func(l *clinical.Labs) **float64 { return &l.Neutrophils }},
	{colBUN, func(l *clinical.Labs) **float64 { return &l.BloodUreaNitrogen }},
}

// LoadStats counts the rows read by a loader.
type LoadStats struct {
	Rows    int `json:"rows"`
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// Load reads the dataset described by opts.
func Load(opts *options.Options) ([]*clinical.PatientRecord, LoadStats, error) {
	switch opts.ResolvedFormat() {
	case "xlsx":
		return LoadXLSX(opts.Path, opts.Sheet)
	default:
		f, err := os.Open(opts.Path)
		if err != nil {
			return nil, LoadStats{}, fmt.Errorf("cohort: open %s: %w", opts.Path, err)
		}
		defer f.Close()
		return LoadCSV(f)
	}
}

// LoadCSV parses admissions from CSV with a header row.
func LoadCSV(r io.Reader) ([]*clinical.PatientRecord, LoadStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("cohort: read header: %w", err)
	}
	p, err := newRowParser(header)
	if err != nil {
		return nil, LoadStats{}, err
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				p.reject(perr.Line, err)
				continue
			}
			return nil, p.stats, fmt.Errorf("cohort: read csv: %w", err)
		}
		p.add(row)
	}
	p.log()
	return p.records, p.stats, nil
}

// LoadXLSX parses admissions from a worksheet. An empty sheet name selects
// the first sheet.
func LoadXLSX(path, sheet string) ([]*clinical.PatientRecord, LoadStats, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("cohort: open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("cohort: open sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, LoadStats{}, fmt.Errorf("cohort: sheet %q is empty", sheet)
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("cohort: read header: %w", err)
	}
	p, err := newRowParser(header)
	if err != nil {
		return nil, LoadStats{}, err
	}

	for rows.Next() {
		row, err := rows.Columns()
		if err != nil {
			p.reject(p.stats.Rows+2, err)
			continue
		}
		p.add(row)
	}
	if err := rows.Error(); err != nil {
		return nil, p.stats, fmt.Errorf("cohort: read sheet %q: %w", sheet, err)
	}
	p.log()
	return p.records, p.stats, nil
}

type rowParser struct {
	cols    map[string]int
	records []*clinical.PatientRecord
	stats   LoadStats
}

func newRowParser(header []string) (*rowParser, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("cohort: missing columns %s", strings.Join(missing, ", "))
	}
	return &rowParser{cols: cols}, nil
}

func (p *rowParser) add(row []string) {
	p.stats.Rows++
	r, err := p.parse(row)
	if err != nil {
		// 表头占第 1 行
		p.reject(p.stats.Rows+1, err)
		return
	}
	p.records = append(p.records, r)
	p.stats.Loaded++
}

func (p *rowParser) reject(line int, err error) {
	p.stats.Skipped++
	logger.Warnw("Invalid cohort row skipped", "line", line, "error", err.Error())
}

func (p *rowParser) log() {
	logger.Infow("Cohort loaded", "rows", p.stats.Rows, "loaded", p.stats.Loaded, "skipped", p.stats.Skipped)
}

func (p *rowParser) field(row []string, name string) string {
	i, ok := p.cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (p *rowParser) parse(row []string) (*clinical.PatientRecord, error) {
	r := &clinical.PatientRecord{
		ID:           p.field(row, colID),
		FirstName:    p.field(row, colFirstName),
		LastName:     p.field(row, colLastName),
		Gender:       clinical.Gender(strings.ToUpper(p.field(row, colGender))),
		Department:   p.field(row, colDepartment),
		ReadmitCount: p.field(row, colReadmit),
	}
	if r.ReadmitCount == "" {
		r.ReadmitCount = "0"
	}

	var err error
	if r.AdmissionDate, err = parseDate(p.field(row, colAdmission)); err != nil {
		return nil, fmt.Errorf("%s: %w", colAdmission, err)
	}
	if r.DischargeDate, err = parseDate(p.field(row, colDischarge)); err != nil {
		return nil, fmt.Errorf("%s: %w", colDischarge, err)
	}
	if r.DateOfBirth, err = parseDate(p.field(row, colBirth)); err != nil {
		return nil, fmt.Errorf("%s: %w", colBirth, err)
	}

	if s := p.field(row, colLengthStay); s != "" {
		los, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", colLengthStay, err)
		}
		r.LengthOfStay = los
	}

	for _, lc := range labColumns {
		if v, ok := parseFloat(p.field(row, lc.name)); ok {
			*lc.slot(&r.Labs) = &v
		}
	}
	if dropped := r.Labs.Sanitize(); len(dropped) > 0 {
		logger.Debugw("Non-finite lab values dropped", "id", r.ID, "metrics", dropped)
	}

	for _, fc := range flagColumns {
		fc.set(&r.Flags, parseFlag(p.field(row, fc.name)))
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseFloat(s string) (float64, bool) {
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "n/a":
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "1", "1.0", "true", "yes", "y":
		return true
	}
	return false
}
