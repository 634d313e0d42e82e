// internal/record/record.go
package record

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Width is the number of columns in the canonical wage statement schema.
const Width = 22

// Columns holds the canonical header of the input sheet and of the error report,
// in column order.
var Columns = [Width]string{
	"성명",
	"주민등록번호",
	"시작일자",
	"종료일자",
	"총급여",
	"급여",
	"상여",
	"인정상여",
	"주식매수선택권 행사이익",
	"소득세",
	"지방소득세",
	"농어촌특별세",
	"국민연금보험료",
	"공무원연금",
	"군인연금",
	"사립학교직원연금",
	"별정우체국연금",
	"건강보험료",
	"고용보험료",
	"법정기부금",
	"종교단체 지정기부금",
	"종교단체 외 지정기부금",
}

// Column positions read into a Record. Everything else in the row is carried
// verbatim but never submitted.
const (
	ColName                = 0
	ColPersonalID          = 1
	ColStartDate           = 2
	ColEndDate             = 3
	ColSalary              = 5
	ColIncomeTax           = 9
	ColLocalIncomeTax      = 10
	ColNationalPension     = 12
	ColHealthInsurance     = 17
	ColEmploymentInsurance = 18
)

// Field names used in validation errors and logs.
const (
	FieldName                = "name"
	FieldPersonalID          = "personal_id"
	FieldStartDate           = "start_date"
	FieldEndDate             = "end_date"
	FieldSalary              = "salary"
	FieldIncomeTax           = "income_tax"
	FieldLocalIncomeTax      = "local_income_tax"
	FieldNationalPension     = "national_pension"
	FieldHealthInsurance     = "health_insurance"
	FieldEmploymentInsurance = "employment_insurance"
)

// womanDeductionSalaryCap is the exclusive salary ceiling for the women's deduction.
const womanDeductionSalaryCap = 41470589

// RawRow is one sheet row exactly as read, addressed by column position.
type RawRow []string

// Cell returns the value at position i, or "" when the row is shorter.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Clone returns a copy that does not share storage with r.
func (r RawRow) Clone() RawRow {
	if r == nil {
		return nil
	}
	out := make(RawRow, len(r))
	copy(out, r)
	return out
}

// IsBlank reports whether every cell of the row is empty or whitespace.
func IsBlank(r RawRow) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Record is the validated projection of a RawRow. All values are canonical
// strings: dates are YYYYMMDD, amounts are plain decimal digits.
//
// A Record is only ever produced by Parse, so a non-zero Record is always fully valid.
type Record struct {
	Name                string `json:"name"`
	PersonalID          string `json:"personal_id"`
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date"`
	Salary              string `json:"salary"`
	IncomeTax           string `json:"income_tax"`
	LocalIncomeTax      string `json:"local_income_tax"`
	NationalPension     string `json:"national_pension"`
	HealthInsurance     string `json:"health_insurance"`
	EmploymentInsurance string `json:"employment_insurance"`
}

// Parse extracts and validates the ten submitted fields of raw. It returns a
// *ValidationError for the first field that cannot be cast or fails its rule.
func Parse(raw RawRow) (Record, error) {
	var (
		rec Record
		err error
	)

	rec.Name = strings.TrimSpace(raw.Cell(ColName))

	numeric := []struct {
		col   int
		field string
		dst   *string
	}{
		{ColPersonalID, FieldPersonalID, &rec.PersonalID},
		{ColStartDate, FieldStartDate, &rec.StartDate},
		{ColEndDate, FieldEndDate, &rec.EndDate},
		{ColSalary, FieldSalary, &rec.Salary},
		{ColIncomeTax, FieldIncomeTax, &rec.IncomeTax},
		{ColLocalIncomeTax, FieldLocalIncomeTax, &rec.LocalIncomeTax},
		{ColNationalPension, FieldNationalPension, &rec.NationalPension},
		{ColHealthInsurance, FieldHealthInsurance, &rec.HealthInsurance},
		{ColEmploymentInsurance, FieldEmploymentInsurance, &rec.EmploymentInsurance},
	}
	for _, n := range numeric {
		if *n.dst, err = castInteger(raw.Cell(n.col)); err != nil {
			return Record{}, &ValidationError{Field: n.field, Value: raw.Cell(n.col), Rule: RuleCast, Err: err}
		}
	}

	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// integralText matches decimal integers, optionally carrying the all-zero
// fraction a workbook gives a number cell ("30000000.0").
var integralText = regexp.MustCompile(`^([+-]?[0-9]+)(\.0*)?$`)

// castInteger turns a spreadsheet cell into its integer string form. Only
// decimal text is accepted; exponent and hex float forms are not integers here.
func castInteger(cell string) (string, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return "", fmt.Errorf("empty cell")
	}
	m := integralText.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("not an integer")
	}
	i, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("not an integer")
	}
	return strconv.FormatInt(i, 10), nil
}

// IsOngoing reports a continuing employee: the period ends on Dec 31.
func (r Record) IsOngoing() bool {
	return len(r.EndDate) >= 4 && r.EndDate[len(r.EndDate)-4:] == "1231"
}

// IsHeadOfHousehold reads the sex/century digit of the resident registration
// number; odd codes are male and are filed as head of household.
func (r Record) IsHeadOfHousehold() bool {
	if len(r.PersonalID) < 7 {
		return false
	}
	switch r.PersonalID[6] {
	case '1', '3', '5', '7':
		return true
	}
	return false
}

// IsWomanDeductionEligible reports whether the women's deduction applies.
func (r Record) IsWomanDeductionEligible() bool {
	if r.IsHeadOfHousehold() {
		return false
	}
	salary, err := strconv.ParseInt(r.Salary, 10, 64)
	if err != nil {
		return false
	}
	return salary < womanDeductionSalaryCap
}
