// internal/record/validate.go
package record

import (
	"fmt"
	"strconv"
)

// Rule names the check a field failed.
type Rule string

const (
	RuleCast     Rule = "cast"
	RuleHangul   Rule = "hangul"
	RuleDigits13 Rule = "13-digits"
	RuleDate     Rule = "8-digit-date"
	RulePositive Rule = "positive-integer"
	RuleNonNeg   Rule = "non-negative-integer"
)

// ValidationError describes the first field of a row that failed local checks.
// It never reaches the remote system.
type ValidationError struct {
	Field string
	Value string
	Rule  Rule
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q (%s): %v", e.Field, e.Value, e.Rule, e.Err)
	}
	return fmt.Sprintf("invalid %s %q (%s)", e.Field, e.Value, e.Rule)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate applies the field rules in a fixed order and stops at the first failure.
func (r Record) Validate() error {
	if !isHangul(r.Name) {
		return &ValidationError{Field: FieldName, Value: r.Name, Rule: RuleHangul}
	}
	if !isDigits(r.PersonalID) || len(r.PersonalID) != 13 {
		return &ValidationError{Field: FieldPersonalID, Value: r.PersonalID, Rule: RuleDigits13}
	}
	for _, d := range []struct{ field, value string }{
		{FieldStartDate, r.StartDate},
		{FieldEndDate, r.EndDate},
	} {
		if !isDigits(d.value) || len(d.value) != 8 {
			return &ValidationError{Field: d.field, Value: d.value, Rule: RuleDate}
		}
	}
	if !isDigits(r.Salary) || !atLeast(r.Salary, 1) {
		return &ValidationError{Field: FieldSalary, Value: r.Salary, Rule: RulePositive}
	}
	for _, a := range []struct{ field, value string }{
		{FieldIncomeTax, r.IncomeTax},
		{FieldLocalIncomeTax, r.LocalIncomeTax},
		{FieldNationalPension, r.NationalPension},
		{FieldHealthInsurance, r.HealthInsurance},
		{FieldEmploymentInsurance, r.EmploymentInsurance},
	} {
		if !isDigits(a.value) {
			return &ValidationError{Field: a.field, Value: a.value, Rule: RuleNonNeg}
		}
	}
	return nil
}

// isHangul accepts a non-empty string made only of precomposed Hangul syllables.
func isHangul(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '가' || r > '힣' {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func atLeast(digits string, min int64) bool {
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// Longer than int64 but all digits.
		return len(digits) > 0 && digits[0] != '0'
	}
	return v >= min
}
