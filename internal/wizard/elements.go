// internal/wizard/elements.go
package wizard

import (
	"fmt"
	"sort"
	"strings"
)

// Logical element keys. The table maps each to the page element ID of the
// deployed wizard.
const (
	KeyName                = "name"
	KeyPersonalID          = "personal_id"
	KeyHeadOfHousehold     = "head_of_household"
	KeyContinuesToWorkYes  = "continues_to_work_yes"
	KeyContinuesToWorkNo   = "continues_to_work_no"
	KeyStartDate           = "start_date"
	KeyEndDate             = "end_date"
	KeySalary              = "salary"
	KeyIncomeTax           = "income_tax"
	KeyLocalIncomeTax      = "local_income_tax"
	KeyWomanDeduction      = "woman_deduction"
	KeyHealthInsurance     = "health_insurance"
	KeyEmploymentInsurance = "employment_insurance"
	KeyNationalPension     = "national_pension"
	KeyCheckPersonalID     = "check_personal_id"
	KeyStep1Next           = "step1_next"
	KeyStep1Confirm        = "step1_confirm"
	KeyStep2Confirm        = "step2_confirm"
	KeyRecalculate         = "recalculate"
	KeyAdd                 = "add"
	KeyReset               = "reset"

	// KeyEntryMarker is optional. When present, preflight reads its text.
	KeyEntryMarker = "entry_marker"
)

var requiredKeys = []string{
	KeyName, KeyPersonalID, KeyHeadOfHousehold, KeyContinuesToWorkYes, KeyContinuesToWorkNo,
	KeyStartDate, KeyEndDate, KeySalary, KeyIncomeTax, KeyLocalIncomeTax,
	KeyWomanDeduction, KeyHealthInsurance, KeyEmploymentInsurance, KeyNationalPension,
	KeyCheckPersonalID, KeyStep1Next, KeyStep1Confirm, KeyStep2Confirm,
	KeyRecalculate, KeyAdd, KeyReset,
}

// DefaultElementTable returns the element IDs of the current site.
func DefaultElementTable() map[string]string {
	return map[string]string{
		KeyName:                "edtIeNm",
		KeyPersonalID:          "edtNtplTxprDscmNoEncCntn",
		KeyHeadOfHousehold:     "cmbHshrClCd",
		KeyContinuesToWorkYes:  "cmbYrsClCd_input_0",
		KeyContinuesToWorkNo:   "cmbYrsClCd_input_1",
		KeyStartDate:           "edtAttrYrStrtDt_input",
		KeyEndDate:             "edtAttrYrEndDt_input",
		KeySalary:              "edtSnwAmt",
		KeyIncomeTax:           "edtClusInctxPpmTxamt",
		KeyLocalIncomeTax:      "edtClusRestxPpmTxamt",
		KeyWomanDeduction:      "cmbWmnDdcClCd_input_0",
		KeyHealthInsurance:     "edtNtsEtMateHife",
		KeyEmploymentInsurance: "edtNtsEtMateEmpInfee",
		KeyNationalPension:     "edtNpInfeeUseAmt",
		KeyCheckPersonalID:     "trigger49",
		KeyStep1Next:           "trigger70",
		KeyStep1Confirm:        "trigger88",
		KeyStep2Confirm:        "trigger102",
		KeyRecalculate:         "trigger125",
		KeyAdd:                 "trigger57",
		KeyReset:               "trigger68",
	}
}

// Elements is a validated, immutable lookup of page element IDs.
type Elements struct {
	ids map[string]string
}

// NewElements validates that every required key has an ID and applies prefix
// to all IDs. A prefix selects the frame-scoped deployment of the same page,
// where every ID carries the frame's name.
func NewElements(table map[string]string, prefix string) (Elements, error) {
	var missing []string
	for _, k := range requiredKeys {
		if strings.TrimSpace(table[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Elements{}, fmt.Errorf("wizard: element table is missing ids for: %s", strings.Join(missing, ", "))
	}

	ids := make(map[string]string, len(table))
	for k, v := range table {
		ids[k] = prefix + strings.TrimSpace(v)
	}
	return Elements{ids: ids}, nil
}

// ID returns the element ID for a logical key, or "" when the key is unknown.
func (e Elements) ID(key string) string {
	return e.ids[key]
}

// Has reports whether the table defines key.
func (e Elements) Has(key string) bool {
	_, ok := e.ids[key]
	return ok
}
