package record

import (
	"errors"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
)

// FuzzParse_Structured fills a row from fuzzed data and checks that Parse either
// returns a record that passes Validate or a *ValidationError, never anything in between.
func FuzzParse_Structured(f *testing.F) {
	f.Add([]byte("김철수9001011234567"))
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		var in struct {
			Cells []string
		}
		if err := consumer.GenerateStruct(&in); err != nil {
			return
		}

		rec, err := Parse(RawRow(in.Cells))
		if err != nil {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			if rec != (Record{}) {
				t.Fatalf("partial record returned alongside error: %+v", rec)
			}
			return
		}
		if verr := rec.Validate(); verr != nil {
			t.Fatalf("parsed record fails validation: %v", verr)
		}
		// Predicates must not panic on any valid record.
		_ = rec.IsOngoing()
		_ = rec.IsWomanDeductionEligible()
	})
}
