package wizard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/hometax-cli/internal/wizard"
)

func TestNewElements(t *testing.T) {
	t.Run("should resolve ids from the default table", func(t *testing.T) {
		el, err := wizard.NewElements(wizard.DefaultElementTable(), "")
		require.NoError(t, err)
		assert.Equal(t, "edtIeNm", el.ID(wizard.KeyName))
		assert.Equal(t, "trigger68", el.ID(wizard.KeyReset))
		assert.Equal(t, "", el.ID("unknown"))
		assert.False(t, el.Has(wizard.KeyEntryMarker))
	})

	t.Run("should prefix every id for the frame scoped variant", func(t *testing.T) {
		el, err := wizard.NewElements(wizard.DefaultElementTable(), "mf_txppWframe_")
		require.NoError(t, err)
		assert.Equal(t, "mf_txppWframe_edtIeNm", el.ID(wizard.KeyName))
		assert.Equal(t, "mf_txppWframe_trigger57", el.ID(wizard.KeyAdd))
	})

	t.Run("should list every missing key", func(t *testing.T) {
		table := wizard.DefaultElementTable()
		delete(table, wizard.KeyAdd)
		table[wizard.KeyName] = "  "

		_, err := wizard.NewElements(table, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "add, name")
	})

	t.Run("should not be affected by later table edits", func(t *testing.T) {
		table := wizard.DefaultElementTable()
		el, err := wizard.NewElements(table, "")
		require.NoError(t, err)
		table[wizard.KeyName] = "changed"
		assert.Equal(t, "edtIeNm", el.ID(wizard.KeyName))
	})
}

func TestStepError(t *testing.T) {
	err := &wizard.StepError{Step: wizard.StepFinal, Modal: "오류", Err: wizard.ErrSubmissionFailed}
	assert.ErrorIs(t, err, wizard.ErrSubmissionFailed)
	assert.Equal(t, `final step: wizard: submission failed: "오류"`, err.Error())

	err = &wizard.StepError{Step: wizard.Step2Deductions, Err: wizard.ErrModalTimeout}
	assert.Equal(t, "step2-deductions step: wizard: timed out waiting for modal", err.Error())
}
