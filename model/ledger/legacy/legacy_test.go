package legacy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viant/fingov/model/ledger"
)

func TestNormalize(t *testing.T) {
	type testCase struct {
		raw      string
		expected ledger.Status
		legacy   bool
		hasError bool
	}
	tests := []testCase{
		{raw: "DRAFT", expected: ledger.StatusImported, legacy: true},
		{raw: "pending", expected: ledger.StatusException, legacy: true},
		{raw: "APPROVED", expected: ledger.StatusResolved, legacy: true},
		{raw: "APPROVED_AUTOMATIC", expected: ledger.StatusValidated, legacy: true},
		{raw: "REJECTED", expected: ledger.StatusRejected},
		{raw: "LOCKED", expected: ledger.StatusLocked},
		{raw: "PAID", hasError: true},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			actual, err := Normalize(tc.raw)
			if tc.hasError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
			assert.Equal(t, tc.legacy, IsLegacy(tc.raw))
		})
	}
}

func TestAliases(t *testing.T) {
	assert.Equal(t, []string{"EXCEPTION", "PENDING"}, Aliases(ledger.StatusException))
	assert.Equal(t, []string{"IMPORTED", "DRAFT"}, Aliases(ledger.StatusImported))
	assert.Equal(t, []string{"LOCKED"}, Aliases(ledger.StatusLocked))
}
