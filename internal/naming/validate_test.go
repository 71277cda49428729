package naming

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		existing []string
		reason   Reason
	}{
		{"trailing space", "a ", nil, ReasonTrailingSpace},
		{"trailing period", "a.", nil, ReasonTrailingPeriod},
		{"slash", "a/b", nil, ReasonInvalidChar},
		{"backslash", `a\b`, nil, ReasonInvalidChar},
		{"question mark", "what?", nil, ReasonInvalidChar},
		{"nul byte", "a\x00b", nil, ReasonInvalidChar},
		{"reserved upper", "CON", nil, ReasonReserved},
		{"reserved with extension", "con.txt", nil, ReasonReserved},
		{"reserved com port", "com7", nil, ReasonReserved},
		{"reserved double extension", "LPT1.tar.gz", nil, ReasonReserved},
		{"empty", "", nil, ReasonEmpty},
		{"dot", ".", nil, ReasonTrailingPeriod},
		{"already exists", "photos", []string{"docs", "photos"}, ReasonExists},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.input, tc.existing)
			require.Error(t, err)
			assert.Equal(t, tc.reason, ReasonOf(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.input, ve.Name)
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	accepted := []string{
		"My Folder 01",
		"image.png",
		"Photos", // differs only by case from an existing name
		"console",
		"COM10",
		".hidden",
	}

	for _, name := range accepted {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, Validate(name, []string{"photos"}))
		})
	}
}

func TestValidate_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, ReasonReserved, ReasonOf(Validate("con.txt", nil)))
	}
}

func TestReasonOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("rename: %w", &ValidationError{Name: "a.", Reason: ReasonTrailingPeriod})
	assert.Equal(t, ReasonTrailingPeriod, ReasonOf(err))
	assert.Equal(t, Reason(0), ReasonOf(fmt.Errorf("other")))
	assert.Contains(t, err.Error(), "period")
}
