package symbol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospectus-cli/internal/model"
)

func TestNormalize_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want model.FundSymbol
	}{
		{"vusxx", "VUSXX"},
		{"  qqq\t", "QQQ"},
		{"ＳＰＹ", "SPY"},
		{"brk2", "BRK2"},
		{"0000862084", "0000862084"},
		{"cik862084", "862084"},
		{"CIK0000862084", "0000862084"},
		{"862084CIK", "862084"},
		{" 0000036405cik ", "0000036405"},
		{"A", "A"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "TOOLONGX", "BRK.B", "SP Y", "12345678901", "CIK12345678901", "CIK862084CIK", "$SPY"} {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			_, err := Normalize(in)
			require.Error(t, err)

			var ise *model.InvalidSymbolError
			require.True(t, errors.As(err, &ise))
			assert.Equal(t, in, ise.Raw)
			assert.Equal(t, model.CategoryInvalidSymbol, model.CategorizeError(err))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"vfiax", " ＱＱＱ ", "CIK36405", "36405CIK", "0000036405", "xlk", "f1"} {
		once, err := Normalize(in)
		require.NoError(t, err)
		twice, err := Normalize(string(once))
		require.NoError(t, err)
		assert.Equal(t, once, twice, in)
	}
}

func TestIsNumericCIK(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNumericCIK("862084"))
	assert.False(t, IsNumericCIK("VUSXX"))
	assert.False(t, IsNumericCIK("F1"))
	assert.False(t, IsNumericCIK(""))
}

func TestPadAndTrimCIK(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0000862084", PadCIK("862084"))
	assert.Equal(t, "0000862084", PadCIK("0000862084"))
	assert.Equal(t, "862084", TrimCIK("0000862084"))
	assert.Equal(t, "0", TrimCIK("0000000000"))
}
