package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospectus-cli/internal/edgar"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSymbols_Text(t *testing.T) {
	path := writeTemp(t, "funds.txt", "# Vanguard\nVUSXX, VFIAX\nvtsax\tQQQ # ETF\n\nvusxx\n")

	got, err := LoadSymbols(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"VUSXX", "VFIAX", "vtsax", "QQQ"}, got)
}

func TestLoadSymbols_CSV(t *testing.T) {
	path := writeTemp(t, "funds.csv", "symbol,name\nVUSXX,Treasury Money Market\n# skipped\nVFIAX,500 Index\n,blank\nVUSXX,dup\n")

	got, err := LoadSymbols(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"VUSXX", "VFIAX"}, got)
}

func TestLoadSymbols_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Funds")
	require.NoError(t, err)
	for _, v := range []string{"Ticker", "VUSXX", "QQQ", "0000862084"} {
		sheet.AddRow().AddCell().SetString(v)
	}
	path := filepath.Join(t.TempDir(), "funds.xlsx")
	require.NoError(t, f.Save(path))

	got, err := LoadSymbols(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"VUSXX", "QQQ", "0000862084"}, got)
}

func TestLoadSymbols_Missing(t *testing.T) {
	_, err := LoadSymbols(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type fakeLister struct {
	funds []edgar.MutualFundTicker
	err   error
}

func (f fakeLister) MutualFundTickers(context.Context) ([]edgar.MutualFundTicker, error) {
	return f.funds, f.err
}

func TestVanguardSymbols(t *testing.T) {
	src := fakeLister{funds: []edgar.MutualFundTicker{
		{Symbol: "VUSXX"}, {Symbol: "VFIAX"}, {Symbol: "vfiax"},
		{Symbol: "FXAIX"}, {Symbol: "VOO"}, {Symbol: "VTSAXX"}, {Symbol: "VABCD"},
	}}

	got, err := VanguardSymbols(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"VFIAX", "VUSXX"}, got)
}

func TestVanguardSymbols_Error(t *testing.T) {
	_, err := VanguardSymbols(context.Background(), fakeLister{err: errors.New("boom")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list mutual funds")
}
