package classify

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospectus-cli/internal/model"
)

// FormOverride pins the form ordering for one fund of one provider.
type FormOverride struct {
	Provider string   `yaml:"provider"`
	Symbol   string   `yaml:"symbol"`
	Forms    []string `yaml:"forms"`
}

// ProviderDefault sets the form ordering for a provider's funds of one type.
// An empty Type applies to every type.
type ProviderDefault struct {
	Provider string         `yaml:"provider"`
	Type     model.FundType `yaml:"type"`
	Forms    []string       `yaml:"forms"`
}

// FormTable drives prospectus form preference. Lookup order is Overrides,
// then ProviderDefaults, then TypeDefaults.
type FormTable struct {
	Overrides        []FormOverride              `yaml:"overrides"`
	ProviderDefaults []ProviderDefault           `yaml:"provider_defaults"`
	TypeDefaults     map[model.FundType][]string `yaml:"type_defaults"`
}

var (
	mutualFundForms = []string{"497K", "497", "N-1A", "485BPOS", "485APOS"}
	etfForms        = []string{"497", "497K", "N-1A"}
)

// DefaultFormTable returns the built-in preferences.
func DefaultFormTable() *FormTable {
	return &FormTable{
		Overrides: []FormOverride{
			{Provider: ProviderInvesco, Symbol: "QQQ", Forms: []string{"497", "497K", "N-1A"}},
		},
		TypeDefaults: map[model.FundType][]string{
			model.FundTypeMutualFund: mutualFundForms,
			model.FundTypeETF:        etfForms,
			model.FundTypeUnknown:    mutualFundForms,
		},
	}
}

// LoadFormTable reads a YAML file and layers it over the defaults: its
// overrides and provider defaults take precedence over built-in ones and its
// type defaults replace the built-in entry for that type.
func LoadFormTable(path string) (*FormTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read forms file %s", path)
	}
	var extra FormTable
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, eris.Wrapf(err, "classify: parse forms file %s", path)
	}
	if err := extra.validate(); err != nil {
		return nil, eris.Wrapf(err, "classify: forms file %s", path)
	}

	t := DefaultFormTable()
	t.Overrides = append(extra.Overrides, t.Overrides...)
	t.ProviderDefaults = append(extra.ProviderDefaults, t.ProviderDefaults...)
	for typ, forms := range extra.TypeDefaults {
		t.TypeDefaults[typ] = forms
	}
	return t, nil
}

func (t *FormTable) validate() error {
	for i, o := range t.Overrides {
		if o.Symbol == "" || len(o.Forms) == 0 {
			return eris.Errorf("override %d: symbol and forms are required", i)
		}
	}
	for i, d := range t.ProviderDefaults {
		if d.Provider == "" || len(d.Forms) == 0 {
			return eris.Errorf("provider default %d: provider and forms are required", i)
		}
	}
	return nil
}

// Preferences returns the ordered prospectus forms for a fund. The returned
// slice is a copy.
func (t *FormTable) Preferences(sym model.FundSymbol, typ model.FundType, provider string) []string {
	for _, o := range t.Overrides {
		if strings.EqualFold(o.Symbol, string(sym)) && (o.Provider == "" || strings.EqualFold(o.Provider, provider)) {
			return clone(o.Forms)
		}
	}
	for _, d := range t.ProviderDefaults {
		if strings.EqualFold(d.Provider, provider) && (d.Type == "" || d.Type == typ) {
			return clone(d.Forms)
		}
	}
	if forms, ok := t.TypeDefaults[typ]; ok {
		return clone(forms)
	}
	return clone(mutualFundForms)
}

func clone(forms []string) []string {
	out := make([]string, len(forms))
	for i, f := range forms {
		out[i] = strings.ToUpper(strings.TrimSpace(f))
	}
	return out
}
