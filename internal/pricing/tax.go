package pricing

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// TaxPolicy resolves the tax rate applied to a quote's subtotal.
type TaxPolicy interface {
	Rate(ctx context.Context, jurisdiction string) (decimal.Decimal, error)
}

// FlatTaxPolicy applies one rate everywhere.
type FlatTaxPolicy struct {
	rate decimal.Decimal
}

func NewFlatTaxPolicy(rate decimal.Decimal) *FlatTaxPolicy {
	return &FlatTaxPolicy{rate: rate}
}

func (p *FlatTaxPolicy) Rate(_ context.Context, _ string) (decimal.Decimal, error) {
	return p.rate, nil
}

// JurisdictionTaxPolicy looks rates up by jurisdiction code, falling back to
// an optional default.
type JurisdictionTaxPolicy struct {
	rates    map[string]decimal.Decimal
	fallback decimal.NullDecimal
}

func NewJurisdictionTaxPolicy(rates map[string]decimal.Decimal, fallback decimal.NullDecimal) *JurisdictionTaxPolicy {
	normalized := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		normalized[normalizeJurisdiction(code)] = rate
	}
	return &JurisdictionTaxPolicy{rates: normalized, fallback: fallback}
}

func (p *JurisdictionTaxPolicy) Rate(_ context.Context, jurisdiction string) (decimal.Decimal, error) {
	if rate, ok := p.rates[normalizeJurisdiction(jurisdiction)]; ok {
		return rate, nil
	}
	if p.fallback.Valid {
		return p.fallback.Decimal, nil
	}
	return decimal.Zero, ErrUnknownTaxJurisdiction.WithCause(fmt.Errorf("jurisdiction %q", jurisdiction))
}

func normalizeJurisdiction(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// rate decodes a YAML scalar straight into a decimal so rates never pass through float64.
type rate struct {
	decimal.Decimal
}

func (r *rate) UnmarshalYAML(node *yaml.Node) error {
	d, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid tax rate %q: %w", node.Line, node.Value, err)
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("line %d: tax rate %s must be in [0, 1)", node.Line, d)
	}
	r.Decimal = d
	return nil
}

type taxPolicyFile struct {
	Default       *rate           `yaml:"default"`
	Jurisdictions map[string]rate `yaml:"jurisdictions"`
}

// ParseTaxPolicy builds a JurisdictionTaxPolicy from YAML of the form
//
//	default: 0.16
//	jurisdictions:
//	  mx-cdmx: 0.16
//	  us-tx: 0.0825
func ParseTaxPolicy(data []byte) (*JurisdictionTaxPolicy, error) {
	var f taxPolicyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tax policy failed: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(f.Jurisdictions))
	for code, r := range f.Jurisdictions {
		rates[code] = r.Decimal
	}
	var fallback decimal.NullDecimal
	if f.Default != nil {
		fallback = decimal.NewNullDecimal(f.Default.Decimal)
	}
	return NewJurisdictionTaxPolicy(rates, fallback), nil
}

func LoadTaxPolicyFile(path string) (*JurisdictionTaxPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tax policy file failed: %w", err)
	}
	return ParseTaxPolicy(data)
}
