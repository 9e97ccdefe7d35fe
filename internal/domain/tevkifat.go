package domain

import "github.com/shopspring/decimal"

// TevkifatFraction is the withheld share of VAT for a rate code,
// expressed as numerator/denominator (e.g. 7/10).
type TevkifatFraction struct {
	Numerator   int64
	Denominator int64
}

// tevkifatRates is the active withholding rate table. Codes follow the
// official Turkish partial-withholding categories.
var tevkifatRates = map[string]TevkifatFraction{
	"9/10": {Numerator: 9, Denominator: 10},
	"7/10": {Numerator: 7, Denominator: 10},
	"5/10": {Numerator: 5, Denominator: 10},
	"4/10": {Numerator: 4, Denominator: 10},
	"3/10": {Numerator: 3, Denominator: 10},
	"2/10": {Numerator: 2, Denominator: 10},
	"1/10": {Numerator: 1, Denominator: 10},
	"1/2":  {Numerator: 1, Denominator: 2},
}

// LookupTevkifatRate returns the fraction for a rate code.
func LookupTevkifatRate(code string) (TevkifatFraction, error) {
	f, ok := tevkifatRates[code]
	if !ok {
		return TevkifatFraction{}, ErrUnknownTevkifatRate
	}
	return f, nil
}

// Apply returns the withheld portion of the given VAT amount.
func (f TevkifatFraction) Apply(vatAmount decimal.Decimal) decimal.Decimal {
	return vatAmount.
		Mul(decimal.NewFromInt(f.Numerator)).
		Div(decimal.NewFromInt(f.Denominator))
}
