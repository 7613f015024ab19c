// Package money implements exact fixed-point arithmetic over minor currency
// units (cents, yen, ...). All split algebra is integer-only; decimal
// strings are a boundary concern handled by ToDecimal/FromDecimal.
package money

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	ErrCurrencyMismatch  = errors.New("money: currency mismatch")
	ErrNegativeAmount    = errors.New("money: negative amount not allowed")
	ErrUnknownCurrency   = errors.New("money: unknown currency")
	ErrExactExceedsTotal = errors.New("money: exact amounts exceed total")
	ErrNonPositiveWeight = errors.New("money: weight must be positive")
)

// Currency carries the minor-unit precision for a currency code, mirroring
// ISO 4217 minor units (USD=2, JPY=0, ...).
type Currency struct {
	Code     string
	Decimals int32
}

// currencies is the set of currencies this kernel knows how to round and
// split. Extend as needed; an unknown code is a hard error rather than a
// silent default, since guessing a wrong precision corrupts balances.
var currencies = map[string]Currency{
	"USD": {"USD", 2},
	"EUR": {"EUR", 2},
	"GBP": {"GBP", 2},
	"JPY": {"JPY", 0},
	"KRW": {"KRW", 0},
	"INR": {"INR", 2},
	"CAD": {"CAD", 2},
	"AUD": {"AUD", 2},
	"CHF": {"CHF", 2},
	"CNY": {"CNY", 2},
	"BHD": {"BHD", 3},
}

// Lookup returns the Currency metadata for a code, or ErrUnknownCurrency.
func Lookup(code string) (Currency, error) {
	c, ok := currencies[code]
	if !ok {
		return Currency{}, ErrUnknownCurrency
	}
	return c, nil
}

// Amount is a signed quantity of minor units in a specific currency.
type Amount struct {
	Minor    int64
	Currency string
}

// New builds an Amount, validating the currency is known.
func New(minor int64, currency string) (Amount, error) {
	if _, err := Lookup(currency); err != nil {
		return Amount{}, err
	}
	return Amount{Minor: minor, Currency: currency}, nil
}

// Zero returns a zero Amount in the given currency.
func Zero(currency string) Amount {
	return Amount{Minor: 0, Currency: currency}
}

func (a Amount) requireSameCurrency(b Amount) error {
	if a.Currency != b.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

// Add returns a+b; both must share a currency.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.requireSameCurrency(b); err != nil {
		return Amount{}, err
	}
	return Amount{Minor: a.Minor + b.Minor, Currency: a.Currency}, nil
}

// Sub returns a-b; both must share a currency.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.requireSameCurrency(b); err != nil {
		return Amount{}, err
	}
	return Amount{Minor: a.Minor - b.Minor, Currency: a.Currency}, nil
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool { return a.Minor > 0 }

// IsNegative reports whether the amount is strictly less than zero.
func (a Amount) IsNegative() bool { return a.Minor < 0 }

// RequirePositive returns ErrNegativeAmount if the amount is not > 0.
func RequirePositive(a Amount) error {
	if a.Minor <= 0 {
		return ErrNegativeAmount
	}
	return nil
}

// RequireNonNegative returns ErrNegativeAmount if the amount is < 0.
func RequireNonNegative(a Amount) error {
	if a.Minor < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Round rounds an arbitrary minor-unit quantity to the currency's
// precision using half-to-even (banker's rounding). Since minor units are
// already integral, this is a no-op for the minor-unit representation
// itself; it rounds a sub-minor-unit intermediate (expressed as a
// numerator/denominator pair) to the nearest integer. The split functions
// in this package do not call it; they floor and distribute the residual.
func Round(numerator, denominator int64) int64 {
	if denominator == 0 {
		return 0
	}
	neg := (numerator < 0) != (denominator < 0)
	n, d := abs64(numerator), abs64(denominator)
	q := n / d
	r := n % d
	twiceR := r * 2
	switch {
	case twiceR > d:
		q++
	case twiceR == d:
		// half-to-even: round up only if q is odd
		if q%2 != 0 {
			q++
		}
	}
	if neg {
		q = -q
	}
	return q
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// SplitEven returns n amounts, in canonical index order, that sum exactly
// to total. The first (total mod n) parties (by index, not identity)
// receive one extra minor unit. n must be > 0.
func SplitEven(total int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	base := total / int64(n)
	remainder := int(total % int64(n))
	if remainder < 0 {
		// total may be negative in theory; normalize so the "first k get one
		// extra" rule still produces an exact-sum, deterministic split.
		base--
		remainder += n
	}
	shares := make([]int64, n)
	for i := range shares {
		shares[i] = base
		if i < remainder {
			shares[i]++
		}
	}
	return shares
}

// WeightedShare holds one party's proportional weight.
type WeightedShare struct {
	Weight int64
}

// SplitWeighted distributes total across weights proportionally using
// integer math: provisional shares are floor(total*w_i/sum(w)), and the
// residual is distributed one minor unit at a time by largest remainder,
// ties broken by ascending index. All weights must be > 0.
func SplitWeighted(total int64, weights []int64) ([]int64, error) {
	n := len(weights)
	shares := make([]int64, n)
	if n == 0 {
		return shares, nil
	}

	var sumWeights int64
	for _, w := range weights {
		if w <= 0 {
			return nil, ErrNonPositiveWeight
		}
		sumWeights += w
	}

	type remainder struct {
		index int
		num   int64 // remainder numerator over sumWeights
	}
	remainders := make([]remainder, n)

	var sumFloors int64
	for i, w := range weights {
		product := total * w
		floor := product / sumWeights
		rem := product % sumWeights
		if rem < 0 {
			floor--
			rem += sumWeights
		}
		shares[i] = floor
		sumFloors += floor
		remainders[i] = remainder{index: i, num: rem}
	}

	residual := total - sumFloors
	sort.SliceStable(remainders, func(i, j int) bool {
		if remainders[i].num != remainders[j].num {
			return remainders[i].num > remainders[j].num
		}
		return remainders[i].index < remainders[j].index
	})

	// residual is the count of minor units left to distribute (each floor
	// drops less than one unit, so it is smaller than n); distribute one at
	// a time in largest-remainder order, ties by index.
	for i := int64(0); i < residual; i++ {
		shares[remainders[i%int64(n)].index]++
	}

	return shares, nil
}

// SplitExactPlusRemainder validates exactSum <= total, then splits the
// residual (total - exactSum) among the non-exact parties by weight using
// SplitWeighted. Returns ErrExactExceedsTotal if exactSum > total.
func SplitExactPlusRemainder(total, exactSum int64, othersWeights []int64) ([]int64, error) {
	if exactSum > total {
		return nil, ErrExactExceedsTotal
	}
	residual := total - exactSum
	return SplitWeighted(residual, othersWeights)
}

// ToDecimal renders a minor-unit amount as a decimal string with exactly
// the currency's number of fractional digits, e.g. 1234 minor units of USD
// -> "12.34". This is the only place decimal.Decimal is used: as a
// formatting helper at the wire boundary, never as the internal type.
func ToDecimal(minor int64, currency string) (string, error) {
	c, err := Lookup(currency)
	if err != nil {
		return "", err
	}
	scale := pow10(c.Decimals)
	d := decimal.NewFromInt(minor).DivRound(decimal.NewFromInt(scale), c.Decimals)
	return d.StringFixed(c.Decimals), nil
}

// FromDecimal parses a decimal string (as accepted on the wire) into
// minor units for a currency, rejecting more fractional digits than the
// currency allows.
func FromDecimal(s string, currency string) (int64, error) {
	c, err := Lookup(currency)
	if err != nil {
		return 0, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.Exponent() < -c.Decimals {
		return 0, errors.New("money: too many fractional digits for currency")
	}
	scale := pow10(c.Decimals)
	scaled := d.Mul(decimal.NewFromInt(scale))
	return scaled.Round(0).IntPart(), nil
}

func pow10(n int32) int64 {
	v := int64(1)
	for i := int32(0); i < n; i++ {
		v *= 10
	}
	return v
}
