package values

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Percentage is a ratio expressed in percent, rounded to two decimal
// places. Decimal arithmetic keeps repeated aggregation runs byte-identical
// across platforms.
type Percentage struct {
	value decimal.Decimal
}

// percentPlaces is the rounding applied to every computed percentage.
const percentPlaces = 2

// NewPercentageFromRatio converts numerator/denominator to a percent value.
// A zero denominator is a degenerate input, not an error: it yields zero so
// empty partitions aggregate cleanly.
func NewPercentageFromRatio(numerator, denominator float64) Percentage {
	if denominator == 0 {
		return Percentage{value: decimal.Zero}
	}
	v := decimal.NewFromFloat(numerator).
		Div(decimal.NewFromFloat(denominator)).
		Mul(decimal.NewFromInt(100)).
		Round(percentPlaces)
	return Percentage{value: v}
}

// NewPercentageFromCounts converts a count ratio to a percent value with the
// same zero-denominator convention as NewPercentageFromRatio.
func NewPercentageFromCounts(numerator, denominator int) Percentage {
	return NewPercentageFromRatio(float64(numerator), float64(denominator))
}

// NewPercentageFromFloat wraps an already-computed percent value, rounding
// it to the standard two places.
func NewPercentageFromFloat(percent float64) Percentage {
	return Percentage{value: decimal.NewFromFloat(percent).Round(percentPlaces)}
}

// Float64 returns the percent value as a float.
func (p Percentage) Float64() float64 {
	f, _ := p.value.Float64()
	return f
}

// Decimal returns the underlying decimal value.
func (p Percentage) Decimal() decimal.Decimal {
	return p.value
}

// String returns the value formatted to two places (e.g., "97.50").
func (p Percentage) String() string {
	return p.value.StringFixed(percentPlaces)
}

// IsZero checks if the value is zero.
func (p Percentage) IsZero() bool {
	return p.value.IsZero()
}

// Equal checks if two percentages are equal.
func (p Percentage) Equal(other Percentage) bool {
	return p.value.Equal(other.value)
}

// AtLeast reports whether the value meets the given percent threshold.
func (p Percentage) AtLeast(threshold float64) bool {
	return p.value.GreaterThanOrEqual(decimal.NewFromFloat(threshold))
}

// MarshalJSON emits the value as a plain JSON number with two places.
func (p Percentage) MarshalJSON() ([]byte, error) {
	return []byte(p.value.StringFixed(percentPlaces)), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (p *Percentage) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid percentage %q: %w", s, err)
	}
	p.value = v.Round(percentPlaces)
	return nil
}

// Value implements driver.Valuer for database storage
func (p Percentage) Value() (driver.Value, error) {
	return p.Float64(), nil
}

// Scan implements sql.Scanner for database retrieval
func (p *Percentage) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		p.value = decimal.Zero
		return nil
	case float64:
		p.value = decimal.NewFromFloat(v).Round(percentPlaces)
		return nil
	case int64:
		p.value = decimal.NewFromInt(v)
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("cannot scan %q into Percentage: %w", v, err)
		}
		p.value = d.Round(percentPlaces)
		return nil
	case []byte:
		return p.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Percentage", value)
	}
}
