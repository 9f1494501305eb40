package backend

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StringValue renders a filter operand the way documents store scalar
// fields, so equality can be tested on text.
func StringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case decimal.Decimal:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// NumericValue converts a range filter operand to a decimal.
func NumericValue(v interface{}) (decimal.Decimal, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case string:
		return decimal.NewFromString(t)
	default:
		return decimal.Decimal{}, fmt.Errorf("non-numeric filter value %v", v)
	}
}
