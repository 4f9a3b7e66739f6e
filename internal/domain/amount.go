package domain

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonAmountChars = regexp.MustCompile(`[^0-9.]`)

// NormalizeAmount turns a catalog price into a decimal amount. Strings are
// stripped of everything except digits and the decimal point before parsing,
// so "KES 1,250.00" becomes 1250.00. Numeric values pass through unchanged.
func NormalizeAmount(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, InvalidAmountf("amount is missing")
		}
		return *v, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, InvalidAmountf("invalid amount value %q", v.String())
		}
		return d, nil
	case string:
		return parseAmountString(v)
	case nil:
		return decimal.Zero, InvalidAmountf("amount is missing")
	default:
		return decimal.Zero, InvalidAmountf("unsupported amount type %T", raw)
	}
}

func fromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, InvalidAmountf("invalid amount value %v", f)
	}
	return decimal.NewFromFloat(f), nil
}

func parseAmountString(s string) (decimal.Decimal, error) {
	cleaned := nonAmountChars.ReplaceAllString(s, "")
	if strings.Count(cleaned, ".") > 1 || strings.Trim(cleaned, ".") == "" {
		return decimal.Zero, InvalidAmountf("invalid amount value %q", s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, InvalidAmountf("invalid amount value %q: %v", s, err)
	}
	return d, nil
}
