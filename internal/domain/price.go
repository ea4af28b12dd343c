package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Price is a monetary amount in cents. Integer storage keeps comparisons exact.
type Price int64

// ErrInvalidPrice is returned by ParsePrice for text that is not a plain amount.
var ErrInvalidPrice = errors.New("invalid price")

// maxUnits is the largest whole amount whose cent value fits in an int64.
const maxUnits = (math.MaxInt64 - 99) / 100

// ParsePrice parses amounts such as "19.99", "$1,234.56", "1,234" or "0.5".
// Currency symbols, thousands separators and surrounding spaces are ignored;
// at most two fraction digits are accepted.
func ParsePrice(text string) (Price, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimLeft(s, "$€£ ")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, text)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (hasFrac && !isDigits(frac)) || len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, text)
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > maxUnits {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, text)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	return Price(units*100 + cents), nil
}

// PriceFromParts joins a whole part ("1,299." / "1,299") with a fraction part ("99").
// Separators in the whole part are dropped the way storefront markup splits them.
func PriceFromParts(whole, fraction string) (Price, error) {
	w := strings.TrimSpace(whole)
	w = strings.ReplaceAll(w, ",", "")
	w = strings.ReplaceAll(w, ".", "")
	return ParsePrice(w + "." + strings.TrimSpace(fraction))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Cents returns the raw cent value.
func (p Price) Cents() int64 { return int64(p) }

// Float returns the amount in currency units, for display and env export only.
func (p Price) Float() float64 { return float64(p) / 100 }

// Amount renders the price without currency symbol, e.g. "1234.56".
func (p Price) Amount() string {
	sign := ""
	v := int64(p)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// String renders the price with a dollar sign, e.g. "$1234.56".
func (p Price) String() string {
	if p < 0 {
		return "-$" + (-p).Amount()
	}
	return "$" + p.Amount()
}

// MarshalJSON encodes the price as a JSON number with two decimals.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.Amount()), nil
}

// UnmarshalJSON accepts a JSON number or string.
func (p *Price) UnmarshalJSON(b []byte) error {
	var raw json.Number
	if err := json.Unmarshal(b, &raw); err != nil {
		var s string
		if err2 := json.Unmarshal(b, &s); err2 != nil {
			return err
		}
		raw = json.Number(s)
	}
	v, err := ParsePrice(raw.String())
	if err != nil {
		return err
	}
	*p = v
	return nil
}
