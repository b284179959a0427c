package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonPriceChars = regexp.MustCompile(`[^0-9.]`)
	leadingNumber = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)`)
)

// ParsePrice reads a price from a number or a display string such as "Rs. 1,200".
// A currency prefix up to the first digit is skipped, then everything but digits
// and dots is dropped before the leading number is parsed. Unparsable, negative or
// non-finite values yield 0.
func ParsePrice(v interface{}) float64 {
	var f float64
	if s, ok := v.(string); ok {
		s = strings.TrimLeftFunc(s, func(r rune) bool { return r < '0' || r > '9' })
		m := leadingNumber.FindString(nonPriceChars.ReplaceAllString(s, ""))
		if m == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0
		}
		f = parsed
	} else {
		n, ok := toNumber(v)
		if !ok {
			return 0
		}
		f = n
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// FormatPlainPrice renders a price with two decimals and no grouping: "1200.00".
func FormatPlainPrice(v interface{}) string {
	return strconv.FormatFloat(ParsePrice(v), 'f', 2, 64)
}

// FormatPrice renders a price with two decimals and thousands separators: "1,200.00".
func FormatPrice(v interface{}) string {
	plain := FormatPlainPrice(v)
	intPart, frac, _ := strings.Cut(plain, ".")
	if len(intPart) <= 3 {
		return plain
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + "." + frac
}
