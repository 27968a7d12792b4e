package currency

import (
	"strings"
)

type style struct {
	symbol   string
	decimals int32
	indian   bool
}

var styles = map[string]style{
	"INR": {symbol: "₹", decimals: 2, indian: true},
	"USD": {symbol: "$", decimals: 2},
	"EUR": {symbol: "€", decimals: 2},
	"GBP": {symbol: "£", decimals: 2},
	"JPY": {symbol: "¥", decimals: 0},
}

// Format renders amount as a currency string. INR uses Indian digit
// grouping (1,23,456.78); every other code uses western grouping.
func Format(amount float64, code string) string {
	code = normalize(code)
	st, ok := styles[code]
	if !ok {
		st = style{symbol: code + " ", decimals: 2}
	}

	d := round(amount, st.decimals)
	neg := d.IsNegative()
	if neg {
		d = d.Neg()
	}

	fixed := d.StringFixed(st.decimals)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var grouped string
	if st.indian {
		grouped = groupIndian(intPart)
	} else {
		grouped = groupWestern(intPart)
	}
	if frac != "" {
		grouped += "." + frac
	}

	if neg {
		return "-" + st.symbol + grouped
	}
	return st.symbol + grouped
}

// groupWestern inserts a separator every three digits.
func groupWestern(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// groupIndian keeps the last three digits together and groups the rest in pairs.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	last3 := digits[len(digits)-3:]
	rest := digits[:len(digits)-3]

	var parts []string
	for len(rest) > 2 {
		parts = append([]string{rest[len(rest)-2:]}, parts...)
		rest = rest[:len(rest)-2]
	}
	if rest != "" {
		parts = append([]string{rest}, parts...)
	}
	return strings.Join(append(parts, last3), ",")
}
