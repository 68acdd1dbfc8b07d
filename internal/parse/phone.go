package parse

import "strings"

// NormalizePhone reshapes a customer-entered phone number into a +-prefixed,
// digits-only form. North American numbers get the +1 country code.
// It never fails: malformed input is reshaped, not rejected.
func NormalizePhone(raw string) string {
	digits := stripNonDigits(raw)

	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	case len(digits) == 10:
		return "+1" + digits
	default:
		// Either the caller already wrote "+<cc>..." or it is a bare
		// international number; both end up as "+" followed by the digits.
		return "+" + digits
	}
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
