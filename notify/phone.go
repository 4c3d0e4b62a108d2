package notify

import "strings"

const countryPrefix = "+91"

// FormatPhone normalizes a recipient number to +91 form. Numbers that do not
// reduce to a ten digit national number return "".
func FormatPhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimPrefix(b.String(), "0")
	switch {
	case len(digits) == 10:
		return countryPrefix + digits
	case strings.HasPrefix(digits, "91") && len(digits) > 10:
		return countryPrefix + digits[2:]
	default:
		return ""
	}
}
