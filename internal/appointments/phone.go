package appointments

import "strings"

// FormatPhoneE164 normalizes US phone input of any shape to +1XXXXXXXXXX.
// Input that cannot be normalized is returned unchanged rather than dropped —
// a reachable-but-odd number beats no number.
func FormatPhoneE164(phone string) string {
	if phone == "" {
		return phone
	}
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case len(d) == 10:
		return "+1" + d
	case len(d) == 11 && strings.HasPrefix(d, "1"):
		return "+" + d
	case strings.HasPrefix(phone, "+") && len(d) == 11:
		return phone
	case len(d) > 10:
		return "+1" + d[len(d)-10:]
	default:
		return phone
	}
}
