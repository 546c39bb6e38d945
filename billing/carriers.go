package billing

import "strings"

// Carrier describes one mobile network operator.
type Carrier struct {
	Name     string
	Prefixes []string
}

var carriers = []Carrier{
	{Name: "Econet", Prefixes: []string{"077", "078"}},
	{Name: "NetOne", Prefixes: []string{"071"}},
	{Name: "Telecel", Prefixes: []string{"073"}},
}

// NormalizePhone strips spaces, dashes and an optional +263 country prefix,
// returning the local 07XXXXXXXX form.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "263") && len(digits) == 12 {
		digits = "0" + digits[3:]
	}
	return digits
}

// DetectCarrier maps a phone number to its network by prefix. The number is
// normalized first. Returns false for unknown prefixes or wrong lengths.
func DetectCarrier(phone string) (string, bool) {
	p := NormalizePhone(phone)
	if len(p) != 10 {
		return "", false
	}
	for _, c := range carriers {
		for _, pre := range c.Prefixes {
			if strings.HasPrefix(p, pre) {
				return c.Name, true
			}
		}
	}
	return "", false
}
