// Package paycode turns arbitrary user text into canonical redeemable codes
// and enforces per-user abuse limits on code submissions.
package paycode

import (
	"fmt"
	"regexp"
	"strings"
)

// Format describes the canonical shape of a redeemable code: a fixed letter
// prefix immediately followed by an exact number of digits, e.g. PAY123456.
type Format struct {
	Prefix       string
	Digits       int
	MaxRawLength int

	reCanonical *regexp.Regexp
	reLabeled   *regexp.Regexp
	reURI       *regexp.Regexp
	reBare      *regexp.Regexp
	reMention   *regexp.Regexp
}

// NewFormat compiles the recognition patterns for the given prefix and digit count.
func NewFormat(prefix string, digits, maxRawLength int) (*Format, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, fmt.Errorf("paycode: empty prefix")
	}
	if digits <= 0 {
		return nil, fmt.Errorf("paycode: digits must be > 0")
	}
	if maxRawLength <= 0 {
		maxRawLength = 64
	}

	// Digits may be interleaved with whitespace, dashes and dots. The code is
	// captured as group 1; the trailing guard keeps a longer digit run (a meter
	// number, an overlong code) from being silently truncated to fit.
	digitRun := fmt.Sprintf(`(?:[\s.\-]*[0-9]){%d}`, digits)
	canonical := `(` + prefix + `[\s.\-]*` + digitRun + `)(?:[^0-9]|$)`

	f := &Format{
		Prefix:       prefix,
		Digits:       digits,
		MaxRawLength: maxRawLength,
	}
	var err error
	if f.reCanonical, err = regexp.Compile(`(?i)(?:^|[^a-z0-9])` + canonical); err != nil {
		return nil, fmt.Errorf("paycode: compile canonical pattern: %w", err)
	}
	if f.reLabeled, err = regexp.Compile(`(?i)(?:pay\s*code|code)\s*[:\-]?\s*` + canonical); err != nil {
		return nil, fmt.Errorf("paycode: compile labeled pattern: %w", err)
	}
	if f.reURI, err = regexp.Compile(`(?i)paybot://redeem/` + canonical); err != nil {
		return nil, fmt.Errorf("paycode: compile uri pattern: %w", err)
	}
	if f.reBare, err = regexp.Compile(fmt.Sprintf(`(?:^|[^0-9])([0-9]{%d})(?:[^0-9]|$)`, digits)); err != nil {
		return nil, fmt.Errorf("paycode: compile bare pattern: %w", err)
	}
	if f.reMention, err = regexp.Compile(`(?i)(?:` + prefix + `[\s.\-]*[0-9]|pay\s*code|\bcode\b|paybot://)`); err != nil {
		return nil, fmt.Errorf("paycode: compile mention pattern: %w", err)
	}
	return f, nil
}

// Canonical returns the canonical rendering of a digit block, e.g. PAY123456.
func (f *Format) Canonical(digits string) string {
	return f.Prefix + digits
}

// CodeLength is the total canonical length: prefix plus digit section.
func (f *Format) CodeLength() int {
	return len(f.Prefix) + f.Digits
}

// Extract scans free text for a code candidate using a fixed priority order:
// canonical prefix+digits, a labeling phrase, a URI wrapper, then a bare digit
// run without prefix. The bare form is returned provisionally; Validate rejects
// it with a corrective message naming the missing prefix.
func (f *Format) Extract(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, re := range []*regexp.Regexp{f.reCanonical, f.reLabeled, f.reURI} {
		if m := re.FindStringSubmatch(text); len(m) == 2 {
			if cleaned := f.Clean(m[1]); cleaned != "" {
				return cleaned, true
			}
		}
	}
	if m := f.reBare.FindStringSubmatch(text); len(m) == 2 {
		return m[1], true
	}
	return "", false
}

// Mentions reports whether the text contains anything resembling a code
// submission: the canonical prefix with digits, a labeling keyword, a URI
// wrapper, or a bare digit run of the canonical width. Used for routing; a
// mention is not necessarily a valid code.
func (f *Format) Mentions(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return f.reMention.MatchString(text) || f.reBare.MatchString(text)
}

// Clean trims the input, strips everything outside the alphanumeric set and
// uppercases the rest. Returns "" when nothing remains.
func (f *Format) Clean(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Mask hides the digit section of a code except its last two digits so codes
// never appear verbatim in logs.
func (f *Format) Mask(code string) string {
	if len(code) <= 2 {
		return strings.Repeat("*", len(code))
	}
	visible := 2
	return strings.Repeat("*", len(code)-visible) + code[len(code)-visible:]
}

// suspicious reports whether the digit section matches a denylisted shape:
// all identical digits or a strictly ascending/descending run.
func suspicious(digits string) bool {
	if len(digits) < 2 {
		return false
	}
	same, asc, desc := true, true, true
	for i := 1; i < len(digits); i++ {
		d := digits[i] - '0'
		p := digits[i-1] - '0'
		if d != p {
			same = false
		}
		if d != (p+1)%10 {
			asc = false
		}
		if p != (d+1)%10 {
			desc = false
		}
	}
	return same || asc || desc
}
