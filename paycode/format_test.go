package paycode

import "testing"

func testFormat(t *testing.T) *Format {
	t.Helper()
	f, err := NewFormat("PAY", 6, 64)
	if err != nil {
		t.Fatalf("NewFormat: %v", err)
	}
	return f
}

func TestExtractPriorityOrder(t *testing.T) {
	f := testFormat(t)

	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"canonical", "PAY123456", "PAY123456", true},
		{"lowercase", "pay123456", "PAY123456", true},
		{"embedded", "please redeem PAY123456 thanks", "PAY123456", true},
		{"dashes", "PAY-123-456", "PAY123456", true},
		{"dots and spaces", "pay. 12 34 56", "PAY123456", true},
		{"labeled", "code: PAY654321", "PAY654321", true},
		{"labeled paycode", "paycode PAY654321", "PAY654321", true},
		{"uri wrapper", "paybot://redeem/PAY111222", "PAY111222", true},
		{"bare digits provisional", "123456", "123456", true},
		{"bare digits embedded", "my number is 654321 ok", "654321", true},
		{"too many digits", "12345678901", "", false},
		{"overlong code not truncated", "PAY1234567", "", false},
		{"no code", "hello there", "", false},
		{"empty", "   ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := f.Extract(tc.in)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("Extract(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestMentions(t *testing.T) {
	f := testFormat(t)

	for in, want := range map[string]bool{
		"PAY123456":             true,
		"pay 123456":            true,
		"code:":                 true,
		"my paycode is lost":    true,
		"paybot://redeem/x":     true,
		"654321":                true,
		"here is 123456 for me": true,
		"hello":                 false,
		"07712345678":           false,
		"2":                     false,
	} {
		if got := f.Mentions(in); got != want {
			t.Errorf("Mentions(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestClean(t *testing.T) {
	f := testFormat(t)

	for in, want := range map[string]string{
		" pay-123.456 ": "PAY123456",
		"PAY 123456":    "PAY123456",
		"!!!":           "",
		"":              "",
		"abc123":        "ABC123",
	} {
		if got := f.Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSuspicious(t *testing.T) {
	for in, want := range map[string]bool{
		"111111": true,
		"000000": true,
		"123456": true,
		"654321": true,
		"890123": true,
		"123465": false,
		"120934": false,
	} {
		if got := suspicious(in); got != want {
			t.Errorf("suspicious(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMask(t *testing.T) {
	f := testFormat(t)
	if got := f.Mask("PAY123456"); got != "*******56" {
		t.Fatalf("Mask = %q", got)
	}
	if got := f.Mask("ab"); got != "**" {
		t.Fatalf("Mask short = %q", got)
	}
}
