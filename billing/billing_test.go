package billing

import (
	"context"
	"strings"
	"testing"

	"github.com/m3rciful/paybot/core/config"
)

func TestQuoteForElectricityTwoDecimals(t *testing.T) {
	q := QuoteFor(10, config.FeeConfig{RatePercent: 5, Rounding: "2dp"})
	if q.Fee != 0.5 {
		t.Fatalf("fee = %v, want 0.5", q.Fee)
	}
	if q.Total != 10.5 {
		t.Fatalf("total = %v, want 10.5", q.Total)
	}
	if got := Money(q.Total); got != "$10.50" {
		t.Fatalf("Money(total) = %q, want $10.50", got)
	}
}

func TestQuoteForAirtimeNearest(t *testing.T) {
	q := QuoteFor(5, config.FeeConfig{RatePercent: 10, Rounding: "nearest"})
	if q.Fee != 1 {
		t.Fatalf("fee = %v, want 1 (0.5 rounds up)", q.Fee)
	}
	if q.Total != 6 {
		t.Fatalf("total = %v, want 6", q.Total)
	}

	q = QuoteFor(1, config.FeeConfig{RatePercent: 10, Rounding: "nearest"})
	if q.Fee != 0 {
		t.Fatalf("fee = %v, want 0 (0.1 rounds down)", q.Fee)
	}
}

func TestQuoteForBillRate(t *testing.T) {
	q := QuoteFor(40, config.FeeConfig{RatePercent: 2.5, Rounding: "2dp"})
	if q.Fee != 1 || q.Total != 41 {
		t.Fatalf("quote = %+v, want fee 1 total 41", q)
	}
}

func TestDetectCarrier(t *testing.T) {
	cases := []struct {
		phone   string
		carrier string
		ok      bool
	}{
		{"0771234567", "Econet", true},
		{"0781234567", "Econet", true},
		{"0711234567", "NetOne", true},
		{"0731234567", "Telecel", true},
		{"077 123 4567", "Econet", true},
		{"+263771234567", "Econet", true},
		{"0741234567", "", false},
		{"077123456", "", false},
		{"07712345678", "", false},
	}
	for _, tc := range cases {
		got, ok := DetectCarrier(tc.phone)
		if ok != tc.ok || got != tc.carrier {
			t.Errorf("DetectCarrier(%q) = (%q, %v), want (%q, %v)", tc.phone, got, ok, tc.carrier, tc.ok)
		}
	}
}

func TestStaticAccountsLookup(t *testing.T) {
	s := NewStaticAccounts()
	a, err := s.Lookup(context.Background(), "37148274383")
	if err != nil {
		t.Fatalf("Lookup known meter: %v", err)
	}
	if a.Name == "" || a.Area == "" {
		t.Fatalf("account missing holder details: %+v", a)
	}

	if _, err := s.Lookup(context.Background(), "00000000000"); err != ErrAccountNotFound {
		t.Fatalf("Lookup unknown meter err = %v, want ErrAccountNotFound", err)
	}
}

func TestWalletByChoice(t *testing.T) {
	if w, ok := WalletByChoice(ProductElectricity, 1); !ok || w != "EcoCash" {
		t.Fatalf("choice 1 = (%q, %v)", w, ok)
	}
	if _, ok := WalletByChoice(ProductElectricity, 0); ok {
		t.Fatal("choice 0 should be rejected")
	}
	if _, ok := WalletByChoice(ProductElectricity, 4); ok {
		t.Fatal("out-of-range choice should be rejected")
	}
}

func TestNewTokenShape(t *testing.T) {
	tok := NewToken()
	parts := strings.Split(tok, "-")
	if len(parts) != 5 {
		t.Fatalf("token %q: want 5 groups", tok)
	}
	for _, p := range parts {
		if len(p) != 4 {
			t.Fatalf("token %q: group %q not 4 digits", tok, p)
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				t.Fatalf("token %q: non-digit in group %q", tok, p)
			}
		}
	}
	if NewToken() == tok && NewToken() == tok {
		t.Fatal("tokens should vary")
	}
}

func TestMemoryReceipts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReceipts()
	for _, ref := range []string{"A", "B", "C"} {
		r := Receipt{Reference: ref, UserID: "u1", Product: ProductBill, Total: 10}
		if err := store.Save(ctx, r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	_ = store.Save(ctx, Receipt{Reference: "X", UserID: "u2"})

	got, err := store.ByUser(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ByUser: %v", err)
	}
	if len(got) != 2 || got[0].Reference != "C" || got[1].Reference != "B" {
		t.Fatalf("ByUser = %+v, want newest-first C,B", got)
	}
}

func TestNewReferenceUnique(t *testing.T) {
	if NewReference() == NewReference() {
		t.Fatal("references should be unique")
	}
	if len(NewReference()) != 26 {
		t.Fatal("reference should be 26 chars")
	}
}
