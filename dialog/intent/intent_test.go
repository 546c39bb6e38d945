package intent

import (
	"testing"
	"time"

	"github.com/m3rciful/paybot/dialog/session"
	"github.com/m3rciful/paybot/paycode"
)

func newClassifier(t *testing.T) (*Classifier, *session.MemoryStore, *paycode.Limiter) {
	t.Helper()
	store := session.NewMemoryStore(10 * time.Minute)
	format, err := paycode.NewFormat("PAY", 6, 64)
	if err != nil {
		t.Fatalf("NewFormat: %v", err)
	}
	limiter := paycode.NewLimiter(paycode.LimiterConfig{})
	c := New(store, limiter, format, []string{"hi", "hello", "menu", "/start", "cancel"})
	return c, store, limiter
}

func TestResetKeywordWinsOverEverything(t *testing.T) {
	c, store, limiter := newClassifier(t)
	store.Upsert("u1", session.StateZesaAmountEntry)
	limiter.Failure("u1", 3)

	for _, kw := range []string{"hi", "Hello", "MENU", "/start"} {
		d := c.Classify("u1", kw)
		if d.Kind != KindReset {
			t.Errorf("Classify(%q) = %s, want reset", kw, d.Kind)
		}
	}
}

func TestLockoutSuppressesCode(t *testing.T) {
	c, _, limiter := newClassifier(t)
	limiter.Failure("u1", 3)

	d := c.Classify("u1", "PAY123457")
	if d.Kind != KindLockout {
		t.Fatalf("locked user's code = %s, want lockout", d.Kind)
	}
	if d.LockedFor <= 0 {
		t.Fatal("lockout decision should carry remaining time")
	}
}

func TestCodeOverridesUnrelatedFlow(t *testing.T) {
	c, store, _ := newClassifier(t)
	store.Upsert("u1", session.StateMeterEntry)

	for _, text := range []string{"PAY123457", "pay code: PAY 123 457", "paybot://redeem/PAY123457", "123457", "my code please"} {
		d := c.Classify("u1", text)
		if d.Kind != KindCode {
			t.Errorf("Classify(%q) = %s, want code", text, d.Kind)
		}
	}
}

func TestBareKeywordStartsFlow(t *testing.T) {
	c, _, _ := newClassifier(t)
	cases := map[string]Kind{
		"bill":        KindStartBill,
		"zesa":        KindStartZesa,
		"electricity": KindStartZesa,
		"airtime":     KindStartAirtime,
	}
	for text, want := range cases {
		if d := c.Classify("u1", text); d.Kind != want {
			t.Errorf("Classify(%q) = %s, want %s", text, d.Kind, want)
		}
	}
}

func TestBillInProgressProtectedFromBareKeyword(t *testing.T) {
	c, store, _ := newClassifier(t)
	store.Upsert("u1", session.StateBillAmountEntry)

	d := c.Classify("u1", "zesa")
	if d.Kind == KindStartZesa {
		t.Fatal("bare keyword must not drop an in-flight bill payment")
	}
	if d.Kind != KindFlowFallback {
		t.Fatalf("got %s, want flow_fallback", d.Kind)
	}
}

func TestNumericRoutingByState(t *testing.T) {
	c, store, _ := newClassifier(t)

	store.Upsert("u1", session.StateMainMenu)
	if d := c.Classify("u1", "2"); d.Kind != KindMenuChoice {
		t.Fatalf("menu numeric = %s", d.Kind)
	}

	store.Upsert("u1", session.StateZesaAmountEntry)
	if d := c.Classify("u1", "10.50"); d.Kind != KindAmount {
		t.Fatalf("amount numeric = %s", d.Kind)
	}

	store.Upsert("u1", session.StateMeterEntry)
	if d := c.Classify("u1", "37148274383"); d.Kind != KindFlowText {
		t.Fatalf("meter entry = %s", d.Kind)
	}
}

func TestFallbacks(t *testing.T) {
	c, store, _ := newClassifier(t)

	// No session: 11-digit run reads as a meter number.
	if d := c.Classify("u1", "37148274383"); d.Kind != KindMeterHint {
		t.Fatalf("meter heuristic = %s", d.Kind)
	}
	// No session, nothing recognisable: main menu.
	if d := c.Classify("u1", "what is this"); d.Kind != KindMenu {
		t.Fatalf("unknown text = %s", d.Kind)
	}
	// Session active, unexpected input: the flow's canned error.
	store.Upsert("u1", session.StateZesaWalletSelection)
	if d := c.Classify("u1", "maybe later"); d.Kind != KindFlowFallback {
		t.Fatalf("flow fallback = %s", d.Kind)
	}
}

func TestDecisionCarriesSession(t *testing.T) {
	c, store, _ := newClassifier(t)
	store.Upsert("u1", session.StateZesaAmountEntry)
	d := c.Classify("u1", "10")
	if d.Session == nil || d.Session.State != session.StateZesaAmountEntry {
		t.Fatalf("decision session = %+v", d.Session)
	}
}
