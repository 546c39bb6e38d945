package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/paybot/core/config"
	"github.com/m3rciful/paybot/dialog/flows"
	"github.com/m3rciful/paybot/resolver"
)

type stubResolver struct {
	biller *resolver.Biller
	err    error
}

func (s stubResolver) Resolve(_ context.Context, _, _ string) (*resolver.Biller, error) {
	return s.biller, s.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Telegram.Token = "test-token"
	if err := config.Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return cfg
}

func newTestEngine(t *testing.T, res flows.BillerResolver) *Engine {
	t.Helper()
	e, err := New(Options{Config: testConfig(t), Resolver: res})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestElectricityEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	reply := e.HandleText(ctx, "u1", "hi")
	if !strings.Contains(reply, "1. Pay a bill") {
		t.Fatalf("greeting reply = %q", reply)
	}

	reply = e.HandleText(ctx, "u1", "2")
	if !strings.Contains(reply, "meter number") {
		t.Fatalf("menu choice reply = %q", reply)
	}

	reply = e.HandleText(ctx, "u1", "37148274383")
	if !strings.Contains(reply, "T. Moyo") || !strings.Contains(reply, "Avondale") {
		t.Fatalf("meter reply = %q", reply)
	}

	reply = e.HandleText(ctx, "u1", "10")
	if !strings.Contains(reply, "$10.50") {
		t.Fatalf("amount reply = %q", reply)
	}

	reply = e.HandleText(ctx, "u1", "1")
	if !strings.Contains(reply, "Token:") || !strings.Contains(reply, "Reference:") {
		t.Fatalf("completion reply = %q", reply)
	}

	// Session is gone; arbitrary numeric input restarts the menu.
	reply = e.HandleText(ctx, "u1", "7")
	if !strings.Contains(reply, "1. Pay a bill") {
		t.Fatalf("post-completion reply = %q", reply)
	}
}

func TestLockoutEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, stubResolver{biller: &resolver.Biller{ProviderName: "Harare Water"}})

	for i := 0; i < 3; i++ {
		reply := e.HandleText(ctx, "u1", "PAY12")
		if i < 2 && strings.Contains(reply, "minute") {
			t.Fatalf("attempt %d should not be a lockout yet: %q", i+1, reply)
		}
	}

	// Fourth submission, even a well-formed code, reports a positive
	// remaining-minutes lockout.
	reply := e.HandleText(ctx, "u1", "PAY123457")
	if !strings.Contains(reply, "15 minute") {
		t.Fatalf("locked reply = %q", reply)
	}

	// After the lockout passes, the same code goes through.
	now := time.Now()
	e.Limiter().SetClock(func() time.Time { return now.Add(16 * time.Minute) })
	reply = e.HandleText(ctx, "u1", "PAY123457")
	if !strings.Contains(reply, "Harare Water") {
		t.Fatalf("post-lockout reply = %q", reply)
	}
}

func TestCodeOverridesUnrelatedFlow(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, stubResolver{biller: &resolver.Biller{ProviderName: "Harare Water", BillerReference: "HW-1"}})

	e.HandleText(ctx, "u1", "zesa")
	reply := e.HandleText(ctx, "u1", "PAY123457")
	if !strings.Contains(reply, "Harare Water") {
		t.Fatalf("mid-flow code should resolve, got %q", reply)
	}
}

func TestWrappedCodeFormsResolve(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, stubResolver{biller: &resolver.Biller{ProviderName: "Harare Water", BillerReference: "HW-1"}})

	// Labels, URI wrappers and surrounding chatter must not reach validation.
	for i, in := range []string{
		"code: PAY123457",
		"paybot://redeem/PAY123457",
		"my code is PAY123457 thanks",
	} {
		user := fmt.Sprintf("wrap-%d", i)
		reply := e.HandleText(ctx, user, in)
		if !strings.Contains(reply, "Code accepted") {
			t.Fatalf("HandleText(%q) = %q, want acceptance", in, reply)
		}
	}
}

func TestResetKeywordOverridesFlow(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	e.HandleText(ctx, "u1", "airtime")
	reply := e.HandleText(ctx, "u1", "menu")
	if !strings.Contains(reply, "1. Pay a bill") {
		t.Fatalf("reset reply = %q", reply)
	}
}

func TestMeterHintWithoutSession(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	reply := e.HandleText(ctx, "u1", "37148274383")
	if !strings.Contains(reply, "T. Moyo") {
		t.Fatalf("meter hint reply = %q", reply)
	}
}

func TestEmptyBodyProducesNoReply(t *testing.T) {
	e := newTestEngine(t, nil)
	if reply := e.HandleText(context.Background(), "u1", "   "); reply != "" {
		t.Fatalf("empty body reply = %q", reply)
	}
}

func TestSweepIdempotent(t *testing.T) {
	e := newTestEngine(t, nil)
	e.HandleText(context.Background(), "u1", "hi")

	now := time.Now()
	e.Store().SetClock(func() time.Time { return now.Add(time.Hour) })
	if swept := e.Store().Sweep(); swept != 1 {
		t.Fatalf("first sweep = %d, want 1", swept)
	}
	if swept := e.Store().Sweep(); swept != 0 {
		t.Fatalf("second sweep = %d, want 0", swept)
	}
}

func TestStartStop(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Start()
	e.Stop()
	// Stop is idempotent.
	e.Stop()
}
