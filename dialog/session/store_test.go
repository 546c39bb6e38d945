package session

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(10 * time.Minute)
	store.SetClock(clock.Now)
	return store, clock
}

func TestUpsertReplacesExistingSession(t *testing.T) {
	store, _ := newTestStore()

	first := store.Upsert("u1", StateMainMenu)
	second := store.Upsert("u1", StateMeterEntry)
	if first.ID == second.ID {
		t.Fatal("upsert did not mint a new session")
	}

	got, ok := store.GetActive("u1")
	if !ok || got.State != StateMeterEntry {
		t.Fatalf("GetActive = (%v, %v), want meter entry session", got, ok)
	}
	if store.Size() != 1 {
		t.Fatalf("size = %d, want 1", store.Size())
	}
}

func TestGetActiveDropsExpiredLazily(t *testing.T) {
	store, clock := newTestStore()

	store.Upsert("u1", StateMainMenu)
	clock.Advance(10*time.Minute + time.Second)

	if _, ok := store.GetActive("u1"); ok {
		t.Fatal("expired session returned")
	}
	if store.Size() != 0 {
		t.Fatalf("expired session not dropped, size = %d", store.Size())
	}
}

func TestSweepIdempotent(t *testing.T) {
	store, clock := newTestStore()

	store.Upsert("u1", StateMainMenu)
	store.Upsert("u2", StateMeterEntry)
	clock.Advance(11 * time.Minute)
	store.Upsert("u3", StateMainMenu)

	if removed := store.Sweep(); removed != 2 {
		t.Fatalf("first sweep removed %d, want 2", removed)
	}
	if removed := store.Sweep(); removed != 0 {
		t.Fatalf("second sweep removed %d, want 0", removed)
	}
	if _, ok := store.GetActive("u3"); !ok {
		t.Fatal("live session swept")
	}
}

func TestWithKeepsOriginalUntouched(t *testing.T) {
	store, _ := newTestStore()

	s := store.Upsert("u1", StateZesaAmountEntry)
	next := s.With(StateZesaWalletSelection, func(f *Fields) {
		f.Amount = 10
		f.Fee = 0.5
		f.Total = 10.5
	})

	if s.Fields.Amount != 0 || s.State != StateZesaAmountEntry {
		t.Fatal("With mutated the original session")
	}
	if next.ID != s.ID || next.ExpiresAt != s.ExpiresAt {
		t.Fatal("With changed identity or expiry")
	}
	if next.Fields.Total != 10.5 || next.State != StateZesaWalletSelection {
		t.Fatalf("unexpected next session: %+v", next)
	}

	store.Put(next)
	got, _ := store.GetActive("u1")
	if got.Fields.Amount != 10 {
		t.Fatalf("Put did not persist advanced session: %+v", got)
	}
}

func TestStateFlowMapping(t *testing.T) {
	cases := map[State]FlowKey{
		StateMainMenu:               FlowMenu,
		StateBillWaitingForCode:     FlowBill,
		StateBillConfirmation:       FlowBill,
		StateMeterEntry:             FlowZesa,
		StateZesaWalletSelection:    FlowZesa,
		StateAirtimeRecipientEntry:  FlowAirtime,
		StateAirtimeWalletSelection: FlowAirtime,
	}
	for state, want := range cases {
		if got := state.Flow(); got != want {
			t.Errorf("%s.Flow() = %s, want %s", state, got, want)
		}
	}
}
