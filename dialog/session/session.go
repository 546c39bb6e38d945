// Package session holds per-user conversation state with expiry. At most one
// active session exists per user; starting a new flow replaces the old one.
package session

import (
	"time"

	"github.com/google/uuid"
)

// State identifies the current step of a user's conversation.
type State string

const (
	// StateMainMenu is the top-level menu prompt.
	StateMainMenu State = "main_menu"

	// Bill payment flow.
	StateBillCategorySelection State = "bill_category_selection"
	StateBillWaitingForCode    State = "bill_waiting_for_code"
	StateBillAmountEntry       State = "bill_amount_entry"
	StateBillConfirmation      State = "bill_confirmation"

	// Electricity token flow.
	StateMeterEntry          State = "meter_entry"
	StateZesaAmountEntry     State = "zesa_amount_entry"
	StateZesaWalletSelection State = "zesa_wallet_selection"

	// Airtime flow.
	StateAirtimeRecipientEntry  State = "airtime_recipient_entry"
	StateAirtimeAmountChoice    State = "airtime_amount_choice"
	StateAirtimeCustomAmount    State = "airtime_custom_amount"
	StateAirtimeWalletSelection State = "airtime_wallet_selection"
)

// FlowKey groups states into their owning flow for canned error lookup.
type FlowKey string

const (
	FlowMenu    FlowKey = "menu"
	FlowBill    FlowKey = "bill"
	FlowZesa    FlowKey = "zesa"
	FlowAirtime FlowKey = "airtime"
)

// Flow returns the flow a state belongs to.
func (s State) Flow() FlowKey {
	switch s {
	case StateBillCategorySelection, StateBillWaitingForCode, StateBillAmountEntry, StateBillConfirmation:
		return FlowBill
	case StateMeterEntry, StateZesaAmountEntry, StateZesaWalletSelection:
		return FlowZesa
	case StateAirtimeRecipientEntry, StateAirtimeAmountChoice, StateAirtimeCustomAmount, StateAirtimeWalletSelection:
		return FlowAirtime
	default:
		return FlowMenu
	}
}

// Fields is the flow-specific payload. It grows monotonically as the user
// advances and is only ever attached to the current session.
type Fields struct {
	Category    string
	Code        string
	BillerName  string
	BillerRef   string
	Meter       string
	AccountName string
	AccountArea string
	Phone       string
	Carrier     string
	Wallet      string
	Amount      float64
	Fee         float64
	Total       float64
	Retries     int
}

// Session represents one user's in-progress conversation.
type Session struct {
	ID        string
	UserID    string
	State     State
	Fields    Fields
	CreatedAt time.Time
	ExpiresAt time.Time
}

// New builds a fresh session for the user with a TTL from now.
func New(userID string, state State, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		State:     state,
		Fields:    Fields{},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the session's TTL has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// With returns a copy of the session advanced to the given state, with the
// mutate function applied to the copied fields. The original is never touched,
// keeping flow transitions pure and independently testable.
func (s *Session) With(state State, mutate func(*Fields)) *Session {
	next := *s
	next.State = state
	if mutate != nil {
		mutate(&next.Fields)
	}
	return &next
}
