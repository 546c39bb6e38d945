// Package intent routes one inbound message to a handler. Precedence is an
// explicit ordered rule table: the first matching rule wins and short-circuits
// everything below it. The ordering itself is load-bearing: a pay code must be
// honored even mid-way through an unrelated flow, but an active lockout must
// suppress everything except the reset keyword.
package intent

import (
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/paybot/dialog/session"
	"github.com/m3rciful/paybot/paycode"
)

// Kind names the handler a message should be dispatched to.
type Kind string

const (
	KindReset        Kind = "reset"
	KindLockout      Kind = "lockout"
	KindCode         Kind = "code"
	KindStartBill    Kind = "start_bill"
	KindStartZesa    Kind = "start_zesa"
	KindStartAirtime Kind = "start_airtime"
	KindMenuChoice   Kind = "menu_choice"
	KindAmount       Kind = "amount"
	KindFlowText     Kind = "flow_text"
	KindMeterHint    Kind = "meter_hint"
	KindFlowFallback Kind = "flow_fallback"
	KindMenu         Kind = "menu"
)

// Decision is the classifier's verdict for one message.
type Decision struct {
	Rule    string
	Kind    Kind
	Session *session.Session
	// LockedFor is set for KindLockout.
	LockedFor time.Duration
}

// Classifier decides routing from message text, session state and lockout state.
type Classifier struct {
	store         session.Store
	limiter       *paycode.Limiter
	format        *paycode.Format
	resetKeywords []string
	rules         []rule
}

type rule struct {
	name  string
	match func(m *message) (Decision, bool)
}

type message struct {
	userID  string
	raw     string
	trimmed string
	lower   string
	sess    *session.Session
}

// New builds the classifier with its fixed rule order.
func New(store session.Store, limiter *paycode.Limiter, format *paycode.Format, resetKeywords []string) *Classifier {
	c := &Classifier{
		store:   store,
		limiter: limiter,
		format:  format,
	}
	for _, kw := range resetKeywords {
		c.resetKeywords = append(c.resetKeywords, strings.ToLower(strings.TrimSpace(kw)))
	}
	c.rules = []rule{
		{"reset_keyword", c.matchReset},
		{"active_lockout", c.matchLockout},
		{"code_shaped", c.matchCode},
		{"bare_keyword", c.matchBareKeyword},
		{"menu_numeric", c.matchMenuNumeric},
		{"amount_numeric", c.matchAmountNumeric},
		{"flow_free_text", c.matchFlowText},
		{"fallback", c.matchFallback},
	}
	return c
}

// Classify runs the rule table in order and returns the first match. The
// fallback rule always matches, so a decision is always produced.
func (c *Classifier) Classify(userID, text string) Decision {
	m := &message{
		userID:  userID,
		raw:     text,
		trimmed: strings.TrimSpace(text),
		lower:   strings.ToLower(strings.TrimSpace(text)),
	}
	if sess, ok := c.store.GetActive(userID); ok {
		m.sess = sess
	}
	for _, r := range c.rules {
		if d, ok := r.match(m); ok {
			d.Rule = r.name
			if d.Session == nil {
				d.Session = m.sess
			}
			return d
		}
	}
	// Unreachable: matchFallback always matches.
	return Decision{Rule: "fallback", Kind: KindMenu, Session: m.sess}
}

func (c *Classifier) matchReset(m *message) (Decision, bool) {
	for _, kw := range c.resetKeywords {
		if m.lower == kw {
			return Decision{Kind: KindReset}, true
		}
	}
	return Decision{}, false
}

func (c *Classifier) matchLockout(m *message) (Decision, bool) {
	if remaining, locked := c.limiter.Locked(m.userID); locked {
		return Decision{Kind: KindLockout, LockedFor: remaining}, true
	}
	return Decision{}, false
}

func (c *Classifier) matchCode(m *message) (Decision, bool) {
	if c.format.Mentions(m.raw) {
		return Decision{Kind: KindCode}, true
	}
	return Decision{}, false
}

// flowKeywords are bare product shortcuts usable without an active session.
var flowKeywords = map[string]Kind{
	"bill":        KindStartBill,
	"bills":       KindStartBill,
	"zesa":        KindStartZesa,
	"electricity": KindStartZesa,
	"airtime":     KindStartAirtime,
	"topup":       KindStartAirtime,
	"top up":      KindStartAirtime,
}

func (c *Classifier) matchBareKeyword(m *message) (Decision, bool) {
	kind, ok := flowKeywords[m.lower]
	if !ok {
		return Decision{}, false
	}
	// A bill payment mid-flight past category selection is protected from
	// being silently dropped by an unrelated flow shortcut.
	if m.sess != nil && billInProgress(m.sess.State) {
		return Decision{}, false
	}
	return Decision{Kind: kind}, true
}

func billInProgress(s session.State) bool {
	switch s {
	case session.StateBillWaitingForCode, session.StateBillAmountEntry, session.StateBillConfirmation:
		return true
	}
	return false
}

// menuStates expect a numeric menu-style choice.
var menuStates = map[session.State]bool{
	session.StateMainMenu:               true,
	session.StateBillCategorySelection:  true,
	session.StateBillConfirmation:       true,
	session.StateZesaWalletSelection:    true,
	session.StateAirtimeAmountChoice:    true,
	session.StateAirtimeWalletSelection: true,
}

// amountStates expect a free-form dollar amount.
var amountStates = map[session.State]bool{
	session.StateBillAmountEntry:     true,
	session.StateZesaAmountEntry:     true,
	session.StateAirtimeCustomAmount: true,
}

// freeTextStates expect flow-specific free text.
var freeTextStates = map[session.State]bool{
	session.StateBillWaitingForCode:    true,
	session.StateMeterEntry:            true,
	session.StateAirtimeRecipientEntry: true,
}

func (c *Classifier) matchMenuNumeric(m *message) (Decision, bool) {
	if m.sess == nil || !menuStates[m.sess.State] {
		return Decision{}, false
	}
	if _, err := strconv.Atoi(m.trimmed); err != nil {
		return Decision{}, false
	}
	return Decision{Kind: KindMenuChoice}, true
}

func (c *Classifier) matchAmountNumeric(m *message) (Decision, bool) {
	if m.sess == nil || !amountStates[m.sess.State] {
		return Decision{}, false
	}
	if !looksNumeric(m.trimmed) {
		return Decision{}, false
	}
	return Decision{Kind: KindAmount}, true
}

func (c *Classifier) matchFlowText(m *message) (Decision, bool) {
	if m.sess == nil || !freeTextStates[m.sess.State] {
		return Decision{}, false
	}
	return Decision{Kind: KindFlowText}, true
}

// matchFallback always matches. With a session it emits the flow's canned
// format error without advancing state; without one it interprets a couple of
// heuristic shapes before falling back to the main menu.
func (c *Classifier) matchFallback(m *message) (Decision, bool) {
	if m.sess != nil {
		return Decision{Kind: KindFlowFallback}, true
	}
	if len(m.trimmed) == 11 && isDigitRun(m.trimmed) {
		return Decision{Kind: KindMeterHint}, true
	}
	return Decision{Kind: KindMenu}, true
}

func looksNumeric(s string) bool {
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isDigitRun(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
