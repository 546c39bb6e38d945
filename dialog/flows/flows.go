// Package flows implements the linear purchase conversations: bill payment
// via a redeemable pay code, electricity token purchase, and airtime top-up.
// Each handler computes the next session state first and returns the outbound
// text; delivery happens after the transition and never rolls it back.
package flows

import (
	"context"
	"strconv"
	"strings"

	"github.com/m3rciful/paybot/billing"
	"github.com/m3rciful/paybot/core/config"
	"github.com/m3rciful/paybot/dialog/session"
	"github.com/m3rciful/paybot/paycode"
	"github.com/m3rciful/paybot/resolver"
)

// BillerResolver is the external code-resolution collaborator.
type BillerResolver interface {
	Resolve(ctx context.Context, category, code string) (*resolver.Biller, error)
}

// Handler drives all purchase flows against the shared stores.
type Handler struct {
	store     session.Store
	validator *paycode.Validator
	resolver  BillerResolver
	accounts  billing.AccountStore
	receipts  billing.ReceiptStore
	products  config.ProductConfig
	dialog    config.DialogConfig
}

// New wires a flow handler. Resolver may be nil when bill payment is not
// configured; the bill flow then reports the service as unavailable.
func New(
	store session.Store,
	validator *paycode.Validator,
	res BillerResolver,
	accounts billing.AccountStore,
	receipts billing.ReceiptStore,
	products config.ProductConfig,
	dialog config.DialogConfig,
) *Handler {
	return &Handler{
		store:     store,
		validator: validator,
		resolver:  res,
		accounts:  accounts,
		receipts:  receipts,
		products:  products,
		dialog:    dialog,
	}
}

// Menu drops any active session and shows the main menu.
func (h *Handler) Menu(userID string) string {
	h.store.Remove(userID)
	h.store.Upsert(userID, session.StateMainMenu)
	return MainMenu
}

// MenuChoice handles a numeric selection from the main menu.
func (h *Handler) MenuChoice(sess *session.Session, input string) string {
	switch strings.TrimSpace(input) {
	case "1":
		return h.StartBill(sess.UserID)
	case "2":
		return h.StartZesa(sess.UserID)
	case "3":
		return h.StartAirtime(sess.UserID)
	}
	return h.retryOrMenu(sess)
}

// Fallback emits the flow's canned correction without advancing state,
// escalating to the main menu after repeated misses.
func (h *Handler) Fallback(sess *session.Session) string {
	return h.retryOrMenu(sess)
}

// retryOrMenu bumps the session's retry counter. After the configured number
// of consecutive invalid inputs the session is dropped and the user lands
// back on the main menu.
func (h *Handler) retryOrMenu(sess *session.Session) string {
	return h.retryWith(sess, FlowError(sess.State.Flow()))
}

func (h *Handler) retryWith(sess *session.Session, correction string) string {
	next := sess.With(sess.State, func(f *session.Fields) { f.Retries++ })
	if next.Fields.Retries >= h.maxRetries() {
		h.store.Remove(sess.UserID)
		h.store.Upsert(sess.UserID, session.StateMainMenu)
		return returnToMenu()
	}
	h.store.Put(next)
	return correction
}

// advance persists the next step with the retry counter cleared.
func (h *Handler) advance(sess *session.Session, state session.State, mutate func(*session.Fields)) {
	next := sess.With(state, func(f *session.Fields) {
		f.Retries = 0
		if mutate != nil {
			mutate(f)
		}
	})
	h.store.Put(next)
}

// parseAmount accepts "10", "10.50" and "$10" style input.
func parseAmount(input string) (float64, bool) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
