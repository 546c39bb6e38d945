package flows

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/paybot/billing"
	"github.com/m3rciful/paybot/core/logger"
	"github.com/m3rciful/paybot/dialog/session"
)

// StartAirtime opens the airtime flow at recipient entry.
func (h *Handler) StartAirtime(userID string) string {
	h.store.Upsert(userID, session.StateAirtimeRecipientEntry)
	return "Let's buy airtime 📱\n\nWho is it for? Send the recipient's phone number (07XXXXXXXX)."
}

// AirtimeRecipient validates the phone number and detects the carrier.
func (h *Handler) AirtimeRecipient(sess *session.Session, input string) string {
	carrier, ok := billing.DetectCarrier(input)
	if !ok {
		return h.retryWith(sess, "That number doesn't look right. Please send a 10-digit number "+
			"starting with 077, 078, 071 or 073. Type *menu* to start over.")
	}
	phone := billing.NormalizePhone(input)
	h.advance(sess, session.StateAirtimeAmountChoice, func(f *session.Fields) {
		f.Phone = phone
		f.Carrier = carrier
	})
	return fmt.Sprintf("%s number ✅ (%s)\n\n%s", carrier, phone, tierMenu(h.products.AirtimeTiers))
}

func tierMenu(tiers []float64) string {
	var b strings.Builder
	b.WriteString("How much airtime?\n\n")
	for i, t := range tiers {
		fmt.Fprintf(&b, "%d. %s\n", i+1, billing.Money(t))
	}
	fmt.Fprintf(&b, "%d. Custom amount\n", len(tiers)+1)
	b.WriteString("\nReply with a number.")
	return b.String()
}

// AirtimeAmountChoice handles the fixed-tier menu, with the last entry
// leading to the custom amount sub-step.
func (h *Handler) AirtimeAmountChoice(sess *session.Session, input string) string {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	tiers := h.products.AirtimeTiers
	if err != nil || n < 1 || n > len(tiers)+1 {
		return h.retryOrMenu(sess)
	}
	if n == len(tiers)+1 {
		h.advance(sess, session.StateAirtimeCustomAmount, nil)
		return fmt.Sprintf("Enter an amount of at least %s.", billing.Money(h.products.AirtimeMinAmount))
	}
	return h.airtimeQuote(sess, tiers[n-1])
}

// AirtimeCustomAmount handles free-form amount entry from the custom tier.
func (h *Handler) AirtimeCustomAmount(sess *session.Session, input string) string {
	amount, ok := parseAmount(input)
	if !ok {
		return h.retryOrMenu(sess)
	}
	min := h.products.AirtimeMinAmount
	if amount < min {
		return h.retryWith(sess, fmt.Sprintf("The minimum airtime purchase is %s. Please enter a larger amount, "+
			"or type *menu* to start over.", billing.Money(min)))
	}
	return h.airtimeQuote(sess, amount)
}

func (h *Handler) airtimeQuote(sess *session.Session, amount float64) string {
	q := billing.QuoteFor(amount, h.products.Airtime)
	h.advance(sess, session.StateAirtimeWalletSelection, func(f *session.Fields) {
		f.Amount = q.Amount
		f.Fee = q.Fee
		f.Total = q.Total
	})
	return fmt.Sprintf("Airtime for %s (%s):\n%s\n\n%s",
		sess.Fields.Phone, sess.Fields.Carrier, quoteLine(q), walletMenu(billing.ProductAirtime))
}

// AirtimeWallet completes the top-up.
func (h *Handler) AirtimeWallet(ctx context.Context, sess *session.Session, input string) string {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return h.retryOrMenu(sess)
	}
	wallet, ok := billing.WalletByChoice(billing.ProductAirtime, n)
	if !ok {
		return h.retryOrMenu(sess)
	}

	ref := billing.NewReference()
	h.saveReceipt(ctx, billing.Receipt{
		Reference: ref,
		UserID:    sess.UserID,
		Product:   billing.ProductAirtime,
		Detail:    fmt.Sprintf("%s (%s)", sess.Fields.Phone, sess.Fields.Carrier),
		Wallet:    wallet,
		Amount:    sess.Fields.Amount,
		Fee:       sess.Fields.Fee,
		Total:     sess.Fields.Total,
		CreatedAt: time.Now(),
	})
	h.store.Remove(sess.UserID)

	logger.Info(ctx, "dialog", "flow.airtime.complete",
		slog.String("user", logger.Sanitize(sess.UserID)),
		slog.String("carrier", sess.Fields.Carrier),
		slog.String("wallet", wallet),
		slog.Float64("total", sess.Fields.Total),
		slog.String("reference", ref),
	)
	return fmt.Sprintf("Top-up complete ✅\n\nRecipient: %s (%s)\n%s\nPaid via: %s\nReference: %s\n\n"+
		"Thank you for using PayBot! Type *menu* for another transaction.",
		sess.Fields.Phone, sess.Fields.Carrier,
		quoteLine(billing.Quote{Amount: sess.Fields.Amount, Fee: sess.Fields.Fee, Total: sess.Fields.Total}),
		wallet, ref)
}

func (h *Handler) maxRetries() int {
	if h.dialog.MaxFlowRetries > 0 {
		return h.dialog.MaxFlowRetries
	}
	return 3
}
