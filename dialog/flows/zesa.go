package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/paybot/billing"
	"github.com/m3rciful/paybot/core/logger"
	"github.com/m3rciful/paybot/dialog/session"
)

// StartZesa opens the electricity token flow at meter entry.
func (h *Handler) StartZesa(userID string) string {
	h.store.Upsert(userID, session.StateMeterEntry)
	return "Let's buy electricity ⚡\n\nPlease send your 11-digit meter number."
}

// ZesaMeter verifies a meter number against the known accounts.
func (h *Handler) ZesaMeter(ctx context.Context, sess *session.Session, input string) string {
	meter := strings.TrimSpace(input)
	if len(meter) != 11 || !allDigits(meter) {
		return h.retryOrMenu(sess)
	}

	account, err := h.accounts.Lookup(ctx, meter)
	if err != nil {
		if errors.Is(err, billing.ErrAccountNotFound) {
			logger.Info(ctx, "dialog", "flow.zesa.meter",
				slog.String("user", logger.Sanitize(sess.UserID)),
				slog.String("meter", meter),
				slog.String("status", "rejected"),
			)
			return "We couldn't find that meter number. Please check it and try again, " +
				"or type *menu* to start over."
		}
		logger.Error(ctx, "dialog", "flow.zesa.meter",
			slog.String("meter", meter),
			slog.String("err", err.Error()),
		)
		return "We couldn't verify that meter right now. Please try again shortly."
	}

	min := h.products.ElectricityMinAmount
	h.advance(sess, session.StateZesaAmountEntry, func(f *session.Fields) {
		f.Meter = account.Meter
		f.AccountName = account.Name
		f.AccountArea = account.Area
	})
	return fmt.Sprintf("Meter verified ✅\nAccount: %s\nArea: %s\n\nHow many dollars of "+
		"electricity would you like? Minimum is %s.", account.Name, account.Area, billing.Money(min))
}

// ZesaAmount handles the dollar amount and quotes the fee.
func (h *Handler) ZesaAmount(sess *session.Session, input string) string {
	amount, ok := parseAmount(input)
	if !ok {
		return h.retryOrMenu(sess)
	}
	min := h.products.ElectricityMinAmount
	if amount < min {
		return h.retryWith(sess, fmt.Sprintf("The minimum electricity purchase is %s. Please enter a larger "+
			"amount, or type *menu* to start over.", billing.Money(min)))
	}
	q := billing.QuoteFor(amount, h.products.Electricity)
	h.advance(sess, session.StateZesaWalletSelection, func(f *session.Fields) {
		f.Amount = q.Amount
		f.Fee = q.Fee
		f.Total = q.Total
	})
	return fmt.Sprintf("Electricity for meter %s:\n%s\n\n%s",
		sess.Fields.Meter, quoteLine(q), walletMenu(billing.ProductElectricity))
}

// ZesaWallet completes the purchase and issues the token.
func (h *Handler) ZesaWallet(ctx context.Context, sess *session.Session, input string) string {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return h.retryOrMenu(sess)
	}
	wallet, ok := billing.WalletByChoice(billing.ProductElectricity, n)
	if !ok {
		return h.retryOrMenu(sess)
	}

	ref := billing.NewReference()
	token := billing.NewToken()
	h.saveReceipt(ctx, billing.Receipt{
		Reference: ref,
		UserID:    sess.UserID,
		Product:   billing.ProductElectricity,
		Detail:    fmt.Sprintf("meter %s (%s)", sess.Fields.Meter, sess.Fields.AccountName),
		Wallet:    wallet,
		Amount:    sess.Fields.Amount,
		Fee:       sess.Fields.Fee,
		Total:     sess.Fields.Total,
		Token:     token,
		CreatedAt: time.Now(),
	})
	h.store.Remove(sess.UserID)

	logger.Info(ctx, "dialog", "flow.zesa.complete",
		slog.String("user", logger.Sanitize(sess.UserID)),
		slog.String("meter", sess.Fields.Meter),
		slog.String("wallet", wallet),
		slog.Float64("total", sess.Fields.Total),
		slog.String("reference", ref),
	)
	return fmt.Sprintf("Purchase complete ✅\n\nMeter: %s (%s)\nToken: %s\n%s\nPaid via: %s\n"+
		"Reference: %s\n\nThank you for using PayBot! Type *menu* for another transaction.",
		sess.Fields.Meter, sess.Fields.AccountName, token,
		quoteLine(billing.Quote{Amount: sess.Fields.Amount, Fee: sess.Fields.Fee, Total: sess.Fields.Total}),
		wallet, ref)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
