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
	"github.com/m3rciful/paybot/paycode"
	"github.com/m3rciful/paybot/resolver"
)

// StartBill opens the bill payment flow at category selection.
func (h *Handler) StartBill(userID string) string {
	h.store.Upsert(userID, session.StateBillCategorySelection)
	return categoryMenu()
}

// BillCategory handles the numeric category choice.
func (h *Handler) BillCategory(sess *session.Session, input string) string {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > len(BillCategories) {
		return h.retryOrMenu(sess)
	}
	name := BillCategories[n-1]
	h.advance(sess, session.StateBillWaitingForCode, func(f *session.Fields) {
		f.Category = strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	})
	return fmt.Sprintf("%s it is. Please send your pay code (format: PAY followed by 6 digits, "+
		"e.g. PAY123456).", name)
}

// BillCode validates a submitted pay code and resolves it to a biller. Called
// both mid-flow and when code-shaped input arrives outside the bill flow; in
// the latter case a fresh session is opened first.
func (h *Handler) BillCode(ctx context.Context, userID, raw string) string {
	sess, ok := h.store.GetActive(userID)
	if !ok || sess.State != session.StateBillWaitingForCode {
		h.store.Upsert(userID, session.StateBillWaitingForCode)
		sess, _ = h.store.GetActive(userID)
	}

	code, err := h.validator.Validate(userID, raw)
	if err != nil {
		return codeRejection(err)
	}

	if h.resolver == nil {
		return "Bill payments are not available right now. Please try again shortly, " +
			"or type *menu* to go back."
	}
	biller, err := h.resolver.Resolve(ctx, sess.Fields.Category, code)
	if err != nil {
		return h.resolveFailure(ctx, userID, code, err)
	}

	min := h.products.BillMinAmount
	h.advance(sess, session.StateBillAmountEntry, func(f *session.Fields) {
		f.Code = code
		f.BillerName = biller.ProviderName
		f.BillerRef = biller.BillerReference
		if f.Category == "" {
			f.Category = biller.ServiceCategory
		}
	})
	return fmt.Sprintf("Code accepted ✅\nBiller: %s (ref %s)\n\nHow much would you like to pay? "+
		"Minimum is %s.", biller.ProviderName, biller.BillerReference, billing.Money(min))
}

// codeRejection maps a validator error to the outbound correction text.
func codeRejection(err error) string {
	var rl *paycode.RateLimitedError
	if errors.As(err, &rl) {
		return LockoutNotice(rl.RetryAfter)
	}
	var fe *paycode.FormatError
	if errors.As(err, &fe) {
		if fe.LockedFor > 0 {
			return LockoutNotice(fe.LockedFor)
		}
		msg := fe.Reason
		if fe.Hint != "" {
			msg += "\nDid you mean " + fe.Hint + "?"
		}
		return msg + "\nType *menu* to start over."
	}
	var se *paycode.SecurityError
	if errors.As(err, &se) {
		if se.LockedFor > 0 {
			return LockoutNotice(se.LockedFor)
		}
		return se.Reason + "\nPlease request a fresh code and try again, or type *menu* to start over."
	}
	return "Something went wrong with that code. Please try again, or type *menu* to start over."
}

// resolveFailure maps resolution outcomes to distinct user messages. A 401
// is an operator problem and only gets a generic apology.
func (h *Handler) resolveFailure(ctx context.Context, userID, code string, err error) string {
	logger.Warn(ctx, "dialog", "flow.bill.resolve",
		slog.String("user", logger.Sanitize(userID)),
		slog.String("code", h.validator.Format().Mask(code)),
		slog.String("status", "rejected"),
		slog.String("err", err.Error()),
	)
	switch {
	case errors.Is(err, resolver.ErrNotFound):
		return "That code isn't recognised or has expired. Please check it and try again, " +
			"or request a fresh one. Type *menu* to start over."
	case errors.Is(err, resolver.ErrMisconfigured):
		return "Sorry, we can't process bill payments right now. Please contact support."
	default:
		return "The billing service is taking too long to respond. Please try again shortly."
	}
}

// BillAmount handles free-form amount entry after a code was resolved.
func (h *Handler) BillAmount(sess *session.Session, input string) string {
	amount, ok := parseAmount(input)
	if !ok {
		return h.retryOrMenu(sess)
	}
	min := h.products.BillMinAmount
	if amount < min {
		return h.retryWith(sess, fmt.Sprintf("The minimum bill payment is %s. Please enter a larger amount, "+
			"or type *menu* to start over.", billing.Money(min)))
	}
	q := billing.QuoteFor(amount, h.products.Bill)
	h.advance(sess, session.StateBillConfirmation, func(f *session.Fields) {
		f.Amount = q.Amount
		f.Fee = q.Fee
		f.Total = q.Total
	})
	return fmt.Sprintf("Paying %s:\n%s\n\n1. Pay now\n2. Change amount\n3. Start over",
		sess.Fields.BillerName, quoteLine(q))
}

// BillConfirm handles the pay / change amount / restart choice.
func (h *Handler) BillConfirm(ctx context.Context, sess *session.Session, input string) string {
	switch strings.TrimSpace(input) {
	case "1":
		ref := billing.NewReference()
		h.saveReceipt(ctx, billing.Receipt{
			Reference: ref,
			UserID:    sess.UserID,
			Product:   billing.ProductBill,
			Detail:    fmt.Sprintf("%s (%s)", sess.Fields.BillerName, sess.Fields.BillerRef),
			Amount:    sess.Fields.Amount,
			Fee:       sess.Fields.Fee,
			Total:     sess.Fields.Total,
			CreatedAt: time.Now(),
		})
		h.store.Remove(sess.UserID)
		return fmt.Sprintf("Payment complete ✅\n\nBiller: %s\n%s\nReference: %s\n\n"+
			"Thank you for using PayBot! Type *menu* for another transaction.",
			sess.Fields.BillerName, quoteLine(billing.Quote{
				Amount: sess.Fields.Amount, Fee: sess.Fields.Fee, Total: sess.Fields.Total,
			}), ref)
	case "2":
		h.advance(sess, session.StateBillAmountEntry, nil)
		return fmt.Sprintf("Sure. How much would you like to pay? Minimum is %s.",
			billing.Money(h.products.BillMinAmount))
	case "3":
		h.store.Remove(sess.UserID)
		return h.StartBill(sess.UserID)
	}
	return h.retryOrMenu(sess)
}

// saveReceipt records the audit entry. Failures are logged and swallowed so
// the user still gets their confirmation.
func (h *Handler) saveReceipt(ctx context.Context, r billing.Receipt) {
	if h.receipts == nil {
		return
	}
	if err := h.receipts.Save(ctx, r); err != nil {
		logger.Error(ctx, "billing", "billing.receipt_save",
			slog.String("reference", r.Reference),
			slog.String("err", err.Error()),
		)
	}
}
