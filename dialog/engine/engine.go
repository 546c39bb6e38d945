// Package engine ties the classifier, flows and stores together per inbound
// message, and owns the background cleanup timers.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/paybot/billing"
	"github.com/m3rciful/paybot/core/config"
	"github.com/m3rciful/paybot/core/logger"
	"github.com/m3rciful/paybot/dialog/flows"
	"github.com/m3rciful/paybot/dialog/intent"
	"github.com/m3rciful/paybot/dialog/session"
	"github.com/m3rciful/paybot/paycode"
)

// Engine processes one inbound message at a time per user and runs the
// periodic session and rate-limit sweeps.
type Engine struct {
	store      *session.MemoryStore
	limiter    *paycode.Limiter
	classifier *intent.Classifier
	flows      *flows.Handler

	sweepInterval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// Options groups the collaborators the engine wires together.
type Options struct {
	Config   *config.Config
	Resolver flows.BillerResolver
	Accounts billing.AccountStore
	Receipts billing.ReceiptStore
}

// New assembles a fully wired engine from configuration. Accounts and
// Receipts default to the in-memory implementations when nil.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config

	format, err := paycode.NewFormat(cfg.Paycode.Prefix, cfg.Paycode.Digits, cfg.Paycode.MaxRawLength)
	if err != nil {
		return nil, err
	}
	limiter := paycode.NewLimiter(paycode.LimiterConfig{
		Window:    time.Duration(cfg.Paycode.WindowSeconds) * time.Second,
		Threshold: cfg.Paycode.AttemptThreshold,
		Lockout:   time.Duration(cfg.Paycode.LockoutSeconds) * time.Second,
		IdleGC:    time.Duration(cfg.Paycode.IdleGCSeconds) * time.Second,
	})
	validator := paycode.NewValidator(format, limiter)

	store := session.NewMemoryStore(time.Duration(cfg.Dialog.SessionTTLSeconds) * time.Second)

	accounts := opts.Accounts
	if accounts == nil {
		accounts = billing.NewStaticAccounts()
	}
	receipts := opts.Receipts
	if receipts == nil {
		receipts = billing.NewMemoryReceipts()
	}

	fh := flows.New(store, validator, opts.Resolver, accounts, receipts, cfg.Products, cfg.Dialog)
	cls := intent.New(store, limiter, format, cfg.Dialog.ResetKeywords)

	return &Engine{
		store:         store,
		limiter:       limiter,
		classifier:    cls,
		flows:         fh,
		sweepInterval: time.Duration(cfg.Dialog.SweepIntervalSeconds) * time.Second,
		stop:          make(chan struct{}),
	}, nil
}

// Store exposes the session store, mainly for tests and the transport layer.
func (e *Engine) Store() *session.MemoryStore { return e.store }

// Limiter exposes the rate limiter for tests.
func (e *Engine) Limiter() *paycode.Limiter { return e.limiter }

// HandleText classifies and dispatches one inbound message, returning the
// outbound reply. An empty body produces no reply; the transport just acks.
func (e *Engine) HandleText(ctx context.Context, userID, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	d := e.classifier.Classify(userID, text)
	state := session.State("")
	if d.Session != nil {
		state = d.Session.State
		ctx = logger.WithFlow(ctx, string(state.Flow()))
	}
	logger.Debug(ctx, "dialog", "dialog.route",
		slog.String("user", logger.Sanitize(userID)),
		slog.String("intent", string(d.Kind)),
		slog.String("state", string(state)),
		slog.String("rule", d.Rule),
	)

	return e.dispatch(ctx, userID, text, d)
}

func (e *Engine) dispatch(ctx context.Context, userID, text string, d intent.Decision) string {
	switch d.Kind {
	case intent.KindReset, intent.KindMenu:
		return e.flows.Menu(userID)
	case intent.KindLockout:
		return flows.LockoutNotice(d.LockedFor)
	case intent.KindCode:
		return e.flows.BillCode(ctx, userID, text)
	case intent.KindStartBill:
		return e.flows.StartBill(userID)
	case intent.KindStartZesa:
		return e.flows.StartZesa(userID)
	case intent.KindStartAirtime:
		return e.flows.StartAirtime(userID)
	case intent.KindMeterHint:
		e.flows.StartZesa(userID)
		if sess, ok := e.store.GetActive(userID); ok {
			return e.flows.ZesaMeter(ctx, sess, text)
		}
		return e.flows.Menu(userID)
	case intent.KindMenuChoice:
		return e.menuChoice(ctx, d.Session, text)
	case intent.KindAmount:
		return e.amount(d.Session, text)
	case intent.KindFlowText:
		return e.flowText(ctx, d.Session, text)
	case intent.KindFlowFallback:
		return e.flows.Fallback(d.Session)
	}
	return e.flows.Menu(userID)
}

func (e *Engine) menuChoice(ctx context.Context, sess *session.Session, text string) string {
	switch sess.State {
	case session.StateMainMenu:
		return e.flows.MenuChoice(sess, text)
	case session.StateBillCategorySelection:
		return e.flows.BillCategory(sess, text)
	case session.StateBillConfirmation:
		return e.flows.BillConfirm(ctx, sess, text)
	case session.StateZesaWalletSelection:
		return e.flows.ZesaWallet(ctx, sess, text)
	case session.StateAirtimeAmountChoice:
		return e.flows.AirtimeAmountChoice(sess, text)
	case session.StateAirtimeWalletSelection:
		return e.flows.AirtimeWallet(ctx, sess, text)
	}
	return e.flows.Fallback(sess)
}

func (e *Engine) amount(sess *session.Session, text string) string {
	switch sess.State {
	case session.StateBillAmountEntry:
		return e.flows.BillAmount(sess, text)
	case session.StateZesaAmountEntry:
		return e.flows.ZesaAmount(sess, text)
	case session.StateAirtimeCustomAmount:
		return e.flows.AirtimeCustomAmount(sess, text)
	}
	return e.flows.Fallback(sess)
}

func (e *Engine) flowText(ctx context.Context, sess *session.Session, text string) string {
	switch sess.State {
	case session.StateBillWaitingForCode:
		return e.flows.BillCode(ctx, sess.UserID, text)
	case session.StateMeterEntry:
		return e.flows.ZesaMeter(ctx, sess, text)
	case session.StateAirtimeRecipientEntry:
		return e.flows.AirtimeRecipient(sess, text)
	}
	return e.flows.Fallback(sess)
}

// Start launches the periodic cleanup sweeps. Safe to call once.
func (e *Engine) Start() {
	interval := e.sweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				swept := e.store.Sweep()
				stale := e.limiter.Sweep()
				if swept > 0 || stale > 0 {
					logger.Debug(context.Background(), "dialog", "dialog.sweep",
						slog.Int("swept", swept),
						slog.Int("stale", stale),
					)
				}
			case <-e.stop:
				return
			}
		}
	}()
}

// Stop tears down the background sweeps and waits for them to exit.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
	e.wg.Wait()
}
