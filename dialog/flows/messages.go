package flows

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/paybot/billing"
	"github.com/m3rciful/paybot/dialog/session"
)

// BillCategories is the bill payment category menu in display order. The
// lowercase key doubles as the resolver category.
var BillCategories = []string{"Water", "Council Rates", "DSTV", "Insurance"}

// MainMenu is the top-level prompt sent on greeting, reset, and fallback.
const MainMenu = "Welcome to PayBot 👋\n\n" +
	"1. Pay a bill\n" +
	"2. Buy electricity (ZESA)\n" +
	"3. Buy airtime\n\n" +
	"Reply with a number. Type *menu* at any time to start over."

// flowErrors restates the expected input per flow, one entry per flow key
// plus a generic default.
var flowErrors = map[session.FlowKey]string{
	session.FlowBill: "That doesn't look right. Reply with a menu number, or send your pay code " +
		"(format: PAY followed by 6 digits, e.g. PAY123456). Type *menu* to start over.",
	session.FlowZesa: "That doesn't look right. Send your 11-digit meter number, or the amount in dollars " +
		"(minimum $5). Type *menu* to start over.",
	session.FlowAirtime: "That doesn't look right. Send the recipient's phone number (07XXXXXXXX), " +
		"or pick an amount from the menu. Type *menu* to start over.",
	session.FlowMenu: "Please reply with 1, 2 or 3. Type *menu* to see the options again.",
}

// FlowError returns the canned correction message for a flow.
func FlowError(flow session.FlowKey) string {
	if msg, ok := flowErrors[flow]; ok {
		return msg
	}
	return flowErrors[session.FlowMenu]
}

// LockoutNotice renders the remaining lockout time in whole minutes, never
// less than one.
func LockoutNotice(remaining time.Duration) string {
	mins := int(remaining.Minutes())
	if remaining > time.Duration(mins)*time.Minute {
		mins++
	}
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("Too many invalid code attempts. Please try again in %d minute(s), "+
		"or type *menu* to go back to the main menu.", mins)
}

func categoryMenu() string {
	var b strings.Builder
	b.WriteString("Which bill would you like to pay?\n\n")
	for i, c := range BillCategories {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString("\nReply with a number, or type *menu* to start over.")
	return b.String()
}

func walletMenu(p billing.Product) string {
	var b strings.Builder
	b.WriteString("How would you like to pay?\n\n")
	for i, w := range billing.Wallets(p) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, w)
	}
	b.WriteString("\nReply with a number.")
	return b.String()
}

func quoteLine(q billing.Quote) string {
	return fmt.Sprintf("Amount: %s\nService fee: %s\nTotal: %s",
		billing.Money(q.Amount), billing.Money(q.Fee), billing.Money(q.Total))
}

func returnToMenu() string {
	return "Too many invalid attempts, taking you back to the main menu.\n\n" + MainMenu
}
