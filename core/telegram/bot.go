package telegram

import (
	"context"
	"strconv"
	"strings"

	"github.com/m3rciful/paybot/core/logger"
	tghelpers "github.com/m3rciful/paybot/core/telegram/helpers"
	"github.com/m3rciful/paybot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// TextEngine processes one inbound text message and returns the reply.
type TextEngine interface {
	HandleText(ctx context.Context, userID, text string) string
}

// Quick-reply button labels and their canonical dialogue inputs.
var buttonInputs = map[string]string{
	"🧾 Pay a bill":  "1",
	"⚡ Electricity": "2",
	"📱 Airtime":     "3",
	"🏠 Menu":        "menu",
}

// MenuKeyboard is the persistent quick-reply keyboard shown with the main menu.
func MenuKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{"🧾 Pay a bill", "⚡ Electricity"},
		[]string{"📱 Airtime", "🏠 Menu"},
	)
}

// BuildRoutes binds all inbound text updates to the dialogue engine.
func BuildRoutes(eng TextEngine) []Route {
	return []Route{
		{Endpoint: "/start", Handler: textHandler(eng, "menu")},
		{Endpoint: tele.OnText, Handler: textHandler(eng, "")},
	}
}

// textHandler bridges one Telegram update into the engine. When override is
// non-empty it replaces the message text (used for /start).
func textHandler(eng TextEngine, override string) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		ctx := tghelpers.WithHandler(c, "dialog.text")

		text := override
		if text == "" {
			text = c.Text()
			if mapped, ok := buttonInputs[strings.TrimSpace(text)]; ok {
				text = mapped
			}
		}

		reply := eng.HandleText(ctx, strconv.FormatInt(sender.ID, 10), text)
		if reply == "" {
			return nil
		}
		if isMenuPrompt(reply) {
			return tghelpers.SendMD(c, reply, MenuKeyboard())
		}
		return tghelpers.SendMD(c, reply)
	}
}

// isMenuPrompt reports whether the reply ends at the main menu, which carries
// the quick-reply keyboard.
func isMenuPrompt(reply string) bool {
	return strings.Contains(reply, "1. Pay a bill")
}

// FloodNotice answers updates dropped by the flood middleware.
func FloodNotice(c tele.Context) error {
	logger.TG.Debug("flood notice")
	return tghelpers.SendText(c, "Easy there 🙂 One message at a time, please.")
}
