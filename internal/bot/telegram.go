package bot

import (
	"fmt"
	"log"
	"time"

	"perp-signal-agent/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// DecisionSource exposes the most recent signal cycle outcome.
type DecisionSource interface {
	Latest() (domain.Decision, time.Time, bool)
}

// Notifier pushes cycle summaries to a Telegram chat and answers a few
// commands. A nil Notifier is valid and does nothing, so the agent runs
// fine without a bot token.
type Notifier struct {
	bot  *tele.Bot
	chat tele.Recipient
}

var newTelegramBot = func(pref tele.Settings) (*tele.Bot, error) {
	return tele.NewBot(pref)
}

func StartNotifier(token string, chatID int64, decisions DecisionSource) *Notifier {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram notifications")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := newTelegramBot(pref)
	if err != nil {
		log.Printf("failed to create Telegram bot, notifications disabled: %v", err)
		return nil
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/status", func(c tele.Context) error {
		if decisions == nil {
			return c.Send("No decisions yet")
		}
		decision, at, ok := decisions.Latest()
		if !ok {
			return c.Send("No decisions yet")
		}
		return c.Send(formatDecision(decision, at))
	})

	log.Println("Telegram bot started")
	go b.Start()

	return &Notifier{bot: b, chat: tele.ChatID(chatID)}
}

// Send delivers text to the configured chat. Delivery failures are
// logged, never returned: a flaky Telegram must not break a cycle.
func (n *Notifier) Send(text string) {
	if n == nil || n.bot == nil {
		return
	}
	if _, err := n.bot.Send(n.chat, text); err != nil {
		log.Printf("telegram send failed: %v", err)
	}
}

func formatDecision(d domain.Decision, at time.Time) string {
	return fmt.Sprintf(
		"Last decision: %s\nP(up): %.3f\nNews sentiment: %.3f\nBlended: %.3f\nAt: %s",
		d.Direction, d.ProbaUp, d.NewsSentiment, d.Blended, at.UTC().Format(time.RFC3339),
	)
}
