package bot

import (
	"strings"
	"testing"
	"time"

	"perp-signal-agent/internal/domain"

	tele "gopkg.in/telebot.v3"
)

func TestStartNotifierSkipsWithoutToken(t *testing.T) {
	if n := StartNotifier("", 42, nil); n != nil {
		t.Fatal("expected nil notifier without token")
	}
}

func TestStartNotifierBotErrorIsNonFatal(t *testing.T) {
	orig := newTelegramBot
	t.Cleanup(func() { newTelegramBot = orig })
	newTelegramBot = func(pref tele.Settings) (*tele.Bot, error) {
		return nil, tele.ErrUnauthorized
	}

	if n := StartNotifier("bad-token", 42, nil); n != nil {
		t.Fatal("expected nil notifier when bot creation fails")
	}
}

func TestNilNotifierSendIsSafe(t *testing.T) {
	var n *Notifier
	n.Send("hello")
}

func TestFormatDecision(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	msg := formatDecision(domain.Decision{
		Direction:     domain.DirectionLong,
		ProbaUp:       0.7,
		NewsSentiment: 0.5,
		Blended:       0.44,
	}, at)

	for _, want := range []string{"long", "0.700", "0.500", "0.440", "2025-03-01T12:30:00Z"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in message, got %q", want, msg)
		}
	}
}
