package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tq4m/otc-signal-bot/internal/model"
	"github.com/tq4m/otc-signal-bot/internal/repository"
	"github.com/tq4m/otc-signal-bot/internal/service"
	"github.com/tq4m/otc-signal-bot/pkg/telegram"
)

// User-facing button labels.
const (
	StartAgainBtn = "🔁 Start Again"
	ConfirmBtn    = "✅ Confirm"
	AddAnotherBtn = "➕ Add Another"
)

const welcomeText = "👑 Welcome to the signals bot!\n" +
	"Works with the martingale system.\n" +
	"Platform: Quotex (OTC)\n" +
	"Time: Egypt"

const awaitActivationText = "⛔ Please wait for activation by the owner 👑"

const riskTip = "\n\n⚠️ Avoid trading during news\n" +
	"- Don't enter against trend/momentum\n" +
	"- Avoid doji/reversal candles\n" +
	"- Stay away from round numbers like .00\n\n" +
	"📈 The bot helps you, but always manage risk!"

func (a *App) handleUserMessage(ctx context.Context, m *telegram.Message) {
	text := strings.TrimSpace(m.Text)
	if text == "/start" || text == StartAgainBtn {
		a.startUserFlow(ctx, m)
		return
	}
	if !a.sessions.Active(m.Chat.ID) {
		a.sendMessage(ctx, m.Chat.ID, "❗ Press '🔁 Start Again' to begin.", mainKeyboard())
		return
	}
	a.continueSelection(ctx, m.Chat.ID, text)
}

// startUserFlow walks a user through the access gates: registration on first
// contact, activation/expiry state, then the rate limit. Only a user that
// clears all three gets a selection session.
func (a *App) startUserFlow(ctx context.Context, m *telegram.Message) {
	userID := m.Chat.ID
	now := a.now()

	sub, err := a.subs.Lookup(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Println("lookup:", err)
			return
		}
		name := displayName(m)
		if err := a.subs.RegisterPending(ctx, userID, name); err != nil {
			log.Println("register pending:", err)
			return
		}
		a.sendMessage(ctx, userID, welcomeText, mainKeyboard())
		a.sendMessage(ctx, userID, awaitActivationText, mainKeyboard())
		a.sendMessage(ctx, a.cfg.AdminID, fmt.Sprintf("New user: %s | ID: %d", name, userID), nil)
		return
	}

	if !sub.AccessibleAt(now) {
		if sub.Status == model.StatusPending {
			a.sendMessage(ctx, userID, awaitActivationText, mainKeyboard())
		} else {
			a.sendMessage(ctx, userID, "⛔ Your subscription has expired.", mainKeyboard())
		}
		return
	}

	if wait, ok := a.limiter.Check(userID, now); !ok {
		a.sendMessage(ctx, userID, fmt.Sprintf("⏱️ Wait %s before the next signal.", formatWait(wait)), mainKeyboard())
		return
	}

	a.sessions.Start(userID)
	a.sendMessage(ctx, userID, "Choose asset(s):", a.assetKeyboard())
}

func (a *App) continueSelection(ctx context.Context, userID int64, text string) {
	switch text {
	case ConfirmBtn:
		channels, err := a.sessions.Confirm(userID)
		if err != nil {
			if errors.Is(err, service.ErrEmptySelection) {
				a.sendMessage(ctx, userID, "❗ Choose at least 1 asset.", a.assetKeyboard())
			}
			return
		}
		now := a.now()
		signals := make([]string, len(channels))
		for i, ch := range channels {
			signals[i] = service.GenerateSignal(ch, now)
		}
		// The dispatch counts from the moment the send step is reached, not
		// from delivery confirmation.
		a.limiter.Record(userID, now)
		a.sendMessage(ctx, userID, strings.Join(signals, "\n\n")+riskTip, mainKeyboard())
	case AddAnotherBtn:
		a.sendMessage(ctx, userID, "Choose more:", a.assetKeyboard())
	default:
		added, err := a.sessions.Add(userID, text)
		if err != nil || !added {
			return
		}
		a.sendMessage(ctx, userID, "✔️ Added: "+text, a.assetKeyboard())
	}
}

// displayName prefers the sender's profile name and falls back to the chat id.
func displayName(m *telegram.Message) string {
	if m.From != nil && m.From.FullName() != "" {
		return m.From.FullName()
	}
	return fmt.Sprintf("User %d", m.Chat.ID)
}

func formatWait(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Second {
		d = time.Second
	}
	return d.String()
}
