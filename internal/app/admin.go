package app

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/tq4m/otc-signal-bot/internal/service"
	"github.com/tq4m/otc-signal-bot/pkg/telegram"
)

// Admin menu labels, mirrored in the admin reply keyboard.
const (
	ActivateBtn  = "🔄 Activate"
	BlockBtn     = "🔒 Block"
	BroadcastBtn = "📢 Broadcast"
	UsersBtn     = "👤 Users"
)

const durationCallbackPrefix = "duration_"

type adminAction int

const (
	adminIdle adminAction = iota
	adminAwaitActivateID
	adminAwaitDuration
	adminAwaitBlockID
	adminAwaitBroadcast
)

// adminState is the single-slot interpreter state for the administrator's
// multi-step commands. Malformed input resets it to idle; the admin reissues
// the top-level command.
type adminState struct {
	action adminAction
	target int64
}

func (a *App) handleAdminMessage(ctx context.Context, m *telegram.Message) {
	text := strings.TrimSpace(m.Text)

	// An in-progress command consumes the next message before menu labels
	// are considered.
	if a.admin.action != adminIdle {
		a.continueAdminCommand(ctx, m.Chat.ID, text)
		return
	}

	switch text {
	case "/start":
		a.sendMessage(ctx, m.Chat.ID, "👑 Welcome back!", adminKeyboard())
	case ActivateBtn:
		a.admin = adminState{action: adminAwaitActivateID}
		a.sendMessage(ctx, m.Chat.ID, "📥 Send user ID to activate.", nil)
	case BlockBtn:
		a.admin = adminState{action: adminAwaitBlockID}
		a.sendMessage(ctx, m.Chat.ID, "📥 Send user ID to block.", nil)
	case BroadcastBtn:
		a.admin = adminState{action: adminAwaitBroadcast}
		a.sendMessage(ctx, m.Chat.ID, "✏️ Send the message to broadcast.", nil)
	case UsersBtn:
		a.sendRoster(ctx, m.Chat.ID)
	default:
		a.sendMessage(ctx, m.Chat.ID, "📋 Admin Menu:", adminKeyboard())
	}
}

func (a *App) continueAdminCommand(ctx context.Context, chatID int64, text string) {
	action := a.admin.action
	switch action {
	case adminAwaitActivateID:
		target, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			a.admin = adminState{}
			a.sendMessage(ctx, chatID, "❗ Invalid ID.", nil)
			return
		}
		a.admin = adminState{action: adminAwaitDuration, target: target}
		prompt := fmt.Sprintf("🕒 Choose duration for %d:", target)
		if err := a.tgClient.SendInlineKeyboard(ctx, chatID, prompt, durationKeyboard(target)); err != nil {
			log.Printf("send duration menu: %v", err)
		}
	case adminAwaitDuration:
		// The duration choice arrives as a callback, not text.
		a.admin = adminState{}
		a.sendMessage(ctx, chatID, "❗ Use the duration buttons, or reissue the command.", nil)
	case adminAwaitBlockID:
		a.admin = adminState{}
		target, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			a.sendMessage(ctx, chatID, "❗ Invalid ID.", nil)
			return
		}
		existed, err := a.subs.Block(ctx, target)
		if err != nil {
			log.Println("block:", err)
			return
		}
		if existed {
			a.sendMessage(ctx, chatID, fmt.Sprintf("🚫 Blocked user %d", target), nil)
		} else {
			a.sendMessage(ctx, chatID, fmt.Sprintf("ℹ️ No record for user %d", target), nil)
		}
	case adminAwaitBroadcast:
		a.admin = adminState{}
		a.broadcast(ctx, chatID, text)
	}
}

// broadcast fans the text out to every user the registry currently holds a
// record for. Individual delivery failures are swallowed; only the aggregate
// count reaches the administrator.
func (a *App) broadcast(ctx context.Context, adminID int64, text string) {
	subs, err := a.subs.List(ctx)
	if err != nil {
		log.Println("broadcast:", err)
		return
	}
	delivered := 0
	for _, sub := range subs {
		if err := a.tgClient.SendMessage(ctx, sub.UserID, text, nil); err != nil {
			log.Printf("broadcast to %d: %v", sub.UserID, err)
			continue
		}
		delivered++
	}
	a.sendMessage(ctx, adminID, fmt.Sprintf("✅ Broadcast sent to %d of %d users.", delivered, len(subs)), nil)
}

func (a *App) sendRoster(ctx context.Context, adminID int64) {
	subs, err := a.subs.List(ctx)
	if err != nil {
		log.Println("roster:", err)
		return
	}
	if len(subs) == 0 {
		a.sendMessage(ctx, adminID, "❌ No users.", nil)
		return
	}
	lines := make([]string, len(subs))
	for i, sub := range subs {
		lines[i] = fmt.Sprintf("%s (ID: %d) [%s]", sub.Name, sub.UserID, sub.Status)
	}
	a.sendMessage(ctx, adminID, "👤 Users:\n"+strings.Join(lines, "\n"), nil)
}

// handleCallback processes the duration-choice callback. The payload carries
// the target id itself, so activation works even if the admin interpreter
// state was cleared or replaced since the menu was shown.
func (a *App) handleCallback(ctx context.Context, q *telegram.CallbackQuery) {
	if err := a.tgClient.AnswerCallbackQuery(ctx, q.ID); err != nil {
		log.Printf("answer callback: %v", err)
	}
	if q.From.ID != a.cfg.AdminID {
		return
	}
	if !strings.HasPrefix(q.Data, durationCallbackPrefix) {
		return
	}
	parts := strings.SplitN(strings.TrimPrefix(q.Data, durationCallbackPrefix), "_", 2)
	if len(parts) != 2 {
		return
	}
	target, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return
	}
	token := parts[1]
	policy, err := service.ParseExpiry(token)
	if err != nil {
		log.Printf("duration callback %q: %v", q.Data, err)
		return
	}
	if _, err := a.subs.Activate(ctx, target, "", policy, a.now()); err != nil {
		log.Println("activate:", err)
		return
	}
	a.admin = adminState{}
	a.sendMessage(ctx, target, "✅ Your subscription is now active!", mainKeyboard())
	confirmation := fmt.Sprintf("✅ Activated user %d for %s", target, token)
	if q.Message != nil {
		if err := a.tgClient.EditMessageText(ctx, q.Message.Chat.ID, q.Message.MessageID, confirmation); err != nil {
			log.Printf("edit message: %v", err)
		}
		return
	}
	a.sendMessage(ctx, a.cfg.AdminID, confirmation, nil)
}
