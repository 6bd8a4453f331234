package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/tq4m/otc-signal-bot/internal/config"
	"github.com/tq4m/otc-signal-bot/internal/service"
	"github.com/tq4m/otc-signal-bot/pkg/telegram"
)

// signalCooldown is the minimum time between signal dispatches to one user.
const signalCooldown = 2 * time.Minute

// botClient is the part of the Telegram client the orchestrator uses.
type botClient interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]string) error
	SendInlineKeyboard(ctx context.Context, chatID int64, text string, rows [][]telegram.InlineButton) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	GetUpdates(ctx context.Context, offset int) ([]telegram.Update, error)
}

// App owns all shared state and routes inbound events to the admin workflow
// or the user flow based on the sender.
type App struct {
	cfg      *config.Config
	tgClient botClient
	subs     *service.SubscriptionService
	limiter  *service.RateLimiter
	sessions *service.SelectionSessions
	admin    adminState
	now      func() time.Time
}

func New(cfg *config.Config, subs *service.SubscriptionService) *App {
	return &App{
		cfg:      cfg,
		tgClient: telegram.NewClient(cfg.TelegramToken),
		subs:     subs,
		limiter:  service.NewRateLimiter(signalCooldown),
		sessions: service.NewSelectionSessions(cfg.Assets),
		now:      func() time.Time { return time.Now().In(cfg.Location) },
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.handleUpdates(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (a *App) handleUpdates(ctx context.Context) {
	offset := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		updates, err := a.tgClient.GetUpdates(ctx, offset)
		if err != nil {
			log.Println("get updates:", err)
			time.Sleep(time.Second)
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			a.handleUpdate(ctx, u)
		}
	}
}

// handleUpdate routes one inbound event. All updates are processed on a
// single goroutine, which serializes mutations across the registry, limiter,
// sessions and admin state.
func (a *App) handleUpdate(ctx context.Context, u telegram.Update) {
	if u.CallbackQuery != nil {
		a.handleCallback(ctx, u.CallbackQuery)
		return
	}
	if u.Message == nil {
		return
	}
	if u.Message.Chat.ID == a.cfg.AdminID {
		a.handleAdminMessage(ctx, u.Message)
		return
	}
	a.handleUserMessage(ctx, u.Message)
}

// sendMessage wraps the client send and logs failures. Delivery outcome never
// feeds back into state; mutations happen before the send step.
func (a *App) sendMessage(ctx context.Context, chatID int64, text string, kb [][]string) {
	if err := a.tgClient.SendMessage(ctx, chatID, text, kb); err != nil {
		log.Printf("send message to %d: %v", chatID, err)
	}
}

func mainKeyboard() [][]string {
	return [][]string{{StartAgainBtn}}
}

func adminKeyboard() [][]string {
	return [][]string{
		{ActivateBtn, BlockBtn},
		{BroadcastBtn, UsersBtn},
	}
}

func (a *App) assetKeyboard() [][]string {
	rows := make([][]string, 0, len(a.cfg.Assets)+1)
	for _, asset := range a.cfg.Assets {
		rows = append(rows, []string{asset})
	}
	return append(rows, []string{ConfirmBtn, AddAnotherBtn})
}

func durationKeyboard(targetID int64) [][]telegram.InlineButton {
	grid := [][]string{
		{"1h", "3h", "6h", "12h"},
		{"1d", "3d", "1w", "2w"},
		{"4w", "perm"},
	}
	rows := make([][]telegram.InlineButton, len(grid))
	for i, line := range grid {
		row := make([]telegram.InlineButton, len(line))
		for j, d := range line {
			row[j] = telegram.InlineButton{
				Text:         d,
				CallbackData: fmt.Sprintf("%s%d_%s", durationCallbackPrefix, targetID, d),
			}
		}
		rows[i] = row
	}
	return rows
}
