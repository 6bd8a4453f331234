package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tq4m/otc-signal-bot/internal/config"
	"github.com/tq4m/otc-signal-bot/internal/model"
	"github.com/tq4m/otc-signal-bot/internal/repository"
	"github.com/tq4m/otc-signal-bot/internal/service"
	"github.com/tq4m/otc-signal-bot/pkg/telegram"
)

const adminID = int64(99)

type sentMessage struct {
	chatID int64
	text   string
	kb     [][]string
}

type inlineSent struct {
	chatID int64
	text   string
	rows   [][]telegram.InlineButton
}

type fakeClient struct {
	messages  []sentMessage
	inline    []inlineSent
	edits     []string
	answered  []string
	failSends map[int64]bool
}

func (f *fakeClient) SendMessage(ctx context.Context, chatID int64, text string, kb [][]string) error {
	if f.failSends[chatID] {
		return errors.New("send failed")
	}
	f.messages = append(f.messages, sentMessage{chatID: chatID, text: text, kb: kb})
	return nil
}

func (f *fakeClient) SendInlineKeyboard(ctx context.Context, chatID int64, text string, rows [][]telegram.InlineButton) error {
	f.inline = append(f.inline, inlineSent{chatID: chatID, text: text, rows: rows})
	return nil
}

func (f *fakeClient) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	f.answered = append(f.answered, callbackID)
	return nil
}

func (f *fakeClient) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeClient) GetUpdates(ctx context.Context, offset int) ([]telegram.Update, error) {
	return nil, nil
}

func newTestApp(t *testing.T) (*App, *fakeClient) {
	t.Helper()
	cfg := &config.Config{
		AdminID:  adminID,
		Assets:   []string{"USD/EGP", "USD/TRY", "NZD/JPY"},
		Location: time.UTC,
	}
	subs := service.NewSubscriptionService(repository.NewMemorySubscriptionRepository())
	a := New(cfg, subs)
	fc := &fakeClient{failSends: map[int64]bool{}}
	a.tgClient = fc
	return a, fc
}

func text(chatID int64, s string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		Chat: telegram.Chat{ID: chatID},
		From: &telegram.User{ID: chatID, FirstName: "Test"},
		Text: s,
	}}
}

func callback(from int64, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb1",
		From:    telegram.User{ID: from},
		Message: &telegram.Message{MessageID: 5, Chat: telegram.Chat{ID: from}},
		Data:    data,
	}}
}

func lastTo(fc *fakeClient, chatID int64) string {
	for i := len(fc.messages) - 1; i >= 0; i-- {
		if fc.messages[i].chatID == chatID {
			return fc.messages[i].text
		}
	}
	return ""
}

func TestEndToEnd_ActivationAndSignalDispatch(t *testing.T) {
	a, fc := newTestApp(t)
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }

	// First contact creates a pending record and notifies the admin.
	a.handleUpdate(ctx, text(7, "/start"))
	sub, err := a.subs.Lookup(ctx, 7)
	if err != nil || sub.Status != model.StatusPending {
		t.Fatalf("expected pending record, got %+v %v", sub, err)
	}
	if got := lastTo(fc, adminID); !strings.Contains(got, "New user") || !strings.Contains(got, "ID: 7") {
		t.Fatalf("admin not notified: %q", got)
	}

	// A second contact before activation repeats the wait notice without
	// another admin notification.
	adminMsgs := len(fc.messages)
	a.handleUpdate(ctx, text(7, "🔁 Start Again"))
	if got := lastTo(fc, 7); !strings.Contains(got, "wait for activation") {
		t.Fatalf("expected wait notice, got %q", got)
	}
	for _, m := range fc.messages[adminMsgs:] {
		if m.chatID == adminID {
			t.Fatalf("admin re-notified on repeat contact")
		}
	}

	// Admin activates user 7 for one day.
	a.handleUpdate(ctx, text(adminID, "🔄 Activate"))
	a.handleUpdate(ctx, text(adminID, "7"))
	if len(fc.inline) != 1 || fc.inline[0].chatID != adminID {
		t.Fatalf("expected one duration menu, got %+v", fc.inline)
	}
	a.handleUpdate(ctx, callback(adminID, "duration_7_1d"))
	if len(fc.answered) != 1 {
		t.Fatalf("callback not acknowledged")
	}
	sub, err = a.subs.Lookup(ctx, 7)
	if err != nil || sub.Status != model.StatusActive {
		t.Fatalf("expected active record, got %+v %v", sub, err)
	}
	if want := clock.Add(24 * time.Hour); !sub.ExpiresAt.Equal(want) {
		t.Fatalf("expiry = %v, want %v", sub.ExpiresAt, want)
	}
	if got := lastTo(fc, 7); !strings.Contains(got, "active") {
		t.Fatalf("user not notified of activation: %q", got)
	}
	if len(fc.edits) != 1 || !strings.Contains(fc.edits[0], "Activated user 7 for 1d") {
		t.Fatalf("menu message not edited: %v", fc.edits)
	}

	// User picks two assets and confirms; the reply is one combined message.
	a.handleUpdate(ctx, text(7, "🔁 Start Again"))
	a.handleUpdate(ctx, text(7, "USD/EGP"))
	a.handleUpdate(ctx, text(7, "USD/TRY"))
	before := len(fc.messages)
	a.handleUpdate(ctx, text(7, "✅ Confirm"))
	if len(fc.messages) != before+1 {
		t.Fatalf("expected a single combined reply, got %d messages", len(fc.messages)-before)
	}
	combined := fc.messages[len(fc.messages)-1]
	if combined.chatID != 7 || !strings.Contains(combined.text, "USD/EGP") || !strings.Contains(combined.text, "USD/TRY") {
		t.Fatalf("combined reply missing signals: %q", combined.text)
	}

	// Rate limited for the next two minutes.
	clock = clock.Add(90 * time.Second)
	a.handleUpdate(ctx, text(7, "🔁 Start Again"))
	if got := lastTo(fc, 7); !strings.Contains(got, "⏱️ Wait") {
		t.Fatalf("expected cooldown notice, got %q", got)
	}
	clock = clock.Add(40 * time.Second)
	a.handleUpdate(ctx, text(7, "🔁 Start Again"))
	if got := lastTo(fc, 7); !strings.Contains(got, "Choose asset(s):") {
		t.Fatalf("expected new session after cooldown, got %q", got)
	}
}

func TestAdmin_InvalidIDResetsState(t *testing.T) {
	a, fc := newTestApp(t)
	ctx := context.Background()

	a.handleUpdate(ctx, text(adminID, "🔄 Activate"))
	a.handleUpdate(ctx, text(adminID, "not-a-number"))
	if got := lastTo(fc, adminID); !strings.Contains(got, "Invalid ID") {
		t.Fatalf("expected invalid id report, got %q", got)
	}

	// The interpreter is back at idle: a numeric message now falls through to
	// the menu, not the activation flow.
	a.handleUpdate(ctx, text(adminID, "7"))
	if len(fc.inline) != 0 {
		t.Fatalf("reset state must not produce a duration menu")
	}
	if got := lastTo(fc, adminID); !strings.Contains(got, "Admin Menu") {
		t.Fatalf("expected menu fallback, got %q", got)
	}
}

func TestAdmin_BlockFlow(t *testing.T) {
	a, fc := newTestApp(t)
	ctx := context.Background()

	a.handleUpdate(ctx, text(7, "/start"))

	a.handleUpdate(ctx, text(adminID, "🔒 Block"))
	a.handleUpdate(ctx, text(adminID, "7"))
	if got := lastTo(fc, adminID); !strings.Contains(got, "Blocked user 7") {
		t.Fatalf("expected block confirmation, got %q", got)
	}
	if _, err := a.subs.Lookup(ctx, 7); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("blocked record must be deleted, got %v", err)
	}

	a.handleUpdate(ctx, text(adminID, "🔒 Block"))
	a.handleUpdate(ctx, text(adminID, "7"))
	if got := lastTo(fc, adminID); !strings.Contains(got, "No record for user 7") {
		t.Fatalf("expected not-found report, got %q", got)
	}

	// The blocked user re-enters as a brand-new pending user.
	a.handleUpdate(ctx, text(7, "/start"))
	sub, err := a.subs.Lookup(ctx, 7)
	if err != nil || sub.Status != model.StatusPending {
		t.Fatalf("expected fresh pending record, got %+v %v", sub, err)
	}
}

func TestAdmin_BroadcastBestEffort(t *testing.T) {
	a, fc := newTestApp(t)
	ctx := context.Background()

	a.handleUpdate(ctx, text(7, "/start"))
	a.handleUpdate(ctx, text(8, "/start"))
	fc.failSends[8] = true

	a.handleUpdate(ctx, text(adminID, "📢 Broadcast"))
	a.handleUpdate(ctx, text(adminID, "maintenance tonight"))

	if got := lastTo(fc, adminID); !strings.Contains(got, "1 of 2") {
		t.Fatalf("expected aggregate report, got %q", got)
	}
	if got := lastTo(fc, 7); got != "maintenance tonight" {
		t.Fatalf("broadcast not delivered to healthy recipient: %q", got)
	}
}

func TestAdmin_Roster(t *testing.T) {
	a, fc := newTestApp(t)
	ctx := context.Background()

	a.handleUpdate(ctx, text(adminID, "👤 Users"))
	if got := lastTo(fc, adminID); !strings.Contains(got, "No users") {
		t.Fatalf("expected empty-state message, got %q", got)
	}

	a.handleUpdate(ctx, text(7, "/start"))
	a.handleUpdate(ctx, text(8, "/start"))
	a.handleUpdate(ctx, text(adminID, "👤 Users"))
	got := lastTo(fc, adminID)
	if !strings.Contains(got, "ID: 7") || !strings.Contains(got, "ID: 8") {
		t.Fatalf("roster missing entries: %q", got)
	}
	if strings.Index(got, "ID: 7") > strings.Index(got, "ID: 8") {
		t.Fatalf("roster not in first-contact order: %q", got)
	}
}

func TestUser_ExpiredSubscription(t *testing.T) {
	a, fc := newTestApp(t)
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }

	a.subs.Activate(ctx, 7, "Test", model.ExpiryPolicy{TTL: time.Hour}, clock)
	clock = clock.Add(2 * time.Hour)

	a.handleUpdate(ctx, text(7, "/start"))
	if got := lastTo(fc, 7); !strings.Contains(got, "expired") {
		t.Fatalf("expected expiry notice, got %q", got)
	}
	if a.sessions.Active(7) {
		t.Fatalf("expired user must not get a session")
	}
}

func TestUser_EmptyConfirmKeepsSession(t *testing.T) {
	a, fc := newTestApp(t)
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }

	a.subs.Activate(ctx, 7, "Test", model.ExpiryPolicy{Permanent: true}, clock)
	a.handleUpdate(ctx, text(7, "/start"))
	a.handleUpdate(ctx, text(7, "✅ Confirm"))
	if got := lastTo(fc, 7); !strings.Contains(got, "at least 1 asset") {
		t.Fatalf("expected corrective text, got %q", got)
	}

	// The session survives; selecting and confirming now succeeds without a
	// restart, and the aborted attempt did not start a cooldown.
	a.handleUpdate(ctx, text(7, "NZD/JPY"))
	a.handleUpdate(ctx, text(7, "✅ Confirm"))
	if got := lastTo(fc, 7); !strings.Contains(got, "NZD/JPY") {
		t.Fatalf("expected signal reply, got %q", got)
	}
}

func TestUser_NoSessionPrompt(t *testing.T) {
	a, fc := newTestApp(t)
	ctx := context.Background()

	a.handleUpdate(ctx, text(7, "hello"))
	if got := lastTo(fc, 7); !strings.Contains(got, "Start Again") {
		t.Fatalf("expected restart prompt, got %q", got)
	}
}

func TestCallback_IgnoresNonAdmin(t *testing.T) {
	a, fc := newTestApp(t)
	ctx := context.Background()

	a.handleUpdate(ctx, callback(7, "duration_7_perm"))
	if len(fc.answered) != 1 {
		t.Fatalf("callback must still be acknowledged")
	}
	if _, err := a.subs.Lookup(ctx, 7); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("non-admin callback must not activate anyone")
	}
}

func TestCallback_SelfContainedAfterStateReset(t *testing.T) {
	a, fc := newTestApp(t)
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }

	a.handleUpdate(ctx, text(adminID, "🔄 Activate"))
	a.handleUpdate(ctx, text(adminID, "7"))
	// The admin starts an unrelated command before pressing a duration
	// button; the callback payload alone still carries everything needed.
	a.handleUpdate(ctx, text(adminID, "📢 Broadcast"))
	a.handleUpdate(ctx, text(adminID, "hello everyone"))

	a.handleUpdate(ctx, callback(adminID, "duration_7_perm"))
	sub, err := a.subs.Lookup(ctx, 7)
	if err != nil || sub.Status != model.StatusActive || !sub.Permanent {
		t.Fatalf("expected permanent activation, got %+v %v", sub, err)
	}
	if got := lastTo(fc, 7); !strings.Contains(got, "active") {
		t.Fatalf("target not notified: %q", got)
	}
}
