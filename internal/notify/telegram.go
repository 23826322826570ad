package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/surpluslink/go-surpluslink/internal/models"
)

// TelegramSink forwards lifecycle events to an operations chat. Optional:
// wired only when a bot token is configured, and always fire-and-forget.
type TelegramSink struct {
	api    *tgbotapi.BotAPI
	chatID int64
	done   chan struct{}
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

func NewTelegramSink(cfg TelegramConfig) (*TelegramSink, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("telegram sink authorized", "account", api.Self.UserName)

	return &TelegramSink{
		api:    api,
		chatID: cfg.ChatID,
		done:   make(chan struct{}),
	}, nil
}

// Run drains events from the broadcaster until the channel closes or ctx is
// cancelled. Send failures are logged and dropped; notification delivery is
// never load-bearing.
func (t *TelegramSink) Run(ctx context.Context, events <-chan *models.Event) {
	defer close(t.done)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			msg := tgbotapi.NewMessage(t.chatID, formatEvent(e))
			if _, err := t.api.Send(msg); err != nil {
				slog.Error("telegram send failed", "event", e.Type, "error", err)
			}
		}
	}
}

// Wait blocks until Run has returned.
func (t *TelegramSink) Wait() {
	<-t.done
}

func formatEvent(e *models.Event) string {
	switch e.Type {
	case models.EventDonationPosted:
		return fmt.Sprintf("New donation %q (%s)", e.Title, e.DonationID)
	case models.EventClaimed:
		return fmt.Sprintf("Donation %q claimed by %s", e.Title, e.ActorID)
	case models.EventMissionAssigned:
		return fmt.Sprintf("Volunteer %s took the mission for %q", e.ActorID, e.Title)
	case models.EventMissionCancelled:
		return fmt.Sprintf("Mission for %q aborted, back in the pool", e.Title)
	case models.EventPickupConfirmed:
		return fmt.Sprintf("Pickup confirmed for %q", e.Title)
	case models.EventDeliveryConfirmed:
		return fmt.Sprintf("Delivered: %q", e.Title)
	case models.EventCompleted:
		return fmt.Sprintf("Completed: %q", e.Title)
	case models.EventExpired:
		return fmt.Sprintf("Expired unclaimed: %q (%s)", e.Title, e.DonationID)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.DonationID)
	}
}
