package server

import (
	"context"

	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// startReply is the static acknowledgement for the start command
const startReply = "Bot is up and running on schedule!"

// Replier answers chat messages
type Replier interface {
	Reply(chatID int64, replyTo int, text string) error
}

// Dispatcher routes bot commands. Exactly one command is supported, /start;
// everything else is ignored.
type Dispatcher struct {
	replier Replier
}

// NewDispatcher creates a command dispatcher
func NewDispatcher(replier Replier) *Dispatcher {
	return &Dispatcher{replier: replier}
}

// HandleUpdate processes a single bot platform update
func (d *Dispatcher) HandleUpdate(_ context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	if !update.Message.IsCommand() || update.Message.Command() != "start" {
		lgr.Printf("[DEBUG] ignoring update from chat %d: %q", update.Message.Chat.ID, update.Message.Text)
		return
	}

	if err := d.replier.Reply(update.Message.Chat.ID, update.Message.MessageID, startReply); err != nil {
		lgr.Printf("[WARN] failed to reply to start command: %v", err)
	}
}
