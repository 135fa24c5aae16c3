// Package handlers implements the bot's command set. Every command is
// routed through Handler, which owns references to the scheduler and the
// fire journal.
package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kingwingfly/cradle-system/internal/adapter/journal"
	"github.com/kingwingfly/cradle-system/internal/adapter/scheduler"
)

// Handler routes commands to the scheduler and journal.
type Handler struct {
	sched    *scheduler.Scheduler
	store    journal.Store
	recorder *journal.Recorder
	log      *slog.Logger
}

// New creates a Handler. recorder may be nil when journaling is disabled.
func New(sched *scheduler.Scheduler, store journal.Store, recorder *journal.Recorder, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		store = journal.NoopStore{}
	}
	return &Handler{sched: sched, store: store, recorder: recorder, log: log}
}

// Handle routes updates to command handlers.
func (h *Handler) Handle(ctx context.Context, b *bot.Bot, upd *models.Update) {
	msg := upd.Message
	if msg == nil || !strings.HasPrefix(msg.Text, "/") {
		return
	}

	parts := strings.SplitN(msg.Text, " ", 2)
	cmd := strings.TrimPrefix(parts[0], "/")
	// Strip the @botname suffix used in group chats.
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "start":
		h.start(ctx, b, msg)
	case "ping":
		h.ping(ctx, b, msg)
	case "status":
		h.status(ctx, b, msg)
	case "reset":
		h.reset(ctx, b, msg)
	case "fire":
		h.fire(ctx, b, msg)
	case "stop":
		h.stop(ctx, b, msg)
	case "remind":
		h.remind(ctx, b, msg, args)
	case "log":
		h.recent(ctx, b, msg)
	}
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, msg *models.Message, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   text,
	})
	if err != nil {
		h.log.Warn("failed to send reply", "chat", msg.Chat.ID, "error", err)
	}
}

func (h *Handler) start(ctx context.Context, b *bot.Bot, msg *models.Message) {
	h.reply(ctx, b, msg,
		"Deadline scheduler bot.\n"+
			"/status current state\n"+
			"/remind <seconds> <text> set a reminder\n"+
			"/reset restart the countdown\n"+
			"/fire fire all triggers now\n"+
			"/log recent fires\n"+
			"/stop shut the scheduler down")
}

func (h *Handler) ping(ctx context.Context, b *bot.Bot, msg *models.Message) {
	h.reply(ctx, b, msg, "pong")
}
