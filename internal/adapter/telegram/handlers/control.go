package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (h *Handler) status(ctx context.Context, b *bot.Bot, msg *models.Message) {
	h.reply(ctx, b, msg, fmt.Sprintf(
		"state: %s\nelapsed: %d\ntriggers: %d",
		h.sched.State(), h.sched.Elapsed(), h.sched.TriggerCount(),
	))
}

func (h *Handler) reset(ctx context.Context, b *bot.Bot, msg *models.Message) {
	h.sched.Reset()
	h.reply(ctx, b, msg, "countdown reset")
}

func (h *Handler) fire(ctx context.Context, b *bot.Bot, msg *models.Message) {
	h.sched.ForceFire()
	h.reply(ctx, b, msg, "force fire sent")
}

func (h *Handler) stop(ctx context.Context, b *bot.Bot, msg *models.Message) {
	h.sched.Stop()
	h.reply(ctx, b, msg, "scheduler stopping")
}

func (h *Handler) recent(ctx context.Context, b *bot.Bot, msg *models.Message) {
	entries, err := h.store.Recent(ctx, 10)
	if err != nil {
		h.log.Warn("failed to read journal", "error", err)
		h.reply(ctx, b, msg, "journal unavailable")
		return
	}
	if len(entries) == 0 {
		h.reply(ctx, b, msg, "no fires recorded")
		return
	}

	var sb strings.Builder
	sb.WriteString("recent fires:\n")
	for _, e := range entries {
		name := e.Trigger
		if name == "" {
			name = "(anonymous)"
		}
		fmt.Fprintf(&sb, "%s tick=%d at %s\n", name, e.Elapsed, e.FiredAt.Format("15:04:05"))
	}
	h.reply(ctx, b, msg, sb.String())
}
