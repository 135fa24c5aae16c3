package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kingwingfly/cradle-system/internal/adapter/scheduler"
)

// maxReminderDelay guards against fat-fingered huge delays.
const maxReminderDelay = 30 * 24 * 60 * 60

var errBadReminder = errors.New("usage: /remind <seconds> <text>")

// parseReminder splits "/remind" arguments into a delay and message text.
func parseReminder(args string) (delay uint64, text string, err error) {
	parts := strings.SplitN(args, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return 0, "", errBadReminder
	}
	delay, err = strconv.ParseUint(parts[0], 10, 64)
	if err != nil || delay == 0 {
		return 0, "", errBadReminder
	}
	if delay > maxReminderDelay {
		return 0, "", fmt.Errorf("delay too large, maximum is %d seconds", uint64(maxReminderDelay))
	}
	return delay, strings.TrimSpace(parts[1]), nil
}

// remind registers a one-shot trigger firing delay ticks from now that sends
// text back to the chat. The threshold is relative to the current elapsed
// count, so a later /reset postpones the reminder.
func (h *Handler) remind(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	delay, text, err := parseReminder(args)
	if err != nil {
		h.reply(ctx, b, msg, err.Error())
		return
	}

	chatID := msg.Chat.ID
	threshold := h.sched.Elapsed() + delay

	action := func() error {
		_, err := b.SendMessage(context.Background(), &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "reminder: " + text,
		})
		if err != nil {
			// A failed delivery must not take the whole scheduler down.
			h.log.Warn("failed to deliver reminder", "chat", chatID, "error", err)
		}
		return nil
	}

	name := fmt.Sprintf("remind:%d", chatID)
	if h.recorder != nil {
		action = h.recorder.Action(name, h.sched.Elapsed, action)
	}

	h.sched.Register(scheduler.Named(name, scheduler.Limited(threshold, 1, action)))
	h.reply(ctx, b, msg, fmt.Sprintf("reminder set for tick %d", threshold))
}
