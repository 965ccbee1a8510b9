// Package handlers turns the inbound administrator event stream (messages,
// edits, callback actions) into queue and aggregator mutations.
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"vagonetka-bot/internal/adminlog"
	"vagonetka-bot/internal/albums"
	"vagonetka-bot/internal/auth"
	"vagonetka-bot/internal/locales"
	"vagonetka-bot/internal/poster"
	"vagonetka-bot/internal/queue"
	"vagonetka-bot/pkg/telegoapi"
)

// MessageHandler holds the shared state every handler mutates: the post
// queue, the album aggregator and the admin acknowledgement log. All
// mutations are triggered by discrete inbound events.
type MessageHandler struct {
	bot        telegoapi.BotAPI
	queue      *queue.Queue
	aggregator *albums.Aggregator
	schedule   *poster.ScheduleService
	adminLog   *adminlog.Log
	gate       *auth.Gate

	settleDelay time.Duration
	dailyTag    string
}

// Deps holds the dependencies required by the MessageHandler.
type Deps struct {
	Bot         telegoapi.BotAPI
	Queue       *queue.Queue
	Aggregator  *albums.Aggregator
	Schedule    *poster.ScheduleService
	AdminLog    *adminlog.Log
	Gate        *auth.Gate
	SettleDelay time.Duration
	DailyTag    string
}

// NewMessageHandler creates a handler from its dependencies.
func NewMessageHandler(deps Deps) *MessageHandler {
	return &MessageHandler{
		bot:         deps.Bot,
		queue:       deps.Queue,
		aggregator:  deps.Aggregator,
		schedule:    deps.Schedule,
		adminLog:    deps.AdminLog,
		gate:        deps.Gate,
		settleDelay: deps.SettleDelay,
		dailyTag:    deps.DailyTag,
	}
}

// Gate returns the admin gate, used by the update loop to filter events.
func (h *MessageHandler) Gate() *auth.Gate {
	return h.gate
}

// msg looks up a localized reply text in the default language.
func (h *MessageHandler) msg(msgID string, data map[string]interface{}) string {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	return locales.GetMessage(localizer, msgID, data, nil)
}

// reply sends an acknowledgement to the administrator chat and records it
// for the daily purge.
func (h *MessageHandler) reply(ctx context.Context, text string) {
	msg, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(h.gate.AdminID()), text))
	if err != nil {
		log.Printf("[REPLY] Failed to send acknowledgement: %v", err)
		return
	}
	h.adminLog.Record(msg.MessageID)
}

// replyWithKeyboard is reply with an inline cancel affordance attached.
func (h *MessageHandler) replyWithKeyboard(ctx context.Context, text string, keyboard *telego.InlineKeyboardMarkup) {
	msg, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(h.gate.AdminID()), text).WithReplyMarkup(keyboard))
	if err != nil {
		log.Printf("[REPLY] Failed to send acknowledgement: %v", err)
		return
	}
	h.adminLog.Record(msg.MessageID)
}

// deleteOrigin removes staged administrator messages, best-effort.
func (h *MessageHandler) deleteOrigin(ctx context.Context, chatID int64, messageIDs ...int) {
	for _, id := range messageIDs {
		err := h.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
			ChatID:    tu.ID(chatID),
			MessageID: id,
		})
		if err != nil {
			log.Printf("[DELETE] Failed to delete origin message %d: %v", id, err)
		}
	}
}
