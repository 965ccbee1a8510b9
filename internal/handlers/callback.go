package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"vagonetka-bot/internal/queue"
)

// Callback data prefixes for the inline cancel affordances. The payload
// after the colon is the origin message id or album id embedded when the
// acknowledgement was sent.
const (
	callbackCancelPost  = "unqueue"
	callbackCancelAlbum = "unalbum"
)

// HandleCallbackQuery processes an inline cancel action. Returns true if the
// callback was recognized by this handler.
func (h *MessageHandler) HandleCallbackQuery(ctx context.Context, query telego.CallbackQuery) (bool, error) {
	parts := strings.SplitN(query.Data, ":", 2)
	if len(parts) != 2 {
		return false, nil
	}

	var (
		entry   *queue.PostEntry
		removed bool
	)
	switch parts[0] {
	case callbackCancelPost:
		messageID, err := strconv.Atoi(parts[1])
		if err != nil {
			h.answerCallback(ctx, query.ID, h.msg("MsgErrorGeneral", nil))
			return true, fmt.Errorf("invalid cancel payload %q: %w", query.Data, err)
		}
		entry, removed = h.queue.RemoveByOriginMessageID(messageID)
	case callbackCancelAlbum:
		entry, removed = h.queue.RemoveByAlbumID(parts[1])
	default:
		// Unknown action, but the query still has to be answered or the
		// client keeps its loading spinner.
		h.answerCallback(ctx, query.ID, h.msg("MsgCallbackNotHandled", nil))
		return false, nil
	}

	if !removed {
		log.Printf("[CANCEL] Entry for %q not found, already dispatched or cancelled", query.Data)
		h.answerCallback(ctx, query.ID, h.msg("MsgCancelNotFound", nil))
		return true, nil
	}

	log.Printf("[CANCEL] Removed entry for %q from the queue", query.Data)
	h.deleteOrigin(ctx, entry.OriginChatID, entry.OriginMessageIDs()...)
	h.answerCallback(ctx, query.ID, h.msg("MsgCancelled", nil))

	// Rewrite the acknowledgement so its cancel button disappears.
	if msg, ok := query.Message.(*telego.Message); ok && msg != nil {
		_, err := h.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
			ChatID:    tu.ID(msg.Chat.ID),
			MessageID: msg.MessageID,
			Text:      h.msg("MsgCancelled", nil),
		})
		if err != nil {
			log.Printf("[CANCEL] Failed to edit acknowledgement message %d: %v", msg.MessageID, err)
		}
	}
	return true, nil
}

func (h *MessageHandler) answerCallback(ctx context.Context, queryID, text string) {
	err := h.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
	})
	if err != nil {
		log.Printf("[CANCEL] Failed to answer callback query %s: %v", queryID, err)
	}
}
