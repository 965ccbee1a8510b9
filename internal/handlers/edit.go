package handlers

import (
	"context"
	"log"

	"github.com/mymmrac/telego"

	"vagonetka-bot/internal/media"
	"vagonetka-bot/internal/queue"
)

// HandleEditedMessage applies an administrator edit to the matching queued
// entry. The mutation runs inside the queue lock so the cron drain never
// reads a half-applied edit. Edits to messages no longer queued (already
// dispatched or never enqueued) are logged and ignored: races between editing
// and draining are benign and not worth alarming the administrator over.
func (h *MessageHandler) HandleEditedMessage(ctx context.Context, message telego.Message) error {
	caption := message.Caption
	entities := message.CaptionEntities
	if caption == "" {
		caption = message.Text
		entities = message.Entities
	}
	extracted := media.Extract(message)

	updated := h.queue.UpdateByOriginMessageID(message.MessageID, func(item *queue.MediaItem) {
		item.Caption = caption
		item.CaptionEntities = entities
		item.ShowCaptionAboveMedia = message.ShowCaptionAboveMedia
		item.HasSpoiler = message.HasMediaSpoiler
		if len(extracted) > 0 {
			item.Kind = extracted[0].Kind
			item.FileID = extracted[0].FileID
		}
	})
	if !updated {
		log.Printf("[EDIT] Message %d is not in the queue, ignoring", message.MessageID)
		return nil
	}

	log.Printf("[EDIT] Message %d updated in the queue", message.MessageID)
	h.reply(ctx, h.msg("MsgQueueUpdated", nil))
	return nil
}
