package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"vagonetka-bot/internal/media"
	"vagonetka-bot/internal/poster"
	"vagonetka-bot/internal/queue"
)

// HandleMessage processes one new administrator message: it settles, extracts
// media, deduplicates, detects the scheduled-post grammar, and either buffers
// the message into its album or enqueues it directly.
func (h *MessageHandler) HandleMessage(ctx context.Context, message telego.Message) error {
	// Settle delay: give Telegram time to deliver the rest of a burst before
	// classifying. This is a cooperative suspension; the queue and album
	// buffers may change while we wait, so everything below re-reads shared
	// state instead of trusting anything captured before the delay.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(h.settleDelay):
	}

	caption := message.Caption
	if caption == "" {
		caption = message.Text
	}

	items := media.Extract(message)
	isAlbum := message.MediaGroupID != ""

	if !isAlbum {
		if len(items) == 0 {
			items = media.ExtractPayload(message)
		}
		if len(items) == 0 {
			log.Printf("[MSG %d] No recognized content", message.MessageID)
			h.reply(ctx, h.msg("MsgNoContent", nil))
			return nil
		}

		if h.queue.IsDuplicateSingle(items[0], h.dailyTag) {
			log.Printf("[MSG %d] Duplicate of a queued entry, rejecting", message.MessageID)
			h.reply(ctx, h.msg("MsgDuplicateMessage", nil))
			h.deleteOrigin(ctx, message.Chat.ID, message.MessageID)
			return nil
		}
	}

	if at, stripped, ok := poster.ParseSchedule(caption, h.schedule.Location()); ok {
		return h.handleScheduled(ctx, message, items, at, stripped)
	}

	if isAlbum {
		h.aggregator.Add(ctx, message, items, h.resolveAlbum)
		return nil
	}

	h.queue.Enqueue(&queue.PostEntry{
		OriginChatID: message.Chat.ID,
		Items:        items,
	})

	keyboard := tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton(h.msg("BtnCancelPost", nil)).
			WithCallbackData(fmt.Sprintf("unqueue:%d", message.MessageID)),
	))
	h.replyWithKeyboard(ctx, h.msg("MsgQueuedMessage", nil), keyboard)
	return nil
}

// handleScheduled arms a one-shot delayed delivery. Album items are buffered
// first so the delivery can pick up the whole group at fire time.
func (h *MessageHandler) handleScheduled(ctx context.Context, message telego.Message, items []queue.MediaItem, at time.Time, stripped string) error {
	if message.MediaGroupID != "" && len(items) > 0 {
		h.aggregator.Buffer(message.MediaGroupID, message.Chat.ID, items)
	}

	if err := h.schedule.Schedule(message, items, at, stripped); err != nil {
		if errors.Is(err, poster.ErrPastDate) {
			h.reply(ctx, h.msg("MsgSchedulePastDate", nil))
			return nil
		}
		return err
	}

	h.reply(ctx, h.msg("MsgScheduledAt", map[string]interface{}{
		"Time": at.Format("02-01-2006 15:04"),
	}))
	return nil
}

// resolveAlbum is invoked by the aggregator once an album is complete. It
// runs duplicate detection against the queue as it is now (the buffer may
// have outlived several other events) and either enqueues or discards.
func (h *MessageHandler) resolveAlbum(ctx context.Context, albumID string, originChatID int64, items []queue.MediaItem) {
	if len(items) == 0 {
		return
	}

	// An entry for this album may already be queued (the buffer can resolve
	// in several waves); merge instead of enqueueing a second entry under the
	// same id.
	if h.queue.AppendToAlbum(albumID, items) {
		log.Printf("[ALBUM %s] Merged %d item(s) into the queued entry", albumID, len(items))
		h.reply(ctx, h.msg("MsgQueuedAlbum", nil))
		return
	}

	fileIDs := make([]string, 0, len(items))
	originIDs := make([]int, 0, len(items))
	for _, item := range items {
		fileIDs = append(fileIDs, item.FileID)
		originIDs = append(originIDs, item.OriginMessageID)
	}

	if h.queue.IsDuplicateAlbum(fileIDs) {
		log.Printf("[ALBUM %s] Duplicate of a queued entry, discarding %d message(s)", albumID, len(items))
		h.deleteOrigin(ctx, originChatID, originIDs...)
		h.reply(ctx, h.msg("MsgDuplicateAlbum", nil))
		return
	}

	h.queue.Enqueue(&queue.PostEntry{
		OriginChatID: originChatID,
		Items:        items,
		AlbumID:      albumID,
	})

	keyboard := tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton(h.msg("BtnCancelAlbum", nil)).
			WithCallbackData("unalbum:" + albumID),
	))
	h.replyWithKeyboard(ctx, h.msg("MsgQueuedAlbum", nil), keyboard)
}
