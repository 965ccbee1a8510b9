// Package media maps raw Telegram messages to typed media items. Extraction
// is pure: a message with no recognized content simply yields nothing, and the
// caller decides whether to also consider payload kinds (text, poll, ...).
package media

import (
	"github.com/mymmrac/telego"

	"vagonetka-bot/internal/queue"
)

// Extract returns the file-backed media item carried by the message, if any.
// Telegram delivers at most one media payload per message, so the result has
// zero or one element. Photos arrive as a list of resolution variants; the
// last (highest-resolution) one is selected deterministically.
func Extract(message telego.Message) []queue.MediaItem {
	var (
		kind   queue.Kind
		fileID string
	)

	switch {
	case len(message.Photo) > 0:
		kind = queue.KindPhoto
		fileID = message.Photo[len(message.Photo)-1].FileID
	case message.Video != nil:
		kind = queue.KindVideo
		fileID = message.Video.FileID
	case message.Document != nil:
		kind = queue.KindDocument
		fileID = message.Document.FileID
	case message.Audio != nil:
		kind = queue.KindAudio
		fileID = message.Audio.FileID
	case message.Animation != nil:
		kind = queue.KindAnimation
		fileID = message.Animation.FileID
	case message.Sticker != nil:
		kind = queue.KindSticker
		fileID = message.Sticker.FileID
	case message.Voice != nil:
		kind = queue.KindVoice
		fileID = message.Voice.FileID
	case message.VideoNote != nil:
		kind = queue.KindVideoNote
		fileID = message.VideoNote.FileID
	default:
		return nil
	}

	return []queue.MediaItem{{
		Kind:                  kind,
		FileID:                fileID,
		OriginMessageID:       message.MessageID,
		Caption:               message.Caption,
		CaptionEntities:       message.CaptionEntities,
		ShowCaptionAboveMedia: message.ShowCaptionAboveMedia,
		HasSpoiler:            message.HasMediaSpoiler,
	}}
}

// ExtractPayload returns the payload-kind item carried by the message (text,
// poll, location, contact or venue), if any. These kinds have no content
// reference; each carries its kind-specific field instead.
func ExtractPayload(message telego.Message) []queue.MediaItem {
	item := queue.MediaItem{
		OriginMessageID: message.MessageID,
	}

	switch {
	case message.Text != "":
		item.Kind = queue.KindMessage
		item.Caption = message.Text
		item.CaptionEntities = message.Entities
	case message.Poll != nil:
		item.Kind = queue.KindPoll
		item.Poll = message.Poll
	case message.Venue != nil:
		// Venue messages also carry a bare location; venue wins.
		item.Kind = queue.KindVenue
		item.Venue = message.Venue
	case message.Location != nil:
		item.Kind = queue.KindLocation
		item.Location = message.Location
	case message.Contact != nil:
		item.Kind = queue.KindContact
		item.Contact = message.Contact
	default:
		return nil
	}

	return []queue.MediaItem{item}
}
