// Package poster publishes staged content into the channel: the periodic
// drain of the post queue, the one-shot delivery of scheduled posts, and the
// cron wiring that triggers both.
package poster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"vagonetka-bot/internal/adminlog"
	"vagonetka-bot/internal/database"
	"vagonetka-bot/internal/database/models"
	"vagonetka-bot/internal/locales"
	"vagonetka-bot/internal/queue"
	"vagonetka-bot/pkg/telegoapi"
)

// ErrUnsupportedKind is raised when a post kind outside the recognized set
// reaches the dispatcher.
var ErrUnsupportedKind = errors.New("unsupported media kind")

// Dispatcher consumes entries from the post queue and publishes them.
type Dispatcher struct {
	bot       telegoapi.BotAPI
	queue     *queue.Queue
	adminLog  *adminlog.Log
	postLog   database.PostLogger
	channelID int64
	adminID   int64
}

// NewDispatcher creates a dispatcher publishing to channelID and reporting
// outcomes to the administrator chat.
func NewDispatcher(bot telegoapi.BotAPI, q *queue.Queue, adminLog *adminlog.Log, postLog database.PostLogger, channelID, adminID int64) *Dispatcher {
	return &Dispatcher{
		bot:       bot,
		queue:     q,
		adminLog:  adminLog,
		postLog:   postLog,
		channelID: channelID,
		adminID:   adminID,
	}
}

// DrainOne dequeues at most one entry and publishes it. Dequeuing a single
// entry per invocation deliberately throttles the publish rate and leaves
// the administrator time to cancel or edit between cycles.
//
// A failed send is reported and the entry stays consumed: re-queuing a
// permanently unsendable item would loop forever, so delivery is at-most-once.
func (d *Dispatcher) DrainOne(ctx context.Context) {
	entry := d.queue.DequeueHead()
	if entry == nil {
		log.Println("[DRAIN] Queue is empty, nothing to send")
		return
	}

	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	if err := d.sendEntry(ctx, entry); err != nil {
		log.Printf("[DRAIN] Failed to send entry: %v", err)
		sentry.CaptureException(fmt.Errorf("drain: %w", err))
		d.Report(ctx, locales.GetMessage(localizer, "MsgDrainError", map[string]interface{}{"Error": err.Error()}, nil))
		return
	}

	// The send went through; origin cleanup failures are logged but never
	// roll it back. A post may legitimately end up published-and-not-cleaned-up.
	d.deleteOrigins(ctx, entry)
	d.logPublished(entry, false)

	d.Report(ctx, locales.GetMessage(localizer, "MsgDrainReport", map[string]interface{}{"Remaining": d.queue.Len()}, nil))
}

func (d *Dispatcher) sendEntry(ctx context.Context, entry *queue.PostEntry) error {
	if len(entry.Items) == 0 {
		return errors.New("entry has no items")
	}
	if len(entry.Items) > 1 {
		media, err := BuildInputMedia(entry.Items)
		if err != nil {
			return err
		}
		log.Printf("[DRAIN] Sending media group (%d items)", len(media))
		_, err = d.bot.SendMediaGroup(ctx, &telego.SendMediaGroupParams{
			ChatID: tu.ID(d.channelID),
			Media:  media,
		})
		return err
	}

	log.Printf("[DRAIN] Sending single %s message %d", entry.Items[0].Kind, entry.Items[0].OriginMessageID)
	return d.sendSingle(ctx, entry.Items[0], entry.OriginChatID)
}

// sendSingle publishes one item through the kind-appropriate send operation.
// When caption entities or flags must be preserved verbatim, it falls back to
// copying the original message, which keeps them intact on Telegram's side.
func (d *Dispatcher) sendSingle(ctx context.Context, item queue.MediaItem, originChatID int64) error {
	channel := tu.ID(d.channelID)

	needsVerbatimCopy := len(item.CaptionEntities) > 0 || item.ShowCaptionAboveMedia || item.HasSpoiler
	if needsVerbatimCopy && item.Kind != queue.KindMessage {
		_, err := d.bot.CopyMessage(ctx, &telego.CopyMessageParams{
			ChatID:                channel,
			FromChatID:            tu.ID(originChatID),
			MessageID:             item.OriginMessageID,
			Caption:               item.Caption,
			CaptionEntities:       item.CaptionEntities,
			ShowCaptionAboveMedia: item.ShowCaptionAboveMedia,
		})
		return err
	}

	var err error
	switch item.Kind {
	case queue.KindMessage:
		_, err = d.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID:   channel,
			Text:     item.Caption,
			Entities: item.CaptionEntities,
		})
	case queue.KindPhoto:
		_, err = d.bot.SendPhoto(ctx, &telego.SendPhotoParams{
			ChatID:  channel,
			Photo:   telego.InputFile{FileID: item.FileID},
			Caption: item.Caption,
		})
	case queue.KindVideo:
		_, err = d.bot.SendVideo(ctx, &telego.SendVideoParams{
			ChatID:  channel,
			Video:   telego.InputFile{FileID: item.FileID},
			Caption: item.Caption,
		})
	case queue.KindDocument:
		_, err = d.bot.SendDocument(ctx, &telego.SendDocumentParams{
			ChatID:   channel,
			Document: telego.InputFile{FileID: item.FileID},
			Caption:  item.Caption,
		})
	case queue.KindAudio:
		_, err = d.bot.SendAudio(ctx, &telego.SendAudioParams{
			ChatID:  channel,
			Audio:   telego.InputFile{FileID: item.FileID},
			Caption: item.Caption,
		})
	case queue.KindAnimation:
		_, err = d.bot.SendAnimation(ctx, &telego.SendAnimationParams{
			ChatID:    channel,
			Animation: telego.InputFile{FileID: item.FileID},
			Caption:   item.Caption,
		})
	case queue.KindSticker:
		_, err = d.bot.SendSticker(ctx, &telego.SendStickerParams{
			ChatID:  channel,
			Sticker: telego.InputFile{FileID: item.FileID},
		})
	case queue.KindVoice:
		_, err = d.bot.SendVoice(ctx, &telego.SendVoiceParams{
			ChatID:  channel,
			Voice:   telego.InputFile{FileID: item.FileID},
			Caption: item.Caption,
		})
	case queue.KindVideoNote:
		_, err = d.bot.SendVideoNote(ctx, &telego.SendVideoNoteParams{
			ChatID:    channel,
			VideoNote: telego.InputFile{FileID: item.FileID},
		})
	case queue.KindPoll:
		if item.Poll == nil {
			return fmt.Errorf("%w: poll item without payload", ErrUnsupportedKind)
		}
		options := make([]telego.InputPollOption, 0, len(item.Poll.Options))
		for _, opt := range item.Poll.Options {
			options = append(options, telego.InputPollOption{Text: opt.Text})
		}
		_, err = d.bot.SendPoll(ctx, &telego.SendPollParams{
			ChatID:                channel,
			Question:              item.Poll.Question,
			Options:               options,
			Type:                  item.Poll.Type,
			AllowsMultipleAnswers: item.Poll.AllowsMultipleAnswers,
		})
	case queue.KindLocation:
		if item.Location == nil {
			return fmt.Errorf("%w: location item without payload", ErrUnsupportedKind)
		}
		_, err = d.bot.SendLocation(ctx, &telego.SendLocationParams{
			ChatID:    channel,
			Latitude:  item.Location.Latitude,
			Longitude: item.Location.Longitude,
		})
	case queue.KindContact:
		if item.Contact == nil {
			return fmt.Errorf("%w: contact item without payload", ErrUnsupportedKind)
		}
		_, err = d.bot.SendContact(ctx, &telego.SendContactParams{
			ChatID:      channel,
			PhoneNumber: item.Contact.PhoneNumber,
			FirstName:   item.Contact.FirstName,
			LastName:    item.Contact.LastName,
		})
	case queue.KindVenue:
		if item.Venue == nil {
			return fmt.Errorf("%w: venue item without payload", ErrUnsupportedKind)
		}
		_, err = d.bot.SendVenue(ctx, &telego.SendVenueParams{
			ChatID:    channel,
			Latitude:  item.Venue.Location.Latitude,
			Longitude: item.Venue.Location.Longitude,
			Title:     item.Venue.Title,
			Address:   item.Venue.Address,
		})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, item.Kind)
	}
	return err
}

// BuildInputMedia converts album items to telego input media. Telegram
// accepts caption metadata only on the first element of a media group, so it
// is stripped from every other item here, at dispatch time.
func BuildInputMedia(items []queue.MediaItem) ([]telego.InputMedia, error) {
	media := make([]telego.InputMedia, 0, len(items))
	for i, item := range items {
		prepared := item
		if i > 0 {
			prepared.Caption = ""
			prepared.CaptionEntities = nil
			prepared.ShowCaptionAboveMedia = false
		}

		file := telego.InputFile{FileID: prepared.FileID}
		switch prepared.Kind {
		case queue.KindPhoto:
			m := tu.MediaPhoto(file)
			m.Caption = prepared.Caption
			m.CaptionEntities = prepared.CaptionEntities
			m.ShowCaptionAboveMedia = prepared.ShowCaptionAboveMedia
			m.HasSpoiler = prepared.HasSpoiler
			media = append(media, m)
		case queue.KindVideo:
			m := tu.MediaVideo(file)
			m.Caption = prepared.Caption
			m.CaptionEntities = prepared.CaptionEntities
			m.ShowCaptionAboveMedia = prepared.ShowCaptionAboveMedia
			m.HasSpoiler = prepared.HasSpoiler
			media = append(media, m)
		case queue.KindDocument:
			m := tu.MediaDocument(file)
			m.Caption = prepared.Caption
			m.CaptionEntities = prepared.CaptionEntities
			media = append(media, m)
		case queue.KindAudio:
			m := tu.MediaAudio(file)
			m.Caption = prepared.Caption
			m.CaptionEntities = prepared.CaptionEntities
			media = append(media, m)
		default:
			return nil, fmt.Errorf("%w in media group: %s", ErrUnsupportedKind, prepared.Kind)
		}
	}
	return media, nil
}

func (d *Dispatcher) deleteOrigins(ctx context.Context, entry *queue.PostEntry) {
	for _, id := range entry.OriginMessageIDs() {
		err := d.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
			ChatID:    tu.ID(entry.OriginChatID),
			MessageID: id,
		})
		if err != nil {
			log.Printf("[DELETE] Failed to delete origin message %d: %v", id, err)
			continue
		}
		log.Printf("[DELETE] Deleted origin message %d", id)
	}
}

func (d *Dispatcher) logPublished(entry *queue.PostEntry, scheduled bool) {
	record := models.PostLog{
		OriginChatID: entry.OriginChatID,
		Caption:      entry.Items[0].Caption,
		MessageType:  string(entry.Items[0].Kind),
		ItemCount:    len(entry.Items),
		PublishedAt:  time.Now(),
		Scheduled:    scheduled,
		ChannelID:    d.channelID,
	}
	if entry.AlbumID != "" {
		record.MessageType = "media_group"
		record.AlbumID = entry.AlbumID
	} else {
		record.OriginMessageID = entry.Items[0].OriginMessageID
	}
	if err := d.postLog.LogPublishedPost(record); err != nil {
		log.Printf("[DRAIN] Failed to record published post: %v", err)
	}
}

// Report sends an operational acknowledgement to the administrator and
// records it for the daily purge.
func (d *Dispatcher) Report(ctx context.Context, text string) {
	reply, err := d.bot.SendMessage(ctx, tu.Message(tu.ID(d.adminID), text))
	if err != nil {
		log.Printf("[REPORT] Failed to notify administrator: %v", err)
		return
	}
	d.adminLog.Record(reply.MessageID)
}
