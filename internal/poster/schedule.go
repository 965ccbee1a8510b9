package poster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"vagonetka-bot/internal/albums"
	"vagonetka-bot/internal/locales"
	"vagonetka-bot/internal/queue"
)

// ErrPastDate is returned when a scheduled timestamp is not strictly in the
// future.
var ErrPastDate = errors.New("scheduled date has already passed")

// Scheduled-post text grammar: a literal timestamp embedded anywhere in the
// caption or text. Day-first is the primary form, ISO-like date is accepted
// as well.
var scheduleGrammar = []struct {
	pattern *regexp.Regexp
	layout  string
}{
	{regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4}) (\d{2}):(\d{2})`), "02-01-2006 15:04"},
	{regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2})`), "2006-01-02 15:04"},
}

// ParseSchedule looks for an embedded schedule timestamp in text, interpreted
// in loc. On a match it returns the target instant and the text with the
// matched substring stripped.
func ParseSchedule(text string, loc *time.Location) (at time.Time, stripped string, ok bool) {
	for _, g := range scheduleGrammar {
		match := g.pattern.FindString(text)
		if match == "" {
			continue
		}
		parsed, err := time.ParseInLocation(g.layout, match, loc)
		if err != nil {
			// Digits matched the shape but not a real date (e.g. month 13).
			continue
		}
		stripped = strings.TrimSpace(g.pattern.ReplaceAllString(text, ""))
		return parsed, stripped, true
	}
	return time.Time{}, "", false
}

// ScheduleService arms one-shot timers for delayed posts. Deliveries bypass
// the post queue and duplicate detection entirely; once armed, a scheduled
// post cannot be cancelled.
type ScheduleService struct {
	dispatcher *Dispatcher
	aggregator *albums.Aggregator
	loc        *time.Location
}

// NewScheduleService creates a one-shot delivery service.
func NewScheduleService(dispatcher *Dispatcher, aggregator *albums.Aggregator, loc *time.Location) *ScheduleService {
	return &ScheduleService{dispatcher: dispatcher, aggregator: aggregator, loc: loc}
}

// Location returns the fixed zone the service parses timestamps in.
func (s *ScheduleService) Location() *time.Location {
	return s.loc
}

// Schedule arms delivery of the message at the given instant. The instant
// must be strictly in the future. For album messages the service claims the
// in-flight buffer away from quiescence resolution and sends whatever has
// accumulated at fire time. Non-album items are staged in the queue with
// ScheduledAt set: the periodic drain skips them, but they stay visible to
// the status endpoint, edits and duplicate detection until the timer fires.
func (s *ScheduleService) Schedule(message telego.Message, items []queue.MediaItem, at time.Time, stripped string) error {
	if !at.After(time.Now()) {
		return ErrPastDate
	}

	if message.MediaGroupID != "" {
		s.aggregator.Claim(message.MediaGroupID)
	} else if len(items) > 0 {
		staged := append([]queue.MediaItem(nil), items...)
		// Entities are dropped with the timestamp: their offsets no longer
		// match the stripped caption.
		staged[0].Caption = stripped
		staged[0].CaptionEntities = nil
		scheduledAt := at
		s.dispatcher.queue.Enqueue(&queue.PostEntry{
			OriginChatID: message.Chat.ID,
			Items:        staged,
			ScheduledAt:  &scheduledAt,
		})
	}

	log.Printf("[SCHEDULE] Armed one-shot delivery of message %d at %s", message.MessageID, at.Format(time.RFC3339))
	time.AfterFunc(time.Until(at), func() {
		s.deliver(context.Background(), message, stripped)
	})
	return nil
}

func (s *ScheduleService) deliver(ctx context.Context, message telego.Message, stripped string) {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	if err := s.send(ctx, message, stripped); err != nil {
		log.Printf("[SCHEDULE] Failed to deliver message %d: %v", message.MessageID, err)
		sentry.CaptureException(fmt.Errorf("scheduled delivery: %w", err))
		s.dispatcher.Report(ctx, locales.GetMessage(localizer, "MsgScheduleSendError", map[string]interface{}{"Error": err.Error()}, nil))
		return
	}

	s.dispatcher.Report(ctx, locales.GetMessage(localizer, "MsgScheduledSent", nil, nil))
}

func (s *ScheduleService) send(ctx context.Context, message telego.Message, stripped string) error {
	d := s.dispatcher

	if message.MediaGroupID != "" {
		items, originChatID, ok := s.aggregator.Take(message.MediaGroupID)
		if !ok || len(items) == 0 {
			return fmt.Errorf("album %s is no longer buffered", message.MediaGroupID)
		}
		// The closing caption carried the timestamp; publish it stripped.
		items[0].Caption = stripped
		items[0].CaptionEntities = nil

		media, err := BuildInputMedia(items)
		if err != nil {
			return err
		}
		if _, err := d.bot.SendMediaGroup(ctx, &telego.SendMediaGroupParams{
			ChatID: tu.ID(d.channelID),
			Media:  media,
		}); err != nil {
			return err
		}

		entry := &queue.PostEntry{OriginChatID: originChatID, Items: items, AlbumID: message.MediaGroupID}
		d.deleteOrigins(ctx, entry)
		d.logPublished(entry, true)
		return nil
	}

	// Release the staged queue entry; the one-shot timer owns delivery from
	// here, whether or not the sends below succeed.
	d.queue.RemoveByOriginMessageID(message.MessageID)

	switch {
	case message.Caption != "":
		// Entities are dropped: their offsets no longer match the stripped caption.
		if _, err := d.bot.CopyMessage(ctx, &telego.CopyMessageParams{
			ChatID:     tu.ID(d.channelID),
			FromChatID: tu.ID(message.Chat.ID),
			MessageID:  message.MessageID,
			Caption:    stripped,
		}); err != nil {
			return err
		}
	case message.Text != "":
		if _, err := d.bot.SendMessage(ctx, tu.Message(tu.ID(d.channelID), stripped)); err != nil {
			return err
		}
	default:
		if _, err := d.bot.CopyMessage(ctx, &telego.CopyMessageParams{
			ChatID:     tu.ID(d.channelID),
			FromChatID: tu.ID(message.Chat.ID),
			MessageID:  message.MessageID,
		}); err != nil {
			return err
		}
	}

	item := queue.MediaItem{Kind: queue.KindMessage, OriginMessageID: message.MessageID, Caption: stripped}
	if extracted := firstKind(message); extracted != "" {
		item.Kind = extracted
	}
	entry := &queue.PostEntry{OriginChatID: message.Chat.ID, Items: []queue.MediaItem{item}}
	d.deleteOrigins(ctx, entry)
	d.logPublished(entry, true)
	return nil
}

// firstKind reports the media kind of the message for audit logging.
func firstKind(message telego.Message) queue.Kind {
	switch {
	case len(message.Photo) > 0:
		return queue.KindPhoto
	case message.Video != nil:
		return queue.KindVideo
	case message.Document != nil:
		return queue.KindDocument
	case message.Audio != nil:
		return queue.KindAudio
	case message.Animation != nil:
		return queue.KindAnimation
	default:
		return ""
	}
}
