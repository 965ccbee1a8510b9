package queue

import (
	"time"

	"github.com/mymmrac/telego"
)

// Kind identifies the payload of a MediaItem. Adding a kind requires updating
// the extractor and the dispatcher, both of which switch exhaustively on it.
type Kind string

const (
	KindPhoto     Kind = "photo"
	KindVideo     Kind = "video"
	KindDocument  Kind = "document"
	KindAudio     Kind = "audio"
	KindAnimation Kind = "animation"
	KindSticker   Kind = "sticker"
	KindVoice     Kind = "voice"
	KindVideoNote Kind = "video_note"
	KindMessage   Kind = "message"
	KindPoll      Kind = "poll"
	KindLocation  Kind = "location"
	KindContact   Kind = "contact"
	KindVenue     Kind = "venue"
)

// MediaItem is one media unit within a PostEntry.
//
// FileID is the opaque content reference for file-backed kinds; payload kinds
// (message, poll, location, contact, venue) leave it empty and carry their
// kind-specific field instead.
type MediaItem struct {
	Kind            Kind
	FileID          string
	OriginMessageID int

	// Telegram accepts caption metadata only on the first item of a media
	// group; the dispatcher clears these on every other item before sending.
	Caption               string
	CaptionEntities       []telego.MessageEntity
	ShowCaptionAboveMedia bool
	HasSpoiler            bool

	Poll     *telego.Poll
	Location *telego.Location
	Contact  *telego.Contact
	Venue    *telego.Venue
}

// PostEntry is the unit of work in the queue: one message or one whole album
// staged by the administrator, waiting to be published.
type PostEntry struct {
	OriginChatID int64
	Items        []MediaItem
	// AlbumID is set only for multi-item album entries and is used for later
	// lookup and cancellation.
	AlbumID string
	// ScheduledAt, when set, hands the entry to a dedicated one-shot timer;
	// the periodic drain skips it.
	ScheduledAt *time.Time
}

// OriginMessageIDs returns the identifiers of every staged admin message the
// entry was built from, in item order.
func (e *PostEntry) OriginMessageIDs() []int {
	ids := make([]int, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.OriginMessageID)
	}
	return ids
}
