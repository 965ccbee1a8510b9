// Package albums buffers media group messages until the group is complete.
// Telegram delivers an album as a burst of independent updates sharing one
// media_group_id; the aggregator collects them and resolves the album either
// when a closing caption arrives or after a quiescence window with no new
// messages.
package albums

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"vagonetka-bot/internal/queue"
)

const (
	// DefaultQuiescenceDelay is the default window of inactivity after which
	// an album is considered complete.
	DefaultQuiescenceDelay = 2 * time.Second
	// DefaultMaxAlbumSize limits the number of items stored per album.
	DefaultMaxAlbumSize = 10
)

// ResolveFunc is invoked once per resolved album with the accumulated items,
// in arrival order. The caption captured for the album (if any) has already
// been placed on the first item.
type ResolveFunc func(ctx context.Context, albumID string, originChatID int64, items []queue.MediaItem)

type albumState struct {
	mu           sync.Mutex
	items        []queue.MediaItem
	originChatID int64

	// Caption metadata captured from whichever message of the burst carried
	// it; applied to the first item on resolution.
	caption               string
	captionEntities       []telego.MessageEntity
	showCaptionAboveMedia bool

	// At most one live timer per album id. nil after a claim or resolution.
	timer *time.Timer
}

// Aggregator accumulates in-flight albums keyed by media group id.
type Aggregator struct {
	albums  sync.Map // map[string]*albumState
	delay   time.Duration
	maxSize int
}

// NewAggregator creates an aggregator with the given quiescence delay.
func NewAggregator(delay time.Duration) *Aggregator {
	if delay <= 0 {
		delay = DefaultQuiescenceDelay
	}
	return &Aggregator{delay: delay, maxSize: DefaultMaxAlbumSize}
}

// Add buffers the media items extracted from one album message. The first
// message for a new album id creates the buffer and arms the quiescence
// timer; later messages only append. A later message carrying a non-empty
// caption closes the album immediately, cancelling the pending timer. A
// caption on the first message is only captured: closing there would resolve
// a one-item album and leave the rest of the burst to re-create the buffer
// under the same id, so the first message always waits for quiescence.
func (a *Aggregator) Add(ctx context.Context, message telego.Message, items []queue.MediaItem, resolve ResolveFunc) {
	albumID := message.MediaGroupID
	if albumID == "" || len(items) == 0 {
		return
	}

	actual, _ := a.albums.LoadOrStore(albumID, &albumState{
		items:        make([]queue.MediaItem, 0, a.maxSize),
		originChatID: message.Chat.ID,
	})
	state := actual.(*albumState)

	state.mu.Lock()
	wasEmpty := len(state.items) == 0
	added := false
	if len(state.items)+len(items) <= a.maxSize {
		state.items = append(state.items, items...)
		added = true
	} else {
		log.Printf("[ALBUM %s] Size limit (%d) reached, message %d dropped", albumID, a.maxSize, message.MessageID)
	}
	if message.Caption != "" {
		state.caption = message.Caption
		state.captionEntities = message.CaptionEntities
		state.showCaptionAboveMedia = message.ShowCaptionAboveMedia
	}
	closing := added && message.Caption != "" && !wasEmpty
	armTimer := wasEmpty && added
	state.mu.Unlock()

	if closing {
		log.Printf("[ALBUM %s] Closing caption received, resolving immediately", albumID)
		a.fire(context.WithoutCancel(ctx), albumID, resolve)
		return
	}

	if armTimer {
		state.mu.Lock()
		if state.timer == nil {
			log.Printf("[ALBUM %s] First message buffered, resolving in %v", albumID, a.delay)
			state.timer = time.AfterFunc(a.delay, func() {
				a.fire(context.Background(), albumID, resolve)
			})
		}
		state.mu.Unlock()
	}
}

// Buffer appends items to the album without arming a timer or evaluating the
// closing-caption policy. Used by the scheduled-delivery path, which owns the
// album's lifecycle after claiming it.
func (a *Aggregator) Buffer(albumID string, originChatID int64, items []queue.MediaItem) {
	actual, _ := a.albums.LoadOrStore(albumID, &albumState{
		items:        make([]queue.MediaItem, 0, a.maxSize),
		originChatID: originChatID,
	})
	state := actual.(*albumState)

	state.mu.Lock()
	if len(state.items)+len(items) <= a.maxSize {
		state.items = append(state.items, items...)
	}
	state.mu.Unlock()
}

// fire resolves the album if its buffer still exists. A stale timer firing
// after the buffer was resolved or discarded by another path finds nothing
// and performs no further mutation.
func (a *Aggregator) fire(ctx context.Context, albumID string, resolve ResolveFunc) {
	state, items := a.take(albumID)
	if state == nil {
		log.Printf("[ALBUM %s] Timer fired but album was already resolved", albumID)
		return
	}
	if len(items) == 0 {
		return
	}
	resolve(ctx, albumID, state.originChatID, items)
}

// Take removes the album buffer and returns its items with the captured
// caption applied to the first item. Used by the scheduled-delivery path,
// which claims albums away from quiescence resolution.
func (a *Aggregator) Take(albumID string) ([]queue.MediaItem, int64, bool) {
	state, items := a.take(albumID)
	if state == nil {
		return nil, 0, false
	}
	return items, state.originChatID, true
}

// Claim stops the album's quiescence timer while leaving the buffer in place
// and accepting further appends. The caller becomes responsible for taking
// the buffer later.
func (a *Aggregator) Claim(albumID string) {
	actual, ok := a.albums.Load(albumID)
	if !ok {
		return
	}
	state := actual.(*albumState)
	state.mu.Lock()
	if state.timer != nil {
		state.timer.Stop()
		state.timer = nil
	}
	state.mu.Unlock()
}

// Pending returns the number of in-flight album buffers.
func (a *Aggregator) Pending() int {
	count := 0
	a.albums.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// Shutdown stops all active quiescence timers.
func (a *Aggregator) Shutdown() {
	a.albums.Range(func(key, value interface{}) bool {
		state := value.(*albumState)
		state.mu.Lock()
		if state.timer != nil {
			state.timer.Stop()
			state.timer = nil
		}
		state.mu.Unlock()
		return true
	})
}

func (a *Aggregator) take(albumID string) (*albumState, []queue.MediaItem) {
	actual, loaded := a.albums.LoadAndDelete(albumID)
	if !loaded {
		return nil, nil
	}
	state := actual.(*albumState)

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.timer != nil {
		state.timer.Stop()
		state.timer = nil
	}

	items := make([]queue.MediaItem, len(state.items))
	copy(items, state.items)

	// Only the first item may carry caption metadata.
	for i := range items {
		items[i].Caption = ""
		items[i].CaptionEntities = nil
		items[i].ShowCaptionAboveMedia = false
	}
	if len(items) > 0 && state.caption != "" {
		items[0].Caption = state.caption
		items[0].CaptionEntities = state.captionEntities
		items[0].ShowCaptionAboveMedia = state.showCaptionAboveMedia
	}
	return state, items
}
