package albums

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vagonetka-bot/internal/queue"
)

type resolveRecorder struct {
	mu    sync.Mutex
	calls []resolvedAlbum
}

type resolvedAlbum struct {
	albumID      string
	originChatID int64
	items        []queue.MediaItem
}

func (r *resolveRecorder) resolve(_ context.Context, albumID string, originChatID int64, items []queue.MediaItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, resolvedAlbum{albumID: albumID, originChatID: originChatID, items: items})
}

func (r *resolveRecorder) snapshot() []resolvedAlbum {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]resolvedAlbum(nil), r.calls...)
}

func albumMessage(messageID int, groupID, fileID, caption string) (telego.Message, []queue.MediaItem) {
	message := telego.Message{
		MessageID:    messageID,
		MediaGroupID: groupID,
		Chat:         telego.Chat{ID: 100},
		Caption:      caption,
	}
	items := []queue.MediaItem{{
		Kind:            queue.KindPhoto,
		FileID:          fileID,
		OriginMessageID: messageID,
		Caption:         caption,
	}}
	return message, items
}

func TestQuiescenceResolvesWholeAlbum(t *testing.T) {
	agg := NewAggregator(50 * time.Millisecond)
	rec := &resolveRecorder{}
	ctx := context.Background()

	for i, fileID := range []string{"p1", "p2", "p3"} {
		message, items := albumMessage(10+i, "g1", fileID, "")
		agg.Add(ctx, message, items, rec.resolve)
	}

	time.Sleep(150 * time.Millisecond)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "g1", calls[0].albumID)
	assert.Equal(t, int64(100), calls[0].originChatID)
	require.Len(t, calls[0].items, 3)
	assert.Equal(t, []string{"p1", "p2", "p3"}, []string{
		calls[0].items[0].FileID, calls[0].items[1].FileID, calls[0].items[2].FileID,
	})
	assert.Equal(t, 0, agg.Pending())
}

func TestCaptionOnLastMessageClosesAlbumAndLandsOnFirstItem(t *testing.T) {
	agg := NewAggregator(time.Hour) // quiescence must not be what resolves this
	rec := &resolveRecorder{}
	ctx := context.Background()

	m1, i1 := albumMessage(1, "g1", "p1", "")
	m2, i2 := albumMessage(2, "g1", "p2", "")
	m3, i3 := albumMessage(3, "g1", "p3", "Hello")
	agg.Add(ctx, m1, i1, rec.resolve)
	agg.Add(ctx, m2, i2, rec.resolve)
	agg.Add(ctx, m3, i3, rec.resolve)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].items, 3)
	assert.Equal(t, "Hello", calls[0].items[0].Caption)
	assert.Empty(t, calls[0].items[1].Caption)
	assert.Empty(t, calls[0].items[2].Caption)
}

func TestCaptionOnFirstMessageWaitsForQuiescence(t *testing.T) {
	agg := NewAggregator(50 * time.Millisecond)
	rec := &resolveRecorder{}
	ctx := context.Background()

	// The caption arrives on the opening message of the burst. Resolving
	// right there would split the album: one entry with a single item now,
	// a second entry for the captionless follow-ups later.
	m1, i1 := albumMessage(1, "g1", "p1", "Hello")
	m2, i2 := albumMessage(2, "g1", "p2", "")
	m3, i3 := albumMessage(3, "g1", "p3", "")
	agg.Add(ctx, m1, i1, rec.resolve)
	agg.Add(ctx, m2, i2, rec.resolve)
	agg.Add(ctx, m3, i3, rec.resolve)

	time.Sleep(150 * time.Millisecond)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].items, 3)
	assert.Equal(t, "Hello", calls[0].items[0].Caption)
	assert.Empty(t, calls[0].items[1].Caption)
	assert.Empty(t, calls[0].items[2].Caption)
	assert.Equal(t, 0, agg.Pending())
}

func TestStaleTimerFireIsNoOp(t *testing.T) {
	agg := NewAggregator(50 * time.Millisecond)
	rec := &resolveRecorder{}
	ctx := context.Background()

	m1, i1 := albumMessage(1, "g1", "p1", "")
	agg.Add(ctx, m1, i1, rec.resolve)

	// Another path resolves the buffer before the timer fires.
	m2, i2 := albumMessage(2, "g1", "p2", "done")
	agg.Add(ctx, m2, i2, rec.resolve)
	require.Len(t, rec.snapshot(), 1)

	// The original quiescence timer firing later must perform no further
	// mutation and must not panic.
	time.Sleep(150 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
	assert.Equal(t, 0, agg.Pending())
}

func TestClaimSuppressesQuiescenceResolution(t *testing.T) {
	agg := NewAggregator(50 * time.Millisecond)
	rec := &resolveRecorder{}
	ctx := context.Background()

	m1, i1 := albumMessage(1, "g1", "p1", "")
	agg.Add(ctx, m1, i1, rec.resolve)
	agg.Claim("g1")

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	// The claimed buffer is still there for the scheduled path to take.
	items, originChatID, ok := agg.Take("g1")
	require.True(t, ok)
	assert.Equal(t, int64(100), originChatID)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].FileID)

	_, _, ok = agg.Take("g1")
	assert.False(t, ok)
}

func TestBufferAppendsWithoutTimer(t *testing.T) {
	agg := NewAggregator(50 * time.Millisecond)

	agg.Buffer("g1", 100, []queue.MediaItem{{Kind: queue.KindPhoto, FileID: "p1", OriginMessageID: 1}})
	agg.Buffer("g1", 100, []queue.MediaItem{{Kind: queue.KindPhoto, FileID: "p2", OriginMessageID: 2}})

	time.Sleep(150 * time.Millisecond)

	items, _, ok := agg.Take("g1")
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestNonAlbumMessageIsIgnored(t *testing.T) {
	agg := NewAggregator(50 * time.Millisecond)
	rec := &resolveRecorder{}

	message, items := albumMessage(1, "", "p1", "")
	agg.Add(context.Background(), message, items, rec.resolve)

	assert.Equal(t, 0, agg.Pending())
}
