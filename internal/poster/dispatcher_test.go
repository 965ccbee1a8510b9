package poster

import (
	"context"
	"os"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vagonetka-bot/internal/adminlog"
	"vagonetka-bot/internal/database"
	"vagonetka-bot/internal/locales"
	"vagonetka-bot/internal/queue"
	"vagonetka-bot/pkg/telegoapi/mocks"
)

const (
	testChannelID = int64(-1001234567890)
	testAdminID   = int64(111222333)
)

func TestMain(m *testing.M) {
	locales.Init("ru")
	os.Exit(m.Run())
}

func newTestDispatcher(bot *mocks.Bot) (*Dispatcher, *queue.Queue, *adminlog.Log) {
	q := queue.New()
	acks := adminlog.New()
	d := NewDispatcher(bot, q, acks, database.NopPostLogger{}, testChannelID, testAdminID)
	return d, q, acks
}

func photoEntry(originMessageID int, fileID, caption string) *queue.PostEntry {
	return &queue.PostEntry{
		OriginChatID: testAdminID,
		Items: []queue.MediaItem{{
			Kind:            queue.KindPhoto,
			FileID:          fileID,
			OriginMessageID: originMessageID,
			Caption:         caption,
		}},
	}
}

func TestDrainOneSendsOldestEntryOnly(t *testing.T) {
	bot := new(mocks.Bot)
	d, q, acks := newTestDispatcher(bot)

	q.Enqueue(photoEntry(10, "file-old", "first"))
	q.Enqueue(photoEntry(11, "file-new", "second"))

	bot.On("SendPhoto", mock.Anything, mock.MatchedBy(func(p *telego.SendPhotoParams) bool {
		return p.Photo.FileID == "file-old" && p.Caption == "first"
	})).Return(&telego.Message{MessageID: 500}, nil).Once()
	bot.On("DeleteMessage", mock.Anything, mock.MatchedBy(func(p *telego.DeleteMessageParams) bool {
		return p.MessageID == 10
	})).Return(nil).Once()
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{MessageID: 501}, nil).Once()

	d.DrainOne(context.Background())

	bot.AssertExpectations(t)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 1, acks.Len())
}

func TestDrainOneWithEmptyQueue(t *testing.T) {
	bot := new(mocks.Bot)
	d, _, acks := newTestDispatcher(bot)

	d.DrainOne(context.Background())

	bot.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
	assert.Equal(t, 0, acks.Len())
}

func TestDrainOneSendsAlbumAsMediaGroup(t *testing.T) {
	bot := new(mocks.Bot)
	d, q, _ := newTestDispatcher(bot)

	q.Enqueue(&queue.PostEntry{
		OriginChatID: testAdminID,
		AlbumID:      "album-1",
		Items: []queue.MediaItem{
			{Kind: queue.KindPhoto, FileID: "file-a", OriginMessageID: 20, Caption: "cap"},
			{Kind: queue.KindVideo, FileID: "file-b", OriginMessageID: 21},
		},
	})

	bot.On("SendMediaGroup", mock.Anything, mock.MatchedBy(func(p *telego.SendMediaGroupParams) bool {
		return len(p.Media) == 2
	})).Return([]telego.Message{{MessageID: 600}, {MessageID: 601}}, nil).Once()
	bot.On("DeleteMessage", mock.Anything, mock.Anything).Return(nil).Twice()
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{MessageID: 602}, nil).Once()

	d.DrainOne(context.Background())

	bot.AssertExpectations(t)
	assert.Equal(t, 0, q.Len())
}

func TestDrainOneFailedSendConsumesEntry(t *testing.T) {
	bot := new(mocks.Bot)
	d, q, acks := newTestDispatcher(bot)

	q.Enqueue(photoEntry(30, "file-bad", ""))

	bot.On("SendPhoto", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{MessageID: 700}, nil).Once()

	d.DrainOne(context.Background())

	bot.AssertExpectations(t)
	bot.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
	assert.Equal(t, 0, q.Len(), "failed entry must not be re-queued")
	assert.Equal(t, 1, acks.Len(), "failure report must be recorded")
}

func TestDrainOneUnsupportedKindIsReported(t *testing.T) {
	bot := new(mocks.Bot)
	d, q, _ := newTestDispatcher(bot)

	q.Enqueue(&queue.PostEntry{
		OriginChatID: testAdminID,
		Items:        []queue.MediaItem{{Kind: queue.Kind("dice"), OriginMessageID: 40}},
	})

	bot.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{MessageID: 800}, nil).Once()

	d.DrainOne(context.Background())

	bot.AssertExpectations(t)
	assert.Equal(t, 0, q.Len())
}

func TestSendSingleCopiesWhenEntitiesMustSurvive(t *testing.T) {
	bot := new(mocks.Bot)
	d, _, _ := newTestDispatcher(bot)

	item := queue.MediaItem{
		Kind:            queue.KindPhoto,
		FileID:          "file-fmt",
		OriginMessageID: 50,
		Caption:         "bold text",
		CaptionEntities: []telego.MessageEntity{{Type: "bold", Offset: 0, Length: 4}},
	}

	bot.On("CopyMessage", mock.Anything, mock.MatchedBy(func(p *telego.CopyMessageParams) bool {
		return p.MessageID == 50 && len(p.CaptionEntities) == 1
	})).Return(&telego.MessageID{MessageID: 900}, nil).Once()

	err := d.sendSingle(context.Background(), item, testAdminID)

	require.NoError(t, err)
	bot.AssertExpectations(t)
	bot.AssertNotCalled(t, "SendPhoto", mock.Anything, mock.Anything)
}

func TestSendSingleTextMessage(t *testing.T) {
	bot := new(mocks.Bot)
	d, _, _ := newTestDispatcher(bot)

	item := queue.MediaItem{Kind: queue.KindMessage, OriginMessageID: 60, Caption: "plain text"}

	bot.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *telego.SendMessageParams) bool {
		return p.Text == "plain text"
	})).Return(&telego.Message{MessageID: 901}, nil).Once()

	err := d.sendSingle(context.Background(), item, testAdminID)

	require.NoError(t, err)
	bot.AssertExpectations(t)
}

func TestBuildInputMediaKeepsCaptionOnFirstItemOnly(t *testing.T) {
	items := []queue.MediaItem{
		{Kind: queue.KindPhoto, FileID: "f1", Caption: "cap", CaptionEntities: []telego.MessageEntity{{Type: "bold"}}},
		{Kind: queue.KindPhoto, FileID: "f2", Caption: "stray"},
		{Kind: queue.KindVideo, FileID: "f3", Caption: "stray"},
	}

	media, err := BuildInputMedia(items)
	require.NoError(t, err)
	require.Len(t, media, 3)

	first, ok := media[0].(*telego.InputMediaPhoto)
	require.True(t, ok)
	assert.Equal(t, "cap", first.Caption)
	assert.Len(t, first.CaptionEntities, 1)

	second, ok := media[1].(*telego.InputMediaPhoto)
	require.True(t, ok)
	assert.Empty(t, second.Caption)

	third, ok := media[2].(*telego.InputMediaVideo)
	require.True(t, ok)
	assert.Empty(t, third.Caption)
}

func TestBuildInputMediaRejectsUngroupableKind(t *testing.T) {
	_, err := BuildInputMedia([]queue.MediaItem{
		{Kind: queue.KindPhoto, FileID: "f1"},
		{Kind: queue.KindSticker, FileID: "f2"},
	})
	require.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestReportRecordsAcknowledgement(t *testing.T) {
	bot := new(mocks.Bot)
	d, _, acks := newTestDispatcher(bot)

	bot.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{MessageID: 77}, nil).Once()

	d.Report(context.Background(), "done")

	assert.Equal(t, 1, acks.Len())
}

func TestScheduleRejectsPastDate(t *testing.T) {
	bot := new(mocks.Bot)
	d, _, _ := newTestDispatcher(bot)
	svc := NewScheduleService(d, nil, testLoc)

	msg := telego.Message{MessageID: 1, Chat: telego.Chat{ID: testAdminID}, Text: "old 01-01-2020 10:00"}
	at, stripped, ok := ParseSchedule(msg.Text, testLoc)
	require.True(t, ok)
	assert.Equal(t, "old", stripped)

	err := svc.Schedule(msg, nil, at, stripped)
	require.ErrorIs(t, err, ErrPastDate)
}
