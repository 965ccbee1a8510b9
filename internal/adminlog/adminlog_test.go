package adminlog

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"vagonetka-bot/pkg/telegoapi/mocks"
)

func TestPurgeAllDeletesEveryRecordedMessage(t *testing.T) {
	l := New()
	l.Record(1)
	l.Record(2)
	l.Record(3)
	assert.Equal(t, 3, l.Len())

	bot := new(mocks.Bot)
	ctx := context.Background()
	for _, id := range []int{1, 2, 3} {
		id := id
		bot.On("DeleteMessage", ctx, mock.MatchedBy(func(p *telego.DeleteMessageParams) bool {
			return p.MessageID == id
		})).Return(nil).Once()
	}

	l.PurgeAll(ctx, bot, 42)

	bot.AssertExpectations(t)
	assert.Equal(t, 0, l.Len())
}

func TestPurgeAllClearsLogEvenWhenDeletesFail(t *testing.T) {
	l := New()
	l.Record(1)
	l.Record(2)

	bot := new(mocks.Bot)
	ctx := context.Background()
	bot.On("DeleteMessage", ctx, mock.AnythingOfType("*telego.DeleteMessageParams")).
		Return(errors.New("message to delete not found")).Twice()

	l.PurgeAll(ctx, bot, 42)

	bot.AssertExpectations(t)
	// The list is cleared unconditionally regardless of per-item outcomes.
	assert.Equal(t, 0, l.Len())
}

func TestPurgeAllWithEmptyLog(t *testing.T) {
	l := New()
	bot := new(mocks.Bot)

	l.PurgeAll(context.Background(), bot, 42)

	bot.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}
