// Package adminlog tracks the bot's own acknowledgement messages in the
// administrator chat so they can be bulk-purged on a daily cycle.
package adminlog

import (
	"context"
	"log"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"vagonetka-bot/pkg/telegoapi"
)

// Log is an append-only list of admin-chat message identifiers.
type Log struct {
	mu  sync.Mutex
	ids []int
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// Record appends a message identifier.
func (l *Log) Record(messageID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, messageID)
}

// Len returns the number of recorded identifiers.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

// PurgeAll deletes every recorded message from the admin chat, best-effort,
// then clears the list unconditionally regardless of individual outcomes.
func (l *Log) PurgeAll(ctx context.Context, bot telegoapi.BotAPI, adminChatID int64) {
	l.mu.Lock()
	ids := l.ids
	l.ids = nil
	l.mu.Unlock()

	log.Printf("[CLEAN] Purging %d admin log message(s)", len(ids))
	for _, id := range ids {
		err := bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
			ChatID:    tu.ID(adminChatID),
			MessageID: id,
		})
		if err != nil {
			log.Printf("[CLEAN] Failed to delete message %d: %v", id, err)
			continue
		}
		log.Printf("[CLEAN] Deleted message %d", id)
	}
}
