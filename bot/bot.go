// Package bot wraps the telego update stream: it filters events down to the
// single configured administrator and routes them to the message, edit and
// callback handlers.
package bot

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	"go.uber.org/ratelimit"

	"vagonetka-bot/internal/handlers"
)

// Bot runs the update processing loop.
type Bot struct {
	updatesChan <-chan telego.Update
	handler     *handlers.MessageHandler
	debug       bool
	ratelimiter ratelimit.Limiter
}

// New creates a Bot reading from the given updates channel.
func New(updatesChan <-chan telego.Update, handler *handlers.MessageHandler, debug bool) (*Bot, error) {
	if updatesChan == nil {
		return nil, fmt.Errorf("updates channel cannot be nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}
	return &Bot{
		updatesChan: updatesChan,
		handler:     handler,
		debug:       debug,
		ratelimiter: ratelimit.New(20),
	}, nil
}

// processUpdate routes one update to the appropriate handler. Events from
// any chat other than the administrator's are dropped.
func (b *Bot) processUpdate(ctx context.Context, update telego.Update) {
	b.ratelimiter.Take()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in processUpdate: %v\n%s", r, debug.Stack())
			sentry.CurrentHub().Recover(r)
			sentry.Flush(2 * time.Second)
		}
	}()

	processingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	gate := b.handler.Gate()

	switch {
	case update.Message != nil:
		message := *update.Message
		if !gate.IsAdmin(message.Chat.ID) {
			if b.debug {
				log.Printf("Ignoring message %d from non-admin chat %d", message.MessageID, message.Chat.ID)
			}
			return
		}
		if err := b.handler.HandleMessage(processingCtx, message); err != nil {
			log.Printf("[Msg:%d] Handler error: %v", message.MessageID, err)
			sentry.CaptureException(fmt.Errorf("message handler: %w", err))
		}

	case update.EditedMessage != nil:
		message := *update.EditedMessage
		if !gate.IsAdmin(message.Chat.ID) {
			return
		}
		if err := b.handler.HandleEditedMessage(processingCtx, message); err != nil {
			log.Printf("[Edit:%d] Handler error: %v", message.MessageID, err)
			sentry.CaptureException(fmt.Errorf("edit handler: %w", err))
		}

	case update.CallbackQuery != nil:
		query := *update.CallbackQuery
		if !gate.IsAdmin(query.From.ID) {
			return
		}
		processed, err := b.handler.HandleCallbackQuery(processingCtx, query)
		if err != nil {
			log.Printf("[Callback:%s] Handler error: %v", query.ID, err)
			sentry.CaptureException(fmt.Errorf("callback handler: %w", err))
			return
		}
		if !processed {
			log.Printf("[Callback:%s] Query not handled: %q", query.ID, query.Data)
		}

	default:
		if b.debug {
			log.Printf("Ignoring unhandled update type: %+v", update)
		}
	}
}

// Start begins the bot's update processing loop and blocks until the context
// is cancelled or the updates channel closes.
func (b *Bot) Start(ctx context.Context) {
	log.Println("Listening for updates...")

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Println("Context done, stopping update processing...")
			wg.Wait()
			log.Println("All update processing finished.")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				log.Println("Updates channel closed.")
				wg.Wait()
				return
			}
			wg.Add(1)
			go func(up telego.Update) {
				defer wg.Done()
				b.processUpdate(ctx, up)
			}(update)
		}
	}
}
