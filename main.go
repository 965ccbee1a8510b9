package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	telego "github.com/mymmrac/telego"

	appBot "vagonetka-bot/bot"
	"vagonetka-bot/internal/adminlog"
	"vagonetka-bot/internal/albums"
	"vagonetka-bot/internal/auth"
	"vagonetka-bot/internal/config"
	"vagonetka-bot/internal/database"
	"vagonetka-bot/internal/handlers"
	"vagonetka-bot/internal/locales"
	"vagonetka-bot/internal/poster"
	"vagonetka-bot/internal/queue"
	"vagonetka-bot/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	locales.Init("ru")

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Post audit log is optional; the queue itself is always in-memory.
	var postLogger database.PostLogger = database.NopPostLogger{}
	if cfg.MongoDBURI != "" {
		client, db, err := database.ConnectDB(ctx, cfg)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal(err)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("Error disconnecting from MongoDB: %v", err)
			}
		}()
		postLogger = database.NewMongoPostLogger(db)
	}

	var tgBot *telego.Bot
	if cfg.Debug {
		tgBot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultDebugLogger())
	} else {
		tgBot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultLogger(false, false))
	}
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create telego bot: %v", err)
	}

	gate, err := auth.NewGate(cfg.AdminID, cfg.ChannelID)
	if err != nil {
		log.Fatalf("Failed to create admin gate: %v", err)
	}
	if err := gate.VerifyChannelAdmin(ctx, tgBot); err != nil {
		// Refusing to start would lock out setups where the bot cannot list
		// channel members; a warning is enough to catch typos in the IDs.
		log.Printf("Warning: could not verify admin %d against channel %d: %v", cfg.AdminID, cfg.ChannelID, err)
	}

	postQueue := queue.New()
	aggregator := albums.NewAggregator(cfg.AlbumDelay)
	adminLog := adminlog.New()

	dispatcher := poster.NewDispatcher(tgBot, postQueue, adminLog, postLogger, cfg.ChannelID, cfg.AdminID)
	scheduleSvc := poster.NewScheduleService(dispatcher, aggregator, cfg.Location())

	handler := handlers.NewMessageHandler(handlers.Deps{
		Bot:         tgBot,
		Queue:       postQueue,
		Aggregator:  aggregator,
		Schedule:    scheduleSvc,
		AdminLog:    adminLog,
		Gate:        gate,
		SettleDelay: cfg.SettleDelay,
		DailyTag:    cfg.DailyTag,
	})

	scheduler, err := poster.NewScheduler(cfg.SendCron, cfg.PurgeCron,
		func() { dispatcher.DrainOne(context.Background()) },
		func() { adminLog.PurgeAll(context.Background(), tgBot, cfg.AdminID) },
	)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	statusApp := server.New(postQueue, aggregator, cfg.Version)
	go server.Listen(statusApp, cfg.ServerPort)
	defer func() {
		if err := statusApp.Shutdown(); err != nil {
			log.Printf("Status server shutdown: %v", err)
		}
	}()

	updates, err := tgBot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to start long polling: %v", err)
	}

	b, err := appBot.New(updates, handler, cfg.Debug)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	go b.Start(ctx)

	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	dispatcher.Report(ctx, locales.GetMessage(localizer, "MsgBotStarted", nil, nil))

	<-ctx.Done()

	log.Println("Shutting down bot...")
	aggregator.Shutdown()
	log.Println("Bot shutdown complete.")
}
