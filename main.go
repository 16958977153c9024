// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/ovozbot/ovoz/bot"
	"github.com/ovozbot/ovoz/config"
	"github.com/ovozbot/ovoz/engine"
	"github.com/ovozbot/ovoz/mailer"
	"github.com/ovozbot/ovoz/session"
	"github.com/ovozbot/ovoz/store"
	"github.com/ovozbot/ovoz/subs"
	"github.com/ovozbot/ovoz/telegram"
)

func main() {
	// Parse configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Error loading configuration", "error", err)
		os.Exit(1)
	}
	if !cfg.MailConfigured() {
		slog.Error("SMTP settings incomplete; email verification cannot run")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	// Verify connection
	if err := client.Ping(connectCtx, nil); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	db := client.Database(cfg.MongoDB)
	users := store.NewMongoUsers(db)
	polls := store.NewMongoPolls(db)
	if err := store.EnsureIndexes(connectCtx, users, polls); err != nil {
		slog.Error("index creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database indexes ready")

	tg, err := telegram.New(cfg.BotToken)
	if err != nil {
		slog.Error("telegram connection failed", "error", err)
		os.Exit(1)
	}

	subStore := subs.NewStore(cfg.SubsFile)
	gate := engine.NewGate(tg, subStore)
	eng := engine.New(polls, users, gate, tg, cfg.AdminIDs)
	sessions := session.NewStore()
	smtp := mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass, cfg.EmailFrom)
	b := bot.New(tg, eng, users, sessions, subStore, smtp, cfg.AdminIDs)
	reaper := engine.NewReaper(eng, sessions, cfg.ReaperInterval)

	// One pass up front so polls that expired while the process was down
	// close immediately instead of waiting a full interval.
	reaper.Sweep(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tg.Run(ctx, b.HandleEvent) })
	g.Go(func() error { return reaper.Run(ctx) })

	slog.Info("Bot running", "admins", len(cfg.AdminIDs))
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Bot stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("Bot stopped")
}
