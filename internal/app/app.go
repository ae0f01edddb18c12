// Package app is the composition root: it opens storage, wires the
// services together and owns the background workers.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/quillchat/api/internal/asset"
	"github.com/quillchat/api/internal/channel"
	"github.com/quillchat/api/internal/config"
	"github.com/quillchat/api/internal/database"
	"github.com/quillchat/api/internal/email"
	"github.com/quillchat/api/internal/handler"
	"github.com/quillchat/api/internal/invite"
	"github.com/quillchat/api/internal/message"
	"github.com/quillchat/api/internal/notify"
	"github.com/quillchat/api/internal/permissions"
	"github.com/quillchat/api/internal/ratelimit"
	"github.com/quillchat/api/internal/server"
	"github.com/quillchat/api/internal/store"
)

type App struct {
	Config  *config.Config
	DB      *database.DB
	Gateway *store.Gateway
	Server  *server.Server

	Objects     *asset.MinioObjects
	Collector   *asset.Collector
	Notify      *notify.Queue
	SendLimiter *ratelimit.Limiter
	EditLimiter *ratelimit.Limiter
}

func New(cfg *config.Config) (*App, error) {
	var db *database.DB
	var sqlDB *sql.DB
	if cfg.Database.Driver == "sqlite" {
		var err error
		db, err = database.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
		sqlDB = db.DB
	}

	gateway, err := store.Open(cfg.Database.Driver, sqlDB)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	objects, err := asset.NewMinioObjects(cfg.Storage)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	assetSvc := asset.NewService(gateway.Assets, objects)
	collector := asset.NewCollector(gateway.Assets, objects, cfg.Storage.GCInterval)

	evaluator := permissions.NewEvaluator(gateway.Workspaces)
	engine := channel.NewMutationEngine(gateway.Channels, assetSvc, cfg.Channels.BcryptCost)
	emitter := message.NewEmitter(gateway.Messages)

	dispatcher := message.NewDispatcher(gateway.Messages, gateway.Idempotency, message.BasicValidator{}, cfg.Idempotency.TTL)

	sender := email.NewSender(cfg.Email)
	queue := notify.NewQueue(cfg.Notifications.QueueCapacity, cfg.Notifications.FlushInterval, gateway.Users, sender)
	dispatcher.SetNotifier(queue)

	inviteSvc := invite.NewService(gateway.Invites)

	h := handler.New(handler.Dependencies{
		Gateway:   gateway,
		Engine:    engine,
		Evaluator: evaluator,
		Dispatch:  dispatcher,
		Emitter:   emitter,
		Invites:   inviteSvc,
		Assets:    assetSvc,
	})

	sendLimiter := ratelimit.NewLimiter(cfg.RateLimit.SendMessage)
	editLimiter := ratelimit.NewLimiter(cfg.RateLimit.EditChannel)

	router := server.NewRouter(h, server.RouterOptions{
		Sessions:         gateway.Sessions,
		SendLimiter:      sendLimiter,
		EditLimiter:      editLimiter,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
	})

	if cfg.Server.TLS.Mode == "auto" {
		if err := os.MkdirAll(cfg.Server.TLS.Auto.CacheDir, 0o700); err != nil {
			if db != nil {
				_ = db.Close()
			}
			return nil, fmt.Errorf("creating TLS cache directory: %w", err)
		}
	}

	srv := server.New(cfg.Server, router)

	return &App{
		Config:      cfg,
		DB:          db,
		Gateway:     gateway,
		Server:      srv,
		Objects:     objects,
		Collector:   collector,
		Notify:      queue,
		SendLimiter: sendLimiter,
		EditLimiter: editLimiter,
	}, nil
}

// Start launches the background workers and blocks serving HTTP until
// the server stops.
func (a *App) Start(ctx context.Context) error {
	if err := a.Objects.EnsureBucket(ctx); err != nil {
		slog.Warn("object storage unavailable, uploads will fail until it recovers", "error", err)
	}

	go a.Collector.Start(ctx)
	go a.Notify.Run(ctx)
	go a.runIdempotencyCleanup(ctx)
	go a.runLimiterCleanup(ctx)

	return a.Server.Start()
}

func (a *App) runIdempotencyCleanup(ctx context.Context) {
	interval := a.Config.Idempotency.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-a.Config.Idempotency.TTL)
			removed, err := a.Gateway.Idempotency.DeleteExpiredIdempotency(ctx, cutoff)
			if err != nil {
				slog.Error("cleaning expired idempotency records", "error", err)
				continue
			}
			if removed > 0 {
				slog.Debug("cleaned expired idempotency records", "removed", removed)
			}
		}
	}
}

func (a *App) runLimiterCleanup(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.SendLimiter.Cleanup()
			a.EditLimiter.Cleanup()
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)
	if a.DB != nil {
		if cerr := a.DB.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
