package app

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"zaptui/internal/bus"
	"zaptui/internal/chat"
	"zaptui/internal/config"
	"zaptui/internal/lock"
	"zaptui/internal/logging"
	"zaptui/internal/media"
	"zaptui/internal/outbox"
	"zaptui/internal/session"
	"zaptui/internal/status"
	"zaptui/internal/store"
	intsync "zaptui/internal/sync"
	"zaptui/internal/tui"
	"zaptui/internal/wa"
)

// mediaCacheCapacity bounds how many downloadable message protos are
// kept for the v key. Old entries are evicted arbitrarily.
const mediaCacheCapacity = 1024

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
}

// Module returns the fx module for the client, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("app",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideMediaCache,
			provideAdapter,
			provideSyncEngine,
			provideSender,
			provideApp,
			provideResolver,
			provideFormatter,
			provideSession,
			provideList,
			provideRenderer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() *config.Config {
	return config.LoadOrDefault(session.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.AppDBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideMediaCache() *wa.MediaCache {
	return wa.NewMediaCache(mediaCacheCapacity)
}

func provideAdapter(p Params, db *store.DB, cache *wa.MediaCache, b *bus.Bus, logger *zap.Logger) (*wa.Adapter, error) {
	return wa.NewAdapter(context.Background(), p.SessionName, db, cache, b, logger)
}

func provideSyncEngine(db *store.DB, b *bus.Bus, adapter *wa.Adapter, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, b, adapter, logger)
}

func provideSender(db *store.DB, adapter *wa.Adapter, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, adapter, b, logger)
}

func provideApp(p Params, b *bus.Bus, db *store.DB, logger *zap.Logger) *tui.App {
	return tui.NewApp(b, db, p.SessionName, logger)
}

func provideResolver(adapter *wa.Adapter, logger *zap.Logger) *chat.Resolver {
	return chat.NewResolver(adapter, logger)
}

func provideFormatter(resolver *chat.Resolver) *chat.Formatter {
	return chat.NewFormatter(resolver)
}

func provideSession(adapter *wa.Adapter, formatter *chat.Formatter, app *tui.App, sender *outbox.Sender, cfg *config.Config, logger *zap.Logger) *chat.Session {
	return chat.NewSession(adapter, formatter, app, sender, cfg.HistoryLimit, logger)
}

func provideList(adapter *wa.Adapter, app *tui.App, sess *chat.Session, cfg *config.Config, logger *zap.Logger) *chat.List {
	return chat.NewList(adapter, app, sess, cfg.ChatLimit, logger)
}

func provideRenderer(adapter *wa.Adapter, app *tui.App, cfg *config.Config, logger *zap.Logger) *media.Renderer {
	graphics := media.SupportsInlineGraphics(os.Getenv("TERM"))
	return media.NewRenderer(adapter, app, graphics, cfg.MediaDir, logger)
}

func registerLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, app *tui.App, sess *chat.Session, list *chat.List, renderer *media.Renderer, lk *lock.Lock, adapter *wa.Adapter, engine *intsync.Engine, sender *outbox.Sender, machine *status.Machine, cache *wa.MediaCache, db *store.DB, b *bus.Bus, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			app.Bind(sess, list, renderer)

			// Ingest wa.* bus events into the store.
			engine.Start(context.Background())

			handler := wa.NewEventHandler(b, machine, cache, logger)
			adapter.RegisterEventHandler(handler.Handle)

			sender.Start(context.Background())

			if adapter.IsLoggedIn() {
				_ = machine.Transition(status.Connecting)
				go func() {
					if err := adapter.Connect(); err != nil {
						logger.Error("auto-connect failed", zap.Error(err))
						_ = machine.Transition(status.Error)
					}
				}()
			} else {
				logger.Info("no credentials found, auth required")
				_ = machine.Transition(status.AuthRequired)
				go func() {
					events, err := adapter.StartQRAuth(context.Background())
					if err != nil {
						logger.Error("QR auth failed to start", zap.Error(err))
						return
					}
					// The TUI follows the flow via session.* bus events;
					// the channel only needs draining.
					for range events {
					}
				}()
			}

			// The TUI owns the terminal until quit; its exit shuts the
			// whole application down.
			go func() {
				if err := app.Run(context.Background()); err != nil {
					logger.Error("terminal ui error", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			app.Stop()
			sender.Stop()
			engine.Stop()
			adapter.Disconnect()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
