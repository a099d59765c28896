package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Freeeeeet/mentorship_api/internal/app"
	"github.com/Freeeeeet/mentorship_api/internal/config"
	"github.com/Freeeeeet/mentorship_api/internal/controller/httpapi"
	"github.com/Freeeeeet/mentorship_api/internal/notify"
	"github.com/Freeeeeet/mentorship_api/internal/repository"
	"github.com/Freeeeeet/mentorship_api/internal/repository/memory"
	"github.com/Freeeeeet/mentorship_api/internal/service"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	sessions      service.SessionStore
	messages      service.MessageStore
	activities    service.ActivityStore
	notifications notify.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	os.Exit(execute(cfg, logger))
}

// execute запускает сервис до сигнала остановки и возвращает код выхода.
// Отложенные вызовы отрабатывают до os.Exit.
func execute(cfg *config.Config, logger *zap.Logger) int {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting mentorship API",
		zap.String("environment", cfg.Environment),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("timezone", cfg.Location.String()))

	clk := clockwork.NewRealClock()

	st, closeStores, err := openStores(ctx, cfg, clk, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	var dispatcherOpts []notify.Option
	var sweeperOpts []app.SweeperOption

	if cfg.RedisURL != "" {
		rdb, err := app.NewRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return err
		}
		defer rdb.Close()

		dispatcherOpts = append(dispatcherOpts, notify.WithRedis(rdb, notify.DefaultChannel))
		sweeperOpts = append(sweeperOpts, app.WithLease(rdb, instanceID()))
	}

	if cfg.TelegramEnabled() {
		b, err := bot.New(cfg.TelegramToken)
		if err != nil {
			// уведомления в чат не критичны для работы сервиса
			logger.Warn("Telegram mirror disabled", zap.Error(err))
		} else {
			dispatcherOpts = append(dispatcherOpts, notify.WithTelegram(b, cfg.TelegramChatID))
		}
	}

	dispatcher := notify.NewDispatcher(st.notifications, logger, dispatcherOpts...)
	activity := service.NewActivityService(st.activities, logger)

	mentorship := service.NewMentorshipService(st.sessions, activity, dispatcher, clk, cfg.Location, logger)
	chat := service.NewChatService(st.sessions, st.messages, activity, clk, logger)

	if cfg.SweepInterval > 0 {
		sweeper := app.NewSweeper(mentorship, cfg.SweepInterval, logger, sweeperOpts...)
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	server := httpapi.NewServer(mentorship, chat, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, clk clockwork.Clock, logger *zap.Logger) (*stores, func(), error) {
	if cfg.UseMemoryStore() {
		logger.Warn("Using in-memory store, data is lost on restart")
		mem := memory.NewStore(clk)
		return &stores{
			sessions:      mem,
			messages:      mem,
			activities:    mem.ActivityStore(),
			notifications: mem.NotificationStore(),
		}, func() {}, nil
	}

	pool, err := app.NewPool(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, nil, err
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return &stores{
		sessions:      repository.NewSessionRepository(pool),
		messages:      repository.NewMessageRepository(pool),
		activities:    repository.NewActivityRepository(pool),
		notifications: repository.NewNotificationRepository(pool),
	}, pool.Close, nil
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()[:8]
}
