package app

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SweepLeaseKey ключ в Redis, которым экземпляры делят право на проход
const SweepLeaseKey = "mentorship:sweep:lease"

// SweepTarget то, что умеет сверить все незавершённые сессии
type SweepTarget interface {
	Sweep(ctx context.Context) (int, error)
}

// Locker подмножество *redis.Client для аренды
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Sweeper периодически сверяет статусы сессий
type Sweeper struct {
	target   SweepTarget
	interval time.Duration
	logger   *zap.Logger

	locker Locker
	owner  string

	started  bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

type SweeperOption func(*Sweeper)

// WithLease включает аренду через Redis: за один интервал проход делает
// только один экземпляр
func WithLease(locker Locker, owner string) SweeperOption {
	return func(s *Sweeper) {
		s.locker = locker
		s.owner = owner
	}
}

func NewSweeper(target SweepTarget, interval time.Duration, logger *zap.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		target:   target,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start запускает фоновый цикл
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting session sweeper", zap.Duration("interval", s.interval))
	s.started = true
	go s.run(ctx)
}

// Stop останавливает цикл и ждёт завершения текущего прохода
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping session sweeper")
		close(s.stopChan)
	})
	if s.started {
		<-s.done
	}
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	// первый проход сразу при старте
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopChan:
			s.logger.Info("Session sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Session sweeper cancelled")
			return
		}
	}
}

// RunOnce делает один проход. Возвращает false, если аренду держит другой экземпляр.
func (s *Sweeper) RunOnce(ctx context.Context) bool {
	if !s.acquire(ctx) {
		s.logger.Debug("Sweep lease held elsewhere, skipping")
		return false
	}

	updated, err := s.target.Sweep(ctx)
	if err != nil {
		s.logger.Error("Sweep finished with errors", zap.Int("updated", updated), zap.Error(err))
		return true
	}

	if updated > 0 {
		s.logger.Info("Sweep updated sessions", zap.Int("updated", updated))
	}
	return true
}

// acquire при недоступном Redis проход всё равно выполняется:
// запись статусов защищена версией
func (s *Sweeper) acquire(ctx context.Context) bool {
	if s.locker == nil {
		return true
	}

	ok, err := s.locker.SetNX(ctx, SweepLeaseKey, s.owner, s.interval).Result()
	if err != nil {
		s.logger.Warn("Failed to acquire sweep lease", zap.Error(err))
		return true
	}
	return ok
}
