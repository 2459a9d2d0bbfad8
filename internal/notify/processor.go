package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/immolink/backend/domain"
	"github.com/immolink/backend/internal/infrastructure/outbox"
)

// ProcessorConfig controls how frequently the outbox is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// Processor periodically replays parked notifications once the delivery
// channel is reachable again.
type Processor struct {
	store     *outbox.Store
	publisher Publisher
	monitor   ConnectionHealth
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       ProcessorConfig
}

func NewProcessor(
	store *outbox.Store,
	publisher Publisher,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *Processor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Processor{
		store:     store,
		publisher: publisher,
		monitor:   monitor,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = p.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := p.Drain(ctx); err != nil {
			p.logger.Error("outbox drain failed", zap.Error(err))
		}
	})

	return p
}

// Start launches the cron scheduler.
func (p *Processor) Start() {
	if p == nil || p.cron == nil {
		return
	}
	p.cron.Start()
	p.logger.Info("notification outbox processor started")
}

// Stop gracefully stops the scheduler.
func (p *Processor) Stop(ctx context.Context) {
	if p == nil || p.cron == nil {
		return
	}
	stopCtx := p.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	p.logger.Info("notification outbox processor stopped")
}

// Drain publishes pending entries, bounded by the batch size. Entries that
// exhaust their retries or outlive the retention window are dropped; a push
// notification is best-effort by contract.
func (p *Processor) Drain(ctx context.Context) error {
	if p == nil || p.store == nil {
		return nil
	}
	if p.monitor != nil && !p.monitor.IsOnline() {
		p.logger.Debug("skipping outbox drain (offline)")
		return nil
	}

	if err := p.store.Cleanup(time.Now().Add(-p.cfg.Retention)); err != nil {
		p.logger.Warn("outbox cleanup failed", zap.Error(err))
	}

	entries, err := p.store.GetBatch(p.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := p.publishEntry(ctx, entry); err != nil {
			p.logger.Warn("failed to replay notification",
				zap.String("entry_id", entry.ID),
				zap.String("event", entry.EventType),
				zap.Error(err))

			entry.Retries++
			if entry.Retries >= p.cfg.MaxRetries {
				p.logger.Warn("dropping notification (max retries reached)", zap.String("entry_id", entry.ID))
				_ = p.store.Remove(entry)
				continue
			}

			if err := p.store.Remove(entry); err != nil {
				p.logger.Warn("failed to remove outbox entry", zap.Error(err))
			}
			if err := p.store.Requeue(entry); err != nil {
				p.logger.Error("failed to requeue outbox entry", zap.Error(err))
			}
			continue
		}

		if err := p.store.Remove(entry); err != nil {
			p.logger.Warn("failed to purge delivered entry", zap.Error(err))
		}
	}
	return nil
}

// Size returns the number of pending entries.
func (p *Processor) Size() int {
	if p == nil || p.store == nil {
		return 0
	}
	size, err := p.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (p *Processor) publishEntry(ctx context.Context, entry outbox.Entry) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var n domain.Notification
	if err := json.Unmarshal(entry.Payload, &n); err != nil {
		return err
	}
	return p.publisher.Publish(ctx, n)
}
