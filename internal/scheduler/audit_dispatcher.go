package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"territory_backend/platform/config"
	"territory_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultAuditInterval = time.Hour

// AuditDispatcher enqueues a consistency audit on a fixed interval. Each
// period is enqueued at most once across dispatcher replicas: the task id is
// derived from the period and the finished task is retained until the period
// ends.
type AuditDispatcher struct {
	client   *asynq.Client
	queue    string
	interval time.Duration
	now      func() time.Time
	log      *logger.Logger
}

func NewAuditDispatcher(cfg config.SchedulerConfig, log *logger.Logger) (*AuditDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	interval := cfg.GetAuditInterval()
	if interval <= 0 {
		interval = defaultAuditInterval
	}

	return &AuditDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queueName(cfg),
		interval: interval,
		now:      time.Now,
		log:      log,
	}, nil
}

func (d *AuditDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *AuditDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	d.dispatch(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dispatch(ctx)
		}
	}
}

func (d *AuditDispatcher) dispatch(ctx context.Context) {
	task, err := NewConsistencyAuditTask(ConsistencyAuditPayload{Trigger: "scheduled"})
	if err != nil {
		d.log.Warn("audit task build failed", "error", err)
		return
	}

	id := auditTaskID(d.now(), d.interval)
	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(d.queue),
		asynq.TaskID(id),
		asynq.Retention(d.interval),
	)
	switch {
	case err == nil:
		d.log.Info("consistency audit enqueued", "queue", d.queue, "task_id", id)
	case errors.Is(err, asynq.ErrTaskIDConflict):
		d.log.Debug("consistency audit already enqueued for this period", "task_id", id)
	default:
		d.log.Warn("audit enqueue failed", "error", err)
	}
}

// auditTaskID names the audit of the period containing now.
func auditTaskID(now time.Time, interval time.Duration) string {
	return fmt.Sprintf("%s:%d", TaskConsistencyAudit, now.Truncate(interval).Unix())
}
