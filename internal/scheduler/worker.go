package scheduler

import (
	"context"
	"fmt"

	"territory_backend/internal/territory/domain"
	"territory_backend/platform/config"
	"territory_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultConcurrency = 10

// AuditRunner runs the consistency audit.
type AuditRunner interface {
	RunAudit(ctx context.Context, trigger string) (domain.AuditReport, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	audit  AuditRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, audit AuditRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		audit:  audit,
		log:    log,
	}
	w.mux.HandleFunc(TaskConsistencyAudit, w.handleConsistencyAudit)

	return w, nil
}

func (w *Worker) handleConsistencyAudit(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseConsistencyAuditPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	trigger := payload.Trigger
	if trigger == "" {
		trigger = "scheduled"
	}

	report, err := w.audit.RunAudit(ctx, trigger)
	if err != nil {
		return err
	}
	if !report.Clean() {
		w.log.Warn("consistency audit found violations", "trigger", trigger, "violations", report.Violations())
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
