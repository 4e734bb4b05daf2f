package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EscalationJobName is the scheduler name of the stale alert sweep
const EscalationJobName = "alert_escalation"

// AlertEscalator flags pending alerts nobody has accepted in time.
// Implemented by service.AlertService.
type AlertEscalator interface {
	EscalateStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// EscalationJob marks alerts that stayed pending longer than maxAge
type EscalationJob struct {
	alerts  AlertEscalator
	logger  *zap.Logger
	maxAge  time.Duration
	timeout time.Duration
}

func NewEscalationJob(alerts AlertEscalator, logger *zap.Logger, maxAge, timeout time.Duration) *EscalationJob {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EscalationJob{
		alerts:  alerts,
		logger:  logger,
		maxAge:  maxAge,
		timeout: timeout,
	}
}

// Run performs one sweep. Called by the scheduler.
func (j *EscalationJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	escalated, err := j.alerts.EscalateStale(ctx, j.maxAge)
	if err != nil {
		j.logger.Error("alert escalation failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if escalated > 0 {
		j.logger.Warn("escalated unanswered alerts",
			zap.Int64("escalated", escalated),
			zap.Duration("max_age", j.maxAge),
			zap.Duration("duration", time.Since(start)))
	}
}

// RegisterEscalationJob adds the escalation sweep to the scheduler
func RegisterEscalationJob(scheduler *Scheduler, alerts AlertEscalator, logger *zap.Logger, cronExpr string, maxAge, timeout time.Duration) error {
	job := NewEscalationJob(alerts, logger, maxAge, timeout)
	return scheduler.AddJob(EscalationJobName, cronExpr, job.Run)
}
