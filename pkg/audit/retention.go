package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// Purger deletes audit rows older than the retention window on a cron
// schedule.
type Purger struct {
	logins    *store.LoginLogStore
	ops       *store.OperationLogStore
	retention time.Duration
	logger    *observability.Logger

	cron *cron.Cron
}

// NewPurger creates a purger. retentionDays must be positive.
func NewPurger(logins *store.LoginLogStore, ops *store.OperationLogStore, retentionDays int, logger *observability.Logger) (*Purger, error) {
	if retentionDays <= 0 {
		return nil, fmt.Errorf("audit retention must be positive, got %d days", retentionDays)
	}
	return &Purger{
		logins:    logins,
		ops:       ops,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
	}, nil
}

// Start schedules the purge and begins running it. schedule is a standard
// five-field cron expression.
func (p *Purger) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := p.PurgeOnce(ctx); err != nil {
			p.logger.WithError(err).Error("audit purge failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling audit purge: %w", err)
	}
	c.Start()
	p.cron = c
	return nil
}

// Stop halts the schedule and waits for a running purge to finish.
func (p *Purger) Stop() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
}

// PurgeOnce deletes all audit rows past the retention window.
func (p *Purger) PurgeOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-p.retention)

	loginCount, err := p.logins.PurgeBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	opCount, err := p.ops.PurgeBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if p.logger != nil {
		p.logger.WithFields(map[string]interface{}{
			"login_logs":     loginCount,
			"operation_logs": opCount,
			"cutoff":         cutoff.Format(time.RFC3339),
		}).Info("purged expired audit logs")
	}
	return nil
}
