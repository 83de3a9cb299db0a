package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smallbiznis/meterbook/internal/clock"
	"github.com/smallbiznis/meterbook/internal/config"
	obsmetrics "github.com/smallbiznis/meterbook/internal/observability/metrics"
	"github.com/smallbiznis/meterbook/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const subject = "Time to read the meter"

// CursorReader reports the last stored reading.
type CursorReader interface {
	PreviousReading(ctx context.Context) (float64, error)
}

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	Email   email.Provider
	Cursor  CursorReader                `optional:"true"`
	Metrics *obsmetrics.ReminderMetrics `optional:"true"`
}

type Scheduler struct {
	cfg     config.ReminderConfig
	log     *zap.Logger
	clock   clock.Clock
	email   email.Provider
	cursor  CursorReader
	metrics *obsmetrics.ReminderMetrics

	mu        sync.Mutex
	lastCheck time.Time
}

func New(p Params) *Scheduler {
	cfg := p.Config.Reminder
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	return &Scheduler{
		cfg:       cfg,
		log:       p.Log.Named("reminder").With(zap.String("component", "reminder")),
		clock:     p.Clock,
		email:     p.Email,
		cursor:    p.Cursor,
		metrics:   p.Metrics,
		lastCheck: p.Clock.Now(),
	}
}

// Next returns the upcoming reminder time.
func (s *Scheduler) Next() time.Time {
	return NextReminderDate(s.clock.Now(), s.cfg.Day, s.cfg.Hour)
}

// RunOnce sends a reminder when a reminder time has passed since the previous
// check. It reports whether one was sent.
func (s *Scheduler) RunOnce(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	due := PreviousReminderDate(now, s.cfg.Day, s.cfg.Hour)
	s.metrics.SetNextDue(NextReminderDate(now, s.cfg.Day, s.cfg.Hour))

	if !due.After(s.lastCheck) {
		s.lastCheck = now
		s.metrics.RecordRun(obsmetrics.ReminderOutcomeIdle)
		return false, nil
	}

	if s.cfg.Recipient == "" {
		s.lastCheck = now
		s.metrics.RecordRun(obsmetrics.ReminderOutcomeSkipped)
		s.log.Info("reminder due but no recipient configured", zap.Time("due", due))
		return false, nil
	}

	if err := s.email.Send(ctx, []string{s.cfg.Recipient}, subject, s.body(ctx, due)); err != nil {
		s.metrics.RecordRun(obsmetrics.ReminderOutcomeFailed)
		return false, fmt.Errorf("send reminder: %w", err)
	}

	s.lastCheck = now
	s.metrics.RecordRun(obsmetrics.ReminderOutcomeSent)
	s.log.Info("reminder sent", zap.Time("due", due), zap.String("recipient", s.cfg.Recipient))
	return true, nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.metrics.ObserveRunLoopLag(s.clock.Now().Sub(nextRun))
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Warn("reminder run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.Interval)
	}
}

func (s *Scheduler) body(ctx context.Context, due time.Time) string {
	msg := fmt.Sprintf("Reading day was %s. Take a meter reading and log it.", due.Format("02.01.2006 15:04"))
	if s.cursor == nil {
		return msg
	}
	previous, err := s.cursor.PreviousReading(ctx)
	if err != nil {
		s.log.Warn("reminder could not read previous reading", zap.Error(err))
		return msg
	}
	return fmt.Sprintf("%s\nPrevious reading: %.2f", msg, previous)
}
