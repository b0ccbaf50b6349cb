package scheduler

import (
	"fmt"
	"time"

	"onboarding-bot/internal/common/logger"
	"onboarding-bot/internal/common/metrics"
	"onboarding-bot/internal/models"

	"github.com/robfig/cron/v3"
)

// Expirer closes open requests older than ttl.
type Expirer interface {
	Expire(now time.Time, ttl time.Duration) []models.PendingRequest
}

// Scheduler runs the stale request sweep on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	expirer Expirer
	ttl     time.Duration
	now     func() time.Time
	logger  logger.Logger
}

// NewScheduler registers the sweep. schedule uses the seconds-precision
// cron format, evaluated in UTC.
func NewScheduler(expirer Expirer, schedule string, ttl time.Duration, log logger.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron:    c,
		expirer: expirer,
		ttl:     ttl,
		now:     time.Now,
		logger:  log.WithFields(map[string]interface{}{"component": "scheduler"}),
	}

	if _, err := s.cron.AddFunc(schedule, s.SweepStaleRequests); err != nil {
		return nil, fmt.Errorf("register stale request sweep %q: %w", schedule, err)
	}
	return s, nil
}

// SweepStaleRequests closes every request opened more than ttl ago.
func (s *Scheduler) SweepStaleRequests() {
	expired := s.expirer.Expire(s.now(), s.ttl)
	for _, req := range expired {
		s.logger.Info("stale request expired", map[string]interface{}{
			"requestId":  req.ID,
			"memberId":   req.MemberID,
			"department": req.Department,
			"openedAt":   req.OpenedAt.Format(time.RFC3339),
		})
	}
	if len(expired) > 0 {
		metrics.RequestsExpired.Add(float64(len(expired)))
	}
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.logger.Info("starting cron scheduler", map[string]interface{}{
		"ttl": s.ttl.String(),
	})
	s.cron.Start()
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopped", nil)
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
