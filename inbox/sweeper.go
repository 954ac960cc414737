package inbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// DefaultSweepSchedule is the cron spec for pruning processed ids.
const DefaultSweepSchedule = "@every 10m"

// Sweeper periodically prunes deduplicators.
type Sweeper struct {
	cron   *rcron.Cron
	logger *slog.Logger

	mu   sync.Mutex
	jobs []sweepJob
}

type sweepJob struct {
	target Sweepable
	ttl    time.Duration
}

// NewSweeper creates a stopped sweeper.
func NewSweeper(logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cron:   rcron.New(),
		logger: logger.With("component", "inbox-sweeper"),
	}
}

// Add schedules target to forget ids older than ttl. An empty schedule
// uses DefaultSweepSchedule.
func (s *Sweeper) Add(schedule string, target Sweepable, ttl time.Duration) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	job := sweepJob{target: target, ttl: ttl}
	if _, err := s.cron.AddFunc(schedule, func() { s.run(context.Background(), job) }); err != nil {
		return err
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	return nil
}

// RunNow sweeps every registered target once and returns the total removed.
func (s *Sweeper) RunNow(ctx context.Context) int {
	s.mu.Lock()
	jobs := append([]sweepJob(nil), s.jobs...)
	s.mu.Unlock()

	total := 0
	for _, job := range jobs {
		total += s.run(ctx, job)
	}
	return total
}

func (s *Sweeper) run(ctx context.Context, job sweepJob) int {
	removed, err := job.target.Sweep(ctx, job.ttl)
	if err != nil {
		s.logger.Error("sweep failed", "err", err)
		return 0
	}
	if removed > 0 {
		s.logger.Info("swept processed messages", "removed", removed)
	}
	return removed
}

// Start begins running scheduled sweeps in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
