package watch

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/zeromicro/go-zero/core/logx"
)

// Scheduler runs a Job on a six-field cron spec.
type Scheduler struct {
	cron *cron.Cron
	job  *Job
	ctx  context.Context
}

// NewScheduler registers job under spec. Overlapping triggers are skipped.
func NewScheduler(ctx context.Context, spec string, job *Job) (*Scheduler, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s := &Scheduler{cron: c, job: job, ctx: ctx}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("watch: register %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logx.Infof("watch: scheduler started, %d targets", len(s.job.Targets()))
}

// Stop stops scheduling and returns a context done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	done := s.cron.Stop()
	logx.Info("watch: scheduler stopped")
	return done
}

// RunNow executes the job immediately.
func (s *Scheduler) RunNow() (*Report, error) {
	return s.job.Run(s.ctx)
}

func (s *Scheduler) tick() {
	if _, err := s.job.Run(s.ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			logx.Info("watch: previous run still active, skipping")
			return
		}
		logx.Errorf("watch: run failed: %v", err)
	}
}

// cronLogger routes cron diagnostics through logx.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logx.Debugf("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logx.Errorf("cron: %s %v: %v", msg, keysAndValues, err)
}
