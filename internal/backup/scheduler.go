package backup

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

const (
	DefaultSchedule      = "@weekly"
	DefaultPurgeSchedule = "@every 15m"
)

// Scheduler runs backups (and preview purges, when the store needs them) on
// their own goroutine. Jobs never overlap with themselves.
type Scheduler struct {
	cron *cron.Cron
	svc  *Service
	log  logger.Logger
}

// ParseSchedule accepts standard five-field cron specs and descriptors such
// as @weekly or @every 1h.
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSchedule
	}
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("backup: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func NewScheduler(svc *Service, spec string, log logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	sched, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})))
	s := &Scheduler{cron: c, svc: svc, log: log}

	c.Schedule(sched, cron.FuncJob(s.runBackup))
	if svc.CanPurge() {
		purge, err := cron.ParseStandard(DefaultPurgeSchedule)
		if err != nil {
			return nil, err
		}
		c.Schedule(purge, cron.FuncJob(s.runPurge))
	}
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runBackup() {
	if _, err := s.svc.Run(context.Background()); err != nil {
		s.log.Error("scheduled backup failed", "error", err)
	}
}

func (s *Scheduler) runPurge() {
	if _, err := s.svc.PurgePreviews(context.Background()); err != nil {
		s.log.Error("preview purge failed", "error", err)
	}
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
