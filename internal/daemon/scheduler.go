package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ezagent/ez/internal/config"
)

// idleWait is how long the scheduler sleeps between checks when no
// agent has a schedule, so config-free daemons stay cheap.
const idleWait = 60 * time.Second

// scheduleEntry is one cron line for one agent, with a moving cursor
// for its next firing time.
type scheduleEntry struct {
	agentName string
	cronExpr  string
	message   string
	sched     cron.Schedule
	nextRun   time.Time
}

// fireFunc runs one scheduled agent invocation. Firings are
// fire-and-forget: errors are the callee's to log.
type fireFunc func(ctx context.Context, agentName, message string)

// Scheduler drives all schedule entries from a single loop, sleeping
// until the earliest next firing and launching due entries in their
// own goroutines so a slow run never delays the next scan.
type Scheduler struct {
	mu      sync.RWMutex
	entries []*scheduleEntry
	fire    fireFunc
	logger  zerolog.Logger
}

func newScheduler(cfg *config.ProjectConfig, fire fireFunc, logger zerolog.Logger) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	var entries []*scheduleEntry
	now := time.Now()
	for _, name := range cfg.AgentNames() {
		for _, spec := range cfg.Agents[name].Schedule {
			sched, err := parser.Parse(spec.Cron)
			if err != nil {
				return nil, err
			}
			entries = append(entries, &scheduleEntry{
				agentName: name,
				cronExpr:  spec.Cron,
				message:   spec.Message,
				sched:     sched,
				nextRun:   sched.Next(now),
			})
		}
	}
	return &Scheduler{entries: entries, fire: fire, logger: logger}, nil
}

// Run blocks until ctx is cancelled, firing entries as they come due.
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.entries) > 0 {
		s.logger.Info().Int("entries", len(s.entries)).Msg("scheduler started")
	}
	for {
		wake := s.nextWake()
		delay := time.Until(wake)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		} else {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
		s.fireDue(ctx, time.Now())
	}
}

// nextWake returns the earliest pending firing time, or a time
// idleWait from now when nothing is scheduled.
func (s *Scheduler) nextWake() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return time.Now().Add(idleWait)
	}
	earliest := s.entries[0].nextRun
	for _, e := range s.entries[1:] {
		if e.nextRun.Before(earliest) {
			earliest = e.nextRun
		}
	}
	return earliest
}

// fireDue launches every entry whose cursor is at or before now and
// advances its cursor. Returns the number of entries fired.
func (s *Scheduler) fireDue(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	fired := 0
	for _, e := range s.entries {
		if e.nextRun.After(now) {
			continue
		}
		s.logger.Info().
			Str("agent", e.agentName).
			Str("cron", e.cronExpr).
			Msg("schedule fired")
		agentName, message := e.agentName, e.message
		go s.fire(ctx, agentName, message)
		e.nextRun = e.sched.Next(now)
		fired++
	}
	return fired
}

// snapshot returns the live schedule state for one agent, for status
// reporting.
func (s *Scheduler) snapshot(agentName string) []ScheduleStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []ScheduleStatus{}
	for _, e := range s.entries {
		if e.agentName != agentName {
			continue
		}
		out = append(out, ScheduleStatus{
			Cron:    e.cronExpr,
			Message: e.message,
			NextRun: e.nextRun.Format(time.RFC3339),
		})
	}
	return out
}
