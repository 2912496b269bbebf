// Package daemon hosts the background process that owns all agent
// engines for a project: it connects their tool routers once at
// startup, serves run and status requests over a Unix socket, and
// fires scheduled agent runs from a single cron loop.
package daemon

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ezagent/ez/internal/config"
	"github.com/ezagent/ez/pkg/agent"
	"github.com/ezagent/ez/pkg/provider"
	"github.com/ezagent/ez/pkg/toolrouter"
)

// Daemon wires configured agents to providers and tool routers and
// serves them over the project socket.
type Daemon struct {
	cfg       *config.ProjectConfig
	logger    zerolog.Logger
	providers *provider.Registry
	engines   map[string]*agent.Engine
	scheduler *Scheduler

	listener net.Listener
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func New(cfg *config.ProjectConfig, logger zerolog.Logger) *Daemon {
	return &Daemon{
		cfg:       cfg,
		logger:    logger,
		providers: provider.NewRegistry(),
		engines:   make(map[string]*agent.Engine),
	}
}

// Initialize constructs and initializes one engine per configured
// agent. Providers are resolved lazily on first use and shared across
// agents that name the same provider and model; tool connections are
// opened here, once, and reused for every run until shutdown.
func (d *Daemon) Initialize(ctx context.Context) error {
	agentNames := d.cfg.AgentNames()
	for _, name := range agentNames {
		ac := d.cfg.Agents[name]
		prov, err := d.providers.Get(d.cfg.ProviderFor(ac), d.cfg.ModelFor(ac))
		if err != nil {
			return fmt.Errorf("agent %q: %w", name, err)
		}
		router := toolrouter.New(d.cfg.ProjectDir, ac.Tools, agentNames, d.logger)
		engine := agent.New(agent.Config{
			Name:        name,
			Description: ac.Description,
			Skills:      ac.Skills,
			ProjectDir:  d.cfg.ProjectDir,
			Provider:    prov,
			Router:      router,
			Delegator:   d,
			Logger:      d.logger,
		})
		if err := engine.Initialize(ctx); err != nil {
			d.shutdownEngines()
			return fmt.Errorf("agent %q: %w", name, err)
		}
		d.engines[name] = engine
		d.logger.Info().Str("agent", name).Msg("agent initialized")
	}

	sched, err := newScheduler(d.cfg, d.fireScheduled, d.logger)
	if err != nil {
		d.shutdownEngines()
		return fmt.Errorf("schedule: %w", err)
	}
	d.scheduler = sched
	return nil
}

// RunAgent routes a delegated message to the named sibling engine. An
// unknown agent name yields an inline error result rather than a Go
// error, so the caller's LLM sees the failure as a tool result.
func (d *Daemon) RunAgent(ctx context.Context, name, message string, depth int, debug bool) (agent.Result, error) {
	engine, ok := d.engines[name]
	if !ok {
		return agent.Result{Text: fmt.Sprintf("[Error: Unknown agent '%s']", name)}, nil
	}
	return engine.Run(ctx, message, depth, debug)
}

// fireScheduled runs one scheduled invocation. Errors are logged and
// dropped so a failing run never disturbs the schedule.
func (d *Daemon) fireScheduled(ctx context.Context, agentName, message string) {
	result, err := d.RunAgent(ctx, agentName, message, 0, false)
	if err != nil {
		d.logger.Error().Err(err).Str("agent", agentName).Msg("scheduled run failed")
		return
	}
	d.logger.Info().
		Str("agent", agentName).
		Int("response_chars", len(result.Text)).
		Msg("scheduled run completed")
}

// status builds the full status snapshot served to clients.
func (d *Daemon) status() map[string]AgentStatus {
	out := make(map[string]AgentStatus, len(d.cfg.Agents))
	for _, name := range d.cfg.AgentNames() {
		ac := d.cfg.Agents[name]
		st := AgentStatus{
			Description: ac.Description,
			Provider:    d.cfg.ProviderFor(ac),
			Model:       d.cfg.ModelFor(ac),
			Tools:       append([]string{}, ac.Tools...),
			Skills:      append([]string{}, ac.Skills...),
			Schedule:    []ScheduleStatus{},
		}
		if d.scheduler != nil {
			st.Schedule = d.scheduler.snapshot(name)
		}
		out[name] = st
	}
	return out
}

func (d *Daemon) shutdownEngines() {
	for name, engine := range d.engines {
		engine.Shutdown()
		d.logger.Debug().Str("agent", name).Msg("agent shut down")
	}
}
