package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"marhaba/internal/adapter/agent"
	"marhaba/internal/adapter/gateway"
	"marhaba/internal/adapter/render"
	"marhaba/internal/adapter/store"
	"marhaba/internal/domain"
	"marhaba/internal/infra/config"
	"marhaba/internal/infra/logger"
	"marhaba/internal/infra/tracer"
	"marhaba/internal/usecase/concierge"
	"marhaba/internal/usecase/demo"
	"marhaba/internal/usecase/eventbus"
	"marhaba/internal/usecase/multiagent"
	"marhaba/internal/usecase/recommend"
	"marhaba/internal/usecase/scheduling"
)

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	bus       *eventbus.Bus
	registry  *multiagent.Registry
	breaker   *agent.BreakerCaller // nil when the circuit breaker is disabled
	store     *store.SQLiteConversationStore
	concierge *concierge.Service
	board     *scheduling.StatusBoard
	scheduler *scheduling.Scheduler // nil when disabled

	closers []func() error
}

func newApp(ctx context.Context, cfgPath string) (_ *app, err error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{cfg: cfg, log: log, closers: []func() error{logCloser}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.closers = append(a.closers, func() error { return tracerShutdown(context.Background()) })

	a.bus = eventbus.New(logger.Component(log, "eventbus"))
	a.closers = append(a.closers, func() error { a.bus.Close(); return nil })

	// Agents
	a.registry, err = multiagent.NewRegistryFrom(multiagent.DefaultAgents(), cfg.Agents.Default)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	client := agent.NewClientFromConfig(cfg.Agents, logger.Component(log, "agent"))
	var caller domain.AgentCaller = client
	if cfg.Agents.CircuitBreaker.Enabled {
		a.breaker = agent.NewBreakerCaller(client, cfg.Agents.CircuitBreaker, logger.Component(log, "breaker"))
		caller = a.breaker
	}

	var fetcher domain.StructuredFetcher
	switch cfg.Orchestrator.StructuredSource {
	case "local":
		fetcher = recommend.NewLocalFetcher(nil)
	default:
		fetcher, err = agent.NewStructuredFetcher(caller, nil)
		if err != nil {
			return nil, fmt.Errorf("structured fetcher: %w", err)
		}
	}

	router := multiagent.NewRelevanceRouterWithLogger(a.registry, cfg.Orchestrator.SelectionThreshold, logger.Component(log, "router"))
	orch := multiagent.NewOrchestrator(router, caller,
		multiagent.WithStructuredFetcher(fetcher),
		multiagent.WithStructuredThreshold(cfg.Orchestrator.StructuredThreshold),
		multiagent.WithMaxParallel(cfg.Orchestrator.MaxParallel),
		multiagent.WithEventBus(a.bus),
		multiagent.WithLogger(logger.Component(log, "orchestrator")),
	)

	// Conversations
	a.store, err = store.NewSQLiteConversationStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	a.closers = append(a.closers, a.store.Close)

	mode := concierge.Mode{AgentOnly: cfg.Mode.AgentOnly, Demo: cfg.Mode.Demo}
	a.concierge = concierge.NewService(
		concierge.Chain(mode, orch, demoMatcher(logger.Component(log, "demo"))),
		concierge.WithStore(a.store),
		concierge.WithEventBus(a.bus),
		concierge.WithLogger(logger.Component(log, "concierge")),
	)

	// Background tasks
	names := make([]string, 0, len(a.registry.All()))
	for _, d := range a.registry.All() {
		names = append(names, d.Name)
	}
	a.board = scheduling.NewStatusBoard(client, names, a.bus, logger.Component(log, "probe"))

	if cfg.Scheduler.Enabled {
		a.scheduler = scheduling.NewScheduler(logger.Component(log, "scheduler"))
		a.scheduler.RegisterAction(scheduling.ActionAgentProbe, a.board.ProbeAll)
		a.scheduler.RegisterAction(scheduling.ActionConversationPrune,
			scheduling.PruneConversations(a.store, cfg.Store.MaxConversations, logger.Component(log, "prune")))
		for _, t := range cfg.Scheduler.Tasks {
			if err := a.scheduler.AddTask(scheduling.Task{
				Name:     t.Name,
				Schedule: t.Schedule,
				Action:   scheduling.Action(t.Action),
			}); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

func demoMatcher(log *slog.Logger) *demo.Matcher {
	return demo.NewMatcher(log, demo.BuiltinScenarios()...)
}

func conciergeRequest(query string) concierge.Request {
	return concierge.Request{Query: query, SessionID: "cli"}
}

func (a *app) gateway(ctx context.Context) *gateway.Server {
	deps := gateway.Deps{
		Concierge:     a.concierge,
		Conversations: a.store,
		Registry:      a.registry,
		Status:        a.board,
		Bus:           a.bus,
		Logger:        logger.Component(a.log, "gateway"),
	}
	if a.breaker != nil {
		deps.Circuits = a.breaker
	}
	return gateway.NewServer(ctx, deps, a.cfg.Gateway, deps.Logger)
}

func (a *app) renderer() (*render.Renderer, error) {
	plain := hasFlag("--plain") || os.Getenv("NO_COLOR") != "" || !stdoutIsTerminal()
	return render.New(terminalWidth(), plain)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
