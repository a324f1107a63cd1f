package multiagent

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"marhaba/internal/domain"
	"marhaba/internal/infra/tracer"
	"marhaba/internal/usecase/recommend"
)

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithStructuredFetcher sets the source of structured family cards. Without
// one, participating families always get their fallback payload.
func WithStructuredFetcher(f domain.StructuredFetcher) OrchestratorOption {
	return func(o *Orchestrator) { o.structured = f }
}

// WithStructuredThreshold sets the participation a family must exceed to get a card.
func WithStructuredThreshold(t float64) OrchestratorOption {
	return func(o *Orchestrator) { o.structuredThreshold = t }
}

// WithMaxParallel bounds concurrent agent calls; 0 means unbounded.
func WithMaxParallel(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.maxParallel = n }
}

// WithEventBus publishes orchestration events on bus.
func WithEventBus(bus domain.EventBus) OrchestratorOption {
	return func(o *Orchestrator) { o.bus = bus }
}

// WithClock overrides the time source handed to context extractors.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// Orchestrator selects agents for a query, calls them concurrently and merges
// their replies.
type Orchestrator struct {
	router              *RelevanceRouter
	caller              domain.AgentCaller
	composer            *Composer
	structured          domain.StructuredFetcher
	structuredThreshold float64
	maxParallel         int
	bus                 domain.EventBus
	now                 func() time.Time
	logger              *slog.Logger
}

// NewOrchestrator creates an Orchestrator that routes with router and calls
// agents through caller.
func NewOrchestrator(router *RelevanceRouter, caller domain.AgentCaller, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		router:              router,
		caller:              caller,
		composer:            NewComposer(router.Registry()),
		structuredThreshold: DefaultStructuredThreshold,
		now:                 time.Now,
		logger:              discardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Orchestrate answers query. It never fails: agent errors are logged and
// reported in Failures, and an empty outcome becomes the apology text.
func (o *Orchestrator) Orchestrate(ctx context.Context, query string) domain.OrchestrationResult {
	ctx, span := tracer.StartSpan(ctx, "orchestrator.run")
	defer span.End()

	selected := o.router.Select(query)
	names := make([]string, len(selected))
	for i, s := range selected {
		names[i] = s.Agent.Name
	}
	o.publish(ctx, domain.EventOrchestrationStarted, domain.OrchestrationEvent{Query: query, Agents: names})
	o.logger.Info("orchestrating", "agents", names)

	// Cards are fetched alongside the fan-out.
	cardsDone := make(chan []domain.Message, 1)
	go func() { cardsDone <- o.cards(ctx, query) }()

	calls := o.fanOut(ctx, query, selected)

	var result domain.OrchestrationResult
	for _, c := range calls {
		switch {
		case c.Err != nil:
			result.Failures = append(result.Failures, c)
		case c.Succeeded && c.RelevanceScore > 0 && strings.TrimSpace(c.Content) != "":
			result.PerAgentResults = append(result.PerAgentResults, c)
		default:
			o.logger.Debug("dropping non-relevant result", "agent", c.AgentName, "relevance", c.RelevanceScore)
		}
	}
	slices.SortStableFunc(result.PerAgentResults, func(a, b domain.AgentCallResult) int {
		switch {
		case a.RelevanceScore > b.RelevanceScore:
			return -1
		case a.RelevanceScore < b.RelevanceScore:
			return 1
		}
		return 0
	})

	result.CombinedText = o.composer.Combine(result.PerAgentResults, query)
	result.Cards = <-cardsDone

	span.SetAttributes(
		tracer.IntAttr("agents.selected", len(selected)),
		tracer.IntAttr("agents.succeeded", len(result.PerAgentResults)),
		tracer.IntAttr("agents.failed", len(result.Failures)),
	)
	if len(result.PerAgentResults) == 0 {
		tracer.RecordError(span, fmt.Errorf("no usable agent result"))
	} else {
		tracer.SetOK(span)
	}
	o.publish(ctx, domain.EventOrchestrationCompleted, domain.OrchestrationEvent{
		Query: query, Agents: names, Failures: len(result.Failures),
	})
	return result
}

// fanOut calls every selected agent concurrently. Each task writes only its
// own slot, and a failing task never cancels its siblings.
func (o *Orchestrator) fanOut(ctx context.Context, query string, selected []Selection) []domain.AgentCallResult {
	results := make([]domain.AgentCallResult, len(selected))
	now := o.now()

	var g errgroup.Group
	if o.maxParallel > 0 {
		g.SetLimit(o.maxParallel)
	}
	for i, sel := range selected {
		g.Go(func() error {
			results[i] = o.callOne(ctx, query, sel, now)
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors

	return results
}

func (o *Orchestrator) callOne(ctx context.Context, query string, sel Selection, now time.Time) (res domain.AgentCallResult) {
	res = domain.AgentCallResult{AgentName: sel.Agent.Name, RelevanceScore: sel.Score}
	defer func() {
		if r := recover(); r != nil {
			res.Succeeded = false
			res.Err = fmt.Errorf("agent %s: panic: %v", sel.Agent.Name, r)
			o.logger.Error("agent call panicked", "agent", sel.Agent.Name, "panic", r)
		}
	}()

	input := sel.Agent.Extract(query, now)
	content, err := o.caller.Call(ctx, sel.Agent.Name, input)
	if err != nil {
		res.Err = err
		o.logger.Warn("agent call failed", "agent", sel.Agent.Name, "error", err, "code", domain.ErrorCodeOf(err))
		o.publish(ctx, domain.EventAgentCallFailed, domain.AgentCallEvent{
			Agent: sel.Agent.Name, Relevance: sel.Score,
			Error: err.Error(), Code: string(domain.ErrorCodeOf(err)),
		})
		return res
	}
	res.Content = content
	res.Succeeded = true
	o.publish(ctx, domain.EventAgentCallCompleted, domain.AgentCallEvent{Agent: sel.Agent.Name, Relevance: sel.Score})
	return res
}

// cards fetches a structured payload for every family whose participation
// exceeds the structured threshold, substituting the fallback on failure.
func (o *Orchestrator) cards(ctx context.Context, query string) []domain.Message {
	var fams []domain.Family
	for _, fam := range o.router.Registry().Families() {
		p := o.router.Participation(query, fam)
		if p <= o.structuredThreshold {
			continue
		}
		o.logger.Debug("family participates", "family", fam, "participation", p)
		fams = append(fams, fam)
	}
	if len(fams) == 0 {
		return nil
	}

	payloads := make([]domain.Payload, len(fams))
	var g errgroup.Group
	for i, fam := range fams {
		g.Go(func() error {
			payloads[i] = o.fetchCard(ctx, fam, query)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Message, len(payloads))
	for i, p := range payloads {
		out[i] = domain.NewMessage(p)
	}
	return out
}

func (o *Orchestrator) fetchCard(ctx context.Context, fam domain.Family, query string) (payload domain.Payload) {
	if o.structured == nil {
		return recommend.FallbackFor(fam)
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("structured fetch panicked", "family", fam, "panic", r)
			o.publish(ctx, domain.EventStructuredFallback, map[string]string{"family": string(fam)})
			payload = recommend.FallbackFor(fam)
		}
	}()
	payload, err := o.structured.FetchStructured(ctx, fam, query)
	if err != nil || payload == nil {
		o.logger.Warn("structured fetch failed, using fallback", "family", fam, "error", err)
		o.publish(ctx, domain.EventStructuredFallback, map[string]string{"family": string(fam)})
		return recommend.FallbackFor(fam)
	}
	return payload
}

func (o *Orchestrator) publish(ctx context.Context, t domain.EventType, payload any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(ctx, domain.NewEvent(t, domain.SessionIDFromContext(ctx), payload))
}
