package gateway

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"marhaba/internal/domain"
)

// Metrics counts orchestration activity seen on the event bus.
type Metrics struct {
	Orchestrations       atomic.Int64
	AgentCalls           atomic.Int64
	AgentFailures        atomic.Int64
	StructuredFallbacks  atomic.Int64
	ConversationsCreated atomic.Int64
	AgentProbes          atomic.Int64

	started   time.Time
	unsub     []func()
	closeOnce sync.Once
}

// NewMetrics subscribes counters to bus. bus may be nil.
func NewMetrics(bus domain.EventBus) *Metrics {
	m := &Metrics{started: time.Now()}
	if bus == nil {
		return m
	}
	count := func(t domain.EventType, c *atomic.Int64) {
		m.unsub = append(m.unsub, bus.Subscribe(t, func(context.Context, domain.Event) { c.Add(1) }))
	}
	count(domain.EventOrchestrationCompleted, &m.Orchestrations)
	count(domain.EventAgentCallCompleted, &m.AgentCalls)
	count(domain.EventAgentCallFailed, &m.AgentFailures)
	count(domain.EventStructuredFallback, &m.StructuredFallbacks)
	count(domain.EventConversationCreated, &m.ConversationsCreated)
	count(domain.EventAgentProbed, &m.AgentProbes)
	return m
}

// Close detaches the counters from the bus.
func (m *Metrics) Close() {
	m.closeOnce.Do(func() {
		for _, u := range m.unsub {
			u()
		}
	})
}

// ServeHTTP writes the counters in Prometheus text format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n", name, value)
	}
	metric("marhaba_orchestrations_total", "counter", "Completed orchestrations.", m.Orchestrations.Load())
	metric("marhaba_agent_calls_total", "counter", "Successful agent calls.", m.AgentCalls.Load())
	metric("marhaba_agent_failures_total", "counter", "Failed agent calls.", m.AgentFailures.Load())
	metric("marhaba_structured_fallbacks_total", "counter", "Structured cards replaced by the offline fallback.", m.StructuredFallbacks.Load())
	metric("marhaba_conversations_created_total", "counter", "Conversations created.", m.ConversationsCreated.Load())
	metric("marhaba_agent_probes_total", "counter", "Agent availability probes.", m.AgentProbes.Load())
	metric("marhaba_uptime_seconds", "gauge", "Seconds since the gateway started.", int64(time.Since(m.started).Seconds()))
	metric("go_goroutines", "gauge", "Number of goroutines.", runtime.NumGoroutine())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metric("go_memstats_alloc_bytes", "gauge", "Bytes of allocated heap objects.", mem.Alloc)
}
