package concierge

import (
	"context"
	"strings"

	"marhaba/internal/domain"
)

// Provider produces the reply for one request. handled is false when the
// provider had nothing useful to say and the next provider should be tried;
// the messages it returned are still used if no later provider handles it.
type Provider interface {
	Name() string
	Provide(ctx context.Context, req Request, query string) (msgs []domain.Message, handled bool, err error)
}

// Orchestrator answers a free-text query by fanning out to the agents.
type Orchestrator interface {
	Orchestrate(ctx context.Context, query string) domain.OrchestrationResult
}

// AgentProvider replies with the merged agent text followed by any
// structured cards.
type AgentProvider struct {
	orch Orchestrator
}

// NewAgentProvider creates an AgentProvider backed by orch.
func NewAgentProvider(orch Orchestrator) *AgentProvider { return &AgentProvider{orch: orch} }

// Name implements Provider.
func (p *AgentProvider) Name() string { return "agents" }

// Provide orchestrates query. It handles the request only when at least one
// agent returned usable text; otherwise the apology is offered to later providers.
func (p *AgentProvider) Provide(ctx context.Context, _ Request, query string) ([]domain.Message, bool, error) {
	res := p.orch.Orchestrate(ctx, query)
	msgs := make([]domain.Message, 0, len(res.Cards)+1)
	msgs = append(msgs, domain.TextMessage(res.CombinedText))
	msgs = append(msgs, res.Cards...)
	return msgs, len(res.PerAgentResults) > 0, nil
}

// DemoMatcher maps a travel form onto a canned reply.
type DemoMatcher interface {
	Respond(form domain.TravelForm) []domain.Message
}

// DemoProvider replies from the static scenario table without touching the network.
type DemoProvider struct {
	matcher DemoMatcher
}

// NewDemoProvider creates a DemoProvider that answers through m.
func NewDemoProvider(m DemoMatcher) *DemoProvider { return &DemoProvider{matcher: m} }

func (p *DemoProvider) Name() string { return "demo" }

// Provide always handles the request. A missing form matches as an empty one.
func (p *DemoProvider) Provide(_ context.Context, req Request, _ string) ([]domain.Message, bool, error) {
	var form domain.TravelForm
	if req.Form != nil {
		form = *req.Form
	}
	return p.matcher.Respond(form), true, nil
}

const (
	royalAirLogo    = "https://logos-world.net/wp-content/uploads/2023/01/Royal-Air-Maroc-Logo.png"
	royalAirBooking = "https://www.royalairmaroc.com"
)

// MockProvider answers with a fixed sample reply. It always handles the request.
type MockProvider struct{}

func (MockProvider) Name() string { return "mock" }

func (MockProvider) Provide(_ context.Context, _ Request, query string) ([]domain.Message, bool, error) {
	return MockReply(query), true, nil
}

// MockReply is the sample reply for query: a greeting, plus a sample
// itinerary day when the query asks for a plan and a sample flight when it
// mentions flights.
func MockReply(query string) []domain.Message {
	msgs := []domain.Message{domain.TextMessage(
		"Great question! Here's what I found for your request: \"" + query + "\". Morocco offers incredible experiences during the 2030 World Cup.",
	)}
	q := strings.ToLower(query)
	if strings.Contains(q, "itinerary") || strings.Contains(q, "plan") {
		msgs = append(msgs, domain.NewMessage(domain.ItineraryDayPayload{
			Day:   1,
			Date:  "2030-07-12",
			Title: "Arrival & Medina Exploration",
			Events: []domain.ItineraryEvent{
				{Time: "14:00", Title: "Check into Riad",
					Description: "Settle into your eco-friendly Riad in the heart of the Medina.",
					MapLink:     "https://maps.google.com/?q=Marrakech+Medina"},
				{Time: "16:00", Title: "Jemaa el-Fnaa Square",
					Description: "Experience the vibrant heart of the city with street performers and local cuisine.",
					MapLink:     "https://maps.google.com/?q=Jemaa+el-Fnaa"},
				{Time: "19:30", Title: "Dinner at Nomad",
					Description: "Enjoy modern Moroccan cuisine with a stunning rooftop view of the medina.",
					MapLink:     "https://maps.google.com/?q=Nomad+Restaurant+Marrakech"},
			},
		}))
	}
	if strings.Contains(q, "flight") {
		msgs = append(msgs, domain.NewMessage(domain.FlightDetailsPayload{
			Airline:      "Royal Air Maroc",
			LogoURL:      royalAirLogo,
			Departure:    domain.FlightEndpoint{Code: "JFK", City: "New York", Time: "22:00"},
			Arrival:      domain.FlightEndpoint{Code: "RAK", City: "Marrakesh", Time: "11:30"},
			Price:        "€850",
			CarbonOffset: "Included",
			BookingLink:  royalAirBooking,
		}))
	}
	return msgs
}
