package multiagent

import (
	"fmt"
	"slices"
	"time"

	"marhaba/internal/domain"
	"marhaba/internal/usecase/extract"
)

// DefaultAgent answers when no agent is relevant enough.
const DefaultAgent = "food-recommender"

// DefaultAgents returns the built-in agent table in registry order.
func DefaultAgents() []domain.AgentDescriptor {
	return []domain.AgentDescriptor{
		{
			Name:  "activities-agent",
			Label: "Activities & Attractions",
			Keywords: []string{"activity", "activities", "things to do", "attraction", "attractions",
				"visit", "sightseeing", "tour", "experience", "museum", "park", "entertainment",
				"adventure", "cultural", "historical"},
			Kind:    domain.KindText,
			Extract: extract.Activities,
		},
		{
			Name:  "flight-agent",
			Label: "Flights",
			Keywords: []string{"flight", "flights", "plane", "airplane", "airline", "departure",
				"arrival", "airport", "fly", "flying", "ticket", "booking flight", "air travel"},
			Kind:    domain.KindText,
			Extract: extract.Flight,
		},
		{
			Name:  "food-recommender",
			Label: "Food Recommendations",
			Keywords: []string{"food", "meal", "eat", "eating", "restaurant", "cuisine", "dish",
				"recipe", "cooking", "taste", "flavor", "spicy", "sweet", "hungry", "dinner",
				"lunch", "breakfast", "traditional food"},
			Kind:    domain.KindStructured,
			Family:  domain.FamilyFood,
			Extract: extract.Food,
		},
		{
			Name:  "hotel-agent",
			Label: "Accommodation",
			Keywords: []string{"hotel", "hotels", "accommodation", "stay", "room", "booking hotel",
				"check-in", "check-out", "resort", "lodge"},
			Kind:    domain.KindStructured,
			Family:  domain.FamilyAccommodation,
			Extract: extract.Hotel,
		},
		{
			Name:  "morocco-itinerary-agent",
			Label: "Itinerary",
			Keywords: []string{"itinerary", "plan", "trip", "travel plan", "schedule", "route",
				"journey", "day by day", "visit plan", "morocco trip", "travel guide"},
			Kind:    domain.KindText,
			Extract: extract.Itinerary,
		},
		{
			Name:  "restaurant-agent",
			Label: "Restaurants",
			Keywords: []string{"restaurant", "restaurants", "dining", "dine", "eat out", "table",
				"reservation", "menu", "chef", "local restaurant", "fine dining"},
			Kind:    domain.KindText,
			Family:  domain.FamilyFood,
			Extract: extract.Restaurant,
		},
		{
			Name:  "travel-booking",
			Label: "Travel Booking",
			Keywords: []string{"book", "booking", "reserve", "reservation", "travel booking",
				"package", "deal", "travel deal", "budget", "cost", "price"},
			Kind:    domain.KindText,
			Family:  domain.FamilyAccommodation,
			Extract: extract.Booking,
		},
		{
			Name:  "weather-forecast-agent",
			Label: "Weather",
			Keywords: []string{"weather", "temperature", "rain", "sunny", "cloudy", "forecast",
				"climate", "hot", "cold", "wind", "humidity", "season"},
			Kind:    domain.KindText,
			Extract: extract.Weather,
		},
	}
}

// Registry is an immutable table of agent descriptors built once at startup.
// Lookups hand out copies, so callers cannot alter the table.
type Registry struct {
	agents      []domain.AgentDescriptor
	index       map[string]int
	defaultName string
}

// NewRegistry builds the registry from the built-in agent table.
func NewRegistry() *Registry {
	r, err := NewRegistryFrom(DefaultAgents(), DefaultAgent)
	if err != nil {
		panic(err) // built-in table is known good
	}
	return r
}

// NewRegistryFrom builds a registry from descs. Names must be unique and
// defaultName must be one of them.
func NewRegistryFrom(descs []domain.AgentDescriptor, defaultName string) (*Registry, error) {
	r := &Registry{
		agents:      make([]domain.AgentDescriptor, 0, len(descs)),
		index:       make(map[string]int, len(descs)),
		defaultName: defaultName,
	}
	for _, d := range descs {
		if d.Name == "" {
			return nil, fmt.Errorf("registry: %w: agent without name", domain.ErrInvalidInput)
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, domain.NewSubSystemError("agent", "Registry.New", domain.ErrDuplicate, d.Name)
		}
		if d.Label == "" {
			d.Label = d.Name
		}
		if d.Kind == "" {
			d.Kind = domain.KindText
		}
		if d.Extract == nil {
			d.Extract = func(q string, _ time.Time) string { return q }
		}
		if d.Relevance == nil {
			d.Relevance = Score
		}
		d.Keywords = slices.Clone(d.Keywords)
		r.index[d.Name] = len(r.agents)
		r.agents = append(r.agents, d)
	}
	if _, ok := r.index[defaultName]; !ok {
		return nil, domain.NewSubSystemError("agent", "Registry.New", domain.ErrNotFound, "default agent "+defaultName)
	}
	return r, nil
}

func clone(d domain.AgentDescriptor) domain.AgentDescriptor {
	d.Keywords = slices.Clone(d.Keywords)
	return d
}

// All returns every descriptor in registry order.
func (r *Registry) All() []domain.AgentDescriptor {
	out := make([]domain.AgentDescriptor, len(r.agents))
	for i, d := range r.agents {
		out[i] = clone(d)
	}
	return out
}

// ByName returns the descriptor for name.
func (r *Registry) ByName(name string) (domain.AgentDescriptor, bool) {
	i, ok := r.index[name]
	if !ok {
		return domain.AgentDescriptor{}, false
	}
	return clone(r.agents[i]), true
}

// Default returns the fallback agent.
func (r *Registry) Default() domain.AgentDescriptor {
	return clone(r.agents[r.index[r.defaultName]])
}

// Label returns the display label for an agent, or its name when unknown.
func (r *Registry) Label(name string) string {
	if i, ok := r.index[name]; ok {
		return r.agents[i].Label
	}
	return name
}

// Members returns the names of the agents in family, in registry order.
func (r *Registry) Members(family domain.Family) []string {
	var names []string
	for _, d := range r.agents {
		if d.Family == family {
			names = append(names, d.Name)
		}
	}
	return names
}

// Families returns the structured families present in the registry.
func (r *Registry) Families() []domain.Family {
	var fams []domain.Family
	for _, d := range r.agents {
		if d.Family != "" && !slices.Contains(fams, d.Family) {
			fams = append(fams, d.Family)
		}
	}
	return fams
}
