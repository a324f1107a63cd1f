package multiagent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marhaba/internal/domain"
)

func TestRegistryAllInOrder(t *testing.T) {
	r := NewRegistry()
	want := []string{
		"activities-agent", "flight-agent", "food-recommender", "hotel-agent",
		"morocco-itinerary-agent", "restaurant-agent", "travel-booking", "weather-forecast-agent",
	}
	all := r.All()
	require.Len(t, all, len(want))
	for i, d := range all {
		assert.Equal(t, want[i], d.Name)
		assert.NotEmpty(t, d.Keywords, d.Name)
		assert.NotNil(t, d.Extract, d.Name)
	}
}

func TestRegistryByName(t *testing.T) {
	r := NewRegistry()

	d, ok := r.ByName("flight-agent")
	require.True(t, ok)
	assert.Equal(t, "Flights", d.Label)

	_, ok = r.ByName("taxi-agent")
	assert.False(t, ok)
}

func TestRegistryHandsOutCopies(t *testing.T) {
	r := NewRegistry()
	d, _ := r.ByName("hotel-agent")
	d.Keywords[0] = "mutated"
	d.Label = "mutated"

	again, _ := r.ByName("hotel-agent")
	assert.Equal(t, "hotel", again.Keywords[0])
	assert.Equal(t, "Accommodation", again.Label)

	all := r.All()
	all[0].Keywords = nil
	assert.NotEmpty(t, r.All()[0].Keywords)
}

func TestRegistryDefault(t *testing.T) {
	assert.Equal(t, DefaultAgent, NewRegistry().Default().Name)
}

func TestNewRegistryFromValidates(t *testing.T) {
	noop := func(q string, _ time.Time) string { return q }

	_, err := NewRegistryFrom([]domain.AgentDescriptor{
		{Name: "a", Extract: noop}, {Name: "a", Extract: noop},
	}, "a")
	assert.True(t, errors.Is(err, domain.ErrDuplicate))

	_, err = NewRegistryFrom([]domain.AgentDescriptor{{Name: "a"}}, "b")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, domain.CodeAgentNotFound, domain.ErrorCodeOf(err))

	_, err = NewRegistryFrom([]domain.AgentDescriptor{{Name: ""}}, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	r, err := NewRegistryFrom([]domain.AgentDescriptor{{Name: "solo"}}, "solo")
	require.NoError(t, err)
	d := r.Default()
	assert.Equal(t, "solo", d.Label)
	assert.Equal(t, domain.KindText, d.Kind)
	assert.Equal(t, "q", d.Extract("q", time.Time{}))
	require.NotNil(t, d.Relevance)
	assert.Equal(t, 0.0, d.Score("anything"))
}

func TestRegistryDescriptorsScoreWithKeywordScorer(t *testing.T) {
	q := "What's the weather forecast in Marrakech?"
	d, ok := NewRegistry().ByName("weather-agent")
	require.True(t, ok)
	assert.Equal(t, Score(q, d.Keywords), d.Score(q))
	assert.Greater(t, d.Score(q), 0.0)
}

func TestRegistryFamilies(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []domain.Family{domain.FamilyFood, domain.FamilyAccommodation}, r.Families())
	assert.Equal(t, []string{"food-recommender", "restaurant-agent"}, r.Members(domain.FamilyFood))
	assert.Equal(t, []string{"hotel-agent", "travel-booking"}, r.Members(domain.FamilyAccommodation))
}

func TestRegistryLabel(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "Restaurants", r.Label("restaurant-agent"))
	assert.Equal(t, "ghost", r.Label("ghost"))
}
