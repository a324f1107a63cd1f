package demo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marhaba/internal/domain"
)

func TestBuiltinScenariosLoad(t *testing.T) {
	sc := BuiltinScenarios()
	require.Len(t, sc, 3)
	for _, s := range sc {
		require.Len(t, s.Messages, 3, s.Name)
		assert.Equal(t, domain.MessageText, s.Messages[0].Type())
		assert.Equal(t, domain.MessageAccommodationRecommendations, s.Messages[1].Type())
		assert.Equal(t, domain.MessageFoodRecommendations, s.Messages[2].Type())
		assert.NotEmpty(t, s.FormValues)
	}
}

func TestMatchPicksScenarioForItsOwnForm(t *testing.T) {
	m := NewMatcher(nil)
	forms := map[string]domain.TravelForm{
		"Luxury Marrakech Experience": {
			Destination: "Marrakech", HotelPreference: "luxury", BudgetRange: "luxury",
			Amenities: []string{"WiFi", "Pool", "Spa"}, SpiceTolerance: "medium",
		},
		"Budget Adventure Fez Trip": {
			Destination: "Fez", Passengers: "1", ClassPreference: "economy",
			CuisinePreferences: []string{"Street Food"}, SpiceTolerance: "hot",
		},
		"Coastal Casablanca Business Trip": {
			Destination: "Casablanca", ClassPreference: "business",
			CuisinePreferences: []string{"International", "Mediterranean"}, PhysicalLevel: "low",
		},
	}
	for want, form := range forms {
		t.Run(want, func(t *testing.T) {
			got, score := m.Match(form.Values())
			assert.Equal(t, want, got.Name)
			assert.Greater(t, score, 0.0)
		})
	}
}

func TestScoreFullMatchIsOne(t *testing.T) {
	for _, s := range BuiltinScenarios() {
		assert.InDelta(t, 1.0, Score(s.FormValues, s.FormValues), 1e-9, s.Name)
	}
}

func TestScoreRules(t *testing.T) {
	tests := []struct {
		name     string
		scenario map[string]any
		values   map[string]any
		want     float64
	}{
		{"exact string ignores case", map[string]any{"d": "Fez"}, map[string]any{"d": "fez"}, 1},
		{"containment earns half", map[string]any{"d": "mid-range"}, map[string]any{"d": "mid"}, 0.5},
		{"mismatch", map[string]any{"d": "Fez"}, map[string]any{"d": "Rabat"}, 0},
		{"missing field is neutral", map[string]any{"a": "x", "b": "y"}, map[string]any{"a": "x"}, 0.5},
		{"empty list is neutral", map[string]any{"l": []any{"a"}}, map[string]any{"l": []string{}}, 0},
		{"jaccard", map[string]any{"l": []any{"WiFi", "Pool"}}, map[string]any{"l": []string{"WiFi", "Gym"}}, 1.0 / 3},
		{"jaccard is case sensitive", map[string]any{"l": []any{"WiFi"}}, map[string]any{"l": []string{"wifi"}}, 0},
		{"bool equal", map[string]any{"f": true}, map[string]any{"f": true}, 1},
		{"bool differs", map[string]any{"f": true}, map[string]any{"f": false}, 0},
		{"empty scenario", map[string]any{}, map[string]any{"a": "x"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.values, tt.scenario), 1e-9)
		})
	}
}

func TestMatchEmptyFormFallsToFirst(t *testing.T) {
	m := NewMatcher(nil)
	got, score := m.Match(domain.TravelForm{}.Values())
	assert.Equal(t, "Luxury Marrakech Experience", got.Name)
	assert.Zero(t, score)
}

func TestRespondPrependsIntro(t *testing.T) {
	m := NewMatcher(nil)
	msgs := m.Respond(domain.TravelForm{Destination: "Casablanca", BudgetRange: "mid-range"})

	require.Len(t, msgs, 4)
	intro, ok := msgs[0].Payload.(domain.TextPayload)
	require.True(t, ok)
	assert.Equal(t, IntroText, intro.Content)

	acc, ok := msgs[2].Payload.(domain.AccommodationRecommendationsPayload)
	require.True(t, ok)
	assert.Equal(t, "Casablanca", acc.Destination)
	assert.Equal(t, "Four Seasons Hotel Casablanca", acc.Recommendations[0].Name)
}

func TestLookup(t *testing.T) {
	m := NewMatcher(nil)
	s, err := m.Lookup("budget adventure fez trip")
	require.NoError(t, err)
	assert.Equal(t, "Budget Adventure Fez Trip", s.Name)

	_, err = m.Lookup("Sahara Glamping")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, domain.CodeScenarioAbsent, domain.ErrorCodeOf(err))
}

func TestParseScenariosRejectsUnknownMessageType(t *testing.T) {
	_, err := ParseScenarios([]byte(`
- name: broken
  messages:
    - type: hologram
      payload: {content: x}
`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidPayload))
}

func TestParseScenariosRequiresName(t *testing.T) {
	_, err := ParseScenarios([]byte(`- description: nameless`))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
