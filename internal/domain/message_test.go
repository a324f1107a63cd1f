package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageEnvelopeShape(t *testing.T) {
	data, err := json.Marshal(TextMessage("Marhaba!"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","payload":{"content":"Marhaba!"}}`, string(data))
}

func TestMessageRoundTripKeepsVariant(t *testing.T) {
	msg := NewMessage(AccommodationRecommendationsPayload{
		Destination:    "Marrakech",
		BudgetPerNight: "$100",
		Recommendations: []AccommodationRecommendation{
			{Name: "Riad Al Massarah", KeyFeatures: []string{"Rooftop terrace"}},
		},
	})

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, MessageAccommodationRecommendations, got.Type())

	p, ok := got.Payload.(AccommodationRecommendationsPayload)
	require.True(t, ok, "payload type %T", got.Payload)
	assert.Equal(t, "$100", p.BudgetPerNight)
	assert.Equal(t, "Riad Al Massarah", p.Recommendations[0].Name)
}

func TestMessageOptionalFieldsOmitted(t *testing.T) {
	data, err := json.Marshal(NewMessage(FlightDetailsPayload{Airline: "Royal Air Maroc"}))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "logo_url")
	assert.NotContains(t, string(data), "carbon_offset")
}

func TestMessageUnknownType(t *testing.T) {
	var m Message
	err := json.Unmarshal([]byte(`{"type":"video","payload":{}}`), &m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestMessageEmptyPayloadFailsMarshal(t *testing.T) {
	_, err := json.Marshal(Message{})
	require.Error(t, err)
}

func TestDecodePayloadAllVariants(t *testing.T) {
	types := []MessageType{
		MessageText, MessageItineraryDay, MessageFlightDetails, MessageImageGallery,
		MessageRecipeCard, MessageLinkCard, MessageFoodRecommendations,
		MessageAccommodationRecommendations,
	}
	for _, typ := range types {
		p, err := DecodePayload(typ, nil)
		require.NoError(t, err, typ)
		assert.Equal(t, typ, p.MessageType())
	}
}
