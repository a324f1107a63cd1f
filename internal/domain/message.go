package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType is the discriminator of a rendered message.
type MessageType string

const (
	MessageText                         MessageType = "text"
	MessageItineraryDay                 MessageType = "itinerary_day"
	MessageFlightDetails                MessageType = "flight_details"
	MessageImageGallery                 MessageType = "image_gallery"
	MessageRecipeCard                   MessageType = "recipe_card"
	MessageLinkCard                     MessageType = "link_card"
	MessageFoodRecommendations          MessageType = "food_recommendations"
	MessageAccommodationRecommendations MessageType = "accommodation_recommendations"
)

// Payload is the closed set of message bodies. Only types in this package
// implement it.
type Payload interface {
	MessageType() MessageType
	payload()
}

// Message is one renderable unit of a reply. On the wire it is
// {"type": "...", "payload": {...}}.
type Message struct {
	Payload Payload
}

// NewMessage wraps a payload.
func NewMessage(p Payload) Message { return Message{Payload: p} }

// TextMessage is shorthand for a text message.
func TextMessage(content string) Message { return Message{Payload: TextPayload{Content: content}} }

// Type returns the discriminator, or "" for an empty message.
func (m Message) Type() MessageType {
	if m.Payload == nil {
		return ""
	}
	return m.Payload.MessageType()
}

type messageEnvelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	if m.Payload == nil {
		return nil, fmt.Errorf("%w: message has no payload", ErrInvalidPayload)
	}
	body, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageEnvelope{Type: m.Payload.MessageType(), Payload: body})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	p, err := DecodePayload(env.Type, env.Payload)
	if err != nil {
		return err
	}
	m.Payload = p
	return nil
}

// DecodePayload decodes raw JSON into the payload variant named by t.
func DecodePayload(t MessageType, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	switch t {
	case MessageText:
		return decodeAs[TextPayload](raw)
	case MessageItineraryDay:
		return decodeAs[ItineraryDayPayload](raw)
	case MessageFlightDetails:
		return decodeAs[FlightDetailsPayload](raw)
	case MessageImageGallery:
		return decodeAs[ImageGalleryPayload](raw)
	case MessageRecipeCard:
		return decodeAs[RecipeCardPayload](raw)
	case MessageLinkCard:
		return decodeAs[LinkCardPayload](raw)
	case MessageFoodRecommendations:
		return decodeAs[FoodRecommendationsPayload](raw)
	case MessageAccommodationRecommendations:
		return decodeAs[AccommodationRecommendationsPayload](raw)
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", ErrInvalidPayload, t)
	}
}

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return v, nil
}

// TextPayload is free-form markdown text.
type TextPayload struct {
	Content string `json:"content"`
}

type ItineraryEvent struct {
	Time        string `json:"time"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MapLink     string `json:"map_link,omitempty"`
}

// ItineraryDayPayload is one day of a trip plan.
type ItineraryDayPayload struct {
	Day    int              `json:"day"`
	Date   string           `json:"date"`
	Title  string           `json:"title"`
	Events []ItineraryEvent `json:"events"`
}

type FlightEndpoint struct {
	Code string `json:"code"`
	City string `json:"city"`
	Time string `json:"time"`
}

type FlightDetailsPayload struct {
	Airline      string         `json:"airline"`
	LogoURL      string         `json:"logo_url,omitempty"`
	Departure    FlightEndpoint `json:"departure"`
	Arrival      FlightEndpoint `json:"arrival"`
	Price        string         `json:"price"`
	CarbonOffset string         `json:"carbon_offset,omitempty"`
	BookingLink  string         `json:"booking_link"`
}

type GalleryImage struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

type ImageGalleryPayload struct {
	Images []GalleryImage `json:"images"`
}

type RecipeCardPayload struct {
	Name        string `json:"name"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	RecipeLink  string `json:"recipe_link"`
}

type LinkCardPayload struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FaviconURL  string `json:"favicon_url,omitempty"`
}

type FoodRecommendation struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	FlavorProfile        string   `json:"flavor_profile"`
	KeyIngredients       []string `json:"key_ingredients"`
	CulturalSignificance string   `json:"cultural_significance"`
	RecipeLink           string   `json:"recipe_link"`
	WhyMatches           string   `json:"why_matches"`
}

type FoodRecommendationsPayload struct {
	Recommendations     []FoodRecommendation `json:"recommendations"`
	TastePreferences    string               `json:"taste_preferences"`
	CuisineType         string               `json:"cuisine_type"`
	DietaryRestrictions string               `json:"dietary_restrictions,omitempty"`
}

type AccommodationRecommendation struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Description   string   `json:"description"`
	KeyFeatures   []string `json:"key_features"`
	PricePerNight string   `json:"price_per_night"`
	TotalCost     string   `json:"total_cost"`
	BookingLink   string   `json:"booking_link"`
	SpecialOffers string   `json:"special_offers,omitempty"`
	WhyGoodValue  string   `json:"why_good_value"`
	LocationScore string   `json:"location_score"`
}

type AccommodationRecommendationsPayload struct {
	Recommendations   []AccommodationRecommendation `json:"recommendations"`
	Destination       string                        `json:"destination"`
	BudgetPerNight    string                        `json:"budget_per_night"`
	AccommodationType string                        `json:"accommodation_type"`
	CheckIn           string                        `json:"check_in"`
	CheckOut          string                        `json:"check_out"`
}

func (TextPayload) MessageType() MessageType          { return MessageText }
func (ItineraryDayPayload) MessageType() MessageType  { return MessageItineraryDay }
func (FlightDetailsPayload) MessageType() MessageType { return MessageFlightDetails }
func (ImageGalleryPayload) MessageType() MessageType  { return MessageImageGallery }
func (RecipeCardPayload) MessageType() MessageType    { return MessageRecipeCard }
func (LinkCardPayload) MessageType() MessageType      { return MessageLinkCard }
func (FoodRecommendationsPayload) MessageType() MessageType {
	return MessageFoodRecommendations
}
func (AccommodationRecommendationsPayload) MessageType() MessageType {
	return MessageAccommodationRecommendations
}

func (TextPayload) payload()                         {}
func (ItineraryDayPayload) payload()                 {}
func (FlightDetailsPayload) payload()                {}
func (ImageGalleryPayload) payload()                 {}
func (RecipeCardPayload) payload()                   {}
func (LinkCardPayload) payload()                     {}
func (FoodRecommendationsPayload) payload()          {}
func (AccommodationRecommendationsPayload) payload() {}
