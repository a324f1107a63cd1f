package extract

import (
	"fmt"
	"strings"
	"time"
)

// Activities builds the activities-agent instruction.
func Activities(q string, _ time.Time) string {
	return fmt.Sprintf("Suggest activities and attractions in %s for a %s stay. Request: %s",
		Destination(q), Duration(q), q)
}

// Flight builds the flight-agent instruction.
func Flight(q string, now time.Time) string {
	depart, ret := Dates(q, now)
	return fmt.Sprintf("Find flights from %s to %s departing %s and returning %s, budget %s. Request: %s",
		Origin(q), Destination(q), depart, ret, Budget(q), q)
}

// Food builds the food-recommender instruction.
func Food(q string, _ time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommend %s dishes for someone who enjoys %s",
		CuisineType(q), TastePreferences(q))
	if d := DietaryRestrictions(q); d != "" {
		fmt.Fprintf(&b, " (dietary restrictions: %s)", d)
	}
	fmt.Fprintf(&b, ". Request: %s", q)
	return b.String()
}

// Hotel builds the hotel-agent instruction.
func Hotel(q string, now time.Time) string {
	in, out := Dates(q, now)
	return fmt.Sprintf("Find %s accommodation in %s from %s to %s with a budget of %s per night. Request: %s",
		AccommodationType(q), Destination(q), in, out, Budget(q), q)
}

// Itinerary builds the morocco-itinerary-agent instruction.
func Itinerary(q string, now time.Time) string {
	start, _ := Dates(q, now)
	return fmt.Sprintf("Plan a day-by-day itinerary for %s in %s starting %s, budget %s. Request: %s",
		Duration(q), Destination(q), start, Budget(q), q)
}

// Restaurant builds the restaurant-agent instruction.
func Restaurant(q string, _ time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommend restaurants in %s serving %s cuisine", Destination(q), CuisineType(q))
	if d := DietaryRestrictions(q); d != "" {
		fmt.Fprintf(&b, " suitable for %s diets", d)
	}
	fmt.Fprintf(&b, ". Request: %s", q)
	return b.String()
}

// Booking builds the travel-booking instruction.
func Booking(q string, now time.Time) string {
	start, end := Dates(q, now)
	return fmt.Sprintf("Find travel packages and deals for %s from %s to %s within a budget of %s. Request: %s",
		Destination(q), start, end, Budget(q), q)
}

// Weather builds the weather-forecast-agent instruction.
func Weather(q string, now time.Time) string {
	start, end := Dates(q, now)
	return fmt.Sprintf("Give the weather forecast for %s between %s and %s. Request: %s",
		Destination(q), start, end, q)
}

var byAgent = map[string]func(string, time.Time) string{
	"activities-agent":        Activities,
	"flight-agent":            Flight,
	"food-recommender":        Food,
	"hotel-agent":             Hotel,
	"morocco-itinerary-agent": Itinerary,
	"restaurant-agent":        Restaurant,
	"travel-booking":          Booking,
	"weather-forecast-agent":  Weather,
}

// ForAgent builds the instruction for the named agent. Unknown agents get the
// query unchanged.
func ForAgent(name, q string, now time.Time) string {
	if fn, ok := byAgent[name]; ok {
		return fn(q, now)
	}
	return q
}
