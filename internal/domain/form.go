package domain

import (
	"fmt"
	"strings"
)

// TravelForm is a structured trip-planning submission.
type TravelForm struct {
	Destination  string `json:"destination"   validate:"omitempty,max=80"`
	Budget       string `json:"budget"        validate:"omitempty,max=40"`
	SpecialNotes string `json:"special_notes" validate:"omitempty,max=2000"`

	DepartureCity   string `json:"departure_city"   validate:"omitempty,max=80"`
	DepartureDate   string `json:"departure_date"   validate:"omitempty,datetime=2006-01-02"`
	ReturnDate      string `json:"return_date"      validate:"omitempty,datetime=2006-01-02"`
	Passengers      string `json:"passengers"       validate:"omitempty,number"`
	ClassPreference string `json:"class_preference" validate:"omitempty,oneof=economy premium-economy business first"`
	FlexibleDates   bool   `json:"flexible_dates"`

	CheckInDate     string   `json:"check_in_date"    validate:"omitempty,datetime=2006-01-02"`
	CheckOutDate    string   `json:"check_out_date"   validate:"omitempty,datetime=2006-01-02"`
	Guests          string   `json:"guests"           validate:"omitempty,number"`
	HotelPreference string   `json:"hotel_preference" validate:"omitempty,max=40"`
	Amenities       []string `json:"amenities"        validate:"max=20,dive,max=40"`
	BudgetRange     string   `json:"budget_range"     validate:"omitempty,max=40"`

	DietaryRestrictions []string `json:"dietary_restrictions" validate:"max=20,dive,max=40"`
	CuisinePreferences  []string `json:"cuisine_preferences"  validate:"max=20,dive,max=40"`
	SpiceTolerance      string   `json:"spice_tolerance"      validate:"omitempty,oneof=mild medium hot"`
	FoodBudget          string   `json:"food_budget"          validate:"omitempty,max=40"`

	ActivityTypes      []string `json:"activity_types"      validate:"max=20,dive,max=40"`
	CulturalInterests  []string `json:"cultural_interests"  validate:"max=20,dive,max=40"`
	PhysicalLevel      string   `json:"physical_level"      validate:"omitempty,oneof=low moderate high"`
	WeatherConcerns    []string `json:"weather_concerns"    validate:"max=20,dive,max=40"`
	SeasonalPreference string   `json:"seasonal_preferences" validate:"omitempty,oneof=spring summer autumn winter"`
	PackageType        string   `json:"package_type"        validate:"omitempty,max=40"`
}

// Values returns the filled-in fields keyed by their JSON names. Strings map to
// string, lists to []string and set flags to true; empty fields are absent.
func (f TravelForm) Values() map[string]any {
	out := make(map[string]any)
	str := func(k, v string) {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	list := func(k string, v []string) {
		if len(v) > 0 {
			out[k] = v
		}
	}
	str("destination", f.Destination)
	str("budget", f.Budget)
	str("special_notes", f.SpecialNotes)
	str("departure_city", f.DepartureCity)
	str("departure_date", f.DepartureDate)
	str("return_date", f.ReturnDate)
	str("passengers", f.Passengers)
	str("class_preference", f.ClassPreference)
	if f.FlexibleDates {
		out["flexible_dates"] = true
	}
	str("check_in_date", f.CheckInDate)
	str("check_out_date", f.CheckOutDate)
	str("guests", f.Guests)
	str("hotel_preference", f.HotelPreference)
	list("amenities", f.Amenities)
	str("budget_range", f.BudgetRange)
	list("dietary_restrictions", f.DietaryRestrictions)
	list("cuisine_preferences", f.CuisinePreferences)
	str("spice_tolerance", f.SpiceTolerance)
	str("food_budget", f.FoodBudget)
	list("activity_types", f.ActivityTypes)
	list("cultural_interests", f.CulturalInterests)
	str("physical_level", f.PhysicalLevel)
	list("weather_concerns", f.WeatherConcerns)
	str("seasonal_preferences", f.SeasonalPreference)
	str("package_type", f.PackageType)
	return out
}

// Prompt renders the form as a free-text request the agents can route on.
func (f TravelForm) Prompt() string {
	dest := f.Destination
	if dest == "" {
		dest = "Morocco"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I'm planning a trip to %s and need comprehensive assistance. Here are my requirements:\n\n", dest)

	section := func(title string, lines ...string) {
		var kept []string
		for _, l := range lines {
			if l != "" {
				kept = append(kept, l)
			}
		}
		if len(kept) == 0 {
			return
		}
		b.WriteString(title + ":\n")
		for _, l := range kept {
			b.WriteString("- " + l + "\n")
		}
		b.WriteString("\n")
	}
	kv := func(label, v string) string {
		if v == "" {
			return ""
		}
		return label + ": " + v
	}
	kvs := func(label string, v []string) string {
		if len(v) == 0 {
			return ""
		}
		return label + ": " + strings.Join(v, ", ")
	}
	flexible := ""
	if f.FlexibleDates {
		flexible = "I have flexible dates"
	}
	passengers := f.Passengers
	if passengers == "1" {
		passengers = ""
	}
	guests := f.Guests
	if guests == "1" {
		guests = ""
	}

	section("FLIGHT REQUIREMENTS",
		kv("Departing from", f.DepartureCity),
		kv("Departure date", f.DepartureDate),
		kv("Return date", f.ReturnDate),
		kv("Passengers", passengers),
		kv("Class preference", f.ClassPreference),
		flexible,
	)
	section("ACCOMMODATION REQUIREMENTS",
		kv("Check-in", f.CheckInDate),
		kv("Check-out", f.CheckOutDate),
		kv("Guests", guests),
		kv("Hotel preference", f.HotelPreference),
		kvs("Required amenities", f.Amenities),
		kv("Budget range", f.BudgetRange),
	)
	section("FOOD & DINING PREFERENCES",
		kvs("Dietary restrictions", f.DietaryRestrictions),
		kvs("Cuisine preferences", f.CuisinePreferences),
		kv("Food budget", f.FoodBudget),
		kv("Spice tolerance", f.SpiceTolerance),
	)
	section("ACTIVITIES & EXPERIENCES",
		kvs("Activity types", f.ActivityTypes),
		kv("Physical activity level", f.PhysicalLevel),
		kvs("Cultural interests", f.CulturalInterests),
	)
	section("WEATHER CONSIDERATIONS",
		kvs("Weather concerns", f.WeatherConcerns),
		kv("Seasonal preferences", f.SeasonalPreference),
	)
	section("BOOKING",
		kv("Package type", f.PackageType),
		kv("Overall budget", f.Budget),
	)
	if f.SpecialNotes != "" {
		b.WriteString("Additional notes: " + f.SpecialNotes + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
