package recommend

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"marhaba/internal/domain"
	"marhaba/internal/usecase/extract"
)

// Accommodation builds an accommodation card from the destination, budget,
// lodging type and dates in query.
func Accommodation(query string, now time.Time) domain.AccommodationRecommendationsPayload {
	dest := extract.Destination(query)
	budget := extract.Budget(query)
	checkIn, checkOut := extract.Dates(query, now)
	nights := extract.Nights(checkIn, checkOut)

	var recs []domain.AccommodationRecommendation
	if dest == "Marrakech" || dest == extract.DefaultDestination {
		recs = []domain.AccommodationRecommendation{
			{
				Name:          "Riad Al Massarah",
				Type:          "Traditional Riad",
				Description:   "Authentic 18th-century riad with mosaics, peaceful courtyards, and rooftop terraces facing the Atlas Mountains",
				KeyFeatures:   []string{"Rooftop terrace", "Traditional hammam", "Courtyard pool", "Authentic architecture", "Free WiFi"},
				PricePerNight: "€140",
				TotalCost:     total("€", 140, nights),
				BookingLink:   "https://www.booking.com/hotel/ma/riad-al-massarah",
				SpecialOffers: "Free Moroccan breakfast and airport transfer for World Cup guests",
				WhyGoodValue:  "Authentic experience with luxury amenities in the medina, walking distance to the main square",
				LocationScore: "4.9/5",
			},
			{
				Name:          "Hotel & Spa Naoura Barrière",
				Type:          "Luxury Hotel",
				Description:   "Contemporary luxury hotel with spa, several restaurants, and modern Moroccan design",
				KeyFeatures:   []string{"Luxury spa", "Multiple pools", "Fine dining", "Fitness center", "Concierge service"},
				PricePerNight: "€280",
				TotalCost:     total("€", 280, nights),
				BookingLink:   "https://www.expedia.com/hotel-naoura-barriere",
				SpecialOffers: "Spa credit and room upgrade during the World Cup period",
				WhyGoodValue:  "Five-star service near the Hivernage district",
				LocationScore: "4.8/5",
			},
			{
				Name:          "Equity Point Marrakech Hostel",
				Type:          "Modern Hostel",
				Description:   "Stylish hostel with Moroccan-inspired design, rooftop bar, and a social atmosphere",
				KeyFeatures:   []string{"Rooftop bar", "Shared kitchen", "Luggage storage", "Common areas", "24/7 reception"},
				PricePerNight: "€35",
				TotalCost:     total("€", 35, nights),
				BookingLink:   "https://www.hostelworld.com/equity-point-marrakech",
				SpecialOffers: "Free walking tour of the medina",
				WhyGoodValue:  "Budget-friendly with a central location",
				LocationScore: "4.5/5",
			},
		}
	} else {
		symbol, amount := splitAmount(budget)
		apartment := math.Floor(amount * 0.8)
		recs = []domain.AccommodationRecommendation{
			{
				Name:          "Grand Hotel Central",
				Type:          "Boutique Hotel",
				Description:   "Elegant boutique hotel with contemporary design in the city center",
				KeyFeatures:   []string{"Central location", "Restaurant", "Bar", "Fitness center", "Business center"},
				PricePerNight: budget,
				TotalCost:     total(symbol, amount, nights),
				BookingLink:   "https://www.booking.com/grand-hotel-central",
				SpecialOffers: "Early bird booking discount available",
				WhyGoodValue:  "Modern amenities at competitive rates",
				LocationScore: "4.6/5",
			},
			{
				Name:          "Urban Nest Apartments",
				Type:          "Serviced Apartment",
				Description:   "Modern apartments with kitchenette, suited to longer stays and family groups",
				KeyFeatures:   []string{"Kitchenette", "Living area", "Washing machine", "Free WiFi", "Weekly cleaning"},
				PricePerNight: money(symbol, apartment),
				TotalCost:     total(symbol, apartment, nights),
				BookingLink:   "https://www.airbnb.com/urban-nest-apartments",
				WhyGoodValue:  "Apartment comfort with hotel amenities",
				LocationScore: "4.4/5",
			},
		}
	}

	return domain.AccommodationRecommendationsPayload{
		Recommendations:   recs,
		Destination:       dest,
		BudgetPerNight:    budget,
		AccommodationType: extract.AccommodationType(query),
		CheckIn:           checkIn,
		CheckOut:          checkOut,
	}
}

// splitAmount splits "$100" into "$" and 100. Unparseable amounts count as 0.
func splitAmount(s string) (string, float64) {
	i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return s, 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s[i:], ",", "."), 64)
	if err != nil {
		return s[:i], 0
	}
	return s[:i], v
}

func money(symbol string, v float64) string {
	return symbol + strconv.FormatFloat(v, 'f', -1, 64)
}

func total(symbol string, perNight float64, nights int) string {
	unit := "nights"
	if nights == 1 {
		unit = "night"
	}
	return fmt.Sprintf("%s (%d %s)", money(symbol, perNight*float64(nights)), nights, unit)
}
