// Package recommend builds structured recommendation cards: heuristic local
// generators and the fixed offline payloads used when an agent cannot answer.
package recommend

import "marhaba/internal/domain"

// OfflineNote marks every fallback payload so clients can tell it apart from
// agent output.
const OfflineNote = "Offline suggestion: our specialist could not be reached, so this is a general pick."

// FallbackFor returns the fixed offline payload for a structured family. It
// never fails; unknown families get a text notice.
func FallbackFor(family domain.Family) domain.Payload {
	switch family {
	case domain.FamilyFood:
		return domain.FoodRecommendationsPayload{
			Recommendations: []domain.FoodRecommendation{
				{
					Name:                 "Chicken Tagine with Preserved Lemon",
					Description:          "Slow-cooked chicken with preserved lemons and green olives",
					FlavorProfile:        "Bright, tangy and gently spiced",
					KeyIngredients:       []string{"Chicken", "Preserved lemon", "Green olives", "Saffron", "Ginger"},
					CulturalSignificance: "A staple of Moroccan family tables",
					RecipeLink:           "https://www.bbcgoodfood.com/recipes/moroccan-chicken-tagine",
					WhyMatches:           OfflineNote,
				},
				{
					Name:                 "Vegetable Couscous",
					Description:          "Steamed semolina topped with seasonal vegetables and chickpeas",
					FlavorProfile:        "Mild, hearty and comforting",
					KeyIngredients:       []string{"Semolina", "Carrots", "Zucchini", "Chickpeas", "Ras el hanout"},
					CulturalSignificance: "Traditionally shared on Fridays after midday prayer",
					RecipeLink:           "https://www.allrecipes.com/recipe/vegetable-couscous",
					WhyMatches:           OfflineNote,
				},
			},
			TastePreferences: "varied tastes",
			CuisineType:      "moroccan",
		}
	case domain.FamilyAccommodation:
		return domain.AccommodationRecommendationsPayload{
			Recommendations: []domain.AccommodationRecommendation{
				{
					Name:          "Medina Riad Selection",
					Type:          "Traditional Riad",
					Description:   "Family-run riads inside the old medina, close to the main souks",
					KeyFeatures:   []string{"Courtyard", "Rooftop terrace", "Moroccan breakfast"},
					PricePerNight: "€60-120",
					TotalCost:     "Depends on dates",
					BookingLink:   "https://www.booking.com/riads/country/ma.html",
					WhyGoodValue:  OfflineNote,
					LocationScore: "n/a",
				},
			},
			Destination:       "Morocco",
			BudgetPerNight:    "Not available",
			AccommodationType: "hotel",
			CheckIn:           "flexible",
			CheckOut:          "flexible",
		}
	default:
		return domain.TextPayload{Content: "Recommendations are unavailable right now."}
	}
}
