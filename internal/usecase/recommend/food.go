package recommend

import (
	"strings"

	"marhaba/internal/domain"
	"marhaba/internal/usecase/extract"
)

// Food builds a food recommendation card from the preferences in query.
func Food(query string) domain.FoodRecommendationsPayload {
	taste := extract.TastePreferences(query)
	cuisine := extract.CuisineType(query)
	dietary := extract.DietaryRestrictions(query)

	var recs []domain.FoodRecommendation
	switch {
	case strings.Contains(cuisine, "moroccan"):
		recs = []domain.FoodRecommendation{
			{
				Name:                 "Tagine Lamb with Apricots",
				Description:          "Tender lamb slow-cooked with sweet apricots, almonds, and warm spices in a traditional clay tagine",
				FlavorProfile:        "Sweet and savory with warm spices, tender meat with dried fruit sweetness",
				KeyIngredients:       []string{"Lamb", "Dried apricots", "Almonds", "Cinnamon", "Ginger", "Saffron"},
				CulturalSignificance: "A beloved dish served during special occasions, balancing sweet and savory",
				RecipeLink:           "https://www.bbcgoodfood.com/recipes/lamb-apricot-tagine",
				WhyMatches:           pick(strings.Contains(taste, "sweet"), "Perfect for your sweet tooth with dried apricots and honey", "Rich, complex flavors that satisfy hearty appetites"),
			},
			{
				Name:                 "Harira Soup",
				Description:          "Traditional tomato-based soup with lentils, chickpeas, fresh herbs, and warming spices",
				FlavorProfile:        "Rich, hearty, and warming with a blend of spices and fresh herbs",
				KeyIngredients:       []string{"Tomatoes", "Lentils", "Chickpeas", "Cilantro", "Parsley", "Ginger"},
				CulturalSignificance: "Traditionally eaten to break fast during Ramadan",
				RecipeLink:           "https://www.allrecipes.com/recipe/harira-soup",
				WhyMatches:           pick(strings.Contains(taste, "spicy"), "Warming spices provide gentle heat", "Comforting and satisfying with rich umami flavors"),
			},
			{
				Name:                 "Pastilla Royale",
				Description:          "Delicate phyllo pastry filled with spiced chicken, almonds, and cinnamon sugar",
				FlavorProfile:        "Sweet-savory combination with crispy pastry and aromatic filling",
				KeyIngredients:       []string{"Phyllo pastry", "Chicken", "Almonds", "Cinnamon", "Sugar", "Eggs"},
				CulturalSignificance: "Crown jewel of Moroccan cuisine, served at weddings and royal feasts",
				RecipeLink:           "https://www.seriouseats.com/moroccan-pastilla-recipe",
				WhyMatches:           "Adventurous flavor combination for an authentic Moroccan experience",
			},
		}
	case strings.Contains(cuisine, "italian"):
		recs = []domain.FoodRecommendation{
			{
				Name:                 "Osso Buco alla Milanese",
				Description:          "Braised veal shanks with vegetables, white wine, and broth, served with risotto",
				FlavorProfile:        "Rich, hearty, and deeply savory",
				KeyIngredients:       []string{"Veal shanks", "White wine", "Tomatoes", "Onions", "Carrots", "Celery"},
				CulturalSignificance: "Traditional Lombard dish from Milan",
				RecipeLink:           "https://www.foodnetwork.com/recipes/osso-buco",
				WhyMatches:           "Perfect for meat lovers seeking rich, satisfying flavors",
			},
			{
				Name:                 "Risotto ai Porcini",
				Description:          "Creamy Arborio rice with wild porcini mushrooms, Parmesan, and white wine",
				FlavorProfile:        "Earthy, creamy, and umami-rich",
				KeyIngredients:       []string{"Arborio rice", "Porcini mushrooms", "Parmesan", "White wine", "Shallots"},
				CulturalSignificance: "The art of patience in Italian cooking, stirred to perfection",
				RecipeLink:           "https://www.bbcgoodfood.com/recipes/porcini-mushroom-risotto",
				WhyMatches:           pick(strings.Contains(dietary, "vegetarian"), "Rich vegetarian option with deep umami flavors", "Sophisticated flavors for discerning palates"),
			},
		}
	default:
		recs = []domain.FoodRecommendation{
			{
				Name:                 "Mediterranean Grilled Sea Bass",
				Description:          "Fresh sea bass grilled with olive oil, lemon, and herbs, served with roasted vegetables",
				FlavorProfile:        "Light, fresh, and healthy with bright Mediterranean flavors",
				KeyIngredients:       []string{"Sea bass", "Olive oil", "Lemon", "Rosemary", "Thyme", "Garlic"},
				CulturalSignificance: "The healthy Mediterranean diet and coastal cooking traditions",
				RecipeLink:           "https://www.allrecipes.com/recipe/grilled-sea-bass",
				WhyMatches:           "Balance of protein and fresh flavors for health-conscious diners",
			},
			{
				Name:                 "Thai Green Curry",
				Description:          "Aromatic coconut curry with green chilies, Thai basil, and your choice of protein",
				FlavorProfile:        "Spicy, aromatic, and creamy with layers of heat and freshness",
				KeyIngredients:       []string{"Green curry paste", "Coconut milk", "Thai basil", "Lemongrass", "Galangal"},
				CulturalSignificance: "Central Thai dish balancing spicy, sweet, sour, and salty",
				RecipeLink:           "https://www.bbcgoodfood.com/recipes/thai-green-curry",
				WhyMatches:           pick(strings.Contains(taste, "spicy"), "Perfect heat level with cooling coconut milk", "Exotic flavors for adventurous eaters"),
			},
		}
	}

	return domain.FoodRecommendationsPayload{
		Recommendations:     recs,
		TastePreferences:    taste,
		CuisineType:         cuisine,
		DietaryRestrictions: dietary,
	}
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
