package agent

// JSON schemas the structured agents' replies are validated against before
// decoding. Optional fields mirror the omitempty fields of the payload types.

const foodRecommendationsSchema = `{
  "type": "object",
  "required": ["recommendations", "taste_preferences", "cuisine_type"],
  "properties": {
    "recommendations": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "description", "flavor_profile", "key_ingredients",
                     "cultural_significance", "recipe_link", "why_matches"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "flavor_profile": {"type": "string"},
          "key_ingredients": {"type": "array", "items": {"type": "string"}},
          "cultural_significance": {"type": "string"},
          "recipe_link": {"type": "string"},
          "why_matches": {"type": "string"}
        }
      }
    },
    "taste_preferences": {"type": "string"},
    "cuisine_type": {"type": "string"},
    "dietary_restrictions": {"type": "string"}
  }
}`

const accommodationRecommendationsSchema = `{
  "type": "object",
  "required": ["recommendations", "destination", "budget_per_night",
               "accommodation_type", "check_in", "check_out"],
  "properties": {
    "recommendations": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "type", "description", "key_features", "price_per_night",
                     "total_cost", "booking_link", "why_good_value", "location_score"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string"},
          "description": {"type": "string"},
          "key_features": {"type": "array", "items": {"type": "string"}},
          "price_per_night": {"type": "string"},
          "total_cost": {"type": "string"},
          "booking_link": {"type": "string"},
          "special_offers": {"type": "string"},
          "why_good_value": {"type": "string"},
          "location_score": {"type": "string"}
        }
      }
    },
    "destination": {"type": "string"},
    "budget_per_night": {"type": "string"},
    "accommodation_type": {"type": "string"},
    "check_in": {"type": "string"},
    "check_out": {"type": "string"}
  }
}`
