// Package extract derives agent-scoped context from a free-text travel query.
// Every function is total: it always returns a usable value and falls back to
// a fixed default when the query says nothing relevant.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Defaults used when the query carries no matching information.
const (
	DefaultDestination       = "Morocco"
	DefaultOrigin            = "your departure city"
	DefaultBudget            = "€100"
	DefaultDuration          = "1 week"
	DefaultTaste             = "varied tastes"
	DefaultCuisine           = "international"
	DefaultAccommodationType = "hotel"
)

const isoDate = "2006-01-02"

// gazetteer maps lowercase place names (and common spellings) to display names.
var gazetteer = map[string]string{
	"marrakech":   "Marrakech",
	"marrakesh":   "Marrakech",
	"casablanca":  "Casablanca",
	"fez":         "Fez",
	"fes":         "Fez",
	"rabat":       "Rabat",
	"tangier":     "Tangier",
	"tanger":      "Tangier",
	"agadir":      "Agadir",
	"essaouira":   "Essaouira",
	"chefchaouen": "Chefchaouen",
	"ouarzazate":  "Ouarzazate",
	"meknes":      "Meknes",
	"tetouan":     "Tetouan",
	"merzouga":    "Merzouga",
	"paris":       "Paris",
	"london":      "London",
	"madrid":      "Madrid",
	"new york":    "New York",
}

var (
	placeRe    = regexp.MustCompile(`\b(marrakech|marrakesh|casablanca|fez|fes|rabat|tangier|tanger|agadir|essaouira|chefchaouen|ouarzazate|meknes|tetouan|merzouga|paris|london|madrid|new york)\b`)
	budgetRe   = regexp.MustCompile(`[$€£]\s?\d+(?:[.,]\d+)?`)
	dateRe     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	durationRe = regexp.MustCompile(`\b(\d+)\s*-?\s*(day|week|month)s?\b`)
)

var (
	tasteWords       = []string{"sweet", "spicy", "savory", "sour", "bitter", "umami", "mild", "hot"}
	cuisines         = []string{"moroccan", "italian", "french", "indian", "chinese", "japanese", "mediterranean", "middle eastern"}
	dietaryWords     = []string{"vegetarian", "vegan", "gluten-free", "halal", "kosher", "dairy-free"}
	accommodationTys = []string{"hotel", "hostel", "apartment", "resort", "riad", "guesthouse"}
)

type placeHit struct {
	name   string
	start  int
	prefix string
}

func places(q string) []placeHit {
	lower := strings.ToLower(q)
	var hits []placeHit
	for _, loc := range placeRe.FindAllStringIndex(lower, -1) {
		before := strings.TrimRight(lower[:loc[0]], " ")
		prefix := ""
		if i := strings.LastIndexAny(before, " ,.;:!?\n\t"); i >= 0 {
			prefix = before[i+1:]
		} else {
			prefix = before
		}
		hits = append(hits, placeHit{name: gazetteer[lower[loc[0]:loc[1]]], start: loc[0], prefix: prefix})
	}
	return hits
}

// Destination returns the place the traveller is heading to. A place named
// after "to", "in" or "at" wins; otherwise the first place not named after
// "from". Defaults to "Morocco".
func Destination(q string) string {
	hits := places(q)
	for _, h := range hits {
		switch h.prefix {
		case "to", "in", "at", "visit", "visiting", "around":
			return h.name
		}
	}
	for _, h := range hits {
		if h.prefix != "from" {
			return h.name
		}
	}
	return DefaultDestination
}

// Origin returns the place named after "from", or DefaultOrigin.
func Origin(q string) string {
	for _, h := range places(q) {
		if h.prefix == "from" {
			return h.name
		}
	}
	return DefaultOrigin
}

// Budget returns the first currency-prefixed amount, e.g. "$100".
func Budget(q string) string {
	if m := budgetRe.FindString(q); m != "" {
		return strings.ReplaceAll(m, " ", "")
	}
	return DefaultBudget
}

// Dates returns the first two ISO dates in the query, or tomorrow and a week
// from now relative to now.
func Dates(q string, now time.Time) (checkIn, checkOut string) {
	found := dateRe.FindAllString(q, 2)
	if len(found) == 2 {
		return found[0], found[1]
	}
	return now.AddDate(0, 0, 1).Format(isoDate), now.AddDate(0, 0, 7).Format(isoDate)
}

// Duration returns a normalised "<N> day(s)|week(s)|month(s)" span.
func Duration(q string) string {
	m := durationRe.FindStringSubmatch(strings.ToLower(q))
	if m == nil {
		return DefaultDuration
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return DefaultDuration
	}
	unit := m[2]
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s", n, unit)
}

// Nights returns the number of nights between two ISO dates, at least 1.
func Nights(checkIn, checkOut string) int {
	in, err1 := time.Parse(isoDate, checkIn)
	out, err2 := time.Parse(isoDate, checkOut)
	if err1 != nil || err2 != nil {
		return 1
	}
	n := int(out.Sub(in).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

// TastePreferences lists taste words found in the query.
func TastePreferences(q string) string {
	if found := allOf(q, tasteWords); len(found) > 0 {
		return strings.Join(found, ", ")
	}
	return DefaultTaste
}

// CuisineType returns the first cuisine named in the query.
func CuisineType(q string) string {
	return firstOf(q, cuisines, DefaultCuisine)
}

// DietaryRestrictions lists dietary constraints found in the query, or "".
func DietaryRestrictions(q string) string {
	return strings.Join(allOf(q, dietaryWords), ", ")
}

// AccommodationType returns the first lodging type named in the query.
func AccommodationType(q string) string {
	return firstOf(q, accommodationTys, DefaultAccommodationType)
}

func allOf(q string, vocab []string) []string {
	lower := strings.ToLower(q)
	var found []string
	for _, w := range vocab {
		if strings.Contains(lower, w) {
			found = append(found, w)
		}
	}
	return found
}

func firstOf(q string, vocab []string, def string) string {
	lower := strings.ToLower(q)
	for _, w := range vocab {
		if strings.Contains(lower, w) {
			return w
		}
	}
	return def
}
