package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marhaba/internal/domain"
)

var (
	foodHints = []string{"food", "meal", "eat", "restaurant", "cuisine", "dish", "recipe", "cooking",
		"taste", "flavor", "spicy", "sweet", "hungry", "dinner", "lunch", "breakfast"}
	accommodationHints = []string{"hotel", "stay", "accommodation", "sleep", "book", "riad", "hostel",
		"apartment", "resort", "lodge", "guesthouse", "room", "night"}
)

// MentionsFood reports whether query reads like a food request.
func MentionsFood(query string) bool { return containsAny(query, foodHints) }

// MentionsAccommodation reports whether query reads like a lodging request.
func MentionsAccommodation(query string) bool { return containsAny(query, accommodationHints) }

func containsAny(query string, words []string) bool {
	q := strings.ToLower(query)
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// LocalFetcher produces structured cards from the query alone, without
// calling any agent.
type LocalFetcher struct {
	now func() time.Time
}

// NewLocalFetcher creates a LocalFetcher. A nil clock means time.Now.
func NewLocalFetcher(now func() time.Time) *LocalFetcher {
	if now == nil {
		now = time.Now
	}
	return &LocalFetcher{now: now}
}

var _ domain.StructuredFetcher = (*LocalFetcher)(nil)

// FetchStructured builds the card for family from query. Unknown families
// fail with domain.ErrInvalidInput.
func (f *LocalFetcher) FetchStructured(ctx context.Context, family domain.Family, query string) (domain.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch family {
	case domain.FamilyFood:
		return Food(query), nil
	case domain.FamilyAccommodation:
		return Accommodation(query, f.now()), nil
	default:
		return nil, fmt.Errorf("recommend: %w: family %q", domain.ErrInvalidInput, family)
	}
}
