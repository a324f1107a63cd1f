// Package render draws concierge replies for a terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss/table"

	"marhaba/internal/domain"
)

// Renderer turns messages into terminal text. Text messages go through a
// markdown renderer; structured payloads become cards.
type Renderer struct {
	width int
	md    *glamour.TermRenderer
	st    styles
	plain bool
}

// New creates a Renderer wrapping at width columns. A plain renderer emits
// unstyled text, for pipes and NO_COLOR terminals.
func New(width int, plain bool) (*Renderer, error) {
	if width < 40 {
		width = 40
	}
	r := &Renderer{width: width, plain: plain}
	if plain {
		r.st = plainStyles()
		return r, nil
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}
	r.md = md
	r.st = newStyles(width)
	return r, nil
}

// Messages renders a whole reply, one block per message.
func (r *Renderer) Messages(msgs []domain.Message) string {
	blocks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if b := r.Message(m); b != "" {
			blocks = append(blocks, b)
		}
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// Message renders one message.
func (r *Renderer) Message(m domain.Message) string {
	switch p := m.Payload.(type) {
	case domain.TextPayload:
		return r.markdown(p.Content)
	case domain.ItineraryDayPayload:
		return r.itinerary(p)
	case domain.FlightDetailsPayload:
		return r.flight(p)
	case domain.ImageGalleryPayload:
		lines := []string{r.st.heading.Render("Gallery")}
		for _, img := range p.Images {
			lines = append(lines, fmt.Sprintf("• %s %s", img.Alt, r.st.muted.Render(img.URL)))
		}
		return r.box(lines)
	case domain.RecipeCardPayload:
		return r.box([]string{r.st.heading.Render(p.Name), p.Description, r.st.muted.Render(p.RecipeLink)})
	case domain.LinkCardPayload:
		return r.box([]string{r.st.heading.Render(p.Title), p.Description, r.st.muted.Render(p.URL)})
	case domain.FoodRecommendationsPayload:
		return r.food(p)
	case domain.AccommodationRecommendationsPayload:
		return r.accommodation(p)
	}
	return ""
}

func (r *Renderer) markdown(s string) string {
	if r.md == nil {
		return strings.TrimSpace(s)
	}
	out, err := r.md.Render(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimRight(out, "\n")
}

func (r *Renderer) box(lines []string) string {
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return r.st.card.Render(strings.Join(kept, "\n"))
}

func (r *Renderer) itinerary(p domain.ItineraryDayPayload) string {
	lines := []string{r.st.title.Render(fmt.Sprintf("Day %d · %s", p.Day, p.Title)), r.st.muted.Render(p.Date)}
	for _, ev := range p.Events {
		lines = append(lines, fmt.Sprintf("%s  %s", r.st.heading.Render(ev.Time), ev.Title))
		if ev.Description != "" {
			lines = append(lines, "       "+ev.Description)
		}
	}
	return r.box(lines)
}

func (r *Renderer) flight(p domain.FlightDetailsPayload) string {
	route := fmt.Sprintf("%s %s %s  →  %s %s %s",
		p.Departure.Code, p.Departure.City, p.Departure.Time,
		p.Arrival.Code, p.Arrival.City, p.Arrival.Time)
	lines := []string{r.st.title.Render("✈ " + p.Airline), route, r.st.heading.Render(p.Price)}
	if p.CarbonOffset != "" {
		lines = append(lines, r.st.muted.Render("Carbon offset: "+p.CarbonOffset))
	}
	lines = append(lines, r.st.muted.Render(p.BookingLink))
	return r.box(lines)
}

func (r *Renderer) food(p domain.FoodRecommendationsPayload) string {
	lines := []string{r.st.title.Render("Food recommendations")}
	meta := []string{p.CuisineType, p.TastePreferences}
	if p.DietaryRestrictions != "" {
		meta = append(meta, p.DietaryRestrictions)
	}
	lines = append(lines, r.st.muted.Render(strings.Join(nonEmpty(meta), " · ")))
	for _, rec := range p.Recommendations {
		lines = append(lines, "", r.st.heading.Render(rec.Name), rec.Description)
		if rec.FlavorProfile != "" {
			lines = append(lines, "Flavor: "+rec.FlavorProfile)
		}
		if len(rec.KeyIngredients) > 0 {
			lines = append(lines, "Ingredients: "+strings.Join(rec.KeyIngredients, ", "))
		}
		if rec.WhyMatches != "" {
			lines = append(lines, r.st.muted.Render(rec.WhyMatches))
		}
	}
	return r.box(lines)
}

func (r *Renderer) accommodation(p domain.AccommodationRecommendationsPayload) string {
	meta := []string{p.AccommodationType}
	if p.BudgetPerNight != "" {
		meta = append(meta, p.BudgetPerNight+" / night")
	}
	if p.CheckIn != "" && p.CheckOut != "" {
		meta = append(meta, p.CheckIn+" → "+p.CheckOut)
	}
	lines := []string{
		r.st.title.Render("Stays in " + p.Destination),
		r.st.muted.Render(strings.Join(nonEmpty(meta), " · ")),
	}
	for _, rec := range p.Recommendations {
		lines = append(lines, "",
			r.st.heading.Render(rec.Name)+" "+r.st.muted.Render("("+rec.Type+")"),
			rec.Description,
			fmt.Sprintf("%s per night, %s", rec.PricePerNight, rec.TotalCost),
		)
		if len(rec.KeyFeatures) > 0 {
			lines = append(lines, "Features: "+strings.Join(rec.KeyFeatures, ", "))
		}
		if rec.SpecialOffers != "" {
			lines = append(lines, "Offer: "+rec.SpecialOffers)
		}
		lines = append(lines, r.st.muted.Render(rec.BookingLink))
	}
	return r.box(lines)
}

func nonEmpty(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// AgentStatuses renders probe results as a table.
func (r *Renderer) AgentStatuses(statuses []domain.AgentStatus) string {
	t := table.New().Headers("AGENT", "STATUS", "HTTP", "LATENCY", "DETAIL")
	if !r.plain {
		t = t.BorderStyle(r.st.muted)
	}
	for _, st := range statuses {
		state := r.st.ok.Render("up")
		if !st.Reachable {
			state = r.st.bad.Render("down")
		}
		code := ""
		if st.StatusCode != 0 {
			code = fmt.Sprint(st.StatusCode)
		}
		t = t.Row(st.Name, state, code, st.Latency.Round(time.Millisecond).String(), st.Error)
	}
	return t.Render() + "\n"
}
