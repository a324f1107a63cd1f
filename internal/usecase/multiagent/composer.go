package multiagent

import (
	"fmt"
	"strings"

	"marhaba/internal/domain"
)

// ApologyText is the reply when no agent produced a usable result.
const ApologyText = "I'm sorry, I couldn't get a response from any of our travel specialists right now. Please try again in a moment."

// Composer merges agent results into one reply.
type Composer struct {
	labels func(name string) string
}

// NewComposer creates a Composer that labels sections via the registry.
func NewComposer(registry *Registry) *Composer {
	return &Composer{labels: registry.Label}
}

// Combine merges results, already sorted by descending relevance, into one
// text. No results yields ApologyText; a single result is returned verbatim;
// several results get an intro line and one labelled section each.
func (c *Composer) Combine(results []domain.AgentCallResult, originalQuery string) string {
	switch len(results) {
	case 0:
		return ApologyText
	case 1:
		return results[0].Content
	}

	sections := make([]string, 0, len(results)+1)
	sections = append(sections, fmt.Sprintf("Here's what our travel specialists found for \"%s\":", originalQuery))
	for _, r := range results {
		sections = append(sections, fmt.Sprintf("**%s**\n%s", c.label(r.AgentName), strings.TrimSpace(r.Content)))
	}
	return strings.Join(sections, "\n\n")
}

func (c *Composer) label(name string) string {
	if c.labels == nil {
		return name
	}
	return c.labels(name)
}

var defaultComposer = NewComposer(NewRegistry())

// Combine merges results using the built-in agent labels.
func Combine(results []domain.AgentCallResult, originalQuery string) string {
	return defaultComposer.Combine(results, originalQuery)
}
