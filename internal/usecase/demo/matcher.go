package demo

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"marhaba/internal/domain"
)

// IntroText opens every demo reply.
const IntroText = "**Research** \n\nI've analyzed your travel preferences! Here's your comprehensive Morocco travel plan:"

// Matcher picks the scenario that best fits a travel form.
type Matcher struct {
	scenarios []Scenario
	logger    *slog.Logger
}

// NewMatcher creates a Matcher over scenarios. With none given it uses the
// builtin set.
func NewMatcher(logger *slog.Logger, scenarios ...Scenario) *Matcher {
	if len(scenarios) == 0 {
		scenarios = BuiltinScenarios()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Matcher{scenarios: scenarios, logger: logger}
}

// Scenarios lists the available scenarios in declaration order.
func (m *Matcher) Scenarios() []Scenario { return slices.Clone(m.scenarios) }

// Lookup returns the scenario with the given name.
func (m *Matcher) Lookup(name string) (Scenario, error) {
	for _, s := range m.scenarios {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return Scenario{}, domain.NewSubSystemError("scenario", "demo.Lookup", domain.ErrNotFound, name)
}

// Match returns the best-scoring scenario for the given form values and its
// score. Ties go to the scenario declared first.
func (m *Matcher) Match(values map[string]any) (Scenario, float64) {
	best, bestScore := 0, -1.0
	for i, s := range m.scenarios {
		if sc := Score(values, s.FormValues); sc > bestScore {
			best, bestScore = i, sc
		}
	}
	return m.scenarios[best], bestScore
}

// Respond builds the demo reply for form: the intro followed by the best
// scenario's messages.
func (m *Matcher) Respond(form domain.TravelForm) []domain.Message {
	s, score := m.Match(form.Values())
	m.logger.Info("demo scenario selected", "scenario", s.Name, "score", score)
	out := make([]domain.Message, 0, len(s.Messages)+1)
	out = append(out, domain.TextMessage(IntroText))
	return append(out, s.Messages...)
}

// Score averages per-field similarity over every field the scenario sets.
// Fields missing from values count as zero. Lists compare by Jaccard index,
// booleans by equality, anything else as case-insensitive text where a
// containment match earns half.
func Score(values, scenario map[string]any) float64 {
	if len(scenario) == 0 {
		return 0
	}
	var total float64
	for key, want := range scenario {
		total += fieldScore(want, values[key])
	}
	return total / float64(len(scenario))
}

func fieldScore(want, got any) float64 {
	if isBlank(got) {
		return 0
	}
	wantList, wantIsList := asList(want)
	gotList, gotIsList := asList(got)
	if wantIsList && gotIsList {
		return jaccard(wantList, gotList)
	}
	if wb, ok := want.(bool); ok {
		if gb, ok := got.(bool); ok {
			if wb == gb {
				return 1
			}
			return 0
		}
	}
	ws, gs := strings.ToLower(text(want)), strings.ToLower(text(got))
	switch {
	case ws == gs:
		return 1
	case strings.Contains(ws, gs) || strings.Contains(gs, ws):
		return 0.5
	}
	return 0
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	if l, ok := asList(v); ok {
		return len(l) == 0
	}
	return false
}

func asList(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			out[i] = fmt.Sprint(e)
		}
		return out, true
	}
	return nil, false
}

func text(v any) string {
	if l, ok := asList(v); ok {
		return strings.Join(l, ",")
	}
	return fmt.Sprint(v)
}

// jaccard is |want ∩ got| / |want ∪ got| with exact element comparison.
func jaccard(want, got []string) float64 {
	union := make(map[string]struct{}, len(want)+len(got))
	for _, w := range want {
		union[w] = struct{}{}
	}
	for _, g := range got {
		union[g] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	var inter int
	for _, w := range want {
		if slices.Contains(got, w) {
			inter++
		}
	}
	return float64(inter) / float64(len(union))
}
