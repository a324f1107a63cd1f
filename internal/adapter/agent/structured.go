package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonschema"

	"marhaba/internal/domain"
	"marhaba/internal/usecase/extract"
)

// familyTarget names the agent asked for a family's card and the payload it must return.
type familyTarget struct {
	agent     string
	msgType   domain.MessageType
	schema    *jsonschema.Schema
	rawSchema string
}

// StructuredFetcher asks a structured agent for a family card as JSON,
// validates it against the payload schema and decodes it. It implements
// domain.StructuredFetcher.
type StructuredFetcher struct {
	caller  domain.AgentCaller
	targets map[domain.Family]familyTarget
	now     func() time.Time
}

// NewStructuredFetcher creates a fetcher that asks food-recommender for food
// cards and travel-booking for accommodation cards.
func NewStructuredFetcher(caller domain.AgentCaller, now func() time.Time) (*StructuredFetcher, error) {
	if now == nil {
		now = time.Now
	}
	compiler := jsonschema.NewCompiler()
	food, err := compiler.Compile([]byte(foodRecommendationsSchema))
	if err != nil {
		return nil, fmt.Errorf("compile food schema: %w", err)
	}
	stay, err := compiler.Compile([]byte(accommodationRecommendationsSchema))
	if err != nil {
		return nil, fmt.Errorf("compile accommodation schema: %w", err)
	}
	return &StructuredFetcher{
		caller: caller,
		now:    now,
		targets: map[domain.Family]familyTarget{
			domain.FamilyFood: {
				agent: "food-recommender", msgType: domain.MessageFoodRecommendations,
				schema: food, rawSchema: foodRecommendationsSchema,
			},
			domain.FamilyAccommodation: {
				agent: "travel-booking", msgType: domain.MessageAccommodationRecommendations,
				schema: stay, rawSchema: accommodationRecommendationsSchema,
			},
		},
	}, nil
}

// FetchStructured implements domain.StructuredFetcher.
func (f *StructuredFetcher) FetchStructured(ctx context.Context, family domain.Family, query string) (domain.Payload, error) {
	const op = "agent.FetchStructured"

	target, ok := f.targets[family]
	if !ok {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, fmt.Sprintf("family %q", family))
	}

	prompt := extract.ForAgent(target.agent, query, f.now()) +
		"\n\nReply with a single JSON object, no prose, matching this JSON schema:\n" + target.rawSchema
	content, err := f.caller.Call(ctx, target.agent, prompt)
	if err != nil {
		return nil, err
	}

	raw := stripCodeFences(content)
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, domain.NewDomainError(op, domain.ErrInvalidPayload, fmt.Sprintf("%s: not JSON: %v", target.agent, err))
	}
	if result := target.schema.Validate(doc); !result.IsValid() {
		return nil, domain.NewDomainError(op, domain.ErrInvalidPayload, fmt.Sprintf("%s: %s", target.agent, result.Error()))
	}
	return domain.DecodePayload(target.msgType, json.RawMessage(raw))
}

// codeFenceRe matches markdown code fences wrapping JSON.
var codeFenceRe = regexp.MustCompile(`(?si)^` + "```" + `(?:json)?\s*(.*?)\s*` + "```" + `$`)

// stripCodeFences removes the markdown fence an agent may wrap its JSON in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}

var _ domain.StructuredFetcher = (*StructuredFetcher)(nil)
