// Package demo serves canned travel plans when the agent backend is not
// available, picking the scenario closest to the submitted form.
package demo

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"marhaba/internal/domain"
)

//go:embed scenarios.yaml
var builtinScenarios []byte

// Scenario is one canned plan and the form values it was written for.
type Scenario struct {
	Name        string
	Description string
	FormValues  map[string]any
	Messages    []domain.Message
}

type scenarioFile struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	FormValues  map[string]any `yaml:"form_values"`
	Messages    []struct {
		Type    domain.MessageType `yaml:"type"`
		Payload map[string]any     `yaml:"payload"`
	} `yaml:"messages"`
}

// ParseScenarios decodes a YAML list of scenarios. Every message payload is
// decoded into its typed variant so a bad entry fails at load time.
func ParseScenarios(data []byte) ([]Scenario, error) {
	var files []scenarioFile
	if err := yaml.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	out := make([]Scenario, 0, len(files))
	for _, f := range files {
		if f.Name == "" {
			return nil, fmt.Errorf("parse scenarios: %w: scenario without a name", domain.ErrInvalidInput)
		}
		sc := Scenario{Name: f.Name, Description: f.Description, FormValues: f.FormValues}
		for i, m := range f.Messages {
			raw, err := json.Marshal(m.Payload)
			if err != nil {
				return nil, fmt.Errorf("scenario %q message %d: %w", f.Name, i, err)
			}
			p, err := domain.DecodePayload(m.Type, raw)
			if err != nil {
				return nil, fmt.Errorf("scenario %q message %d: %w", f.Name, i, err)
			}
			sc.Messages = append(sc.Messages, domain.NewMessage(p))
		}
		out = append(out, sc)
	}
	return out, nil
}

// BuiltinScenarios returns the scenarios shipped with the binary.
func BuiltinScenarios() []Scenario {
	sc, err := ParseScenarios(builtinScenarios)
	if err != nil {
		panic(fmt.Sprintf("demo: builtin scenarios: %v", err))
	}
	return sc
}
