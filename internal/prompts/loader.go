package prompts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var overridableTemplates = map[string]bool{
	PlanTemplate:    true,
	ExecuteTemplate: true,
	ReflectTemplate: true,
	SummaryTemplate: true,
	PlanSystem:      true,
	ExecuteSystem:   true,
	ReflectSystem:   true,
}

// LoadTemplates reads a YAML file of id -> template text and registers each
// entry as an override of the built-in prompt. A missing file is not an error.
// It returns the ids that were overridden.
func LoadTemplates(r *PromptRegistry, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt templates: %w", err)
	}

	var templates map[string]string
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates %s: %w", path, err)
	}

	var loaded []string
	for id, content := range templates {
		if !overridableTemplates[id] {
			return loaded, fmt.Errorf("unknown prompt template %q in %s", id, path)
		}
		if content == "" {
			continue
		}
		r.Register(&Prompt{
			ID:          id,
			Version:     PromptOverride,
			Content:     content,
			Description: "Loaded from " + path,
			Tags:        []string{"override"},
		})
		loaded = append(loaded, id)
	}
	return loaded, nil
}
