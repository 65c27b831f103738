package engine

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ChamsBouzaiene/planloop/internal/prompts"
	"go.uber.org/zap"
)

var bulletPrefix = regexp.MustCompile(`^[\d.\-*\s]+`)

// Planner turns an objective into an ordered list of steps.
type Planner struct {
	gen         Generator
	tools       ToolProvider
	memory      MemoryStore
	prompts     *prompts.PromptRegistry
	toolLimit   int
	recallLimit int
	logger      *zap.Logger
}

// BuildPlan asks the model for a plan. It always returns at least one step.
func (p *Planner) BuildPlan(ctx context.Context, objective string) []string {
	var names []string
	for _, info := range p.tools.List(ctx, objective, p.toolLimit) {
		names = append(names, info.Name)
	}

	memories := "None"
	if p.memory != nil && p.recallLimit > 0 {
		recalled, err := p.memory.RetrieveRelevant(ctx, objective, p.recallLimit)
		if err != nil {
			p.logger.Warn("memory recall failed", zap.Error(err))
		} else if len(recalled) > 0 {
			memories = "- " + strings.Join(recalled, "\n- ")
		}
	}

	prompt := p.prompts.MustRender(prompts.PlanTemplate, map[string]string{
		"objective":  objective,
		"tool_names": "[" + strings.Join(names, ", ") + "]",
		"memories":   memories,
	})

	response := p.gen.Generate(ctx, prompt, p.prompts.MustRender(prompts.PlanSystem, nil))
	plan := ParsePlan(response)

	p.logger.Info("plan created", zap.Int("steps", len(plan)), zap.Strings("plan", plan))
	return plan
}

// ParsePlan extracts steps from a model response. Lines starting with a digit,
// '-' or '*' are steps once their list markers are stripped. A response with no
// such line becomes a single step holding the raw response.
func ParsePlan(response string) []string {
	var steps []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first, _ := utf8.DecodeRuneInString(line)
		if !unicode.IsDigit(first) && first != '-' && first != '*' {
			continue
		}
		step := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if step != "" {
			steps = append(steps, step)
		}
	}
	if len(steps) == 0 {
		return []string{response}
	}
	return steps
}
