package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	leadingFence  = regexp.MustCompile("^```(?:json)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
	jsonObject    = regexp.MustCompile(`\{[\s\S]*\}`)
)

const jsonInstruction = `
You are a precise JSON generator.
You must output VALID JSON matching exactly this schema:
%s
Do not output any markdown formatting like ` + "```json or ```" + `. Just the raw JSON object.
`

// StructuredClient asks a Generator for JSON shaped like an example value and
// repairs malformed answers by re-prompting.
type StructuredClient struct {
	gen         Generator
	maxAttempts int
	logger      *zap.Logger
}

// NewStructuredClient creates a StructuredClient. maxAttempts < 1 means 3.
func NewStructuredClient(gen Generator, maxAttempts int, logger *zap.Logger) *StructuredClient {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StructuredClient{gen: gen, maxAttempts: maxAttempts, logger: logger}
}

// GenerateStructured returns the JSON object the model produced for prompt.
// example is marshalled into the system instruction as the expected shape;
// its values are illustrative only. After maxAttempts unparseable answers it
// fails with *GenerationFormatError.
func (c *StructuredClient) GenerateStructured(ctx context.Context, prompt string, example any, system string) (map[string]any, error) {
	schema, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema example: %w", err)
	}

	instruction := fmt.Sprintf(jsonInstruction, schema)
	fullSystem := instruction
	if system != "" {
		fullSystem = system + "\n" + instruction
	}

	current := prompt
	var lastOutput string
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("structured generation cancelled: %w", err)
		}

		lastOutput = c.gen.Generate(ctx, current, fullSystem)

		obj, err := parseJSONObject(lastOutput)
		if err == nil {
			return obj, nil
		}
		lastErr = err

		c.logger.Warn("json parse error",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Error(err))

		// Repairs always start again from the caller's prompt.
		current = prompt + fmt.Sprintf("\n\nError: Previous output was not valid JSON. \nOutput: %s\nError: %s\nPlease correct it.", lastOutput, err)
	}

	return nil, &GenerationFormatError{
		Attempts:   c.maxAttempts,
		LastOutput: lastOutput,
		Err:        lastErr,
	}
}

// ExtractJSON strips surrounding whitespace and code fences and returns the
// span from the first '{' to the last '}' when there is one.
func ExtractJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = leadingFence.ReplaceAllString(cleaned, "")
	cleaned = trailingFence.ReplaceAllString(cleaned, "")
	if m := jsonObject.FindString(cleaned); m != "" {
		return m
	}
	return cleaned
}

func parseJSONObject(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("expected a JSON object, got null")
	}
	return obj, nil
}
