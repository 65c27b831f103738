package session

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
)

const (
	titleSystemPrompt = "You are a helpful assistant. Generate a short, concise title (3-5 words) for this task. Do not use quotes or punctuation."
	maxTitleRunes     = 60
)

// Titler names runs for the runs listing.
type Titler struct {
	gen engine.Generator
}

// NewTitler creates a titler. A nil generator titles runs from the objective.
func NewTitler(gen engine.Generator) *Titler {
	return &Titler{gen: gen}
}

// Title returns a short title for objective. When generation fails the
// objective itself is used, shortened to fit.
func (t *Titler) Title(ctx context.Context, objective string) string {
	if t.gen != nil {
		title := strings.TrimSpace(t.gen.Generate(ctx, "Task: "+objective+"\n\nGenerate Title:", titleSystemPrompt))
		title = strings.Trim(title, `"'.`)
		if title != "" && !engine.IsGenerationFailure(title) && !strings.Contains(title, "\n") {
			return shorten(title)
		}
	}
	return shorten(strings.Join(strings.Fields(objective), " "))
}

func shorten(s string) string {
	if utf8.RuneCountInString(s) <= maxTitleRunes {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxTitleRunes-3])) + "..."
}
