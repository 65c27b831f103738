package engine

import (
	"context"
	"strings"

	"github.com/ChamsBouzaiene/planloop/internal/prompts"
	"go.uber.org/zap"
)

// Compressor folds long step histories into a rolling summary.
type Compressor struct {
	gen       Generator
	prompts   *prompts.PromptRegistry
	threshold int
	logger    *zap.Logger
}

// Compress returns a summary of history when it holds more than threshold
// entries. The summary is never empty: if the model fails or answers with
// nothing, the transcript itself is kept.
func (c *Compressor) Compress(ctx context.Context, history []StepRecord) (string, bool) {
	if len(history) <= c.threshold {
		return "", false
	}

	transcript := FormatHistory(history)
	prompt := c.prompts.MustRender(prompts.SummaryTemplate, map[string]string{
		"history": transcript,
	})

	summary := strings.TrimSpace(c.gen.Generate(ctx, prompt, ""))
	if summary == "" || IsGenerationFailure(summary) {
		c.logger.Warn("summary generation failed, keeping raw transcript",
			zap.Int("entries", len(history)),
			zap.String("output", summary))
		summary = transcript
	}

	c.logger.Info("history compressed", zap.Int("entries", len(history)), zap.Int("summary_chars", len(summary)))
	return summary, true
}
