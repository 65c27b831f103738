package prompts

// PromptVersion represents a version identifier for prompts.
type PromptVersion string

const (
	// PromptV1 is the built-in version of every prompt.
	PromptV1 PromptVersion = "1.0.0"
	// PromptOverride marks templates loaded from a user file; it sorts after PromptV1.
	PromptOverride PromptVersion = "9.0.0-override"
)

// Prompt represents a versioned prompt with metadata.
type Prompt struct {
	ID          string        // Unique identifier (e.g., "plan_template", "reflect_system")
	Version     PromptVersion // Version of this prompt
	Content     string        // Template text with {{var}} placeholders
	Description string        // Human-readable description
	Tags        []string      // Tags for categorization (e.g., ["template", "planning"])
	Deprecated  bool          // True if this version is deprecated
}
