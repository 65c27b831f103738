package engine

import "context"

// MemoryStore is long-term memory shared across runs.
type MemoryStore interface {
	Add(ctx context.Context, content string, metadata map[string]string) (string, error)
	RetrieveRelevant(ctx context.Context, query string, limit int) ([]string, error)
}

// ContextStore is a small key/value store for the current run's working context.
type ContextStore interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
}

// Context store keys written by the agent.
const (
	ContextKeyObjective    = "current_objective"
	ContextKeyPlan         = "current_plan"
	ContextKeyLastDecision = "last_decision"
	ContextKeyRunID        = "run_id"
)

// Memory kinds stored under the "type" metadata key.
const (
	MemoryKindGoal   = "goal"
	MemoryKindPlan   = "plan"
	MemoryKindResult = "result"
)
