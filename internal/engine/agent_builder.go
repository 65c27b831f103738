package engine

import (
	"errors"

	"github.com/ChamsBouzaiene/planloop/internal/prompts"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// AgentBuilder helps construct an Agent with a fluent API.
type AgentBuilder struct {
	config  LoopConfig
	gen     Generator
	tools   ToolProvider
	memory  MemoryStore
	context ContextStore
	prompts *prompts.PromptRegistry
	hooks   Hooks
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewAgentBuilder creates a new agent builder with default limits.
func NewAgentBuilder() *AgentBuilder {
	return &AgentBuilder{
		config: DefaultLoopConfig(),
	}
}

// WithGenerator sets the text generator used for every model call.
func (b *AgentBuilder) WithGenerator(gen Generator) *AgentBuilder {
	b.gen = gen
	return b
}

// WithTools sets the tool registry.
func (b *AgentBuilder) WithTools(tools ToolProvider) *AgentBuilder {
	b.tools = tools
	return b
}

// WithMemory sets long-term memory. Optional.
func (b *AgentBuilder) WithMemory(memory MemoryStore) *AgentBuilder {
	b.memory = memory
	return b
}

// WithContextStore sets the working-context store. Optional.
func (b *AgentBuilder) WithContextStore(store ContextStore) *AgentBuilder {
	b.context = store
	return b
}

// WithPrompts sets the prompt registry. Defaults to the built-in prompts.
func (b *AgentBuilder) WithPrompts(r *prompts.PromptRegistry) *AgentBuilder {
	b.prompts = r
	return b
}

// WithLoopConfig sets the loop limits. Zero fields keep their defaults.
func (b *AgentBuilder) WithLoopConfig(cfg LoopConfig) *AgentBuilder {
	def := DefaultLoopConfig()
	if cfg.StructuredRetries <= 0 {
		cfg.StructuredRetries = def.StructuredRetries
	}
	if cfg.CompressAfter <= 0 {
		cfg.CompressAfter = def.CompressAfter
	}
	if cfg.StepToolLimit <= 0 {
		cfg.StepToolLimit = def.StepToolLimit
	}
	if cfg.PlanToolLimit <= 0 {
		cfg.PlanToolLimit = def.PlanToolLimit
	}
	if cfg.ForceReplanAfter <= 0 {
		cfg.ForceReplanAfter = def.ForceReplanAfter
	}
	if cfg.MaxForcedReplans <= 0 {
		cfg.MaxForcedReplans = def.MaxForcedReplans
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.RecallLimit < 0 {
		cfg.RecallLimit = 0
	}
	b.config = cfg
	return b
}

// WithHooks sets custom hooks.
func (b *AgentBuilder) WithHooks(hooks Hooks) *AgentBuilder {
	b.hooks = hooks
	return b
}

// WithTracer sets the tracer. Defaults to the global TracerProvider.
func (b *AgentBuilder) WithTracer(tracer trace.Tracer) *AgentBuilder {
	b.tracer = tracer
	return b
}

// WithLogger sets the logger.
func (b *AgentBuilder) WithLogger(logger *zap.Logger) *AgentBuilder {
	b.logger = logger
	return b
}

// Build creates the agent instance.
func (b *AgentBuilder) Build() (*Agent, error) {
	if b.gen == nil {
		return nil, errors.New("generator not configured: use WithGenerator")
	}
	if b.tools == nil {
		return nil, errors.New("tools not configured: use WithTools")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := b.prompts
	if registry == nil {
		registry = prompts.NewDefaultRegistry()
	}
	tracer := b.tracer
	if tracer == nil {
		tracer = defaultTracer()
	}

	structured := NewStructuredClient(b.gen, b.config.StructuredRetries, logger.Named("structured"))

	return &Agent{
		config: b.config,
		planner: &Planner{
			gen:         b.gen,
			tools:       b.tools,
			memory:      b.memory,
			prompts:     registry,
			toolLimit:   b.config.PlanToolLimit,
			recallLimit: b.config.RecallLimit,
			logger:      logger.Named("planner"),
		},
		executor: &Executor{
			structured: structured,
			tools:      b.tools,
			compressor: &Compressor{
				gen:       b.gen,
				prompts:   registry,
				threshold: b.config.CompressAfter,
				logger:    logger.Named("compressor"),
			},
			prompts:   registry,
			toolLimit: b.config.StepToolLimit,
			hooks:     b.hooks,
			logger:    logger.Named("executor"),
		},
		reflector: &Reflector{
			structured:       structured,
			prompts:          registry,
			forceReplanAfter: b.config.ForceReplanAfter,
			maxForcedReplans: b.config.MaxForcedReplans,
			logger:           logger.Named("reflector"),
		},
		memory:  b.memory,
		context: b.context,
		hooks:   b.hooks,
		tracer:  tracer,
		logger:  logger,
	}, nil
}
