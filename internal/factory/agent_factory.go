// Package factory wires configuration into a ready-to-run agent.
package factory

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ChamsBouzaiene/planloop/internal/config"
	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/ChamsBouzaiene/planloop/internal/memory"
	"github.com/ChamsBouzaiene/planloop/internal/prompts"
	"github.com/ChamsBouzaiene/planloop/internal/providers"
	"github.com/ChamsBouzaiene/planloop/internal/sandbox"
	"github.com/ChamsBouzaiene/planloop/internal/session"
	"github.com/ChamsBouzaiene/planloop/internal/skills"
	"github.com/ChamsBouzaiene/planloop/internal/tools"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options adjusts how the runtime is assembled.
type Options struct {
	Ephemeral   bool             // keep memory in a temp dir removed on Close
	WatchSkills bool             // reload skills when the skill directory changes
	Generator   engine.Generator // overrides the configured LLM; used by tests
}

// Runtime is everything a run needs. Close releases it.
type Runtime struct {
	Agent    *engine.Agent
	Registry *engine.ToolRegistry
	Memory   *memory.Store
	Runs     *session.Store
	Titler   *session.Titler

	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// BuildAgent assembles the runtime for cfg. Memory, skills and the sandbox
// runner are prepared concurrently.
func BuildAgent(ctx context.Context, cfg *config.Config, opts Options, logger *zap.Logger) (_ *Runtime, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Runtime{Runs: session.NewStore(cfg.Runs.Dir)}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	gen := opts.Generator
	if gen == nil {
		llm, model, err := providers.NewLLMClient(cfg.LLM)
		if err != nil {
			return nil, err
		}
		policy := engine.DefaultLLMRetryPolicy()
		policy.MaxRetries = cfg.LLM.MaxRetries
		gen = engine.NewChatGenerator(llm, model, engine.ChatOptions{
			Temperature:     cfg.LLM.Temperature,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		}, policy, logger.Named("llm"))
		logger.Info("llm configured", zap.String("provider", cfg.LLM.Provider), zap.String("model", model))
	}

	memPath := cfg.Memory.Path
	if opts.Ephemeral {
		memPath = ""
	}
	loader := skills.NewLoader(cfg.Skills.Dir, logger.Named("skills"))

	var (
		store      *memory.Store
		skillTools []engine.Tool
		runner     sandbox.Runner
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := memory.Open(gctx, memPath, logger.Named("memory"))
		if err != nil {
			return fmt.Errorf("failed to open memory: %w", err)
		}
		store = s
		return nil
	})
	g.Go(func() error {
		t, err := loader.Load(gctx)
		if err != nil {
			return fmt.Errorf("failed to load skills: %w", err)
		}
		skillTools = t
		return nil
	})
	if cfg.Sandbox.Enabled {
		g.Go(func() error {
			r, err := sandbox.NewRunner(gctx, sandbox.FromConfig(cfg.Sandbox), logger.Named("sandbox"))
			if err != nil {
				return err
			}
			runner = r
			return nil
		})
	}
	err = g.Wait()
	// register closers for whatever did open, even on failure
	if store != nil {
		rt.Memory = store
		rt.closers = append(rt.closers, store.Close)
	}
	if c, ok := runner.(io.Closer); ok {
		rt.closers = append(rt.closers, c.Close)
	}
	if err != nil {
		return nil, err
	}

	contextStore, closeContext, err := memory.NewContextStore(ctx, cfg.Context, store)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closeContext)

	registry, err := tools.BuildRegistry(ctx, tools.Options{
		Index:      store,
		Memory:     store,
		MCPServers: cfg.MCP.Servers,
		Runner:     runner,
		WorkDir:    cfg.Sandbox.WorkDir,
		Skills:     skillTools,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	rt.Registry = registry

	if opts.WatchSkills {
		names := make([]string, 0, len(skillTools))
		for _, t := range skillTools {
			names = append(names, t.Name())
		}
		w, err := skills.NewWatcher(loader, registry, names, logger.Named("skills"))
		if err != nil {
			return nil, err
		}
		if err := w.Start(ctx); err != nil {
			_ = w.Stop()
			logger.Warn("skill watching disabled", zap.Error(err))
		} else {
			rt.closers = append(rt.closers, w.Stop)
		}
	}

	promptRegistry := prompts.NewDefaultRegistry()
	overridden, err := prompts.LoadTemplates(promptRegistry, cfg.Prompts.Path)
	if err != nil {
		return nil, err
	}
	if len(overridden) > 0 {
		logger.Info("prompt templates loaded", zap.String("path", cfg.Prompts.Path), zap.Strings("ids", overridden))
	}

	telemetry, err := engine.NewTelemetryHook(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry hook: %w", err)
	}

	agent, err := engine.NewAgentBuilder().
		WithGenerator(gen).
		WithTools(registry).
		WithMemory(store).
		WithContextStore(contextStore).
		WithPrompts(promptRegistry).
		WithLoopConfig(loopConfig(cfg.Agent)).
		WithHooks(engine.Hooks{engine.LoggerHook{L: logger.Named("run")}, telemetry}).
		WithLogger(logger.Named("agent")).
		Build()
	if err != nil {
		return nil, err
	}
	rt.Agent = agent
	rt.Titler = session.NewTitler(gen)
	return rt, nil
}

func loopConfig(a config.AgentConfig) engine.LoopConfig {
	return engine.LoopConfig{
		StructuredRetries: a.StructuredRetries,
		CompressAfter:     a.CompressAfter,
		StepToolLimit:     a.StepToolLimit,
		PlanToolLimit:     a.PlanToolLimit,
		ForceReplanAfter:  a.ForceReplanAfter,
		MaxForcedReplans:  a.MaxForcedReplans,
		MaxIterations:     a.MaxIterations,
		RecallLimit:       a.RecallLimit,
	}
}
