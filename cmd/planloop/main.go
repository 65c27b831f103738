package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/ChamsBouzaiene/planloop/internal/factory"
	"github.com/ChamsBouzaiene/planloop/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultTask = "Calculate 10 + 5 and summarize."

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitExhausted = 2
)

type rootOptions struct {
	task        string
	configPath  string
	skillsDir   string
	watchSkills bool
	logLevel    string
	ephemeral   bool
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	err := cmd.ExecuteContext(ctx)
	stop()

	var ee *exitError
	switch {
	case err == nil:
		os.Exit(exitOK)
	case errors.As(err, &ee):
		os.Exit(ee.code)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailure)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "planloop",
		Short: "Plan, execute and reflect until a task is done",
		Long: `planloop breaks a task into steps with an LLM, executes each step with the
available tools and reflects on every result to retry, replan or move on.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd.Context(), opts, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to the YAML config file (default: configs/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.Flags().StringVar(&opts.task, "task", defaultTask, "Task for the agent")
	root.Flags().StringVar(&opts.skillsDir, "skills", "", "Skill directory (overrides config)")
	root.Flags().BoolVar(&opts.watchSkills, "watch-skills", false, "Reload skills when files in the skill directory change")
	root.Flags().BoolVar(&opts.ephemeral, "ephemeral", false, "Use a throwaway memory store for this run")

	root.AddCommand(newRunsCmd(opts, stdout))
	return root
}

func runTask(ctx context.Context, opts *rootOptions, stdout, stderr io.Writer) error {
	env, err := loadEnv(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(env.cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Debug("configuration loaded", zap.String("path", env.cfgPath), zap.String("provider", env.cfg.LLM.Provider))

	rt, err := factory.BuildAgent(ctx, env.cfg, factory.Options{
		Ephemeral:   opts.ephemeral,
		WatchSkills: opts.watchSkills || env.cfg.Skills.Watch,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to build agent: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to release runtime", zap.Error(err))
		}
	}()

	fmt.Fprintf(stderr, "Starting agent for task: %s\n", opts.task)
	started := time.Now()
	st, runErr := rt.Agent.Run(ctx, opts.task)

	saveTranscript(ctx, rt, st, started, logger)

	if runErr != nil {
		return runErr
	}

	fmt.Fprint(stdout, "\n--- Final Result ---\n")
	fmt.Fprintln(stdout, st.FinalResponse())

	if st.Status == engine.StatusExhausted {
		return &exitError{code: exitExhausted}
	}
	return nil
}

// saveTranscript records the run under the runs directory. Failures are logged.
func saveTranscript(ctx context.Context, rt *factory.Runtime, st *engine.RunState, started time.Time, logger *zap.Logger) {
	if st == nil {
		return
	}
	s := session.FromRunState(st, started)
	// the run context may already be cancelled; the title is best effort
	titleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	s.Title = rt.Titler.Title(titleCtx, st.Objective)

	if err := rt.Runs.Save(s); err != nil {
		logger.Warn("failed to save run transcript", zap.String("run", st.ID), zap.Error(err))
		return
	}
	logger.Info("run saved", zap.String("run", st.ID), zap.String("status", string(st.Status)))
}
