package skills

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads skills into a registry whenever files in the skill
// directory change. Bursts of events are debounced into a single reload.
type Watcher struct {
	loader   *Loader
	registry *engine.ToolRegistry
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	pending bool
	loaded  map[string]bool // skill tool names currently registered

	onReload func(names []string)
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for loader's directory. names lists the skill
// tools already registered so a reload can remove them if they disappear.
func NewWatcher(loader *Loader, registry *engine.ToolRegistry, names []string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	loaded := make(map[string]bool, len(names))
	for _, n := range names {
		loaded[n] = true
	}
	return &Watcher{
		loader:   loader,
		registry: registry,
		watcher:  fw,
		debounce: defaultDebounce,
		logger:   logger,
		loaded:   loaded,
	}, nil
}

// OnReload sets a callback invoked with the skill tool names after each reload.
func (w *Watcher) OnReload(fn func(names []string)) {
	w.onReload = fn
}

// Start begins watching. It returns once the directory is being watched.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.loader.Dir()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.loader.Dir(), err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(2)
	go w.eventLoop(ctx)
	go w.debounceLoop(ctx)

	w.logger.Info("watching skills", zap.String("dir", w.loader.Dir()))
	return nil
}

// Stop stops the watcher and waits for its goroutines.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	return w.watcher.Close()
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.mu.Lock()
			w.pending = true
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("skill watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if name != ignoreFile && !isSkillFile(name) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			pending := w.pending
			w.pending = false
			w.mu.Unlock()

			if pending {
				if err := w.Reload(ctx); err != nil {
					w.logger.Warn("skill reload failed", zap.Error(err))
				}
			}
		}
	}
}

// Reload loads the skill directory and brings the registry in line with it:
// new and changed tools are registered, removed ones unregistered.
func (w *Watcher) Reload(ctx context.Context) error {
	tools, err := w.loader.Load(ctx)
	if err != nil {
		return err
	}

	current := make(map[string]bool, len(tools))
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		if err := w.registry.Register(ctx, t); err != nil {
			w.logger.Warn("failed to register skill", zap.String("tool", t.Name()), zap.Error(err))
			continue
		}
		if !current[t.Name()] {
			names = append(names, t.Name())
		}
		current[t.Name()] = true
	}

	w.mu.Lock()
	for name := range w.loaded {
		if !current[name] {
			w.registry.Unregister(name)
			w.logger.Info("skill removed", zap.String("tool", name))
		}
	}
	w.loaded = current
	w.mu.Unlock()

	w.logger.Info("skills reloaded", zap.Int("tools", len(names)))
	if w.onReload != nil {
		w.onReload(names)
	}
	return nil
}
