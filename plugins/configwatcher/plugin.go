// Package configwatcher re-initializes the process when its config file changes.
//
// The watcher observes the directory holding the file so editors that replace
// the file on save are handled. Changes are debounced, reloaded with the usual
// file < env < flag precedence, and applied with a forced initialization.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/foundation"
	"github.com/bft-labs/foundation/pkg/config"
	"github.com/bft-labs/foundation/pkg/log"
)

// ErrNoPath is returned by Start when no config file path is configured.
var ErrNoPath = errors.New("configwatcher: config path is required")

// Initializer is satisfied by *foundation.Coordinator.
type Initializer interface {
	Initialize(ctx context.Context, deps foundation.Deps, opts ...foundation.InitOption) (*config.Config, log.Configurable, error)
}

// Config holds configuration options for the config watcher.
type Config struct {
	// Path is the config file to watch. Required.
	Path string

	// Base holds values set on the command line. Keys in Changed keep their
	// Base value on every reload.
	Base    config.Config
	Changed map[string]bool

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// RetryInterval is the initial delay between reload attempts.
	// Default: 500 milliseconds
	RetryInterval time.Duration

	// MaxRetries bounds reload attempts after the first failure.
	// Default: 3
	MaxRetries int

	// OnReload is called after every reload attempt.
	OnReload func(cfg *config.Config, err error)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Base:          config.DefaultConfig(),
		DebounceDelay: 100 * time.Millisecond,
		RetryInterval: 500 * time.Millisecond,
		MaxRetries:    3,
	}
}

// Plugin watches a config file and re-initializes on change.
type Plugin struct {
	cfg    Config
	target Initializer
	deps   foundation.Deps
	logger log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	reloads int
}

// New creates a watcher that re-initializes target with deps.
func New(cfg Config, target Initializer, deps foundation.Deps, logger log.Logger) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Path != "" {
		cfg.Path = filepath.Clean(cfg.Path)
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Plugin{cfg: cfg, target: target, deps: deps, logger: logger}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Start begins watching. It returns once the watch is established.
func (p *Plugin) Start(ctx context.Context) error {
	if p.cfg.Path == "" {
		return ErrNoPath
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("configwatcher: create watcher: %w", err)
	}
	dir := filepath.Dir(p.cfg.Path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("configwatcher: watch %s: %w", dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("config watcher started", log.String("path", p.cfg.Path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and waits for an in-flight reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reloads returns the number of successful reloads.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	debounce := time.NewTimer(p.cfg.DebounceDelay)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.cfg.Path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce.Reset(p.cfg.DebounceDelay)

		case <-debounce.C:
			p.reloadWithRetry(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

// reloadWithRetry reloads until success, retries run out, or ctx is done.
func (p *Plugin) reloadWithRetry(ctx context.Context) {
	b := newBackoff(p.cfg.RetryInterval, 10*p.cfg.RetryInterval)
	for attempt := 0; ; attempt++ {
		cfg, err := p.reload(ctx)
		if p.cfg.OnReload != nil {
			p.cfg.OnReload(cfg, err)
		}
		if err == nil {
			p.logger.Info("config reloaded",
				log.String("path", p.cfg.Path),
				log.Int("attempts", attempt+1),
			)
			return
		}

		p.logger.Warn("config reload failed",
			log.String("path", p.cfg.Path),
			log.Int("attempt", attempt+1),
			log.Err(err),
		)
		if attempt >= p.cfg.MaxRetries || !b.Wait(ctx) {
			return
		}
	}
}

func (p *Plugin) reload(ctx context.Context) (*config.Config, error) {
	cfg := p.cfg.Base.Clone()
	if err := config.Resolve(cfg, p.cfg.Path, p.cfg.Changed); err != nil {
		return nil, err
	}

	if _, _, err := p.target.Initialize(ctx, p.deps, foundation.WithConfig(cfg), foundation.WithForce()); err != nil {
		return cfg, err
	}

	p.mu.Lock()
	p.reloads++
	p.mu.Unlock()
	return cfg, nil
}
