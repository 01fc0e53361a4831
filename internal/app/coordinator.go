package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/bft-labs/foundation/internal/domain"
	"github.com/bft-labs/foundation/internal/metrics"
	"github.com/bft-labs/foundation/pkg/config"
	"github.com/bft-labs/foundation/pkg/hub"
	"github.com/bft-labs/foundation/pkg/lockmgr"
	"github.com/bft-labs/foundation/pkg/log"
)

// DefaultLockName is the named lock serializing initialization.
const DefaultLockName = "foundation.init"

// Registry names of the components installed by the registry step.
const (
	ConfigComponent = "foundation.config"
	LoggerComponent = "foundation.logger"
)

// Config sources recorded in registry metadata.
const (
	SourceSupplied = "supplied"
	SourceEnv      = "env"
	SourceDefault  = "default"
	SourceUpdate   = "update"
)

// Registrar registers additional components during the registry step.
// ctx carries the initialization marker; calling Initialize with it fails
// with domain.ErrReentrantInit instead of deadlocking.
type Registrar func(ctx context.Context, reg hub.Registry, cfg *config.Config, logger log.Configurable) error

// Deps are the collaborators used by one initialization.
// Zero fields fall back to process defaults.
type Deps struct {
	// Locks serializes initialization. Nil uses the coordinator's manager.
	// Reset and UpdateConfigIfDefault always use the coordinator's manager,
	// so an override should be the manager passed to WithLockManager.
	Locks *lockmgr.Manager

	Hub     hub.Registry
	Configs config.Factory
	Loggers log.Factory

	// Hooks are installed on the logger next to the built-in event handlers.
	Hooks []zerolog.Hook

	// Registrars run at the end of the registry step, in order.
	Registrars []Registrar
}

func (d Deps) withDefaults(locks *lockmgr.Manager) Deps {
	if d.Locks == nil {
		d.Locks = locks
	}
	if d.Hub == nil {
		d.Hub = hub.Default()
	}
	if d.Configs == nil {
		d.Configs = config.EnvFactory{}
	}
	if d.Loggers == nil {
		d.Loggers = log.ZerologFactory{}
	}
	return d
}

// InitOption configures a single Initialize call.
type InitOption func(*initOptions)

type initOptions struct {
	cfg   *config.Config
	force bool
}

// WithConfig supplies the config, skipping the config step.
func WithConfig(cfg *config.Config) InitOption {
	return func(o *initOptions) {
		o.cfg = cfg
	}
}

// WithForce resets any previous outcome and runs a fresh initialization.
func WithForce() InitOption {
	return func(o *initOptions) {
		o.force = true
	}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLockManager sets the lock manager. Defaults to lockmgr.Default().
func WithLockManager(m *lockmgr.Manager) Option {
	return func(c *Coordinator) {
		c.locks = m
	}
}

// WithLockName sets the lock name. Defaults to DefaultLockName.
func WithLockName(name string) Option {
	return func(c *Coordinator) {
		c.lockName = name
	}
}

// WithLogger sets the logger used for the coordinator's own diagnostics.
func WithLogger(logger log.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithEmitter sets an observer for status transitions.
func WithEmitter(e EventEmitter) Option {
	return func(c *Coordinator) {
		c.emitter = e
	}
}

// Coordinator runs the process-wide initialization exactly once per epoch.
//
// Readers use a lock-free snapshot. Every mutation happens while holding the
// named lock, so at most one step sequence runs at a time.
type Coordinator struct {
	lockName  string
	locks     *lockmgr.Manager
	logger    log.Logger
	emitter   EventEmitter
	lifecycle *Lifecycle
	snap      atomic.Pointer[Snapshot]

	// registry is the hub used by the last initialization. Guarded by the named lock.
	registry hub.Registry
}

// NewCoordinator creates a coordinator in StatusUninitialized.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{lockName: DefaultLockName}
	for _, opt := range opts {
		opt(c)
	}
	if c.locks == nil {
		c.locks = lockmgr.Default()
	}
	if c.logger == nil {
		c.logger = bootstrapLogger()
	}
	c.lifecycle = NewLifecycle(c.logger, c.emitter)
	c.snap.Store(newSnapshot(domain.StatusUninitialized, uuid.Nil))
	return c
}

// bootstrapLogger reports problems that occur before a logger is configured.
func bootstrapLogger() log.Logger {
	return log.NewZerologAdapterWithLogger(
		zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(zerolog.WarnLevel).
			With().Timestamp().Str("component", "foundation").Logger(),
	)
}

type initMarker struct{}

func withInitMarker(ctx context.Context) context.Context {
	return context.WithValue(ctx, initMarker{}, true)
}

func inInit(ctx context.Context) bool {
	v, _ := ctx.Value(initMarker{}).(bool)
	return v
}

// Initialize returns the process config and logger, running the setup steps
// if no initialization has completed yet.
//
// Concurrent callers block until the running sequence resolves and then share
// its result. After a failure, Initialize returns an error with
// domain.CodePreviouslyFailed until WithForce or Reset is used.
func (c *Coordinator) Initialize(ctx context.Context, deps Deps, opts ...InitOption) (*config.Config, log.Configurable, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var o initOptions
	for _, opt := range opts {
		opt(&o)
	}

	if inInit(ctx) {
		return nil, nil, &domain.InitError{
			Code:  domain.CodeInvalidTransition,
			Phase: domain.PhaseTransition,
			Err:   domain.ErrReentrantInit,
		}
	}

	// Fast path
	if !o.force {
		if s := c.snap.Load(); s.Status == domain.StatusInitialized {
			metrics.IncInit(metrics.OutcomeFastPath)
			return s.Config, s.Logger, nil
		}
	}

	deps = deps.withDefaults(c.locks)
	release := deps.Locks.Acquire(c.lockName)
	defer release()

	if !o.force {
		s := c.snap.Load()
		switch s.Status {
		case domain.StatusInitialized:
			metrics.IncInit(metrics.OutcomeFastPath)
			return s.Config, s.Logger, nil
		case domain.StatusFailed:
			metrics.IncInit(metrics.OutcomePreviouslyFailed)
			phase, _ := domain.PhaseOf(s.Err)
			return nil, nil, &domain.InitError{
				Code:  domain.CodePreviouslyFailed,
				Phase: phase,
				Err:   s.Err,
			}
		}
	} else if err := c.reset(); err != nil {
		return nil, nil, err
	}

	if err := c.lifecycle.Fire(domain.EventStart); err != nil {
		return nil, nil, err
	}
	epoch := uuid.New()
	c.snap.Store(newSnapshot(domain.StatusInitializing, epoch))
	c.registry = deps.Hub

	st := &initState{deps: deps, cfg: o.cfg, epoch: epoch, source: SourceSupplied}
	if phase, err := c.run(withInitMarker(ctx), st); err != nil {
		ie := &domain.InitError{Code: domain.CodeInitFailed, Phase: phase, Err: err}
		s := newSnapshot(domain.StatusFailed, epoch)
		s.Config, s.Logger, s.Err = st.cfg, st.logger, ie
		c.snap.Store(s)
		if ferr := c.lifecycle.Fire(domain.EventFail); ferr != nil {
			c.logger.Error("fail transition rejected", log.Err(ferr))
		}

		metrics.IncInit(metrics.OutcomeFailure)
		c.logger.Error("initialization failed",
			log.String("phase", string(phase)),
			log.String("epoch", epoch.String()),
			log.Err(err),
		)
		return nil, nil, ie
	}

	s := newSnapshot(domain.StatusInitialized, epoch)
	s.Config, s.Logger = st.cfg, st.logger
	c.snap.Store(s)
	if err := c.lifecycle.Fire(domain.EventComplete); err != nil {
		return nil, nil, err
	}

	metrics.IncInit(metrics.OutcomeSuccess)
	st.logger.Debug("initialization complete",
		log.String("epoch", epoch.String()),
		log.String("source", st.source),
	)
	return st.cfg, st.logger, nil
}

// WaitForCompletion blocks until the current initialization resolves or
// timeout elapses. It reports true on failure too; callers inspect
// State().Status to tell the outcomes apart.
func (c *Coordinator) WaitForCompletion(timeout time.Duration) bool {
	return c.lifecycle.Wait(timeout)
}

// WaitForCompletionContext is WaitForCompletion bounded by ctx instead of a timeout.
func (c *Coordinator) WaitForCompletionContext(ctx context.Context) error {
	return c.lifecycle.WaitContext(ctx)
}

// UpdateConfigIfDefault replaces the config of a completed initialization
// whose config carries no service name. It reports whether cfg was applied.
// The logger is left as configured.
func (c *Coordinator) UpdateConfigIfDefault(cfg *config.Config) bool {
	if cfg == nil {
		metrics.IncConfigUpdate(false)
		return false
	}

	release := c.locks.Acquire(c.lockName)
	defer release()

	cur := c.snap.Load()
	if cur.Status != domain.StatusInitialized || !cur.Config.IsDefault() {
		metrics.IncConfigUpdate(false)
		return false
	}

	next := *cur
	next.Config = cfg
	next.UpdatedAt = time.Now()
	c.snap.Store(&next)

	if c.registry != nil {
		meta := map[string]string{"epoch": next.Epoch.String(), "source": SourceUpdate}
		if err := c.registry.Register(ConfigComponent, cfg, hub.DimensionSingleton, meta, true); err != nil {
			c.logger.Warn("re-register config", log.Err(err))
		}
	}

	metrics.IncConfigUpdate(true)
	next.Logger.Debug("config updated", log.String("service", cfg.ServiceName))
	return true
}

// Reset discards the current outcome and returns to StatusUninitialized.
// Resetting an uninitialized coordinator is a no-op.
func (c *Coordinator) Reset() error {
	release := c.locks.Acquire(c.lockName)
	defer release()
	return c.reset()
}

// reset must be called with the named lock held.
func (c *Coordinator) reset() error {
	if !c.lifecycle.Can(domain.EventReset) {
		return nil
	}
	c.snap.Store(newSnapshot(domain.StatusUninitialized, uuid.Nil))
	return c.lifecycle.Fire(domain.EventReset)
}

// State returns the current snapshot without locking.
func (c *Coordinator) State() Snapshot {
	return *c.snap.Load()
}

type initState struct {
	deps   Deps
	cfg    *config.Config
	logger log.Configurable
	epoch  uuid.UUID
	source string
}

type step struct {
	phase domain.Phase
	run   func(c *Coordinator, ctx context.Context, st *initState) error
}

// steps follows the order of domain.Phases.
var steps = func() []step {
	run := map[domain.Phase]func(c *Coordinator, ctx context.Context, st *initState) error{
		domain.PhaseConfig:        (*Coordinator).stepConfig,
		domain.PhaseLogger:        (*Coordinator).stepLogger,
		domain.PhaseRegistry:      (*Coordinator).stepRegistry,
		domain.PhaseEventHandlers: (*Coordinator).stepEventHandlers,
	}
	out := make([]step, 0, len(domain.Phases))
	for _, p := range domain.Phases {
		fn, ok := run[p]
		if !ok {
			panic("app: no step for phase " + string(p))
		}
		out = append(out, step{phase: p, run: fn})
	}
	return out
}()

// run executes the steps in order and returns the phase of the first failure.
func (c *Coordinator) run(ctx context.Context, st *initState) (domain.Phase, error) {
	for _, s := range steps {
		if s.phase == domain.PhaseConfig && st.cfg != nil {
			c.logger.Debug("config supplied, skipping step", log.String("step", string(s.phase)))
			continue
		}
		if err := c.runStep(ctx, s, st); err != nil {
			return s.phase, err
		}
	}
	return "", nil
}

func (c *Coordinator) runStep(ctx context.Context, s step, st *initState) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s step: %v", s.phase, r)
		}
		d := time.Since(start)
		metrics.ObserveStep(string(s.phase), d)
		c.logger.Debug("init step finished",
			log.String("step", string(s.phase)),
			log.Duration("duration", d),
			log.Bool("ok", err == nil),
		)
	}()
	return s.run(c, ctx, st)
}

// stepConfig derives the config from the environment. Only parse errors fall
// back to the default config.
func (c *Coordinator) stepConfig(_ context.Context, st *initState) error {
	cfg, err := st.deps.Configs.FromEnv()
	switch {
	case err != nil && config.IsParseError(err):
		c.logger.Warn("invalid config in environment, using defaults", log.Err(err))
		cfg, st.source = st.deps.Configs.Default(), SourceDefault
	case err != nil:
		return fmt.Errorf("load config: %w", err)
	case cfg == nil:
		cfg, st.source = st.deps.Configs.Default(), SourceDefault
	default:
		st.source = SourceEnv
	}
	if cfg == nil {
		return errors.New("config factory returned no config")
	}
	st.cfg = cfg
	return nil
}

func (c *Coordinator) stepLogger(_ context.Context, st *initState) error {
	logger, err := st.deps.Loggers.NewLogger(st.cfg, st.deps.Hub)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	if logger == nil {
		return errors.New("logger factory returned no logger")
	}
	if err := logger.Setup(*st.cfg); err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	st.logger = logger
	return nil
}

func (c *Coordinator) stepRegistry(ctx context.Context, st *initState) error {
	meta := map[string]string{"epoch": st.epoch.String(), "source": st.source}
	reg := st.deps.Hub

	if err := reg.Register(ConfigComponent, st.cfg, hub.DimensionSingleton, meta, true); err != nil {
		return fmt.Errorf("register config: %w", err)
	}
	if err := reg.Register(LoggerComponent, st.logger, hub.DimensionSingleton, meta, true); err != nil {
		return fmt.Errorf("register logger: %w", err)
	}

	for i, r := range st.deps.Registrars {
		if err := r(ctx, reg, st.cfg, st.logger); err != nil {
			return fmt.Errorf("registrar %d: %w", i, err)
		}
	}
	return nil
}

// hookable is implemented by loggers that accept zerolog hooks.
type hookable interface {
	AddHook(h zerolog.Hook)
}

// zerologBacked is implemented by loggers that expose their zerolog.Logger.
type zerologBacked interface {
	Logger() zerolog.Logger
}

func (c *Coordinator) stepEventHandlers(_ context.Context, st *initState) error {
	hooks := make([]zerolog.Hook, 0, 2+len(st.deps.Hooks))
	if len(st.cfg.Fields) > 0 {
		hooks = append(hooks, log.NewFieldsHook(st.cfg.Fields))
	}
	hooks = append(hooks, log.NewLevelCounterHook(metrics.LogEventsTotal))
	hooks = append(hooks, st.deps.Hooks...)

	target, ok := st.logger.(hookable)
	if !ok {
		c.logger.Debug("logger does not accept hooks", log.String("type", fmt.Sprintf("%T", st.logger)))
		return nil
	}

	reg := st.deps.Hub
	for _, h := range hooks {
		if h == nil {
			continue
		}
		target.AddHook(h)

		name := log.HookName(h)
		if reg.Has(name, hub.DimensionEventHandler) {
			continue
		}
		meta := map[string]string{"epoch": st.epoch.String()}
		if err := reg.Register(name, h, hub.DimensionEventHandler, meta, false); err != nil && !errors.Is(err, hub.ErrAlreadyRegistered) {
			return fmt.Errorf("register event handler %s: %w", name, err)
		}
	}

	if z, ok := st.logger.(zerologBacked); ok {
		zlog.Logger = z.Logger()
	}
	return nil
}
