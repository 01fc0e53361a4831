package foundation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/foundation/internal/app"
	"github.com/bft-labs/foundation/internal/domain"
	"github.com/bft-labs/foundation/pkg/config"
	"github.com/bft-labs/foundation/pkg/log"
)

// Re-export types from sub-packages for convenient access.
// Users can also import sub-packages directly for selective import.
type (
	// Coordinator runs initialization exactly once per epoch.
	Coordinator = app.Coordinator

	// Option configures a Coordinator created with New.
	Option = app.Option

	// Deps are the collaborators used by one initialization.
	Deps = app.Deps

	// InitOption configures a single Initialize call.
	InitOption = app.InitOption

	// Registrar registers additional components during initialization.
	Registrar = app.Registrar

	// EventHandler observes status transitions.
	EventHandler = app.EventEmitter

	// Snapshot is an immutable view of the coordinator state.
	Snapshot = app.Snapshot

	// Status is the lifecycle status.
	Status = domain.Status

	// Event drives status transitions.
	Event = domain.Event

	// InitError is returned when initialization fails.
	InitError = domain.InitError

	// Config describes the process-wide logging and identity setup.
	Config = config.Config

	// Logger is the structured logging interface.
	Logger = log.Logger

	// ConfigurableLogger is a Logger that can be reconfigured from a Config.
	ConfigurableLogger = log.Configurable
)

// Lifecycle statuses.
const (
	StatusUninitialized = domain.StatusUninitialized
	StatusInitializing  = domain.StatusInitializing
	StatusInitialized   = domain.StatusInitialized
	StatusFailed        = domain.StatusFailed
)

// Errors that can be checked with errors.Is.
var (
	ErrInitFailed        = domain.ErrInitFailed
	ErrPreviouslyFailed  = domain.ErrPreviouslyFailed
	ErrInvalidTransition = domain.ErrInvalidTransition
	ErrReentrantInit     = domain.ErrReentrantInit
	ErrNotInitialized    = domain.ErrNotInitialized
)

// WithConfig supplies the config, skipping derivation from the environment.
func WithConfig(cfg *Config) InitOption {
	return app.WithConfig(cfg)
}

// WithForce discards the previous outcome and runs a fresh initialization.
func WithForce() InitOption {
	return app.WithForce()
}

// WithEventHandler registers h for status transitions of a Coordinator created with New.
func WithEventHandler(h EventHandler) Option {
	return app.WithEmitter(h)
}

// WithLogger sets the logger used for a Coordinator's own diagnostics.
func WithLogger(l Logger) Option {
	return app.WithLogger(l)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// New creates an independent coordinator.
func New(opts ...Option) *Coordinator {
	return app.NewCoordinator(opts...)
}

var (
	defaultMu    sync.Mutex
	defaultCoord *Coordinator
)

// Default returns the process-wide coordinator.
func Default() *Coordinator {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCoord == nil {
		defaultCoord = app.NewCoordinator()
	}
	return defaultCoord
}

// ResetForTesting discards the process-wide coordinator.
// The next call to Default creates a fresh one.
func ResetForTesting() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultCoord = nil
}

// Initialize initializes the process-wide coordinator. See Coordinator.Initialize.
func Initialize(ctx context.Context, deps Deps, opts ...InitOption) (*Config, ConfigurableLogger, error) {
	return Default().Initialize(ctx, deps, opts...)
}

// WaitForCompletion blocks until the process-wide initialization resolves or timeout elapses.
func WaitForCompletion(timeout time.Duration) bool {
	return Default().WaitForCompletion(timeout)
}

// UpdateConfigIfDefault replaces an auto-derived process-wide config.
func UpdateConfigIfDefault(cfg *Config) bool {
	return Default().UpdateConfigIfDefault(cfg)
}

// Reset returns the process-wide coordinator to StatusUninitialized.
func Reset() error {
	return Default().Reset()
}

// State returns the process-wide snapshot.
func State() Snapshot {
	return Default().State()
}

// Current returns the config and logger of a completed process-wide initialization.
// Returns ErrNotInitialized otherwise.
func Current() (*Config, ConfigurableLogger, error) {
	s := State()
	if !s.Initialized() {
		return nil, nil, fmt.Errorf("%w (status %s)", ErrNotInitialized, s.Status)
	}
	return s.Config, s.Logger, nil
}
