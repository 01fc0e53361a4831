package log

import (
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/foundation/pkg/config"
	"github.com/bft-labs/foundation/pkg/hub"
)

// ZerologAdapter implements Configurable using zerolog.
type ZerologAdapter struct {
	mu       sync.RWMutex
	logger   zerolog.Logger
	cfg      config.Config
	hooks    []zerolog.Hook
	out      io.Writer
	registry hub.Registry

	// gen advances on every Setup and AddHook; children record the
	// parent and gen they were derived from.
	gen    uint64
	parent *ZerologAdapter
}

// NewZerologAdapterWithLogger creates an adapter wrapping an existing zerolog.Logger.
// Setup replaces the wrapped logger.
func NewZerologAdapterWithLogger(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger, cfg: config.DefaultConfig()}
}

// newZerologAdapter creates an unconfigured adapter writing to out (nil means
// the output named in the config) and bound to registry.
func newZerologAdapter(out io.Writer, registry hub.Registry) *ZerologAdapter {
	return &ZerologAdapter{
		logger:   zerolog.Nop(),
		cfg:      config.DefaultConfig(),
		out:      out,
		registry: registry,
	}
}

// Setup rebuilds the underlying logger from cfg. Installed hooks are kept.
func (z *ZerologAdapter) Setup(cfg config.Config) error {
	cfg = *cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return err
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	logger := build(cfg, z.writer(cfg))
	for _, h := range z.hooks {
		logger = logger.Hook(h)
	}
	z.logger = logger
	z.cfg = cfg
	z.gen++
	return nil
}

// AddHook installs h on the current logger and on every future Setup.
func (z *ZerologAdapter) AddHook(h zerolog.Hook) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.hooks = append(z.hooks, h)
	z.logger = z.logger.Hook(h)
	z.gen++
}

// Hooks returns the installed hooks.
func (z *ZerologAdapter) Hooks() []zerolog.Hook {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return append([]zerolog.Hook(nil), z.hooks...)
}

// Config returns the config applied by the last Setup.
func (z *ZerologAdapter) Config() config.Config {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return *z.cfg.Clone()
}

// Component returns a child logger annotated with the component name.
// A level listed for the component in ModuleLevels overrides the base level.
// When the adapter is bound to a registry, child loggers are shared through it
// until z is set up again or another adapter replaces them.
func (z *ZerologAdapter) Component(name string) *ZerologAdapter {
	regName := "log." + name

	z.mu.RLock()
	gen := z.gen
	z.mu.RUnlock()

	if z.registry != nil {
		if v, ok := z.registry.Get(regName, hub.DimensionComponent); ok {
			if child, ok := v.(*ZerologAdapter); ok && child.parent == z && child.gen == gen {
				return child
			}
		}
	}

	z.mu.RLock()
	l := z.logger.With().Str("component", name).Logger()
	if lvl, ok := z.cfg.ModuleLevels[name]; ok {
		if parsed, err := zerolog.ParseLevel(lvl); err == nil {
			l = l.Level(parsed)
		}
	}
	child := &ZerologAdapter{logger: l, cfg: *z.cfg.Clone(), parent: z, gen: z.gen}
	z.mu.RUnlock()

	if z.registry != nil {
		_ = z.registry.Register(regName, child, hub.DimensionComponent, map[string]string{"component": name}, true)
	}
	return child
}

// Debug logs a debug-level message.
func (z *ZerologAdapter) Debug(msg string, fields ...Field) {
	l := z.Logger()
	emit(l.Debug(), msg, fields)
}

// Info logs an info-level message.
func (z *ZerologAdapter) Info(msg string, fields ...Field) {
	l := z.Logger()
	emit(l.Info(), msg, fields)
}

// Warn logs a warning-level message.
func (z *ZerologAdapter) Warn(msg string, fields ...Field) {
	l := z.Logger()
	emit(l.Warn(), msg, fields)
}

// Error logs an error-level message.
func (z *ZerologAdapter) Error(msg string, fields ...Field) {
	l := z.Logger()
	emit(l.Error(), msg, fields)
}

// Logger returns the underlying zerolog.Logger.
func (z *ZerologAdapter) Logger() zerolog.Logger {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.logger
}

func (z *ZerologAdapter) writer(cfg config.Config) io.Writer {
	out := z.out
	if out == nil {
		out = os.Stderr
		if cfg.LogOutput == config.OutputStdout {
			out = os.Stdout
		}
	}
	if cfg.LogFormat == config.FormatConsole {
		return zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
	}
	return out
}

// build creates a logger for a validated cfg.
func build(cfg config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(w).Level(level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "" {
		ctx = ctx.Str("version", cfg.ServiceVersion)
	}
	if cfg.Environment != "" {
		ctx = ctx.Str("env", cfg.Environment)
	}
	return ctx.Logger()
}

func emit(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		event = addField(event, f)
	}
	event.Msg(msg)
}

// addField adds a Field to a zerolog.Event.
func addField(event *zerolog.Event, f Field) *zerolog.Event {
	switch v := f.Value.(type) {
	case string:
		return event.Str(f.Key, v)
	case []string:
		return event.Strs(f.Key, v)
	case int:
		return event.Int(f.Key, v)
	case int64:
		return event.Int64(f.Key, v)
	case bool:
		return event.Bool(f.Key, v)
	case time.Duration:
		return event.Dur(f.Key, v)
	case time.Time:
		return event.Time(f.Key, v)
	case error:
		return event.AnErr(f.Key, v)
	default:
		return event.Interface(f.Key, v)
	}
}

// sortedKeys returns the keys of m in order so output is stable.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
