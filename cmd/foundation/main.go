package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/foundation/pkg/config"
)

const longHelp = `
Initialize process-wide configuration and logging exactly once.

Configuration is layered: defaults, then the config file, then FOUNDATION_*
environment variables, then command line flags.
`

var exampleUsage = strings.TrimSpace(`
  foundation init --service-name billing --log-format json
  foundation status
  foundation watch --config $HOME/.foundation/config.toml --metrics-addr :9090
  foundation cert --cert certs/metrics.crt --key certs/metrics.key --detect-ips
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cliLogger reports CLI problems before and independently of the initialized logger.
func cliLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// cliState holds values bound to the persistent flags.
type cliState struct {
	cfg     config.Config
	cfgPath string
	log     zerolog.Logger
}

// resolve layers the config file and environment under the flags that were set.
func (s *cliState) resolve(cmd *cobra.Command) (*config.Config, map[string]bool, error) {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	path := s.cfgPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg := s.cfg.Clone()
	if err := config.Resolve(cfg, path, changed); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, changed, nil
}

func (s *cliState) configPath() string {
	if s.cfgPath != "" {
		return s.cfgPath
	}
	return config.DefaultConfigPath()
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	s := &cliState{cfg: config.DefaultConfig(), log: cliLogger(stderr)}

	root := &cobra.Command{
		Use:           "foundation",
		Short:         "Initialize process-wide configuration and logging exactly once",
		Long:          strings.TrimSpace(longHelp),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&s.cfgPath, "config", "", "path to config file (default: $HOME/.foundation/config.toml)")
	f.StringVar(&s.cfg.ServiceName, "service-name", s.cfg.ServiceName, "service name attached to every log event")
	f.StringVar(&s.cfg.ServiceVersion, "service-version", s.cfg.ServiceVersion, "service version attached to every log event")
	f.StringVar(&s.cfg.Environment, "env", s.cfg.Environment, "deployment environment")
	f.StringVar(&s.cfg.LogLevel, "log-level", s.cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	f.StringVar(&s.cfg.LogFormat, "log-format", s.cfg.LogFormat, "log format (console, json)")
	f.StringVar(&s.cfg.LogOutput, "log-output", s.cfg.LogOutput, "log output (stderr, stdout)")
	f.BoolVar(&s.cfg.Timestamp, "log-timestamp", s.cfg.Timestamp, "include timestamps in log events")
	f.BoolVar(&s.cfg.NoColor, "log-nocolor", s.cfg.NoColor, "disable colors in console output")
	f.StringToStringVar(&s.cfg.ModuleLevels, "log-module-levels", nil, "per-component log levels (component=level,...)")
	f.StringToStringVar(&s.cfg.Fields, "log-fields", nil, "static fields attached to every log event (key=value,...)")

	root.AddCommand(
		newInitCmd(s),
		newStatusCmd(s),
		newWatchCmd(s),
		newCertCmd(s),
	)
	return root
}

func main() {
	root := newRootCmd(os.Stderr)
	if err := root.Execute(); err != nil {
		l := cliLogger(os.Stderr)
		l.Error().Err(err).Msg("foundation")
		os.Exit(1)
	}
}
