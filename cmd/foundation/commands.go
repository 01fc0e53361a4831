package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bft-labs/foundation"
	"github.com/bft-labs/foundation/pkg/certs"
	"github.com/bft-labs/foundation/pkg/config"
	"github.com/bft-labs/foundation/pkg/log"
	"github.com/bft-labs/foundation/plugins/configwatcher"
)

// snapshotView is the printed form of a snapshot.
type snapshotView struct {
	Status    string         `json:"status"`
	Epoch     string         `json:"epoch"`
	UpdatedAt time.Time      `json:"updated_at"`
	Config    *config.Config `json:"config,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func printSnapshot(w io.Writer, s foundation.Snapshot, asJSON bool) error {
	v := snapshotView{
		Status:    s.Status.String(),
		Epoch:     s.Epoch.String(),
		UpdatedAt: s.UpdatedAt,
		Config:    s.Config,
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	fmt.Fprintf(w, "status:  %s\n", v.Status)
	fmt.Fprintf(w, "epoch:   %s\n", v.Epoch)
	if v.Config != nil {
		fmt.Fprintf(w, "service: %s\n", v.Config.ServiceName)
		fmt.Fprintf(w, "env:     %s\n", v.Config.Environment)
		fmt.Fprintf(w, "level:   %s\n", v.Config.LogLevel)
		fmt.Fprintf(w, "format:  %s\n", v.Config.LogFormat)
	}
	if v.Error != "" {
		fmt.Fprintf(w, "error:   %s\n", v.Error)
	}
	return nil
}

func newInitCmd(s *cliState) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Resolve configuration, initialize, and print the resulting state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := s.resolve(cmd)
			if err != nil {
				return err
			}

			_, logger, err := foundation.Initialize(cmd.Context(), foundation.Deps{}, foundation.WithConfig(cfg))
			if err != nil {
				_ = printSnapshot(cmd.OutOrStdout(), foundation.State(), asJSON)
				return err
			}
			logger.Info("initialized", log.String("config", s.configPath()))
			return printSnapshot(cmd.OutOrStdout(), foundation.State(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print state as JSON")
	return cmd
}

func newStatusCmd(s *cliState) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Initialize from the environment and print the resulting state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := foundation.Initialize(cmd.Context(), foundation.Deps{}); err != nil {
				s.log.Warn().Err(err).Msg("initialization failed")
			}
			return printSnapshot(cmd.OutOrStdout(), foundation.State(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print state as JSON")
	return cmd
}

func newWatchCmd(s *cliState) *cobra.Command {
	var (
		metricsAddr string
		metricsTLS  bool
		certPath    string
		keyPath     string
		debounce    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Initialize, then re-initialize whenever the config file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, changed, err := s.resolve(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			_, logger, err := foundation.Initialize(ctx, foundation.Deps{}, foundation.WithConfig(cfg))
			if err != nil {
				return err
			}

			wcfg := configwatcher.DefaultConfig()
			wcfg.Path = s.configPath()
			wcfg.Base = *s.cfg.Clone()
			wcfg.Changed = changed
			if debounce > 0 {
				wcfg.DebounceDelay = debounce
			}
			watcher := configwatcher.New(wcfg, foundation.Default(), foundation.Deps{}, logger)
			if err := watcher.Start(ctx); err != nil {
				return err
			}

			var srv *http.Server
			if metricsAddr != "" {
				srv, err = startMetrics(ctx, s, metricsAddr, metricsTLS, certPath, keyPath)
				if err != nil {
					_ = watcher.Shutdown(context.Background())
					return err
				}
			}

			<-ctx.Done()
			s.log.Info().Msg("received signal, stopping...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if srv != nil {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					s.log.Warn().Err(err).Msg("metrics server shutdown")
				}
			}
			return watcher.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (disabled when empty)")
	cmd.Flags().BoolVar(&metricsTLS, "metrics-tls", false, "serve metrics over TLS with a self-signed certificate")
	cmd.Flags().StringVar(&certPath, "cert", certs.DefaultCertPath, "TLS certificate for the metrics endpoint")
	cmd.Flags().StringVar(&keyPath, "key", certs.DefaultKeyPath, "TLS key for the metrics endpoint")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "delay after a config change before reloading")
	return cmd
}

// startMetrics serves /metrics until ctx is done or the server is shut down.
func startMetrics(ctx context.Context, s *cliState, addr string, useTLS bool, certPath, keyPath string) (*http.Server, error) {
	if useTLS {
		var err error
		certPath, keyPath, err = certs.EnsureCertificates(certs.Options{
			CertPath:         certPath,
			KeyPath:          keyPath,
			DetectNetworkIPs: true,
			Logger:           s.log,
		})
		if err != nil {
			return nil, err
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		var err error
		if useTLS {
			err = srv.ServeTLS(ln, certPath, keyPath)
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("metrics server")
		}
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Bool("tls", useTLS).Msg("serving metrics")
	return srv, nil
}

func newCertCmd(s *cliState) *cobra.Command {
	var (
		opts   certs.Options
		ips    []net.IP
		force  bool
		detect bool
	)
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Generate a self-signed TLS certificate and key",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.IPs = ips
			opts.DetectNetworkIPs = detect
			opts.Logger = s.log

			if force {
				for _, p := range []string{opts.CertPath, opts.KeyPath} {
					if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
						return fmt.Errorf("remove %s: %w", p, err)
					}
				}
			}

			certPath, keyPath, err := certs.EnsureCertificates(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cert: %s\nkey:  %s\n", certPath, keyPath)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.CertPath, "cert", certs.DefaultCertPath, "certificate output path")
	f.StringVar(&opts.KeyPath, "key", certs.DefaultKeyPath, "private key output path")
	f.StringVar(&opts.CommonName, "cn", certs.DefaultCommonName, "certificate common name")
	f.IntVar(&opts.ValidityYears, "years", certs.DefaultValidityYears, "validity period in years")
	f.StringSliceVar(&opts.DNSNames, "dns", nil, "additional DNS names")
	f.IPSliceVar(&ips, "ip", nil, "additional IP addresses")
	f.BoolVar(&detect, "detect-ips", false, "include addresses of local network interfaces")
	f.BoolVar(&force, "force", false, "replace an existing certificate pair")
	return cmd
}
