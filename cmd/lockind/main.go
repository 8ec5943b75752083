package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haukened/lockin/internal/lockin/common/log"
	"github.com/haukened/lockin/internal/lockin/config"
)

const (
	version = "0.1.0-dev"
	appName = "lockind"
)

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. A nil override uses the real
// operating system.
func newRootCmd(override func(*config.AppConfig) platform) *cobra.Command {
	var app *Application

	root := &cobra.Command{
		Use:          appName,
		Short:        "lockin blocks distracting sites and apps for a fixed time",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			var files []string
			if cfg.LogFile != "" {
				files = append(files, cfg.LogFile)
			}
			if err := log.Configure(cfg.Env, cfg.LogLevel, files...); err != nil {
				return fmt.Errorf("logging configuration error: %w", err)
			}
			p := systemPlatform(cfg)
			if override != nil {
				p = override(cfg)
			}
			app, err = buildApplication(cmd.Context(), cfg, p)
			return err
		},
	}

	root.AddCommand(
		newWatchdogCmd(&app),
		newStartCmd(&app),
		newStatusCmd(&app),
		newPresetsCmd(&app),
	)
	return root
}

func newWatchdogCmd(app **Application) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "watchdog",
		Short: "Enforce the active session every few seconds (run as root)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			w, closeDB, err := a.newWatchdog()
			if err != nil {
				return err
			}
			defer func() {
				if err := closeDB(); err != nil {
					log.Warn(map[string]any{"error": err}, "cycle_state_close_failed")
				}
			}()

			if once {
				rep, err := w.RunCycle(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), renderReport(rep))
				return err
			}

			log.Info(map[string]any{
				"version":  version,
				"interval": w.Interval().String(),
				"hosts":    a.config.HostsFile,
				"session":  a.config.SessionFile,
			}, "watchdog_starting")

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			go shield(ctx, sigChan, w.Active, cancel, log.GetLogger())

			if err := w.Run(ctx); err != nil {
				return err
			}
			log.Info(nil, "watchdog_stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}

// shield cancels on the first signal received while no session is active.
// Signals that arrive during a session are logged and ignored.
func shield(ctx context.Context, sigs <-chan os.Signal, active func() bool, cancel context.CancelFunc, logger log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			if active() {
				logger.Warn(map[string]any{"signal": sig.String()}, "signal_ignored_session_active")
				continue
			}
			logger.Info(map[string]any{"signal": sig.String()}, "shutdown_signal_received")
			cancel()
			return
		}
	}
}

func newStartCmd(app **Application) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "start <profile>",
		Short: "Start a blocking session for a profile (run as root)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := (*app).Start(cmd.Context(), args[0], duration)
			if err != nil && res.Session.Profile == "" {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStarted(res))
			// The session stands even when first enforcement was partial;
			// the watchdog retries it.
			return err
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "session length, e.g. 25m or 1h30m")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func newStatusCmd(app **Application) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := (*app).Status()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(st))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable output")
	return cmd
}

func newPresetsCmd(app **Application) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderPresets((*app).catalog.Presets()))
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
