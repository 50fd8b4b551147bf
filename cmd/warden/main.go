package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/playgrid/warden/pkg/config"
	"github.com/playgrid/warden/pkg/events"
	"github.com/playgrid/warden/pkg/history"
	"github.com/playgrid/warden/pkg/launch"
	"github.com/playgrid/warden/pkg/log"
	"github.com/playgrid/warden/pkg/metrics"
	"github.com/playgrid/warden/pkg/ports"
	"github.com/playgrid/warden/pkg/supervisor"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - node-local game server fleet agent",
	Long: `Warden is the per-node agent of a game server fleet: it admits
server launches in priority order under a concurrency cap, hands each
server an exclusive port from the node's contended port space, and
reclaims ports from squatters when they must be reused.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Warden version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	agentCmd.Flags().String("config", "", "path to the agent config file")
	agentCmd.Flags().String("listen-addr", "", "override the metrics/health listen address")
	agentCmd.Flags().String("data-dir", "", "override the data directory")
	rootCmd.AddCommand(agentCmd)
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the node agent",
	Long: `Run the Warden node agent: the launch scheduler, the port registry
and the metrics/health endpoints. Servers listed in the config file are
enqueued at boot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("listen-addr"); addr != "" {
			cfg.ListenAddr = addr
		}
		if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
			cfg.DataDir = dir
		}

		log.Init(log.Config{
			Level:      log.Level(cfg.LogLevel),
			JSONOutput: cfg.LogJSON,
		})
		logger := log.WithComponent("agent")
		metrics.SetVersion(Version)

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}

		broker := events.NewBroker()
		broker.Start()

		journal, err := history.Open(cfg.DataDir)
		if err != nil {
			return err
		}
		journal.Follow(broker)

		portReg := ports.NewRegistry(ports.Config{
			BlockedCap:   cfg.BlockedPortCap,
			ProbeTimeout: cfg.ProbeTimeout.Duration(),
			Broker:       broker,
		})
		metrics.RegisterComponent("ports", true, "")

		instances := supervisor.NewInstanceRegistry()
		sched := launch.NewScheduler(launch.Config{
			Registry:            instances,
			MaxConcurrentStarts: cfg.MaxConcurrentStarts,
			TickInterval:        cfg.TickInterval.Duration(),
			Notifier: func() {
				broker.Publish(events.New(events.EventSchedulerState, "admission state changed", nil))
			},
		})
		sched.Start()
		metrics.RegisterComponent("scheduler", true, "")

		for i := range cfg.Servers {
			spec := &cfg.Servers[i]
			sched.Enqueue(supervisor.NewServerProcess(spec, portReg, broker))
			logger.Info().Str("service_id", spec.ServiceID).Msg("boot server queued")
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/health", metrics.HealthHandler())
		mux.HandleFunc("/ready", metrics.ReadyHandler())
		mux.HandleFunc("/livez", metrics.LivenessHandler())
		mux.HandleFunc("/ports", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(portReg.Snapshot())
		})
		mux.HandleFunc("/queue", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]int{
				"pending_and_active": sched.PendingAndActiveCount(),
			})
		})

		server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ListenAddr).Msg("serving metrics and health")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		logger.Info().
			Int("max_concurrent_starts", cfg.MaxConcurrentStarts).
			Dur("tick_interval", cfg.TickInterval.Duration()).
			Msg("agent running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			logger.Error().Err(err).Msg("http server failed")
		}

		sched.Stop()
		broker.Stop()
		if err := journal.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close journal")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		logger.Info().Msg("shutdown complete")
		return nil
	},
}
