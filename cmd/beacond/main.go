package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/beacon/pkg/api"
	"github.com/cuemby/beacon/pkg/config"
	"github.com/cuemby/beacon/pkg/directory"
	"github.com/cuemby/beacon/pkg/log"
	"github.com/cuemby/beacon/pkg/metrics"
	"github.com/cuemby/beacon/pkg/registry"
	"github.com/cuemby/beacon/pkg/router"
	"github.com/spf13/cobra"
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
	Use:   "beacond",
	Short: "Beacon - edge fleet coordinator for document processing workers",
	Long: `Beacon tracks a fleet of heterogeneous compute workers (GPU inference,
stateless services, data tier), derives their health from heartbeats, and
routes inbound requests to live edge coordinators with bounded failover.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Beacon version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(coordinatorsCmd)
	rootCmd.AddCommand(reapCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Beacon coordinator server",
	Long: `Run the worker registry, admin API, and edge routing proxy.

Worker state is in-memory: workers re-register after a restart. The edge
coordinator directory persists to disk under a daily write budget.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("listen-api"); v != "" {
			cfg.ListenAPI = v
		}
		if v, _ := cmd.Flags().GetString("listen-route"); v != "" {
			cfg.ListenRoute = v
		}
		if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
			cfg.DataDir = v
		}
		if v, _ := cmd.Flags().GetString("log-level"); v != "" {
			cfg.LogLevel = v
		}

		log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})

		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		store := registry.NewStore()

		dir, err := directory.Open(directory.Config{
			DataDir:         cfg.DataDir,
			PersistInterval: cfg.PersistInterval,
			WriteBudget:     cfg.WriteBudget,
		})
		if err != nil {
			return fmt.Errorf("failed to open coordinator directory: %w", err)
		}
		defer dir.Close()

		collector := metrics.NewCollector(store, cfg.MetricsInterval, cfg.OfflineAfter)
		collector.Start()
		defer collector.Stop()

		apiServer := api.NewServer(store, dir, cfg.OfflineAfter)
		proxy := router.NewProxy(dir, cfg.RouteTimeout)

		errCh := make(chan error, 2)
		go func() {
			if err := apiServer.Start(cfg.ListenAPI); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("API server error: %w", err)
			}
		}()
		go func() {
			routeServer := &http.Server{Addr: cfg.ListenRoute, Handler: proxy}
			if err := routeServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("route server error: %w", err)
			}
		}()

		fmt.Printf("✓ API listening on %s\n", cfg.ListenAPI)
		fmt.Printf("✓ Routing proxy listening on %s\n", cfg.ListenRoute)
		fmt.Println("Beacon is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().String("config", "", "Path to YAML config file")
	serverCmd.Flags().String("listen-api", "", "Admin/registration API address (default :8080)")
	serverCmd.Flags().String("listen-route", "", "Routing proxy address (default :8000)")
	serverCmd.Flags().String("data-dir", "", "Directory database path (default /var/lib/beacon)")
	serverCmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
}
