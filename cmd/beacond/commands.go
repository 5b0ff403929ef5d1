package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/beacon/pkg/agent"
	"github.com/cuemby/beacon/pkg/client"
	"github.com/cuemby/beacon/pkg/log"
	"github.com/cuemby/beacon/pkg/types"
	"github.com/spf13/cobra"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run a worker agent that registers and heartbeats",
	RunE: func(cmd *cobra.Command, args []string) error {
		workerID, _ := cmd.Flags().GetString("worker-id")
		tierName, _ := cmd.Flags().GetString("tier")
		server, _ := cmd.Flags().GetString("server")
		interval, _ := cmd.Flags().GetDuration("interval")
		logLevel, _ := cmd.Flags().GetString("log-level")

		log.Init(log.Config{Level: log.Level(logLevel)})

		tier, ok := types.ParseTier(tierName)
		if !ok {
			return fmt.Errorf("tier must be one of GPU, SERVICE, DATA")
		}

		a, err := agent.New(agent.Config{
			WorkerID:   workerID,
			Tier:       tier,
			ServerAddr: server,
			Interval:   interval,
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := a.Start(ctx); err != nil {
			return err
		}
		fmt.Printf("✓ Agent %s (%s) heartbeating to %s\n", workerID, tier, server)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nStopping agent...")
		a.Stop()
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show aggregate fleet health and stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		stats, err := c.Stats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("System health: %s", stats.Health)
		if stats.HealthReason != "" {
			fmt.Printf(" (%s)", stats.HealthReason)
		}
		fmt.Println()
		fmt.Printf("Workers: %d, tasks completed: %d\n", stats.TotalWorkers, stats.TasksCompleted)
		for _, tier := range []string{"GPU", "SERVICE", "DATA"} {
			ts := stats.Tiers[tier]
			if ts.AverageLoad != nil {
				fmt.Printf("  %-8s %3d workers, avg load %5.1f%% (%s)\n",
					tier, ts.Count, *ts.AverageLoad, ts.LoadClass)
			} else {
				fmt.Printf("  %-8s %3d workers, no load data\n", tier, ts.Count)
			}
		}
		return nil
	},
}

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List registered workers with derived status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		workers, err := c.Workers(ctx)
		if err != nil {
			return err
		}
		if len(workers) == 0 {
			fmt.Println("No workers registered")
			return nil
		}

		fmt.Printf("%-20s %-8s %-9s %5s %-9s %10s  %s\n",
			"WORKER", "TIER", "STATUS", "LOAD", "CLASS", "TASKS", "LAST HEARTBEAT")
		for _, w := range workers {
			fmt.Printf("%-20s %-8s %-9s %4d%% %-9s %10d  %s\n",
				w.ID, w.TierName, w.Status, w.ReportedLoad, w.LoadClass,
				w.TasksCompleted, w.LastHeartbeatAt.Format(time.RFC3339))
		}
		return nil
	},
}

var coordinatorsCmd = &cobra.Command{
	Use:   "coordinators",
	Short: "List registered edge coordinators",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if remove, _ := cmd.Flags().GetString("remove"); remove != "" {
			if err := c.RemoveCoordinator(ctx, remove); err != nil {
				return err
			}
			fmt.Printf("✓ Removed coordinator %s\n", remove)
			return nil
		}

		coords, err := c.Coordinators(ctx)
		if err != nil {
			return err
		}
		if len(coords) == 0 {
			fmt.Println("No coordinators registered")
			return nil
		}

		fmt.Printf("%-20s %-10s %-8s %s\n", "COORDINATOR", "ROLE", "SUSPECT", "LAST SEEN")
		for _, co := range coords {
			fmt.Printf("%-20s %-10s %-8v %s\n",
				co.ID, co.Role, co.Suspect, co.LastSeen.Format(time.RFC3339))
		}
		return nil
	},
}

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Remove workers absent longer than the given duration",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}

		c := clientFromFlags(cmd)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		removed, err := c.Reap(ctx, olderThan)
		if err != nil {
			return err
		}
		if len(removed) == 0 {
			fmt.Println("No workers reaped")
			return nil
		}
		for _, id := range removed {
			fmt.Printf("✓ Reaped %s\n", id)
		}
		return nil
	},
}

func clientFromFlags(cmd *cobra.Command) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	return client.New(server)
}

func init() {
	agentCmd.Flags().String("worker-id", "", "Unique worker identity (required)")
	agentCmd.Flags().String("tier", "", "Worker tier: GPU, SERVICE, or DATA (required)")
	agentCmd.Flags().String("server", "localhost:8080", "Beacon API address")
	agentCmd.Flags().Duration("interval", 30*time.Second, "Heartbeat interval")
	agentCmd.Flags().String("log-level", "info", "Log level")
	_ = agentCmd.MarkFlagRequired("worker-id")
	_ = agentCmd.MarkFlagRequired("tier")

	for _, c := range []*cobra.Command{statusCmd, workersCmd, coordinatorsCmd, reapCmd} {
		c.Flags().String("server", "localhost:8080", "Beacon API address")
	}
	coordinatorsCmd.Flags().String("remove", "", "Remove the coordinator with this ID")
	reapCmd.Flags().Duration("older-than", 24*time.Hour, "Absence threshold")
}
