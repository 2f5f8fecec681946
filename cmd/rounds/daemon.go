package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fieldops/rounds/internal/plan"
	"github.com/fieldops/rounds/internal/planner"
	"github.com/fieldops/rounds/internal/store"
	"github.com/fieldops/rounds/internal/weather"
	"github.com/spf13/cobra"
)

var (
	daemonAddr   string
	daemonDB     string
	daemonWorker string
	weatherFile  string
	refreshEvery time.Duration
	checkInTTL   time.Duration
	daemonSeed   string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the plan daemon",
	RunE:  runDaemon,
}

func init() {
	home, _ := os.UserHomeDir()
	defaultDB := filepath.Join(home, ".rounds", "rounds.db")

	daemonCmd.Flags().StringVar(&daemonAddr, "addr", "127.0.0.1:7640", "Listen address")
	daemonCmd.Flags().StringVar(&daemonDB, "db", defaultDB, "SQLite database path")
	daemonCmd.Flags().StringVar(&daemonWorker, "worker", "", "Worker ID (required)")
	daemonCmd.Flags().StringVar(&weatherFile, "weather-file", "", "JSON weather snapshot, re-read on each refresh")
	daemonCmd.Flags().DurationVar(&refreshEvery, "refresh", 5*time.Minute, "Plan refresh interval")
	daemonCmd.Flags().DurationVar(&checkInTTL, "checkin-ttl", 4*time.Hour, "How long an explicit check-in stays valid")
	daemonCmd.Flags().StringVar(&daemonSeed, "seed", "", "Optional seed fixture to load on startup")
	daemonCmd.MarkFlagRequired("worker")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	st, err := store.New(daemonDB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if daemonSeed != "" {
		if err := st.LoadSeed(daemonSeed); err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
		log.Printf("Loaded seed fixture %s", daemonSeed)
	}

	sources := plan.Sources{
		Routines:  st,
		Tasks:     st,
		Routes:    st,
		Buildings: st,
		Rules:     st,
	}
	if weatherFile != "" {
		sources.Weather = weather.FileSource{Path: weatherFile}
	}

	cfg := planner.DefaultConfig()
	cfg.RefreshInterval = refreshEvery
	cfg.CheckInTTL = checkInTTL

	p := planner.New(daemonWorker, sources, cfg)
	p.Start()
	defer p.Stop()

	srv := planner.NewServer(p, st, daemonAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
