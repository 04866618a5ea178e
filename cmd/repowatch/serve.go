package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"repowatch/internal/daemon"
	"repowatch/internal/paths"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scan scheduler",
	Long: `Run the scheduler in the foreground. Every check interval it scans the
repositories that are due, bounded by scheduler.maxConcurrentScans.

Only one scheduler may run per data directory. SIGINT or SIGTERM
stops the scheduler; in-flight scans get up to
scheduler.shutdownTimeoutSeconds to finish.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pid := daemon.NewPIDFile(paths.PIDPath(a.dataDir))
	if err := pid.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := pid.Release(); err != nil {
			a.logger.Warn("Failed to release PID file", "path", pid.Path(), "error", err.Error())
		}
	}()

	if err := a.scheduler.Start(); err != nil {
		return err
	}
	a.logger.Info("Scheduler running",
		"dataDir", a.dataDir,
		"checkIntervalSeconds", a.config.Scheduler.CheckIntervalSeconds,
		"maxConcurrentScans", a.config.Scheduler.MaxConcurrentScans,
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	sig := <-shutdown
	a.logger.Info("Received shutdown signal", "signal", sig.String())

	timeout := time.Duration(a.config.Scheduler.ShutdownTimeoutSeconds) * time.Second
	if err := a.scheduler.Stop(timeout); err != nil {
		a.logger.Error("Scheduler did not stop cleanly", "error", err.Error())
		return err
	}
	a.logger.Info("Scheduler stopped")
	return nil
}
