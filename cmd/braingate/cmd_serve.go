package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/braingate/internal/dedup"
	"github.com/user/braingate/internal/delivery"
	"github.com/user/braingate/internal/gateway"
	"github.com/user/braingate/internal/memory"
	"github.com/user/braingate/internal/scheduler"
	"github.com/user/braingate/internal/slack"
	"github.com/user/braingate/internal/turn"
	"github.com/user/braingate/internal/webhook"
	"github.com/user/braingate/pkg/agent"
	"github.com/user/braingate/pkg/agent/remote"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the braingate daemon",
	RunE:  runServe,
}

func writePIDFile(dir string) (string, error) {
	pidPath := filepath.Join(dir, "braingate.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if cfg.Slack.BotToken == "" || cfg.Slack.SigningSecret == "" {
		return fmt.Errorf("slack bot_token and signing_secret are required (config file or SLACK_BOT_TOKEN / SLACK_SIGNING_SECRET)")
	}

	runDir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	pidPath, err := writePIDFile(runDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Agent runtime client
	invoker := remote.New(&agent.Config{
		BaseURL:        cfg.Agent.BaseURL,
		ProjectID:      cfg.Agent.ProjectID,
		Region:         cfg.Agent.Region,
		AgentID:        cfg.Agent.AgentID,
		APIKey:         cfg.Agent.APIKey,
		RequestTimeout: time.Duration(cfg.Agent.RequestTimeoutSeconds) * time.Second,
	})

	// Memory persistence (best effort, never blocks a reply)
	var coord *memory.Coordinator
	if cfg.Memory.Enabled {
		memClient := memory.NewClient(&memory.Config{
			BaseURL:        cfg.Memory.BaseURL,
			ProjectID:      cfg.Memory.ProjectID,
			Region:         cfg.Memory.Region,
			StoreID:        cfg.Memory.StoreID,
			APIKey:         cfg.Memory.APIKey,
			RequestTimeout: time.Duration(cfg.Memory.RequestTimeoutSeconds) * time.Second,
		})
		coord = memory.NewCoordinator(memClient, cfg.Memory.RetryQueueSize)
	} else {
		slog.Warn("memory persistence disabled")
	}

	// Gateway and turn processor
	gw := gateway.New(int64(cfg.MaxConcurrent))
	processor := turn.NewProcessor(invoker, coord, gateway.DefaultRetryPolicy(), cfg.AppName)
	gw.Queue.SetProcessor(processor.Process)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw.Start(ctx)
	defer gw.Stop()

	// Slack adapter
	deliveryReg := delivery.NewRegistry()
	responder := slack.NewResponder(cfg.Slack.BotToken)
	deliveryReg.Register("slack:", responder.SendTo)

	dedupStore := dedup.NewStore(time.Duration(cfg.Dedup.TTLSeconds) * time.Second)
	receiver := slack.NewReceiver(gw, deliveryReg, dedupStore,
		cfg.Slack.SigningSecret,
		time.Duration(cfg.Slack.TimestampToleranceSeconds)*time.Second)

	// Maintenance scheduler
	jobs := []scheduler.Job{
		{
			Name:     "dedup-sweep",
			Schedule: cfg.Dedup.SweepSchedule,
			Run: func(context.Context) {
				if n := dedupStore.Sweep(); n > 0 {
					slog.Debug("swept expired dedup entries", "count", n)
				}
			},
		},
	}
	if coord != nil {
		jobs = append(jobs, scheduler.Job{
			Name:     "memory-flush-retries",
			Schedule: cfg.Memory.FlushSchedule,
			Run:      coord.FlushRetries,
		})
	}
	sched := scheduler.New(jobs...)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// HTTP server
	srv := webhook.NewServer(receiver, gw, dedupStore, coord)
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("http server started", "listen", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("braingate started",
		"listen", cfg.Listen,
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"app_name", cfg.AppName,
		"memory_enabled", cfg.Memory.Enabled,
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(runDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
		shutdownCancel()

		// Let in-flight turns and pending persistence drain
		gw.Queue.WaitIdle(10 * time.Second)
		if coord != nil {
			coord.Wait()
		}
		return nil
	}
}
