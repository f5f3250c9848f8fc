// Package deployer assembles the agent deployer service from its parts.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apprunner"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/charmbracelet/log"

	"github.com/anshumantekriwal/kadena-agents/internal/deployer/agentbuild"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/api"
	v0 "github.com/anshumantekriwal/kadena-agents/internal/deployer/api/handlers/v0"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/api/router"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/auth"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/config"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/docker"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/jobs"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/logs"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/pipeline"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/provision"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/registry"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/telemetry"
	"github.com/anshumantekriwal/kadena-agents/internal/version"
)

const shutdownTimeout = 10 * time.Second

// NewLogger returns the structured logger shared by every component.
func NewLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
	}), nil
}

// App runs the deployer until SIGINT or SIGTERM.
func App(ctx context.Context) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger, err := NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Info("starting agent deployer", "version", version.Version, "commit", version.GitCommit)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	executor := docker.NewExecutor(cfg.Agent.DockerBinary, logger)
	if err := executor.CheckAvailability(ctx); err != nil {
		logger.Warn("container engine unavailable, deployments will fail until it is reachable", "err", err)
	}
	publisher := registry.NewPublisher(ecr.NewFromConfig(awsCfg), logger)
	provisioner := provision.NewProvisioner(apprunner.NewFromConfig(awsCfg), logger)
	facade := logs.NewFacade(cloudwatchlogs.NewFromConfig(awsCfg), provisioner, logs.Options{
		GroupPrefix:      cfg.Logs.GroupPrefix,
		NamePrefix:       cfg.Agent.NamePrefix,
		DefaultLimit:     cfg.Logs.DefaultLimit,
		DefaultTailLines: cfg.Logs.DefaultTailLines,
		TailLookback:     cfg.Logs.TailLookback,
		MaxPages:         cfg.Logs.MaxPages,
	}, logger)

	shutdownTelemetry, metrics, err := telemetry.InitMetrics(cfg.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}
	}()

	jobManager := jobs.NewManager(ctx)
	deployer := pipeline.NewDeployer(
		agentbuild.NewGenerator(cfg.Agent.RuntimeAPIURL),
		executor,
		publisher,
		provisioner,
		jobManager,
		metrics,
		pipeline.OptionsFromConfig(cfg),
		logger,
	)

	versionInfo := &v0.VersionBody{
		Version:   version.Version,
		GitCommit: version.GitCommit,
		BuildTime: version.BuildDate,
	}
	server := api.NewServer(cfg.ServerAddress, router.Services{
		Deployer:    deployer,
		Logs:        facade,
		Deployments: jobManager,
		TailLimits: v0.TailLimits{
			DefaultLines: cfg.Logs.DefaultTailLines,
			MaxLines:     cfg.Logs.MaxTailLines,
		},
	}, metrics, versionInfo, auth.NewAPIKeyProvider(cfg.APIKeyHeader, cfg.APIKey), logger)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
	}
	logger.Info("server exiting")
	return nil
}
