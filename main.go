package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gitlab-mcp-server/internal/application"
	"gitlab-mcp-server/internal/domain"
	"gitlab-mcp-server/internal/infrastructure"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime holds the collaborators shared by every command.
type runtime struct {
	config     *domain.Config
	logger     *application.StructuredLogger
	dispatcher *application.Dispatcher
	hc         *application.HandlerContext
}

// newRuntime loads configuration and builds the registry, the GitLab client
// and the handler context. A missing token fails here, before anything is served.
func newRuntime(configPath string, environ map[string]string) (*runtime, error) {
	config, err := domain.LoadConfig(configPath, environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, _ := domain.ParseLogLevel(config.Server.LogLevel)
	logger := application.NewStructuredLoggerWithWriter(os.Stderr, level)
	slog.SetDefault(logger.Slog())

	registry, err := application.NewDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	client, err := infrastructure.NewGitLabClient(config.GitLab.BaseURL, config.GitLab.Token, nil)
	if err != nil {
		return nil, err
	}

	logger.LogInfo("configuration loaded", map[string]interface{}{
		"gitlab_url": client.BaseURL(),
		"transport":  config.Transport.Type,
		"tools":      registry.Len(),
	})

	return &runtime{
		config:     config,
		logger:     logger,
		dispatcher: application.NewDispatcher(registry),
		hc: &application.HandlerContext{
			Client:  client,
			Timeout: config.GitLab.Timeout,
			Logger:  logger,
		},
	}, nil
}

func (rt *runtime) newTransport() domain.Transport {
	switch rt.config.Transport.Type {
	case "http":
		t := domain.NewHTTPTransport(rt.config.Transport.HTTP.Host, rt.config.Transport.HTTP.Port)
		t.SetLogger(rt.logger.Slog())
		return t
	default:
		t := domain.NewStdioTransport()
		t.SetLogger(rt.logger.Slog())
		return t
	}
}

// serve runs the MCP server until the input stream ends or a signal arrives.
func serve(configPath string) error {
	rt, err := newRuntime(configPath, nil)
	if err != nil {
		return err
	}

	server := application.NewServer(rt.newTransport(), rt.dispatcher, rt.hc, rt.config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	select {
	case sig := <-sigChan:
		rt.logger.LogInfo("received signal, shutting down", map[string]interface{}{
			"signal": sig.String(),
		})
		cancel()
		<-server.Done()
	case <-server.Done():
		rt.logger.LogInfo("input closed, shutting down", nil)
	}

	if err := server.Close(); err != nil {
		return fmt.Errorf("error during server shutdown: %w", err)
	}

	rt.logger.LogInfo("server shutdown complete", nil)
	return nil
}
