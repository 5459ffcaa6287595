package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athapong/bim-synthesis/pkg/answering"
	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/engine"
	"github.com/athapong/bim-synthesis/prompts"
	"github.com/athapong/bim-synthesis/services"
	"github.com/athapong/bim-synthesis/tools"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	envFile := flag.String("env", ".env", "Path to environment file")
	configFile := flag.String("config", "", "YAML configuration file")
	enableSSE := flag.Bool("sse", false, "Enable SSE server")
	sseAddr := flag.String("sse-addr", ":8080", "Address for SSE server to listen on")
	sseBasePath := flag.String("sse-base-path", "/mcp", "Base path for SSE endpoints")
	metricsAddr := flag.String("metrics-addr", "", "Address to serve Prometheus metrics on; disabled when empty")
	flag.Parse()

	// stdout carries the stdio protocol, so logs go to stderr
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := config.LoadEnvFile(*envFile); err != nil {
		logger.Warnf("Error loading env file %s: %v", *envFile, err)
	}
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	eng, err := engine.New(cfg, engine.WithLogger(logger))
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	var answerer *answering.Answerer
	if tools.IsEnabled("answer") {
		client, err := services.DefaultClient()
		if err != nil {
			logger.Warnf("answer_building_query disabled: %v", err)
		} else {
			answerer = answering.New(client, services.Model()).WithLogger(logger)
		}
	}
	handlers := tools.NewSynthesis(eng, answerer)

	mcpServer := server.NewMCPServer(
		"bim-synthesis",
		"1.0.0",
		server.WithLogging(),
		server.WithPromptCapabilities(true),
		server.WithToolCapabilities(true),
	)

	if tools.IsEnabled("tool_manager") {
		tools.RegisterToolManagerTool(mcpServer)
	}

	if tools.IsEnabled("synthesis") {
		tools.RegisterSynthesisTools(mcpServer, handlers)
	}

	if tools.IsEnabled("answer") {
		tools.RegisterAnswerTool(mcpServer, handlers)
	}

	prompts.RegisterBuildingPrompts(mcpServer)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Infof("Serving metrics on %s/metrics", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Errorf("Metrics server stopped: %v", err)
			}
		}()
	}

	if *enableSSE || os.Getenv("ENABLE_SSE") == "true" {
		sseServer := server.NewSSEServer(
			mcpServer,
			server.WithStaticBasePath(*sseBasePath),
			server.WithKeepAlive(true),
		)

		go func() {
			logger.Infof("Starting SSE server on %s with base path %s", *sseAddr, *sseBasePath)
			if err := sseServer.Start(*sseAddr); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("Failed to start SSE server: %v", err)
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		sig := <-sigCh
		logger.Infof("Received signal %v, shutting down...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := sseServer.Shutdown(ctx); err != nil {
			logger.Errorf("Error during SSE server shutdown: %v", err)
		}
		logger.Info("SSE server shutdown complete")
	} else {
		if err := server.ServeStdio(mcpServer); err != nil {
			panic(fmt.Sprintf("Server error: %v", err))
		}
	}
}
