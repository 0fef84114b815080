// Command capsight detects and classifies rendering-environment
// capabilities.
//
// Usage:
//
//	capsight -ua "Mozilla/5.0 ..."            # classify a user-agent string offline
//	capsight -scan                            # one live scan in headless Chrome
//	capsight -audit https://example.com       # audit a page against live capabilities
//	capsight -serve -config capsight.yaml     # HTTP service
//	capsight -serve -mcp                      # MCP tools over stdio
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/glasshouse/capsight/probe"
	"github.com/glasshouse/capsight/scan"
	"github.com/glasshouse/capsight/service"
	"github.com/glasshouse/capsight/store"
)

func main() {
	configPath := flag.String("config", "", "path to capsight.yaml config file")
	uaString := flag.String("ua", "", "classify a user-agent string offline and exit")
	doScan := flag.Bool("scan", false, "run one live scan and exit")
	auditURL := flag.String("audit", "", "audit a page URL against live capabilities and exit")
	serve := flag.Bool("serve", false, "run the HTTP service")
	mcpStdio := flag.Bool("mcp", false, "with -serve: expose MCP tools over stdio instead of HTTP")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *uaString, *auditURL, *doScan, *serve, *mcpStdio); err != nil {
		logger.Error("capsight: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, uaString, auditURL string, doScan, serve, mcpStdio bool) error {
	if uaString != "" {
		return runClassify(uaString)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	switch {
	case doScan:
		return runScan(ctx, logger, cfg)
	case auditURL != "":
		return runAudit(ctx, logger, cfg, auditURL)
	case serve:
		return runServe(ctx, logger, cfg, mcpStdio)
	}

	fmt.Fprintln(os.Stderr, "usage: capsight -ua <string> | -scan | -audit <url> | -serve [-mcp]")
	os.Exit(2)
	return nil
}

func loadConfig(path string) (*scan.Config, error) {
	if path == "" {
		return scan.DefaultConfig(), nil
	}
	cfg, err := scan.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// runClassify classifies a user-agent string without a browser. No
// feature-query boundary is available offline, so the feature fields
// report false.
func runClassify(ua string) error {
	snap := probe.Detect(probe.Env{UserAgent: ua})
	return printJSON(map[string]any{
		"snapshot": snap,
		"engine":   probe.EngineLabel(snap),
	})
}

func runScan(ctx context.Context, logger *slog.Logger, cfg *scan.Config) error {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	scanner := scan.New(cfg, st, logger)
	if err := scanner.Start(ctx); err != nil {
		return err
	}
	defer scanner.Stop()

	report, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runAudit(ctx context.Context, logger *slog.Logger, cfg *scan.Config, pageURL string) error {
	scanner := scan.New(cfg, nil, logger)
	if err := scanner.Start(ctx); err != nil {
		return err
	}
	defer scanner.Stop()

	res, err := scanner.AuditPage(ctx, pageURL)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runServe(ctx context.Context, logger *slog.Logger, cfg *scan.Config, mcpStdio bool) error {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	scanner := scan.New(cfg, st, logger)
	if err := scanner.Start(ctx); err != nil {
		return err
	}
	defer scanner.Stop()

	if mcpStdio {
		srv := mcp.NewServer(&mcp.Implementation{Name: "capsight", Version: "1.0.0"}, nil)
		scanner.RegisterMCP(srv)
		logger.Info("capsight: serving MCP over stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	var authHash string
	if pw := os.Getenv("AUTH_PASSWORD"); pw != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash auth password: %w", err)
		}
		authHash = string(hash)
	} else {
		logger.Warn("capsight: AUTH_PASSWORD not set, API is unauthenticated")
	}

	svc := service.New(scanner, st, logger)
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           svc.Router(authHash),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("capsight: http listening", "addr", cfg.HTTP.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
