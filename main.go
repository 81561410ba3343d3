// Command treasurehunt starts the Treasure Hunt Game server.
//
// It supports two modes:
//  1. "serve" (default) runs the HTTP server exposing the REST API, the
//     WebSocket feed and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API
//     if none is available
//
// Defaults come from the environment (and a .env file); flags override them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/treasurehunt/api"
	"github.com/wricardo/mcp-training/treasurehunt/game/config"
	"github.com/wricardo/mcp-training/treasurehunt/game/service"
	"github.com/wricardo/mcp-training/treasurehunt/game/session"
	"github.com/wricardo/mcp-training/treasurehunt/transport/mcp"
	"github.com/wricardo/mcp-training/treasurehunt/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Treasure Hunt Game Server"
)

func main() {
	// A missing .env file is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("failed to load .env file")
	}

	settings, err := config.LoadSettings()
	if err != nil {
		log.WithError(err).Fatal("invalid settings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(settings).Run(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("treasurehunt failed")
	}
}

// newApp builds the command tree. Flag defaults are taken from settings.
func newApp(settings config.Settings) *cli.Command {
	return &cli.Command{
		Name:    "treasurehunt",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: settings.Host, Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Value: settings.Port, Usage: "HTTP server port"},
			&cli.StringFlag{Name: "layouts-dir", Value: settings.LayoutsDir, Usage: "directory containing board layouts"},
			&cli.StringFlag{Name: "default-layout", Value: settings.DefaultLayout, Usage: "layout served for the \"default\" layout id"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.BoolFlag{Name: "ngrok", Value: settings.NgrokEnabled, Usage: "expose the server through an ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-domain", Value: settings.NgrokDomain, Usage: "custom ngrok domain"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, configureLogging(settings.LogLevel, settings.LogFormat, cmd.Bool("debug"))
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServe(ctx, applyFlags(settings, cmd))
		},
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runServe(ctx, applyFlags(settings, cmd))
				},
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server backed by a running or internal HTTP API",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runStdioMCP(ctx, applyFlags(settings, cmd))
				},
			},
		},
	}
}

// applyFlags overlays command line flags on the environment settings
func applyFlags(settings config.Settings, cmd *cli.Command) config.Settings {
	settings.Host = cmd.String("host")
	settings.Port = cmd.Int("port")
	settings.LayoutsDir = cmd.String("layouts-dir")
	settings.DefaultLayout = cmd.String("default-layout")
	settings.NgrokEnabled = cmd.Bool("ngrok")
	settings.NgrokDomain = cmd.String("ngrok-domain")
	return settings
}

// configureLogging sets the logrus level and formatter
func configureLogging(level, format string, debug bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if debug {
		lvl = log.DebugLevel
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}

// services bundles the wired application components
type services struct {
	game     service.GameService
	sessions *session.Manager
	layouts  *config.Manager
	hub      *websocket.Hub
}

// initializeServices wires the session and layout managers, the WebSocket
// hub and the game service.
func initializeServices(settings config.Settings) (*services, error) {
	layoutManager, err := config.NewManager(settings.LayoutsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create layout manager: %w", err)
	}
	if settings.DefaultLayout != "" {
		if err := layoutManager.SetDefault(settings.DefaultLayout); err != nil {
			return nil, fmt.Errorf("failed to set default layout: %w", err)
		}
	}

	sessionManager := session.NewManager()
	hub := websocket.NewHub()
	gameService := service.NewGameService(sessionManager, layoutManager, service.WithPublisher(hub))

	return &services{game: gameService, sessions: sessionManager, layouts: layoutManager, hub: hub}, nil
}

// newHandler mounts the API at the root and the MCP endpoint at /mcp
func newHandler(apiServer http.Handler, mcpServer *server.MCPServer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", mcpHandler(mcpServer))
	return mux
}

// mcpHandler answers JSON-RPC messages posted to /mcp
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.WithError(err).Error("failed to write MCP response")
		}
	}
}

// runServe runs the HTTP server until ctx is cancelled
func runServe(ctx context.Context, settings config.Settings) error {
	svcs, err := initializeServices(settings)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go svcs.hub.Run(ctx)
	go sessionCleanupRoutine(ctx, svcs.sessions, settings.SessionTTL, settings.SessionCleanupInterval)

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)
	go layoutReloadRoutine(ctx, svcs.layouts, hangup)

	addr := settings.Addr()
	mcpClient := mcp.NewClient("http://" + addr)
	handler := newHandler(api.NewServer(svcs.game, svcs.hub), mcpClient.GetMCPServer())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.WithFields(log.Fields{
			"addr":      addr,
			"api":       "http://" + addr + "/api",
			"websocket": "ws://" + addr + "/ws?session=<session_id>",
			"mcp":       "http://" + addr + "/mcp",
		}).Infof("%s v%s listening", AppName, Version)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if settings.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, settings, handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		cancel()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info("server stopped")
	return nil
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, settings config.Settings, handler http.Handler) {
	if settings.NgrokAuthToken == "" {
		log.Warn("ngrok enabled but NGROK_AUTHTOKEN is not set")
		return
	}

	var endpoint ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
	} else {
		endpoint = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(settings.NgrokAuthToken))
	if err != nil {
		log.WithError(err).Error("failed to start ngrok tunnel")
		return
	}

	log.WithField("url", tun.URL()).Info("ngrok tunnel established")

	tunnelServer := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		tunnelServer.Close()
	}()

	if err := tunnelServer.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Warn("ngrok server error")
	}
	log.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine removes sessions idle for longer than ttl
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.CleanupExpiredSessions(ttl)
		}
	}
}

// layoutReloadRoutine drops the layout cache and reloads the default layout
// on every signal from reload
func layoutReloadRoutine(ctx context.Context, layouts *config.Manager, reload <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-reload:
			layouts.RefreshCache()
			log.WithField("default", layouts.GetDefault().Name).Info("layouts reloaded")
		}
	}
}

// apiAvailable reports whether a treasure hunt API answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP serves MCP over stdio. It reuses an API already running at
// the configured address, otherwise it starts an internal one on a random
// loopback port.
func runStdioMCP(ctx context.Context, settings config.Settings) error {
	baseURL := "http://" + settings.Addr()

	if apiAvailable(ctx, baseURL) {
		log.WithField("url", baseURL).Info("using running API server for MCP")
	} else {
		svcs, err := initializeServices(settings)
		if err != nil {
			return err
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		go svcs.hub.Run(ctx)
		go sessionCleanupRoutine(ctx, svcs.sessions, settings.SessionTTL, settings.SessionCleanupInterval)

		internal := &http.Server{Handler: api.NewServer(svcs.game, svcs.hub)}
		go func() {
			if err := internal.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("internal HTTP server error")
			}
		}()
		defer internal.Close()

		baseURL = "http://" + listener.Addr().String()
		log.WithField("url", baseURL).Info("started internal API server for MCP")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready")
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
