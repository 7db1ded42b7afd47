package commands

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/internal/telemetry"
	"github.com/quillchat/quill/pkg/cache"
	"github.com/quillchat/quill/pkg/chat/dispatch"
	"github.com/quillchat/quill/pkg/chat/handler"
	"github.com/quillchat/quill/pkg/chat/router"
	"github.com/quillchat/quill/pkg/chat/rpc"
	"github.com/quillchat/quill/pkg/chat/server"
	"github.com/quillchat/quill/pkg/chat/session"
	"github.com/quillchat/quill/pkg/config"
	"github.com/quillchat/quill/pkg/controlplane/api"
	"github.com/quillchat/quill/pkg/controlplane/store"
	"github.com/quillchat/quill/pkg/metrics"
	prom "github.com/quillchat/quill/pkg/metrics/prometheus"
)

// backendCleanupTimeout bounds the Redis and HTTP teardown steps at the
// end of shutdown so a dead backend cannot wedge the exit.
const backendCleanupTimeout = 5 * time.Second

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the quill chat node",
	Long: `Start the quill chat node with the specified configuration.

By default, the node runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/quill/config.yaml.

Examples:
  # Start in background (default)
  quill start

  # Start in foreground
  quill start --foreground

  # Start with custom config file
  quill start --config /etc/quill/config.yaml

  # Start with environment variable overrides
  QUILL_LOGGING_LEVEL=DEBUG quill start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/quill/quill.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/quill/quill.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	// Handle daemon mode (background)
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "quill",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "quill",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("Quill - Horizontally scalable chat node")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics FIRST so the Prometheus constructors see an
	// initialized registry.
	var (
		chatMetrics  metrics.ChatMetrics
		peerMetrics  metrics.PeerMetrics
		cacheMetrics metrics.CacheMetrics
		metricsSrv   *http.Server
	)
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		chatMetrics = prom.NewChatMetrics()
		peerMetrics = prom.NewPeerMetrics()
		cacheMetrics = prom.NewCacheMetrics()
		metricsSrv = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Relational identity store (accounts, friend graph)
	cpStore, err := store.New(&cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() { _ = cpStore.Close() }()
	logger.Info("Store initialized", "type", cfg.Store.Type)

	// Redis cache (login tokens, presence, login counts, profiles)
	cacheClient, err := cache.New(ctx, &cfg.Redis, cpStore, cacheMetrics)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() { _ = cacheClient.Close() }()

	nodeName := cfg.Server.Name

	// Session registry and the single-consumer dispatcher
	registry := session.NewRegistry()
	queue := dispatch.NewQueue(cfg.Server.MaxRecvQueue, chatMetrics)

	// Stub pools for every configured peer. Entries naming this node
	// are skipped; local delivery never dials.
	pools := rpc.NewPools()
	defer pools.Close()
	for _, peer := range cfg.Peers.Servers {
		if peer.Name == "" || peer.Name == nodeName {
			continue
		}
		pool, err := rpc.NewPool(peer.Name, peer.Addr(), cfg.Peers.PoolSize, peerMetrics)
		if err != nil {
			return fmt.Errorf("failed to build stub pool for peer %s: %w", peer.Name, err)
		}
		pools.Add(pool)
	}
	logger.Info("Peer pools ready", "peers", len(pools.Peers()), "pool_size", cfg.Peers.PoolSize)

	// Cross-node delivery router
	rt := router.New(router.Options{
		Node:     nodeName,
		Presence: cacheClient,
		Local:    registry,
		Pools:    pools,
		Metrics:  peerMetrics,
	})

	// Message handlers
	handlers := handler.New(handler.Options{
		Node:      nodeName,
		Directory: cacheClient,
		Social:    cpStore,
		Binder:    registry,
		Notifier:  rt,
	})
	handlers.Register(queue)

	// Inbound peer RPC service on the node's RPC port
	rpcServer := rpc.NewServer(rpc.NewNotifyService(registry))
	rpcAddr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.RPCPort))
	rpcListener, err := net.Listen("tcp", rpcAddr)
	if err != nil {
		return fmt.Errorf("rpc listener on %s: %w", rpcAddr, err)
	}

	// Chat session server
	chatSrv, err := server.New(&cfg.Server, server.Options{
		Registry: registry,
		Sink:     queue,
		Presence: cacheClient,
		Metrics:  chatMetrics,
	})
	if err != nil {
		_ = rpcListener.Close()
		return fmt.Errorf("failed to create chat server: %w", err)
	}

	// Admin API server (if enabled)
	var apiServer *api.Server
	if cfg.Admin.IsEnabled() {
		apiServer, err = api.NewServer(cfg.Admin, api.Deps{
			NodeName:  nodeName,
			Registry:  registry,
			Store:     cpStore,
			StoreType: string(cfg.Store.Type),
			Cache:     cacheClient,
		})
		if err != nil {
			_ = rpcListener.Close()
			return fmt.Errorf("failed to create admin API server: %w", err)
		}
		logger.Info("Admin API enabled", "port", cfg.Admin.Port)
	} else {
		logger.Info("Admin API disabled")
	}

	// Write PID file if specified
	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			_ = rpcListener.Close()
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	// The dispatcher gets its own context: the chat serve context is
	// cancelled at the start of shutdown, but drained frames still need
	// working store and cache calls.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	dispatchDone := make(chan struct{})
	go func() {
		queue.Run(dispatchCtx)
		close(dispatchDone)
	}()

	rpcDone := make(chan error, 1)
	go func() {
		rpcDone <- rpcServer.Serve(context.Background(), rpcListener)
	}()

	apiCtx, stopAPI := context.WithCancel(context.Background())
	defer stopAPI()

	apiDone := make(chan error, 1)
	if apiServer != nil {
		go func() {
			apiDone <- apiServer.Start(apiCtx)
		}()
	}

	if metricsSrv != nil {
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	chatDone := make(chan error, 1)
	go func() {
		chatDone <- chatSrv.Serve(ctx)
	}()

	// Wait for interrupt signal or a component failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Node is running. Press Ctrl+C to stop.",
		logger.Node(nodeName),
		"chat_port", cfg.Server.Port,
		"rpc_port", cfg.Server.RPCPort,
	)

	var runErr error
	chatExited, rpcExited, apiExited := false, false, false

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")

	case err := <-chatDone:
		signal.Stop(sigChan)
		chatExited = true
		if err != nil {
			logger.Error("Chat server error", "error", err)
			runErr = err
		}

	case err := <-rpcDone:
		signal.Stop(sigChan)
		rpcExited = true
		if err != nil {
			logger.Error("Peer RPC server error", "error", err)
			runErr = err
		}

	case err := <-apiDone:
		signal.Stop(sigChan)
		apiExited = true
		if err != nil {
			logger.Error("Admin API server error", "error", err)
			runErr = err
		}
	}

	// Ordered teardown. Stop accepting and drain sessions first; each
	// departing session releases its own presence entries.
	cancel()
	if !chatExited {
		if err := <-chatDone; err != nil {
			logger.Error("Chat server shutdown error", "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}

	// Close pools before the dispatcher drains so handlers still holding
	// queued frames fail fast instead of blocking on Acquire.
	pools.Close()

	// Drain whatever the dispatcher already accepted.
	queue.Stop()
	<-dispatchDone

	// Peers drain their in-flight calls.
	rpcServer.GracefulStop()
	if !rpcExited {
		if err := <-rpcDone; err != nil {
			logger.Error("Peer RPC server shutdown error", "error", err)
		}
	}

	if apiServer != nil {
		stopAPI()
		if !apiExited {
			if err := <-apiDone; err != nil {
				logger.Error("Admin API shutdown error", "error", err)
			}
		}
	}

	if metricsSrv != nil {
		shutdownCtx, cancelMetrics := context.WithTimeout(context.Background(), backendCleanupTimeout)
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
		cancelMetrics()
	}

	// Drop this node from the shared login-count hash so the allocation
	// service stops routing logins here.
	cleanupCtx, cancelCleanup := context.WithTimeout(context.Background(), backendCleanupTimeout)
	if err := cacheClient.DeleteLoginCount(cleanupCtx, nodeName); err != nil {
		logger.Warn("login count removal failed", logger.Node(nodeName), logger.Err(err))
	}
	cancelCleanup()

	if runErr != nil {
		return runErr
	}
	logger.Info("Node stopped gracefully")
	return nil
}
