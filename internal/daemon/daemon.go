package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/harun/redclaw/internal/config"
	"github.com/harun/redclaw/internal/logger"
	"github.com/harun/redclaw/internal/observability"
	"github.com/harun/redclaw/internal/telegram"
	"github.com/harun/redclaw/internal/tracing"
	"github.com/harun/redclaw/pkg/agent"
	"github.com/harun/redclaw/pkg/commandqueue"
	"github.com/harun/redclaw/pkg/coretools"
	"github.com/harun/redclaw/pkg/llm"
	"github.com/harun/redclaw/pkg/memory"
	"github.com/harun/redclaw/pkg/session"
	"github.com/harun/redclaw/pkg/tools"
	"github.com/rs/zerolog"
)

// ServiceName identifies the process in traces.
const ServiceName = "redclaw"

// Channel runs an inbound channel until ctx ends.
type Channel interface {
	Run(ctx context.Context) error
}

// Daemon wires the agent loop to its stores, tools and model client, and in
// Telegram mode hosts the bot, session cleanup and the metrics endpoint.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	// Core modules
	queue        *commandqueue.CommandQueue
	sessions     *session.Manager
	contextStore *memory.ContextStore
	bootstrap    *memory.BootstrapCache
	registry     *tools.Registry
	client       llm.Client
	loop         *agent.Loop

	// Services
	channel       Channel
	cleanup       *session.Cleanup
	metricsServer *http.Server
	lifecycle     *LifecycleManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	closed    bool
	mu        sync.RWMutex

	tracingEnabled bool
}

var newModelClient = func(opts llm.Options) (llm.Client, error) {
	return llm.New(opts)
}

var newTelegramChannel = func(cfg config.TelegramConfig, runner telegram.Runner, sessions telegram.Sessions, log zerolog.Logger) (Channel, error) {
	return telegram.New(cfg, runner, sessions, log)
}

// New builds every core module from cfg. Nothing runs in the background
// until Start.
func New(cfg *config.Config, log *logger.Logger, version string) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	observability.EnsureRegistered()
	d := &Daemon{
		config: cfg,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := tracing.InitOpenTelemetry(ServiceName, version); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
	} else {
		d.tracingEnabled = true
	}

	if err := d.initializeCoreModules(); err != nil {
		cancel()
		d.shutdownTracing()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// initializeCoreModules builds the modules in dependency order.
func (d *Daemon) initializeCoreModules() error {
	workspace := d.config.WorkspacePath()
	defaults := d.config.Agents.Defaults

	if d.config.Logging.AuditFile != "" {
		if err := observability.InitAuditLogger(config.ExpandHome(d.config.Logging.AuditFile)); err != nil {
			return fmt.Errorf("failed to initialize audit logger: %w", err)
		}
	}

	if _, err := memory.SeedWorkspace(workspace); err != nil {
		return fmt.Errorf("failed to prepare workspace: %w", err)
	}

	sessions, err := session.New(filepath.Join(workspace, "sessions"), d.logger.GetZerolog())
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}
	d.sessions = sessions

	contextStore, err := memory.NewContextStore(workspace, d.logger.GetZerolog())
	if err != nil {
		return fmt.Errorf("failed to create context store: %w", err)
	}
	d.contextStore = contextStore
	d.bootstrap = memory.NewBootstrapCache(workspace, d.logger.GetZerolog())

	d.registry = tools.NewRegistry(d.logger.GetZerolog())
	if err := coretools.RegisterCoreTools(d.registry, coretools.Options{
		Workspace:        workspace,
		ExecTimeout:      time.Duration(d.config.Tools.Exec.TimeoutSeconds) * time.Second,
		SearchAPIKey:     d.config.Tools.Web.Search.APIKey,
		SearchMaxResults: d.config.Tools.Web.Search.MaxResults,
		Logger:           d.logger.Component("coretools"),
	}); err != nil {
		return fmt.Errorf("failed to register core tools: %w", err)
	}

	provider, pc, err := d.config.ActiveProvider()
	if err != nil {
		return err
	}
	client, err := newModelClient(llm.Options{
		Provider:    provider,
		APIKey:      pc.APIKey,
		APIBase:     pc.APIBase,
		Model:       defaults.Model,
		MaxTokens:   defaults.MaxTokens,
		Temperature: defaults.Temperature,
		Logger:      d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	d.client = client

	d.queue = commandqueue.New(d.logger.GetZerolog())

	loop, err := agent.NewLoop(agent.Config{
		Client:        d.client,
		Tools:         d.registry,
		Sessions:      d.sessions,
		Context:       d.contextStore,
		Bootstrap:     d.bootstrap,
		Queue:         d.queue,
		MaxIterations: defaults.MaxToolIterations,
		HistoryWindow: defaults.HistoryWindow,
		Logger:        d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create agent loop: %w", err)
	}
	d.loop = loop

	d.logger.Info().
		Str("workspace", workspace).
		Str("provider", provider).
		Str("model", defaults.Model).
		Strs("tools", d.registry.Names()).
		Msg("Core modules initialized")

	return nil
}

// Start runs the Telegram bot, the session cleanup schedule and, when
// enabled, the metrics endpoint.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("daemon is closed")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	logger := d.logger.GetZerolog().With().Str("trace_id", tracing.NewTraceID()).Logger()
	logger.Info().Msg("Starting RedClaw daemon")

	if !d.config.Channels.Telegram.Enabled {
		d.setStopped()
		return fmt.Errorf("telegram channel is not enabled; run onboard or set channels.telegram")
	}

	if err := d.lifecycle.Start(); err != nil {
		d.setStopped()
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	channel, err := newTelegramChannel(d.config.Channels.Telegram, d.loop, d.sessions, d.logger.GetZerolog())
	if err != nil {
		_ = d.lifecycle.Stop()
		d.setStopped()
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	d.channel = channel

	if err := d.bootstrap.Watch(); err != nil {
		logger.Warn().Err(err).Msg("Failed to watch bootstrap documents, reading them per run")
	}

	d.cleanup = session.NewCleanup(
		d.sessions,
		d.config.Sessions.CleanupSchedule,
		time.Duration(d.config.Sessions.MaxAgeDays)*24*time.Hour,
		d.logger.GetZerolog(),
	)
	if err := d.cleanup.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start session cleanup")
	}

	if d.config.Metrics.Enabled {
		d.startMetricsServer(logger)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.channel.Run(d.ctx); err != nil {
			logger.Error().Err(err).Msg("Telegram bot exited")
		}
	}()

	logger.Info().Msg("Daemon started")
	return nil
}

func (d *Daemon) startMetricsServer(logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	d.metricsServer = &http.Server{
		Addr:              d.config.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("address", d.config.Metrics.Address).Msg("Metrics server failed")
		}
	}()
	logger.Info().Str("address", d.config.Metrics.Address).Msg("Metrics server started")
}

func (d *Daemon) setStopped() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

// Stop stops the services started by Start and releases the core modules.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	logger := d.logger.GetZerolog().With().Str("trace_id", tracing.NewTraceID()).Logger()
	logger.Info().Msg("Stopping RedClaw daemon")

	d.cancel()

	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to stop metrics server")
		}
		cancel()
	}

	if d.cleanup != nil && d.cleanup.IsRunning() {
		if err := d.cleanup.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop session cleanup")
		}
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All goroutines stopped")
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	if err := d.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to release core modules")
	}

	logger.Info().Msg("Daemon stopped")
	return nil
}

// Close releases the core modules. One-shot callers that never Start use it
// directly; Stop calls it.
func (d *Daemon) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()

	var errs []error
	if err := d.bootstrap.Close(); err != nil {
		errs = append(errs, fmt.Errorf("bootstrap watcher: %w", err))
	}
	if err := d.queue.Close(); err != nil {
		errs = append(errs, fmt.Errorf("command queue: %w", err))
	}
	d.shutdownTracing()
	if err := observability.GetAuditLogger().Close(); err != nil {
		errs = append(errs, fmt.Errorf("audit logger: %w", err))
	}
	return errors.Join(errs...)
}

func (d *Daemon) shutdownTracing() {
	if !d.tracingEnabled {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.ShutdownOpenTelemetry(shutdownCtx); err != nil {
		d.logger.Error().Err(err).Msg("Failed to shutdown tracing")
	}
	d.tracingEnabled = false
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Wait blocks until SIGINT or SIGTERM, then stops the daemon.
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		d.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	case <-d.ctx.Done():
	}

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// Loop returns the agent loop.
func (d *Daemon) Loop() *agent.Loop {
	return d.loop
}

// Sessions returns the session manager.
func (d *Daemon) Sessions() *session.Manager {
	return d.sessions
}

// Registry returns the tool registry.
func (d *Daemon) Registry() *tools.Registry {
	return d.registry
}

// ContextStore returns the daily and long-term note store.
func (d *Daemon) ContextStore() *memory.ContextStore {
	return d.contextStore
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// Status holds daemon status information
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
}
