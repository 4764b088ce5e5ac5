// Reeve is a smart-home command adapter.
//
// It turns natural-language utterances into SmartThings device commands:
// an intent gate decides whether the message is addressed to the house,
// a parser and a closed mapping table turn it into a capability command,
// and the executed result comes back as a short spoken-style
// confirmation. An HTTP API exposes message intake plus registry, state,
// scene, and counter introspection. Configuration is loaded from a
// single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	reeve serve              Start the API server
//	reeve init [dir]         Initialize a working directory with defaults
//	reeve send <text>        Run one utterance through the pipeline (for testing)
//	reeve devices            Discover and list devices
//	reeve version            Print version and build information
//	reeve -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reevehome/reeve/internal/api"
	"github.com/reevehome/reeve/internal/buildinfo"
	"github.com/reevehome/reeve/internal/capability"
	"github.com/reevehome/reeve/internal/config"
	"github.com/reevehome/reeve/internal/entity"
	"github.com/reevehome/reeve/internal/events"
	"github.com/reevehome/reeve/internal/homeassistant"
	"github.com/reevehome/reeve/internal/memory"
	"github.com/reevehome/reeve/internal/oracle"
	"github.com/reevehome/reeve/internal/pipeline"
	"github.com/reevehome/reeve/internal/runtime"
	"github.com/reevehome/reeve/internal/smartthings"
	"github.com/reevehome/reeve/internal/statecache"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run], keeping
// os.Exit, os.Stdout, and os.Args out of the application logic so the
// full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the reeve command. All OS-level
// dependencies are injected: ctx controls the process lifetime, stdout
// and stderr receive all output, and args is os.Args[1:]. run returns
// nil on clean shutdown; the caller prints any error and exits.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// A .env next to the binary is an optional convenience for tokens;
	// absence is not an error.
	_ = godotenv.Load()

	// Parse arguments by hand. The flag package relies on package-level
	// globals (flag.CommandLine), which makes it impossible to call
	// run() concurrently from tests, and the argument surface here is
	// small enough that manual parsing stays clearer than a CLI
	// framework.
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				// Collect remaining args as subcommand arguments.
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "send":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: reeve send <text>")
		}
		return runSend(ctx, stdout, configPath, cmdArgs)
	case "devices":
		return runDevices(ctx, stdout, configPath)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// reeve is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Reeve - Smart-Home Command Adapter")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: reeve [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  init [dir]   Initialize working directory with defaults (default: .)")
	fmt.Fprintln(w, "  send         Run one utterance through the pipeline (for testing)")
	fmt.Fprintln(w, "  devices      Discover and list devices")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/reeve/config.yaml, /etc/reeve/config.yaml")
	return nil
}

// runSend handles the "reeve send <text>" subcommand. It boots a minimal
// stack (no server, no pollers), runs a single utterance through the
// same action chain the API uses, and prints the reply. Useful for
// smoke tests and debugging without starting the server.
func runSend(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	text := strings.Join(args, " ")

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(stdout, "info", "text")
	if err != nil {
		return err
	}
	logger.Info("config loaded", "path", cfgPath)

	gateway := smartthings.NewClient(cfg.SmartThings.BaseURL, cfg.SmartThings.Token, cfg.SmartThings.Timeout(), logger)
	registry := entity.NewRegistry(gateway, nil, logger)
	if err := registry.Discover(ctx); err != nil {
		return fmt.Errorf("device discovery: %w", err)
	}

	cache := statecache.New()
	defer cache.Stop()
	for _, e := range registry.List() {
		cache.Update(e.ID, e.Name, e.State)
	}

	oracleClient := oracle.New(cfg.Oracle.URL, cfg.Oracle.Model, cfg.Oracle.Timeout())

	// Memory stays nil for a one-shot; nothing is worth persisting.
	pipe := pipeline.New(pipeline.Config{
		Gate:        oracleClient,
		Completer:   oracleClient,
		Registry:    registry,
		Gateway:     gateway,
		Cache:       cache,
		Logger:      logger,
		CallTimeout: cfg.Oracle.Timeout(),
		AgentID:     cfg.Agent.ID,
		RoomID:      cfg.Agent.Room,
	})

	actions := []runtime.Action{
		pipeline.NewControlAction(pipe),
		pipeline.NewDiscoveryAction(registry),
	}

	for _, action := range actions {
		if !action.CanHandle(text) {
			continue
		}
		resp, err := action.Handle(ctx, text, "cli")
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
		if resp == nil {
			break
		}
		fmt.Fprintln(stdout, resp.Text)
		return nil
	}

	fmt.Fprintln(stdout, "(no action taken)")
	return nil
}

// runDevices handles the "reeve devices" subcommand: a one-shot
// discovery pass followed by the registry's human-readable inventory.
func runDevices(ctx context.Context, stdout io.Writer, configPath string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(stdout, "warn", "text")
	if err != nil {
		return err
	}
	logger.Debug("config loaded", "path", cfgPath)

	gateway := smartthings.NewClient(cfg.SmartThings.BaseURL, cfg.SmartThings.Token, cfg.SmartThings.Timeout(), logger)
	registry := entity.NewRegistry(gateway, nil, logger)
	if err := registry.Discover(ctx); err != nil {
		return fmt.Errorf("device discovery: %w", err)
	}

	fmt.Fprint(stdout, registry.Summary())
	return nil
}

// runServe handles the "reeve serve" subcommand. It is the primary
// operating mode: loads config, opens the memory database, starts the
// device and automation pollers, wires the pipeline, starts the API
// server, and blocks until a shutdown signal arrives.
//
// The shutdown sequence is:
//  1. SIGINT or SIGTERM cancels the context
//  2. Pollers observe the cancellation and stop
//  3. The HTTP server drains in-flight requests
//  4. The memory database and state cache are closed via defers
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	// Wrap the parent context first so SIGINT/SIGTERM cancellation
	// flows through the same ctx every component receives.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	logger.Info("starting Reeve", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "branch", buildinfo.GitBranch, "built", buildinfo.BuildTime)
	logger.Info("config loaded", "path", cfgPath)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	store, err := memory.NewStore(filepath.Join(cfg.DataDir, "reeve.db"))
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	bus := events.New()
	counters := events.NewCounters()
	counters.Tally(bus)

	gateway := smartthings.NewClient(cfg.SmartThings.BaseURL, cfg.SmartThings.Token, cfg.SmartThings.Timeout(), logger)
	registry := entity.NewRegistry(gateway, bus, logger)

	cache := statecache.New()
	defer cache.Stop()

	// The device poller runs discovery immediately on start, so the
	// registry fills without a blocking pass here. Until the first
	// successful poll, resolution simply finds no devices.
	devicePoller := entity.NewPoller(entity.PollerConfig{
		Registry: registry,
		Sink:     cache,
		Interval: cfg.SmartThings.PollInterval(),
		Bus:      bus,
		Logger:   logger,
	})
	go devicePoller.Start(ctx)

	// Home Assistant is a read-only context mirror; when disabled the
	// automation endpoint answers 503 and nothing else changes.
	var automation runtime.ContextProvider
	if cfg.HomeAssistant.Enabled {
		haClient := homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token)
		mirror := homeassistant.NewMirror()
		haPoller := homeassistant.NewPoller(homeassistant.PollerConfig{
			Client:   haClient,
			Mirror:   mirror,
			Filter:   homeassistant.NewEntityFilter(cfg.HomeAssistant.Include, logger),
			Interval: cfg.HomeAssistant.PollInterval(),
			Bus:      bus,
			Logger:   logger,
		})
		go haPoller.Start(ctx)
		automation = homeassistant.NewProvider(mirror)
		logger.Info("home assistant mirror enabled", "url", cfg.HomeAssistant.URL)
	}

	oracleClient := oracle.New(cfg.Oracle.URL, cfg.Oracle.Model, cfg.Oracle.Timeout())
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := oracleClient.Ping(pingCtx); err != nil {
		logger.Warn("intent oracle unreachable; message passes will fail until it returns", "url", cfg.Oracle.URL, "error", err)
	}
	pingCancel()

	pipe := pipeline.New(pipeline.Config{
		Gate:        oracleClient,
		Completer:   oracleClient,
		Registry:    registry,
		Gateway:     gateway,
		Cache:       cache,
		Memory:      store,
		Bus:         bus,
		Logger:      logger,
		CallTimeout: cfg.Oracle.Timeout(),
		AgentID:     cfg.Agent.ID,
		RoomID:      cfg.Agent.Room,
	})

	contextBlock := runtime.NewComposite(
		statecache.NewProvider(cache),
		entity.NewDiscoveryProvider(registry),
	)
	if automation != nil {
		contextBlock.Add(automation)
	}

	server := api.NewServer(api.Config{
		Address: cfg.Listen.Address,
		Port:    cfg.Listen.Port,
		Actions: []runtime.Action{
			pipeline.NewControlAction(pipe),
			pipeline.NewDiscoveryAction(registry),
		},
		Registry:     registry,
		Cache:        cache,
		Capabilities: capability.NewRegistry(),
		Scenes:       gateway,
		Automation:   automation,
		Context:      contextBlock,
		Memory:       store,
		Counters:     counters,
		Logger:       logger,
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
	}()

	// Start the API server. This blocks until the server is shut down
	// (via context cancellation or fatal error).
	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Reeve stopped")
	return nil
}

// loadConfig discovers, loads, and validates the configuration file.
// Validation failures are fatal here so a bad config never reaches a
// half-started server.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, cfgPath, fmt.Errorf("config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
