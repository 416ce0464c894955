// Command reverie serves the memory API.
//
// Configuration comes from -config, or the first of reverie.toml,
// reverie.yaml, ~/.config/reverie/reverie.{toml,yaml}, with REVERIE_*
// environment overrides. SIGINT or SIGTERM starts a phased shutdown:
// HTTP and live streams first, then the event bus, then storage and
// telemetry.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/vinayprograms/reverie/config"
	"github.com/vinayprograms/reverie/logging"
	"github.com/vinayprograms/reverie/shutdown"
	"github.com/vinayprograms/reverie/telemetry"
)

const version = "0.1.0"

// CLIConfig holds command-line flags.
type CLIConfig struct {
	ConfigFile  string
	Addr        string
	ShowVersion bool
}

func main() {
	cli, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}
	if cli.ShowVersion {
		fmt.Printf("reverie v%s\n", version)
		return
	}

	if err := run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "reverie: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*CLIConfig, error) {
	cli := &CLIConfig{}
	fs := flag.NewFlagSet("reverie", flag.ContinueOnError)
	fs.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (.toml or .yaml)")
	fs.StringVar(&cli.Addr, "addr", "", "Listen address, overrides server.addr")
	fs.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cli, nil
}

func loadConfig(cli *CLIConfig) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path = cli.ConfigFile
		err  error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, "", err
	}
	if cli.Addr != "" {
		cfg.Server.Addr = cli.Addr
	}
	return cfg, path, nil
}

func run(cli *CLIConfig) error {
	cfg, path, err := loadConfig(cli)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.New()
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if path != "" {
		logger.Info("config loaded", map[string]interface{}{"path": path})
	}

	coord := shutdown.NewCoordinator(shutdown.Config{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  logger,
	})

	tracer, err := setupTelemetry(context.Background(), cfg, coord)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	app, err := build(cfg, logger, tracer)
	if err != nil {
		// Release whatever telemetry already holds.
		_ = coord.ShutdownWithTimeout(0)
		return err
	}
	app.register(coord)

	stop := coord.HandleSignals()
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.ServerStart(cfg.Server.Addr, app.storageDir)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		_ = coord.ShutdownWithTimeout(0)
		return fmt.Errorf("serve: %w", err)
	case <-coord.Done():
	}
	return coord.Err()
}

func setupTelemetry(ctx context.Context, cfg *config.Config, coord *shutdown.Coordinator) (*telemetry.Tracer, error) {
	pcfg := telemetry.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Protocol:       cfg.Telemetry.Protocol,
		Insecure:       cfg.Telemetry.Insecure,
		Debug:          cfg.Telemetry.Debug,
	}
	if !pcfg.Enabled() {
		return telemetry.GetTracer(), nil
	}
	provider, err := telemetry.InitProvider(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	coord.RegisterFunc("telemetry", shutdown.PhaseStorage, provider.Shutdown)
	return provider.Tracer(), nil
}
