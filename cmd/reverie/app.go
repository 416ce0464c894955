package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vinayprograms/reverie/api"
	"github.com/vinayprograms/reverie/bus"
	"github.com/vinayprograms/reverie/config"
	"github.com/vinayprograms/reverie/feed"
	"github.com/vinayprograms/reverie/logging"
	"github.com/vinayprograms/reverie/memory"
	"github.com/vinayprograms/reverie/ratelimit"
	"github.com/vinayprograms/reverie/shutdown"
	"github.com/vinayprograms/reverie/telemetry"
)

// app holds the wired components of a running server.
type app struct {
	store      memory.Store
	storageDir string
	bus        bus.MessageBus
	feed       *feed.Feed
	limiter    *ratelimit.MemoryLimiter
	api        *api.Server
	server     *http.Server
}

func build(cfg *config.Config, logger *logging.Logger, tracer *telemetry.Tracer) (*app, error) {
	a := &app{}

	b, err := openBus(cfg.Bus, logger)
	if err != nil {
		return nil, err
	}
	a.bus = b

	store, dir, err := openStore(cfg.Storage, b, logger, tracer)
	if err != nil {
		b.Close()
		return nil, err
	}
	a.store, a.storageDir = store, dir

	fcfg := feed.DefaultConfig()
	fcfg.HeartbeatInterval = cfg.Feed.HeartbeatInterval
	a.feed = feed.New(b, fcfg, logger)

	acfg := api.Config{
		Store:  store,
		Bus:    b,
		Feed:   a.feed,
		Logger: logger,
		Tracer: tracer,
	}
	if cfg.RateLimit.Writes > 0 {
		a.limiter = ratelimit.NewMemoryLimiter()
		a.limiter.SetCapacity(api.WriteResource, cfg.RateLimit.Writes, cfg.RateLimit.Window)
		acfg.Limiter = a.limiter
	}

	a.api, err = api.New(acfg)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	a.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	a.server.RegisterOnShutdown(a.feed.Close)
	return a, nil
}

// register hands every component to the coordinator in dependency order.
func (a *app) register(coord *shutdown.Coordinator) {
	coord.RegisterFunc("http", shutdown.PhaseHTTP, a.server.Shutdown)
	coord.RegisterFunc("feed", shutdown.PhaseHTTP, a.drainFeed)
	coord.RegisterCloser("bus", shutdown.PhaseBus, a.bus)
	coord.RegisterCloser("store", shutdown.PhaseStorage, a.store)
	if a.limiter != nil {
		coord.RegisterCloser("ratelimit", shutdown.PhaseStorage, a.limiter)
	}
}

// drainFeed ends live streams and waits for their handlers, which
// http.Server.Shutdown does not track once a WebSocket is hijacked.
func (a *app) drainFeed(ctx context.Context) error {
	a.feed.Close()
	done := make(chan struct{})
	go func() {
		a.feed.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *app) closeAll() {
	if a.feed != nil {
		a.feed.Close()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
}

func openStore(cfg config.StorageConfig, b bus.MessageBus, logger *logging.Logger, tracer *telemetry.Tracer) (memory.Store, string, error) {
	keys, err := memory.KeysFor(cfg.Keys)
	if err != nil {
		return nil, "", err
	}
	codec, err := memory.CodecFor(cfg.Format)
	if err != nil {
		return nil, "", err
	}

	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewInMemoryStore(keys), "(memory)", nil

	case config.BackendNATS:
		nb, ok := b.(*bus.NATSBus)
		if !ok {
			return nil, "", fmt.Errorf("storage backend nats needs a NATS bus")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		kv, err := memory.NewKVStore(ctx, memory.KVStoreConfig{
			Conn:   nb.Conn(),
			Bucket: cfg.Bucket,
			Codec:  codec,
			Keys:   keys,
			Tracer: tracer,
			Logger: logger,
		})
		if err != nil {
			return nil, "", err
		}
		return kv, "nats-kv:" + kv.Bucket(), nil
	}

	fs, err := memory.NewFileStore(memory.FileStoreConfig{
		Dir:    cfg.Dir,
		Codec:  codec,
		Keys:   keys,
		Tracer: tracer,
		Logger: logger,
	})
	if err != nil {
		return nil, "", err
	}
	return fs, fs.Dir(), nil
}

func openBus(cfg config.BusConfig, logger *logging.Logger) (bus.MessageBus, error) {
	if cfg.NATSURL == "" {
		return bus.NewMemoryBus(bus.DefaultConfig()), nil
	}
	ncfg := bus.DefaultNATSConfig()
	ncfg.URL = cfg.NATSURL
	ncfg.Logger = logger
	if cfg.Name != "" {
		ncfg.Name = cfg.Name
	}
	return bus.NewNATSBus(ncfg)
}
