package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dbehnke/dstar-gateway/internal/standalone"
	"github.com/dbehnke/dstar-gateway/pkg/cache"
	"github.com/dbehnke/dstar-gateway/pkg/config"
	"github.com/dbehnke/dstar-gateway/pkg/database"
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/hosts"
	"github.com/dbehnke/dstar-gateway/pkg/journal"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
	"github.com/dbehnke/dstar-gateway/pkg/metrics"
	"github.com/dbehnke/dstar-gateway/pkg/restrict"
	"github.com/dbehnke/dstar-gateway/pkg/text"
	"github.com/dbehnke/dstar-gateway/pkg/web"
)

func runGateway(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	log, logCloser, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	ver, _, built := web.GetVersionInfo()
	log.Info("Starting dstar-gateway",
		logger.String("version", ver),
		logger.String("build_time", built),
		logger.String("gateway", cfg.GatewayCallsign()))

	db, err := database.NewDB(database.Config{Path: cfg.Database.Path}, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", logger.Error(err))
		}
	}()

	hostCache := cache.New(db, log)
	if err := hostCache.Load(); err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}
	if cfg.Hosts.Directory != "" {
		if err := hosts.LoadDirectory(hostCache, cfg.Hosts.Directory, log.WithComponent("hosts")); err != nil {
			return err
		}
	}

	restricted, err := restrict.New(cfg.Restrict.Callsigns, cfg.Restrict.File, log)
	if err != nil {
		return fmt.Errorf("failed to load restrict list: %w", err)
	}

	translator, err := text.New(cfg.Gateway.Language)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var wg sync.WaitGroup
	spawn := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Component stopped with error", logger.String("component", name), logger.Error(err))
			}
		}()
	}

	// Recorders observe every session event
	var recorders gateway.Recorders
	collector := metrics.NewCollector()
	if cfg.Metrics.Enabled {
		recorders = append(recorders, collector)
	}
	hub := web.NewWebSocketHub(log.WithComponent("web"))
	hub.SetTranslator(translator)
	if cfg.Web.Enabled {
		recorders = append(recorders, hub)
	}

	binding := &standalone.Binding{}
	gcfg := gateway.Config{
		Gateway:      cfg.GatewayCallsign(),
		MaxRepeaters: cfg.Gateway.MaxRepeaters,
		Features:     cfg.FeatureSet(),
		Reflectors: map[dstar.Protocol]gateway.Reflector{
			dstar.ProtocolDExtra: standalone.NewReflector(dstar.ProtocolDExtra, binding, log),
			dstar.ProtocolDPlus:  standalone.NewReflector(dstar.ProtocolDPlus, binding, log),
			dstar.ProtocolDCS:    standalone.NewReflector(dstar.ProtocolDCS, binding, log),
		},
		Cache:    hostCache,
		Restrict: restricted,
		Recorder: recorders,
		Logger:   log,
	}
	if cfg.Features.Directory {
		gcfg.Directory = standalone.NewDirectory(hostCache, binding, cfg.GatewayCallsign(), cfg.Gateway.Address, log)
	}

	var txRepo web.TransmissionStore
	if cfg.Database.Journal {
		j := journal.New(db, journal.Options{
			MinDuration: journal.DefaultMinDuration,
			Retention:   time.Duration(cfg.Database.RetentionDays) * 24 * time.Hour,
		}, log)
		gcfg.Journal = j
		txRepo = database.NewTransmissionRepository(db.GetDB())
		spawn("journal", func() error {
			j.Run(ctx)
			return nil
		})
	}

	reg := gateway.NewRegistry(gcfg)
	for i, rc := range cfg.Repeaters {
		sc, err := rc.Session()
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("repeater %d: %w", i, err)
		}
		sc.Transport = standalone.NewTransport(dstar.RepeaterCallsign(rc.Callsign, rc.Band), translator, log)
		s, err := reg.Add(sc)
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}
		log.Info("Repeater registered",
			logger.String("repeater", s.RepeaterCallsign()),
			logger.String("mode", s.Mode().String()),
			logger.Int("slot", s.Index()))
	}

	engine := gateway.NewEngine(reg, cfg.Tick())
	binding.Bind(engine)
	spawn("engine", func() error { return engine.Run(ctx) })

	if cfg.Hosts.Enabled {
		syncer := hosts.NewSyncer(hostCache, hostSources(cfg.Hosts),
			time.Duration(cfg.Hosts.SyncHours)*time.Hour,
			time.Duration(cfg.Hosts.TimeoutSecs)*time.Second,
			log)
		spawn("hosts", func() error {
			syncer.Start(ctx)
			return nil
		})
	}

	if cfg.Restrict.Watch {
		spawn("restrict", func() error { return restricted.Watch(ctx, restrict.DefaultDebounce) })
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		metricsServer := metrics.NewPrometheusServer(
			metrics.PrometheusConfig{
				Enabled: cfg.Metrics.Prometheus.Enabled,
				Port:    cfg.Metrics.Prometheus.Port,
				Path:    cfg.Metrics.Prometheus.Path,
			},
			collector,
			log,
		)
		spawn("metrics", func() error { return metricsServer.Start(ctx) })
		log.Info("Prometheus metrics server started",
			logger.Int("port", cfg.Metrics.Prometheus.Port),
			logger.String("path", cfg.Metrics.Prometheus.Path))
	}

	if cfg.Web.Enabled {
		api := web.NewAPI(gateway.NewRemote(engine), txRepo, log.WithComponent("api"))
		srv := web.NewServer(cfg.Web, hub, api, log.WithComponent("web"))
		spawn("web", func() error { return srv.Start(ctx) })
		log.Info("Web server started",
			logger.String("host", cfg.Web.Host),
			logger.Int("port", cfg.Web.Port))
	}

	log.Info("dstar-gateway initialized", logger.Int("repeaters", reg.Len()))

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	cancel()
	wg.Wait()

	log.Info("dstar-gateway stopped")
	return nil
}

// hostSources lists the configured host list downloads
func hostSources(cfg config.HostsConfig) []hosts.Source {
	var sources []hosts.Source
	for _, src := range []hosts.Source{
		{Protocol: dstar.ProtocolDExtra, URL: cfg.DExtraURL},
		{Protocol: dstar.ProtocolDPlus, URL: cfg.DPlusURL},
		{Protocol: dstar.ProtocolDCS, URL: cfg.DCSURL},
	} {
		if src.URL != "" {
			sources = append(sources, src)
		}
	}
	return sources
}
