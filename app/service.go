package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	activityapi "github.com/campus-safety/dispatch/api/activity"
	ambulanceapi "github.com/campus-safety/dispatch/api/ambulances"
	reportapi "github.com/campus-safety/dispatch/api/reports"
	requestapi "github.com/campus-safety/dispatch/api/requests"
	"github.com/campus-safety/dispatch/config"
	"github.com/campus-safety/dispatch/core/activity"
	"github.com/campus-safety/dispatch/core/dispatch"
	"github.com/campus-safety/dispatch/core/fleet"
	"github.com/campus-safety/dispatch/core/identity"
	"github.com/campus-safety/dispatch/core/ledger"
	coremetrics "github.com/campus-safety/dispatch/core/metrics"
	"github.com/campus-safety/dispatch/core/notify"
	"github.com/campus-safety/dispatch/core/report"
	"github.com/campus-safety/dispatch/infra/logger"
	"github.com/campus-safety/dispatch/infra/metrics"
	"github.com/campus-safety/dispatch/infra/mqtt"
	"github.com/campus-safety/dispatch/internal/eventbus"
)

// Service orchestrates the dispatch engine, the HTTP API and the metric
// exporters.
type Service struct {
	Engine    *dispatch.Engine
	Registry  *fleet.Registry
	Ledger    *ledger.Ledger
	Users     *identity.MemoryDirectory
	Reporter  *report.Generator
	Activity  *activity.Log
	bus       eventbus.EventBus
	log       logger.Logger
	notifier  notify.Notifier
	apiServer *http.Server
	stop      context.CancelFunc

	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.MQTT.Enabled {
		pn, err := mqtt.NewPahoNotifier(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		notifier = pn
	}

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		sinks = append(sinks, sink)
	}
	var sink coremetrics.MetricsSink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	reg := fleet.NewRegistry(fleet.NewMemoryStore())
	led := ledger.NewLedger(ledger.NewMemoryStore())
	users := identity.NewMemoryDirectory()
	bus := eventbus.New()

	eng, err := dispatch.NewEngine(reg, led, users, cfg.Dispatch, logger.New("engine"))
	if err != nil {
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}
	eng.SetEventBus(bus)
	eng.SetNotifier(notifier)
	if sink != nil {
		eng.SetMetricsSink(sink)
	}

	gen := report.NewGenerator(led, reg)

	// The activity recorder is the bus consumer: it turns lifecycle events
	// into the log served on /api/activity.
	actLog := activity.NewLog(1024)
	recCtx, stopRec := context.WithCancel(context.Background())
	activity.StartRecorder(recCtx, bus, actLog)

	mux := http.NewServeMux()
	mux.Handle("/api/requests", requestapi.NewHandler(eng))
	mux.Handle("/api/requests/", requestapi.NewHandler(eng))
	mux.Handle("/api/ambulances", ambulanceapi.NewHandler(eng))
	mux.Handle("/api/ambulances/", ambulanceapi.NewHandler(eng))
	mux.Handle("/api/reports", reportapi.NewHandler(gen))
	mux.Handle("/api/activity", activityapi.NewHandler(actLog))

	srv := &http.Server{
		Addr:         cfg.API.Address,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.API.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.API.WriteTimeoutSeconds) * time.Second,
	}

	return &Service{
		Engine:      eng,
		Registry:    reg,
		Ledger:      led,
		Users:       users,
		Reporter:    gen,
		Activity:    actLog,
		bus:         bus,
		stop:        stopRec,
		log:         logg,
		notifier:    notifier,
		apiServer:   srv,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// Handler returns the HTTP API handler, mainly for tests.
func (s *Service) Handler() http.Handler { return s.apiServer.Handler }

// Run starts the HTTP API and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("API listening on %s", s.apiServer.Addr)
		if err := s.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.apiServer.Shutdown(shutdownCtx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.stop != nil {
		s.stop()
	}
	s.bus.Close()
	if pn, ok := s.notifier.(*mqtt.PahoNotifier); ok {
		pn.Disconnect()
	}
	return nil
}
