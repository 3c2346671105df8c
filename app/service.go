package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/safih1/policedispatch/api/session"
	"github.com/safih1/policedispatch/auth"
	"github.com/safih1/policedispatch/config"
	"github.com/safih1/policedispatch/core/coordinator"
	"github.com/safih1/policedispatch/core/dispatch"
	"github.com/safih1/policedispatch/core/emergency"
	"github.com/safih1/policedispatch/core/journal"
	"github.com/safih1/policedispatch/core/location"
	"github.com/safih1/policedispatch/core/loop"
	coremetrics "github.com/safih1/policedispatch/core/metrics"
	coremon "github.com/safih1/policedispatch/core/monitoring"
	"github.com/safih1/policedispatch/core/telemetry"
	"github.com/safih1/policedispatch/infra/logger"
	"github.com/safih1/policedispatch/infra/metrics"
	"github.com/safih1/policedispatch/infra/monitoring"
	"github.com/safih1/policedispatch/infra/mqtt"
	"github.com/safih1/policedispatch/infra/officers"
	"github.com/safih1/policedispatch/infra/ws"
	"github.com/safih1/policedispatch/internal/eventbus"
)

// Service owns one officer session: the police channel, the coordinator and
// the event consumers around them.
type Service struct {
	Coordinator *coordinator.Coordinator

	cfg     *config.Config
	channel *ws.Manager
	bus     *eventbus.Bus
	sink    coremetrics.MetricsSink
	journal journal.Store
	mqtt    *mqtt.PahoClient
	log     logger.Logger
}

// New creates a Service from the configuration. Nothing connects until Run.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	var store journal.Store = journal.NopStore{}
	if cfg.Journal.Backend == "jsonl" {
		store, err = journal.NewRotatingJSONLStore(cfg.Journal.Path, cfg.Journal.MaxSizeMB, cfg.Journal.MaxBackups, cfg.Journal.MaxAgeDays)
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}

	header, err := auth.Header(ctx, cfg.Backend.Auth)
	if err != nil {
		return nil, fmt.Errorf("channel auth: %w", err)
	}
	timeout := time.Duration(cfg.Dispatch.RequestTimeoutSeconds) * time.Second
	roster := officers.New(cfg.Backend.APIURL, auth.HTTPClient(ctx, cfg.Backend.Auth, timeout), logger.New("officers"))

	bus := eventbus.New()
	channel := ws.NewManager(cfg.Connection, header, logger.New("police_channel"))
	lp := loop.New(0)
	dispatcher := dispatch.New(cfg.Dispatch, emergency.NewMemoryStore(), roster, roster, lp, bus, logger.New("dispatcher"))
	tracker := telemetry.NewTracker(cfg.Telemetry, channel, logger.New("telemetry"))
	position := location.NewTracked(cfg.Officer.ID, cfg.Officer.MaxAge(), location.Static{Position: cfg.Officer.Position})

	coord := coordinator.New(coordinator.Deps{
		Loop:       lp,
		Channel:    channel,
		Dispatcher: dispatcher,
		Tracker:    tracker,
		Location:   position,
		Observer:   position,
		Bus:        bus,
		Logger:     logger.New("coordinator"),
		OfficerID:  cfg.Officer.ID,
	})

	svc := &Service{
		Coordinator: coord,
		cfg:         cfg,
		channel:     channel,
		bus:         bus,
		sink:        sink,
		journal:     store,
		log:         logg,
	}
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = client
	}
	return svc, nil
}

// Run starts the session and blocks until the context is cancelled or a
// component fails.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	journal.StartRecorder(ctx, s.bus, s.journal, logger.New("journal"))
	if s.mqtt != nil {
		mqtt.StartMirror(ctx, s.bus, s.mqtt, s.cfg.MQTT.TopicPrefix)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Coordinator.Run(gctx) })
	g.Go(func() error { return s.channel.Run(gctx) })
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		g.Go(func() error { return metrics.StartPromServer(gctx, addr) })
	}
	if addr := s.cfg.API.Addr; addr != "" {
		handler := session.NewHandler(s.Coordinator, s.journal, s.cfg.API.Token)
		g.Go(func() error { return serveAPI(gctx, addr, handler, s.log) })
	}
	s.log.Infof("session %s running", s.Coordinator.SessionID())
	return g.Wait()
}

func serveAPI(ctx context.Context, addr string, h http.Handler, log logger.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving operator api on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if err := s.channel.Close(); err != nil {
		errs = append(errs, fmt.Errorf("channel: %w", err))
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if err := s.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("journal: %w", err))
	}
	s.bus.Close()
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
