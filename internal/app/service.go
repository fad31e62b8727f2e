package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"sitewatch/internal/catalog"
	"sitewatch/internal/clock"
	"sitewatch/internal/config"
	"sitewatch/internal/engine"
	"sitewatch/internal/ingest"
	"sitewatch/internal/lifecycle"
	"sitewatch/internal/logging"
	"sitewatch/internal/notify"
	"sitewatch/internal/notifyqueue"
	"sitewatch/internal/sim"
	"sitewatch/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Service owns the full runtime: pipeline, transports, and lifecycle hooks.
// Params: validated configuration snapshot.
// Returns: runnable service instance.
type Service struct {
	cfg      config.Config
	logger   *slog.Logger
	closeLog func()

	catalog  *catalog.Catalog
	manager  *Manager
	producer notifyqueue.Producer

	httpServer  *http.Server
	natsSub     *ingest.NATSSubscriber
	worker      notifyqueue.Worker
	simInterval time.Duration
	ready       atomic.Bool
}

// New builds the service from one validated configuration snapshot.
// Params: configuration after defaults and validation.
// Returns: initialized service or wiring error.
func New(cfg config.Config) (*Service, error) {
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	clk := clock.RealClock{}

	cat := catalog.New()
	if err := cat.Seed(config.BuildZones(cfg.Zones)); err != nil {
		closeLog()
		return nil, fmt.Errorf("seed zone catalog: %w", err)
	}

	factory, err := engine.NewFactory(config.DescriptionTemplates(cfg.Profile), clk)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init alert factory: %w", err)
	}

	alerts := store.New()
	controller := lifecycle.NewController(alerts, clk)

	senders, err := buildSenders(cfg.Notify, logger)
	if err != nil {
		closeLog()
		return nil, err
	}
	dispatcher, err := notify.NewDispatcher(cfg.Notify, senders, clk, logger)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init notify dispatcher: %w", err)
	}

	var producer notifyqueue.Producer
	if cfg.Notify.Queue.Enabled {
		producer, err = notifyqueue.NewNATSProducer(cfg.Notify.Queue)
		if err != nil {
			closeLog()
			return nil, fmt.Errorf("init notify queue producer: %w", err)
		}
	}

	manager := NewManager(
		cat,
		factory,
		alerts,
		controller,
		dispatcher,
		producer,
		config.SeverityWeights(cfg.Profile),
		clk,
		logger,
	)

	return &Service{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		catalog:  cat,
		manager:  manager,
		producer: producer,
	}, nil
}

// EnableSimulation turns on synthetic reading traffic for local runs.
// Params: tick interval; zero leaves simulation off.
// Returns: none. Must be called before Run.
func (s *Service) EnableSimulation(interval time.Duration) {
	s.simInterval = interval
}

// Run starts all configured transports and blocks until shutdown.
// Params: context canceled by signal handling in main.
// Returns: first fatal runtime error or nil on clean shutdown.
func (s *Service) Run(ctx context.Context) error {
	defer s.closeLog()

	serverErr := make(chan error, 1)
	if s.cfg.Ingest.HTTP.Enabled {
		s.httpServer = s.buildHTTPServer()
		go func() {
			s.logger.Info("http server listening", "addr", s.cfg.Ingest.HTTP.Listen)
			if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	if s.cfg.Ingest.NATS.Enabled {
		sub, err := ingest.NewNATSSubscriber(s.cfg.Ingest.NATS, s.manager, s.logger)
		if err != nil {
			s.shutdown()
			return fmt.Errorf("start nats ingest: %w", err)
		}
		s.natsSub = sub
		s.logger.Info("nats ingest subscribed",
			"subject", s.cfg.Ingest.NATS.Subject,
			"group", s.cfg.Ingest.NATS.DeliverGroup)
	}

	if s.cfg.Notify.Queue.Enabled {
		worker, err := notifyqueue.NewNATSWorker(s.cfg.Notify.Queue, s.logger, s.manager.DeliverJob)
		if err != nil {
			s.shutdown()
			return fmt.Errorf("start notify queue worker: %w", err)
		}
		s.worker = worker
		s.logger.Info("notify queue worker started",
			"subject", s.cfg.Notify.Queue.Subject,
			"group", s.cfg.Notify.Queue.DeliverGroup)
	}

	if s.simInterval > 0 {
		simulator := sim.New(s.manager, s.catalog, s.simInterval, clock.RealClock{}, s.logger)
		go func() {
			s.logger.Info("reading simulator started", "interval", s.simInterval)
			_ = simulator.Run(ctx)
		}()
	}

	s.ready.Store(true)
	s.logger.Info("service started", "name", s.cfg.Service.Name, "mode", s.cfg.Service.Mode)

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
		s.shutdown()
		return nil
	case err := <-serverErr:
		s.shutdown()
		return err
	}
}

// shutdown stops transports in reverse start order.
// Params: none.
// Returns: none. Ingest closes before the notify path so in-flight readings
// can still enqueue their notifications.
func (s *Service) shutdown() {
	s.ready.Store(false)

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown failed", "error", err.Error())
		}
		cancel()
	}
	if s.natsSub != nil {
		if err := s.natsSub.Close(); err != nil {
			s.logger.Warn("nats ingest close failed", "error", err.Error())
		}
	}
	if s.worker != nil {
		if err := s.worker.Close(); err != nil {
			s.logger.Warn("notify worker close failed", "error", err.Error())
		}
	}
	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			s.logger.Warn("notify producer close failed", "error", err.Error())
		}
	}
	s.logger.Info("service stopped")
}

// buildHTTPServer assembles the HTTP mux with all endpoint groups.
// Params: none; uses ingest HTTP config.
// Returns: configured server ready to listen.
func (s *Service) buildHTTPServer() *http.Server {
	httpCfg := s.cfg.Ingest.HTTP
	readings := ingest.NewHTTPHandler(s.manager, httpCfg.MaxBodyBytes)
	api := NewAPI(s.manager, s.catalog)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+httpCfg.HealthPath, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET "+httpCfg.ReadyPath, func(writer http.ResponseWriter, _ *http.Request) {
		if !s.ready.Load() {
			writer.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writer.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET "+httpCfg.MetricsPath, promhttp.Handler())

	mux.HandleFunc("POST "+httpCfg.IngestPath, readings.HandleReading)
	mux.HandleFunc("POST "+httpCfg.IngestPath+"/batch", readings.HandleBatch)

	mux.HandleFunc("GET /alerts", api.HandleListAlerts)
	mux.HandleFunc("GET /alerts/{id}", api.HandleGetAlert)
	mux.HandleFunc("POST /alerts/{id}/ack", api.HandleAcknowledge)
	mux.HandleFunc("POST /alerts/{id}/resolve", api.HandleResolve)
	mux.HandleFunc("GET /summary", api.HandleSummary)

	mux.HandleFunc("GET /zones", api.HandleListZones)
	mux.HandleFunc("POST /zones", api.HandleCreateZone)
	mux.HandleFunc("GET /zones/{id}", api.HandleGetZone)
	mux.HandleFunc("PATCH /zones/{id}", api.HandleUpdateZone)
	mux.HandleFunc("POST /zones/{id}/rules", api.HandleAddRule)
	mux.HandleFunc("PATCH /zones/{id}/rules/{rid}", api.HandleUpdateRule)
	mux.HandleFunc("DELETE /zones/{id}/rules/{rid}", api.HandleDeleteRule)

	return &http.Server{
		Addr:              httpCfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// buildSenders assembles enabled notification channel senders.
// Params: notify config section and logger.
// Returns: sender list or channel setup error.
func buildSenders(cfg config.NotifyConfig, logger *slog.Logger) ([]notify.Sender, error) {
	var senders []notify.Sender
	if cfg.Webhook.Enabled {
		senders = append(senders, notify.NewWebhookSender(cfg.Webhook, logger))
	}
	if cfg.Telegram.Enabled {
		sender, err := notify.NewTelegramSender(cfg.Telegram, logger)
		if err != nil {
			return nil, fmt.Errorf("init telegram sender: %w", err)
		}
		senders = append(senders, sender)
	}
	return senders, nil
}
