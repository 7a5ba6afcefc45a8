package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/waddythomson/buwa-crm/internal/communications"
	"github.com/waddythomson/buwa-crm/internal/config"
	"github.com/waddythomson/buwa-crm/internal/contacts"
	"github.com/waddythomson/buwa-crm/internal/conversation"
	"github.com/waddythomson/buwa-crm/internal/db"
	dbsqlc "github.com/waddythomson/buwa-crm/internal/db/sqlc"
	"github.com/waddythomson/buwa-crm/internal/handlers"
	"github.com/waddythomson/buwa-crm/internal/ingest"
	"github.com/waddythomson/buwa-crm/internal/logger"
	"github.com/waddythomson/buwa-crm/internal/metrics"
	"github.com/waddythomson/buwa-crm/internal/notes"
	"github.com/waddythomson/buwa-crm/internal/observer"
	"github.com/waddythomson/buwa-crm/internal/server"
	"github.com/waddythomson/buwa-crm/internal/twilio"
	"github.com/waddythomson/buwa-crm/internal/version"
)

const dbConnectTimeout = 10 * time.Second

func newApp(cfg config.Config) *fx.App {
	return fx.New(
		appOptions(cfg),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	)
}

func appOptions(cfg config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			provideLogger,

			// infrastructure
			provideDBConn,
			provideStore,
			provideQuerier,
			provideRegistry,
			provideMetrics,
			provideObserverSink,
			provideDispatcher,
			provideProvider,

			// domain
			contacts.NewService,
			conversation.NewService,
			provideConversationManager,
			communications.NewService,
			notes.NewService,
			provideIngestService,

			provideServerHandler(provideHealthHandler),
			provideServerHandler(handlers.NewSwaggerHandler),
			provideServerHandler(provideMetricsHandler),
			provideServerHandler(handlers.NewTwilioHandler),
			provideServerHandler(handlers.NewOutboundHandler),
			provideServerHandler(handlers.NewConversationsHandler),
			provideServerHandler(handlers.NewContactsHandler),
			provideServerHandler(handlers.NewNotesHandler),
			provideServerHandler(provideLeadsHandler),

			provideServer,
		),
		fx.Invoke(startServer),
	)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbConnectTimeout)
	defer cancel()

	conn, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideStore(conn *pgxpool.Pool) db.Store {
	return db.NewStore(conn)
}

func provideQuerier(store db.Store) dbsqlc.Querier {
	return store
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

func provideObserverSink(log *slog.Logger, cfg config.Config) (observer.Sink, error) {
	sink, err := observer.NewSink(log, cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("observer sink: %w", err)
	}
	log.Info("observer sink ready", slog.String("kind", sink.Name()))
	return sink, nil
}

// provideDispatcher drains in-flight deliveries on stop. It is constructed
// before the server, so fx stops the server first.
func provideDispatcher(lc fx.Lifecycle, log *slog.Logger, sink observer.Sink, cfg config.Config, m *metrics.Metrics) *observer.Dispatcher {
	d := observer.NewDispatcher(log, sink, cfg.Observer.Timeout(), m)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return d.Close(ctx)
		},
	})
	return d
}

func provideProvider(log *slog.Logger, cfg config.Config) ingest.Provider {
	if cfg.Twilio.AccountSID == "" || cfg.Twilio.AuthToken == "" {
		log.Warn("twilio credentials missing; outbound sends will fail")
	}
	return twilio.NewClient(log, cfg.Twilio, cfg.Server.CallbackURL("/twilio/recording"))
}

type ingestParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	Contacts       *contacts.Service
	Conversations  *conversation.Service
	Communications *communications.Service
	Notes          *notes.Service
	Provider       ingest.Provider
	Dispatcher     *observer.Dispatcher
	Metrics        *metrics.Metrics
}

func provideIngestService(p ingestParams) *ingest.Service {
	return ingest.NewService(p.Logger, ingest.Deps{
		Contacts:       p.Contacts,
		Conversations:  p.Conversations,
		Communications: p.Communications,
		Notes:          p.Notes,
		Provider:       p.Provider,
		Notifier:       p.Dispatcher,
		Metrics:        p.Metrics,
	}, ingest.Options{
		OutboundCallURL: p.Config.Server.CallbackURL("/twilio/outbound-call"),
		WelcomeMessage:  p.Config.Leads.WelcomeMessage,
		DefaultSource:   p.Config.Leads.DefaultSource,
	})
}

func provideConversationManager(svc *conversation.Service) conversation.Manager {
	return svc
}

func provideHealthHandler(log *slog.Logger, conn *pgxpool.Pool) *handlers.PingHandler {
	return handlers.NewPingHandler(log, conn)
}

func provideMetricsHandler(reg *prometheus.Registry) *handlers.MetricsHandler {
	return handlers.NewMetricsHandler(reg)
}

func provideLeadsHandler(log *slog.Logger, svc *ingest.Service, cfg config.Config) *handlers.LeadsHandler {
	return handlers.NewLeadsHandler(log, svc, cfg.Leads)
}

type serverParams struct {
	fx.In

	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.Handlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	logger.Info("starting BuWa CRM", slog.String("version", version.GetInfo()))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
