package main

import (
	"context"
	"time"

	"github.com/kbukum/rtdbkit/eventsource"
	"github.com/kbukum/rtdbkit/httpclient"
	"github.com/kbukum/rtdbkit/logger"
	"github.com/kbukum/rtdbkit/observability"
	"github.com/kbukum/rtdbkit/rtdb"
)

const shutdownTimeout = 5 * time.Second

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg      *Config
	log      *logger.Logger
	db       *rtdb.Client
	shutdown observability.ShutdownFunc
}

func newApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	logger.Init(&cfg.Logging)
	logger.RegisterDefaults("cli", "rtdb", "eventsource")
	log := logger.Get("cli")

	shutdown, err := observability.Init(ctx, cfg.Observability)
	if err != nil {
		return nil, err
	}

	meter := observability.Meter(serviceName)
	requestMetrics, err := observability.NewRequestMetrics(meter)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	streamMetrics, err := observability.NewStreamMetrics(meter)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	db, err := rtdb.NewFromConfig(cfg.RTDB,
		rtdb.WithLogger(logger.Get("rtdb")),
		rtdb.WithHTTPOptions(httpclient.WithRequestMetrics(requestMetrics)),
		rtdb.WithStreamOptions(
			eventsource.WithMetrics(streamMetrics),
			eventsource.WithLogger(logger.Get("eventsource")),
		),
	)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	log.Debug("client ready", logger.Fields(logger.FieldEndpoint, cfg.RTDB.URL))
	return &app{cfg: cfg, log: log, db: db, shutdown: shutdown}, nil
}

// close flushes telemetry. It ignores the command context, which may
// already be cancelled.
func (a *app) close() {
	_ = a.db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.log.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
	}
}
