// cmd/quaketweetd/main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"

	"essg/internal/adapter/storage"
	"essg/internal/config"
	domaintrigger "essg/internal/domain/trigger"
	"essg/internal/events"
	"essg/internal/server"
	"essg/internal/service/alertsvc"
	"essg/internal/service/geocoder"
	"essg/internal/service/trigger"
)

func main() {
	configPath := flag.String("config", "/etc/quaketweetd/quaketweetd.ini", "path to the INI configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := log.New(os.Stdout, "quaketweetd: ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()

	refTables, err := storage.LoadReferenceTables(ctx, db)
	if err != nil {
		log.Fatalf("failed to load reference tables: %v", err)
	}

	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		natsConn, err = initNATS(cfg.NATS, logger)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		defer natsConn.Close()
	}
	publisher := events.New(natsConn)

	tweetStore := storage.NewTweetStore(db)

	geoClient := geocoder.New(geocoder.Config{
		ClientID:     cfg.ESRI.ClientID,
		ClientSecret: cfg.ESRI.ClientSecret,
		TokenURL:     cfg.ESRI.TokenURL,
		GeocodeURL:   cfg.ESRI.GeocodeURL,
		ReverseURL:   cfg.ESRI.ReverseURL,
	}, refTables)

	assembler := alertsvc.New(tweetStore, geoClient, alertsvc.Config{
		STALength:   cfg.Setup.STALength,
		MaxWords:    cfg.Setup.MaxWords,
		FilterTerms: cfg.Setup.FilterTerms,
		OutputDir:   alertOutputDir(cfg.Logging.File),
		Mail:        cfg.Mail,
	}, logger)

	detector := trigger.New(trigger.Config{
		BinLength:          cfg.Setup.BinLength,
		LTALength:          cfg.Setup.LTALength,
		STALength:          cfg.Setup.STALength,
		M:                  cfg.Setup.M,
		B:                  cfg.Setup.B,
		DetectionThreshold: cfg.Setup.DetectionThreshold,
		TriggerReset:       cfg.Setup.TriggerReset,
		BinLoadDelay:       cfg.Setup.BinLoadDelay,
	}, tweetStore, logger, firstBinStart(cfg.Setup.BinLength))

	runner := trigger.NewRunner(detector, cfg.Setup.BinLength, func(t domaintrigger.Trigger) {
		handleTrigger(ctx, t, assembler, publisher, logger)
	}, logger)

	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		runner.Run(ctx)
	}()

	var opsServer *server.Server
	if cfg.Ops.Enabled {
		opsServer = server.NewServer(server.Config{
			Host:         cfg.Ops.Host,
			Port:         cfg.Ops.Port,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}, db)

		go func() {
			logger.Printf("ops server listening on %s:%d", cfg.Ops.Host, cfg.Ops.Port)
			if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("ops server error: %v", err)
			}
		}()
	}

	<-shutdown
	logger.Println("shutdown signal received")
	cancel()

	<-runnerDone

	if opsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("ops server shutdown error: %v", err)
		}
		shutdownCancel()
	}

	logger.Println("shutdown complete")
}

// handleTrigger is invoked synchronously by the runner whenever the
// detector fires. It assembles and dispatches the alert, then announces
// both the trigger and the alert on the event bus.
func handleTrigger(ctx context.Context, t domaintrigger.Trigger, assembler *alertsvc.Assembler, publisher *events.Publisher, logger *log.Logger) {
	logger.Printf("trigger fired at %s (sta=%d lta=%d ratio=%.3f)", t.Time, t.STA, t.LTA, t.Ratio)

	if err := publisher.TriggerFired(t); err != nil {
		logger.Printf("WARN failed to publish trigger event: %v", err)
	}

	result, err := assembler.Assemble(ctx, t.Time)
	if err != nil {
		logger.Printf("ERROR failed to assemble alert for trigger at %s: %v", t.Time, err)
		return
	}

	if err := publisher.AlertSent(t.Time, result.Location, result.Path); err != nil {
		logger.Printf("WARN failed to publish alert event: %v", err)
	}
}

// firstBinStart aligns the detector's first bin boundary to a whole
// multiple of binLength counted from Go's zero time (time.Truncate's
// reference point; for any binLength that divides a day this is also a
// multiple since the Unix epoch), so bin boundaries are stable across
// restarts.
func firstBinStart(binLength time.Duration) time.Time {
	now := time.Now().UTC()
	return now.Truncate(binLength)
}

// alertOutputDir derives the directory alert files are written to from the
// configured log file path, keeping both under the same operational
// directory.
func alertOutputDir(logFile string) string {
	if dir := filepath.Dir(logFile); dir != "." && dir != "/" {
		return dir
	}
	return "/var/log/quaketweetd"
}

func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

func initNATS(cfg config.NATSConfig, logger *log.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
