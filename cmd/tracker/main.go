package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gtfs-tracker/internal/config"
	"gtfs-tracker/internal/db"
	"gtfs-tracker/internal/metrics"
	"gtfs-tracker/internal/publisher"
	"gtfs-tracker/internal/sim"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config error")
	}
	setupLogging(cfg.LogLevel)

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sqlDB, currentDBName, err := openCityDB(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Database error")
	}
	defer func() { sqlDB.Close() }()

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.SpeedMultiplier, cfg.PublishInterval)
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
	if err != nil {
		log.Fatal().Err(err).Msg("NATS error")
	}
	defer pub.Close()

	sched, err := db.LoadSchedule(ctx, sqlDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Schedule load error")
	}

	runner := sim.NewRunner(sched, pub, cfg.PublishInterval, cfg.SpeedMultiplier, cfg.Location, mcol)
	runner.Run(ctx)

	// Periodic city DB watcher: pick up fresh imports without a restart.
	var done chan struct{}
	if cfg.City != "" {
		done = make(chan struct{})
		go func() {
			defer close(done)
			ticker := time.NewTicker(cfg.DBCheckInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}

				newDB, newName, swapped := maybeSwitchDB(ctx, cfg, sqlDB, currentDBName, mcol)
				if !swapped {
					continue
				}

				newSched, err := db.LoadSchedule(ctx, newDB)
				if err != nil {
					log.Error().Err(err).Msg("Schedule reload failed, keeping previous dataset")
					newDB.Close()
					continue
				}

				runner.Stop()
				sqlDB.Close()
				sqlDB = newDB
				currentDBName = newName
				sched = newSched
				log.Info().Str("db", currentDBName).Str("city", cfg.City).Msg("Switched database")

				runner = sim.NewRunner(sched, pub, cfg.PublishInterval, cfg.SpeedMultiplier, cfg.Location, mcol)
				runner.Run(ctx)
			}
		}()
	}

	<-ctx.Done()
	runner.Stop()
	if done != nil {
		<-done
	}
	log.Info().Msg("Shutdown complete")
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if os.Getenv("PRETTY_LOGS") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// openCityDB connects to the cluster meta database, resolves the latest
// imported database for CITY (when set), and returns a connection to it.
func openCityDB(ctx context.Context, cfg *config.Config) (*sql.DB, string, error) {
	baseDSN := cfg.DatabaseURL
	rootDSN, err := db.WithDBName(baseDSN, "postgres")
	if err != nil {
		return nil, "", err
	}
	metaDB, err := db.Open(rootDSN)
	if err != nil {
		return nil, "", err
	}
	defer metaDB.Close()
	if err := db.Ping(ctx, metaDB); err != nil {
		return nil, "", err
	}

	finalDSN := baseDSN
	var currentName string
	if cfg.City != "" {
		name, err := db.ResolveLatestImportDBName(ctx, metaDB, cfg.City)
		if err != nil {
			return nil, "", err
		}
		currentName = name
		finalDSN, err = db.WithDBName(baseDSN, name)
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("db", name).Str("city", cfg.City).Msg("Using city database")
	}
	cityDB, err := db.Open(finalDSN)
	if err != nil {
		return nil, "", err
	}
	if err := db.Ping(ctx, cityDB); err != nil {
		cityDB.Close()
		return nil, "", err
	}
	return cityDB, currentName, nil
}

// maybeSwitchDB checks the current connection and the latest import for the
// city. It returns an open connection to the new database when a switch is
// warranted; the caller owns the swap.
func maybeSwitchDB(ctx context.Context, cfg *config.Config, current *sql.DB, currentName string, mcol *metrics.Collector) (*sql.DB, string, bool) {
	needSwitch := false
	if err := db.Ping(ctx, current); err != nil {
		log.Warn().Err(err).Msg("Database ping failed, re-resolving city database")
		if mcol != nil {
			mcol.DBSwitches.WithLabelValues("ping_failure").Inc()
		}
		needSwitch = true
	}

	rootDSN, _ := db.WithDBName(cfg.DatabaseURL, "postgres")
	metaDB, err := db.Open(rootDSN)
	if err != nil {
		log.Error().Err(err).Msg("Meta database open error")
		return nil, "", false
	}
	defer metaDB.Close()
	if err := db.Ping(ctx, metaDB); err != nil {
		log.Error().Err(err).Msg("Meta database ping error")
		return nil, "", false
	}
	newName, err := db.ResolveLatestImportDBName(ctx, metaDB, cfg.City)
	if err != nil {
		log.Error().Err(err).Msg("Resolve latest import error")
		return nil, "", false
	}
	if newName != "" && newName != currentName {
		log.Info().Str("from", currentName).Str("to", newName).Str("city", cfg.City).Msg("Detected updated city database")
		if mcol != nil {
			mcol.DBSwitches.WithLabelValues("update").Inc()
		}
		needSwitch = true
	}
	if !needSwitch {
		return nil, "", false
	}

	targetName := currentName
	if newName != "" {
		targetName = newName
	}
	newDSN, err := db.WithDBName(cfg.DatabaseURL, targetName)
	if err != nil {
		log.Error().Err(err).Msg("Compose DSN error")
		return nil, "", false
	}
	newDB, err := db.Open(newDSN)
	if err != nil {
		log.Error().Err(err).Msg("Open new database error")
		return nil, "", false
	}
	if err := db.Ping(ctx, newDB); err != nil {
		log.Error().Err(err).Msg("Ping new database error")
		newDB.Close()
		return nil, "", false
	}
	return newDB, targetName, true
}

// wrapPublisherMetrics adapts the Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
