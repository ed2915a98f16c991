package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/senyabanana/procurement-service/internal/db"
	"github.com/senyabanana/procurement-service/internal/handlers"
	"github.com/senyabanana/procurement-service/internal/logger"
	"github.com/senyabanana/procurement-service/internal/metrics"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/router"
	"github.com/senyabanana/procurement-service/internal/router/config"
	"github.com/senyabanana/procurement-service/internal/services"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// stores объединяет репозитории выбранного хранилища.
type stores struct {
	processes repository.ProcessRepository
	contracts repository.ContractRepository
	audit     repository.AuditRepository
	actors    repository.ActorRegistry
	close     func()
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logg := logger.New(logger.Options{
		ServiceName: "procurement-service",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})
	log.Logger = logg.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("cannot initialize storage")
	}
	defer st.close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	processService := services.NewProcessService(st.processes, recorder)
	awardService := services.NewAwardService(st.processes, recorder)
	ledgerService := services.NewLedgerService(st.contracts, st.processes, recorder)
	auditService := services.NewAuditService(st.audit)

	processHandler := handlers.NewProcessHandler(processService, awardService, auditService, st.actors, logg, cfg.RequestTimeout)
	contractHandler := handlers.NewContractHandler(ledgerService, auditService, st.actors, logg, cfg.RequestTimeout)

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router.InitRoutes(processHandler, contractHandler, logg, registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ServerAddress).Str("driver", cfg.StorageDriver).Msg("server is listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.StorageDriver == config.StorageMemory {
		actors, err := cfg.SeedActors()
		if err != nil {
			return nil, err
		}
		store := repository.NewMemoryStore(actors...)
		log.Warn().Int("actors", len(actors)).Msg("using in-memory storage, data is lost on restart")
		return &stores{processes: store, contracts: store, audit: store, actors: store, close: func() {}}, nil
	}

	conn, err := db.ConnString(cfg)
	if err != nil {
		return nil, err
	}
	if err := runDBMigration(cfg.MigrationURL, conn); err != nil {
		return nil, err
	}

	dbPool, err := db.InitDb(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &stores{
		processes: repository.NewPostgresProcessRepository(dbPool),
		contracts: repository.NewPostgresContractRepository(dbPool),
		audit:     repository.NewPostgresAuditRepository(dbPool),
		actors:    repository.NewPostgresActorRegistry(dbPool),
		close:     dbPool.Close,
	}, nil
}

func runDBMigration(migrationURL string, dbSource string) error {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		return err
	}
	defer migration.Close()

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Info().Msg("db migrated successfully")
	return nil
}
