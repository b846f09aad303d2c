package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exflikt/murchace/internal/adapter/amqp"
	httpAdapter "github.com/exflikt/murchace/internal/adapter/http"
	"github.com/exflikt/murchace/internal/adapter/logger"
	"github.com/exflikt/murchace/internal/adapter/postgres"
	"github.com/exflikt/murchace/internal/app/live"
	"github.com/exflikt/murchace/internal/app/orders"
	"github.com/exflikt/murchace/internal/app/register"
	"github.com/exflikt/murchace/internal/app/stat"
	"github.com/exflikt/murchace/internal/broadcast"
	"github.com/exflikt/murchace/internal/config"
	"github.com/exflikt/murchace/internal/domain"
	"github.com/exflikt/murchace/internal/interfaces"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides configuration)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	ctx := context.Background()
	lgr := logger.New("murchace")

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	lgr.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.Database).
		Msg("connected to PostgreSQL")

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	productRepo := postgres.NewProductRepository(db)
	if cfg.Products.CSVPath != "" {
		if err := productRepo.SeedIfEmpty(ctx, cfg.Products.CSVPath); err != nil {
			log.Fatalf("Failed to seed product catalogue: %v", err)
		}
	}

	orderRepo, err := postgres.NewOrderRepository(ctx, db)
	if err != nil {
		log.Fatalf("Failed to initialize order repository: %v", err)
	}

	// The event mirror is optional; without a broker the in-process
	// broadcast alone drives the live views.
	var events interfaces.EventPublisher
	if cfg.RabbitMQ.Enabled {
		mqConn, err := amqp.Connect(cfg.RabbitMQ)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer mqConn.Close()
		events = amqp.NewPublisher(mqConn, cfg.RabbitMQ.Exchange)
		lgr.Info().Str("host", cfg.RabbitMQ.Host).Msg("connected to RabbitMQ")
	}

	flags := broadcast.New(domain.FlagOriginal)
	orderService := orders.NewService(orderRepo, flags, events, lgr)
	liveService := live.NewService(db)
	registerService := register.NewService(register.NewSessions(), productRepo, orderService, lgr)
	statService := stat.NewService(db)

	e := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		Register: registerService,
		Orders:   orderService,
		Live:     liveService,
		Products: productRepo,
		Stat:     statService,
		Logger:   lgr,
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     e,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE streams hold their connections open for
		// as long as a display stays on.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error().Err(err).Msg("shutdown error")
		}
	}()

	lgr.Info().Int("port", cfg.Server.Port).Msg("murchace started")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error().Err(err).Msg("server error")
	}

	// End-of-day dump so the order log survives the database being wiped
	// between events.
	if cfg.Stat.CSVOutputPath != "" {
		exportCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := statService.ExportOrdersFile(exportCtx, cfg.Stat.CSVOutputPath); err != nil {
			lgr.Error().Err(err).Msg("failed to export order log")
		} else {
			lgr.Info().Str("path", cfg.Stat.CSVOutputPath).Msg("order log exported")
		}
	}
}
