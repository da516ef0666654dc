package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/industrialgate/sitepass/internal/config"
	"github.com/industrialgate/sitepass/internal/db"
	"github.com/industrialgate/sitepass/internal/httpapi"
	"github.com/industrialgate/sitepass/internal/sitepass/attach"
	"github.com/industrialgate/sitepass/internal/sitepass/service"
	"github.com/industrialgate/sitepass/internal/sitepass/store"
	"github.com/industrialgate/sitepass/internal/sitepass/store/sqlite"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "sitepass-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn, db.SeedDevOptions{}); err != nil {
			logger.Fatalf("seed dev: %v", err)
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	// Stores
	requestStore := sqlite.NewRequestStore(conn, writer)
	personnelStore := sqlite.NewPersonnelAuthorizationStore(conn, writer)
	vehicleStore := sqlite.NewVehicleAuthorizationStore(conn, writer)
	movementStore := sqlite.NewMovementStore(conn, writer)
	gateStore := sqlite.NewGateStore(conn, writer)

	if cfg.GatesFile != "" {
		gates, err := config.LoadGates(cfg.GatesFile)
		if err != nil {
			logger.Fatalf("load gates: %v", err)
		}
		for _, g := range gates {
			rec := store.GateRecord{GateID: g.ID, NameEN: g.NameEN, NameAR: g.NameAR}
			if err := gateStore.Put(ctx, rec); err != nil {
				logger.Fatalf("seed gate %s: %v", g.ID, err)
			}
		}
		logger.Printf("loaded %d gates from %s", len(gates), cfg.GatesFile)
	}

	// Attachment Store: external service when configured, in-memory in dev.
	var attachments attach.Store
	if cfg.AttachmentBaseURL != "" {
		attachments = attach.NewHTTPStore(cfg.AttachmentBaseURL)
	} else {
		logger.Printf("no attachment service configured, using in-memory store")
		attachments = attach.NewMemStore()
	}

	// Services
	feed := service.NewFeed()
	requestSvc := service.NewRequestService(requestStore, personnelStore, vehicleStore, attachments, feed, logger)
	requestSvc.SetUploadTimeout(time.Duration(cfg.UploadTimeoutSeconds) * time.Second)
	verifySvc := service.NewVerificationService(personnelStore, vehicleStore, logger)
	occupancySvc := service.NewOccupancyService(movementStore, gateStore, verifySvc, feed, logger)

	sweeper := service.NewUploadSweeper(requestStore, feed, service.SweeperConfig{
		StaleAfterHours: cfg.UploadStaleAfterHours,
		IntervalMinutes: cfg.SweepIntervalMinutes,
	}, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:              logger,
		Addr:                cfg.HTTPAddr,
		RequestService:      requestSvc,
		VerificationService: verifySvc,
		OccupancyService:    occupancySvc,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
