package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"citation/internal/allocator"
	allocpostgres "citation/internal/allocator/store/postgres"
	allocredis "citation/internal/allocator/store/redis"
	audithandler "citation/internal/audit/handler"
	auditservice "citation/internal/audit/service"
	auditpostgres "citation/internal/audit/store/postgres"
	driverhandler "citation/internal/driver/handler"
	driverservice "citation/internal/driver/service"
	driverpostgres "citation/internal/driver/store/postgres"
	"citation/internal/jwttoken"
	paymenthandler "citation/internal/payment/handler"
	paymentservice "citation/internal/payment/service"
	paymentpostgres "citation/internal/payment/store/postgres"
	"citation/internal/platform/config"
	"citation/internal/platform/httpserver"
	"citation/internal/platform/logger"
	"citation/internal/platform/metrics"
	"citation/internal/platform/postgres"
	platformredis "citation/internal/platform/redis"
	reconcilehandler "citation/internal/reconcile/handler"
	reconcileservice "citation/internal/reconcile/service"
	"citation/internal/ticket/cache"
	tickethandler "citation/internal/ticket/handler"
	ticketservice "citation/internal/ticket/service"
	ticketpostgres "citation/internal/ticket/store/postgres"
	httptransport "citation/internal/transport/http"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("failed to open postgres", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	auditStore := auditpostgres.New(db)
	auditService := auditservice.NewService(auditStore)

	var allocStore allocator.Store
	switch {
	case cfg.Allocator == config.AllocatorRedis && redisClient != nil:
		allocStore = allocredis.New(redisClient)
	default:
		allocStore = allocpostgres.New(db)
	}
	allocService := allocator.NewService(allocStore)

	driverStore := driverpostgres.New(db, auditStore)
	driverService := driverservice.NewService(driverStore)

	var scheduleCache ticketservice.ScheduleCache
	if redisClient != nil {
		scheduleCache = cache.NewRedis(redisClient, config.ScheduleCacheTTL, log)
	} else {
		scheduleCache = cache.NewMemory(config.ScheduleCacheTTL)
	}
	ticketStore := ticketpostgres.New(db, auditStore)
	ticketService := ticketservice.NewService(ticketStore, driverService, scheduleCache, m)

	paymentStore := paymentpostgres.New(db, auditStore)
	paymentService := paymentservice.NewService(paymentStore, m, log)

	reconcileService := reconcileservice.NewService(paymentService, driverService, cfg.CASRetries, m, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "citation")
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	handlers := httptransport.Handlers{
		Ticket:    tickethandler.New(ticketService, allocService, log),
		Driver:    driverhandler.New(driverService, ticketService, paymentService, log),
		Payment:   paymenthandler.New(paymentService, log),
		Reconcile: reconcilehandler.New(reconcileService, log),
		Audit:     audithandler.New(auditService, log),
	}

	health := func() map[string]bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		deps := map[string]bool{
			"postgres": db.PingContext(pingCtx) == nil,
		}
		if redisClient != nil {
			deps["redis"] = redisClient.Healthy(pingCtx)
		}
		return deps
	}

	router := httptransport.NewRouter(handlers, validator, m, health, log)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting citation core", "addr", cfg.Addr, "allocator", string(cfg.Allocator))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}
