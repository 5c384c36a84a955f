package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/you/campus-resource-hub/internal/repository"
	"github.com/you/campus-resource-hub/internal/service"
	transport "github.com/you/campus-resource-hub/internal/transport/http"
	"github.com/you/campus-resource-hub/pkg/auth"
	"github.com/you/campus-resource-hub/pkg/clock"
	"github.com/you/campus-resource-hub/pkg/config"
	"github.com/you/campus-resource-hub/pkg/db"
	"github.com/you/campus-resource-hub/pkg/mq"
	"github.com/you/campus-resource-hub/pkg/obs"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := obs.InitTracer(ctx, "campus-hub-api")
	if err != nil {
		log.Warn("tracer init failed; continuing without traces", zap.Error(err))
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	gdb, err := db.Open(cfg.PGHubDSN)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}

	bookingRepo := repository.NewBookingRepo(gdb)
	resourceRepo := repository.NewResourceRepo(gdb)
	messageRepo := repository.NewMessageRepo(gdb)
	auditRepo := repository.NewAuditRepo(gdb)
	for _, m := range []func() error{
		resourceRepo.Migrate, bookingRepo.Migrate, messageRepo.Migrate, auditRepo.Migrate,
	} {
		if err := m(); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	bookingPub, err := mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange)
	if err != nil {
		log.Fatal("booking publisher", zap.Error(err))
	}
	defer bookingPub.Close()
	messagingPub, err := mq.NewPublisher(cfg.RabbitURL, cfg.MessagingExchange)
	if err != nil {
		log.Fatal("messaging publisher", zap.Error(err))
	}
	defer messagingPub.Close()

	clk := clock.System()
	metrics := obs.NewMetrics(prometheus.DefaultRegisterer)

	svcs := transport.Services{
		Bookings:  service.NewBookingSvc(bookingRepo, resourceRepo, auditRepo, bookingPub, clk, metrics),
		Messaging: service.NewMessagingSvc(messageRepo, bookingRepo, resourceRepo, messagingPub, clk, metrics),
		Resources: service.NewResourceSvc(resourceRepo),
	}

	tm := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTExpireMin)*time.Minute)
	router := transport.NewRouter(tm, svcs)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		log.Info("api listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("serve", zap.Error(err))
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("api stopped")
}
