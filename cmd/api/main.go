package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dairydirect/api/internal/config"
	"github.com/dairydirect/api/internal/httpx"
	kafkax "github.com/dairydirect/api/internal/kafka"
	"github.com/dairydirect/api/internal/orders"
	"github.com/dairydirect/api/internal/payments"
	"github.com/dairydirect/api/internal/postgres"
	"github.com/dairydirect/api/internal/redisx"
	"github.com/dairydirect/api/internal/repository"
	"github.com/dairydirect/api/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	loc, err := cfg.DayLocation()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start()

	// Repos
	userRepo := repository.NewUser(db)
	farmRepo := repository.NewFarm(db)
	productRepo := repository.NewProduct(db)
	orderRepo := repository.NewOrder(db)
	paymentRepo := repository.NewPayment(db)

	// Services
	tokens := users.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	userSvc := users.NewService(userRepo, tokens)
	orderSvc := orders.NewService(orderRepo, farmRepo, productRepo, prod, loc, cfg.ServiceName)
	gateway := payments.NewMoyasarClient(cfg.MoyasarBaseURL, cfg.MoyasarSecretKey)
	paymentSvc := payments.NewService(paymentRepo, orderSvc, gateway, rdb, prod, cfg.PaymentCallbackURL, cfg.ServiceName)

	server := &httpx.Server{
		Users:    userSvc,
		Orders:   orderSvc,
		Payments: paymentSvc,
		Farms:    farmRepo,
		Products: productRepo,
		Redis:    rdb,
		Currency: cfg.PaymentCurrency,
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Router()}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // close inbox, flush buffered events
	prod.WaitClosed()
}
