package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dairydirect/api/internal/config"
	kafkax "github.com/dairydirect/api/internal/kafka"
	"github.com/dairydirect/api/internal/orders"
	"github.com/dairydirect/api/internal/redisx"
	"github.com/dairydirect/api/internal/tracking"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &tracking.Service{Redis: rdb, ServiceName: "order-tracker"}

	consumer := kafkax.NewConsumer(cfg.KafkaBrokers, "order-tracker", orders.TopicOrderStatusChanged, 4)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down...")
		cancel()
	}()

	log.Printf("tracker consuming %s", orders.TopicOrderStatusChanged)
	if err := consumer.Start(ctx, svc.HandleStatusChanged); err != nil {
		log.Fatalf("consumer: %v", err)
	}
}
