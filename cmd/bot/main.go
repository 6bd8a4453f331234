package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/tq4m/otc-signal-bot/internal/app"
	"github.com/tq4m/otc-signal-bot/internal/config"
	"github.com/tq4m/otc-signal-bot/internal/repository"
	"github.com/tq4m/otc-signal-bot/internal/service"
)

func main() {
	// A local .env is optional; deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	repo := repository.NewMemorySubscriptionRepository()
	subs := service.NewSubscriptionService(repo)

	application := app.New(cfg, subs)
	if err := application.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
