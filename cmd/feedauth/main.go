package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/you/feedauth/internal/app"
	"github.com/you/feedauth/internal/config"
	"github.com/you/feedauth/internal/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(logging.Config{
		Service: "feedauth",
		Env:     cfg.LogEnv,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	if err := app.Run(cfg, logger); err != nil {
		logger.Error("app exited", "error", err)
		os.Exit(1)
	}
}
