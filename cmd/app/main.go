package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/MartonCsizmazia/order-processing-system/internal/app"
	"github.com/MartonCsizmazia/order-processing-system/internal/config"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	path := os.Getenv("CONFIG_PATH")

	cfg := config.MustLoad(path)

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}

	if err = a.Run(); err != nil {
		log.Fatalf("failed to run application: %v", err)
	}
}
