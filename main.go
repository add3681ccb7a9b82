package main

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/internal/app"
)

const defaultConfigPath = "./config/application.yaml"

func configureLogging(level, format string) error {
	log.SetLevel(log.InfoLevel)
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return err
		}
		log.SetLevel(parsed)
	}
	if strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	}
	return nil
}

func main() {
	if err := configureLogging(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")); err != nil {
		log.Fatalf("invalid LOG_LEVEL: %v", err)
	}

	configPath := os.Getenv("TIFFIN_CONFIG_FILE")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	server, err := app.NewApplication(configPath)
	if err != nil {
		log.Fatalf("could not start tiffin tracker: %v", err)
	}
	if err := server.Run(); err != nil {
		log.Fatal(err)
	}
}
