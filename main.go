package main

import (
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/chazu/usdlive/pkg/config"
	"github.com/chazu/usdlive/pkg/logging"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := config.Load(config.FileName)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	app, err := NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	err = wails.Run(&options.App{
		Title:  "usdlive",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Printf("Error: %v", err)
	}
}
