package main

import (
	"log"

	"reelforge-server/config"
	"reelforge-server/models"
	"reelforge-server/routers"
	"reelforge-server/routers/api"
	"reelforge-server/service"
)

func main() {
	config.InitConfig()
	cfg := config.AppConfig

	var store models.Store
	if cfg.MySQL.DSN != "" {
		gormStore, err := models.InitDB(cfg.MySQL.DSN)
		if err != nil {
			log.Fatalf("database init failed: %v", err)
		}
		store = gormStore
	} else {
		log.Println("mysql dsn not set, using in-memory store")
		store = models.NewMemStore()
	}

	objects, err := service.InitMinIO()
	if err != nil {
		log.Fatalf("minio init failed: %v", err)
	}
	capability := service.NewWorkerClient(cfg.Worker.Addr, objects.Upload)

	events := service.NewPublisher()
	dispatcher := service.NewQueueDispatcher(cfg.Redis.Addr, cfg.Redis.Password, cfg.Worker.JobTimeout)
	coordinator := service.NewCoordinator(store, events, capability, dispatcher, cfg.Worker.JobTimeout)

	processor := service.NewProcessor(coordinator, cfg.Redis.Addr, cfg.Redis.Password)
	processor.Start(5)

	handler := api.NewHandler(store, coordinator, events)
	r := routers.InitRouter(handler)
	log.Printf("server starting on port %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
