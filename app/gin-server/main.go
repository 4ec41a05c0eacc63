package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/placementlab/gdroom/internal/api/handlers"
	"github.com/placementlab/gdroom/internal/api/middleware"
	"github.com/placementlab/gdroom/internal/api/routes"
	"github.com/placementlab/gdroom/internal/config"
	"github.com/placementlab/gdroom/internal/gateway"
	"github.com/placementlab/gdroom/internal/logger"
	"github.com/placementlab/gdroom/internal/providers/llm"
	"github.com/placementlab/gdroom/internal/services"
	"github.com/placementlab/gdroom/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	lg := logger.New()

	var provider llm.Provider
	switch cfg.LLMProvider {
	case config.ProviderVertex:
		provider, err = llm.NewVertexGemini(context.Background(), cfg.VertexProjectID, cfg.VertexLocation, cfg.VertexModel)
		if err != nil {
			log.Fatalf("vertex init error: %v", err)
		}
	default:
		provider = llm.NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.OpenRouterModel, cfg.OpenRouterTimeout)
	}
	defer func() {
		_ = provider.Close()
	}()

	gw := gateway.New(provider, lg)
	sessions := store.New()
	svc := services.NewDiscussionService(sessions, gw, lg)

	r := gin.New()
	r.Use(middleware.RequestLogger(lg), gin.Recovery())
	routes.RegisterRoutes(r, routes.Deps{
		Discussion: handlers.NewDiscussionHandler(svc),
	})

	lg.WithField("port", cfg.Port).WithField("llm_provider", cfg.LLMProvider).Info("gd room listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
