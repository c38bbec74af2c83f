package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fazecat/daytrader/Internal/database"
	"github.com/fazecat/daytrader/Internal/utils/config"
	"github.com/fazecat/daytrader/cmd/api/internal"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../../.env")

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	store, err := database.Open(env)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	jwtManager := internal.NewJWTManager(env.JWTSecretKey)

	apiServer := &internal.API{
		Store:      store,
		JWTManager: jwtManager,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(internal.CorsMiddleware)

	r.Get("/health", apiServer.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Post("/api/token", apiServer.HandleGenerateToken)

	// Authenticated reporting routes
	r.Group(func(r chi.Router) {
		r.Use(internal.JWTAuthMiddleware(jwtManager))
		r.Get("/api/trades", apiServer.HandleGetTrades)
		r.Get("/api/performance", apiServer.HandlePerformance)
	})

	log.Printf("Starting API server on %s\n", env.APIListenAddr)
	if err := http.ListenAndServe(env.APIListenAddr, r); err != nil {
		log.Fatal(err)
	}
}
