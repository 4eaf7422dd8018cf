package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quickpick/api/internal/config"
	"github.com/quickpick/api/internal/coordinator"
	"github.com/quickpick/api/internal/expiry"
	"github.com/quickpick/api/internal/handler"
	"github.com/quickpick/api/internal/middleware"
	"github.com/quickpick/api/internal/store"
	"github.com/quickpick/api/internal/ws"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := config.Load()

	// Initialize the backing store. Without Redis the engine still runs
	// on the in-memory store (single process, no durability) so local
	// development does not need extra infrastructure.
	var st store.Store
	redisStore, err := store.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		log.Println("Falling back to in-memory store")
		st = store.NewMemoryStore()
	} else {
		st = redisStore
	}
	defer st.Close()

	// Realtime hub and the coordination engine
	hub := ws.NewHub()
	coord := coordinator.New(st, hub)

	// Expiry listener: one per process. If the store cannot deliver
	// expiry notifications, sessions still lapse by TTL; we just cannot
	// tell the room about it.
	listener := expiry.NewListener(st, func(code, reason string) {
		middleware.RecordSessionExpired()
		coord.HandleExpired(code, reason)
	})
	if err := listener.Start(context.Background()); err != nil {
		log.Printf("Warning: Failed to start expiry listener: %v", err)
	} else {
		defer listener.Stop()
	}

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(coord)
	wsHandler := handler.NewWSHandler(coord, hub)

	// Setup router
	r := gin.Default()
	r.Use(middleware.MetricsMiddleware())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := r.Group("/api")
	{
		api.POST("/sessions", sessionHandler.Create)
		api.GET("/sessions/:code", sessionHandler.Get)
		api.DELETE("/sessions/:code", sessionHandler.Delete)
		api.PUT("/sessions/:code/options", sessionHandler.SetOptions)
		api.GET("/sessions/:code/results", sessionHandler.Results)
	}

	// Realtime channel
	r.GET("/ws/session/:code", wsHandler.HandleWebSocket)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Printf("API server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Printf("Warning: server shutdown: %v", err)
	}
}
