// cmd/api/main.go
// Main entry point for the application
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/wandermatch/wandermatch-backend/internal/auth"
	"github.com/wandermatch/wandermatch-backend/internal/common/database"
	"github.com/wandermatch/wandermatch-backend/internal/config"
	"github.com/wandermatch/wandermatch-backend/internal/matching"
	"github.com/wandermatch/wandermatch-backend/internal/realtime"
)

var startTime = time.Now()

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("Starting WanderMatch Match Engine API")

	// 1. Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (%v), using environment variables", err)
	}

	// 2. Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: ", err)
	}

	// 3. Connect to PostgreSQL
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL: ", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// 4. Connect to Redis (optional; presence degrades to local-only)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("Redis unavailable (%v), continuing without shared presence", err)
		} else {
			redisClient = client
			defer redisClient.Close()
			log.Println("Connected to Redis")
		}
	}

	// 5. Run database migrations
	if err := runMigrations(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}
	log.Println("Database migrations completed")

	// 6. Initialize the real-time channel
	var presence *realtime.Presence
	if redisClient != nil && cfg.EnableCrossInstanceNotify {
		presence = realtime.NewPresence(redisClient, cfg.PresenceTTL)
		log.Println("Cross-instance presence enabled")
	}

	hub := realtime.NewHub(presence)
	go hub.Run()
	log.Println("WebSocket hub started")

	// 7. Initialize the Match Engine
	matchingRepo := matching.NewPostgresRepository(db)
	strategies := matching.NewStrategies(cfg.NearbyRadiusKm)
	matchingService := matching.NewService(matchingRepo, hub, strategies, cfg.DefaultPageSize, cfg.MaxPageSize)
	matchingHandler := matching.NewHandler(matchingService)
	log.Println("Match engine initialized")

	// 8. Setup routes
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)
	matching.RegisterRoutes(router, matchingHandler, authMiddleware)

	// Real-time channel; the join is the authenticated upgrade itself
	router.Handle("/ws", authMiddleware.Authenticate(hub.ServeWS(cfg.NotifyBufferSize))).Methods("GET")

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	// 9. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s (env: %s)", srv.Addr, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received...")

	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exited gracefully")
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Middleware functions

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log.Printf("%s %s [%d] %v", r.Method, r.RequestURI, wrapped.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		// Users table; owned by the profile subsystem, consumed read-mostly
		// here for heuristic filtering
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username VARCHAR(100) UNIQUE NOT NULL,
            display_name VARCHAR(100) NOT NULL,
            photo_url TEXT,
            bio TEXT,
            city VARCHAR(100),
            country VARCHAR(100),
            location_lat DOUBLE PRECISION,
            location_lng DOUBLE PRECISION,
            travel_mode VARCHAR(50) DEFAULT '',
            interests TEXT[] DEFAULT '{}',
            languages TEXT[] DEFAULT '{}',
            travel_styles TEXT[] DEFAULT '{}',
            culinary_tags TEXT[] DEFAULT '{}',
            is_active BOOLEAN DEFAULT TRUE,
            is_public BOOLEAN DEFAULT TRUE,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		// Trips table; owned by the itinerary subsystem
		`CREATE TABLE IF NOT EXISTS trips (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            origin VARCHAR(255) NOT NULL DEFAULT '',
            destination VARCHAR(255) NOT NULL DEFAULT '',
            origin_lat DOUBLE PRECISION DEFAULT 0,
            origin_lng DOUBLE PRECISION DEFAULT 0,
            dest_lat DOUBLE PRECISION DEFAULT 0,
            dest_lng DOUBLE PRECISION DEFAULT 0,
            travel_mode VARCHAR(50) DEFAULT '',
            start_date TIMESTAMP,
            end_date TIMESTAMP,
            route JSONB,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		// Swipes: single-shot per ordered pair, enforced by the constraint
		`CREATE TABLE IF NOT EXISTS swipes (
            id SERIAL PRIMARY KEY,
            actor_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            target_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            action VARCHAR(20) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT unique_swipe_pair UNIQUE(actor_id, target_id),
            CONSTRAINT no_self_swipe CHECK (actor_id <> target_id)
        )`,

		// Matches: canonical pair key (user1_id < user2_id); the uniqueness
		// constraint is the sole concurrency control for match creation
		`CREATE TABLE IF NOT EXISTS matches (
            id SERIAL PRIMARY KEY,
            user1_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            user2_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            matched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT unique_match_pair UNIQUE(user1_id, user2_id),
            CONSTRAINT canonical_match_pair CHECK (user1_id < user2_id)
        )`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_swipes_target ON swipes(target_id, actor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_user1 ON matches(user1_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_user2 ON matches(user2_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_user ON trips(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_destination ON trips(destination)`,
		`CREATE INDEX IF NOT EXISTS idx_users_travel_mode ON users(travel_mode)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
