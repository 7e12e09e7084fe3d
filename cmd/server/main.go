package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gatehouse-app/backend/docs"
	"github.com/gatehouse-app/backend/internal/attendance"
	"github.com/gatehouse-app/backend/internal/audit"
	"github.com/gatehouse-app/backend/internal/auth"
	"github.com/gatehouse-app/backend/internal/config"
	"github.com/gatehouse-app/backend/internal/db"
	"github.com/gatehouse-app/backend/internal/events"
	"github.com/gatehouse-app/backend/internal/metrics"
	mw "github.com/gatehouse-app/backend/internal/middleware"
	"github.com/gatehouse-app/backend/internal/notifications"
	"github.com/gatehouse-app/backend/internal/sse"
	"github.com/gatehouse-app/backend/internal/visitors"
	"github.com/gatehouse-app/backend/internal/ws"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Database
	ctx := context.Background()
	database, err := db.New(ctx, cfg.DatabaseURL, poolSize(cfg))
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()
	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// JWT & Auth
	jwtService := auth.NewJWTService(cfg.JWTSecret,
		envDuration(cfg.AccessTokenMinutes, time.Minute),
		envDuration(cfg.RefreshTokenHours, time.Hour))
	authService := auth.NewAuthService(database, jwtService)
	authHandlers := auth.NewHandlers(authService)

	// Metrics
	m := metrics.New()

	// Broadcast hub and its transports
	hub := sse.NewHub()
	keepAlive := envDuration(cfg.KeepAliveSeconds, time.Second)
	sseHandler := sse.NewHandler(hub, jwtService, keepAlive)
	wsHandler := ws.NewHandler(hub, jwtService, keepAlive, strings.Split(cfg.AllowedOrigins, ","))

	// Cross-node announcement broker
	broker, err := events.NewBroker(cfg)
	if err != nil {
		log.Fatalf("broker setup failed: %v", err)
	}
	defer broker.Close()

	// Notification store over the serialized log
	notifStore := notifications.NewStore(notifications.NewPostgresBlobStore(database.Pool), broker)
	notifHandlers := notifications.NewHandlers(notifStore, m)

	// An in-process subscription pushes every notification created on any
	// node out through this node's hub.
	unsubscribe := notifStore.Subscribe(func(n notifications.Notification) {
		res := hub.Broadcast("notification-created")
		m.ObserveBroadcast(res.Delivered, res.Evicted, res.Skipped)
	})
	defer unsubscribe()

	// Visitor registration and attendance
	visitorStore := visitors.NewStore(database.Pool)
	visitorHandlers := visitors.NewHandlers(visitorStore)

	attendanceStore := attendance.NewStore(database.Pool)
	notifier := attendance.NewNotifier(hub, notifStore, m, broker)
	detach, err := notifier.Listen()
	if err != nil {
		log.Fatalf("attendance listener setup failed: %v", err)
	}
	defer detach()
	attendanceHandlers := attendance.NewHandlers(attendanceStore, notifier)

	// Router
	r := mux.NewRouter()

	// Rate limiting: 100 req/s per IP with burst of 200
	r.Use(mw.RateLimitMiddleware(100, 200))

	// Health check and metrics (no auth)
	r.HandleFunc("/healthz", healthzHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API documentation (no auth)
	docs.RegisterRoutes(r)

	// Auth routes, with a tighter limit on credential endpoints
	authRouter := r.PathPrefix("").Subrouter()
	authRouter.Use(mw.StrictRateLimitMiddleware(5, 10))
	authHandlers.RegisterRoutes(authRouter)

	// Audit trail for write operations
	auditStore := audit.NewStore(database.Pool)
	auditHandlers := audit.NewHandlers(auditStore)

	// Kiosk routes (the lobby terminal has no account)
	kiosk := r.PathPrefix("").Subrouter()
	kiosk.Use(audit.Middleware(auditStore))
	visitorHandlers.RegisterPublicRoutes(kiosk)
	attendanceHandlers.RegisterPublicRoutes(kiosk)

	// Protected routes
	protected := r.PathPrefix("").Subrouter()
	protected.Use(mw.AuthMiddleware(jwtService))
	protected.Use(audit.Middleware(auditStore))

	authHandlers.RegisterProtectedRoutes(protected)
	visitorHandlers.RegisterRoutes(protected)
	attendanceHandlers.RegisterRoutes(protected)
	notifHandlers.RegisterRoutes(protected)
	auditHandlers.RegisterRoutes(protected)

	// Streaming transports (auth handled inside the handlers, because
	// EventSource and browser WebSockets cannot set headers)
	sseHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	// Live-stream gauge
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			m.SetLiveStreams(hub.Len())
		}
	}()

	// HTTP Server — CORS wraps the entire router so OPTIONS preflight
	// requests are handled before mux routing (which would 404 on OPTIONS).
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        corsMiddleware(cfg.AllowedOrigins, r),
		ReadTimeout:    15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}

	log.Println("Server stopped")
}

// envDuration parses a numeric env value in the given unit. Zero means the
// consumer falls back to its own default.
func envDuration(value string, unit time.Duration) time.Duration {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * unit
}

// poolSize parses the configured connection-pool cap; non-positive or
// unparseable values defer to the pool's default.
func poolSize(cfg *config.Config) int32 {
	n, err := strconv.Atoi(cfg.DBMaxConns)
	if err != nil || n <= 0 {
		return 0
	}
	return int32(n)
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func corsMiddleware(allowedOrigins string, next http.Handler) http.Handler {
	origins := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		origins[strings.TrimSpace(o)] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(origins) == 1 {
			// Single origin mode: always set it (for dev convenience)
			for o := range origins {
				w.Header().Set("Access-Control-Allow-Origin", o)
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
