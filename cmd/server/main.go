package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"audittrail-backend/internal/audit"
	"audittrail-backend/internal/auth"
	"audittrail-backend/internal/handlers"
	"audittrail-backend/internal/policy"
	"audittrail-backend/internal/storage"
)

func main() {
	// Database connection (with retries)
	var db *sqlx.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sqlx.Connect("postgres", buildDSN())
		if err == nil {
			break
		}
		log.Printf("DB connection attempt %d failed: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	store := storage.NewStorage(db)
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Session store: redis when configured, otherwise in-process memory
	var sessions auth.SessionStore
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisSessions, err := auth.NewRedisSessionStore(redisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisSessions.Close()
		sessions = redisSessions
		log.Println("Connected to Redis session store")
	} else {
		log.Println("WARN REDIS_URL not set; sessions are in-memory and lost on restart")
		sessions = auth.NewMemorySessionStore()
	}

	// Audit write path
	recorder := audit.NewRecorder(store)
	recorder.Start()

	// HTTP handlers
	sessionTTL := time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour
	authHandler := auth.NewHandler(store, sessions, recorder, sessionTTL)
	h := handlers.New(store, recorder, policy.Default)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r, authHandler, sessions)

	addr := getEnv("LISTEN_ADDR", ":8080")
	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := shutdownOnSignal(server, recorder, sigCh)

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-done
	log.Println("Server stopped")
}

// shutdownOnSignal stops the server and then drains the audit recorder when a
// signal arrives. The returned channel closes only after the drain, so main
// must wait on it; ListenAndServe returns as soon as Shutdown begins.
func shutdownOnSignal(server *http.Server, recorder *audit.Recorder, sigCh <-chan os.Signal) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sigCh

		log.Println("Shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		_ = server.Shutdown(shutdownCtx)
		recorder.Stop()
	}()
	return done
}

func buildDSN() string {
	return "host=" + getEnv("DB_HOST", "localhost") +
		" user=" + getEnv("DB_USER", "audit_user") +
		" password=" + getEnv("DB_PASSWORD", "audit_pass") +
		" dbname=" + getEnv("DB_NAME", "audittrail") +
		" sslmode=" + getEnv("DB_SSLMODE", "disable")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
