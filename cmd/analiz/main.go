package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"kazanim-analiz/internal/checkpoint"
	"kazanim-analiz/internal/clients"
	"kazanim-analiz/internal/clients/gemini"
	"kazanim-analiz/internal/config"
	"kazanim-analiz/internal/handle"
	"kazanim-analiz/internal/metrics"
	"kazanim-analiz/internal/pipeline"
	"kazanim-analiz/internal/search"
)

func main() {
	cfg := config.Load()

	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	}

	// --- Postgres (curriculum + archive) ---
	dsn := config.ResolveDSN()
	if dsn == "" {
		log.Fatal("database DSN is empty: set DATABASE_URL or POSTGRES_* env vars")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("db.Ping: %v", err)
		}
		log.Printf("db connected")
	}

	// --- Checkpoint store: Redis when configured, in-memory otherwise ---
	var store checkpoint.Store = checkpoint.NewMemory()
	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rc.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping: %v", err)
		}
		cancel()
		store = checkpoint.NewRedis(rc, 24*time.Hour)
		log.Printf("checkpoint store: redis %s", cfg.RedisAddr)
	} else {
		log.Printf("checkpoint store: in-memory (set REDIS_ADDR for durable checkpoints)")
	}

	// --- Collaborators ---
	eng := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	var rr clients.Reranker
	if cfg.RerankEnabled {
		rr = eng
	}
	collab := pipeline.Collaborators{
		Vision:     eng,
		Objectives: search.NewObjectiveRepo(db),
		Sections:   search.NewSectionRepo(db),
		Reranker:   rr,
		Generator:  eng,
	}

	orc := pipeline.New(collab, store)
	h := handle.New(orc, store, search.NewArchiveRepo(db))

	metrics.Register(prometheus.DefaultRegisterer)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/v1/analiz", h.Analyze).Methods(http.MethodPost)
	r.HandleFunc("/v1/analiz/{id}", h.Result).Methods(http.MethodGet)
	r.HandleFunc("/v1/analiz/{id}/resume", h.Resume).Methods(http.MethodPost)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute, // a full pipeline run can take a while
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("analiz listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
