package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"kazanim-analiz/internal/checkpoint"
	"kazanim-analiz/internal/clients"
	"kazanim-analiz/internal/clients/gemini"
	"kazanim-analiz/internal/config"
	"kazanim-analiz/internal/pipeline"
	"kazanim-analiz/internal/search"
	"kazanim-analiz/internal/telegram"
)

func main() {
	cfg := config.Load()
	if cfg.TelegramBotToken == "" {
		log.Fatal("missing required env TELEGRAM_BOT_TOKEN")
	}

	// --- Postgres ---
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
	}

	var store checkpoint.Store = checkpoint.NewMemory()
	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		store = checkpoint.NewRedis(rc, 24*time.Hour)
	}

	eng := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	var rr clients.Reranker
	if cfg.RerankEnabled {
		rr = eng
	}
	orc := pipeline.New(pipeline.Collaborators{
		Vision:     eng,
		Objectives: search.NewObjectiveRepo(db),
		Sections:   search.NewSectionRepo(db),
		Reranker:   rr,
		Generator:  eng,
	}, store)

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false
	log.Printf("bot authorized as @%s", bot.Self.UserName)

	router := &telegram.Router{
		Bot:     bot,
		Orc:     orc,
		Archive: search.NewArchiveRepo(db),
	}

	// healthz for the platform probe
	go func() {
		http.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})
		log.Printf("healthz listening on :%s", cfg.Port)
		if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
			log.Printf("healthz: %v", err)
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	for upd := range bot.GetUpdatesChan(u) {
		go router.HandleUpdate(upd)
	}
}
