package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/mcq-practice/backend/internal/auth"
	"github.com/mcq-practice/backend/internal/cache"
	"github.com/mcq-practice/backend/internal/config"
	"github.com/mcq-practice/backend/internal/content"
	"github.com/mcq-practice/backend/internal/database"
	"github.com/mcq-practice/backend/internal/docstore"
	"github.com/mcq-practice/backend/internal/events"
	"github.com/mcq-practice/backend/internal/generator"
	"github.com/mcq-practice/backend/internal/history"
	"github.com/mcq-practice/backend/internal/logger"
	"github.com/mcq-practice/backend/internal/middleware"
	"github.com/mcq-practice/backend/internal/quiz"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.RollbarToken, cfg.Env, version)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Accounts live in Postgres
	db, err := database.Connect(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Content and per-user records live in the document store
	docs := openDocStore(ctx, cfg)
	defer docs.Close(context.Background())

	var poolCache *cache.PoolCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Warnf("[main] redis unavailable, pool cache disabled: %v", err)
		} else {
			defer rdb.Close()
			poolCache = cache.NewPoolCache(rdb, cfg.PoolCacheTTL)
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitURI != "" {
		p, err := events.NewAMQPPublisher(cfg.RabbitURI, cfg.RabbitExchange)
		if err != nil {
			logger.Warnf("[main] rabbitmq unavailable, events disabled: %v", err)
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	// Services
	historyService := history.NewService(history.NewStore(docs), docs, publisher)
	contentStore := content.NewStore(docs)

	var invalidator content.Invalidator
	var quizCache quiz.PoolCache
	if poolCache != nil {
		invalidator = poolCache
		quizCache = poolCache
	}

	gen := generator.NewGenerator(cfg.Generator)
	log.Printf("Question generator using model %s", gen.ModelName())
	contentService := content.NewService(contentStore, invalidator, publisher, gen)

	manager := quiz.NewManager(quiz.NewLoader(contentStore, historyService, quizCache), historyService, cfg.SessionIdleTTL)
	go manager.Run(ctx, cfg.SessionTick)

	// Handlers
	authHandler := auth.NewHandler(auth.NewStore(db), []byte(cfg.JWTSecret), cfg.JWTTTL)
	contentHandler := content.NewHandler(contentService)
	historyHandler := history.NewHandler(historyService)
	quizHandler := quiz.NewHandler(manager)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware([]byte(cfg.JWTSecret)))

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	admin.Use(middleware.RequireAdmin)

	authHandler.RegisterRoutes(api, protected)
	contentHandler.RegisterRoutes(protected)
	contentHandler.RegisterAdminRoutes(admin)
	historyHandler.RegisterRoutes(protected)
	quizHandler.RegisterRoutes(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("[main] shutdown: %v", err)
	}

	// let in-flight attempt and bookmark writes finish
	manager.Wait()
}

func openDocStore(ctx context.Context, cfg *config.Config) docstore.Store {
	if cfg.DocStore == "memory" {
		log.Println("Using in-memory document store")
		return docstore.NewMemoryStore()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := docstore.ConnectMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := store.EnsureIndexes(connectCtx); err != nil {
		logger.Warnf("[main] ensure indexes: %v", err)
	}
	return store
}
