package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizlytic-service/internal/app"
	"quizlytic-service/internal/config"
	"quizlytic-service/internal/infra/memory"
	infraopenai "quizlytic-service/internal/infra/openai"
	infrapostgres "quizlytic-service/internal/infra/postgres"
	infraredis "quizlytic-service/internal/infra/redis"
	transport "quizlytic-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store app.Store = memory.NewStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = infrapostgres.NewStore(pool)
	} else {
		log.Printf("no postgres url configured, using in-memory store")
	}

	var shares app.ShareResolver
	var invalidator app.ShareInvalidator
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache := infraredis.NewShareCache(client, store, config.TTLDuration(cfg.Redis.ShareTTL, 10*time.Minute))
		shares = cache
		invalidator = cache
	}

	var generator app.DraftGenerator
	var extractor app.DraftExtractor
	if cfg.OpenAI.APIKey != "" {
		client := infraopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		generator = client
		extractor = client
	}

	auth := app.NewAuthService(store, cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	authoring := app.NewAuthoringService(store, generator, extractor)
	settings := app.NewSettingsService(store)
	if invalidator != nil {
		authoring.WithShareInvalidator(invalidator)
		settings.WithShareInvalidator(invalidator)
	}
	attempts := app.NewAttemptService(store, shares)
	history := app.NewHistoryService(store)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandlers(auth, authoring, settings, attempts, history).Register(mux)
	mux.HandleFunc("/ws/leaderboard", transport.NewWSHandler(attempts).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.LogRequests(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("starting quizlytic service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
