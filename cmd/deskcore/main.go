// deskcore is the AI-assisted help-desk ticketing server: it ingests,
// classifies, routes, and auto-resolves support tickets, then keeps
// their SLA deadlines honest in the background.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/5knew/deskcore/pkg/api"
	"github.com/5knew/deskcore/pkg/autoreply"
	"github.com/5knew/deskcore/pkg/classifier"
	"github.com/5knew/deskcore/pkg/config"
	"github.com/5knew/deskcore/pkg/database"
	"github.com/5knew/deskcore/pkg/metrics"
	"github.com/5knew/deskcore/pkg/models"
	"github.com/5knew/deskcore/pkg/notify"
	"github.com/5knew/deskcore/pkg/orchestrator"
	"github.com/5knew/deskcore/pkg/responsebank"
	"github.com/5knew/deskcore/pkg/sla"
	"github.com/5knew/deskcore/pkg/store"
	"github.com/5knew/deskcore/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("CONFIG_FILE", "./deploy/config/deskcore.yaml"), "Path to configuration file")
	envPath := flag.String("env-file", getEnv("ENV_FILE", "./deploy/config/.env"), "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		log.Printf("warning: could not load %s: %v", *envPath, err)
	} else {
		log.Printf("loaded environment from %s", *envPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	log.Printf("starting %s", version.Full())

	ctx := context.Background()

	dbCfg := database.Config{
		Host: cfg.Database.Host, Port: cfg.Database.Port, User: cfg.Database.User,
		Password: cfg.Database.Password, Database: cfg.Database.Name, SSLMode: cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns, MaxIdleConns: cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime, ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() { _ = dbClient.DB().Close() }()
	log.Println("connected to PostgreSQL and applied migrations")

	listenerPool, err := pgxpool.New(ctx, dbCfg.DSN())
	if err != nil {
		log.Fatalf("failed to create notification listener pool: %v", err)
	}
	defer listenerPool.Close()

	listener := notify.NewListener(listenerPool)
	listener.Start(ctx)
	defer listener.Stop()

	st := store.New(dbClient.DB(), store.WithNotifier(func(ctx context.Context, tx *sql.Tx, n *models.Notification) error {
		ev := notify.Event{NotificationID: n.ID, Type: string(n.Type), Title: n.Title}
		if n.TicketID != nil {
			ev.TicketID = *n.TicketID
		}
		return notify.Publish(ctx, tx, n.RecipientID, ev)
	}))

	var bank *responsebank.Index
	responses, contentHash, err := responsebank.LoadContentFile(cfg.ResponseBank.ContentFile)
	if err != nil {
		log.Printf("warning: response bank unavailable, auto-reply disabled: %v", err)
	} else {
		bank, err = responsebank.Build(responses, cfg.ResponseBank.CacheDir, contentHash)
		if err != nil {
			log.Fatalf("failed to build response bank index: %v", err)
		}
		log.Printf("response bank loaded: %d templates", len(responses))
	}

	cls := classifier.New(cfg.Classifier.BaseURL, cfg.Classifier.Timeout)
	thresholds := autoreply.Thresholds{
		SimilarityRU:       cfg.Thresholds.SimilarityRU,
		SimilarityKK:       cfg.Thresholds.SimilarityKK,
		VerbatimSimilarity: cfg.Thresholds.VerbatimSimilarity,
	}
	orch := orchestrator.New(st, cls, bank, thresholds, version.Full())

	slaService := sla.NewService(cfg.SLA, st)
	if err := slaService.Start(ctx); err != nil {
		log.Fatalf("failed to start SLA service: %v", err)
	}
	defer slaService.Stop()

	agg := metrics.New(st, cfg.Metrics)

	router := api.NewRouter(api.NewServer(st, orch, agg))
	router.GET("/health/deep", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := database.Health(reqCtx, dbClient.DB())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": dbHealth, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": dbHealth})
	})

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	slog.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
