package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lunahealth/moodtrack-backend/internal/clients/redis"
	"github.com/lunahealth/moodtrack-backend/internal/clients/telegram"
	"github.com/lunahealth/moodtrack-backend/internal/config"
	"github.com/lunahealth/moodtrack-backend/internal/data/db"
	recordrepo "github.com/lunahealth/moodtrack-backend/internal/data/repos/record"
	userrepo "github.com/lunahealth/moodtrack-backend/internal/data/repos/user"
	"github.com/lunahealth/moodtrack-backend/internal/graph"
	"github.com/lunahealth/moodtrack-backend/internal/handlers"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/envutil"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
	"github.com/lunahealth/moodtrack-backend/internal/scheduler"
	"github.com/lunahealth/moodtrack-backend/internal/server"
	"github.com/lunahealth/moodtrack-backend/internal/services"
	"github.com/lunahealth/moodtrack-backend/internal/session"
	"github.com/lunahealth/moodtrack-backend/internal/transport"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	configPath := envutil.String("CONFIG_PATH", "config.yaml")
	log.Info("Loading configuration", "path", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("Could not load configuration", "error", err)
		os.Exit(1)
	}

	// Database
	dbService, err := db.New(cfg.Database.Driver, log)
	if err != nil {
		log.Error("Could not init database", "error", err)
		os.Exit(1)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Error("Database automigrate failed", "error", err)
		os.Exit(1)
	}
	theDB := dbService.DB()

	// Session store
	ttl := 300 * time.Second
	if cfg.Session.TTLSeconds > 0 {
		ttl = time.Duration(cfg.Session.TTLSeconds) * time.Second
	}
	var sessionStore session.Store
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		redisStore, err := redis.NewSessionStore(ttl, log)
		if err != nil {
			log.Error("Could not init redis session store", "error", err)
			os.Exit(1)
		}
		sessionStore = redisStore
	default:
		memStore := session.NewMemoryStore(ttl, log)
		defer memStore.Close()
		sessionStore = memStore
	}

	// Outbound transport
	log.Info("Setting up Telegram client...")
	tg, err := telegram.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init Telegram client", "error", err)
		os.Exit(1)
	}
	sender := transport.NewRetrying(tg, time.Second, log)

	// Repos
	log.Info("Setting up repos...")
	users := userrepo.NewUserRepo(theDB, log)
	records := recordrepo.NewRecordRepo(theDB, log)

	// Graph rendering
	renderer, err := graph.NewRenderer(log)
	if err != nil {
		log.Error("Could not init graph renderer", "error", err)
		os.Exit(1)
	}

	// Job queue
	queue := scheduler.NewQueue(log, nil)
	defer queue.Stop()

	// Services
	log.Info("Setting up services...")
	recorderService := services.NewRecorderService(sessionStore, users, records, sender, log)
	grapherService := services.NewGrapherService(sessionStore, users, records, renderer, sender, log)
	conversationService := services.NewConversationService(sessionStore, recorderService, grapherService, sender, log)
	notifierService := services.NewNotifierService(queue, users, records, recorderService, sender, log)
	userService := services.NewUserService(cfg, users, notifierService, log)

	// Scheduled jobs do not survive a restart; restore them for every user.
	if err := userService.ScheduleAll(context.Background()); err != nil {
		log.Error("Could not restore scheduled jobs", "error", err)
		os.Exit(1)
	}

	// Handlers and router
	log.Info("Setting up router...")
	botHandler := handlers.NewBotHandler(userService, recorderService, grapherService, conversationService, sender, log)
	router := server.NewRouter(server.RouterConfig{BotHandler: botHandler})

	port := envutil.String("PORT", "8080")
	srv := &http.Server{Addr: ":" + port, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("Server failed", "error", err)
	}
}
