package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/game-services/configs"
	"github.com/avvvet/game-services/internal/comm"
	"github.com/avvvet/game-services/internal/db"
	"github.com/avvvet/game-services/internal/gamesvc/broker"
	gamesvcconfig "github.com/avvvet/game-services/internal/gamesvc/config"
	pg "github.com/avvvet/game-services/internal/gamesvc/db"
	handlers "github.com/avvvet/game-services/internal/gamesvc/handlers"
	"github.com/avvvet/game-services/internal/gamesvc/service"
	"github.com/avvvet/game-services/internal/gamesvc/store"
	nats "github.com/avvvet/game-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "game"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

// openStore connects the configured backend. The returned func releases it.
func openStore(cfg gamesvcconfig.Config) (store.GameStore, func(), error) {
	switch cfg.StoreBackend {
	case gamesvcconfig.BackendPostgres:
		dbpool, err := pg.Connect(cfg.DBUrl)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.Migrate(ctx, dbpool); err != nil {
			dbpool.Close()
			return nil, nil, err
		}
		log.Printf("pg connection established successfully")
		return store.NewPgStore(dbpool), dbpool.Close, nil

	case gamesvcconfig.BackendMongo:
		client, database, err := db.ConnectToDB(cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		mongoStore := store.NewMongoStore(database)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		log.Printf("mongo connection established successfully")
		return mongoStore, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		log.Printf("using in-memory game store")
		return store.NewMemoryStore(), func() {}, nil
	}
}

func main() {
	cfg, err := gamesvcconfig.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	gameStore, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer closeStore()

	var (
		gameService *service.GameService
		sub         interface{ Unsubscribe() error }
	)

	if cfg.NatsEnabled {
		// Connect to NATS
		n, err := nats.Connect(SERVICE_NAME+"_service_"+instanceId, cfg.NatsURL, cfg.NatsToken)
		if err != nil {
			log.Fatalf("Error: unable to connect to NATS server %v", err)
		}
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)

		// the broker publishes the service's events and serves its commands
		b := broker.NewBroker(n.Conn)
		gameService = service.NewGameService(gameStore, b)
		b.GameService = gameService

		s, err := b.QueueSubscribe(comm.RequestTopic, comm.QueueGroup)
		if err != nil {
			log.Fatalf("Error: unable to subscribe to queue %v", err)
		}
		sub = s
	} else {
		gameService = service.NewGameService(gameStore, nil)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(gameService, cfg.Port)
	h.InitAuth(cfg.JWTSecret)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s with %s store", SERVICE_NAME, server.Addr, cfg.StoreBackend)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			log.Warnf("unsubscribe %s: %v", comm.RequestTopic, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
