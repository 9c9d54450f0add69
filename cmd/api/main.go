package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"posturewatch.org/internal/auth"
	"posturewatch.org/internal/config"
	"posturewatch.org/internal/httpapi"
	"posturewatch.org/internal/obs"
	"posturewatch.org/internal/posture"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.AuthSecret == "" {
		log.Fatal("POSTUREWATCH_AUTH_SECRET is required")
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var db *sql.DB
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("parse redis url: %v", err)
		}
		redisClient = redis.NewClient(opt)
	}

	store := buildAuthStore(db, redisClient)

	codec, err := auth.NewCodec(cfg.AuthSecret, cfg.Issuer)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	providers := make(map[string]auth.ProviderConfig, len(cfg.Providers))
	for key, p := range cfg.Providers {
		providers[key] = auth.ProviderConfig{
			Name:         p.Name,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			TokenURL:     p.TokenURL,
			UserInfoURL:  p.UserInfoURL,
			Scopes:       p.Scopes,
		}
	}
	exchanger := auth.NewExchanger(providers, cfg.ProviderTimeout)

	manager, err := auth.NewManager(store, codec, exchanger, auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("auth manager: %v", err)
	}

	var postureStore posture.Store
	if db != nil {
		postureStore = posture.NewPGStore(db)
	} else {
		postureStore = posture.NewInMemory()
	}
	detector := posture.NewDetector(cfg.DeviationThreshold, cfg.AccountThresholds)
	postureSvc := posture.NewService(postureStore, detector)

	probe := httpapi.ReadyProbe{DB: db}
	api := httpapi.New(probe, version, manager, postureSvc,
		httpapi.WithRateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcSrv, httpapi.NewGRPCServer(probe, version))
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				log.Printf("grpc serve: %v", err)
			}
		}()
		log.Printf("gRPC health on %s", cfg.GRPCAddr)
	}

	log.Printf("Starting posturewatch-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// buildAuthStore picks storage backends: Postgres accounts when a DSN is
// configured, Redis-held sessions when a Redis URL is configured, in-memory
// otherwise.
func buildAuthStore(db *sql.DB, redisClient *redis.Client) auth.Store {
	switch {
	case db != nil && redisClient != nil:
		pg := auth.NewPGStore(db)
		return &auth.SplitStore{
			AccountBackend: pg.Accounts(context.Background()),
			SessionBackend: auth.NewRedisSessions(redisClient),
		}
	case db != nil:
		return auth.NewPGStore(db)
	case redisClient != nil:
		mem := auth.NewInMemory()
		return &auth.SplitStore{
			AccountBackend: mem.Accounts(context.Background()),
			SessionBackend: auth.NewRedisSessions(redisClient),
		}
	default:
		return auth.NewInMemory()
	}
}
