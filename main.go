package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/loongtiles/go-server/internal/config"
	"github.com/loongtiles/go-server/internal/httpserver"
	"github.com/loongtiles/go-server/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.App.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.App.PrettyLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	db, err := openDB(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open session store")
	}

	srv := httpserver.New(cfg, st, db)
	log.Info().Int("port", cfg.App.Port).Str("store", cfg.Store.Driver).Msg("starting loong-tiles server")
	if err := srv.Start(cfg.App.Addr()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver != "redis" {
		return store.NewMemoryStore(), nil
	}
	rs := store.NewRedisStore(redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}), cfg.Store.TTL, log.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		return nil, err
	}
	return rs, nil
}
