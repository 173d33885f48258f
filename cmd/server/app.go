package main

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nciso/server/internal/config"
	"nciso/server/internal/db"
	"nciso/server/internal/isms"
	"nciso/server/internal/modules"
	ismsmodule "nciso/server/internal/modules/isms"
	"nciso/server/internal/observability"
	"nciso/server/pkg/supabaseapi"
)

// app is the wiring shared by the serve and stdio commands.
type app struct {
	cfg      *config.Config
	gdb      *gorm.DB
	supabase *supabaseapi.Client
	svc      *isms.Service
}

// newApp opens the store and storage clients that are configured and
// registers the ISMS module. Missing settings leave the matching part nil.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	log := observability.L()

	if cfg.DatabaseConfigured() {
		gdb, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := db.Migrate(gdb); err != nil {
				return nil, errors.Wrap(err, "migrate")
			}
			log.Info("schema migrated")
		}
		a.gdb = gdb
	} else {
		log.Warn("DATABASE_URL not set, ISMS tools answer unconfigured")
	}

	opts := []isms.Option{isms.WithThresholds(cfg.CurrentThresholds)}
	if cfg.SupabaseConfigured() {
		client, err := supabaseapi.NewClient(supabaseapi.Config{
			URL:            cfg.SupabaseURL,
			AnonKey:        cfg.SupabaseAnonKey,
			ServiceRoleKey: cfg.SupabaseServiceRoleKey,
		})
		if err != nil {
			return nil, err
		}
		a.supabase = client
		opts = append(opts, isms.WithObjectStore(client.Bucket(cfg.StorageBucket)))
		log.Info("object storage enabled", zap.String("bucket", cfg.StorageBucket))
	}

	a.svc = isms.New(a.gdb, opts...)
	modules.RegisterModule(ismsmodule.New(a.svc))
	log.Info("modules registered", zap.Strings("modules", modules.ListModules()))
	return a, nil
}

// ping reports store reachability for /health.
func (a *app) ping(ctx context.Context) error {
	if a.gdb == nil {
		return db.ErrNotConfigured
	}
	return db.Ping(ctx, a.gdb)
}

func (a *app) close() {
	if a.gdb == nil {
		return
	}
	if sqlDB, err := a.gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// loadConfig reads configuration and initialises the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if _, err := observability.InitLogger(cfg.AppEnv, cfg.LogLevel); err != nil {
		return nil, errors.Wrap(err, "init logger")
	}
	return cfg, nil
}
