package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tiffintracker/tiffin/internal/config"
	"github.com/tiffintracker/tiffin/internal/database"
	"github.com/tiffintracker/tiffin/internal/lock"
	"github.com/tiffintracker/tiffin/pkg/export"
	"github.com/tiffintracker/tiffin/pkg/tracker"
)

// Infrastructure is the storage, locking and export destination picked from config.
// Close releases whatever connections were opened for them.
type Infrastructure struct {
	Repository tracker.Repository
	Locker     lock.Locker
	Sink       export.Sink
	closers    []func()
}

func (i *Infrastructure) Close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
	i.closers = nil
}

// OpenInfrastructure selects the storage backend once at start-up, runs its
// migrations, and builds the locker and export sink.
func OpenInfrastructure(ctx context.Context, cfg config.Application) (*Infrastructure, error) {
	infra := &Infrastructure{}

	repo, err := openRepository(ctx, cfg, infra)
	if err != nil {
		infra.Close()
		return nil, err
	}
	infra.Repository = repo

	locker, err := openLocker(ctx, cfg.Lock, infra)
	if err != nil {
		infra.Close()
		return nil, err
	}
	infra.Locker = locker

	sink, err := openSink(ctx, cfg)
	if err != nil {
		infra.Close()
		return nil, err
	}
	infra.Sink = sink

	return infra, nil
}

func openRepository(ctx context.Context, cfg config.Application, infra *Infrastructure) (tracker.Repository, error) {
	switch cfg.Storage.Backend {
	case config.StorageSqlite:
		db, err := database.OpenSqlite(cfg.Sqlite.Path)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, func() { db.Close() })
		if err := database.MigrateSqlite(db); err != nil {
			return nil, err
		}
		log.Infof("Using sqlite storage at %s", cfg.Sqlite.Path)
		return tracker.NewRepository(db), nil

	case config.StoragePostgres:
		pool, err := database.OpenPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, pool.Close)
		if err := database.EnsureSchema(ctx, pool, cfg.Database.Schema); err != nil {
			return nil, err
		}
		if err := database.MigratePostgres(cfg.Database); err != nil {
			return nil, err
		}
		log.Infof("Using postgres storage at %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
		return tracker.NewPostgresRepository(pool), nil

	case config.StorageMemory:
		log.Warn("Using in-memory storage, data will be lost on restart")
		return tracker.NewRepositoryStub(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func openLocker(ctx context.Context, cfg config.Lock, infra *Infrastructure) (lock.Locker, error) {
	switch cfg.Backend {
	case config.LockLocal, "":
		return lock.NewKeyedMutex(), nil
	case config.LockRedis:
		client, err := lock.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, func() { client.Close() })
		log.Infof("Using redis locks at %s", cfg.RedisAddr)
		return lock.NewRedisLocker(client, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

func openSink(ctx context.Context, cfg config.Application) (export.Sink, error) {
	switch cfg.Export.Sink {
	case config.SinkFile, "":
		return export.NewFileSink(cfg.Export.Dir), nil
	case config.SinkDrive:
		return export.NewDriveSink(ctx, cfg.Google, cfg.Export.DriveFolderId)
	default:
		return nil, fmt.Errorf("unknown export sink %q", cfg.Export.Sink)
	}
}
