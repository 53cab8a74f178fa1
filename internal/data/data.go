package data

import (
	"randomizer/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewStreamRepo,
	NewCheckpointRepo,
	NewEventPublisher,
)

// Data .
// db 与 redis 都是可选的，未配置时对应仓储退化为内存实现
type Data struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewData .
func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data"))

	var db *gorm.DB
	if c.Database.Source != "" {
		if c.Database.Driver != "postgres" {
			return nil, nil, errors.Errorf("unsupported database driver %q", c.Database.Driver)
		}
		var err error
		db, err = gorm.Open(postgres.Open(c.Database.Source), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, nil, errors.Wrap(err, "open database")
		}
		if err := db.AutoMigrate(&streamPO{}); err != nil {
			return nil, nil, errors.Wrap(err, "migrate streams table")
		}
		helper.Info("database initialized")
	} else {
		helper.Warn("database configuration is missing, using in-memory stream registry")
	}

	var rdb *redis.Client
	if c.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:         c.Redis.Addr,
			Password:     c.Redis.Password,
			DB:           c.Redis.Db,
			ReadTimeout:  c.Redis.ReadTimeout.AsDuration(),
			WriteTimeout: c.Redis.WriteTimeout.AsDuration(),
		})
		helper.Info("redis client initialized")
	} else {
		helper.Warn("redis configuration is missing, using in-memory checkpoints")
	}

	cleanup := func() {
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil {
				helper.Errorf("failed to obtain sql.DB from gorm: %v", err)
			} else if err := sqlDB.Close(); err != nil {
				helper.Errorf("failed to close database: %v", err)
			} else {
				helper.Info("database connection closed")
			}
		}

		if rdb != nil {
			if err := rdb.Close(); err != nil {
				helper.Errorf("failed to close redis: %v", err)
				return
			}
			helper.Info("redis connection closed")
		}
	}

	return &Data{
		db:    db,
		redis: rdb,
	}, cleanup, nil
}
