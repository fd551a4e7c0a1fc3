package ioc

import (
	"time"

	"gitee.com/flycash/labour-tracker/internal/pkg/idempotent"
	"github.com/gotomicro/ego/core/econf"
	"github.com/redis/go-redis/v9"
)

// InitIdempotentService remembers handled event ids. "local" keeps them in
// process memory, anything else uses redis.
func InitIdempotentService(rdb *redis.Client) idempotent.Service {
	type Config struct {
		Type   string        `yaml:"type"`
		Prefix string        `yaml:"prefix"`
		TTL    time.Duration `yaml:"ttl"`
	}
	cfg := Config{Prefix: "labour_tracker:event", TTL: 7 * 24 * time.Hour}
	if err := econf.UnmarshalKey("idempotent", &cfg); err != nil {
		panic(err)
	}
	if cfg.Type == "local" {
		return idempotent.NewLocalService(cfg.TTL)
	}
	return idempotent.NewRedisService(rdb, cfg.Prefix, cfg.TTL)
}
