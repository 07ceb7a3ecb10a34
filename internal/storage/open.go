package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/zhouzirui/chat-widget/backend/internal/config"
)

// Open builds the scope selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Scope, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		log.Println("[storage] using in-memory scope, state is lost on restart")
		return NewMemoryScope(), nil
	case config.StorageBolt:
		log.Printf("[storage] using bolt scope path=%s namespace=%s", cfg.BoltPath, cfg.Namespace)
		return OpenBolt(cfg.BoltPath, cfg.Namespace)
	case config.StorageRedis:
		log.Printf("[storage] using redis scope namespace=%s", cfg.Namespace)
		return OpenRedis(ctx, cfg.RedisURL, cfg.Namespace, cfg.RedisTTL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
