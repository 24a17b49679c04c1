package repository

import (
	"github.com/redis/go-redis/v9"

	"contact_form/pkg/logger"
)

type Repositories struct {
	RateWindow RateWindowRepository
}

// NewRepositories выбирает хранилище окон: Redis, если клиент передан,
// иначе память процесса.
func NewRepositories(rdb *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{}

	if rdb != nil {
		repos.RateWindow = NewRedisRateWindowRepository(rdb, log)
		log.Info("Rate window repository initialized", "backend", "redis")
	} else {
		repos.RateWindow = NewMemoryRateWindowRepository()
		log.Info("Rate window repository initialized", "backend", "memory")
	}

	return repos
}
