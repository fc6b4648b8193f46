package repository

import (
	"github.com/HappilyMart/deal-service/internal/repository/postgres"
	"github.com/HappilyMart/deal-service/internal/repository/redisrepo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type RedisRepository struct {
	Default redisrepo.Default
}

type Repository struct {
	Postgres *postgres.PostgresRepository
	Redis    *RedisRepository
}

func New(db *pgxpool.Pool, rdb *redis.Client) *Repository {
	return &Repository{
		Postgres: postgres.New(db),
		Redis: &RedisRepository{
			Default: redisrepo.New(rdb),
		},
	}
}
