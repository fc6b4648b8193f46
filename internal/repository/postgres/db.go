package postgres

import (
	"context"
	"fmt"

	"github.com/HappilyMart/deal-service/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

func DB(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.SSLMode,
	)

	return pgxpool.New(ctx, connString)
}
