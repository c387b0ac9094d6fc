package cli

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/eleven-am/foodgram/internal/logger"
)

func requireDatabaseURL() (string, error) {
	if databaseURL == "" {
		return "", fmt.Errorf("database connection required: use --url flag or specify database.url in foodgram.yaml")
	}
	return databaseURL, nil
}

// openDatabase connects and sizes the pool from config
func openDatabase(ctx context.Context) (*sqlx.DB, error) {
	dsn, err := requireDatabaseURL()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.Database.MaxConnections)
	db.SetMaxIdleConns(config.Database.MaxIdleConnections)
	db.SetConnMaxLifetime(config.Database.ConnMaxLifetime)

	logger.DB().WithField("max_connections", config.Database.MaxConnections).Debug("database connected")
	return db, nil
}
