package schema

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/lib/pq"

	"github.com/eleven-am/foodgram/internal/logger"
)

// TempDBManager creates scratch databases on the same server as the target
// database, used to materialise the desired schema for inspection.
type TempDBManager struct {
	baseURL string
}

func NewTempDBManager(baseURL string) *TempDBManager {
	return &TempDBManager{baseURL: baseURL}
}

// CreateTempDB creates and connects to database name. cleanup closes the
// connection and drops the database.
func (m *TempDBManager) CreateTempDB(ctx context.Context, name string) (*sql.DB, func(), error) {
	admin, err := sql.Open("postgres", m.buildTempDBURL("postgres"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to admin database: %w", err)
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+quoteIdentifier(name)); err != nil {
		admin.Close()
		return nil, nil, fmt.Errorf("failed to create database %s: %w", name, err)
	}

	drop := func() {
		if _, err := admin.ExecContext(context.Background(), "DROP DATABASE IF EXISTS "+quoteIdentifier(name)); err != nil {
			logger.Migration().WithError(err).Warn("failed to drop temporary database %s", name)
		}
		admin.Close()
	}

	db, err := sql.Open("postgres", m.buildTempDBURL(name))
	if err == nil {
		err = db.PingContext(ctx)
	}
	if err != nil {
		if db != nil {
			db.Close()
		}
		drop()
		return nil, nil, fmt.Errorf("failed to connect to database %s: %w", name, err)
	}

	return db, func() {
		db.Close()
		drop()
	}, nil
}

// buildTempDBURL swaps the database name of the base URL, keeping
// credentials and query parameters.
func (m *TempDBManager) buildTempDBURL(name string) string {
	u, err := url.Parse(m.baseURL)
	if err != nil || u.Scheme == "" {
		return replaceDSNName(m.baseURL, name)
	}
	u.Path = "/" + name
	return u.String()
}

// replaceDSNName handles the key=value DSN form
func replaceDSNName(dsn, name string) string {
	fields := strings.Fields(dsn)
	replaced := false
	for i, kv := range fields {
		if strings.HasPrefix(kv, "dbname=") {
			fields[i] = "dbname=" + name
			replaced = true
		}
	}
	if !replaced {
		fields = append(fields, "dbname="+name)
	}
	return strings.Join(fields, " ")
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// databaseName extracts the database name from the base URL
func (m *TempDBManager) databaseName() (string, error) {
	u, err := url.Parse(m.baseURL)
	if err == nil && u.Scheme != "" {
		name := strings.TrimPrefix(u.Path, "/")
		if name == "" {
			return "", fmt.Errorf("no database name in URL")
		}
		return name, nil
	}

	for _, kv := range strings.Fields(m.baseURL) {
		if name, ok := strings.CutPrefix(kv, "dbname="); ok && name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("no dbname found in DSN")
}

// EnsureDatabase creates the base URL's database when the server does not
// have it yet. created reports whether it had to.
func (m *TempDBManager) EnsureDatabase(ctx context.Context) (created bool, err error) {
	name, err := m.databaseName()
	if err != nil {
		return false, err
	}

	admin, err := sql.Open("postgres", m.buildTempDBURL("postgres"))
	if err != nil {
		return false, fmt.Errorf("failed to connect to admin database: %w", err)
	}
	defer admin.Close()

	var exists bool
	if err := admin.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+quoteIdentifier(name)); err != nil {
		return false, fmt.Errorf("failed to create database %s: %w", name, err)
	}

	logger.Migration().WithField("database", name).Info("created database")
	return true, nil
}
