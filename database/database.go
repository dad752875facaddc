package database

import (
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/localsales/form-entries/config"
)

// DSN builds the driver-specific data source name for cfg
func DSN(cfg config.DBConfig) (string, error) {
	switch cfg.Driver {
	case "sqlite3":
		return "file:" + cfg.Path + "?_foreign_keys=on&_busy_timeout=5000", nil
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.MultiStatements = true
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN(), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenDB opens and pings the configured database
func OpenDB(cfg config.DBConfig) (*sql.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == "sqlite3" {
		// SQLite allows a single writer; serialize through one connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// InitializeDatabase opens the database connection and activates the schema.
// Running it again against an existing database is a no-op.
func InitializeDatabase(cfg config.DBConfig) (*sql.DB, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db, cfg.Driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.WithField("driver", cfg.Driver).Info("Database initialized.")
	return db, nil
}
