// Package database opens the MySQL pool the repositories run on.  Schema
// migrations are applied out of band; a successful Open is the gate the
// background workers wait on before starting.
package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config carries the connection parameters.  ParseTime and a UTC location
// are forced so DATETIME columns scan as time.Time values in UTC, which the
// hold-window and outbox cutoff comparisons depend on.
type Config struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// Open builds the DSN through the driver's own config type, connects and
// verifies the connection.
func Open(cfg Config) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, err
	}

	// Pool sized for the request workers plus the two background workers.
	db.SetMaxOpenConns(30)
	db.SetMaxIdleConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
