package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool sizes the connection pool. Zero fields fall back to DefaultPool.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

var DefaultPool = Pool{MaxOpen: 25, MaxIdle: 25, MaxLifetime: 30 * time.Minute}

// Open connects to MySQL and pings it within five seconds. The DSN must
// carry parseTime=true; see config.Config.DSN.
func Open(ctx context.Context, dsn string, pool Pool) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if pool.MaxOpen <= 0 {
		pool.MaxOpen = DefaultPool.MaxOpen
	}
	if pool.MaxIdle <= 0 {
		pool.MaxIdle = min(DefaultPool.MaxIdle, pool.MaxOpen)
	}
	if pool.MaxLifetime <= 0 {
		pool.MaxLifetime = DefaultPool.MaxLifetime
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
