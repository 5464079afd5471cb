// Package store provides the lookup gateway to the backing database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sqldns/sqldns/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Gateway performs one lookup in the backing store per query name
type Gateway interface {
	// Lookup executes the configured lookup query with the passed name as its sole
	// bound parameter and returns the first column of the first row. The second
	// return value is false if the store contains no row for the name.
	Lookup(ctx context.Context, name string) (string, bool, error)
}

// DatabaseGateway is a Gateway backed by a SQL database
type DatabaseGateway struct {
	db          *gorm.DB
	lookupQuery string
}

// NewDatabaseGateway creates a gateway with a connection pool lasting the lifetime of the service
func NewDatabaseGateway(cfg config.DatabaseConfig, lookupQuery string) (*DatabaseGateway, error) {
	dialector, err := createDialector(cfg)
	if err != nil {
		return nil, err
	}

	return newDatabaseGateway(dialector, lookupQuery)
}

func newDatabaseGateway(dialector gorm.Dialector, lookupQuery string) (*DatabaseGateway, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("can't create database connection: %w", err)
	}

	return &DatabaseGateway{
		db:          db,
		lookupQuery: lookupQuery,
	}, nil
}

func createDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		return mysql.Open(cfg.Target), nil
	case "postgres":
		return postgres.Open(cfg.Target), nil
	case "sqlite":
		return sqlite.Open(cfg.Target), nil
	default:
		return nil, fmt.Errorf("unsupported database driver '%s'", cfg.Driver)
	}
}

// Lookup implements Gateway. It does not retry; retry policy belongs to the connection pool.
func (g *DatabaseGateway) Lookup(ctx context.Context, name string) (string, bool, error) {
	var value string

	row := g.db.WithContext(ctx).Raw(g.lookupQuery, name).Row()

	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}

		return "", false, err
	}

	return value, true, nil
}
