package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DatabaseConfig holds database connection config / Contient la config de connexion BD
type DatabaseConfig struct {
	Type         DatabaseType
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// DatabaseInitializer initializes database connections / Initialise les connexions BD
type DatabaseInitializer interface {
	Initialize(ctx context.Context, config DatabaseConfig) (*sql.DB, error)
	ConfigureConnection(ctx context.Context, db *sql.DB, config DatabaseConfig) error
	Type() DatabaseType
}

// InitializerRegistry manages database initializers / Gère les initialiseurs de BD
type InitializerRegistry[T DatabaseInitializer] struct {
	factories map[DatabaseType]func() T
}

// NewInitializerRegistry creates registry / Crée le registre
func NewInitializerRegistry[T DatabaseInitializer]() *InitializerRegistry[T] {
	return &InitializerRegistry[T]{
		factories: make(map[DatabaseType]func() T),
	}
}

// Register registers initializer factory / Enregistre une factory d'initialiseur
func (r *InitializerRegistry[T]) Register(dbType DatabaseType, factory func() T) {
	r.factories[dbType] = factory
}

// Get retrieves initializer / Récupère l'initialiseur
func (r *InitializerRegistry[T]) Get(dbType DatabaseType) (T, error) {
	factory, exists := r.factories[dbType]
	if !exists {
		var zero T
		return zero, fmt.Errorf("no initializer registered for %q", dbType)
	}
	return factory(), nil
}

var initializerRegistry = func() *InitializerRegistry[DatabaseInitializer] {
	registry := NewInitializerRegistry[DatabaseInitializer]()
	registry.Register(MySQL, func() DatabaseInitializer {
		return &sqlInitializer{dbType: MySQL, driver: "mysql", setup: []string{
			"SET SESSION sql_mode='TRADITIONAL,NO_AUTO_VALUE_ON_ZERO'",
			"SET time_zone = '+00:00'",
		}}
	})
	registry.Register(PostgreSQL, func() DatabaseInitializer {
		return &sqlInitializer{dbType: PostgreSQL, driver: "postgres", setup: []string{"SET TIME ZONE 'UTC'"}}
	})
	registry.Register(SQLite, func() DatabaseInitializer {
		// Per-connection pragmas (foreign_keys, busy_timeout) belong in the DSN.
		return &sqlInitializer{dbType: SQLite, driver: "sqlite", setup: []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
		}}
	})
	return registry
}()

// Open connects to the configured database / Ouvre la base configurée
func Open(ctx context.Context, config DatabaseConfig) (*sql.DB, error) {
	initializer, err := NewDatabaseInitializer(config.Type)
	if err != nil {
		return nil, err
	}
	return initializer.Initialize(ctx, config)
}

// NewDatabaseInitializer creates initializer for database type / Crée l'initialiseur pour le type de BD
func NewDatabaseInitializer(dbType DatabaseType) (DatabaseInitializer, error) {
	if dbType == "" {
		dbType = SQLite
	}
	return initializerRegistry.Get(dbType)
}

// sqlInitializer opens a database/sql pool and runs setup statements.
type sqlInitializer struct {
	dbType DatabaseType
	driver string
	setup  []string
}

func (i *sqlInitializer) Initialize(ctx context.Context, config DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(i.driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", i.dbType, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", i.dbType, err)
	}

	if err := i.ConfigureConnection(ctx, db, config); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("database connected", "type", i.dbType)
	return db, nil
}

func (i *sqlInitializer) ConfigureConnection(ctx context.Context, db *sql.DB, config DatabaseConfig) error {
	maxOpen := config.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 25
	}
	maxIdle := config.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 5
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	for _, stmt := range i.setup {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			slog.Warn("database setup statement failed", "type", i.dbType, "stmt", stmt, "err", err)
		}
	}
	return nil
}

func (i *sqlInitializer) Type() DatabaseType {
	return i.dbType
}
