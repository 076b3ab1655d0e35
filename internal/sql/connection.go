package sql

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// Registers the pgx stdlib driver used by the postgres dialector.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/basescout/basescout/internal/data/model"
	"github.com/basescout/basescout/internal/log"
)

// DBConnector is an interface for database connections.
type DBConnector interface {
	Connect(ctx context.Context) (*gorm.DB, error)
}

// SQLiteConnector implements DBConnector for SQLite connections.
type SQLiteConnector struct {
	dbPath string
}

// lfsPointerPrefix marks an un-fetched Git LFS placeholder file that
// may sit where the database is expected. Opening it as SQLite would
// fail hard; instead the placeholder is moved aside and a fresh empty
// schema is created.
var lfsPointerPrefix = []byte("version https://git-lfs.github.com/spec/v1")

// Connect connects to the SQLite database, initializing an empty schema
// when the file is absent or a placeholder.
func (c *SQLiteConnector) Connect(ctx context.Context) (*gorm.DB, error) {
	lg := log.NewLogger(ctx)

	if isPlaceholderFile(c.dbPath) {
		backup := c.dbPath + ".placeholder"
		if err := os.Rename(c.dbPath, backup); err != nil {
			return nil, fmt.Errorf("failed to move placeholder database file: %w", err)
		}
		lg.Warn("database file is an un-fetched placeholder, starting with an empty store",
			zap.String("path", c.dbPath), zap.String("movedTo", backup))
	}

	database, err := gorm.Open(sqlite.Open(c.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	if err := Migrate(database); err != nil {
		return nil, err
	}
	return database, nil
}

// PostgresConnector implements DBConnector for PostgreSQL connections
// through the pgx stdlib driver.
type PostgresConnector struct {
	host     string
	port     string
	user     string
	password string
	dbname   string
}

// Connect connects to the PostgreSQL database.
func (c *PostgresConnector) Connect(ctx context.Context) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.host, c.port, c.user, c.password, c.dbname)
	database, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "pgx",
		DSN:        dsn,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	if err := Migrate(database); err != nil {
		return nil, err
	}
	return database, nil
}

// CreateDBConnector is a factory function that returns the appropriate DBConnector.
func CreateDBConnector(dbType, dbPath, host, port, user, password, dbname string) DBConnector {
	if dbType == "postgres" {
		return &PostgresConnector{
			host:     host,
			port:     port,
			user:     user,
			password: password,
			dbname:   dbname,
		}
	}
	return &SQLiteConnector{dbPath: dbPath}
}

// Migrate creates or updates the schema for every stored entity. All
// tables exist after a degraded start even when they hold zero rows.
func Migrate(database *gorm.DB) error {
	err := database.AutoMigrate(
		&model.Image{},
		&model.Package{},
		&model.Vulnerability{},
		&model.LanguageRuntime{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// isPlaceholderFile reports whether path holds a Git LFS pointer
// instead of real database content.
func isPlaceholderFile(path string) bool {
	head := make([]byte, 200)
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return false
	}
	return bytes.Contains(head[:n], lfsPointerPrefix) &&
		bytes.Contains(head[:n], []byte("oid sha256:"))
}
