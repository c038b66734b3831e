package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/balkashynov/smgantt/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

var DB *gorm.DB

// Initialize opens the database at path, runs migrations and sets DB
func Initialize(path string) error {
	db, err := Open(path)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to the SQLite database at path and runs migrations.
// path may also be a "file:" DSN such as an in-memory database.
func Open(path string) (*gorm.DB, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get database path: %w", err)
		}
		path = p
	}

	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet by default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer; a single connection serialises transactions
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// OpenInMemory opens a private in-memory database named after name
func OpenInMemory(name string) (*gorm.DB, error) {
	return Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", unsafeName.ReplaceAllString(name, "_")))
}

// DefaultPath returns the path to the SQLite database file
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".smgantt", "smgantt.db"), nil
}

// Migrate creates/updates the database schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Construction{},
		&models.Task{},
		&models.Dependency{},
		&models.RolloverLog{},
		&models.HoldLog{},
		&models.SpawnLog{},
		&models.HoldReason{},
		&models.PublicHoliday{},
	)
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s #%d %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s #%d: %w", what, id, err)
}
