package repository

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Backend is what the service needs from a storage driver.
type Backend interface {
	SessionRepository
	ArchiveSource
}

// Open connects the named driver ("postgres" or "memory"). The postgres table is migrated
// before returning.
func Open(driver, dsn string) (Backend, error) {
	switch driver {
	case "memory":
		log.Println("⚠️  Using in-memory session repository, sessions are lost on restart")
		return NewMemoryRepository(), nil
	case "postgres":
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := NewPostgresRepository(db)
		if err := repo.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unknown repository driver %q", driver)
}
