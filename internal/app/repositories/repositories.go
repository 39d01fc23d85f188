package repositories

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/enrollplan/internal/transcript"
)

// Repositories holds all the repository instances. CatalogRepository is nil
// when the catalog is served from an imported file instead of PostgreSQL.
type Repositories struct {
	CatalogRepository    *CatalogRepository
	TranscriptRepository transcript.RecordStore
}

// NewRepositories initializes all PostgreSQL repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		CatalogRepository:    NewCatalogRepository(db),
		TranscriptRepository: NewTranscriptRepository(db),
	}
}

// NewSQLiteRepositories initializes the repositories of the SQLite deployment
func NewSQLiteRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		TranscriptRepository: NewSQLTranscriptRepository(db),
	}
}
