package storage

import (
	"strings"

	"gorm.io/gorm"
)

// Open picks the backend from the DSN shape: postgres URLs and keyword DSNs
// go to Postgres, anything else is treated as a SQLite file path.
func Open(dsn string) (*gorm.DB, error) {
	if isPostgresDSN(dsn) {
		return NewPostgres(dsn)
	}
	return NewSQLite(dsn)
}

func isPostgresDSN(dsn string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(dsn))
	return strings.HasPrefix(trimmed, "postgres://") ||
		strings.HasPrefix(trimmed, "postgresql://") ||
		strings.Contains(trimmed, "host=")
}
