package database

import (
	"database/sql"
	"fmt"
)

// Case registry schema. Session state (rooms, cursors, annotations) is
// deliberately absent - it lives in memory only and dies with the room.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS cases (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	modality        TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	axial_slices    INTEGER NOT NULL DEFAULT 0,
	sagittal_slices INTEGER NOT NULL DEFAULT 0,
	coronal_slices  INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cases_modality ON cases(modality);
CREATE INDEX IF NOT EXISTS idx_cases_created_at ON cases(created_at);
`

// EnsureSchema creates the case registry tables and indexes if missing.
// Idempotent; safe to run at every startup.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SchemaValidator provides database schema validation functionality.
// ARCHITECTURAL DISCOVERY: Separate validation component enables deployment
// verification without coupling to schema creation
type SchemaValidator struct {
	db *sql.DB
}

// NewSchemaValidator creates a new schema validator.
func NewSchemaValidator(db *sql.DB) *SchemaValidator {
	return &SchemaValidator{db: db}
}

// ValidateTablesExist verifies that all required tables exist.
func (v *SchemaValidator) ValidateTablesExist() error {
	requiredTables := map[string]string{
		"cases": "Imaging case registry",
	}

	for table, description := range requiredTables {
		exists, err := v.tableExists(table)
		if err != nil {
			return fmt.Errorf("error checking table %s (%s): %w", table, description, err)
		}
		if !exists {
			return fmt.Errorf("required table %s (%s) does not exist", table, description)
		}
	}
	return nil
}

// ValidateIndexes verifies that all performance indexes exist.
func (v *SchemaValidator) ValidateIndexes() error {
	requiredIndexes := map[string]string{
		"idx_cases_modality":   "Modality filtering",
		"idx_cases_created_at": "Newest-first listing",
	}

	for index, purpose := range requiredIndexes {
		exists, err := v.indexExists(index)
		if err != nil {
			return fmt.Errorf("error checking index %s (%s): %w", index, purpose, err)
		}
		if !exists {
			return fmt.Errorf("required index %s (%s) does not exist", index, purpose)
		}
	}
	return nil
}

func (v *SchemaValidator) tableExists(name string) (bool, error) {
	var count int
	err := v.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (v *SchemaValidator) indexExists(name string) (bool, error) {
	var count int
	err := v.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`, name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
