// Copyright 2026 RateGate
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gate

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MigrationFile is one catalog schema migration on disk.
type MigrationFile struct {
	Path    string
	Version string
	Name    string
}

// collectMigrations lists the .sql files of the migrations directory
// sorted by version prefix (e.g. 001_catalog_schema.sql). A missing
// directory yields an empty list so fresh checkouts still boot against
// an already-migrated catalog.
func collectMigrations(dir string) ([]MigrationFile, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Printf("ℹ️  Migration directory not found: %s (skipping)", dir)
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations in %s: %w", dir, err)
	}

	migrations := make([]MigrationFile, 0, len(files))
	for _, file := range files {
		filename := filepath.Base(file)
		version, name := splitMigrationFilename(filename)
		migrations = append(migrations, MigrationFile{
			Path:    file,
			Version: version,
			Name:    name,
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// splitMigrationFilename separates "001_catalog_schema.sql" into its
// version ("001") and name ("catalog_schema") parts.
func splitMigrationFilename(filename string) (version, name string) {
	base := strings.TrimSuffix(filename, ".sql")
	parts := strings.SplitN(base, "_", 2)
	version = parts[0]
	if len(parts) == 2 {
		name = parts[1]
	}
	return version, name
}

// runMigrations applies every unapplied migration in order, recording
// each in schema_migrations.
func runMigrations(db *sql.DB, dir string) error {
	migrations, err := collectMigrations(dir)
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		log.Println("ℹ️  No migration files found")
		return nil
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan applied migration: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("failed to iterate applied migrations: %w", err)
	}
	_ = rows.Close()

	appliedCount := 0
	for _, migration := range migrations {
		filename := filepath.Base(migration.Path)
		if applied[migration.Version] {
			log.Printf("⏭️  Migration %s already applied (skipping)", filename)
			continue
		}

		sqlBytes, err := os.ReadFile(migration.Path)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", filename, err)
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", filename, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
			migration.Version, migration.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", filename, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", filename, err)
		}

		log.Printf("✅ Applied migration %s", filename)
		appliedCount++
	}

	log.Printf("Migrations complete: %d applied, %d total", appliedCount, len(migrations))
	return nil
}
