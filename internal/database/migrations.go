package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// AddIndexes adds composite indexes used by the admin listings.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Audit listing is filtered by actor and ordered by time
		{"audit_logs", "idx_audit_logs_user_created", "user_id, created_at"},

		// Records are listed per stage, newest first
		{"records", "idx_records_stage_created", "stage_id, created_at"},

		// Report lookups by name pick the newest record
		{"records", "idx_records_name_created", "name, created_at"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on %s(%s)", idx.name, idx.table, idx.columns)
	}

	return nil
}
