package sqldb

import (
	"context"
	"database/sql"
	"fmt"
)

func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	migrations := []string{
		// Documents table
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			workspace TEXT NOT NULL,
			scope TEXT NOT NULL,
			name TEXT NOT NULL,
			doc_json TEXT NOT NULL,
			revision BIGINT NOT NULL DEFAULT 1,
			created_at %[1]s NOT NULL,
			updated_at %[1]s NOT NULL,
			PRIMARY KEY (workspace, scope, name)
		)`, d.timestamp),

		`CREATE INDEX IF NOT EXISTS idx_documents_scope ON documents(scope, name)`,
	}

	for _, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return err
		}
	}
	return nil
}
