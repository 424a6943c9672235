package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var productStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS art_catalog`,
	`
		CREATE TABLE IF NOT EXISTS art_catalog.products (
			item_id INT AUTO_INCREMENT PRIMARY KEY,
			artist VARCHAR(255),
			title VARCHAR(255),
			description TEXT,
			width DOUBLE,
			height DOUBLE,
			price DOUBLE,
			img_url VARCHAR(1024),
			comments TEXT
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`,
}

// AutoMigrateProducts creates the art_catalog schema and products table if
// they do not exist, retrying each statement up to retries times.
func AutoMigrateProducts(ctx context.Context, db *sql.DB, retries int) error {
	for _, query := range productStatements {
		_, err := db.ExecContext(ctx, query)
		// Retry creating the table
		for i := 0; err != nil && i < retries; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(1 * time.Second):
			}
			_, err = db.ExecContext(ctx, query)
		}
		if err != nil {
			return fmt.Errorf("migrations.AutoMigrateProducts: %w", err)
		}
	}
	return nil
}
