package mysql

import (
	"context"
	"database/sql"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/jamilsonokay/iam-ai-chatbot/internal/profile"
	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

type DB struct {
	db      *sql.DB
	config  *mysql.Config
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	// Open MySQL connection with parameter.
	// multiStatements=true is required for migration.
	// See more in: https://github.com/go-sql-driver/mysql#multistatements
	dsn, err := mergeDSN(profile.DSN)
	if err != nil {
		return nil, err
	}

	driver := DB{profile: profile}
	driver.config, err = mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse DSN")
	}

	driver.db, err = sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db: %s", profile.DSN)
	}
	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS `conversation` (" +
			"`id` VARCHAR(64) NOT NULL PRIMARY KEY," +
			"`user_id` VARCHAR(256) NOT NULL," +
			"`messages` LONGTEXT NOT NULL," +
			"`created_ts` TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP," +
			"`updated_ts` TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP," +
			"INDEX `idx_conversation_user_id` (`user_id`))",
		"CREATE TABLE IF NOT EXISTS `reservation` (" +
			"`id` VARCHAR(64) NOT NULL PRIMARY KEY," +
			"`user_id` VARCHAR(256) NOT NULL," +
			"`details` TEXT NOT NULL," +
			"`has_completed_payment` BOOLEAN NOT NULL DEFAULT FALSE," +
			"`created_ts` TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP," +
			"INDEX `idx_reservation_user_id` (`user_id`))",
	}
	for _, s := range stmts {
		if _, err := d.db.ExecContext(ctx, s); err != nil {
			return errors.Wrap(err, "failed to migrate mysql schema")
		}
	}
	return nil
}

func mergeDSN(baseDSN string) (string, error) {
	config, err := mysql.ParseDSN(baseDSN)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse DSN: %s", baseDSN)
	}

	config.MultiStatements = true
	return config.FormatDSN(), nil
}
