package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/godilite/service-audit/internal/scoring"
)

type dialect struct {
	name             string
	autoIncrementKey string
	boolType         string
	shortText        string
	longText         string
	percentType      string
	upsertConfig     string
	inlineIndexes    bool
}

var (
	sqliteDialect = dialect{
		name:             "sqlite3",
		autoIncrementKey: "INTEGER PRIMARY KEY AUTOINCREMENT",
		boolType:         "INTEGER",
		shortText:        "TEXT",
		longText:         "TEXT",
		percentType:      "REAL",
		upsertConfig: `
			INSERT INTO audit_configurations (department_id, minimum_acceptable_percent, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(department_id) DO UPDATE SET
				minimum_acceptable_percent = excluded.minimum_acceptable_percent,
				active = excluded.active,
				updated_at = excluded.updated_at`,
	}

	mysqlDialect = dialect{
		name:             "mysql",
		autoIncrementKey: "BIGINT AUTO_INCREMENT PRIMARY KEY",
		boolType:         "BOOLEAN",
		shortText:        "VARCHAR(200)",
		longText:         "MEDIUMTEXT",
		percentType:      "DECIMAL(5,2)",
		inlineIndexes:    true,
		upsertConfig: `
			INSERT INTO audit_configurations (department_id, minimum_acceptable_percent, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				minimum_acceptable_percent = VALUES(minimum_acceptable_percent),
				active = VALUES(active),
				updated_at = VALUES(updated_at)`,
	}
)

func dialectFor(driver string) dialect {
	if driver == mysqlDialect.name {
		return mysqlDialect
	}
	return sqliteDialect
}

func (d dialect) schema() []string {
	var crit strings.Builder
	for _, c := range scoring.All() {
		fmt.Fprintf(&crit, "\t\t%s %s NOT NULL DEFAULT 1,\n", c.Column(), d.boolType)
		fmt.Fprintf(&crit, "\t\t%s_error %s NOT NULL,\n", c.Column(), d.longText)
		fmt.Fprintf(&crit, "\t\t%s_evidence %s NOT NULL,\n", c.Column(), d.longText)
	}

	users := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS users (
		id %[1]s,
		username %[2]s NOT NULL UNIQUE,
		first_name %[2]s NOT NULL DEFAULT '',
		last_name %[2]s NOT NULL DEFAULT '',
		role %[2]s NOT NULL,
		department_id BIGINT NOT NULL,
		active %[3]s NOT NULL DEFAULT 1
	)`, d.autoIncrementKey, d.shortText, d.boolType)

	auditIndexes := ""
	if d.inlineIndexes {
		auditIndexes = `,
		INDEX idx_audits_analyst_date (analyst_id, service_date),
		INDEX idx_audits_department_date (department_id, service_date)`
	}
	audits := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS audits (
		id %[1]s,
		department_id BIGINT NOT NULL,
		analyst_id BIGINT NOT NULL,
		auditor_id BIGINT NOT NULL,
		service_date VARCHAR(10) NOT NULL,
		conversation_id %[2]s NOT NULL,
		service_type VARCHAR(20) NOT NULL,
%[3]s		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL%[4]s
	)`, d.autoIncrementKey, d.shortText, crit.String(), auditIndexes)

	configs := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS audit_configurations (
		id %[1]s,
		department_id BIGINT NOT NULL UNIQUE,
		minimum_acceptable_percent %[2]s NOT NULL,
		active %[3]s NOT NULL DEFAULT 1,
		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL
	)`, d.autoIncrementKey, d.percentType, d.boolType)

	stmts := []string{users, audits, configs}
	if !d.inlineIndexes {
		stmts = append(stmts,
			`CREATE INDEX IF NOT EXISTS idx_audits_analyst_date ON audits (analyst_id, service_date)`,
			`CREATE INDEX IF NOT EXISTS idx_audits_department_date ON audits (department_id, service_date)`,
		)
	}
	return stmts
}

// Migrate creates the tables when they are missing.
func (r *AuditRepository) Migrate(ctx context.Context) error {
	for _, stmt := range r.dialect.schema() {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", r.dialect.name, err)
		}
	}
	return nil
}
