package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godilite/service-audit/internal/repository/models"
	"github.com/godilite/service-audit/internal/scoring"
)

// timestampLayout is fixed-width so that string ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

var (
	criterionColumns []string
	pointsExpr       string
	auditSelect      string
)

func init() {
	flags := make([]string, 0, scoring.CriterionCount)
	for _, c := range scoring.All() {
		criterionColumns = append(criterionColumns, c.Column(), c.Column()+"_error", c.Column()+"_evidence")
		flags = append(flags, "a."+c.Column())
	}
	pointsExpr = "(" + strings.Join(flags, " + ") + ")"

	cols := []string{"a.id", "a.department_id", "a.analyst_id", "a.auditor_id", "a.service_date", "a.conversation_id", "a.service_type"}
	for _, c := range criterionColumns {
		cols = append(cols, "a."+c)
	}
	cols = append(cols,
		"a.created_at", "a.updated_at", pointsExpr,
		"an.id", "an.username", "an.first_name", "an.last_name", "an.role", "an.department_id", "an.active",
		"au.id", "au.username", "au.first_name", "au.last_name", "au.role", "au.department_id", "au.active",
	)
	auditSelect = "SELECT " + strings.Join(cols, ", ") + `
		FROM audits AS a
		JOIN users AS an ON an.id = a.analyst_id
		JOIN users AS au ON au.id = a.auditor_id`
}

type AuditRepository struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// NewAuditRepository wraps a pool opened with the given driver name ("sqlite3" or "mysql").
func NewAuditRepository(db *sql.DB, driver string) *AuditRepository {
	return &AuditRepository{
		db:      db,
		dialect: dialectFor(driver),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}

func criterionArgs(set scoring.CriterionSet) []any {
	args := make([]any, 0, len(criterionColumns))
	for _, e := range set {
		args = append(args, e.Met, e.ErrorDescription, e.Evidence)
	}
	return args
}

// CreateAudit inserts the audit and returns its id.
func (r *AuditRepository) CreateAudit(ctx context.Context, a models.Audit) (int64, error) {
	now := formatTime(r.now())

	cols := append([]string{"department_id", "analyst_id", "auditor_id", "service_date", "conversation_id", "service_type"}, criterionColumns...)
	cols = append(cols, "created_at", "updated_at")
	query := fmt.Sprintf("INSERT INTO audits (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

	args := []any{a.DepartmentID, a.AnalystID, a.AuditorID, a.ServiceDate, a.ConversationID, string(a.ServiceType)}
	args = append(args, criterionArgs(a.Criteria)...)
	args = append(args, now, now)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert audit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert audit id: %w", err)
	}
	return id, nil
}

// UpdateAudit rewrites the editable fields of an existing audit.
func (r *AuditRepository) UpdateAudit(ctx context.Context, a models.Audit) error {
	sets := []string{"service_date = ?", "conversation_id = ?", "service_type = ?"}
	for _, c := range criterionColumns {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "updated_at = ?")
	query := "UPDATE audits SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	args := []any{a.ServiceDate, a.ConversationID, string(a.ServiceType)}
	args = append(args, criterionArgs(a.Criteria)...)
	args = append(args, formatTime(r.now()), a.ID)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update audit %d: %w", a.ID, err)
	}
	return expectAffected(res, "update audit", a.ID)
}

// DeleteAudit removes an audit.
func (r *AuditRepository) DeleteAudit(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM audits WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete audit %d: %w", id, err)
	}
	return expectAffected(res, "delete audit", id)
}

func expectAffected(res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d rows affected: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", op, id, models.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAudit(row rowScanner) (models.AuditRecord, error) {
	var (
		rec                  models.AuditRecord
		serviceType          string
		createdAt, updatedAt string
	)
	dest := []any{
		&rec.ID, &rec.DepartmentID, &rec.AnalystID, &rec.AuditorID,
		&rec.ServiceDate, &rec.ConversationID, &serviceType,
	}
	for i := range rec.Criteria {
		e := &rec.Criteria[i]
		dest = append(dest, &e.Met, &e.ErrorDescription, &e.Evidence)
	}
	an, au := &rec.Analyst, &rec.Auditor
	dest = append(dest,
		&createdAt, &updatedAt, &rec.Points,
		&an.ID, &an.Username, &an.FirstName, &an.LastName, &an.Role, &an.DepartmentID, &an.Active,
		&au.ID, &au.Username, &au.FirstName, &au.LastName, &au.Role, &au.DepartmentID, &au.Active,
	)
	if err := row.Scan(dest...); err != nil {
		return models.AuditRecord{}, err
	}

	rec.ServiceType = scoring.ServiceType(serviceType)
	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.AuditRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.AuditRecord{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return rec, nil
}

// GetAudit fetches one audit with its analyst and auditor.
func (r *AuditRepository) GetAudit(ctx context.Context, id int64) (models.AuditRecord, error) {
	rec, err := scanAudit(r.db.QueryRowContext(ctx, auditSelect+" WHERE a.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AuditRecord{}, fmt.Errorf("audit %d: %w", id, models.ErrNotFound)
		}
		return models.AuditRecord{}, fmt.Errorf("query GetAudit: %w", err)
	}
	return rec, nil
}

func auditWhere(f models.AuditFilter) (string, []any) {
	conds := []string{"a.department_id = ?"}
	args := []any{f.DepartmentID}

	if f.AnalystID != 0 {
		conds = append(conds, "a.analyst_id = ?")
		args = append(args, f.AnalystID)
	}
	if f.DateFrom != "" {
		conds = append(conds, "a.service_date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		conds = append(conds, "a.service_date <= ?")
		args = append(args, f.DateTo)
	}
	if f.ServiceType != "" {
		conds = append(conds, "a.service_type = ?")
		args = append(args, string(f.ServiceType))
	}
	if f.Points != nil {
		conds = append(conds, pointsExpr+" BETWEEN ? AND ?")
		args = append(args, f.Points.Lo, f.Points.Hi)
	}
	if f.BelowPoints != nil {
		conds = append(conds, pointsExpr+" < ?")
		args = append(args, *f.BelowPoints)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListAudits returns one page of matching audits, newest first, and the total match count.
func (r *AuditRepository) ListAudits(ctx context.Context, f models.AuditFilter) ([]models.AuditRecord, int, error) {
	where, args := auditWhere(f)

	var total int
	countQuery := "SELECT COUNT(*) FROM audits AS a" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ListAudits: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	query := auditSelect + where + " ORDER BY a.created_at DESC, a.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query ListAudits: %w", err)
	}
	defer rows.Close()

	var out []models.AuditRecord
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ListAudits row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ListAudits: %w", err)
	}
	return out, total, nil
}

// LastAudit returns the most recently created audit of an analyst.
func (r *AuditRepository) LastAudit(ctx context.Context, departmentID, analystID int64) (models.AuditRecord, error) {
	recs, _, err := r.ListAudits(ctx, models.AuditFilter{DepartmentID: departmentID, AnalystID: analystID, Limit: 1})
	if err != nil {
		return models.AuditRecord{}, err
	}
	if len(recs) == 0 {
		return models.AuditRecord{}, fmt.Errorf("last audit of analyst %d: %w", analystID, models.ErrNotFound)
	}
	return recs[0], nil
}

// PointBuckets counts audits per analyst and point total. Every aggregate the
// service reports is derived from these buckets.
func (r *AuditRepository) PointBuckets(ctx context.Context, f models.BucketFilter) ([]models.PointBucket, error) {
	where, args := auditWhere(models.AuditFilter{
		DepartmentID: f.DepartmentID,
		AnalystID:    f.AnalystID,
		DateFrom:     f.DateFrom,
		DateTo:       f.DateTo,
	})

	query := `
		SELECT
			a.analyst_id,
			an.username,
			an.first_name,
			an.last_name,
			` + pointsExpr + ` AS points,
			COUNT(a.id) AS audit_count
		FROM audits AS a
		JOIN users AS an ON an.id = a.analyst_id` + where + `
		GROUP BY a.analyst_id, an.username, an.first_name, an.last_name, points
		ORDER BY a.analyst_id, points`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query PointBuckets: %w", err)
	}
	defer rows.Close()

	var out []models.PointBucket
	for rows.Next() {
		var b models.PointBucket
		if err := rows.Scan(&b.AnalystID, &b.Username, &b.FirstName, &b.LastName, &b.Points, &b.Count); err != nil {
			return nil, fmt.Errorf("scan PointBuckets row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate PointBuckets: %w", err)
	}
	return out, nil
}

// GetConfiguration returns the department's threshold configuration.
func (r *AuditRepository) GetConfiguration(ctx context.Context, departmentID int64) (models.Configuration, error) {
	const query = `
		SELECT id, department_id, minimum_acceptable_percent, active, created_at, updated_at
		FROM audit_configurations
		WHERE department_id = ?`

	var (
		c                    models.Configuration
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx, query, departmentID).
		Scan(&c.ID, &c.DepartmentID, &c.MinimumAcceptablePercent, &c.Active, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Configuration{}, fmt.Errorf("configuration of department %d: %w", departmentID, models.ErrNotFound)
		}
		return models.Configuration{}, fmt.Errorf("query GetConfiguration: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Configuration{}, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Configuration{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return c, nil
}

// SaveConfiguration creates or replaces the department's configuration.
func (r *AuditRepository) SaveConfiguration(ctx context.Context, c models.Configuration) (models.Configuration, error) {
	now := formatTime(r.now())
	_, err := r.db.ExecContext(ctx, r.dialect.upsertConfig, c.DepartmentID, c.MinimumAcceptablePercent, c.Active, now, now)
	if err != nil {
		return models.Configuration{}, fmt.Errorf("save configuration: %w", err)
	}
	return r.GetConfiguration(ctx, c.DepartmentID)
}

const userColumns = "id, username, first_name, last_name, role, department_id, active"

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Role, &u.DepartmentID, &u.Active)
	return u, err
}

// GetUser fetches a user by id.
func (r *AuditRepository) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
		}
		return models.User{}, fmt.Errorf("query GetUser: %w", err)
	}
	return u, nil
}

// ListAnalysts returns the active analysts of a department ordered by name.
func (r *AuditRepository) ListAnalysts(ctx context.Context, departmentID int64) ([]models.User, error) {
	query := "SELECT " + userColumns + ` FROM users
		WHERE department_id = ? AND role = ? AND active = ?
		ORDER BY first_name, last_name, username`

	rows, err := r.db.QueryContext(ctx, query, departmentID, models.RoleAnalyst, true)
	if err != nil {
		return nil, fmt.Errorf("query ListAnalysts: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListAnalysts row: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListAnalysts: %w", err)
	}
	return out, nil
}

// CreateUser inserts a directory user. A zero ID lets the database assign one.
func (r *AuditRepository) CreateUser(ctx context.Context, u models.User) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if u.ID != 0 {
		res, err = r.db.ExecContext(ctx,
			"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
			u.ID, u.Username, u.FirstName, u.LastName, u.Role, u.DepartmentID, u.Active)
	} else {
		res, err = r.db.ExecContext(ctx,
			"INSERT INTO users (username, first_name, last_name, role, department_id, active) VALUES (?, ?, ?, ?, ?, ?)",
			u.Username, u.FirstName, u.LastName, u.Role, u.DepartmentID, u.Active)
	}
	if err != nil {
		return 0, fmt.Errorf("insert user %q: %w", u.Username, err)
	}
	if u.ID != 0 {
		return u.ID, nil
	}
	return res.LastInsertId()
}
