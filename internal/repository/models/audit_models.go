package models

import (
	"errors"
	"strings"
	"time"

	"github.com/godilite/service-audit/internal/scoring"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("record not found")

const (
	RoleAdministrator = "administrador"
	RoleManager       = "gestor"
	RoleAnalyst       = "analista"
)

type User struct {
	ID           int64  `yaml:"id"`
	Username     string `yaml:"username"`
	FirstName    string `yaml:"first_name"`
	LastName     string `yaml:"last_name"`
	Role         string `yaml:"role"`
	DepartmentID int64  `yaml:"department_id"`
	Active       bool   `yaml:"active"`
}

// FullName falls back to the username when no name is on file.
func (u User) FullName() string {
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return u.Username
}

type Audit struct {
	ID             int64
	DepartmentID   int64
	AnalystID      int64
	AuditorID      int64
	ServiceDate    string // YYYY-MM-DD
	ConversationID string
	ServiceType    scoring.ServiceType
	Criteria       scoring.CriterionSet
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AuditRecord is an audit joined with its people. Points is computed by the query.
type AuditRecord struct {
	Audit
	Points  int
	Analyst User
	Auditor User
}

type PointsRange struct {
	Lo int
	Hi int
}

type AuditFilter struct {
	DepartmentID int64
	AnalystID    int64
	DateFrom     string
	DateTo       string
	ServiceType  scoring.ServiceType
	Points       *PointsRange
	// BelowPoints keeps only audits scoring strictly fewer points; nil disables it.
	BelowPoints *int
	Limit       int
	Offset      int
}

type BucketFilter struct {
	DepartmentID int64
	AnalystID    int64
	DateFrom     string
	DateTo       string
}

// PointBucket counts one analyst's audits that scored exactly Points.
type PointBucket struct {
	AnalystID int64
	Username  string
	FirstName string
	LastName  string
	Points    int
	Count     int
}

type Configuration struct {
	ID                       int64
	DepartmentID             int64
	MinimumAcceptablePercent float64
	Active                   bool
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (c Configuration) Scoring() scoring.Configuration {
	return scoring.Configuration{
		MinimumAcceptablePercent: c.MinimumAcceptablePercent,
		Active:                   c.Active,
	}
}
