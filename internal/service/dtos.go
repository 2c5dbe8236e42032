package service

import (
	"time"

	"github.com/godilite/service-audit/internal/scoring"
)

// The JSON names below are the audit API contract shared by the HTTP server,
// the gRPC analytics service and the client.

type PersonRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"nome_completo,omitempty"`
}

// ScoreView is a score plus its threshold verdict. It is rebuilt on every read.
type ScoreView struct {
	Points                int                    `json:"pontuacao"`
	Percent               int                    `json:"percentual"`
	Grade                 float64                `json:"nota"`
	Classification        scoring.Classification `json:"classificacao"`
	ClassificationDisplay string                 `json:"classificacao_display"`
	RequiresAction        bool                   `json:"requer_acao"`
}

func newScoreView(r scoring.Result, cfg scoring.Configuration) ScoreView {
	return ScoreView{
		Points:                r.Points,
		Percent:               r.Percent,
		Grade:                 r.Grade,
		Classification:        r.Classification,
		ClassificationDisplay: r.DisplayLabel(),
		RequiresAction:        cfg.RequiresAction(r),
	}
}

// Result converts the view back to an engine result.
func (v ScoreView) Result() scoring.Result {
	return scoring.Result{Points: v.Points, Percent: v.Percent, Grade: v.Grade, Classification: v.Classification}
}

// AuditConfirmation is returned by create and update.
type AuditConfirmation struct {
	ID int64 `json:"id"`
	ScoreView
}

type AuditSummary struct {
	ID             int64               `json:"id"`
	ServiceDate    string              `json:"data_atendimento"`
	ConversationID string              `json:"id_conversa"`
	ServiceType    string              `json:"tipo_atendimento"`
	ServiceTypeKey scoring.ServiceType `json:"tipo_atendimento_key"`
	Analyst        PersonRef           `json:"analista_auditado"`
	// Auditor is withheld from analysts.
	Auditor *PersonRef `json:"auditor,omitempty"`
	ScoreView
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CanEdit   bool      `json:"can_edit"`
	CanDelete bool      `json:"can_delete"`
}

type AuditDetail struct {
	AuditSummary
	Criteria Criteria `json:"criterios"`
}

type ListQuery struct {
	AnalystID      int64
	DateFrom       string
	DateTo         string
	ServiceType    string
	Classification string
	OnlyAlerts     bool
	Page           int
	PerPage        int
}

type ListResult struct {
	Audits     []AuditSummary `json:"auditorias"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	TotalPages int            `json:"total_pages"`
}

type Period struct {
	From string `json:"inicio"`
	To   string `json:"fim"`
}

type RankingEntry struct {
	Position                  int                    `json:"posicao"`
	AnalystID                 int64                  `json:"analista_id"`
	Username                  string                 `json:"analista_username"`
	Name                      string                 `json:"analista_nome"`
	TotalAudits               int                    `json:"total_auditorias"`
	MeanGrade                 float64                `json:"nota_media"`
	MeanPoints                float64                `json:"pontuacao_media"`
	PredominantClassification scoring.Classification `json:"classificacao_predominante"`
}

type LastAuditRef struct {
	ID             int64   `json:"id"`
	Date           string  `json:"data"`
	Grade          float64 `json:"nota"`
	Classification string  `json:"classificacao"`
}

// Distribution counts audits per classification; all four keys are always present.
type Distribution map[scoring.Classification]int

type AnalystStats struct {
	Analyst      PersonRef     `json:"analista"`
	TotalAudits  int           `json:"total_auditorias"`
	MeanGrade    float64       `json:"nota_media"`
	Distribution Distribution  `json:"distribuicao"`
	LastAudit    *LastAuditRef `json:"ultima_auditoria"`
	HasAlerts    bool          `json:"tem_alertas"`
}

type TopAnalyst struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Name      string  `json:"nome"`
	MeanGrade float64 `json:"nota_media"`
}

type Dashboard struct {
	Period             Period       `json:"periodo"`
	TotalAudits        int          `json:"total_auditorias"`
	MeanGrade          float64      `json:"nota_media_geral"`
	Distribution       Distribution `json:"distribuicao"`
	TotalAlerts        int          `json:"total_alertas"`
	AnalystsWithAlerts []PersonRef  `json:"analistas_com_alertas"`
	Top3               []TopAnalyst `json:"top_3"`
}

type ConfigurationView struct {
	ID                       int64   `json:"id"`
	MinimumAcceptablePercent float64 `json:"percentual_minimo_aceitavel"`
	Active                   bool    `json:"ativo"`
}

// Scoring returns the engine configuration.
func (c ConfigurationView) Scoring() scoring.Configuration {
	return scoring.Configuration{MinimumAcceptablePercent: c.MinimumAcceptablePercent, Active: c.Active}
}

// ConfigurationPatch updates only the fields that are set.
type ConfigurationPatch struct {
	MinimumAcceptablePercent *float64 `json:"percentual_minimo_aceitavel,omitempty"`
	Active                   *bool    `json:"ativo,omitempty"`
}

type AnalystView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"nome_completo"`
	Role     string `json:"role"`
}

// ScorePreview is an unsaved score against the department's current threshold.
type ScorePreview struct {
	ScoreView
	MinimumAcceptablePercent float64 `json:"percentual_minimo_aceitavel"`
	Active                   bool    `json:"ativo"`
}
