// Package form drives the audit form: a Session holds what one user sees while
// recording, editing and browsing audits, and each exported method is one command.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

const (
	dateLayout     = "2006-01-02"
	defaultPerPage = 20
)

// API is the part of the audit service a form session calls.
type API interface {
	GetConfiguration(ctx context.Context) (service.ConfigurationView, error)
	UpdateConfiguration(ctx context.Context, patch service.ConfigurationPatch) (service.ConfigurationView, error)
	ListAnalysts(ctx context.Context) ([]service.AnalystView, error)
	GetAudit(ctx context.Context, id int64) (service.AuditDetail, error)
	CreateAudit(ctx context.Context, in service.AuditInput) (service.AuditConfirmation, error)
	UpdateAudit(ctx context.Context, id int64, in service.AuditInput) (service.AuditConfirmation, error)
	DeleteAudit(ctx context.Context, id int64) error
	ListAudits(ctx context.Context, q service.ListQuery) (service.ListResult, error)
}

// Draft is the content of the form.
type Draft struct {
	AnalystID      int64
	ServiceDate    string
	ConversationID string
	ServiceType    scoring.ServiceType
	Criteria       scoring.CriterionSet
}

// Preview is the locally computed score of a draft.
type Preview struct {
	scoring.Result
	RequiresAction bool
	// Perfect is set when the draft just reached nine points.
	Perfect bool
}

// SubmitResult reports what the server stored.
type SubmitResult struct {
	ID        int64
	Updated   bool
	Preview   Preview
	Confirmed service.ScoreView
	// Drift lists the fields where the server disagrees with the local preview.
	Drift   []string
	Message string
}

// Session is the state of one form. It is not safe for concurrent use.
type Session struct {
	api    API
	logger *zap.Logger
	now    func() time.Time

	config    scoring.Configuration
	loaded    bool
	analysts  []service.AnalystView
	editingID int64
	draft     Draft
	lastPts   int
	filters   service.ListQuery
	page      int
	pages     int
}

// NewSession starts with the default threshold and a fresh draft. Call Load to
// fetch the department's configuration and analysts.
func NewSession(api API, logger *zap.Logger) *Session {
	if api == nil {
		panic("nil API provided to NewSession")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		api:    api,
		logger: logger.Named("form"),
		now:    time.Now,
		config: scoring.DefaultConfiguration(),
		page:   1,
		pages:  1,
	}
	s.Reset()
	return s
}

// Load replaces the configuration and analyst snapshots.
func (s *Session) Load(ctx context.Context) error {
	var (
		cfg      service.ConfigurationView
		analysts []service.AnalystView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cfg, err = s.api.GetConfiguration(gctx)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		analysts, err = s.api.ListAnalysts(gctx)
		if err != nil {
			return fmt.Errorf("load analysts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.config = cfg.Scoring()
	s.analysts = analysts
	s.loaded = true
	s.logger.Debug("session loaded",
		zap.Float64("minimum_acceptable_percent", s.config.MinimumAcceptablePercent),
		zap.Int("analysts", len(analysts)))
	return nil
}

func (s *Session) Config() scoring.Configuration { return s.config }

func (s *Session) Analysts() []service.AnalystView { return s.analysts }

// EditingID is the audit being edited, or 0 when the form creates a new one.
func (s *Session) EditingID() int64 { return s.editingID }

func (s *Session) Draft() Draft { return s.draft }

// Page returns the current list page and the page count.
func (s *Session) Page() (page, pages int) { return s.page, s.pages }

func (s *Session) Filters() service.ListQuery { return s.filters }

// Preview scores the criteria against the configuration snapshot.
func (s *Session) Preview(set scoring.CriterionSet) Preview {
	r := scoring.Score(set)
	p := Preview{
		Result:         r,
		RequiresAction: s.config.RequiresAction(r),
		Perfect:        r.Points == scoring.CriterionCount && s.lastPts != scoring.CriterionCount,
	}
	s.lastPts = r.Points
	return p
}

// Reset returns to create mode with every criterion met and today's date.
func (s *Session) Reset() {
	s.editingID = 0
	s.lastPts = -1
	s.draft = Draft{
		ServiceDate: s.now().Format(dateLayout),
		Criteria:    scoring.AllMet(),
	}
}

// BeginEdit loads an audit into the draft and switches to edit mode.
func (s *Session) BeginEdit(ctx context.Context, id int64) (Draft, error) {
	detail, err := s.api.GetAudit(ctx, id)
	if err != nil {
		return Draft{}, fmt.Errorf("load audit %d: %w", id, err)
	}
	s.editingID = detail.ID
	s.draft = Draft{
		AnalystID:      detail.Analyst.ID,
		ServiceDate:    detail.ServiceDate,
		ConversationID: detail.ConversationID,
		ServiceType:    detail.ServiceTypeKey,
		Criteria:       detail.Criteria.Set(),
	}
	return s.draft, nil
}

// check applies the submit preconditions locally so that the user gets every
// problem at once without a round trip.
func (s *Session) check(d Draft) error {
	var problems []string
	if d.AnalystID <= 0 {
		problems = append(problems, "campo obrigatório: analista_auditado_id")
	} else if s.loaded && !s.knownAnalyst(d.AnalystID) {
		problems = append(problems, fmt.Sprintf("analista %d não pertence ao departamento", d.AnalystID))
	}
	if _, err := time.Parse(dateLayout, d.ServiceDate); err != nil {
		problems = append(problems, "data_atendimento deve estar no formato AAAA-MM-DD")
	}
	if strings.TrimSpace(d.ConversationID) == "" {
		problems = append(problems, "campo obrigatório: id_conversa")
	}
	if _, err := scoring.ParseServiceType(string(d.ServiceType)); err != nil {
		problems = append(problems, err.Error())
	}

	verr := &scoring.ValidationError{Problems: problems}
	var ve *scoring.ValidationError
	if err := scoring.Validate(d.Criteria); errors.As(err, &ve) {
		verr.Problems = append(verr.Problems, ve.Problems...)
		verr.Missing = ve.Missing
	}
	if len(verr.Problems) > 0 || len(verr.Missing) > 0 {
		return verr
	}
	return nil
}

func (s *Session) knownAnalyst(id int64) bool {
	for _, a := range s.analysts {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Submit validates the draft, previews it, creates or updates depending on the
// edit mode and compares the stored score with the preview. On success the form
// is reset.
func (s *Session) Submit(ctx context.Context, d Draft) (SubmitResult, error) {
	s.draft = d
	if err := s.check(d); err != nil {
		return SubmitResult{}, err
	}
	preview := s.Preview(d.Criteria)
	in := service.NewAuditInput(d.AnalystID, d.ServiceDate, d.ConversationID, d.ServiceType, d.Criteria)

	var (
		confirmed service.AuditConfirmation
		err       error
	)
	updated := s.editingID != 0
	if updated {
		confirmed, err = s.api.UpdateAudit(ctx, s.editingID, in)
	} else {
		confirmed, err = s.api.CreateAudit(ctx, in)
	}
	if err != nil {
		return SubmitResult{}, fmt.Errorf("save audit: %w", err)
	}

	res := SubmitResult{
		ID:        confirmed.ID,
		Updated:   updated,
		Preview:   preview,
		Confirmed: confirmed.ScoreView,
		Drift:     drift(preview, confirmed.ScoreView),
	}
	if updated {
		res.Message = "Auditoria atualizada com sucesso!"
	} else {
		res.Message = fmt.Sprintf("Auditoria salva com nota %s - %s",
			scoring.FormatGrade(confirmed.Grade), confirmed.Classification)
	}
	if len(res.Drift) > 0 {
		s.logger.Warn("server score differs from preview",
			zap.Int64("audit_id", confirmed.ID), zap.Strings("fields", res.Drift))
	}
	s.Reset()
	return res, nil
}

// drift names the score fields that differ. A threshold change between Load and
// Submit shows up as requer_acao drift only.
func drift(p Preview, c service.ScoreView) []string {
	var out []string
	if p.Points != c.Points {
		out = append(out, "pontuacao")
	}
	if p.Percent != c.Percent {
		out = append(out, "percentual")
	}
	if p.Grade != c.Grade {
		out = append(out, "nota")
	}
	if p.Classification != c.Classification {
		out = append(out, "classificacao")
	}
	if p.RequiresAction != c.RequiresAction {
		out = append(out, "requer_acao")
	}
	return out
}

// Delete removes an audit, leaves edit mode if it was the one being edited and
// reloads the current page.
func (s *Session) Delete(ctx context.Context, id int64) (service.ListResult, error) {
	if err := s.api.DeleteAudit(ctx, id); err != nil {
		return service.ListResult{}, fmt.Errorf("delete audit %d: %w", id, err)
	}
	if s.editingID == id {
		s.Reset()
	}
	return s.List(ctx, s.page)
}

// ApplyFilters replaces the list filters and goes back to the first page.
func (s *Session) ApplyFilters(ctx context.Context, q service.ListQuery) (service.ListResult, error) {
	q.Page, q.PerPage = 0, 0
	s.filters = q
	return s.List(ctx, 1)
}

// List fetches one page under the current filters.
func (s *Session) List(ctx context.Context, page int) (service.ListResult, error) {
	if page < 1 {
		page = 1
	}
	q := s.filters
	q.Page = page
	q.PerPage = defaultPerPage

	res, err := s.api.ListAudits(ctx, q)
	if err != nil {
		return service.ListResult{}, fmt.Errorf("list audits: %w", err)
	}
	s.page, s.pages = res.Page, res.TotalPages
	if s.pages < 1 {
		s.pages = 1
	}
	return res, nil
}

// UpdateThreshold changes the department threshold and replaces the snapshot with
// what the server stored. A nil active keeps the current flag.
func (s *Session) UpdateThreshold(ctx context.Context, percent float64, active *bool) (scoring.Configuration, error) {
	if err := (scoring.Configuration{MinimumAcceptablePercent: percent}).Validate(); err != nil {
		return scoring.Configuration{}, err
	}
	view, err := s.api.UpdateConfiguration(ctx, service.ConfigurationPatch{
		MinimumAcceptablePercent: &percent,
		Active:                   active,
	})
	if err != nil {
		return scoring.Configuration{}, fmt.Errorf("update configuration: %w", err)
	}
	s.config = view.Scoring()
	return s.config, nil
}
