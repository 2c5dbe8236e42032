package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/service-audit/internal/events"
	"github.com/godilite/service-audit/internal/repository/models"
	"github.com/godilite/service-audit/internal/scoring"
)

const (
	dbTimeout      = 2 * time.Second
	publishTimeout = 3 * time.Second

	defaultPerPage = 20
	maxPerPage     = 100
)

// AuditService records audits and derives every score, ranking and alert from
// their criteria at read time.
type AuditService struct {
	storage   AuditRepository
	publisher events.Publisher
	notifiers []ChangeNotifier
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*AuditService)

// WithChangeNotifier registers n to be told after audits or the threshold change.
func WithChangeNotifier(n ChangeNotifier) Option {
	return func(s *AuditService) {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(storage AuditRepository, publisher events.Publisher, logger *zap.Logger, opts ...Option) *AuditService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &AuditService{
		storage:   storage,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuditService) departmentChanged(ctx context.Context, departmentID int64) {
	for _, n := range s.notifiers {
		n.DepartmentChanged(ctx, departmentID)
	}
}

// configuration returns the department's threshold without creating one.
func (s *AuditService) configuration(ctx context.Context, departmentID int64) (scoring.Configuration, error) {
	cfg, err := s.storage.GetConfiguration(ctx, departmentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return scoring.DefaultConfiguration(), nil
		}
		return scoring.Configuration{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return cfg.Scoring(), nil
}

// ScorePreview scores a criterion set against the actor's current threshold.
func (s *AuditService) ScorePreview(ctx context.Context, actor Actor, set scoring.CriterionSet) (ScorePreview, error) {
	if err := actor.known(); err != nil {
		return ScorePreview{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cfg, err := s.configuration(dbCtx, actor.DepartmentID)
	if err != nil {
		return ScorePreview{}, err
	}
	return ScorePreview{
		ScoreView:                newScoreView(scoring.Score(set), cfg),
		MinimumAcceptablePercent: cfg.MinimumAcceptablePercent,
		Active:                   cfg.Active,
	}, nil
}

// CreateAudit validates and stores a new audit authored by the actor.
func (s *AuditService) CreateAudit(ctx context.Context, actor Actor, in AuditInput) (AuditConfirmation, error) {
	if err := actor.requireManager(); err != nil {
		return AuditConfirmation{}, err
	}

	audit, err := in.apply(models.Audit{}, true)
	if err != nil {
		return AuditConfirmation{}, err
	}
	audit.DepartmentID = actor.DepartmentID
	audit.AuditorID = actor.UserID

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	analyst, err := s.storage.GetUser(dbCtx, audit.AnalystID)
	if err != nil {
		return AuditConfirmation{}, storageError(err, "analista não encontrado")
	}
	if analyst.DepartmentID != actor.DepartmentID {
		return AuditConfirmation{}, fmt.Errorf("analista não encontrado: %w", ErrNotFound)
	}

	id, err := s.storage.CreateAudit(dbCtx, audit)
	if err != nil {
		return AuditConfirmation{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	audit.ID = id
	s.departmentChanged(ctx, actor.DepartmentID)

	cfg, err := s.configuration(dbCtx, actor.DepartmentID)
	if err != nil {
		return AuditConfirmation{}, err
	}
	view := newScoreView(scoring.Score(audit.Criteria), cfg)

	s.logger.Info("audit created",
		zap.Int64("audit_id", id),
		zap.Int64("analyst_id", audit.AnalystID),
		zap.Int64("auditor_id", actor.UserID),
		zap.Int("points", view.Points),
		zap.Bool("requires_action", view.RequiresAction))

	if view.RequiresAction {
		s.publishAlert(ctx, audit, analyst, view, cfg)
	}
	return AuditConfirmation{ID: id, ScoreView: view}, nil
}

// UpdateAudit applies a partial update; the explanation rule is checked on the merged audit.
func (s *AuditService) UpdateAudit(ctx context.Context, actor Actor, id int64, in AuditInput) (AuditConfirmation, error) {
	if err := actor.requireManager(); err != nil {
		return AuditConfirmation{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	current, err := s.storage.GetAudit(dbCtx, id)
	if err != nil {
		return AuditConfirmation{}, storageError(err, "auditoria não encontrada")
	}
	if current.DepartmentID != actor.DepartmentID {
		return AuditConfirmation{}, fmt.Errorf("auditoria não encontrada: %w", ErrNotFound)
	}

	audit, err := in.apply(current.Audit, false)
	if err != nil {
		return AuditConfirmation{}, err
	}
	if err := s.storage.UpdateAudit(dbCtx, audit); err != nil {
		return AuditConfirmation{}, storageError(err, "auditoria não encontrada")
	}
	s.departmentChanged(ctx, actor.DepartmentID)

	cfg, err := s.configuration(dbCtx, actor.DepartmentID)
	if err != nil {
		return AuditConfirmation{}, err
	}
	view := newScoreView(scoring.Score(audit.Criteria), cfg)

	s.logger.Info("audit updated",
		zap.Int64("audit_id", id),
		zap.Int64("editor_id", actor.UserID),
		zap.Int("points", view.Points),
		zap.Bool("requires_action", view.RequiresAction))

	if view.RequiresAction {
		s.publishAlert(ctx, audit, current.Analyst, view, cfg)
	}
	return AuditConfirmation{ID: id, ScoreView: view}, nil
}

// DeleteAudit removes an audit of the actor's department.
func (s *AuditService) DeleteAudit(ctx context.Context, actor Actor, id int64) error {
	if err := actor.requireManager(); err != nil {
		return err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	current, err := s.storage.GetAudit(dbCtx, id)
	if err != nil {
		return storageError(err, "auditoria não encontrada")
	}
	if current.DepartmentID != actor.DepartmentID {
		return fmt.Errorf("auditoria não encontrada: %w", ErrNotFound)
	}
	if err := s.storage.DeleteAudit(dbCtx, id); err != nil {
		return storageError(err, "auditoria não encontrada")
	}
	s.departmentChanged(ctx, actor.DepartmentID)

	s.logger.Info("audit deleted", zap.Int64("audit_id", id), zap.Int64("actor_id", actor.UserID))
	return nil
}

// GetAudit returns one audit with its criteria. Analysts may only read their own.
func (s *AuditService) GetAudit(ctx context.Context, actor Actor, id int64) (AuditDetail, error) {
	if err := actor.known(); err != nil {
		return AuditDetail{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec, err := s.storage.GetAudit(dbCtx, id)
	if err != nil {
		return AuditDetail{}, storageError(err, "auditoria não encontrada")
	}
	if rec.DepartmentID != actor.DepartmentID {
		return AuditDetail{}, fmt.Errorf("auditoria não encontrada: %w", ErrNotFound)
	}
	if actor.IsAnalyst() && rec.AnalystID != actor.UserID {
		return AuditDetail{}, fmt.Errorf("audit %d belongs to another analyst: %w", id, ErrForbidden)
	}

	cfg, err := s.configuration(dbCtx, actor.DepartmentID)
	if err != nil {
		return AuditDetail{}, err
	}
	return AuditDetail{
		AuditSummary: summarize(rec, actor, cfg),
		Criteria:     Criteria(rec.Criteria),
	}, nil
}

// ListAudits returns one page of audits, newest first.
func (s *AuditService) ListAudits(ctx context.Context, actor Actor, q ListQuery) (ListResult, error) {
	if err := actor.known(); err != nil {
		return ListResult{}, err
	}

	filter, err := s.listFilter(actor, q)
	if err != nil {
		return ListResult{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cfg, err := s.configuration(dbCtx, actor.DepartmentID)
	if err != nil {
		return ListResult{}, err
	}
	if q.OnlyAlerts {
		below := cfg.AlertBelowPoints()
		filter.BelowPoints = &below
	}

	page, perPage := pagination(q.Page, q.PerPage)
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	recs, total, err := s.storage.ListAudits(dbCtx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	out := ListResult{
		Audits:     make([]AuditSummary, 0, len(recs)),
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + perPage - 1) / perPage,
	}
	for _, rec := range recs {
		out.Audits = append(out.Audits, summarize(rec, actor, cfg))
	}
	return out, nil
}

func (s *AuditService) listFilter(actor Actor, q ListQuery) (models.AuditFilter, error) {
	f := models.AuditFilter{
		DepartmentID: actor.DepartmentID,
		AnalystID:    q.AnalystID,
	}
	if actor.IsAnalyst() {
		f.AnalystID = actor.UserID
	}

	var err error
	if f.DateFrom, f.DateTo, err = dateRange(q.DateFrom, q.DateTo); err != nil {
		return models.AuditFilter{}, err
	}
	if q.ServiceType != "" {
		if f.ServiceType, err = scoring.ParseServiceType(q.ServiceType); err != nil {
			return models.AuditFilter{}, err
		}
	}
	if q.Classification != "" {
		c, err := scoring.ParseClassification(q.Classification)
		if err != nil {
			return models.AuditFilter{}, err
		}
		lo, hi := c.PointsRange()
		f.Points = &models.PointsRange{Lo: lo, Hi: hi}
	}
	return f, nil
}

func pagination(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// dateRange validates optional YYYY-MM-DD bounds.
func dateRange(from, to string) (string, string, error) {
	for _, d := range []struct{ name, v string }{{"data_inicio", from}, {"data_fim", to}} {
		if d.v == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d.v); err != nil {
			return "", "", invalid("%s must be YYYY-MM-DD", d.name)
		}
	}
	if from != "" && to != "" && from > to {
		return "", "", invalid("data_inicio must not be after data_fim")
	}
	return from, to, nil
}

func personRef(u models.User) PersonRef {
	return PersonRef{ID: u.ID, Username: u.Username, FullName: u.FullName()}
}

func summarize(rec models.AuditRecord, actor Actor, cfg scoring.Configuration) AuditSummary {
	sum := AuditSummary{
		ID:             rec.ID,
		ServiceDate:    rec.ServiceDate,
		ConversationID: rec.ConversationID,
		ServiceType:    rec.ServiceType.Display(),
		ServiceTypeKey: rec.ServiceType,
		Analyst:        personRef(rec.Analyst),
		ScoreView:      newScoreView(scoring.ScorePoints(rec.Points), cfg),
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		CanEdit:        actor.CanManage(),
		CanDelete:      actor.CanManage(),
	}
	if !actor.IsAnalyst() {
		auditor := personRef(rec.Auditor)
		sum.Auditor = &auditor
	}
	return sum
}

func (s *AuditService) publishAlert(ctx context.Context, audit models.Audit, analyst models.User, view ScoreView, cfg scoring.Configuration) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.AlertEvent{
		Type:                     events.AlertRequiresAction,
		AuditID:                  audit.ID,
		DepartmentID:             audit.DepartmentID,
		AnalystID:                audit.AnalystID,
		AnalystName:              analyst.FullName(),
		ConversationID:           audit.ConversationID,
		Points:                   view.Points,
		Percent:                  view.Percent,
		Grade:                    view.Grade,
		Classification:           string(view.Classification),
		MinimumAcceptablePercent: cfg.MinimumAcceptablePercent,
		OccurredAt:               s.now().UTC(),
	}
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.logger.Warn("failed to publish audit alert",
			zap.Int64("audit_id", audit.ID),
			zap.Error(err))
	}
}
