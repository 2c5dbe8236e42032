package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/godilite/service-audit/internal/repository/models"
	"github.com/godilite/service-audit/internal/scoring"
)

const (
	dashboardDays = 30
	topAnalysts   = 3
)

// analystAggregate folds one analyst's point buckets.
type analystAggregate struct {
	id        int64
	username  string
	name      string
	total     int
	gradeSum  float64
	pointsSum int
	alerts    int
	byClass   map[scoring.Classification]int
}

func (a *analystAggregate) meanGrade() float64 {
	if a.total == 0 {
		return 0
	}
	return a.gradeSum / float64(a.total)
}

// predominant is the most frequent classification; ties go to the worse one.
func (a *analystAggregate) predominant() scoring.Classification {
	best := scoring.Unsatisfactory
	bestCount := -1
	for _, c := range scoring.Classifications {
		n := a.byClass[c]
		if n > bestCount || (n == bestCount && c.Rank() < best.Rank()) {
			best, bestCount = c, n
		}
	}
	return best
}

// aggregate groups buckets per analyst. alertBelow is the exclusive points bound
// under which an audit requires action.
func aggregate(buckets []models.PointBucket, alertBelow int) []*analystAggregate {
	byID := make(map[int64]*analystAggregate)
	var out []*analystAggregate
	for _, b := range buckets {
		a, ok := byID[b.AnalystID]
		if !ok {
			u := models.User{Username: b.Username, FirstName: b.FirstName, LastName: b.LastName}
			a = &analystAggregate{
				id:       b.AnalystID,
				username: b.Username,
				name:     u.FullName(),
				byClass:  make(map[scoring.Classification]int),
			}
			byID[b.AnalystID] = a
			out = append(out, a)
		}
		r := scoring.ScorePoints(b.Points)
		a.total += b.Count
		a.gradeSum += r.Grade * float64(b.Count)
		a.pointsSum += b.Points * b.Count
		a.byClass[r.Classification] += b.Count
		if b.Points < alertBelow {
			a.alerts += b.Count
		}
	}
	return out
}

// sortByMeanGrade orders by mean grade, then audit count, then name.
func sortByMeanGrade(aggs []*analystAggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		gi, gj := aggs[i].meanGrade(), aggs[j].meanGrade()
		if gi != gj {
			return gi > gj
		}
		if aggs[i].total != aggs[j].total {
			return aggs[i].total > aggs[j].total
		}
		if ni, nj := strings.ToLower(aggs[i].name), strings.ToLower(aggs[j].name); ni != nj {
			return ni < nj
		}
		return aggs[i].id < aggs[j].id
	})
}

func newDistribution() Distribution {
	d := make(Distribution, len(scoring.Classifications))
	for _, c := range scoring.Classifications {
		d[c] = 0
	}
	return d
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

// Ranking orders the department's analysts by mean grade.
func (s *AuditService) Ranking(ctx context.Context, actor Actor, from, to string) ([]RankingEntry, error) {
	if err := actor.requireManager(); err != nil {
		return nil, err
	}
	from, to, err := dateRange(from, to)
	if err != nil {
		return nil, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	buckets, err := s.storage.PointBuckets(dbCtx, models.BucketFilter{
		DepartmentID: actor.DepartmentID,
		DateFrom:     from,
		DateTo:       to,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	aggs := aggregate(buckets, 0)
	sortByMeanGrade(aggs)

	out := make([]RankingEntry, 0, len(aggs))
	for i, a := range aggs {
		out = append(out, RankingEntry{
			Position:                  i + 1,
			AnalystID:                 a.id,
			Username:                  a.username,
			Name:                      a.name,
			TotalAudits:               a.total,
			MeanGrade:                 round(a.meanGrade(), 2),
			MeanPoints:                round(float64(a.pointsSum)/float64(a.total), 1),
			PredominantClassification: a.predominant(),
		})
	}

	s.logger.Debug("ranking computed",
		zap.Int64("department_id", actor.DepartmentID),
		zap.Int("analysts", len(out)))
	return out, nil
}

// AnalystStats summarizes every audit of one analyst.
func (s *AuditService) AnalystStats(ctx context.Context, actor Actor, analystID int64) (AnalystStats, error) {
	if err := actor.requireManager(); err != nil {
		return AnalystStats{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	analyst, err := s.storage.GetUser(dbCtx, analystID)
	if err != nil {
		return AnalystStats{}, storageError(err, "analista não encontrado")
	}
	if analyst.DepartmentID != actor.DepartmentID {
		return AnalystStats{}, fmt.Errorf("analista não encontrado: %w", ErrNotFound)
	}

	var (
		cfg     scoring.Configuration
		buckets []models.PointBucket
		last    *models.AuditRecord
	)
	g, gctx := errgroup.WithContext(dbCtx)
	g.Go(func() error {
		var err error
		cfg, err = s.configuration(gctx, actor.DepartmentID)
		return err
	})
	g.Go(func() error {
		var err error
		buckets, err = s.storage.PointBuckets(gctx, models.BucketFilter{DepartmentID: actor.DepartmentID, AnalystID: analystID})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		return nil
	})
	g.Go(func() error {
		rec, err := s.storage.LastAudit(gctx, actor.DepartmentID, analystID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		last = &rec
		return nil
	})
	if err := g.Wait(); err != nil {
		return AnalystStats{}, err
	}

	out := AnalystStats{
		Analyst:      personRef(analyst),
		Distribution: newDistribution(),
	}
	aggs := aggregate(buckets, cfg.AlertBelowPoints())
	if len(aggs) == 0 {
		return out, nil
	}
	a := aggs[0]
	out.TotalAudits = a.total
	out.MeanGrade = round(a.meanGrade(), 2)
	for c, n := range a.byClass {
		out.Distribution[c] = n
	}
	out.HasAlerts = a.alerts > 0
	if last != nil {
		r := scoring.ScorePoints(last.Points)
		out.LastAudit = &LastAuditRef{
			ID:             last.ID,
			Date:           last.CreatedAt.Format(dateLayout),
			Grade:          r.Grade,
			Classification: r.DisplayLabel(),
		}
	}
	return out, nil
}

// Dashboard summarizes a period, by default the last 30 days ending today.
// Analysts only see their own audits.
func (s *AuditService) Dashboard(ctx context.Context, actor Actor, from, to string) (Dashboard, error) {
	if err := actor.known(); err != nil {
		return Dashboard{}, err
	}

	today := s.now()
	if to == "" {
		to = today.Format(dateLayout)
	}
	if from == "" {
		from = today.AddDate(0, 0, -dashboardDays).Format(dateLayout)
	}
	from, to, err := dateRange(from, to)
	if err != nil {
		return Dashboard{}, err
	}

	filter := models.BucketFilter{DepartmentID: actor.DepartmentID, DateFrom: from, DateTo: to}
	if actor.IsAnalyst() {
		filter.AnalystID = actor.UserID
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		cfg     scoring.Configuration
		buckets []models.PointBucket
	)
	g, gctx := errgroup.WithContext(dbCtx)
	g.Go(func() error {
		var err error
		cfg, err = s.configuration(gctx, actor.DepartmentID)
		return err
	})
	g.Go(func() error {
		var err error
		buckets, err = s.storage.PointBuckets(gctx, filter)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	out := Dashboard{
		Period:             Period{From: from, To: to},
		Distribution:       newDistribution(),
		AnalystsWithAlerts: []PersonRef{},
		Top3:               []TopAnalyst{},
	}

	aggs := aggregate(buckets, cfg.AlertBelowPoints())
	var gradeSum float64
	for _, a := range aggs {
		out.TotalAudits += a.total
		gradeSum += a.gradeSum
		out.TotalAlerts += a.alerts
		for c, n := range a.byClass {
			out.Distribution[c] += n
		}
		if a.alerts > 0 {
			out.AnalystsWithAlerts = append(out.AnalystsWithAlerts, PersonRef{ID: a.id, Username: a.username})
		}
	}
	if out.TotalAudits > 0 {
		out.MeanGrade = round(gradeSum/float64(out.TotalAudits), 2)
	}

	sortByMeanGrade(aggs)
	for _, a := range aggs[:min(topAnalysts, len(aggs))] {
		out.Top3 = append(out.Top3, TopAnalyst{
			ID:        a.id,
			Username:  a.username,
			Name:      a.name,
			MeanGrade: round(a.meanGrade(), 2),
		})
	}
	return out, nil
}

// GetConfiguration returns the department's configuration, creating the default on first use.
func (s *AuditService) GetConfiguration(ctx context.Context, actor Actor) (ConfigurationView, error) {
	if err := actor.requireManager(); err != nil {
		return ConfigurationView{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cfg, err := s.getOrCreateConfiguration(dbCtx, actor.DepartmentID)
	if err != nil {
		return ConfigurationView{}, err
	}
	return configurationView(cfg), nil
}

// UpdateConfiguration changes the threshold. Administrators only.
func (s *AuditService) UpdateConfiguration(ctx context.Context, actor Actor, patch ConfigurationPatch) (ConfigurationView, error) {
	if err := actor.requireAdmin(); err != nil {
		return ConfigurationView{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cfg, err := s.getOrCreateConfiguration(dbCtx, actor.DepartmentID)
	if err != nil {
		return ConfigurationView{}, err
	}
	if patch.MinimumAcceptablePercent != nil {
		cfg.MinimumAcceptablePercent = *patch.MinimumAcceptablePercent
	}
	if patch.Active != nil {
		cfg.Active = *patch.Active
	}
	if err := cfg.Scoring().Validate(); err != nil {
		return ConfigurationView{}, err
	}

	saved, err := s.storage.SaveConfiguration(dbCtx, cfg)
	if err != nil {
		return ConfigurationView{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	s.departmentChanged(ctx, actor.DepartmentID)

	s.logger.Info("audit configuration updated",
		zap.Int64("department_id", actor.DepartmentID),
		zap.Float64("minimum_acceptable_percent", saved.MinimumAcceptablePercent),
		zap.Bool("active", saved.Active),
		zap.Int64("actor_id", actor.UserID))
	return configurationView(saved), nil
}

func (s *AuditService) getOrCreateConfiguration(ctx context.Context, departmentID int64) (models.Configuration, error) {
	cfg, err := s.storage.GetConfiguration(ctx, departmentID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.Configuration{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	def := scoring.DefaultConfiguration()
	cfg, err = s.storage.SaveConfiguration(ctx, models.Configuration{
		DepartmentID:             departmentID,
		MinimumAcceptablePercent: def.MinimumAcceptablePercent,
		Active:                   def.Active,
	})
	if err != nil {
		return models.Configuration{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return cfg, nil
}

func configurationView(c models.Configuration) ConfigurationView {
	return ConfigurationView{ID: c.ID, MinimumAcceptablePercent: c.MinimumAcceptablePercent, Active: c.Active}
}

// ListAnalysts returns the department's active analysts for selection lists.
func (s *AuditService) ListAnalysts(ctx context.Context, actor Actor) ([]AnalystView, error) {
	if err := actor.requireManager(); err != nil {
		return nil, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	users, err := s.storage.ListAnalysts(dbCtx, actor.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	out := make([]AnalystView, 0, len(users))
	for _, u := range users {
		out = append(out, AnalystView{
			ID:       u.ID,
			Username: u.Username,
			FullName: u.FullName(),
			Role:     RoleDisplay(u.Role),
		})
	}
	return out, nil
}
