package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Classification is the four-tier label derived from points. Values are the wire keys.
type Classification string

const (
	Excellent      Classification = "excelente"
	Good           Classification = "bom"
	Regular        Classification = "regular"
	Unsatisfactory Classification = "insatisfatorio"
)

// Classifications lists every classification from best to worst.
var Classifications = []Classification{Excellent, Good, Regular, Unsatisfactory}

// ParseClassification accepts a wire key.
func ParseClassification(s string) (Classification, error) {
	c := Classification(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Classifications {
		if c == known {
			return c, nil
		}
	}
	return "", &ValidationError{Problems: []string{fmt.Sprintf("unknown classification %q", s)}}
}

// Display is the localized label.
func (c Classification) Display() string {
	switch c {
	case Excellent:
		return "Excelente"
	case Good:
		return "Bom"
	case Regular:
		return "Regular"
	case Unsatisfactory:
		return "Insatisfatório"
	}
	return string(c)
}

// PointsRange returns the inclusive points interval that maps to c.
func (c Classification) PointsRange() (lo, hi int) {
	switch c {
	case Excellent:
		return 9, 9
	case Good:
		return 7, 8
	case Regular:
		return 5, 6
	default:
		return 0, 4
	}
}

// Rank orders classifications from worst (0) to best (3).
func (c Classification) Rank() int {
	switch c {
	case Excellent:
		return 3
	case Good:
		return 2
	case Regular:
		return 1
	}
	return 0
}

// Result is the score of one criterion set. The JSON names follow the audit API.
type Result struct {
	Points         int            `json:"pontuacao"`
	Percent        int            `json:"percentual"`
	Grade          float64        `json:"nota"`
	Classification Classification `json:"classificacao"`
}

// Score evaluates a criterion set.
func Score(set CriterionSet) Result {
	return ScorePoints(set.Points())
}

// ScorePoints builds the result for an already counted number of points.
func ScorePoints(points int) Result {
	if points < 0 || points > CriterionCount {
		panic(fmt.Sprintf("scoring: points %d out of range [0,%d]", points, CriterionCount))
	}
	return Result{
		Points:         points,
		Percent:        Percent(points),
		Grade:          Grade(points),
		Classification: Classify(points),
	}
}

// Percent is points over nine on a 0-100 scale, rounded half away from zero.
func Percent(points int) int {
	return int(math.Round(float64(points) * 100 / CriterionCount))
}

// Grade is points over nine on a 0-10 scale with one decimal.
func Grade(points int) float64 {
	return math.Round(float64(points)*100/CriterionCount) / 10
}

// Classify maps points to a classification.
func Classify(points int) Classification {
	switch {
	case points == CriterionCount:
		return Excellent
	case points >= 7:
		return Good
	case points >= 5:
		return Regular
	default:
		return Unsatisfactory
	}
}

// RequiresAction reports whether the result falls strictly below the threshold.
func RequiresAction(r Result, minimumAcceptablePercent float64) bool {
	return float64(r.Percent) < minimumAcceptablePercent
}

// MinimumPassingPoints is the smallest point count that does not require action under
// the threshold. It is CriterionCount+1 when even a perfect audit falls short.
func MinimumPassingPoints(minimumAcceptablePercent float64) int {
	for p := 0; p <= CriterionCount; p++ {
		if !RequiresAction(ScorePoints(p), minimumAcceptablePercent) {
			return p
		}
	}
	return CriterionCount + 1
}

// DisplayLabel returns the localized classification label.
func (r Result) DisplayLabel() string {
	return r.Classification.Display()
}

// GradeLabel renders the grade with a decimal comma, e.g. "7,8".
func (r Result) GradeLabel() string {
	return FormatGrade(r.Grade)
}

// FormatGrade renders a grade with one decimal and a decimal comma.
func FormatGrade(g float64) string {
	return strings.Replace(strconv.FormatFloat(g, 'f', 1, 64), ".", ",", 1)
}

// DefaultMinimumAcceptablePercent is 7 of 9 criteria.
const DefaultMinimumAcceptablePercent = 77.78

// Configuration is the per-department pass threshold.
type Configuration struct {
	MinimumAcceptablePercent float64 `json:"percentual_minimo_aceitavel"`
	Active                   bool    `json:"ativo"`
}

// DefaultConfiguration is used when a department has none yet.
func DefaultConfiguration() Configuration {
	return Configuration{MinimumAcceptablePercent: DefaultMinimumAcceptablePercent, Active: true}
}

// Validate checks the threshold bounds.
func (c Configuration) Validate() error {
	if math.IsNaN(c.MinimumAcceptablePercent) || c.MinimumAcceptablePercent < 0 || c.MinimumAcceptablePercent > 100 {
		return &ValidationError{Problems: []string{"percentual_minimo_aceitavel must be between 0 and 100"}}
	}
	return nil
}

// RequiresAction applies the threshold; an inactive configuration never flags.
func (c Configuration) RequiresAction(r Result) bool {
	return c.Active && RequiresAction(r, c.MinimumAcceptablePercent)
}

// AlertBelowPoints is the point count under which audits require action, or 0 when
// nothing can be flagged.
func (c Configuration) AlertBelowPoints() int {
	if !c.Active {
		return 0
	}
	return MinimumPassingPoints(c.MinimumAcceptablePercent)
}

// ServiceType is the kind of customer served.
type ServiceType string

const (
	ServiceCustomer   ServiceType = "cliente"
	ServiceFranchisee ServiceType = "franqueado"
)

// ParseServiceType accepts a wire key.
func ParseServiceType(s string) (ServiceType, error) {
	switch t := ServiceType(strings.ToLower(strings.TrimSpace(s))); t {
	case ServiceCustomer, ServiceFranchisee:
		return t, nil
	}
	return "", &ValidationError{Problems: []string{fmt.Sprintf("unknown tipo_atendimento %q", s)}}
}

// Display is the localized label.
func (t ServiceType) Display() string {
	switch t {
	case ServiceCustomer:
		return "Cliente"
	case ServiceFranchisee:
		return "Franqueado"
	}
	return string(t)
}
