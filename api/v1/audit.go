// Package v1 is the audit.v1 analytics contract served over gRPC. The messages
// are plain Go structs encoded with the json codec registered in this package.
package v1

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

type TimePeriodRequest struct {
	StartDate *timestamppb.Timestamp `json:"start_date,omitempty"`
	EndDate   *timestamppb.Timestamp `json:"end_date,omitempty"`
}

func (x *TimePeriodRequest) GetStartDate() *timestamppb.Timestamp {
	if x != nil {
		return x.StartDate
	}
	return nil
}

func (x *TimePeriodRequest) GetEndDate() *timestamppb.Timestamp {
	if x != nil {
		return x.EndDate
	}
	return nil
}

// ScoreCriteriaRequest carries the nine criterion flags in display order.
type ScoreCriteriaRequest struct {
	Values []bool `json:"values"`
}

func (x *ScoreCriteriaRequest) GetValues() []bool {
	if x != nil {
		return x.Values
	}
	return nil
}

type ScoreCriteriaResponse struct {
	Points                   int32   `json:"points"`
	Percent                  int32   `json:"percent"`
	Grade                    float64 `json:"grade"`
	Classification           string  `json:"classification"`
	ClassificationDisplay    string  `json:"classification_display"`
	RequiresAction           bool    `json:"requires_action"`
	MinimumAcceptablePercent float64 `json:"minimum_acceptable_percent"`
}

type RankingEntry struct {
	Position                  int32   `json:"position"`
	AnalystId                 int64   `json:"analyst_id"`
	Username                  string  `json:"username"`
	Name                      string  `json:"name"`
	TotalAudits               int64   `json:"total_audits"`
	MeanGrade                 float64 `json:"mean_grade"`
	MeanPoints                float64 `json:"mean_points"`
	PredominantClassification string  `json:"predominant_classification"`
}

type RankingResponse struct {
	Entries []*RankingEntry `json:"entries"`
}

type AnalystStatsRequest struct {
	AnalystId int64 `json:"analyst_id"`
}

func (x *AnalystStatsRequest) GetAnalystId() int64 {
	if x != nil {
		return x.AnalystId
	}
	return 0
}

type ClassificationCount struct {
	Classification string `json:"classification"`
	Count          int64  `json:"count"`
}

type LastAudit struct {
	Id             int64                  `json:"id"`
	CreatedAt      *timestamppb.Timestamp `json:"created_at,omitempty"`
	Grade          float64                `json:"grade"`
	Classification string                 `json:"classification"`
}

type AnalystStatsResponse struct {
	AnalystId    int64                  `json:"analyst_id"`
	Username     string                 `json:"username"`
	Name         string                 `json:"name"`
	TotalAudits  int64                  `json:"total_audits"`
	MeanGrade    float64                `json:"mean_grade"`
	Distribution []*ClassificationCount `json:"distribution"`
	LastAudit    *LastAudit             `json:"last_audit,omitempty"`
	HasAlerts    bool                   `json:"has_alerts"`
}

type AnalystRef struct {
	Id       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

type TopAnalyst struct {
	Id        int64   `json:"id"`
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	MeanGrade float64 `json:"mean_grade"`
}

type DashboardResponse struct {
	StartDate          *timestamppb.Timestamp `json:"start_date,omitempty"`
	EndDate            *timestamppb.Timestamp `json:"end_date,omitempty"`
	TotalAudits        int64                  `json:"total_audits"`
	MeanGrade          float64                `json:"mean_grade"`
	Distribution       []*ClassificationCount `json:"distribution"`
	TotalAlerts        int64                  `json:"total_alerts"`
	AnalystsWithAlerts []*AnalystRef          `json:"analysts_with_alerts"`
	Top                []*TopAnalyst          `json:"top"`
}
