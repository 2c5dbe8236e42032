package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/service-audit/internal/repository/models"
	"github.com/godilite/service-audit/internal/sanitize"
	"github.com/godilite/service-audit/internal/scoring"
)

const dateLayout = "2006-01-02"

// Criteria is a complete criterion set in its flat wire form:
// {"apresentou_corretamente": true, "erro_apresentacao": "", "imagem_erro_apresentacao": "", ...}.
type Criteria scoring.CriterionSet

func (c Criteria) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 3*scoring.CriterionCount)
	for _, cr := range scoring.All() {
		e := c[cr]
		m[cr.Key()] = e.Met
		m[cr.ErrorKey()] = e.ErrorDescription
		m[cr.EvidenceKey()] = e.Evidence
	}
	return json.Marshal(m)
}

// Set returns the engine form.
func (c Criteria) Set() scoring.CriterionSet { return scoring.CriterionSet(c) }

// UnmarshalJSON requires all nine criterion flags; explanations and evidence are optional.
func (c *Criteria) UnmarshalJSON(data []byte) error {
	var in AuditInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	set, err := in.criteria(scoring.CriterionSet{}, true)
	if err != nil {
		return err
	}
	*c = Criteria(set)
	return nil
}

// CriterionInput carries the submitted fields of one criterion; nil means absent.
type CriterionInput struct {
	Met              *bool
	ErrorDescription *string
	Evidence         *string
}

// AuditInput is a create or update request in the flat wire form. Absent fields
// are nil so that updates can be partial.
type AuditInput struct {
	AnalystID      *int64
	ServiceDate    *string
	ConversationID *string
	ServiceType    *string
	Criteria       [scoring.CriterionCount]CriterionInput
}

// NewAuditInput builds a complete request.
func NewAuditInput(analystID int64, serviceDate, conversationID string, serviceType scoring.ServiceType, set scoring.CriterionSet) AuditInput {
	st := string(serviceType)
	in := AuditInput{
		AnalystID:      &analystID,
		ServiceDate:    &serviceDate,
		ConversationID: &conversationID,
		ServiceType:    &st,
	}
	for i := range set {
		e := set[i]
		in.Criteria[i] = CriterionInput{Met: &e.Met, ErrorDescription: &e.ErrorDescription, Evidence: &e.Evidence}
	}
	return in
}

func (in AuditInput) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)
	if in.AnalystID != nil {
		m["analista_auditado_id"] = *in.AnalystID
	}
	if in.ServiceDate != nil {
		m["data_atendimento"] = *in.ServiceDate
	}
	if in.ConversationID != nil {
		m["id_conversa"] = *in.ConversationID
	}
	if in.ServiceType != nil {
		m["tipo_atendimento"] = *in.ServiceType
	}
	for _, c := range scoring.All() {
		ci := in.Criteria[c]
		if ci.Met != nil {
			m[c.Key()] = *ci.Met
		}
		if ci.ErrorDescription != nil {
			m[c.ErrorKey()] = *ci.ErrorDescription
		}
		if ci.Evidence != nil {
			m[c.EvidenceKey()] = *ci.Evidence
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON ignores unknown keys. A null evidence is read as empty.
func (in *AuditInput) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return invalid("invalid JSON body: %v", err)
	}

	var out AuditInput
	var problems []string
	str := func(key string) *string {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		var s *string
		if err := json.Unmarshal(v, &s); err != nil {
			problems = append(problems, fmt.Sprintf("%s must be a string", key))
			return nil
		}
		if s == nil {
			empty := ""
			return &empty
		}
		return s
	}

	if v, ok := raw["analista_auditado_id"]; ok {
		id, err := parseID(v)
		if err != nil {
			problems = append(problems, "analista_auditado_id must be an integer")
		} else {
			out.AnalystID = &id
		}
	}
	out.ServiceDate = str("data_atendimento")
	out.ConversationID = str("id_conversa")
	out.ServiceType = str("tipo_atendimento")

	for _, c := range scoring.All() {
		if v, ok := raw[c.Key()]; ok {
			var met bool
			if err := json.Unmarshal(v, &met); err != nil {
				problems = append(problems, fmt.Sprintf("%s must be a boolean", c.Key()))
			} else {
				out.Criteria[c].Met = &met
			}
		}
		out.Criteria[c].ErrorDescription = str(c.ErrorKey())
		out.Criteria[c].Evidence = str(c.EvidenceKey())
	}

	if len(problems) > 0 {
		return &scoring.ValidationError{Problems: problems}
	}
	*in = out
	return nil
}

// parseID accepts a JSON number or a numeric string, as HTML forms send both.
func parseID(v json.RawMessage) (int64, error) {
	v = bytes.TrimSpace(v)
	if len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0, err
		}
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	}
	var id int64
	err := json.Unmarshal(v, &id)
	return id, err
}

// criteria merges the submitted criteria over base. With complete set, every flag
// must be present.
func (in AuditInput) criteria(base scoring.CriterionSet, complete bool) (scoring.CriterionSet, error) {
	set := base
	var missing []string
	for _, c := range scoring.All() {
		ci := in.Criteria[c]
		if ci.Met != nil {
			set[c].Met = *ci.Met
		} else if complete {
			missing = append(missing, fmt.Sprintf("campo obrigatório: %s", c.Key()))
		}
		if ci.ErrorDescription != nil {
			set[c].ErrorDescription = sanitize.PlainText(*ci.ErrorDescription)
		}
		if ci.Evidence != nil {
			set[c].Evidence = strings.TrimSpace(*ci.Evidence)
		}
	}
	if len(missing) > 0 {
		return scoring.CriterionSet{}, &scoring.ValidationError{Problems: missing}
	}
	return set.Normalize(), nil
}

// apply merges the request over base and validates the result. Create passes a
// zero base with complete set.
func (in AuditInput) apply(base models.Audit, complete bool) (models.Audit, error) {
	out := base
	var problems []string

	required := func(name string, v *string) (string, bool) {
		if v == nil {
			if complete {
				problems = append(problems, "campo obrigatório: "+name)
			}
			return "", false
		}
		s := strings.TrimSpace(*v)
		if s == "" {
			problems = append(problems, "campo obrigatório: "+name)
			return "", false
		}
		return s, true
	}

	if complete {
		if in.AnalystID == nil || *in.AnalystID <= 0 {
			problems = append(problems, "campo obrigatório: analista_auditado_id")
		} else {
			out.AnalystID = *in.AnalystID
		}
	}
	if s, ok := required("data_atendimento", in.ServiceDate); ok {
		if _, err := time.Parse(dateLayout, s); err != nil {
			problems = append(problems, "data_atendimento must be YYYY-MM-DD")
		} else {
			out.ServiceDate = s
		}
	}
	if s, ok := required("id_conversa", in.ConversationID); ok {
		out.ConversationID = sanitize.Line(s)
	}
	if s, ok := required("tipo_atendimento", in.ServiceType); ok {
		st, err := scoring.ParseServiceType(s)
		if err != nil {
			problems = append(problems, err.Error())
		} else {
			out.ServiceType = st
		}
	}

	set, err := in.criteria(base.Criteria, complete)
	if err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return models.Audit{}, &scoring.ValidationError{Problems: problems}
	}
	if err := scoring.Validate(set); err != nil {
		return models.Audit{}, err
	}
	out.Criteria = set
	return out, nil
}
