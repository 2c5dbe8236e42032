package httpapi

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/godilite/service-audit/internal/service"
)

func (s *Server) createAudit(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.AuditInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.audits.CreateAudit(r.Context(), actor, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, "auditoria", res)
}

func (s *Server) updateAudit(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.AuditInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.audits.UpdateAudit(r.Context(), actor, id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, "auditoria", res)
}

func (s *Server) deleteAudit(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.audits.DeleteAudit(r.Context(), actor, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, "", nil)
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := s.audits.GetAudit(r.Context(), actor, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, "auditoria", detail)
}

func (s *Server) listAudits(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.audits.ListAudits(r.Context(), actor, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		service.ListResult
	}{true, res})
}

func parseListQuery(v url.Values) (service.ListQuery, error) {
	q := service.ListQuery{
		DateFrom:       v.Get("data_inicio"),
		DateTo:         v.Get("data_fim"),
		ServiceType:    v.Get("tipo"),
		Classification: v.Get("classificacao"),
	}
	ints := []struct {
		key  string
		dest *int
	}{{"page", &q.Page}, {"per_page", &q.PerPage}}
	for _, f := range ints {
		if raw := v.Get(f.key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return service.ListQuery{}, invalidRequest(f.key + " deve ser um número")
			}
			*f.dest = n
		}
	}
	if raw := v.Get("analista_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return service.ListQuery{}, invalidRequest("analista_id deve ser um número")
		}
		q.AnalystID = id
	}
	switch v.Get("apenas_alertas") {
	case "true", "1", "on":
		q.OnlyAlerts = true
	}
	return q, nil
}

func (s *Server) ranking(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	entries, err := s.audits.Ranking(r.Context(), actor, q.Get("data_inicio"), q.Get("data_fim"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, "ranking", entries)
}

func (s *Server) analystStats(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stats, err := s.audits.AnalystStats(r.Context(), actor, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		service.AnalystStats
	}{true, stats})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	d, err := s.audits.Dashboard(r.Context(), actor, q.Get("data_inicio"), q.Get("data_fim"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		service.Dashboard
	}{true, d})
}

func (s *Server) getConfiguration(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cfg, err := s.audits.GetConfiguration(r.Context(), actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, "configuracao", cfg)
}

func (s *Server) updateConfiguration(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch service.ConfigurationPatch
	if err := decodeBody(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	cfg, err := s.audits.UpdateConfiguration(r.Context(), actor, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, "configuracao", cfg)
}

func (s *Server) listAnalysts(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	analysts, err := s.audits.ListAnalysts(r.Context(), actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, "analistas", analysts)
}

// scorePreview scores the nine flags against the department threshold without saving.
func (s *Server) scorePreview(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var criteria service.Criteria
	if err := decodeBody(w, r, &criteria); err != nil {
		s.writeError(w, r, err)
		return
	}
	preview, err := s.audits.ScorePreview(r.Context(), actor, criteria.Set())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, "score", preview)
}
