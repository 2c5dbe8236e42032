package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/godilite/service-audit/internal/form"
	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

// readAuditFile parses a YAML or JSON audit in the API's flat form. A nested
// "criterios" block, as printed by `show --json`, is accepted too. "-" reads stdin.
func readAuditFile(path string, stdin io.Reader) (service.AuditInput, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return service.AuditInput{}, exitError(exitInvalid, "read audit file: %v", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return service.AuditInput{}, exitError(exitInvalid, "parse audit file %s: %v", path, err)
	}
	flat := make(map[string]any, len(doc))
	for k, v := range doc {
		if nested, ok := v.(map[string]any); ok && k == "criterios" {
			for nk, nv := range nested {
				flat[nk] = plain(nv)
			}
			continue
		}
		flat[k] = plain(v)
	}

	raw, err := json.Marshal(flat)
	if err != nil {
		return service.AuditInput{}, fmt.Errorf("encode audit file: %w", err)
	}
	var in service.AuditInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return service.AuditInput{}, exitError(exitInvalid, "audit file %s: %v", path, err)
	}
	return in, nil
}

// plain turns YAML timestamps back into dates.
func plain(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return v
}

// overlay copies the fields present in the input onto a draft.
func overlay(d form.Draft, in service.AuditInput) form.Draft {
	if in.AnalystID != nil {
		d.AnalystID = *in.AnalystID
	}
	if in.ServiceDate != nil {
		d.ServiceDate = *in.ServiceDate
	}
	if in.ConversationID != nil {
		d.ConversationID = *in.ConversationID
	}
	if in.ServiceType != nil {
		d.ServiceType = scoring.ServiceType(*in.ServiceType)
	}
	for i, c := range in.Criteria {
		if c.Met != nil {
			d.Criteria[i].Met = *c.Met
		}
		if c.ErrorDescription != nil {
			d.Criteria[i].ErrorDescription = *c.ErrorDescription
		}
		if c.Evidence != nil {
			d.Criteria[i].Evidence = *c.Evidence
		}
	}
	return d
}
