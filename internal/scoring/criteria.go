// Package scoring turns the nine audit criteria of a customer-service interaction
// into points, percent, grade and a classification.
package scoring

import (
	"fmt"
	"strings"
)

// Criterion identifies one of the nine fixed audit checks. The numeric order is the
// display order.
type Criterion int

const (
	Presentation Criterion = iota
	HistoryReview
	Understanding
	ClearInformation
	WaitAgreement
	Respectful
	CorrectLanguage
	CorrectClosing
	CorrectProcedure
)

// CriterionCount is the fixed number of criteria in every audit.
const CriterionCount = 9

type criterionInfo struct {
	key      string
	errorKey string
	column   string
	label    string
}

var criteria = [CriterionCount]criterionInfo{
	Presentation:     {"apresentou_corretamente", "erro_apresentacao", "presented_correctly", "Apresentou-se corretamente?"},
	HistoryReview:    {"analisou_historico", "erro_historico", "reviewed_history", "Analisou o histórico?"},
	Understanding:    {"entendeu_solicitacao", "erro_entendimento", "understood_request", "Entendeu a solicitação do cliente/franqueado?"},
	ClearInformation: {"informacao_clara", "erro_informacao", "clear_information", "Passou a informação de forma clara?"},
	WaitAgreement:    {"acordo_espera", "erro_acordo_espera", "wait_agreement", "Realizou acordo de espera corretamente?"},
	Respectful:       {"atendimento_respeitoso", "erro_respeito", "respectful", "Realizou atendimento de forma respeitosa?"},
	CorrectLanguage:  {"portugues_correto", "erro_portugues", "correct_language", "Usou a língua portuguesa de forma correta?"},
	CorrectClosing:   {"finalizacao_correta", "erro_finalizacao", "correct_closing", "Realizou finalização do atendimento corretamente?"},
	CorrectProcedure: {"procedimento_correto", "erro_procedimento", "correct_procedure", "Seguiu o procedimento correto?"},
}

// All returns every criterion in display order.
func All() []Criterion {
	out := make([]Criterion, CriterionCount)
	for i := range out {
		out[i] = Criterion(i)
	}
	return out
}

// Valid reports whether c is one of the nine criteria.
func (c Criterion) Valid() bool {
	return c >= 0 && int(c) < CriterionCount
}

// Key is the wire name of the met/not-met flag.
func (c Criterion) Key() string { return c.info().key }

// ErrorKey is the wire name of the explanation required when the criterion is not met.
func (c Criterion) ErrorKey() string { return c.info().errorKey }

// EvidenceKey is the wire name of the optional evidence attached to the explanation.
func (c Criterion) EvidenceKey() string { return "imagem_" + c.info().errorKey }

// Column is the storage column of the flag. The explanation and evidence columns
// append "_error" and "_evidence".
func (c Criterion) Column() string { return c.info().column }

// Label is the question shown to auditors.
func (c Criterion) Label() string { return c.info().label }

func (c Criterion) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Criterion(%d)", int(c))
	}
	return c.info().key
}

func (c Criterion) info() criterionInfo {
	if !c.Valid() {
		panic(fmt.Sprintf("scoring: invalid criterion %d", int(c)))
	}
	return criteria[c]
}

// CriterionByKey resolves a wire key such as "acordo_espera".
func CriterionByKey(key string) (Criterion, bool) {
	for i, info := range criteria {
		if info.key == key {
			return Criterion(i), true
		}
	}
	return 0, false
}

// Evaluation is the auditor's verdict on one criterion.
type Evaluation struct {
	Met              bool   `json:"met" yaml:"met"`
	ErrorDescription string `json:"error_description,omitempty" yaml:"error_description,omitempty"`
	Evidence         string `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// CriterionSet holds exactly one evaluation per criterion, indexed by Criterion.
type CriterionSet [CriterionCount]Evaluation

// AllMet returns a set where every criterion is satisfied, the state of a fresh form.
func AllMet() CriterionSet {
	var set CriterionSet
	for i := range set {
		set[i].Met = true
	}
	return set
}

// FromValues builds a set from met flags in display order. Anything other than
// exactly nine values is rejected.
func FromValues(values []bool) (CriterionSet, error) {
	var set CriterionSet
	if len(values) != CriterionCount {
		return set, &ValidationError{Problems: []string{
			fmt.Sprintf("expected %d criteria, got %d", CriterionCount, len(values)),
		}}
	}
	for i, v := range values {
		set[i].Met = v
	}
	return set, nil
}

// FromFlags builds a set from wire keys. Every criterion must appear exactly once and
// unknown keys are rejected.
func FromFlags(flags map[string]bool) (CriterionSet, error) {
	var set CriterionSet
	var problems []string
	for key := range flags {
		if _, ok := CriterionByKey(key); !ok {
			problems = append(problems, fmt.Sprintf("unknown criterion %q", key))
		}
	}
	for _, c := range All() {
		v, ok := flags[c.Key()]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing criterion %q", c.Key()))
			continue
		}
		set[c].Met = v
	}
	if len(problems) > 0 {
		return CriterionSet{}, &ValidationError{Problems: problems}
	}
	return set, nil
}

// Get returns the evaluation of c.
func (s CriterionSet) Get(c Criterion) Evaluation {
	return s[c]
}

// Values returns the met flags in display order.
func (s CriterionSet) Values() []bool {
	out := make([]bool, CriterionCount)
	for i, e := range s {
		out[i] = e.Met
	}
	return out
}

// Points counts the satisfied criteria.
func (s CriterionSet) Points() int {
	n := 0
	for _, e := range s {
		if e.Met {
			n++
		}
	}
	return n
}

// Unmet lists the criteria that were not satisfied, in display order.
func (s CriterionSet) Unmet() []Criterion {
	var out []Criterion
	for i, e := range s {
		if !e.Met {
			out = append(out, Criterion(i))
		}
	}
	return out
}

// Normalize trims explanations and evidence. Met criteria keep no explanation.
func (s CriterionSet) Normalize() CriterionSet {
	for i := range s {
		s[i].ErrorDescription = strings.TrimSpace(s[i].ErrorDescription)
		s[i].Evidence = strings.TrimSpace(s[i].Evidence)
		if s[i].Met {
			s[i].ErrorDescription = ""
			s[i].Evidence = ""
		}
	}
	return s
}
