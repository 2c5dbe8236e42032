package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/godilite/service-audit/internal/form"
	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

type scoreFlags struct {
	file      string
	unmet     []string
	threshold float64
	inactive  bool
	remote    bool
}

func newScoreCmd(root *rootFlags) *cobra.Command {
	f := &scoreFlags{}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Preview the score of a set of criteria",
		Long: "Scores the nine criteria locally. Criteria start as met; --unmet and --file mark\n" +
			"them otherwise. With --remote the department's threshold is read from the server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, root, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "YAML or JSON audit file to read criteria from (- for stdin)")
	flags.StringSliceVar(&f.unmet, "unmet", nil, "Criterion keys that were not met, e.g. acordo_espera")
	flags.Float64Var(&f.threshold, "threshold", scoring.DefaultMinimumAcceptablePercent, "Minimum acceptable percent")
	flags.BoolVar(&f.inactive, "inactive", false, "Treat the threshold as inactive")
	flags.BoolVar(&f.remote, "remote", false, "Ask the server instead of scoring locally")
	return cmd
}

func runScore(cmd *cobra.Command, root *rootFlags, f *scoreFlags) error {
	set := scoring.AllMet()
	if f.file != "" {
		in, err := readAuditFile(f.file, cmd.InOrStdin())
		if err != nil {
			return err
		}
		set = overlay(form.Draft{Criteria: set}, in).Criteria
	}
	for _, key := range f.unmet {
		c, ok := scoring.CriterionByKey(strings.TrimSpace(key))
		if !ok {
			return exitError(exitInvalid, "unknown criterion %q; valid keys: %s", key, criterionKeys())
		}
		set[c].Met = false
	}

	var preview service.ScorePreview
	if f.remote {
		c, err := root.client()
		if err != nil {
			return err
		}
		preview, err = c.ScorePreview(root.context(cmd), set)
		if err != nil {
			return err
		}
	} else {
		cfg := scoring.Configuration{MinimumAcceptablePercent: f.threshold, Active: !f.inactive}
		if err := cfg.Validate(); err != nil {
			return err
		}
		r := scoring.Score(set)
		preview = service.ScorePreview{
			ScoreView: service.ScoreView{
				Points:                r.Points,
				Percent:               r.Percent,
				Grade:                 r.Grade,
				Classification:        r.Classification,
				ClassificationDisplay: r.DisplayLabel(),
				RequiresAction:        cfg.RequiresAction(r),
			},
			MinimumAcceptablePercent: cfg.MinimumAcceptablePercent,
			Active:                   cfg.Active,
		}
	}

	p := root.printer()
	if p.json {
		return p.JSON(preview)
	}
	printScore(p, preview.ScoreView)
	threshold := percent(preview.MinimumAcceptablePercent)
	if !preview.Active {
		threshold += " (inativo)"
	}
	p.Printf("Mínimo:        %s\n", threshold)
	if unmet := set.Unmet(); len(unmet) > 0 {
		p.Printf("\nCritérios não atendidos:\n")
		for _, c := range unmet {
			p.Printf("  %s %s\n", p.check(false), c.Label())
		}
	} else if preview.Points == scoring.CriterionCount {
		p.Printf("\n%s\n", p.paint(colorGreen, "Atendimento perfeito!"))
	}
	return nil
}

func printScore(p *printer, v service.ScoreView) {
	p.Printf("Pontuação:     %d/%d (%d%%)\n", v.Points, scoring.CriterionCount, v.Percent)
	p.Printf("Nota:          %s\n", scoring.FormatGrade(v.Grade))
	p.Printf("Classificação: %s\n", p.badge(v.Classification))
	p.Printf("Requer ação:   %s\n", p.alert(v.RequiresAction))
}

func criterionKeys() string {
	keys := make([]string, 0, scoring.CriterionCount)
	for _, c := range scoring.All() {
		keys = append(keys, c.Key())
	}
	return strings.Join(keys, ", ")
}
