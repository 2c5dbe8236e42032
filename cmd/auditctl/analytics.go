package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

func decimal(v float64, prec int) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', prec, 64), ".", ",", 1)
}

func periodFlags(cmd *cobra.Command, from, to *string) {
	cmd.Flags().StringVar(from, "from", "", "Period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(to, "to", "", "Period end (YYYY-MM-DD)")
}

func newRankingCmd(root *rootFlags) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Rank analysts by mean grade",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.client()
			if err != nil {
				return err
			}
			entries, err := c.Ranking(root.context(cmd), from, to)
			if err != nil {
				return err
			}

			p := root.printer()
			if p.json {
				return p.JSON(entries)
			}
			if len(entries) == 0 {
				p.Printf("Nenhuma auditoria no período.\n")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.Itoa(e.Position),
					e.Name,
					strconv.Itoa(e.TotalAudits),
					decimal(e.MeanGrade, 2),
					decimal(e.MeanPoints, 2),
					p.badge(e.PredominantClassification),
				})
			}
			return p.table([]string{"#", "ANALISTA", "AUDITORIAS", "NOTA MÉDIA", "PONTOS", "PREDOMINANTE"}, rows)
		},
	}
	periodFlags(cmd, &from, &to)
	return cmd
}

func printDistribution(p *printer, d service.Distribution) {
	for _, c := range scoring.Classifications {
		p.Printf("  %-16s %d\n", p.badge(c), d[c])
	}
}

func newStatsCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <analyst-id>",
		Short: "Show one analyst's audit statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			c, err := root.client()
			if err != nil {
				return err
			}
			stats, err := c.AnalystStats(root.context(cmd), id)
			if err != nil {
				return err
			}

			p := root.printer()
			if p.json {
				return p.JSON(stats)
			}
			p.Printf("Analista:      %s (%s)\n", stats.Analyst.FullName, stats.Analyst.Username)
			p.Printf("Auditorias:    %d\n", stats.TotalAudits)
			p.Printf("Nota média:    %s\n", decimal(stats.MeanGrade, 2))
			if stats.LastAudit != nil {
				p.Printf("Última:        #%d em %s, nota %s (%s)\n", stats.LastAudit.ID, stats.LastAudit.Date,
					scoring.FormatGrade(stats.LastAudit.Grade), stats.LastAudit.Classification)
			}
			p.Printf("Alertas:       %s\n", p.alert(stats.HasAlerts))
			p.Printf("\nDistribuição:\n")
			printDistribution(p, stats.Distribution)
			return nil
		},
	}
}

func newDashboardCmd(root *rootFlags) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Department summary for a period (default: current month)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.client()
			if err != nil {
				return err
			}
			d, err := c.Dashboard(root.context(cmd), from, to)
			if err != nil {
				return err
			}

			p := root.printer()
			if p.json {
				return p.JSON(d)
			}
			p.Printf("Período:       %s a %s\n", d.Period.From, d.Period.To)
			p.Printf("Auditorias:    %d\n", d.TotalAudits)
			p.Printf("Nota média:    %s\n", decimal(d.MeanGrade, 2))
			p.Printf("Alertas:       %d\n", d.TotalAlerts)
			if len(d.AnalystsWithAlerts) > 0 {
				names := make([]string, 0, len(d.AnalystsWithAlerts))
				for _, a := range d.AnalystsWithAlerts {
					names = append(names, a.FullName)
				}
				p.Printf("Com alertas:   %s\n", strings.Join(names, ", "))
			}
			p.Printf("\nDistribuição:\n")
			printDistribution(p, d.Distribution)
			if len(d.Top3) > 0 {
				p.Printf("\nTop 3:\n")
				for i, t := range d.Top3 {
					p.Printf("  %d. %s (%s)\n", i+1, t.Name, decimal(t.MeanGrade, 2))
				}
			}
			return nil
		},
	}
	periodFlags(cmd, &from, &to)
	return cmd
}
