package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/godilite/service-audit/internal/form"
	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

func parseIDArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, exitError(exitInvalid, "invalid id %q", arg)
	}
	return id, nil
}

type submitFlags struct {
	file string
	id   int64
}

type submitOutput struct {
	ID      int64             `json:"id"`
	Updated bool              `json:"atualizada"`
	Message string            `json:"mensagem"`
	Score   service.ScoreView `json:"pontuacao"`
	Drift   []string          `json:"divergencias,omitempty"`
	Preview service.ScoreView `json:"previa"`
}

func newSubmitCmd(root *rootFlags) *cobra.Command {
	f := &submitFlags{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record a new audit, or update one with --id",
		Long: "Reads an audit from a YAML or JSON file in the API's field names. New audits\n" +
			"start from today's date with every criterion met; updates start from the stored\n" +
			"audit. Fields present in the file replace those values.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSubmit(cmd, root, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "YAML or JSON audit file (- for stdin)")
	flags.Int64Var(&f.id, "id", 0, "Audit to update")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSubmit(cmd *cobra.Command, root *rootFlags, f *submitFlags) error {
	in, err := readAuditFile(f.file, cmd.InOrStdin())
	if err != nil {
		return err
	}
	c, err := root.client()
	if err != nil {
		return err
	}
	ctx := root.context(cmd)

	session := form.NewSession(c, root.logger())
	if err := session.Load(ctx); err != nil {
		return err
	}

	draft := session.Draft()
	if f.id != 0 {
		if draft, err = session.BeginEdit(ctx, f.id); err != nil {
			return err
		}
	}

	res, err := session.Submit(ctx, overlay(draft, in))
	if err != nil {
		return err
	}

	p := root.printer()
	preview := service.ScoreView{
		Points:                res.Preview.Points,
		Percent:               res.Preview.Percent,
		Grade:                 res.Preview.Grade,
		Classification:        res.Preview.Classification,
		ClassificationDisplay: res.Preview.DisplayLabel(),
		RequiresAction:        res.Preview.RequiresAction,
	}
	if p.json {
		return p.JSON(submitOutput{
			ID:      res.ID,
			Updated: res.Updated,
			Message: res.Message,
			Score:   res.Confirmed,
			Drift:   res.Drift,
			Preview: preview,
		})
	}
	p.Printf("%s (#%d)\n", res.Message, res.ID)
	printScore(p, res.Confirmed)
	if len(res.Drift) > 0 {
		p.Printf("%s servidor divergiu da prévia em: %s\n",
			p.paint(colorYellow, "atenção:"), strings.Join(res.Drift, ", "))
	}
	return nil
}

type listFlags struct {
	analystID      int64
	from, to       string
	serviceType    string
	classification string
	onlyAlerts     bool
	page, perPage  int
}

func newListCmd(root *rootFlags) *cobra.Command {
	f := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audits, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, root, f)
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&f.analystID, "analyst", 0, "Only this analyst")
	flags.StringVar(&f.from, "from", "", "Service date from (YYYY-MM-DD)")
	flags.StringVar(&f.to, "to", "", "Service date to (YYYY-MM-DD)")
	flags.StringVar(&f.serviceType, "type", "", "cliente or franqueado")
	flags.StringVar(&f.classification, "class", "", "excelente, bom, regular or insatisfatorio")
	flags.BoolVar(&f.onlyAlerts, "alerts", false, "Only audits that require action")
	flags.IntVar(&f.page, "page", 1, "Page number")
	flags.IntVar(&f.perPage, "per-page", 20, "Audits per page")
	return cmd
}

func runList(cmd *cobra.Command, root *rootFlags, f *listFlags) error {
	c, err := root.client()
	if err != nil {
		return err
	}
	res, err := c.ListAudits(root.context(cmd), service.ListQuery{
		AnalystID:      f.analystID,
		DateFrom:       f.from,
		DateTo:         f.to,
		ServiceType:    f.serviceType,
		Classification: f.classification,
		OnlyAlerts:     f.onlyAlerts,
		Page:           f.page,
		PerPage:        f.perPage,
	})
	if err != nil {
		return err
	}

	p := root.printer()
	if p.json {
		return p.JSON(res)
	}
	if len(res.Audits) == 0 {
		p.Printf("Nenhuma auditoria encontrada.\n")
		return nil
	}
	rows := make([][]string, 0, len(res.Audits))
	for _, a := range res.Audits {
		class := p.badge(a.Classification)
		if a.RequiresAction {
			class += " " + p.paint(colorRed, "⚠")
		}
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			a.ServiceDate,
			a.Analyst.FullName,
			a.ServiceType,
			a.ConversationID,
			scoring.FormatGrade(a.Grade),
			class,
		})
	}
	if err := p.table([]string{"ID", "DATA", "ANALISTA", "TIPO", "CONVERSA", "NOTA", "CLASSIFICAÇÃO"}, rows); err != nil {
		return err
	}
	p.Printf("\npágina %d/%d (%d auditorias)\n", res.Page, res.TotalPages, res.Total)
	return nil
}

func newShowCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one audit with its criteria",
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
			detail, err := c.GetAudit(root.context(cmd), id)
			if err != nil {
				return err
			}

			p := root.printer()
			if p.json {
				return p.JSON(detail)
			}
			printAudit(p, detail)
			return nil
		},
	}
}

func printAudit(p *printer, d service.AuditDetail) {
	p.Printf("Auditoria #%d\n", d.ID)
	p.Printf("Analista:      %s (%s)\n", d.Analyst.FullName, d.Analyst.Username)
	if d.Auditor != nil {
		p.Printf("Auditor:       %s (%s)\n", d.Auditor.FullName, d.Auditor.Username)
	}
	p.Printf("Data:          %s\n", d.ServiceDate)
	p.Printf("Conversa:      %s\n", d.ConversationID)
	p.Printf("Tipo:          %s\n", d.ServiceType)
	printScore(p, d.ScoreView)

	p.Printf("\nCritérios:\n")
	for _, c := range scoring.All() {
		e := d.Criteria[c]
		p.Printf("  %s %s\n", p.check(e.Met), c.Label())
		if e.ErrorDescription != "" {
			p.Printf("      erro: %s\n", e.ErrorDescription)
		}
		if e.Evidence != "" {
			p.Printf("      evidência: %s\n", e.Evidence)
		}
	}
}

func newDeleteCmd(root *rootFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an audit",
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
			if !yes && !confirm(cmd, fmt.Sprintf("Excluir a auditoria #%d? [s/N] ", id)) {
				return exitError(exitFailure, "cancelado")
			}
			if err := c.DeleteAudit(root.context(cmd), id); err != nil {
				return err
			}

			p := root.printer()
			if p.json {
				return p.JSON(map[string]any{"id": id, "excluida": true})
			}
			p.Printf("Auditoria #%d excluída.\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprint(cmd.ErrOrStderr(), question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "sim", "y", "yes":
		return true
	}
	return false
}
