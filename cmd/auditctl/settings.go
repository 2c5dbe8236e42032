package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/godilite/service-audit/internal/service"
)

func newConfigCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change the department's alert threshold",
	}
	cmd.AddCommand(newConfigGetCmd(root), newConfigSetCmd(root))
	return cmd
}

func printConfiguration(p *printer, v service.ConfigurationView) error {
	if p.json {
		return p.JSON(v)
	}
	state := "ativo"
	if !v.Active {
		state = "inativo"
	}
	p.Printf("Percentual mínimo aceitável: %s (%s)\n", percent(v.MinimumAcceptablePercent), state)
	return nil
}

func newConfigGetCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the current threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.client()
			if err != nil {
				return err
			}
			v, err := c.GetConfiguration(root.context(cmd))
			if err != nil {
				return err
			}
			return printConfiguration(root.printer(), v)
		},
	}
}

func newConfigSetCmd(root *rootFlags) *cobra.Command {
	var (
		pct    float64
		active bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the threshold (administrators only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch service.ConfigurationPatch
			if cmd.Flags().Changed("percent") {
				patch.MinimumAcceptablePercent = &pct
			}
			if cmd.Flags().Changed("active") {
				patch.Active = &active
			}
			if patch.MinimumAcceptablePercent == nil && patch.Active == nil {
				return exitError(exitInvalid, "nothing to change: pass --percent and/or --active")
			}

			c, err := root.client()
			if err != nil {
				return err
			}
			v, err := c.UpdateConfiguration(root.context(cmd), patch)
			if err != nil {
				return err
			}
			return printConfiguration(root.printer(), v)
		},
	}
	cmd.Flags().Float64Var(&pct, "percent", 0, "Minimum acceptable percent (0-100)")
	cmd.Flags().BoolVar(&active, "active", true, "Whether the threshold raises alerts")
	return cmd
}

func newAnalystsCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "analysts",
		Short: "List the department's active analysts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.client()
			if err != nil {
				return err
			}
			analysts, err := c.ListAnalysts(root.context(cmd))
			if err != nil {
				return err
			}

			p := root.printer()
			if p.json {
				return p.JSON(analysts)
			}
			rows := make([][]string, 0, len(analysts))
			for _, a := range analysts {
				rows = append(rows, []string{strconv.FormatInt(a.ID, 10), a.Username, a.FullName})
			}
			return p.table([]string{"ID", "USERNAME", "NOME"}, rows)
		},
	}
}
