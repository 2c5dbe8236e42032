package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/godilite/service-audit/internal/scoring"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[92m"
	colorCyan   = "\033[96m"
	colorYellow = "\033[93m"
	colorRed    = "\033[91m"
	colorGray   = "\033[90m"
)

var classColors = map[scoring.Classification]string{
	scoring.Excellent:      colorGreen,
	scoring.Good:           colorCyan,
	scoring.Regular:        colorYellow,
	scoring.Unsatisfactory: colorRed,
}

type printer struct {
	out   io.Writer
	json  bool
	color bool
}

// newPrinter colours output only when out is a terminal and NO_COLOR is unset.
func newPrinter(out io.Writer, jsonOut bool) *printer {
	p := &printer{out: out, json: jsonOut}
	if f, ok := out.(*os.File); ok && os.Getenv("NO_COLOR") == "" {
		p.color = term.IsTerminal(int(f.Fd()))
	}
	return p
}

func (p *printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (p *printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *printer) paint(color, s string) string {
	if !p.color || color == "" {
		return s
	}
	return color + s + colorReset
}

// badge renders a classification with its colour.
func (p *printer) badge(c scoring.Classification) string {
	return p.paint(classColors[c], c.Display())
}

func (p *printer) alert(requiresAction bool) string {
	if requiresAction {
		return p.paint(colorRed, "SIM")
	}
	return p.paint(colorGray, "não")
}

func (p *printer) check(met bool) string {
	if met {
		return p.paint(colorGreen, "✔")
	}
	return p.paint(colorRed, "✘")
}

// table writes aligned columns. Colour codes are not width-aware, so coloured
// cells go last in a row.
func (p *printer) table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func percent(v float64) string {
	return strings.Replace(fmt.Sprintf("%.2f%%", v), ".", ",", 1)
}
