package main

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/service-audit/internal/client"
	"github.com/godilite/service-audit/internal/service"
)

// rootFlags are shared by every command that talks to the server.
type rootFlags struct {
	apiURL       string
	userID       int64
	role         string
	departmentID int64
	timeout      time.Duration
	jsonOut      bool
	verbose      bool

	out io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	f := &rootFlags{out: out}

	root := &cobra.Command{
		Use:           "auditctl",
		Short:         "Score, record and analyse customer-service audits",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&f.apiURL, "api-url", envOr("AUDIT_API_URL", "http://localhost:8080"), "Audit API base URL")
	pf.Int64Var(&f.userID, "user-id", envInt("AUDIT_USER_ID"), "Acting user id")
	pf.StringVar(&f.role, "role", os.Getenv("AUDIT_ROLE"), "Acting role: administrador, gestor or analista")
	pf.Int64Var(&f.departmentID, "department-id", envInt("AUDIT_DEPARTMENT_ID"), "Acting department id")
	pf.DurationVar(&f.timeout, "timeout", 15*time.Second, "Request timeout")
	pf.BoolVar(&f.jsonOut, "json", false, "Print JSON instead of tables")
	pf.BoolVar(&f.verbose, "verbose", false, "Log requests to stderr")

	root.AddCommand(
		newScoreCmd(f),
		newSubmitCmd(f),
		newListCmd(f),
		newShowCmd(f),
		newDeleteCmd(f),
		newRankingCmd(f),
		newStatsCmd(f),
		newDashboardCmd(f),
		newConfigCmd(f),
		newAnalystsCmd(f),
	)
	return root
}

func (f *rootFlags) actor() service.Actor {
	return service.Actor{UserID: f.userID, Role: f.role, DepartmentID: f.departmentID}
}

func (f *rootFlags) client() (*client.Client, error) {
	if f.userID <= 0 || f.role == "" || f.departmentID <= 0 {
		return nil, exitError(exitInvalid, "identity required: set --user-id, --role and --department-id (or AUDIT_USER_ID, AUDIT_ROLE, AUDIT_DEPARTMENT_ID)")
	}
	c, err := client.New(f.apiURL, f.actor(), client.WithTimeout(f.timeout))
	if err != nil {
		return nil, exitError(exitInvalid, "%v", err)
	}
	return c, nil
}

func (f *rootFlags) logger() *zap.Logger {
	if !f.verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (f *rootFlags) printer() *printer {
	return newPrinter(f.out, f.jsonOut)
}

func (f *rootFlags) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string) int64 {
	n, _ := strconv.ParseInt(os.Getenv(key), 10, 64)
	return n
}
