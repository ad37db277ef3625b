package main

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/avisitor/idp-client/internal/bootstrap"
	apperrors "github.com/avisitor/idp-client/internal/errors"
	"github.com/avisitor/idp-client/internal/service"
)

var errChecksFailed = errors.New("configuration checks failed")

type checkConfigOptions struct {
	JSON    bool
	Connect bool
}

func parseCheckConfigFlags(c *commandContext, args []string) (checkConfigOptions, error) {
	var opts checkConfigOptions
	fs := newFlagSet(c, "check-config")
	fs.BoolVar(&opts.JSON, "json", false, "print the report as JSON")
	fs.BoolVar(&opts.Connect, "connect", true, "connect to the configured Postgres and Redis")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// runCheckConfig validates settings, then builds the auth stack the way the
// server does and runs the provider factory's diagnostics.
func runCheckConfig(c *commandContext, args []string) error {
	opts, err := parseCheckConfigFlags(c, args)
	if err != nil {
		return err
	}

	cfg := c.Config
	cfg.Postgres.RunMigrationsOnStart = false
	report := service.ConfigurationReport{Tests: map[string]service.CheckResult{}}

	if verr := cfg.Validate(); verr != nil {
		for i, e := range splitErrors(verr) {
			report.Tests[checkName(e, i)] = service.CheckResult{Message: apperrors.UserMessage(e)}
		}
	} else {
		report.Tests["config"] = service.CheckResult{Success: true, Message: "Configuration valid"}
	}

	deps := bootstrap.AuthDeps{Config: &cfg, Logger: c.Logger}
	if opts.Connect {
		stores, serr := bootstrap.ConnectStores(c.Ctx, &cfg, c.Logger)
		if serr != nil {
			report.Tests["stores"] = service.CheckResult{Message: "Store connection failed", Detail: serr.Error()}
		} else {
			defer func() {
				if cerr := stores.Close(); cerr != nil {
					c.Logger.Warn("close stores failed", "error", cerr)
				}
			}()
			report.Tests["stores"] = service.CheckResult{Success: true, Message: "Stores reachable"}
			deps.DB, deps.Redis = stores.DB, stores.Redis
		}
	}

	auth, err := bootstrap.BuildAuth(deps)
	if err != nil {
		report.Tests["wiring"] = service.CheckResult{Message: "Auth wiring failed: " + apperrors.UserMessage(err)}
	} else {
		defer func() { _ = auth.Close() }()
		factoryReport := auth.Factory.TestConfiguration()
		report.ProviderType = factoryReport.ProviderType
		for name, res := range factoryReport.Tests {
			report.Tests[name] = res
		}
	}

	if perr := printReport(c, report, opts.JSON); perr != nil {
		return perr
	}
	if !report.OK() {
		return errChecksFailed
	}
	return nil
}

func printReport(c *commandContext, report service.ConfigurationReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if err := writef(c.Out, "Provider: %s\n\n", report.ProviderType); err != nil {
		return err
	}
	names := make([]string, 0, len(report.Tests))
	for name := range report.Tests {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(c.Out, 0, 4, 2, ' ', 0)
	if err := writef(w, "CHECK\tSTATUS\tMESSAGE\tDETAIL\n"); err != nil {
		return err
	}
	for _, name := range names {
		res := report.Tests[name]
		status := "ok"
		if !res.Success {
			status = "FAIL"
		}
		if err := writef(w, "%s\t%s\t%s\t%s\n", name, status, res.Message, res.Detail); err != nil {
			return err
		}
	}
	return w.Flush()
}

// splitErrors unwraps an errors.Join result.
func splitErrors(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// checkName names a validation failure after the setting it concerns.
func checkName(err error, i int) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Field != "" {
		return "config:" + appErr.Field
	}
	return "config:" + strconv.Itoa(i+1)
}
