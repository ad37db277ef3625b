// Command idp-client-admin inspects configuration and tokens and manages the
// local user table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/avisitor/idp-client/config"
	"github.com/avisitor/idp-client/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	In     io.Reader
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)) //nolint:forbidigo // CLI exit status
}

// execute runs one command and returns the process exit status.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) < 1 {
		_ = printUsage(errOut)
		return 2
	}

	cmd, ok := commands()[args[0]]
	if !ok {
		_ = writef(errOut, "unknown command %q\n\n", args[0])
		_ = printUsage(errOut)
		return 2
	}

	cfg, err := bootstrap.LoadConfig()
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: logLevel(cfg.Log.Level)}))
	if err != nil {
		logger.ErrorContext(ctx, "load config", "error", err)
		return 1
	}

	cmdCtx := &commandContext{Ctx: ctx, Logger: logger, Config: cfg, Out: out, In: in}
	if runErr := cmd.run(cmdCtx, args[1:]); runErr != nil {
		if errors.Is(runErr, flag.ErrHelp) {
			return 2
		}
		logger.ErrorContext(ctx, "command failed", "command", cmd.name, "error", runErr)
		return 1
	}
	return 0
}

func logLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func commands() map[string]command {
	return map[string]command{
		"check-config": {
			name:        "check-config",
			description: "Validate configuration, connect stores, and test provider URL generation",
			run:         runCheckConfig,
		},
		"decode-token": {
			name:        "decode-token",
			description: "Print the claims of a token without verifying it",
			run:         runDecodeToken,
		},
		"token-status": {
			name:        "token-status",
			description: "Report expiry, usability and roles of a token",
			run:         runTokenStatus,
		},
		"enhance-token": {
			name:        "enhance-token",
			description: "Ask the IDP for a token carrying the user's roles",
			run:         runEnhanceToken,
		},
		"migrate": {
			name:        "migrate",
			description: "Run local user store migrations",
			run:         runMigrations,
		},
		"create-user": {
			name:        "create-user",
			description: "Add a user to the local user store",
			run:         runCreateUser,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: idp-client-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-16s %s\n", name, commands()[name].description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func newFlagSet(c *commandContext, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.Out)
	return fs
}
