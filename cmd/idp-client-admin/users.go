package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avisitor/idp-client/internal/bootstrap"
	"github.com/avisitor/idp-client/internal/data"
	"github.com/avisitor/idp-client/internal/migrate"
)

const defaultMigrationTimeout = 5 * time.Minute

type migrateOptions struct {
	Timeout time.Duration
	Status  bool
}

func parseMigrateFlags(c *commandContext, args []string) (migrateOptions, error) {
	var opts migrateOptions
	fs := newFlagSet(c, "migrate")
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "maximum time to wait for migrations")
	fs.BoolVar(&opts.Status, "status", false, "list pending migrations without applying them")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Timeout <= 0 {
		return opts, errors.New("timeout must be positive")
	}
	return opts, nil
}

// withDB connects to the user database for the duration of fn.
func withDB(c *commandContext, timeout time.Duration, fn func(ctx context.Context, db *sql.DB) error) error {
	ctx, stop := signal.NotifyContext(c.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{
		DBConfig: c.Config.Postgres,
		Logger:   c.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			c.Logger.Warn("db close failed", "error", closeErr)
		}
	}()
	return fn(ctx, db)
}

func runMigrations(c *commandContext, args []string) error {
	opts, err := parseMigrateFlags(c, args)
	if err != nil {
		return err
	}

	return withDB(c, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		pending, err := migrate.Pending(ctx, db)
		if err != nil {
			return err
		}
		if opts.Status {
			if len(pending) == 0 {
				return writef(c.Out, "No pending migrations\n")
			}
			for _, v := range pending {
				if err := writef(c.Out, "pending  %s\n", v); err != nil {
					return err
				}
			}
			return nil
		}

		if err := bootstrap.RunMigrations(ctx, db, c.Logger); err != nil {
			return err
		}
		return writef(c.Out, "Applied %d migration(s)\n", len(pending))
	})
}

type createUserOptions struct {
	Email    string
	Name     string
	Admin    int
	Inactive bool
	Password string
	Timeout  time.Duration
}

func parseCreateUserFlags(c *commandContext, args []string) (createUserOptions, error) {
	var opts createUserOptions
	fs := newFlagSet(c, "create-user")
	fs.StringVar(&opts.Email, "email", "", "login email (required)")
	fs.StringVar(&opts.Name, "name", "", "display name")
	fs.IntVar(&opts.Admin, "admin", 0, "admin level")
	fs.BoolVar(&opts.Inactive, "inactive", false, "create the account disabled")
	fs.StringVar(&opts.Password, "password", "", "password; read from stdin when empty")
	fs.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "maximum time to wait for the database")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return opts, errors.New("-email is required")
	}
	if opts.Admin < 0 {
		return opts, errors.New("-admin must not be negative")
	}
	if opts.Password == "" {
		line, err := bufio.NewReader(c.In).ReadString('\n')
		if err != nil && line == "" {
			return opts, fmt.Errorf("read password from stdin: %w", err)
		}
		opts.Password = strings.TrimRight(line, "\r\n")
	}
	if opts.Password == "" {
		return opts, errors.New("password must not be empty")
	}
	return opts, nil
}

func runCreateUser(c *commandContext, args []string) error {
	opts, err := parseCreateUserFlags(c, args)
	if err != nil {
		return err
	}

	return withDB(c, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		id, err := data.NewUserRepo(db).CreateUser(ctx, data.CreateUserRequest{
			Username: opts.Email,
			Password: opts.Password,
			Name:     opts.Name,
			Active:   !opts.Inactive,
			Admin:    opts.Admin,
		})
		if err != nil {
			return err
		}
		return writef(c.Out, "Created user %s (id %d, admin level %d)\n", strings.ToLower(opts.Email), id, opts.Admin)
	})
}
