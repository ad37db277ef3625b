package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/avisitor/idp-client/config"
	"github.com/avisitor/idp-client/internal/adapters/authroles"
	"github.com/avisitor/idp-client/internal/bootstrap"
	"github.com/avisitor/idp-client/internal/domain/token"
	"github.com/avisitor/idp-client/internal/service"
)

var errTokenRequired = errors.New("a token is required (-token, a positional argument, or - for stdin)")

// readToken takes the token from -token, the first argument, or stdin when "-".
func readToken(c *commandContext, flagValue string, rest []string) (string, error) {
	raw := flagValue
	if raw == "" && len(rest) > 0 {
		raw = rest[0]
	}
	if raw == "-" {
		line, err := bufio.NewReader(c.In).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read token from stdin: %w", err)
		}
		raw = line
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errTokenRequired
	}
	return raw, nil
}

type decodedToken struct {
	Identity  string         `json:"identity"`
	Subject   string         `json:"sub,omitempty"`
	Email     string         `json:"email,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Roles     []string       `json:"roles"`
	ExpiresAt string         `json:"expires_at,omitempty"`
	ExpiresIn int64          `json:"expires_in"`
	Expired   bool           `json:"expired"`
	Claims    map[string]any `json:"claims"`
}

func runDecodeToken(c *commandContext, args []string) error {
	fs := newFlagSet(c, "decode-token")
	tokenFlag := fs.String("token", "", "token to decode")
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := readToken(c, *tokenFlag, fs.Args())
	if err != nil {
		return err
	}

	claims, err := token.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	now := time.Now()
	out := decodedToken{
		Identity:  claims.Identity(),
		Subject:   claims.Subject,
		Email:     claims.Email,
		UserID:    claims.UserID,
		Name:      claims.Name,
		Roles:     claims.Roles,
		ExpiresIn: int64(token.ExpiresIn(claims, now) / time.Second),
		Expired:   token.IsExpired(claims, 0, now),
		Claims:    claims.Raw,
	}
	if claims.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(claims.ExpiresAt, 0).UTC().Format(time.RFC3339)
	}
	if out.Roles == nil {
		out.Roles = []string{}
	}

	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type tokenStatusOptions struct {
	Token    string
	Buffer   time.Duration
	Resource string
	Validate bool
}

func runTokenStatus(c *commandContext, args []string) error {
	var opts tokenStatusOptions
	fs := newFlagSet(c, "token-status")
	fs.StringVar(&opts.Token, "token", "", "token to inspect")
	fs.DurationVar(&opts.Buffer, "buffer", c.Config.Auth.UsableBuffer, "treat the token as expired this long before exp")
	fs.StringVar(&opts.Resource, "resource", "", "also show the roles mapped for this downstream resource")
	fs.BoolVar(&opts.Validate, "validate", false, "ask the IDP whether the token is still valid")
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := readToken(c, opts.Token, fs.Args())
	if err != nil {
		return err
	}

	now := time.Now()
	w := tabwriter.NewWriter(c.Out, 0, 4, 2, ' ', 0)
	row := func(k string, v any) { _ = writef(w, "%s\t%v\n", k, v) }

	claims, decErr := token.Decode(raw)
	row("Format", formatStatus(decErr))
	if decErr == nil {
		left := token.ExpiresIn(claims, now)
		row("Identity", claims.Identity())
		row("Roles", strings.Join(claims.Roles, ","))
		if claims.ExpiresAt > 0 {
			row("Expires at", time.Unix(claims.ExpiresAt, 0).UTC().Format(time.RFC3339))
		} else {
			row("Expires at", "never")
		}
		row("Expires in", left.Round(time.Second))
		row("Refresh in", max(left-c.Config.Auth.RefreshBuffer, 0).Round(time.Second))
		if opts.Resource != "" {
			mapped := authroles.NewResourceRoleMapper(nil).MapToResource(claims.Roles, opts.Resource)
			row("Roles for "+opts.Resource, strings.Join(mapped, ","))
		}
	}
	row("Expired", token.RawIsExpired(raw, opts.Buffer, now))
	row("Usable", token.RawIsUsable(raw, opts.Buffer, now))

	if opts.Validate {
		client := bootstrap.NewIDPClient(c.Config.IDP, nil, c.Logger)
		res, verr := client.ValidateToken(c.Ctx, raw)
		switch {
		case verr != nil:
			row("IDP valid", "error: "+verr.Error())
		default:
			row("IDP valid", res.Valid || res.Success)
		}
	}
	return w.Flush()
}

func formatStatus(err error) string {
	if err != nil {
		return "invalid (" + err.Error() + ")"
	}
	return "ok"
}

type enhanceOptions struct {
	Token string
	Email string
	Force bool
}

// runEnhanceToken asks the IDP for a token with the roles the user's admin
// level maps to, and prints the result.
func runEnhanceToken(c *commandContext, args []string) error {
	var opts enhanceOptions
	fs := newFlagSet(c, "enhance-token")
	fs.StringVar(&opts.Token, "token", "", "token to enhance")
	fs.StringVar(&opts.Email, "email", "", "user email; defaults to the token's identity")
	fs.BoolVar(&opts.Force, "force", false, "refresh even when the token is still usable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := readToken(c, opts.Token, fs.Args())
	if err != nil {
		return err
	}
	if opts.Email == "" {
		if claims, derr := token.Decode(raw); derr == nil {
			opts.Email = claims.Identity()
		}
	}

	cfg := c.Config
	cfg.Session.Store = config.SessionStoreMemory
	cfg.Postgres.RunMigrationsOnStart = false
	stores, err := bootstrap.ConnectStores(c.Ctx, &cfg, c.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stores.Close(); cerr != nil {
			c.Logger.Warn("close stores failed", "error", cerr)
		}
	}()
	auth, err := bootstrap.BuildAuth(bootstrap.AuthDeps{Config: &cfg, DB: stores.DB, Logger: c.Logger})
	if err != nil {
		return err
	}
	defer func() { _ = auth.Close() }()

	tok, err := auth.Tokens.GetValidToken(c.Ctx, service.GetTokenRequest{
		UserEmail:    opts.Email,
		AppID:        auth.Target.AppID,
		IDPURL:       auth.Target.IDPURL,
		CurrentToken: raw,
		Directory:    auth.Target.Directory,
		Roles:        auth.Target.Roles,
		ForceRefresh: opts.Force,
	})
	if err != nil {
		return err
	}
	if tok == raw && (opts.Force || !token.RawIsUsable(raw, auth.Tokens.UsableBuffer(), auth.Tokens.Now())) {
		return errors.New("the IDP did not issue a new token")
	}
	return writef(c.Out, "%s\n", tok)
}
