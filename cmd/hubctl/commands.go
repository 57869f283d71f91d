package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jrsteele09/officehub-client/authapi"
	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/jrsteele09/officehub-client/users"
)

type commandFn func(ctx context.Context, a *app, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

func commands() map[string]command {
	list := []command{
		{name: "login", description: "log in and persist the session", run: loginCmd},
		{name: "register", description: "create an account and log in", run: registerCmd},
		{name: "logout", description: "end the session", run: logoutCmd},
		{name: "whoami", description: "print the current user", run: whoamiCmd},
		{name: "validate", description: "ask the server whether the access token is still accepted", run: validateCmd},
		{name: "check", description: "route admission for the current session", run: checkCmd},
		{name: "forgot", description: "request a password reset email", run: forgotCmd},
		{name: "reset", description: "set a new password with a reset token", run: resetCmd},
		{name: "get", description: "authorized GET against the API", run: getCmd},
	}
	out := make(map[string]command, len(list))
	for _, c := range list {
		out[c.name] = c
	}
	return out
}

func commandNames() []string {
	var names []string
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	cmd, ok := commands()[name]
	if !ok {
		return fmt.Errorf("unknown command %q (want one of %s)", name, strings.Join(commandNames(), ", "))
	}
	return cmd.run(ctx, a, args)
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return errors.NewFailure(errors.ErrValidationFailed, "usage: hubctl "+usage)
	}
	return nil
}

func loginCmd(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 2, "login <username-or-email> <password>"); err != nil {
		return err
	}
	if err := a.session.Login(ctx, authapi.Credentials{UsernameOrEmail: args[0], Password: args[1]}); err != nil {
		return err
	}
	return printUser(os.Stdout, a.session.User())
}

func registerCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var p authapi.Profile
	fs.StringVar(&p.Username, "username", "", "username")
	fs.StringVar(&p.Email, "email", "", "email address")
	fs.StringVar(&p.Password, "password", "", "password")
	fs.StringVar(&p.FirstName, "first", "", "first name")
	fs.StringVar(&p.LastName, "last", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.session.Register(ctx, p); err != nil {
		return err
	}
	return printUser(os.Stdout, a.session.User())
}

func logoutCmd(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 0, "logout"); err != nil {
		return err
	}
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func whoamiCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	remote := fs.Bool("remote", false, "fetch the profile from the server instead of the local session")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !a.session.IsAuthenticated() {
		return errors.NewFailure(errors.ErrAuthorizationExpired, "Not logged in")
	}
	if !*remote {
		return printUser(os.Stdout, a.session.User())
	}
	u, err := a.hub.CurrentUser(ctx)
	if err != nil {
		return err
	}
	return printUser(os.Stdout, u)
}

func validateCmd(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 0, "validate"); err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		return errors.NewFailure(errors.ErrAuthorizationExpired, "Not logged in")
	}
	if err := a.api.ValidateToken(ctx, a.session.Credentials().AccessToken); err != nil {
		return err
	}
	fmt.Println("Token is valid")
	return nil
}

func checkCmd(_ context.Context, a *app, args []string) error {
	var required []users.RoleType
	for _, arg := range args {
		role, ok := users.ParseRole(arg)
		if !ok {
			return errors.NewFailure(errors.ErrValidationFailed, fmt.Sprintf("unknown role %q", arg))
		}
		required = append(required, role)
	}

	decision := a.guard.Check(required...)
	if path := a.guard.RedirectPath(decision); path != "" {
		fmt.Printf("%s -> %s\n", decision, path)
		return nil
	}
	fmt.Println(decision)
	return nil
}

func forgotCmd(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 1, "forgot <email>"); err != nil {
		return err
	}
	if err := a.session.ForgotPassword(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("If the address is registered, a reset link has been sent")
	return nil
}

func resetCmd(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 2, "reset <token> <new-password>"); err != nil {
		return err
	}
	if err := a.session.ResetPassword(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Println("Password has been reset")
	return nil
}

func getCmd(ctx context.Context, a *app, args []string) error {
	if err := requireArgs(args, 1, "get <path>"); err != nil {
		return err
	}
	var raw json.RawMessage
	if err := a.hub.Get(ctx, args[0], &raw); err != nil {
		return err
	}
	return printJSON(os.Stdout, raw)
}

func printUser(w io.Writer, u *users.User) error {
	if u == nil {
		return errors.NewFailure(errors.ErrAuthorizationExpired, "Not logged in")
	}
	return printJSON(w, u)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
