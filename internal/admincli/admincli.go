// Package admincli creates accounts directly against the store. It is the
// way to seed the first admin, since the API only lets admins add users.
package admincli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/accountkeeper/internal/cryptox"
	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/users"
)

// Options are the account fields taken from the command line.
type Options struct {
	Email     string
	Firstname string
	Lastname  string
	Role      string
	Generate  bool
}

// Creator is the part of the user directory the CLI needs.
type Creator interface {
	New(ctx context.Context, in users.NewUser, password string) (*users.AddResult, error)
}

// ParseFlags reads -email -firstname -lastname -role and -generate from
// args, ignoring any server configuration flags mixed in.
func ParseFlags(args []string) (Options, error) {
	opts := Options{Role: string(models.RoleAdmin)}

	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Email, "email", "", "account email")
	fs.StringVar(&opts.Firstname, "firstname", "", "first name")
	fs.StringVar(&opts.Lastname, "lastname", "", "last name")
	fs.StringVar(&opts.Role, "role", opts.Role, "role (admin|customer)")
	fs.BoolVar(&opts.Generate, "generate", false, "generate a password instead of prompting")

	filtered := flagx.FilterArgs(args, []string{"-email", "-firstname", "-lastname", "-role", "-generate"})
	if err := fs.Parse(filtered); err != nil {
		return Options{}, err
	}

	if opts.Email == "" {
		return Options{}, errors.New("-email is required")
	}
	if _, err := models.ParseRole(opts.Role); err != nil {
		return Options{}, fmt.Errorf("-role: %w", err)
	}
	return opts, nil
}

// Run creates the account and writes its id to w. A generated password is
// printed once; otherwise the password is prompted for twice.
func Run(ctx context.Context, dir Creator, opts Options, w io.Writer) error {
	var password string
	if opts.Generate {
		p, err := cryptox.CreatePassword(cryptox.DefaultPasswordOptions())
		if err != nil {
			return fmt.Errorf("error generating password: %w", err)
		}
		password = p
	} else {
		pw, err := confirmPassword(w)
		if err != nil {
			return err
		}
		password = string(pw)
		cryptox.WipeByteArray(pw)
	}

	res, err := dir.New(ctx, users.NewUser{
		Email:     opts.Email,
		Firstname: opts.Firstname,
		Lastname:  opts.Lastname,
		Role:      opts.Role,
	}, password)
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}

	fmt.Fprintf(w, "Created %s user %s (id %s)\n", opts.Role, opts.Email, res.ID)
	if opts.Generate {
		fmt.Fprintf(w, "Password: %s\n", password)
	}
	return nil
}
