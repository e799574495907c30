package main

import (
	"context"

	"github.com/fatih/color"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/user"
)

// addUser creates a user, or reactivates an existing one with the new role and password.
func (cli *commandLine) addUser(nu user.NewUser) error {
	ctx := context.Background()
	if err := nu.Validate(cli.validate); err != nil {
		return core.TranslateValidationErrors(err, cli.translator, "")
	}

	usr, err := cli.usrSvc.GetByIdentification(ctx, nu.IdentificationNumber)
	switch {
	case err == user.ErrNotFound:
		usr, err = cli.usrSvc.Register(ctx, nu)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		usr.Role = nu.Role
		usr.IsActive = true
		if usr, err = cli.usrSvc.SetPassword(ctx, usr, nu.Password); err != nil {
			return err
		}
	}
	color.New(color.FgGreen).Fprintf(cli.out, "user %s (%s) saved\n", usr.IdentificationNumber, usr.Role)
	return nil
}
