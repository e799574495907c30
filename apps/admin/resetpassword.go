package main

import (
	"context"
	"strings"

	"github.com/sigcolegio/backend/core/user"
)

// resetPassword sets the password of the user owning the identification number or email.
func (cli *commandLine) resetPassword(idOrEmail, pwd string) error {
	ctx := context.Background()

	var usr user.User
	var err error
	if strings.Contains(idOrEmail, "@") {
		usr, err = cli.usrSvc.GetByEmail(ctx, idOrEmail)
	} else {
		usr, err = cli.usrSvc.GetByIdentification(ctx, idOrEmail)
	}
	if err != nil {
		return err
	}
	_, err = cli.usrSvc.SetPassword(ctx, usr, pwd)
	return err
}
