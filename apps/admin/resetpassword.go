package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core/account"
)

// resetPassword sets the password of account id, bypassing the email reset flow.
func (cli *commandLine) resetPassword(ctx context.Context, token, id, pwd string) error {
	form := account.ResetPasswordForm{Token: token, Password: pwd, PasswordConfirm: pwd}
	if err := form.Validate(cli.validate); err != nil {
		return err
	}
	if err := cli.backend.ChangePassword(ctx, token, id, pwd); err != nil {
		return errors.Wrap(err, "changing password")
	}
	fmt.Fprintf(cli.out, "password of %s updated\n", id)
	return nil
}
