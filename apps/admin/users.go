package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/account"
)

func (cli *commandLine) login(ctx context.Context, uname, pwd string) error {
	resp, err := cli.backend.Login(ctx, core.CleanString(uname), pwd)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	if resp.AccessToken == "" {
		return errors.New(account.MsgLoginInvalidResponse)
	}
	fmt.Fprintln(cli.out, resp.AccessToken)
	return nil
}

func (cli *commandLine) register(ctx context.Context, nu account.NewUser) error {
	nu.Role = "" // self registration always creates a student
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	if err := cli.backend.Register(ctx, nu); err != nil {
		return errors.Wrap(err, "registering")
	}
	fmt.Fprintf(cli.out, "registered %s\n", nu.Username)
	return nil
}

func (cli *commandLine) createUser(ctx context.Context, token string, nu account.NewUser) error {
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	usr, err := cli.backend.CreateUser(ctx, token, nu)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	fmt.Fprintf(cli.out, "created %s (id %s, role %s)\n", usr.Username, usr.ID, core.FirstNonEmpty(usr.Role, nu.Role))
	return nil
}

func (cli *commandLine) listUsers(ctx context.Context, token string) error {
	users, err := cli.backend.ListUsers(ctx, token)
	if err != nil {
		return errors.Wrap(err, "listing users")
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE")
	for _, usr := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", usr.ID, usr.Username, usr.Email, usr.Role)
	}
	return w.Flush()
}

func (cli *commandLine) assignRole(ctx context.Context, token, id, role string) error {
	role = core.CleanString(role, true /* lower */)
	if err := cli.validate.Var(role, "oneof="+account.RoleStudent+" "+account.RoleTeacher+" "+account.RoleAdmin); err != nil {
		return errors.Errorf("invalid role %q", role)
	}
	if err := cli.backend.AssignRole(ctx, token, id, role); err != nil {
		return errors.Wrap(err, "assigning role")
	}
	fmt.Fprintf(cli.out, "assigned role %s to %s\n", role, id)
	return nil
}

func (cli *commandLine) deleteUser(ctx context.Context, token, id string) error {
	if err := cli.backend.DeleteUser(ctx, token, id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	fmt.Fprintf(cli.out, "deleted %s\n", id)
	return nil
}
