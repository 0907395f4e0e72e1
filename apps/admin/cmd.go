package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/account"
)

const tokenEnv = "PORTAL_ADMIN_TOKEN"

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp    = errors.New("help provided")
	errNoToken = errors.New("an admin token is required: use -token or " + tokenEnv)
)

// adminBackend is the part of the backend API used by the CLI.
type adminBackend interface {
	Login(ctx context.Context, username, password string) (account.LoginResponse, error)
	Register(ctx context.Context, nu account.NewUser) error
	CreateUser(ctx context.Context, token string, nu account.NewUser) (account.User, error)
	ListUsers(ctx context.Context, token string) ([]account.User, error)
	AssignRole(ctx context.Context, token, id, role string) error
	DeleteUser(ctx context.Context, token, id string) error
	ChangePassword(ctx context.Context, token, id, newPassword string) error
}

type commandLine struct {
	conf     *core.Config
	backend  adminBackend
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME                           - print an access token (password prompted)")
	fmt.Fprintln(cli.out, "  register -username USERNAME -email EMAIL           - register a student account (password prompted)")
	fmt.Fprintln(cli.out, "  createuser -username USERNAME -email EMAIL -role R - create an account (password prompted)")
	fmt.Fprintln(cli.out, "  listusers                                          - list the accounts")
	fmt.Fprintln(cli.out, "  assignrole -id ID -role ROLE                       - change the role of an account")
	fmt.Fprintln(cli.out, "  deleteuser -id ID                                  - delete an account")
	fmt.Fprintln(cli.out, "  resetpassword -id ID                               - set the password of an account (password prompted)")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                             - run a goose command on the local storage (sqlite|postgres):")
	fmt.Fprintln(cli.out, "                                                       up, up-by-one, up-to V, down, down-to V, redo, reset, status, version")
	fmt.Fprintln(cli.out, "Admin commands take -token TOKEN, or read it from "+tokenEnv+".")
}

// adminToken returns the -token flag value or the environment fallback.
func adminToken(flagVal string) (string, error) {
	token := core.FirstNonEmpty(flagVal, os.Getenv(tokenEnv))
	if token == "" {
		return "", errNoToken
	}
	return token, nil
}

// promptPassword reads a password without echoing it; an empty password shows the usage.
func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginUname := loginCmd.String("username", "", "The account's username or student ID. The password will be prompted next.")

	registerCmd := flag.NewFlagSet("register", flag.ContinueOnError)
	registerUname := registerCmd.String("username", "", "The student's username.")
	registerEmail := registerCmd.String("email", "", "The student's email.")

	createUserCmd := flag.NewFlagSet("createuser", flag.ContinueOnError)
	createUserToken := createUserCmd.String("token", "", "An admin access token.")
	createUserUname := createUserCmd.String("username", "", "The account's username.")
	createUserEmail := createUserCmd.String("email", "", "The account's email.")
	createUserRole := createUserCmd.String("role", account.RoleStudent, "The account's role: student|teacher|admin.")

	listUsersCmd := flag.NewFlagSet("listusers", flag.ContinueOnError)
	listUsersToken := listUsersCmd.String("token", "", "An admin access token.")

	assignRoleCmd := flag.NewFlagSet("assignrole", flag.ContinueOnError)
	assignRoleToken := assignRoleCmd.String("token", "", "An admin access token.")
	assignRoleID := assignRoleCmd.String("id", "", "The account's ID.")
	assignRoleRole := assignRoleCmd.String("role", "", "The new role: student|teacher|admin.")

	deleteUserCmd := flag.NewFlagSet("deleteuser", flag.ContinueOnError)
	deleteUserToken := deleteUserCmd.String("token", "", "An admin access token.")
	deleteUserID := deleteUserCmd.String("id", "", "The account's ID.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordToken := resetPasswordCmd.String("token", "", "An admin access token.")
	resetPasswordID := resetPasswordCmd.String("id", "", "The account's ID. The password will be prompted next.")

	migrateCmd := flag.NewFlagSet("migrate", flag.ContinueOnError)

	for _, fs := range []*flag.FlagSet{
		loginCmd, registerCmd, createUserCmd, listUsersCmd, assignRoleCmd, deleteUserCmd, resetPasswordCmd, migrateCmd,
	} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(loginCmd)
		if err != nil {
			return err
		}
		return cli.login(ctx, *loginUname, pwd)

	case "register":
		if err := registerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *registerUname == "" || *registerEmail == "" {
			registerCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(registerCmd)
		if err != nil {
			return err
		}
		return cli.register(ctx, account.NewUser{Username: *registerUname, Email: *registerEmail, Password: pwd})

	case "createuser":
		if err := createUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createUserUname == "" || *createUserEmail == "" {
			createUserCmd.Usage()
			return errHelp
		}
		token, err := adminToken(*createUserToken)
		if err != nil {
			return err
		}
		pwd, err := cli.promptPassword(createUserCmd)
		if err != nil {
			return err
		}
		return cli.createUser(ctx, token, account.NewUser{
			Username: *createUserUname,
			Email:    *createUserEmail,
			Password: pwd,
			Role:     *createUserRole,
		})

	case "listusers":
		if err := listUsersCmd.Parse(args[2:]); err != nil {
			return err
		}
		token, err := adminToken(*listUsersToken)
		if err != nil {
			return err
		}
		return cli.listUsers(ctx, token)

	case "assignrole":
		if err := assignRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *assignRoleID == "" || *assignRoleRole == "" {
			assignRoleCmd.Usage()
			return errHelp
		}
		token, err := adminToken(*assignRoleToken)
		if err != nil {
			return err
		}
		return cli.assignRole(ctx, token, *assignRoleID, *assignRoleRole)

	case "deleteuser":
		if err := deleteUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deleteUserID == "" {
			deleteUserCmd.Usage()
			return errHelp
		}
		token, err := adminToken(*deleteUserToken)
		if err != nil {
			return err
		}
		return cli.deleteUser(ctx, token, *deleteUserID)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordID == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		token, err := adminToken(*resetPasswordToken)
		if err != nil {
			return err
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(ctx, token, *resetPasswordID, pwd)

	case "migrate":
		if err := migrateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if migrateCmd.NArg() == 0 {
			migrateCmd.Usage()
			return errHelp
		}
		return cli.migrate(migrateCmd.Args())

	default:
		cli.printUsage()
		return errHelp
	}
}
