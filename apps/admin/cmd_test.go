package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/account"
	backendsvc "github.com/trezcool/studentportal/services/backend"
	"github.com/trezcool/studentportal/storage/database"
	"github.com/trezcool/studentportal/tests"
)

var (
	admin = testutil.FakeUser{ID: "A1", Username: "admin", Email: "admin@uni.test", Password: "r00t-Passw0rd", Role: testutil.RoleAdmin}
	s001  = testutil.FakeUser{ID: "S001", Username: "S001", Email: "s001@uni.test", Password: "Passw0rd!"}
)

func setup(t *testing.T) (*commandLine, *testutil.Backend, *bytes.Buffer) {
	t.Helper()
	backend := testutil.NewBackend(t, admin, s001)
	conf := testutil.Config(backend.URL)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.RegisterValidators(validate, translator)

	out := new(bytes.Buffer)
	return &commandLine{
		conf:     conf,
		backend:  backendsvc.NewClient(conf),
		validate: validate,
		out:      out,
	}, backend, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string   // typed at the password prompt
	wantErr    error
	wantErrStr string
	wantOut    string
}

func runTests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := tt.pwd
		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				require.NoError(t, err)
			}
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, out := setup(t)

	runTests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown flag", args: []string{"listusers", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
		{name: "login: no username", args: []string{"login"}, wantErr: errHelp},
		{name: "login: no password", args: []string{"login", "-username", "admin"}, wantErr: errHelp},
		{name: "register: no email", args: []string{"register", "-username", "S002"}, wantErr: errHelp},
		{name: "createuser: no username", args: []string{"createuser", "-token", "t"}, wantErr: errHelp},
		{name: "assignrole: no role", args: []string{"assignrole", "-token", "t", "-id", "S001"}, wantErr: errHelp},
		{name: "deleteuser: no id", args: []string{"deleteuser", "-token", "t"}, wantErr: errHelp},
		{name: "resetpassword: no id", args: []string{"resetpassword", "-token", "t"}, wantErr: errHelp},
	})
}

func Test_commandLine_token(t *testing.T) {
	cli, backend, out := setup(t)
	require.NoError(t, os.Unsetenv(tokenEnv))

	runTests(t, cli, out, []cliTest{
		{name: "no token", args: []string{"listusers"}, wantErr: errNoToken},
		{name: "invalid token", args: []string{"listusers", "-token", "nope"}, wantErrStr: "Could not validate credentials"},
		{name: "student token", args: []string{"listusers", "-token", backend.Token(t, "S001")}, wantErrStr: "Not enough permissions"},
	})

	t.Run("environment token", func(t *testing.T) {
		require.NoError(t, os.Setenv(tokenEnv, backend.Token(t, "A1")))
		t.Cleanup(func() { _ = os.Unsetenv(tokenEnv) })

		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "listusers"}))
		assert.Contains(t, out.String(), "S001")
		assert.Contains(t, out.String(), "admin@uni.test")
	})
}

func Test_commandLine_login(t *testing.T) {
	cli, _, out := setup(t)

	runTests(t, cli, out, []cliTest{
		{name: "wrong password", args: []string{"login", "-username", "admin"}, pwd: "nope", wantErrStr: "Incorrect username or password"},
		{name: "success", args: []string{"login", "-username", "admin"}, pwd: "r00t-Passw0rd"},
	})

	token := strings.TrimSpace(strings.TrimPrefix(out.String(), "Enter password:"))
	assert.NotEmpty(t, token)
	require.NoError(t, cli.run([]string{"admin", "listusers", "-token", token}))
}

func Test_commandLine_accounts(t *testing.T) {
	cli, backend, out := setup(t)
	token := backend.Token(t, "A1")

	runTests(t, cli, out, []cliTest{
		{
			name:    "register",
			args:    []string{"register", "-username", "S002", "-email", "S002@uni.test"},
			pwd:     "Passw0rd!",
			wantOut: "registered S002",
		},
		{
			name:       "register: invalid email",
			args:       []string{"register", "-username", "S003", "-email", "nope"},
			pwd:        "Passw0rd!",
			wantErrStr: "'email' failed on the 'email' tag",
		},
		{
			name:       "register: taken username",
			args:       []string{"register", "-username", "S001", "-email", "other@uni.test"},
			pwd:        "Passw0rd!",
			wantErrStr: "Username already registered",
		},
		{
			name:    "createuser",
			args:    []string{"createuser", "-token", token, "-username", "T001", "-email", "t001@uni.test", "-role", "teacher"},
			pwd:     "Passw0rd!",
			wantOut: "created T001",
		},
		{
			name:       "createuser: invalid role",
			args:       []string{"createuser", "-token", token, "-username", "T002", "-email", "t002@uni.test", "-role", "dean"},
			pwd:        "Passw0rd!",
			wantErrStr: "'role' failed on the 'oneof' tag",
		},
		{
			name:    "assignrole",
			args:    []string{"assignrole", "-token", token, "-id", "S001", "-role", "Admin"},
			wantOut: "assigned role admin to S001",
		},
		{
			name:       "assignrole: invalid role",
			args:       []string{"assignrole", "-token", token, "-id", "S001", "-role", "dean"},
			wantErrStr: `invalid role "dean"`,
		},
		{
			name:       "resetpassword: too short",
			args:       []string{"resetpassword", "-token", token, "-id", "S001"},
			pwd:        "short",
			wantErrStr: "'password' failed on the 'pwdminlen' tag",
		},
		{
			name:    "resetpassword",
			args:    []string{"resetpassword", "-token", token, "-id", "S001"},
			pwd:     "N3wPassw0rd",
			wantOut: "password of S001 updated",
		},
		{
			name:    "deleteuser",
			args:    []string{"deleteuser", "-token", token, "-id", "S002"},
			wantOut: "deleted S002",
		},
	})

	usr, ok := backend.User("S001")
	require.True(t, ok)
	assert.Equal(t, testutil.RoleAdmin, usr.Role)
	assert.True(t, backend.CheckPassword("S001", "N3wPassw0rd"))
	_, ok = backend.User("S002")
	assert.False(t, ok)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, out := setup(t)
	cli.conf.Storage = core.StorageConfig{Engine: "sqlite", DSN: ":memory:"}

	t.Run("memory engine", func(t *testing.T) {
		cli.conf.Storage.Engine = "memory"
		defer func() { cli.conf.Storage.Engine = "sqlite" }()
		err := cli.run([]string{"admin", "migrate", "up"})
		assert.EqualError(t, err, `storage engine "memory" has no migrations`)
	})

	t.Run("goose", func(t *testing.T) {
		var got []string
		t.Cleanup(func() { gooseRunFunc = database.RunMigrations })
		gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
			got = append([]string{command}, args...)
			switch command {
			case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
			case "up-to", "down-to":
				if len(args) == 0 {
					return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
				}
				if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
					return fmt.Errorf("version must be a number (got '%s')", args[0])
				}
			default:
				return fmt.Errorf("%q: no such command", command)
			}
			return nil
		}

		runTests(t, cli, out, []cliTest{
			{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
			{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
			{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
			{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
			{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
			{name: "up", args: []string{"migrate", "up"}, wantOut: "migrate up: done"},
			{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
			{name: "up-to", args: []string{"migrate", "up-to", "1"}},
			{name: "down", args: []string{"migrate", "down"}},
			{name: "down-to", args: []string{"migrate", "down-to", "0"}},
			{name: "redo", args: []string{"migrate", "redo"}},
			{name: "reset", args: []string{"migrate", "reset"}},
			{name: "status", args: []string{"migrate", "status"}},
			{name: "version", args: []string{"migrate", "version"}, wantOut: "migrate version: done"},
		})
		assert.Equal(t, []string{"version"}, got)
	})

	t.Run("open failure", func(t *testing.T) {
		t.Cleanup(func() { dbOpenFunc = database.Open })
		dbOpenFunc = func(conf *core.Config) (*sqlx.DB, error) {
			return nil, errors.New("unable to open database file")
		}
		err := cli.run([]string{"admin", "migrate", "up"})
		assert.EqualError(t, err, "opening local storage: unable to open database file")
	})

	t.Run("sqlite", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "migrate", "up"}))
		assert.Contains(t, out.String(), "migrate up: done")
	})
}
