package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core/user"
	sqlxrepos "github.com/nexussync/clubs/storage/database/sqlx"
	"github.com/nexussync/clubs/storage/fixtures"
	testutil "github.com/nexussync/clubs/tests"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

var usrRepo user.Repository

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo = sqlxrepos.NewUserRepository(db)
	out := new(bytes.Buffer)

	// start CLI
	return &commandLine{
		db:      db,
		usrRepo: usrRepo,
		seeder: fixtures.NewSeeder(fixtures.Repos{
			Users:   usrRepo,
			Venues:  sqlxrepos.NewVenueRepository(db),
			Clubs:   sqlxrepos.NewClubRepository(db),
			Events:  sqlxrepos.NewEventRepository(db),
			Posts:   sqlxrepos.NewPostRepository(db),
			Budgets: sqlxrepos.NewBudgetRepository(db),
		}),
		logger: nopLogger{},
		out:    out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if err != nil {
				return
			}
			refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.extra.(extra).pwd))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)
	readPasswordFunc = func(int) ([]byte, error) { return []byte("s3cret-pass"), nil }

	require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "Ada", "-email", "ADA@campus.test", "-name", "Ada"}))
	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Username: "ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@campus.test", usr.Email)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("s3cret-pass"))

	// running it again promotes the same user
	require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "ada", "-email", "ada@campus.test", "-admin"}))
	usrs, err := usrRepo.QueryUsers(context.Background(), user.QueryFilter{}, nil)
	require.NoError(t, err)
	require.Len(t, usrs, 1)
	assert.True(t, usrs[0].IsAdmin())
	assert.Equal(t, "Ada", usrs[0].Name)

	assert.Equal(t, errHelp, cli.run([]string{"admin", "adduser", "-username", "bob"}))
}

func Test_commandLine_seed(t *testing.T) {
	cli, out := setup(t)

	path := filepath.Join(t.TempDir(), "fixtures.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - username: lea
    name: Lea Lead
    email: lea@campus.test
    roles: ["lead:"]
clubs:
  - name: Chess
    category: academic
    lead: lea
    members: [lea]
`), 0o644))

	require.NoError(t, cli.run([]string{"admin", "seed", "-file", path}))
	assert.Contains(t, out.String(), "Seeded 1 users, 0 venues, 1 clubs, 1 memberships, 0 events, 0 posts")

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "seed", "-file", path}))
	assert.Contains(t, out.String(), "Seeded 0 users, 0 venues, 0 clubs, 0 memberships, 0 events, 0 posts")

	assert.Error(t, cli.run([]string{"admin", "seed", "-file", filepath.Join(t.TempDir(), "missing.yml")}))
}
