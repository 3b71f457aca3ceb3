package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/student"
	"github.com/trezcool/compass/core/user"
	appfs "github.com/trezcool/compass/fs"
	emailsvc "github.com/trezcool/compass/services/email"
	"github.com/trezcool/compass/storage/database"
	inmemdb "github.com/trezcool/compass/storage/database/inmem"
	testutil "github.com/trezcool/compass/tests"
)

var (
	usrRepo user.Repository
	stdRepo student.Repository
)

func setup(t *testing.T) *commandLine {
	conf := core.NewTestConfig()
	validate, translator := testutil.NewValidate()
	user.LoadCommonPasswords(appfs.FS, core.NopLogger{})

	// set up DB & repos
	db := inmemdb.OpenDemo()
	usrRepo = inmemdb.NewUserRepository(db)
	stdRepo = inmemdb.NewStudentRepository(db)

	// start CLI
	return &commandLine{
		usrSvc:     user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf), validate, conf),
		stdSvc:     student.NewService(stdRepo, testutil.NewRetrier(), validate, core.NopLogger{}),
		translator: translator,
	}
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
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() expected an error")
		}
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

// mockPasswords makes the password prompts read pwds in turn.
func mockPasswords(pwds ...string) {
	i := 0
	readPasswordFunc = func(fd int) ([]byte, error) {
		if i >= len(pwds) {
			return nil, nil
		}
		pwd := pwds[i]
		i++
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	t.Run("no database", func(t *testing.T) {
		cliTest{wantErr: errNoDatabase}.check(t, cli.run([]string{"admin", "migrate", "up"}))
	})

	// the connection is never used: goose is mocked
	db, err := database.OpenURL("postgres://compass@localhost/compass?sslmode=disable")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	cli.db = db.DB

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	defer func() { gooseRunFunc = database.RunMigrations }()

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
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
		{name: "create", args: []string{"migrate", "create", "contract_notes", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwds []string
	}
	const pwd = "Blue#Harbor42"
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-name", "Grace"}, extra: extra{pwds: []string{pwd, pwd}}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Grace", "-email", "grace@example.com"}, wantErr: errHelp},
		{
			name:       "weak password",
			args:       []string{"adduser", "-name", "Grace", "-email", "grace@example.com"},
			extra:      extra{pwds: []string{"short", "short"}},
			wantErrStr: "password: password must contain at least 8 characters",
		},
		{
			name:       "passwords do not match",
			args:       []string{"adduser", "-name", "Grace", "-email", "grace@example.com"},
			extra:      extra{pwds: []string{pwd, pwd + "!"}},
			wantErrStr: "password_confirm: password_confirm must be equal to Password",
		},
		{
			name:       "email taken",
			args:       []string{"adduser", "-name", "Grace", "-email", inmemdb.DemoOperatorEmail},
			extra:      extra{pwds: []string{pwd, pwd}},
			wantErrStr: "email: " + user.ErrEmailExists.Error(),
		},
		{name: "create", args: []string{"adduser", "-name", "Grace", "-email", "Grace@Example.com", "-admin"}, extra: extra{pwds: []string{pwd, pwd}}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			var pwds []string
			if extra, ok := tt.extra.(extra); ok {
				pwds = extra.pwds
			}
			mockPasswords(pwds...)
			tt.check(t, cli.run(args))
		})
	}

	usr, err := usrRepo.GetUserByEmail(context.Background(), "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Grace", usr.Name)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsAdmin)
	assert.NoError(t, usr.CheckPassword(pwd))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr, err := usrRepo.GetUserByID(context.Background(), inmemdb.DemoOperatorID)
	require.NoError(t, err)

	type extra struct {
		pwds []string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@example.com"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@example.com"}, extra: extra{pwds: []string{"Lol#Lmao42", "Lol#Lmao42"}}, wantErr: user.ErrNotFound},
		{name: "passwords do not match", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwds: []string{"Lol#Lmao42", "Lol#Lmao43"}}, wantErrStr: "passwords do not match"},
		{name: "too simple", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwds: []string{"lol#lmao42", "lol#lmao42"}}, wantErrStr: "password: password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwds: []string{"Lol#Lmao42", "Lol#Lmao42"}}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			var pwds []string
			if extra, ok := tt.extra.(extra); ok {
				pwds = extra.pwds
			}
			mockPasswords(pwds...)

			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			}
		})
	}
}

func Test_commandLine_importStudents(t *testing.T) {
	cli := setup(t)

	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}
	valid := write("valid.csv", "name,email,campus_id,grade_id\nAda Lovelace,ada@example.com,101,10\nAlan Turing,alan@example.com,102,11\n")
	invalid := write("invalid.csv", "name,email,campus_id,grade_id\n,ada@example.com,101,10\n")
	empty := write("empty.csv", "name,email,campus_id,grade_id\n")

	tests := []cliTest{
		{name: "no args", args: []string{"import"}, wantErr: errHelp},
		{name: "missing file", args: []string{"import", "-file", filepath.Join(dir, "nope.csv")}, wantErrStr: "opening file: open " + filepath.Join(dir, "nope.csv") + ": no such file or directory"},
		{name: "empty file", args: []string{"import", "-file", empty}, wantErrStr: "file: " + student.ErrEmptyFile.Error()},
		{name: "invalid rows", args: []string{"import", "-file", invalid}, wantErrStr: "records: Row 1: Name is required"},
		{name: "import", args: []string{"import", "-file", valid}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	students, err := stdRepo.QueryAllStudents(context.Background())
	require.NoError(t, err)
	assert.Len(t, students, 5)
}
