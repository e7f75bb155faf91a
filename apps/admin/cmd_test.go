package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/media"
	"github.com/vishusingh1/classroom/core/user"
	emailsvc "github.com/vishusingh1/classroom/services/email"
	inmemdb "github.com/vishusingh1/classroom/storage/database/inmem"
)

func setup(t *testing.T) (*commandLine, user.Repository, *bytes.Buffer) {
	t.Helper()
	conf := &core.Config{AppName: "Classroom"}
	usrRepo := inmemdb.NewUserRepository(inmemdb.Open())
	validate := validator.New()
	out := new(bytes.Buffer)

	// start CLI
	return &commandLine{
		usrSvc: user.NewService(usrRepo, validate, emailsvc.NewConsoleServiceMock(conf)),
		out:    out,
	}, usrRepo, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, out := setup(t)
	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	})
	assert.Contains(t, out.String(), "clearavatar -user ID")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	orig := runMigrationsFunc
	defer func() { runMigrationsFunc = orig }()
	runMigrationsFunc = func(db *sql.DB, command string, args ...string) error {
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

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	})
}

func Test_commandLine_clearAvatar(t *testing.T) {
	cli, usrRepo, out := setup(t)

	now := time.Now().UTC()
	usr, err := usrRepo.CreateUser(context.Background(), user.User{
		Name:      "User",
		Username:  "awe",
		Email:     "awe@test.cd",
		IsActive:  true,
		Avatar:    &media.AssetReference{URL: "https://x/awe.png", PublicID: "awe"},
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"clearavatar"}, wantErr: errHelp},
		{name: "not an id", args: []string{"clearavatar", "-user", "lol"}, wantErrStr: "invalid value \"lol\" for flag -user: parse error"},
		{name: "user not found", args: []string{"clearavatar", "-user", strconv.Itoa(usr.ID + 1)}, wantErr: user.ErrNotFound},
		{name: "clear", args: []string{"clearavatar", "-user", strconv.Itoa(usr.ID)}},
		{name: "already cleared", args: []string{"clearavatar", "-user", strconv.Itoa(usr.ID)}},
	})

	got, err := usrRepo.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Avatar)
	assert.Contains(t, out.String(), `profile photo of "awe" cleared`)
}
