package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/vishusingh1/classroom/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db     *sql.DB
	usrSvc *user.Service
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a migration command (up, down, status, version, redo, reset, up-to, down-to...)")
	fmt.Fprintln(cli.out, "  clearavatar -user ID   - remove a user's profile photo (the hosted image is left as is)")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	clearAvatarCmd := flag.NewFlagSet("clearavatar", flag.ContinueOnError)
	clearAvatarCmd.SetOutput(cli.out)
	clearAvatarUser := clearAvatarCmd.Int("user", 0, "The user's ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "clearavatar":
		if err := clearAvatarCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *clearAvatarUser <= 0 {
			clearAvatarCmd.Usage()
			return errHelp
		}
		return cli.clearAvatar(ctx, *clearAvatarUser)
	default:
		cli.printUsage()
		return errHelp
	}
}
