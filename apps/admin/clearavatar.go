package main

import (
	"context"
	"fmt"
)

// clearAvatar only clears the stored reference: the admin holds no deletion token for the hosted image.
func (cli *commandLine) clearAvatar(ctx context.Context, id int) error {
	usr, err := cli.usrSvc.SetAvatar(ctx, id, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "profile photo of %q cleared\n", usr.Username)
	return nil
}
