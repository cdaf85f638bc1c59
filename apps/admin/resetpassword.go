package main

import (
	"context"
	"time"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.repos.Users.GetUser(ctx, user.GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.MustResetPassword = false
	usr.UpdatedAt = time.Now().UTC()
	_, err = cli.repos.Users.UpdateUser(ctx, usr)
	return err
}
