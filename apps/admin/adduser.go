package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/user"
)

// addUser updates or creates an active user.User.
func (cli *commandLine) addUser(name, email, role, pwd string) (user.User, error) {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	if err := cli.validate.Var(email, "required,email"); err != nil {
		return user.User{}, fmt.Errorf("invalid email %q", email)
	}
	if !isRole(role) {
		return user.User{}, fmt.Errorf("invalid role %q", role)
	}

	now := time.Now().UTC()
	usr, err := cli.repos.Users.GetUser(ctx, user.GetFilter{Email: email})
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, err
		}
		usr = user.User{
			Email:      email,
			FacilityID: cli.conf.FacilityID,
			CreatedAt:  now,
		}
	}
	usr.FullName = name
	usr.Role = role
	usr.IsActive = true
	usr.MustResetPassword = false
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}

	if exists {
		return cli.repos.Users.UpdateUser(ctx, usr)
	}
	return cli.repos.Users.CreateUser(ctx, usr)
}

func isRole(role string) bool {
	for _, r := range user.AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
