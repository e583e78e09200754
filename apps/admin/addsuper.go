package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/user"
)

// addSuper creates a pre-approved super admin. Super admins belong to the
// portal, not to a school.
func (cli *commandLine) addSuper(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	if err := cli.usrRepo.CheckEmailUniqueness(ctx, email); err != nil {
		return err
	}

	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      user.RoleSuperAdmin,
		Approved:  true,
		Status:    user.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	if _, err := cli.usrRepo.CreateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "creating super admin")
	}
	return nil
}
