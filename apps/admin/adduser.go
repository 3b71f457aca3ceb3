package main

import (
	"context"
	"fmt"

	"github.com/trezcool/compass/core/user"
)

// addUser creates an active operator; the password policy applies.
func (cli *commandLine) addUser(name, email, pwd, confirm string, isAdmin bool) error {
	usr, err := cli.usrSvc.Create(context.Background(), user.NewUser{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: confirm,
		IsAdmin:         isAdmin,
	})
	if err != nil {
		return err
	}
	fmt.Printf("operator %s <%s> created\n", usr.Name, usr.Email)
	return nil
}
