package main

import (
	"fmt"

	"github.com/nocheto/libretas/core/school"
)

// hashPassword prints the bcrypt hash to paste as password_hash in the directory file.
func (cli *commandLine) hashPassword(pwd string) error {
	var usr school.User
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, string(usr.PasswordHash))
	return nil
}
