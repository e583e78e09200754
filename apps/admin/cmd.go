package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/akili/shulenet/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sqlx.DB
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate up|down|status|version - run database migrations")
	fmt.Println("  addsuper -name NAME -email EMAIL - create a super admin; the password is prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addSuperCmd := flag.NewFlagSet("addsuper", flag.ExitOnError)
	addSuperName := addSuperCmd.String("name", "", "The admin's full name.")
	addSuperEmail := addSuperCmd.String("email", "", "The admin's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addsuper":
		if err := addSuperCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSuperName == "" || *addSuperEmail == "" {
			addSuperCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addSuperCmd.Usage()
			return errHelp
		}
		return cli.addSuper(*addSuperName, *addSuperEmail, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}
