package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/report"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db            *sql.DB
	out           io.Writer
	consolidation *consolidation.Service
	report        *report.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                          - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  close -section S -bimester B -user ID           - close a grading period")
	fmt.Fprintln(cli.out, "  reopen -section S -bimester B                   - reopen a closed grading period")
	fmt.Fprintln(cli.out, "  status                                          - list the state of every recorded period")
	fmt.Fprintln(cli.out, "  coverage -section S -bimester B                 - print the grading coverage of a period")
	fmt.Fprintln(cli.out, "  hashpassword                                    - hash a password for the directory file")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	closeCmd := flag.NewFlagSet("close", flag.ContinueOnError)
	closeSection := closeCmd.String("section", "", "The section to close.")
	closeBimester := closeCmd.String("bimester", "", "The bimester to close.")
	closeUser := closeCmd.String("user", "", "The ID of the user closing the period.")

	reopenCmd := flag.NewFlagSet("reopen", flag.ContinueOnError)
	reopenSection := reopenCmd.String("section", "", "The section to reopen.")
	reopenBimester := reopenCmd.String("bimester", "", "The bimester to reopen.")

	coverageCmd := flag.NewFlagSet("coverage", flag.ContinueOnError)
	coverageSection := coverageCmd.String("section", "", "The section.")
	coverageBimester := coverageCmd.String("bimester", "", "The bimester.")

	for _, fs := range []*flag.FlagSet{closeCmd, reopenCmd, coverageCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "close":
		if err := closeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *closeSection == "" || *closeBimester == "" || *closeUser == "" {
			closeCmd.Usage()
			return errHelp
		}
		return cli.closePeriod(*closeSection, *closeBimester, *closeUser)

	case "reopen":
		if err := reopenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reopenSection == "" || *reopenBimester == "" {
			reopenCmd.Usage()
			return errHelp
		}
		return cli.reopenPeriod(*reopenSection, *reopenBimester)

	case "status":
		return cli.status()

	case "coverage":
		if err := coverageCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *coverageSection == "" || *coverageBimester == "" {
			coverageCmd.Usage()
			return errHelp
		}
		return cli.coverage(*coverageSection, *coverageBimester)

	case "hashpassword":
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.hashPassword(string(pwd))

	default:
		cli.printUsage()
		return errHelp
	}
}
