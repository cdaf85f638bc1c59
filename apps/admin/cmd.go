package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/kita/apps/di"
	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("this command requires a database")
)

type commandLine struct {
	conf     *core.Config
	db       *sql.DB // nil with the in-memory engine
	repos    di.Repos
	svcs     di.Services
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)\n")
	cli.printf("  adduser -email EMAIL -name NAME [-role ROLE | -admin] - create or update a user, the password is prompted\n")
	cli.printf("  resetpassword -email EMAIL - set a user's password, the password is prompted\n")
	cli.printf("  setcodes [-parent CODE] [-team CODE] [-admin CODE] - change the registration codes\n")
	cli.printf("  seed -file FILE - load facility settings, groups and meal options from a YAML file\n")
	cli.printf("  hideexpired - hide the read absences that are over\n")
}

// promptPassword reads a password without echoing it. An empty password prints usage.
func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		if cli.db == nil {
			return errNoDatabase
		}
		return cli.migrate(args[2:])

	case "adduser":
		cmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		email := cmd.String("email", "", "The user's email.")
		name := cmd.String("name", "", "The user's full name.")
		role := cmd.String("role", user.RoleTeam, "One of parent, team or admin.")
		isAdmin := cmd.Bool("admin", false, "Shorthand for -role admin.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *email == "" || *name == "" {
			cmd.Usage()
			return errHelp
		}
		if *isAdmin {
			*role = user.RoleAdmin
		}
		pwd, err := cli.promptPassword(cmd)
		if err != nil {
			return err
		}
		usr, err := cli.addUser(*name, *email, *role, pwd)
		if err != nil {
			return err
		}
		cli.printf("saved %s (%s)\n", usr.Email, usr.Role)
		return nil

	case "resetpassword":
		cmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		email := cmd.String("email", "", "The user's email. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *email == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(cmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*email, pwd)

	case "setcodes":
		cmd := flag.NewFlagSet("setcodes", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		parent := cmd.String("parent", "", "The parents' registration code.")
		team := cmd.String("team", "", "The team's registration code.")
		admin := cmd.String("admin", "", "The admins' registration code.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *parent == "" && *team == "" && *admin == "" {
			cmd.Usage()
			return errHelp
		}
		codes, err := cli.setCodes(*parent, *team, *admin)
		if err != nil {
			return err
		}
		cli.printf("parent: %s\nteam: %s\nadmin: %s\n", codes.Parent, codes.Team, codes.Admin)
		return nil

	case "seed":
		cmd := flag.NewFlagSet("seed", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		file := cmd.String("file", "", "The YAML seed file.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *file == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.seedFile(*file)

	case "hideexpired":
		n, err := cli.svcs.Absence.HideExpired(context.Background())
		if err != nil {
			return err
		}
		cli.printf("hid %d absences\n", n)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}
