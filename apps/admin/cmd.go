package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/qualification"
	"github.com/sigcolegio/backend/core/user"
	"github.com/sigcolegio/backend/core/validity"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db          *sql.DB
	out         io.Writer
	usrSvc      *user.Service
	qualSvc     *qualification.Service
	validitySvc *validity.Service
	mailSvc     core.EmailService
	validate    *validator.Validate
	translator  ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -id NUMBER -first NAME -last NAME -role ROLE [-type CC] [-email EMAIL] - create or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -id NUMBER|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  validities - list validities")
	fmt.Fprintln(cli.out, "  activate -id ID - make a validity the active one")
	fmt.Fprintln(cli.out, "  generatefinals -school ID -year YEAR [-group ID] [-email EMAIL] - generate final grades")
}

// readPassword prompts for a password. An empty password prints usage.
func (cli *commandLine) readPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
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

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserID := addUserCmd.String("id", "", "The user's identification number. The password will be prompted next.")
	addUserType := addUserCmd.String("type", user.IDCitizenship, "The identification type (CC, TI, CE, PP).")
	addUserFirst := addUserCmd.String("first", "", "The user's first name.")
	addUserLast := addUserCmd.String("last", "", "The user's last name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", user.RoleRector, "The user's role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordID := resetPasswordCmd.String("id", "", "The user's identification number or email. The password will be prompted next.")

	activateCmd := flag.NewFlagSet("activate", flag.ContinueOnError)
	activateID := activateCmd.String("id", "", "The validity id.")

	finalsCmd := flag.NewFlagSet("generatefinals", flag.ContinueOnError)
	finalsSchool := finalsCmd.String("school", "", "The school id.")
	finalsYear := finalsCmd.Int("year", 0, "The academic year.")
	finalsGroup := finalsCmd.String("group", "", "Restrict to a group.")
	finalsEmail := finalsCmd.String("email", "", "Send the year's finals report to this address.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, activateCmd, finalsCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserID == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(user.NewUser{
			IdentificationType:   *addUserType,
			IdentificationNumber: *addUserID,
			FirstName:            *addUserFirst,
			LastName:             *addUserLast,
			Email:                *addUserEmail,
			Password:             pwd,
			PasswordConfirm:      pwd,
			Role:                 *addUserRole,
		})
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordID == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordID, pwd)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "validities":
		return cli.listValidities()
	case "activate":
		if err := activateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *activateID == "" {
			activateCmd.Usage()
			return errHelp
		}
		return cli.activate(*activateID)
	case "generatefinals":
		if err := finalsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *finalsSchool == "" || *finalsYear == 0 {
			finalsCmd.Usage()
			return errHelp
		}
		return cli.generateFinals(*finalsSchool, *finalsYear, *finalsGroup, *finalsEmail)
	default:
		cli.printUsage()
		return errHelp
	}
}
