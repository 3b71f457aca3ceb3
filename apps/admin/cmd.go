package main

import (
	"database/sql"
	"flag"
	"fmt"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/student"
	"github.com/trezcool/compass/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("no database configured")
)

type commandLine struct {
	db         *sql.DB // nil when the in-memory demo database is used
	usrSvc     *user.Service
	stdSvc     *student.Service
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -name NAME -email EMAIL [-admin] - create an operator; the password is prompted")
	fmt.Println("  resetpassword -email EMAIL - reset an operator's password; the password is prompted")
	fmt.Println("  migrate COMMAND [ARGS...] - run database migrations (up, down, status, version, ...)")
	fmt.Println("  import -file PATH - bulk create the students of a CSV or XLSX file")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The operator's name.")
	addUserEmail := addUserCmd.String("email", "", "The operator's email. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant administrator rights.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The operator's email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "Path of the CSV or XLSX file.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, confirm, err := promptNewPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.explain(cli.addUser(*addUserName, *addUserEmail, pwd, confirm, *addUserAdmin))

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, confirm, err := promptNewPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		if pwd != confirm {
			return errors.New("passwords do not match")
		}
		return cli.explain(cli.resetPassword(*resetPasswordEmail, pwd))

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.explain(cli.importStudents(*importFile))

	default:
		cli.printUsage()
		return errHelp
	}
}

// promptNewPassword reads a password and its confirmation without echoing them.
func promptNewPassword() (pwd, confirm string, err error) {
	fmt.Print("Enter password:")
	b, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil || len(b) == 0 {
		return "", "", err
	}
	fmt.Print("Confirm password:")
	c, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", "", err
	}
	return string(b), string(c), nil
}

// explain turns validation errors into one readable line; other errors are returned unchanged.
func (cli *commandLine) explain(err error) error {
	if err == nil {
		return nil
	}

	var msgs []string
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, vErr := range origErr {
			msgs = append(msgs, vErr.Field()+": "+vErr.Translate(cli.translator))
		}
	case *core.ValidationError:
		for _, fErr := range origErr.Fields {
			msgs = append(msgs, fErr.Field+": "+fErr.Error)
		}
	}
	if len(msgs) == 0 {
		return err
	}
	return errors.New(strings.Join(msgs, "\n"))
}
