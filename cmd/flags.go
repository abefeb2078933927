package cmd

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/relloyd/dbcop/config"
	"github.com/relloyd/dbcop/helper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	argsDefinitionTxt = "<source-connection>.<database> <target-connection>[.<database>]"
)

type cliFlag struct {
	name      string // name of flag
	val       string // default value
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
}

type cliFlags map[string]cliFlag

var switches = cliFlags{
	"mock": cliFlag{name: "mock", shortHand: "m", desc: "mock switch for testing"},
	"log-level": cliFlag{name: "log-level", shortHand: "l",
		desc: "Log level: \"error | warn | info | debug | trace\""},
	"connection-name": cliFlag{name: "connection-name", shortHand: "c",
		desc: "Connection name referred to by sync actions as <connection>.<database>"},
	"server": cliFlag{name: "server", shortHand: "s",
		desc: "SQL Server address: <host>[\\<instance>][,<port>] where host may be '.', '(local)' or localhost"},
	"user": cliFlag{name: "user", shortHand: "u",
		desc: "SQL authentication user name"},
	"password": cliFlag{name: "password", shortHand: "P",
		desc: "SQL authentication password (omit to be prompted)"},
	"windows-auth": cliFlag{name: "windows-auth", shortHand: "w",
		desc: "Use Windows integrated authentication instead of a user and password"},
	"dsn": cliFlag{name: "dsn", shortHand: "d",
		desc: "Connect string of the form sqlserver://[<user>:<pass>@]<host>[:<port>][/<instance>]\n" +
			"(takes priority over individual flags)"},
	"force-connection": cliFlag{name: "force", shortHand: "f",
		desc: "Allow overwrite of existing connections"},
	"sqlpackage": cliFlag{name: "sqlpackage", shortHand: "",
		desc: "Full path to the SqlPackage executable (omit to search for it)"},
	"temp-dir": cliFlag{name: "temp-dir", shortHand: "T",
		desc: "Directory for intermediate .bacpac and .dacpac files (default is the OS temp dir)"},
	"log-file": cliFlag{name: "log-file", shortHand: "L",
		desc: "File that receives a copy of the log (default is DatabaseSync_Log_<timestamp>.txt in the temp dir)"},
	"yes": cliFlag{name: "yes", shortHand: "y",
		desc: "Do not ask for confirmation when the target server is remote"},
	"extract-all-table-data": cliFlag{name: "extract-all-table-data", shortHand: "a",
		desc: "Include all table data in the extracted schema package"},
	"lock-file": cliFlag{name: "lock-file", shortHand: "",
		desc: "Lock file used to stop two syncs running at once across processes"},
	"port": cliFlag{name: "port", shortHand: "p",
		desc: "Port to listen on"},
	"file": cliFlag{name: "file", shortHand: "f",
		desc: "File to read or write connections (.json or .yaml)"},
	"include-passwords": cliFlag{name: "include-passwords", shortHand: "i",
		desc: "Include encrypted passwords in the export. They can only be decrypted on this machine"},
	"force-import": cliFlag{name: "force", shortHand: "F",
		desc: "Overwrite existing connections with the same name"},
	"json": cliFlag{name: "json", shortHand: "j",
		desc: "Print the result as JSON"},
	"forget": cliFlag{name: "forget", shortHand: "",
		desc: "Forget the cached location and search again"},
}

// addFlag add a flag to cobra.Command c, based on the type of targetVar (which must be a pointer).
// The name of the flag is looked up in map, cliFlags.
// When running in twelveFactorMode, the targetVar is populated using the value of environment variable for the supplied
// name, or if not set then the supplied default value is used.
// When NOT running in twelveFactorMode, the default value is fetched from config if it exists else the supplied
// defaultValue is applied.
// The flag is marked as required in Cobra based on the value of required.
// Supply a value for desc2 to append to the existing description found in map cliFlags.
func (f *cliFlags) addFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, required bool, desc2 string) {
	v := reflect.ValueOf(targetVar)
	if v.Kind() != reflect.Ptr {
		fmt.Println("error adding flag: targetVar must be a pointer")
		os.Exit(1)
	}
	sw := f.getCliFlag(name, defaultValue, config.Main.Get) // get the cliFlag details, with defaults taken from config or the supplied defaultValue
	desc := sw.desc + desc2                                 // create the full flag description for use below
	// Apply the flag.
	switch p := targetVar.(type) {
	case *string:
		if twelveFactorMode {
			*p = sw.val
		} else {
			c.Flags().StringVarP(p, sw.name, sw.shortHand, sw.val, desc)
			// Signal that the flag was set so defaults take effect.
			if sw.val != "" { // if there is a value via config or default...
				mustSetFlag(c.Flags(), sw.name, sw.val)
			}
		}
	case *bool:
		defaultBool := parseBool(sw.val)
		if twelveFactorMode {
			*p = defaultBool
		} else {
			c.Flags().BoolVarP(p, sw.name, sw.shortHand, defaultBool, desc)
			// Signal that the flag was set so defaults take effect.
			mustSetFlag(c.Flags(), sw.name, strconv.FormatBool(defaultBool))
		}
	case *int:
		defaultInt, err := strconv.Atoi(sw.val)
		if err != nil {
			fmt.Printf("the value for flag %q must be an integer: %v\n", sw.name, err)
			os.Exit(1)
		}
		if twelveFactorMode {
			*p = defaultInt
		} else {
			c.Flags().IntVarP(p, sw.name, sw.shortHand, defaultInt, desc)
			// Signal that the flag was set so defaults take effect.
			if sw.val != "" { // if there is a value via config or default...
				mustSetFlag(c.Flags(), sw.name, sw.val)
			}
		}
	default:
		panic("Error: unhandled CLI flag target value type")
	}
	// Optionally mark the flag as mandatory.
	if required && !twelveFactorMode { // if the flag is required...
		_ = c.MarkFlagRequired(sw.name)
	}
}

// getCliFlag fetches the value of name from the environment, when running in twelveFactorMode,
// else read the Main config file to find it.
// If a value cannot be found then use the supplied defaultValue in its place.
func (f *cliFlags) getCliFlag(name string, defaultValue string, fnGetConfig func(key string, out interface{}) error) cliFlag {
	s, ok := (*f)[name]
	if !ok {
		panic(fmt.Sprintf("unregistered CLI flag, %q", name))
	}
	if twelveFactorMode { // if we should read env vars...
		s.val = helper.ReadValueFromEnvWithDefault(flagNameToEnvVar(name), defaultValue)
	} else { // else check the config file or apply default...
		if err := fnGetConfig(s.name, &s.val); err != nil || s.val == "" { // if there was no key found...
			// Apply the default.
			s.val = defaultValue
		}
	}
	return s
}

// flagNameToEnvVar will form a sanitised environment variable name using constants.EnvVarPrefix.
func flagNameToEnvVar(name string) string {
	return helper.GetFlagEnvVarName(name)
}

// parseBool treats any value other than an explicit false as true, so DBCOP_YES=1 works.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "n", "off":
		return false
	}
	return true
}

func mustSetFlag(f *pflag.FlagSet, name string, val string) {
	if err := f.Set(name, val); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// getSyncArgsFunc returns a func that cobra uses to validate that we have 2 args.
// It saves arg[0] as the source and arg[1] as the target.
func getSyncArgsFunc(src *string, tgt *string, customErrMsg string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			if customErrMsg != "" {
				return errors.New(customErrMsg)
			}
			return errors.New("requires source <connection>.<database> and target <connection>[.<database>]")
		}
		if !strings.Contains(args[0], ".") {
			return fmt.Errorf("source %q must name a database: use <connection>.<database>", args[0])
		}
		*src = args[0]
		*tgt = args[1]
		return nil
	}
}

// getConnectionArgFunc returns a func that cobra uses to validate that we have 1 arg.
// It saves arg[0] into name.
func getConnectionArgFunc(name *string, customErrMsg string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			if customErrMsg != "" {
				return errors.New(customErrMsg)
			}
			return errors.New("requires a <connection>")
		}
		*name = args[0]
		return nil
	}
}
