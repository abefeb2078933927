package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/dbcop/actions"
	"github.com/relloyd/dbcop/config"
	c "github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/helper"
	"github.com/relloyd/dbcop/logger"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set such that other init() functions that configure
// Cobra can do the job of processing all environment variables that would contain equivalent of the CLI flag
// structures used by the actions.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	if os.Getenv(envVarTwelveFactorMode) != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
	}
}

const (
	envVarTwelveFactorMode = c.EnvVarTwelveFactorMode
	envVarCommand          = c.EnvVarPrefix + "_" + "COMMAND"
	envVarSubcommand       = c.EnvVarPrefix + "_" + "SUBCOMMAND"
	envVarSource           = c.EnvVarPrefix + "_" + "SOURCE" // <connection-name>.<database>
	envVarTarget           = c.EnvVarPrefix + "_" + "TARGET" // <connection-name>[.<database>]
	envVarLogLevel         = c.EnvVarPrefix + "_" + "LOG_LEVEL"
	envVarStackDump        = c.EnvVarPrefix + "_" + "STACK_DUMP"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	twelveFactorVars = map[string]string{
		envVarCommand:    "",
		envVarSubcommand: "",
		envVarSource:     "",
		envVarTarget:     "",
		envVarLogLevel:   "",
		envVarStackDump:  "",
	}
)

type twelveFactorAction struct {
	setupFunc  func(src string, tgt string)
	runnerFunc func() error
}

var twelveFactorActions = map[string]twelveFactorAction{
	"sync-full":  newTwelveFactorSync("full"),
	"sync-safe":  newTwelveFactorSync("safe"),
	"sync-force": newTwelveFactorSync("force"),
	"serve": {
		setupFunc:  func(string, string) {},
		runnerFunc: runServe,
	},
}

// newTwelveFactorSync maps DBCOP_COMMAND=sync and DBCOP_SUBCOMMAND=<mode> to a sync.
// Remote targets are declined unless DBCOP_YES is set.
func newTwelveFactorSync(mode string) twelveFactorAction {
	return twelveFactorAction{
		setupFunc: func(src string, tgt string) {
			syncCfg.Mode = mode
			syncCfg.Source = src
			syncCfg.Target = tgt
		},
		runnerFunc: runSync,
	}
}

// getConnectionSource returns connections from the environment in twelveFactorMode, else from the config store.
func getConnectionSource() (actions.ConnectionSource, error) {
	if twelveFactorMode {
		return actions.NewEnvConnectionSource()
	}
	return actions.ConnectionSource{Loader: config.Connections, Credentials: config.Credentials}, nil
}

func getConnectionStore() actions.ConnectionStore {
	if twelveFactorMode {
		fmt.Printf("Error: connections cannot be configured when %v is set (supply them using %v instead)\n",
			envVarTwelveFactorMode, helper.GetConnectionEnvVarName("<connection-name>"))
		os.Exit(1)
	}
	return config.Connections
}

func execute12FactorMode(acts map[string]twelveFactorAction) (err error) {
	logLevel := helper.ReadValueFromEnvWithDefault(envVarLogLevel, "info") // fetch logLevel from env as this is not a persistent flag.
	log := logger.NewLogger(c.AppName, logLevel, stackDumpOnPanic)
	log.Info(c.AppName, " is running in 12 Factor mode...")
	// Save values for the required variables.
	for k := range twelveFactorVars { // for each env variable that we need...
		twelveFactorVars[k] = os.Getenv(k)
		log.Debug(k, "=", twelveFactorVars[k])
	}
	for _, name := range helper.SortedKeys(helper.GetConnectionEnvVars(os.Environ())) { // DSNs hold passwords so only log names.
		log.Debug("connection ", name, " found in ", helper.GetConnectionEnvVarName(name))
	}
	if parseBool(twelveFactorVars[envVarStackDump]) {
		stackDumpOnPanic = true
	}
	// Use command and subcommand to fetch the appropriate action.
	action := strings.ToLower(strings.TrimSuffix(fmt.Sprintf("%v-%v", twelveFactorVars[envVarCommand], twelveFactorVars[envVarSubcommand]), "-"))
	a, ok := acts[action]
	if !ok {
		err = fmt.Errorf("invalid combination of command (%v) and subcommand (%v)", twelveFactorVars[envVarCommand], twelveFactorVars[envVarSubcommand])
		log.Error(err.Error())
		return
	}
	a.setupFunc(twelveFactorVars[envVarSource], twelveFactorVars[envVarTarget])
	// Run the action.
	err = a.runnerFunc()
	if err != nil {
		log.Error("Error: ", err)
	}
	return err
}
