package helper

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/relloyd/dbcop/constants"
)

// GetEnvVar fetches OS environment variable.
// If the variable is not set it returns empty string.
// It also returns an error if there is a missing value AND mandatory == true.
func GetEnvVar(k string, mandatory bool) (string, error) {
	if value := os.Getenv(k); value != "" {
		return value, nil
	}
	if mandatory {
		return "", fmt.Errorf("environment variable %v is not set", k)
	}
	return "", nil
}

// ReadValueFromEnvWithDefault will read the value of name from the environment.
// If it's not set then it will return the supplied defaultValue.
func ReadValueFromEnvWithDefault(name string, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

// GetFlagEnvVarName converts a flag name like log-level into DBCOP_LOG_LEVEL.
func GetFlagEnvVarName(flagName string) string {
	n := strings.ReplaceAll(strings.TrimSpace(strings.ToUpper(flagName)), "-", "_")
	return fmt.Sprintf("%v_%v", constants.EnvVarPrefix, n)
}

// GetConnectionEnvVarName returns the variable holding the DSN for connectionName e.g. DBCOP_CONN_PROD.
func GetConnectionEnvVarName(connectionName string) string {
	n := strings.ReplaceAll(strings.TrimSpace(strings.ToUpper(connectionName)), "-", "_")
	return constants.EnvVarConnectionPrefix + n
}

// GetConnectionEnvVars returns connection name to DSN for every DBCOP_CONN_* variable in environ.
// Names are lower case.
func GetConnectionEnvVars(environ []string) map[string]string {
	retval := make(map[string]string)
	for _, kv := range environ {
		idx := strings.Index(kv, "=")
		if idx <= 0 {
			continue
		}
		k, v := kv[:idx], kv[idx+1:]
		if !strings.HasPrefix(k, constants.EnvVarConnectionPrefix) || v == "" {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(k, constants.EnvVarConnectionPrefix))
		if name != "" {
			retval[name] = v
		}
	}
	return retval
}

// SortedKeys returns the keys of m in order.
func SortedKeys(m map[string]string) []string {
	retval := make([]string, 0, len(m))
	for k := range m {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval
}
