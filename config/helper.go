package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/relloyd/dbcop/constants"
)

var dbcopHomeDir string

// mustGetConfigHomeDir returns the full path to the home directory that stores all config files.
// Uses global variable.
func mustGetConfigHomeDir() string {
	if dbcopHomeDir == "" {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		dbcopHomeDir = filepath.Join(home, constants.ConfigDirName)
	}
	return dbcopHomeDir
}

// HomeDir returns the directory holding config files, the secret key and the tool cache.
func HomeDir() string {
	return mustGetConfigHomeDir()
}

// makeDir wll make the given directory if it does not already exist.
// If it exist then return nil.
// An error is returned if there is a problem creating the dir.
func makeDir(dir string) error {
	_, err := os.Stat(dir)
	if os.IsNotExist(err) { // if it doesn't exist...
		if err = os.MkdirAll(dir, 0700); err != nil { // if the dir was NOT created...
			return fmt.Errorf("error creating directory %v: %v", dir, err)
		}
	} else if err != nil { // if there was an error getting status...
		return err
	}
	return nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
