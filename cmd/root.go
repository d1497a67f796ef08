/*
Copyright (c) the imds-sync authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nightlyone/lockfile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dsebd/imds-sync/src/config"
	"github.com/dsebd/imds-sync/src/utils"
)

var (
	cfgFile  string
	logDir   string
	lockFile lockfile.Lockfile
)

var rootCmd = &cobra.Command{
	Use:   "imds-sync",
	Short: "One-way idempotent sync of market data tables from MySQL to PostgreSQL",
	Long: `imds-sync replicates new rows of the market-instrument-statistics and
trade-summary tables from a MySQL source into a PostgreSQL destination.
Rows whose natural key already exists at the destination are skipped, so
re-running against an unchanged source inserts nothing.`,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Use == "version" {
			return
		}
		if err := config.ValidateLogLevel(); err != nil {
			utils.ErrExit("%s", err)
		}
		InitLogging(logDir)
	},

	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			os.Exit(0)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.imds-sync.yaml)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", ".",
		"directory the rotated log file is written to")
	rootCmd.PersistentFlags().StringVar(&config.LogLevel, "log-level", "info",
		"log level (trace, debug, info, warn, error, fatal, panic)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".imds-sync" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".imds-sync")
	}

	viper.SetEnvPrefix("IMDS_SYNC")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// lockRun guards against two simultaneous invocations racing on the same
// natural keys. The lock is advisory; a destination unique constraint on the
// natural key columns is still the stronger guarantee.
func lockRun() {
	if !utils.FileOrFolderExists(logDir) {
		utils.ErrExit("log-dir %q doesn't exist", logDir)
	}
	lockFilePath, err := filepath.Abs(filepath.Join(logDir, ".imds-sync.lck"))
	if err != nil {
		utils.ErrExit("Failed to get absolute path for lockfile: %v", err)
	}
	lockFile, err = lockfile.New(lockFilePath)
	if err != nil {
		utils.ErrExit("Failed to create lockfile %q: %v", lockFilePath, err)
	}
	err = lockFile.TryLock()
	if err == nil {
		return
	} else if err == lockfile.ErrBusy {
		utils.ErrExit("Another instance of imds-sync is already running (lockfile %q)", lockFilePath)
	} else {
		utils.ErrExit("Unable to take the run lock: %v", err)
	}
}

func unlockRun() {
	err := lockFile.Unlock()
	if err != nil {
		utils.ErrExit("Unable to unlock %q: %v", lockFile, err)
	}
}
