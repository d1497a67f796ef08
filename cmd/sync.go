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
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dsebd/imds-sync/src/config"
	"github.com/dsebd/imds-sync/src/destdb"
	"github.com/dsebd/imds-sync/src/srcdb"
	"github.com/dsebd/imds-sync/src/sync"
	"github.com/dsebd/imds-sync/src/utils"
)

var (
	source         srcdb.Source
	tconf          destdb.TargetConf
	tableFilter    string
	timeoutSeconds int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the sync job for every configured table",
	Long: `Runs each configured table sync in order: fetch all source rows, map
them to destination records, skip records whose natural key already exists
at the destination, insert the rest and commit once per table. The first
aborted table stops the process with a non-zero exit status; remaining
tables are not attempted.`,

	Run: func(cmd *cobra.Command, args []string) {
		syncTables()
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	registerSourceDBFlags(syncCmd)
	registerTargetDBFlags(syncCmd)

	syncCmd.Flags().StringVar(&tableFilter, "table", "",
		"sync only the named table spec (default: all configured tables)")
	syncCmd.Flags().IntVar(&timeoutSeconds, "timeout", 0,
		"overall deadline for the whole invocation in seconds (0 = no deadline)")
}

func registerSourceDBFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&source.Host, "source-db-host", "127.0.0.1",
		"source database server host")
	cmd.Flags().IntVar(&source.Port, "source-db-port", 3306,
		"source database server port")
	cmd.Flags().StringVar(&source.User, "source-db-user", "",
		"connect to the source database as the specified user")
	cmd.Flags().StringVar(&source.Password, "source-db-password", "",
		"source password to connect as the specified user")
	cmd.Flags().StringVar(&source.DBName, "source-db-name", "",
		"source database name to read from")

	bindFlagsToConfigKeys(cmd, "source-", "source", []string{
		"source-db-host", "source-db-port", "source-db-user",
		"source-db-password", "source-db-name",
	})
}

func registerTargetDBFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&tconf.Host, "target-db-host", "127.0.0.1",
		"destination database server host")
	cmd.Flags().IntVar(&tconf.Port, "target-db-port", 5432,
		"destination database server port")
	cmd.Flags().StringVar(&tconf.User, "target-db-user", "",
		"connect to the destination database as the specified user")
	cmd.Flags().StringVar(&tconf.Password, "target-db-password", "",
		"destination password to connect as the specified user")
	cmd.Flags().StringVar(&tconf.DBName, "target-db-name", "",
		"destination database name to write to")
	cmd.Flags().StringVar(&tconf.Schema, "target-db-schema", "public",
		"destination schema the tables live in")

	bindFlagsToConfigKeys(cmd, "target-", "target", []string{
		"target-db-host", "target-db-port", "target-db-user",
		"target-db-password", "target-db-name", "target-db-schema",
	})
}

// bindFlagsToConfigKeys maps each flag to its config file key
// (e.g. --source-db-host to source.db-host). CLI flags take precedence over
// config file values, which take precedence over flag defaults.
func bindFlagsToConfigKeys(cmd *cobra.Command, flagPrefix, configSection string, flagNames []string) {
	for _, flagName := range flagNames {
		configKey := configSection + "." + strings.TrimPrefix(flagName, flagPrefix)
		viper.BindPFlag(configKey, cmd.Flags().Lookup(flagName))
	}
}

func syncTables() {
	lockRun()
	defer unlockRun()

	applyConfigValues()
	specs := resolveTableSpecs()

	ctx := context.Background()
	if timeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
		defer cancel()
	}

	srcDB := srcdb.NewSourceDB(&source)
	if err := srcDB.Connect(); err != nil {
		utils.ErrExit("Failed to connect to the source database: %s", err)
	}
	defer srcDB.Disconnect()
	if err := srcDB.CheckConnection(ctx); err != nil {
		utils.ErrExit("Failed to ping the source database: %s", err)
	}
	utils.PrintAndLog("Connected to source database %s@%s:%d/%s",
		source.User, source.Host, source.Port, source.DBName)

	targetDB := destdb.NewTargetDB(&tconf)
	if err := targetDB.Connect(); err != nil {
		utils.ErrExit("Failed to connect to the destination database: %s", err)
	}
	defer targetDB.Disconnect()
	if err := targetDB.CheckConnection(ctx); err != nil {
		utils.ErrExit("Failed to ping the destination database: %s", err)
	}
	utils.PrintAndLog("Connected to destination database %s@%s:%d/%s",
		tconf.User, tconf.Host, tconf.Port, tconf.DBName)

	if config.IsLogLevelDebugOrBelow() {
		log.Debugf("source connection uri: %s", utils.GetRedactedURL(source.GetConnectionUri()))
		log.Debugf("destination connection uri: %s", utils.GetRedactedURL(tconf.GetConnectionUri()))
	}

	for i := range specs {
		spec := &specs[i]
		job := sync.NewJob(spec, srcDB, targetDB)
		summary, err := job.Run(ctx)
		summary.Emit()
		if err != nil {
			// Stop-the-world: the aborted table committed nothing and the
			// remaining tables are not attempted. Non-zero exit status marks
			// "aborted before commit" for operational alerting.
			utils.ErrExit("Sync of table %q aborted: %s", spec.Name, err)
		}
	}
}

// applyConfigValues copies the viper-resolved values (flag, else config
// file, else default) back onto the connection configs.
func applyConfigValues() {
	source.Host = viper.GetString("source.db-host")
	source.Port = viper.GetInt("source.db-port")
	source.User = viper.GetString("source.db-user")
	source.Password = viper.GetString("source.db-password")
	source.DBName = viper.GetString("source.db-name")
	source.Uri = viper.GetString("source.uri")

	tconf.Host = viper.GetString("target.db-host")
	tconf.Port = viper.GetInt("target.db-port")
	tconf.User = viper.GetString("target.db-user")
	tconf.Password = viper.GetString("target.db-password")
	tconf.DBName = viper.GetString("target.db-name")
	tconf.Schema = viper.GetString("target.db-schema")
	tconf.Uri = viper.GetString("target.uri")

	if source.Uri == "" && (source.User == "" || source.DBName == "") {
		utils.ErrExit("source database user and name are required (flags or config file)")
	}
	if tconf.Uri == "" && (tconf.User == "" || tconf.DBName == "") {
		utils.ErrExit("destination database user and name are required (flags or config file)")
	}
}

// resolveTableSpecs loads the table list from the config file, falling back
// to the built-in mkistat and trd specs, then applies the --table filter.
func resolveTableSpecs() []config.TableSpec {
	var specs []config.TableSpec
	if viper.IsSet("tables") {
		if err := viper.UnmarshalKey("tables", &specs); err != nil {
			utils.ErrExit("Failed to parse 'tables' from config file: %s", err)
		}
	}
	if len(specs) == 0 {
		specs = config.DefaultTableSpecs()
	}
	for i := range specs {
		if err := specs[i].Validate(); err != nil {
			utils.ErrExit("Invalid table spec: %s", err)
		}
	}
	if tableFilter != "" {
		filtered := lo.Filter(specs, func(s config.TableSpec, _ int) bool {
			return s.Name == tableFilter
		})
		if len(filtered) == 0 {
			utils.ErrExit("No configured table spec named %q", tableFilter)
		}
		specs = filtered
	}
	return specs
}
