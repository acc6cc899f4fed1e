/*
Copyright 2023 The Vitess Authors.

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

// Package cli implements the vtmerge command line.
package cli

import (
	goflag "flag"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vitess.io/shardmerge/go/stats/prometheusbackend"
	"vitess.io/shardmerge/go/vt/log"
	"vitess.io/shardmerge/go/vt/utils"
	"vitess.io/shardmerge/go/vt/vtgate/engine"
)

// options holds the flag values of one command tree.
type options struct {
	configFile      string
	output          string
	query           string
	maxMemoryGroups int
	metricsTextfile string

	v *viper.Viper
}

// promRegistry exports the stats variables of the process. The stats
// hook can only be installed once.
var promRegistry = sync.OnceValue(func() *prometheus.Registry {
	engine.InitializeMetrics()
	reg := prometheus.NewRegistry()
	prometheusbackend.Init("vtmerge", reg)
	return reg
})

// New returns the vtmerge root command.
func New() *cobra.Command {
	o := &options{v: viper.New()}
	root := &cobra.Command{
		Use:   "vtmerge",
		Short: "Runs a query on every shard of a job and merges the results.",
		Long: `vtmerge runs a query on every shard of a job and merges the shard results
into the result the query would return on a single database.

A job file lists the shards, the query sent to each of them, and how the
shard results recombine:

  shards:
    - {name: "-80", driver: mysql, dsn: "user:pass@tcp(10.0.0.1:3306)/commerce"}
    - {name: "80-", driver: mysql, dsn: "user:pass@tcp(10.0.0.2:3306)/commerce"}
  query: SELECT customer, COUNT(*) FROM orders GROUP BY customer ORDER BY customer
  merge:
    order_by: [{col: 0}]
    group_by: [{col: 0}]
    aggregations: [{col: 1, func: count}]`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Init(cmd.Flags()); err != nil {
				return err
			}
			return o.loadConfig(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Flush()
		},
	}

	fs := root.PersistentFlags()
	utils.SetFlagStringVar(fs, &o.configFile, "config", "", "job file (yaml, json or toml)")
	utils.SetFlagStringVar(fs, &o.query, "query", "", "query sent to every shard, overrides the job file")
	utils.SetFlagIntVar(fs, &o.maxMemoryGroups, "max-memory-groups", 0, "maximum number of groups an in-memory group merge may hold, 0 for no limit; overrides the job file")
	log.RegisterFlags(fs)
	fs.AddGoFlagSet(goflag.CommandLine)

	root.AddCommand(newRunCommand(o), newExplainCommand(o))
	return root
}

// loadConfig reads the job file and binds the flags that override it.
// Keys can also be set from VTMERGE_* environment variables.
func (o *options) loadConfig(cmd *cobra.Command) error {
	o.v.SetEnvPrefix("vtmerge")
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.v.AutomaticEnv()
	o.v.SetDefault("output", "table")

	for _, name := range []string{"query", "max-memory-groups", "output"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := o.v.BindPFlag(name, f); err != nil {
				return err
			}
		}
	}
	if o.configFile == "" {
		return nil
	}
	o.v.SetConfigFile(o.configFile)
	if err := o.v.ReadInConfig(); err != nil {
		return err
	}
	log.InfoS("job file loaded", "config", o.v.ConfigFileUsed())
	return nil
}
