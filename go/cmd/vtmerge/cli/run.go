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

package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"vitess.io/shardmerge/go/vt/log"
	"vitess.io/shardmerge/go/vt/utils"
	"vitess.io/shardmerge/go/vt/vtgate/engine"
	"vitess.io/shardmerge/go/vt/vtgate/shardcursor"
)

func newRunCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the job query on every shard and prints the merged result.",
		Example: `vtmerge run --config orders.yaml
vtmerge run --config orders.yaml --output json --query "SELECT id FROM orders ORDER BY id"`,
		Args: cobra.NoArgs,
		RunE: o.run,
	}
	utils.SetFlagStringVar(cmd.Flags(), &o.output, "output", "table", "output format: table or json")
	utils.SetFlagStringVar(cmd.Flags(), &o.metricsTextfile, "metrics-textfile", "", "write the merge metrics to this file in the Prometheus text format")
	return cmd
}

func (o *options) run(cmd *cobra.Command, args []string) error {
	j, err := loadJob(o.v)
	if err != nil {
		return err
	}
	format := o.v.GetString("output")
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown output format %q: expected table or json", format)
	}
	var reg *prometheus.Registry
	if o.metricsTextfile != "" {
		reg = promRegistry()
	}

	ctx := cmd.Context()
	shards, err := shardcursor.Open(ctx, j.shards)
	if err != nil {
		return err
	}
	defer shardcursor.CloseShards(shards)

	start := time.Now()
	cursors, err := shardcursor.Scatter(ctx, shards, j.query)
	if err != nil {
		return err
	}
	defer shardcursor.CloseCursors(cursors)

	mr, err := engine.NewMergedResult(j.mc, shardcursor.EngineCursors(cursors))
	if err != nil {
		return err
	}
	result, err := readResult(mr)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := writeResult(cmd.OutOrStdout(), format, result); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s rows in set from %d shards (%v)\n", humanize.Comma(int64(len(result.Rows))), len(shards), elapsed.Round(time.Millisecond))
	log.InfoS("merge finished", "rows", len(result.Rows), "shards", len(shards), "elapsed", elapsed)
	if log.Enabled(slog.LevelDebug) {
		log.DebugS("merge plan", "plan", engine.ToTree(mr))
	}

	if reg != nil {
		if err := prometheus.WriteToTextfile(o.metricsTextfile, reg); err != nil {
			return err
		}
	}
	return nil
}
