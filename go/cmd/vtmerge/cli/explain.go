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
	"strings"

	"github.com/spf13/cobra"

	"vitess.io/shardmerge/go/vt/utils"
	"vitess.io/shardmerge/go/vt/vtgate/engine"
	"vitess.io/shardmerge/go/vt/vtgate/mergeconfig"
	"vitess.io/shardmerge/go/vt/vtgate/shardcursor"
)

func newExplainCommand(o *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Prints the merge plan of a job without reading any rows.",
		Long: `Prints the merge plan of a job without reading any rows.

The shard columns are discovered by sending the query wrapped in a LIMIT 0
derived table to every shard. The config format prints the merge section
as it was understood, with every default filled in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.explain(cmd, format)
		},
	}
	utils.SetFlagStringVar(cmd.Flags(), &format, "format", "tree", "plan format: tree, json or config")
	return cmd
}

func (o *options) explain(cmd *cobra.Command, format string) error {
	j, err := loadJob(o.v)
	if err != nil {
		return err
	}
	if format == "config" {
		out, err := mergeconfig.Marshal(j.mc)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if format != "tree" && format != "json" {
		return fmt.Errorf("unknown plan format %q: expected tree, json or config", format)
	}

	ctx := cmd.Context()
	shards, err := shardcursor.Open(ctx, j.shards)
	if err != nil {
		return err
	}
	defer shardcursor.CloseShards(shards)

	query := fmt.Sprintf("SELECT * FROM (%s) AS vtmerge_explain LIMIT 0", strings.TrimRight(strings.TrimSpace(j.query), ";"))
	cursors, err := shardcursor.Scatter(ctx, shards, query)
	if err != nil {
		return err
	}
	defer shardcursor.CloseCursors(cursors)

	mr, err := engine.NewMergedResult(j.mc, shardcursor.EngineCursors(cursors))
	if err != nil {
		return err
	}
	var out string
	if format == "json" {
		if out, err = engine.ToJSON(mr); err != nil {
			return err
		}
	} else {
		out = engine.ToTree(mr)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(out, "\n"))
	return err
}
