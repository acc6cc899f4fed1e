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
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"vitess.io/shardmerge/go/sqltypes"
	"vitess.io/shardmerge/go/vt/vtgate/engine"
)

// readResult drains a merged result.
func readResult(mr engine.MergedResult) (*sqltypes.Result, error) {
	result := &sqltypes.Result{Fields: mr.Fields()}
	for {
		ok, err := mr.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return result, nil
		}
		row := make(sqltypes.Row, len(result.Fields))
		for i := range row {
			if row[i], err = mr.Value(i); err != nil {
				return nil, err
			}
		}
		result.Rows = append(result.Rows, row)
	}
}

func writeResult(w io.Writer, format string, result *sqltypes.Result) error {
	switch format {
	case "table":
		return writeTable(w, result)
	case "json":
		return writeJSON(w, result)
	default:
		return fmt.Errorf("unknown output format %q: expected table or json", format)
	}
}

func writeTable(w io.Writer, result *sqltypes.Result) error {
	table := tablewriter.NewWriter(w)
	header := make([]any, len(result.Fields))
	for i, f := range result.Fields {
		header[i] = f.Name
	}
	table.Header(header...)
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v.IsNull() {
				cells[i] = "NULL"
				continue
			}
			cells[i] = v.ToString()
		}
		if err := table.Append(cells); err != nil {
			return err
		}
	}
	return table.Render()
}

type jsonField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type jsonResult struct {
	Fields []jsonField `json:"fields"`
	Rows   [][]any     `json:"rows"`
}

// writeJSON writes numbers as JSON numbers with their exact text and
// NULL as null.
func writeJSON(w io.Writer, result *sqltypes.Result) error {
	out := jsonResult{
		Fields: make([]jsonField, len(result.Fields)),
		Rows:   make([][]any, len(result.Rows)),
	}
	for i, f := range result.Fields {
		out.Fields[i] = jsonField{Name: f.Name, Type: f.Type.String()}
	}
	for i, row := range result.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			switch {
			case v.IsNull():
				cells[j] = nil
			case v.IsNumber():
				cells[j] = json.Number(v.ToString())
			default:
				cells[j] = v.ToString()
			}
		}
		out.Rows[i] = cells
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
