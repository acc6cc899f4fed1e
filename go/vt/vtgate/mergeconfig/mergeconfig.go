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

// Package mergeconfig reads the textual form of a merge context, as
// found in vtmerge job files, and converts it to an engine.MergeContext.
//
//	order_by:
//	  - {col: 1, direction: desc, nulls: last}
//	group_by:
//	  - {col: 0, case_sensitive: true}
//	aggregations:
//	  - {col: 1, func: count}
//	  - {col: 2, func: avg, derived: [3, 4]}
//	limit: {offset: 10, count: 20}
//	truncate_column_count: 3
package mergeconfig

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"sigs.k8s.io/yaml"

	"vitess.io/shardmerge/go/vt/vtgate/engine"
	"vitess.io/shardmerge/go/vt/vtgate/engine/opcode"
)

// Config is the serialized form of an engine.MergeContext.
type Config struct {
	OrderBy             []OrderBy     `mapstructure:"order_by" json:"order_by,omitempty"`
	GroupBy             []GroupBy     `mapstructure:"group_by" json:"group_by,omitempty"`
	Aggregations        []Aggregation `mapstructure:"aggregations" json:"aggregations,omitempty"`
	Limit               *Limit        `mapstructure:"limit" json:"limit,omitempty"`
	TruncateColumnCount int           `mapstructure:"truncate_column_count" json:"truncate_column_count,omitempty"`
	MaxMemoryGroups     int           `mapstructure:"max_memory_groups" json:"max_memory_groups,omitempty"`
}

// OrderBy is one ORDER BY item. Direction is asc (default) or desc;
// Nulls is first or last and defaults to MySQL's placement.
type OrderBy struct {
	Col           int    `mapstructure:"col" json:"col"`
	Direction     string `mapstructure:"direction" json:"direction,omitempty"`
	Nulls         string `mapstructure:"nulls" json:"nulls,omitempty"`
	CaseSensitive bool   `mapstructure:"case_sensitive" json:"case_sensitive,omitempty"`
}

// GroupBy is one GROUP BY item.
type GroupBy struct {
	Col           int    `mapstructure:"col" json:"col"`
	Direction     string `mapstructure:"direction" json:"direction,omitempty"`
	CaseSensitive bool   `mapstructure:"case_sensitive" json:"case_sensitive,omitempty"`
}

// Aggregation is an aggregate function over column Col.
type Aggregation struct {
	Col           int    `mapstructure:"col" json:"col"`
	Func          string `mapstructure:"func" json:"func"`
	Derived       []int  `mapstructure:"derived" json:"derived,omitempty"`
	CaseSensitive bool   `mapstructure:"case_sensitive" json:"case_sensitive,omitempty"`
}

// Limit is the OFFSET and row count. A nil Count returns all rows.
type Limit struct {
	Offset int64  `mapstructure:"offset" json:"offset,omitempty"`
	Count  *int64 `mapstructure:"count" json:"count,omitempty"`
}

// Parse reads a YAML or JSON merge section.
func Parse(data []byte) (*engine.MergeContext, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing merge config: %w", err)
	}
	return cfg.MergeContext()
}

// Decode reads a merge section already loaded into generic maps, such
// as the value of a viper key.
func Decode(input any) (*engine.MergeContext, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("decoding merge config: %w", err)
	}
	return cfg.MergeContext()
}

// MergeContext converts the config. Column references are checked by
// engine.NewMergedResult once the shard columns are known.
func (cfg *Config) MergeContext() (*engine.MergeContext, error) {
	mc := &engine.MergeContext{
		TruncateColumnCount: cfg.TruncateColumnCount,
		MaxMemoryGroups:     cfg.MaxMemoryGroups,
	}
	for i, ob := range cfg.OrderBy {
		desc, err := parseDirection(ob.Direction)
		if err != nil {
			return nil, fmt.Errorf("order_by[%d]: %w", i, err)
		}
		nulls, err := parseNulls(ob.Nulls, desc)
		if err != nil {
			return nil, fmt.Errorf("order_by[%d]: %w", i, err)
		}
		mc.OrderBy = append(mc.OrderBy, engine.OrderByItem{
			Col:           ob.Col,
			Desc:          desc,
			NullOrder:     nulls,
			CaseSensitive: ob.CaseSensitive,
		})
	}
	for i, gb := range cfg.GroupBy {
		desc, err := parseDirection(gb.Direction)
		if err != nil {
			return nil, fmt.Errorf("group_by[%d]: %w", i, err)
		}
		mc.GroupBy = append(mc.GroupBy, engine.GroupByItem{
			Col:           gb.Col,
			Desc:          desc,
			CaseSensitive: gb.CaseSensitive,
		})
	}
	for i, aggr := range cfg.Aggregations {
		code, err := opcode.ParseAggregateOpcode(aggr.Func)
		if err != nil {
			return nil, fmt.Errorf("aggregations[%d]: %w", i, err)
		}
		mc.Aggregations = append(mc.Aggregations, engine.AggregationColumn{
			Col:           aggr.Col,
			Opcode:        code,
			Derived:       aggr.Derived,
			CaseSensitive: aggr.CaseSensitive,
		})
	}
	if cfg.Limit != nil {
		limit := &engine.Limit{Offset: cfg.Limit.Offset, RowCount: engine.LimitAll}
		if cfg.Limit.Count != nil {
			limit.RowCount = *cfg.Limit.Count
		}
		mc.Limit = limit
	}
	return mc, nil
}

// FromMergeContext returns the serialized form of mc.
func FromMergeContext(mc *engine.MergeContext) *Config {
	cfg := &Config{
		TruncateColumnCount: mc.TruncateColumnCount,
		MaxMemoryGroups:     mc.MaxMemoryGroups,
	}
	for _, ob := range mc.OrderBy {
		cfg.OrderBy = append(cfg.OrderBy, OrderBy{
			Col:           ob.Col,
			Direction:     direction(ob.Desc),
			Nulls:         nulls(ob.NullOrder),
			CaseSensitive: ob.CaseSensitive,
		})
	}
	for _, gb := range mc.GroupBy {
		cfg.GroupBy = append(cfg.GroupBy, GroupBy{
			Col:           gb.Col,
			Direction:     direction(gb.Desc),
			CaseSensitive: gb.CaseSensitive,
		})
	}
	for _, aggr := range mc.Aggregations {
		cfg.Aggregations = append(cfg.Aggregations, Aggregation{
			Col:           aggr.Col,
			Func:          aggr.Opcode.String(),
			Derived:       aggr.Derived,
			CaseSensitive: aggr.CaseSensitive,
		})
	}
	if mc.Limit != nil {
		cfg.Limit = &Limit{Offset: mc.Limit.Offset}
		if mc.Limit.RowCount != engine.LimitAll {
			count := mc.Limit.RowCount
			cfg.Limit.Count = &count
		}
	}
	return cfg
}

// Marshal renders mc as YAML.
func Marshal(mc *engine.MergeContext) ([]byte, error) {
	return yaml.Marshal(FromMergeContext(mc))
}

func parseDirection(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return false, nil
	case "desc":
		return true, nil
	default:
		return false, fmt.Errorf("invalid direction %q: expected asc or desc", s)
	}
}

func parseNulls(s string, desc bool) (engine.NullOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return engine.DefaultNullOrder(desc), nil
	case "first":
		return engine.NullsFirst, nil
	case "last":
		return engine.NullsLast, nil
	default:
		return engine.NullsFirst, fmt.Errorf("invalid nulls %q: expected first or last", s)
	}
}

func direction(desc bool) string {
	if desc {
		return "desc"
	}
	return "asc"
}

func nulls(n engine.NullOrder) string {
	if n == engine.NullsLast {
		return "last"
	}
	return "first"
}
