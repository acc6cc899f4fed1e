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

package engine

import (
	"sync"

	"vitess.io/shardmerge/go/stats"
)

// Merge strategy names, as reported by the MergeStrategyUsed counter.
const (
	strategyIterator      = "Iterator"
	strategyOrderByStream = "OrderByStream"
	strategyGroupByStream = "GroupByStream"
	strategyGroupByMemory = "GroupByMemory"
)

type Metrics struct {
	strategyUsed   *stats.CountersWithSingleLabel
	rowsEmitted    *stats.Counter
	groupsInMemory *stats.Gauge
}

// TODO (fix it): This is a temporary solution to avoid multiple registry of metric counter in test.
var defaultMetric = &Metrics{}
var once sync.Once

func InitializeMetrics() *Metrics {
	once.Do(func() {
		defaultMetric.strategyUsed = stats.NewCountersWithSingleLabel("MergeStrategyUsed", "Counts merges by the strategy chosen for them.", "Strategy",
			strategyIterator, strategyOrderByStream, strategyGroupByStream, strategyGroupByMemory)
		defaultMetric.rowsEmitted = stats.NewCounter("MergeRowsEmitted", "Counts rows returned by merged results.")
		defaultMetric.groupsInMemory = stats.NewGauge("MergeGroupsInMemory", "Number of groups held by the last in-memory group merge.")
	})
	return defaultMetric
}

func mergeMetrics() *Metrics {
	return InitializeMetrics()
}

// StrategyUsed returns the number of merges per strategy.
func (m *Metrics) StrategyUsed() map[string]int64 {
	return m.strategyUsed.Counts()
}

// RowsEmitted returns the number of rows returned by all merges.
func (m *Metrics) RowsEmitted() int64 {
	return m.rowsEmitted.Get()
}

// GroupsInMemory returns the group count of the last in-memory group merge.
func (m *Metrics) GroupsInMemory() int64 {
	return m.groupsInMemory.Get()
}
