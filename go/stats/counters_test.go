/*
Copyright 2019 The Vitess Authors.

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

package stats

import (
	"expvar"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter(t *testing.T) {
	var gotname string
	var gotv *Counter
	clearStats()
	Register(func(name string, v expvar.Var) {
		gotname = name
		gotv = v.(*Counter)
	})
	v := NewCounter("MergeTestCounter", "help")
	assert.Equal(t, "MergeTestCounter", gotname)
	assert.Same(t, v, gotv)

	v.Add(1)
	assert.Equal(t, int64(1), v.Get())
	assert.Equal(t, "1", v.String())
	v.Reset()
	assert.Equal(t, int64(0), v.Get())
	assert.Equal(t, "help", v.Help())
	assert.Panics(t, func() { v.Add(-1) })
}

func TestGauge(t *testing.T) {
	v := NewGauge("", "help")
	v.Set(5)
	v.Add(-2)
	assert.Equal(t, int64(3), v.Get())
	assert.Equal(t, "3", v.String())
}

func TestCountersWithSingleLabel(t *testing.T) {
	clearStats()
	c := NewCountersWithSingleLabel("MergeTestCounters", "help", "Strategy", "Iterator")
	c.Add("OrderByStream", 1)
	c.Add("OrderByStream", 1)
	c.Add("GroupByMemory", 3)

	assert.Equal(t, map[string]int64{"Iterator": 0, "OrderByStream": 2, "GroupByMemory": 3}, c.Counts())
	assert.Equal(t, `{"GroupByMemory": 3, "Iterator": 0, "OrderByStream": 2}`, c.String())
	assert.Equal(t, "Strategy", c.Label())
	assert.Equal(t, "help", c.Help())
	assert.Equal(t, c.String(), expvar.Get("MergeTestCounters").String())

	c.ResetAll()
	assert.Empty(t, c.Counts())
}

func TestRegisterExisting(t *testing.T) {
	clearStats()
	v := NewCounter("MergeTestExisting", "help")
	var got []string
	Register(func(name string, _ expvar.Var) {
		got = append(got, name)
	})
	assert.Equal(t, []string{"MergeTestExisting"}, got)
	assert.Panics(t, func() { Register(func(string, expvar.Var) {}) })
	_ = v
}

// clearStats resets the registered hook. expvar names cannot be
// unpublished, so every test uses a distinct name.
func clearStats() {
	defaultVarGroup.Lock()
	defer defaultVarGroup.Unlock()
	defaultVarGroup.vars = make(map[string]expvar.Var)
	defaultVarGroup.newVarHook = nil
}
