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
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"vitess.io/shardmerge/go/vt/vtgate/engine"
	"vitess.io/shardmerge/go/vt/vtgate/mergeconfig"
	"vitess.io/shardmerge/go/vt/vtgate/shardcursor"
)

// job is a fully resolved job file.
type job struct {
	shards []shardcursor.ShardConfig
	query  string
	mc     *engine.MergeContext
}

func loadJob(v *viper.Viper) (*job, error) {
	j := &job{query: v.GetString("query")}
	if err := v.UnmarshalKey("shards", &j.shards); err != nil {
		return nil, fmt.Errorf("decoding shards: %w", err)
	}
	if len(j.shards) == 0 {
		return nil, errors.New("job has no shards")
	}
	for i, s := range j.shards {
		if s.Driver == "" || s.DSN == "" {
			return nil, fmt.Errorf("shard %d (%s) needs a driver and a dsn", i, s.Name)
		}
		if s.Name == "" {
			j.shards[i].Name = fmt.Sprintf("shard%d", i)
		}
	}
	if j.query == "" {
		return nil, errors.New("job has no query")
	}

	mc, err := mergeconfig.Decode(v.Get("merge"))
	if err != nil {
		return nil, err
	}
	if n := v.GetInt("max-memory-groups"); n > 0 {
		mc.MaxMemoryGroups = n
	}
	j.mc = mc
	return j, nil
}
