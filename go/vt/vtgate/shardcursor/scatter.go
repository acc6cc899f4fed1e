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

package shardcursor

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"vitess.io/shardmerge/go/stats"
	"vitess.io/shardmerge/go/vt/log"
	"vitess.io/shardmerge/go/vt/vterrors"
	"vitess.io/shardmerge/go/vt/vtgate/engine"
)

var (
	shardQueries = stats.NewCountersWithSingleLabel("ScatterShardQueries", "Queries sent to each shard.", "Shard")
	shardErrors  = stats.NewCountersWithSingleLabel("ScatterShardErrors", "Failed shard queries.", "Shard")
)

// Shard is one physical database holding a slice of the data.
type Shard struct {
	Name string
	DB   *sql.DB
}

// ShardConfig describes how to reach a shard.
type ShardConfig struct {
	Name   string `mapstructure:"name" json:"name"`
	Driver string `mapstructure:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" json:"dsn"`
}

// Open opens and pings every configured shard. On error the shards
// opened so far are closed.
func Open(ctx context.Context, configs []ShardConfig) ([]Shard, error) {
	shards := make([]Shard, 0, len(configs))
	for _, cfg := range configs {
		db, err := sql.Open(cfg.Driver, cfg.DSN)
		if err == nil {
			err = db.PingContext(ctx)
			if err != nil {
				db.Close()
			}
		}
		if err != nil {
			CloseShards(shards)
			return nil, vterrors.Wrapf(err, "opening shard %s", cfg.Name)
		}
		shards = append(shards, Shard{Name: cfg.Name, DB: db})
	}
	return shards, nil
}

// CloseShards closes the database handles of shards.
func CloseShards(shards []Shard) error {
	var errs []error
	for _, s := range shards {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, vterrors.Wrapf(err, "closing shard %s", s.Name))
		}
	}
	return errors.Join(errs...)
}

// Scatter sends query to every shard concurrently and returns one
// cursor per shard, in shard order. If any shard fails, the cursors
// already opened are closed and the first error is returned. The
// returned cursors stay bound to ctx: canceling it aborts the streams.
func Scatter(ctx context.Context, shards []Shard, query string, args ...any) ([]*SQLCursor, error) {
	cursors := make([]*SQLCursor, len(shards))
	// Queries run on ctx: a group context is canceled when Wait returns
	// and would close the rows.
	var g errgroup.Group
	for i, shard := range shards {
		g.Go(func() error {
			startTime := time.Now()
			shardQueries.Add(shard.Name, 1)
			rows, err := shard.DB.QueryContext(ctx, query, args...)
			if err != nil {
				shardErrors.Add(shard.Name, 1)
				return vterrors.Wrapf(err, "shard %s", shard.Name)
			}
			c, err := NewSQLCursor(shard.Name, rows)
			if err != nil {
				rows.Close()
				shardErrors.Add(shard.Name, 1)
				return err
			}
			cursors[i] = c
			log.DebugS("shard query started", "shard", shard.Name, "elapsed", time.Since(startTime))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		CloseCursors(cursors)
		return nil, err
	}
	return cursors, nil
}

// CloseCursors closes every non-nil cursor.
func CloseCursors(cursors []*SQLCursor) {
	for _, c := range cursors {
		if c != nil {
			if err := c.Close(); err != nil {
				log.WarnS("closing shard cursor failed", "shard", c.Shard(), "error", err)
			}
		}
	}
}

// EngineCursors returns cursors as the engine's cursor type.
func EngineCursors(cursors []*SQLCursor) []engine.Cursor {
	out := make([]engine.Cursor, len(cursors))
	for i, c := range cursors {
		out[i] = c
	}
	return out
}

// ShardQueries returns the number of queries sent per shard.
func ShardQueries() map[string]int64 {
	return shardQueries.Counts()
}

// ShardErrors returns the number of failed queries per shard.
func ShardErrors() map[string]int64 {
	return shardErrors.Counts()
}
