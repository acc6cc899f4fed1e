/*
Copyright 2020 The Vitess Authors.

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

package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shardRow struct {
	shard string
	total decimal.Decimal
	id    int
}

func TestMustMatch(t *testing.T) {
	want := shardRow{shard: "-80", total: decimal.RequireFromString("1.50"), id: 1}
	got := shardRow{shard: "-80", total: decimal.RequireFromString("1.5"), id: 1}
	MustMatch(t, want, got, "decimals compare by value")

	got.id = 2
	mustMatch := MustMatchFn(".id")
	mustMatch(t, want, got, "id is ignored")
}

func TestLeakCheckContext(t *testing.T) {
	ctx := LeakCheckContext(t)
	done := make(chan struct{})
	stop := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
		case <-stop:
		}
	}()
	close(stop)
	<-done
}

func TestGetLeaks(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-release
	}()
	err := GetLeaks()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TestGetLeaks")

	close(release)
	<-done
	require.NoError(t, GetLeaks())
}
