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

package utils

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// Background goroutines that run for the life of the process.
var leakIgnores = []goleak.Option{
	goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
	goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"),
	goleak.IgnoreTopFunction("testing.tRunner.func1"),
}

const (
	leakRetries    = 5
	leakRetryDelay = 100 * time.Millisecond
)

// LeakCheckContext returns a Context that is cancelled at the end of the
// test. If the test passed, it then fails the test when goroutines are
// still running, for example shard queries that never saw the cancellation.
func LeakCheckContext(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		if t.Failed() {
			return
		}
		if err := GetLeaks(); err != nil {
			t.Fatal(err)
		}
	})
	return ctx
}

// GetLeaks returns an error describing the goroutines still running.
// Goroutines get a short grace period to exit. It is meant for TestMain.
func GetLeaks() error {
	var err error
	for i := 0; i < leakRetries; i++ {
		if err = goleak.Find(leakIgnores...); err == nil {
			return nil
		}
		time.Sleep(leakRetryDelay)
	}
	return err
}
