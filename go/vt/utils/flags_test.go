/*
Copyright 2025 The Vitess Authors.

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

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagVariants(t *testing.T) {
	tests := []struct {
		input               string
		expectedUnderscored string
		expectedDashed      string
	}{
		{"a-b", "a_b", "a-b"},
		{"a_b", "a_b", "a-b"},
		{"a-b_c", "a_b_c", "a-b-c"},
		{"example", "example", "example"},
		{"--max_memory-groups", "--max_memory_groups", "--max-memory-groups"},
	}

	for _, tc := range tests {
		underscored, dashed := flagVariants(tc.input)
		if underscored != tc.expectedUnderscored {
			t.Errorf("For input %q, expected underscored %q, got %q", tc.input, tc.expectedUnderscored, underscored)
		}
		if dashed != tc.expectedDashed {
			t.Errorf("For input %q, expected dashed %q, got %q", tc.input, tc.expectedDashed, dashed)
		}
	}
}

func TestSetFlagVars(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetNormalizeFunc(NormalizeUnderscoresToDashes)

	var (
		groups int
		strict bool
		output string
		shards []string
	)
	SetFlagIntVar(fs, &groups, "max_memory_groups", 0, "groups")
	SetFlagBoolVar(fs, &strict, "strict", false, "strict")
	SetFlagStringVar(fs, &output, "output", "table", "output")
	SetFlagStringSliceVar(fs, &shards, "shard", nil, "shards")

	require.NotNil(t, fs.Lookup("max-memory-groups"))
	require.NoError(t, fs.Parse([]string{"--max_memory_groups=5", "--strict", "--output", "json", "--shard", "a,b"}))
	assert.Equal(t, 5, groups)
	assert.True(t, strict)
	assert.Equal(t, "json", output)
	assert.Equal(t, []string{"a", "b"}, shards)
}

func TestNormalizeUnderscoresToDashes(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	assert.Equal(t, pflag.NormalizedName("log_dir"), NormalizeUnderscoresToDashes(fs, "log_dir"))
	assert.Equal(t, pflag.NormalizedName("a-b"), NormalizeUnderscoresToDashes(fs, "a_b"))
	assert.Equal(t, pflag.NormalizedName("a-b_c"), NormalizeUnderscoresToDashes(fs, "a-b_c"))
}
