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

package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xlab/treeprint"
)

// PlanDescription is used to create a serializable representation of the merge tree
type PlanDescription struct {
	OperatorType string
	Variant      string         `json:",omitempty"`
	Other        map[string]any `json:",omitempty"`
	Inputs       []PlanDescription
}

// MergedResultToPlanDescription transforms a merge tree into a corresponding PlanDescription tree
func MergedResultToPlanDescription(in MergedResult) PlanDescription {
	this := in.description()

	for _, input := range in.inputs() {
		this.Inputs = append(this.Inputs, MergedResultToPlanDescription(input))
	}

	if len(in.inputs()) == 0 {
		this.Inputs = []PlanDescription{}
	}

	return this
}

// ToJSON renders the merge tree as indented JSON.
func ToJSON(in MergedResult) (string, error) {
	out, err := json.MarshalIndent(MergedResultToPlanDescription(in), "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ToTree renders the merge tree as an indented text tree.
func ToTree(in MergedResult) string {
	return asTree(MergedResultToPlanDescription(in), nil).String()
}

func (pd PlanDescription) short() string {
	txt := pd.OperatorType
	if pd.Variant != "" {
		txt += " " + pd.Variant
	}
	if len(pd.Other) == 0 {
		return txt
	}
	keys := make([]string, 0, len(pd.Other))
	for k := range pd.Other {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]string, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, fmt.Sprintf("%s: %v", k, pd.Other[k]))
	}
	return fmt.Sprintf("%s (%s)", txt, strings.Join(attrs, "; "))
}

func asTree(pd PlanDescription, root treeprint.Tree) treeprint.Tree {
	txt := pd.short()
	var branch treeprint.Tree
	if root == nil {
		branch = treeprint.NewWithRoot(txt)
	} else {
		branch = root.AddBranch(txt)
	}
	for _, child := range pd.Inputs {
		asTree(child, branch)
	}
	return branch
}
