/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package resolver

import (
	_ "embed"
	"fmt"
	"path"
	"slices"
	"sync"

	"chainguard.dev/issuefix/ci"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

// Ecosystem is one row of the static fallback table.
type Ecosystem struct {
	Name      string   `yaml:"name"`
	Manifests []string `yaml:"manifests"`
	Syntax    string   `yaml:"syntax"`
	Test      string   `yaml:"test"`
	Quality   string   `yaml:"quality"`
}

// Table is the static fallback table.
type Table struct {
	Ecosystems []Ecosystem `yaml:"ecosystems"`
	Generic    Ecosystem   `yaml:"generic"`
}

// ParseTable decodes a fallback table.
func ParseTable(b []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decoding fallback table: %w", err)
	}
	if t.Generic.Syntax == "" {
		return nil, fmt.Errorf("fallback table has no generic syntax command")
	}
	for _, e := range t.Ecosystems {
		if e.Name == "" || len(e.Manifests) == 0 || e.Syntax == "" {
			return nil, fmt.Errorf("fallback ecosystem %q is incomplete", e.Name)
		}
	}
	return &t, nil
}

var defaultTable = sync.OnceValue(func() *Table {
	t, err := ParseTable(fallbackYAML)
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultTable returns the embedded fallback table.
func DefaultTable() *Table {
	return defaultTable()
}

// ManifestNames lists every manifest file name the table recognizes.
func (t *Table) ManifestNames() []string {
	var names []string
	for _, e := range t.Ecosystems {
		for _, m := range e.Manifests {
			if !slices.Contains(names, m) {
				names = append(names, m)
			}
		}
	}
	return names
}

// match returns the ecosystem and the directory holding its manifest. A
// manifest at the repository root wins over one in a subdirectory.
func (t *Table) match(s ci.Structure) (Ecosystem, string, bool) {
	for _, depth := range []int{0, 1} {
		for _, e := range t.Ecosystems {
			for _, entry := range s.Entries {
				if entry.Type != ci.EntryFile || entry.Depth() != depth {
					continue
				}
				if slices.Contains(e.Manifests, entry.Base()) {
					dir := path.Dir(entry.Path)
					if dir == "." {
						dir = ""
					}
					return e, dir, true
				}
			}
		}
	}
	return Ecosystem{}, "", false
}

// Fallback picks commands from the table. The test command is only set when
// the structure shows test indicators.
func (t *Table) Fallback(s ci.Structure) (ci.Commands, string) {
	e, dir, ok := t.match(s)
	if !ok {
		e = t.Generic
	}
	cmds := ci.Commands{
		SyntaxCheck: e.Syntax,
		Quality:     e.Quality,
		WorkingDir:  dir,
	}
	if HasTestIndicators(s) {
		cmds.Test = e.Test
	}
	return cmds, e.Name
}
