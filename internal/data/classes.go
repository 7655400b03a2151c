package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/worldtree/internal/world"
)

// ClassEntry binds an action class name to a Lua update function.
type ClassEntry struct {
	Class    string `yaml:"class"`
	Script   string `yaml:"script"`   // file defining Function, informational
	Function string `yaml:"function"`
}

// ClassTable is the list of script-backed action classes.
type ClassTable struct {
	entries []ClassEntry
}

// LoadClassTable loads a classes.yaml list.
func LoadClassTable(path string) (*ClassTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class table: %w", err)
	}
	var entries []ClassEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse class table: %w", err)
	}
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Class == "" || e.Function == "" {
			return nil, fmt.Errorf("class table entry %d: class and function are required", i)
		}
		if seen[e.Class] {
			return nil, fmt.Errorf("class table: duplicate class %q", e.Class)
		}
		seen[e.Class] = true
	}
	return &ClassTable{entries: entries}, nil
}

// Entries returns the classes in file order.
func (t *ClassTable) Entries() []ClassEntry {
	return t.entries
}

// Count returns the number of classes loaded.
func (t *ClassTable) Count() int {
	return len(t.entries)
}

// Register adds every class to f as a script action run by runner.
func (t *ClassTable) Register(f *world.Factories, runner world.ScriptRunner) error {
	for _, e := range t.entries {
		if err := f.RegisterScriptClass(e.Class, e.Function, runner); err != nil {
			return fmt.Errorf("register %s: %w", e.Class, err)
		}
	}
	return nil
}
