package core

import (
	"sort"
	"strings"
)

type EnvironmentChangeKind string

const (
	EnvironmentAdded   EnvironmentChangeKind = "added"
	EnvironmentRemoved EnvironmentChangeKind = "removed"
	EnvironmentChanged EnvironmentChangeKind = "changed"
)

type EnvironmentChange struct {
	Name   string
	Kind   EnvironmentChangeKind
	Before string
	After  string
}

// EnvironmentMap converts KEY=VALUE pairs into a map. Later pairs win.
func EnvironmentMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, pair := range environ {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func DiffEnvironment(before, after map[string]string) []EnvironmentChange {
	var changes []EnvironmentChange
	for name, value := range after {
		previous, ok := before[name]
		switch {
		case !ok:
			changes = append(changes, EnvironmentChange{Name: name, Kind: EnvironmentAdded, After: value})
		case previous != value:
			changes = append(changes, EnvironmentChange{Name: name, Kind: EnvironmentChanged, Before: previous, After: value})
		}
	}
	for name, value := range before {
		if _, ok := after[name]; !ok {
			changes = append(changes, EnvironmentChange{Name: name, Kind: EnvironmentRemoved, Before: value})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	return changes
}
