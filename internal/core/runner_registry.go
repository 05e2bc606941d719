package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

var sourceTypeAliases = map[string]types.SourceType{
	"rubygem":        types.SourceTypeRuby,
	"rubygems":       types.SourceTypeRuby,
	"windowsfeature": types.SourceTypeWindowsFeatures,
}

// RunnerRegistry resolves the source runner for a configured source type.
type RunnerRegistry struct {
	runners map[types.SourceType]ports.SourceRunnerPort
}

func NewRunnerRegistry(runners ...ports.SourceRunnerPort) *RunnerRegistry {
	registry := &RunnerRegistry{runners: map[types.SourceType]ports.SourceRunnerPort{}}
	for _, runner := range runners {
		registry.Register(runner)
	}
	return registry
}

func (r *RunnerRegistry) Register(runner ports.SourceRunnerPort) {
	r.runners[runner.SourceType()] = runner
}

// NormalizeSourceType maps user input onto a known source type. Matching is
// case-insensitive and tolerates a trailing plural "s".
func (r *RunnerRegistry) NormalizeSourceType(value string) (types.SourceType, bool) {
	key := strings.ToLower(strings.TrimSpace(value))
	if key == "" {
		return types.SourceTypeNormal, true
	}
	if alias, ok := sourceTypeAliases[key]; ok {
		return alias, r.has(alias)
	}
	if r.has(types.SourceType(key)) {
		return types.SourceType(key), true
	}
	if trimmed := strings.TrimSuffix(key, "s"); trimmed != key && r.has(types.SourceType(trimmed)) {
		return types.SourceType(trimmed), true
	}
	if plural := key + "s"; r.has(types.SourceType(plural)) {
		return types.SourceType(plural), true
	}
	return "", false
}

func (r *RunnerRegistry) Lookup(sourceType types.SourceType) (ports.SourceRunnerPort, error) {
	normalized, ok := r.NormalizeSourceType(string(sourceType))
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no source runner registered for source type '%s'", sourceType))
	}
	return r.runners[normalized], nil
}

func (r *RunnerRegistry) has(sourceType types.SourceType) bool {
	_, ok := r.runners[sourceType]
	return ok
}
