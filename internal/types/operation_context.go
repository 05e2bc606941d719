package types

import (
	"os"
	"sort"
	"sync"
)

// OperationContext holds the variables the pipeline and package scripts
// exchange while one package is processed.
type OperationContext struct {
	mu     sync.Mutex
	values map[string]string
}

var publishedVariables = []string{
	EnvPackageInstallLocation,
	EnvInstallerType,
	EnvToolsLocation,
}

// transientVariables are unset between packages. The tools location is a
// user setting and survives.
var transientVariables = []string{
	EnvPackageInstallLocation,
	EnvInstallerType,
}

func NewOperationContext() *OperationContext {
	return &OperationContext{values: map[string]string{}}
}

func (o *OperationContext) Set(key, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values[key] = value
}

func (o *OperationContext) Get(key string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.values[key]
}

// Reset clears every value and unsets the transient process variables.
func (o *OperationContext) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values = map[string]string{}
	for _, key := range transientVariables {
		_ = os.Unsetenv(key)
	}
}

// Environ returns the values as sorted KEY=VALUE pairs.
func (o *OperationContext) Environ() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	env := make([]string, 0, len(o.values))
	for key, value := range o.values {
		env = append(env, key+"="+value)
	}
	sort.Strings(env)
	return env
}

// Publish exports the install location, installer type and tools location
// into the process environment.
func (o *OperationContext) Publish() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, key := range publishedVariables {
		if value, ok := o.values[key]; ok && value != "" {
			if err := os.Setenv(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *OperationContext) CapturedKeys() []string {
	return []string{EnvPackageInstallLocation, EnvInstallerType, EnvToolsLocation}
}
