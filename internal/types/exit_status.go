package types

import "sync"

// ExitStatus is the process-wide exit code for the current command. The last
// write wins.
type ExitStatus struct {
	mu   sync.Mutex
	code int
}

func NewExitStatus() *ExitStatus {
	return &ExitStatus{}
}

func (e *ExitStatus) Set(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.code = code
}

// SetIfUnset only writes code while the status is still zero.
func (e *ExitStatus) SetIfUnset(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.code == 0 {
		e.code = code
	}
}

func (e *ExitStatus) Get() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.code
}
