package types

import (
	"sort"
	"strings"
	"sync"
)

// ResultSet maps case-insensitive package names to results. Runner output
// callbacks may write to it from several goroutines.
type ResultSet struct {
	mu      sync.RWMutex
	results map[string]*PackageResult
}

func NewResultSet() *ResultSet {
	return &ResultSet{results: map[string]*PackageResult{}}
}

func resultKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *ResultSet) Put(result *PackageResult) {
	if result == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[resultKey(result.Name)] = result
}

func (s *ResultSet) Get(name string) (*PackageResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[resultKey(name)]
	return result, ok
}

// GetOrAdd returns the result stored under name, creating it with create
// when absent.
func (s *ResultSet) GetOrAdd(name string, create func() *PackageResult) *PackageResult {
	key := resultKey(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.results[key]; ok {
		return existing
	}
	result := create()
	s.results[key] = result
	return result
}

func (s *ResultSet) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, resultKey(name))
}

func (s *ResultSet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Results returns the stored results ordered by name.
func (s *ResultSet) Results() []*PackageResult {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	out := make([]*PackageResult, 0, len(s.results))
	for _, result := range s.results {
		out = append(out, result)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func (s *ResultSet) Merge(other *ResultSet) {
	if other == nil || other == s {
		return
	}
	for _, result := range other.Results() {
		s.Put(result)
	}
}
