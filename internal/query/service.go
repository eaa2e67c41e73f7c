// Package query answers graph questions (spec↔task↔rule↔file) against the
// coordination manifest. Results are memoised behind the manifest version
// counter; any version change flushes the whole cache.
package query

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/augmentcode/augment-extensions/internal/logger"
	"github.com/augmentcode/augment-extensions/internal/manifest"
	"github.com/augmentcode/augment-extensions/internal/metrics"
)

var log = logger.ForComponent("query")

var ErrNotFound = errors.New("not found")

// Service serves lookups over one manifest file. It is safe for concurrent
// readers; Invalidate marks the snapshot stale so the next query reloads.
type Service struct {
	manifestPath string

	mu      sync.RWMutex
	m       *manifest.Manifest
	version uint64
	stale   bool

	specForFile  map[string]string
	tasksForFile map[string][]string
}

func NewService(manifestPath string) *Service {
	return &Service{
		manifestPath: manifestPath,
		stale:        true,
	}
}

// Invalidate marks the cached snapshot stale. Watcher callbacks and sync
// completions call this; the reload itself is deferred to the next query.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// snapshot returns the current manifest, reloading when stale. A version
// change flushes every memoised result at once.
func (s *Service) snapshot() (*manifest.Manifest, error) {
	s.mu.RLock()
	if !s.stale && s.m != nil {
		m := s.m
		s.mu.RUnlock()
		metrics.QueryCacheHits.Inc()
		return m, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stale && s.m != nil {
		metrics.QueryCacheHits.Inc()
		return s.m, nil
	}

	m, err := manifest.Load(s.manifestPath)
	if err != nil {
		if errors.Is(err, manifest.ErrNotExist) {
			return nil, fmt.Errorf("%w: manifest not yet synced", ErrNotFound)
		}
		return nil, err
	}

	if m.Version != s.version || s.m == nil {
		s.specForFile = make(map[string]string)
		s.tasksForFile = make(map[string][]string)
		log.Debug("query cache flushed", "old_version", s.version, "new_version", m.Version)
	}
	metrics.QueryCacheMisses.Inc()

	s.m = m
	s.version = m.Version
	s.stale = false
	return m, nil
}

// ActiveSpecs returns every manifest spec with status active, sorted by id.
func (s *Service) ActiveSpecs() ([]*manifest.SpecEntry, error) {
	m, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	var active []*manifest.SpecEntry
	for _, entry := range m.Specs {
		if entry.Status == "active" {
			active = append(active, entry)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}

// TasksForSpec returns the tasks associated with a spec: those whose spec
// reference points at it, unioned with the spec's own task list.
func (s *Service) TasksForSpec(specID string) ([]*manifest.TaskEntry, error) {
	m, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	spec, ok := m.Specs[specID]
	if !ok {
		return nil, fmt.Errorf("%w: spec %s", ErrNotFound, specID)
	}

	ids := make(map[string]struct{})
	for id, task := range m.Tasks {
		if task.Spec == specID {
			ids[id] = struct{}{}
		}
	}
	for _, id := range spec.Tasks {
		if _, ok := m.Tasks[id]; ok {
			ids[id] = struct{}{}
		}
	}

	tasks := make([]*manifest.TaskEntry, 0, len(ids))
	for id := range ids {
		tasks = append(tasks, m.Tasks[id])
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// RulesForTask resolves task -> spec -> rule bindings, unioned with the
// task's manifest-only rule overrides.
func (s *Service) RulesForTask(taskID string) ([]*manifest.RuleEntry, error) {
	m, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	task, ok := m.Tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}

	ids := make(map[string]struct{})
	if task.Spec != "" {
		if spec, ok := m.Specs[task.Spec]; ok {
			for _, rule := range spec.Rules {
				ids[rule] = struct{}{}
			}
		}
	}
	for _, rule := range task.RelatedRules {
		ids[rule] = struct{}{}
	}

	rules := make([]*manifest.RuleEntry, 0, len(ids))
	for id := range ids {
		if entry, ok := m.Rules[id]; ok {
			rules = append(rules, entry)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ModuleID < rules[j].ModuleID })
	return rules, nil
}

// SpecForFile matches path against every active spec's file patterns. When
// several specs match, the longest pattern wins as a most-specific proxy,
// with the lexicographically smallest spec id as the final tie-break.
func (s *Service) SpecForFile(path string) (*manifest.SpecEntry, error) {
	m, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	cached, ok := s.specForFile[path]
	s.mu.RUnlock()
	if ok {
		if cached == "" {
			return nil, fmt.Errorf("%w: no spec governs %s", ErrNotFound, path)
		}
		// The memo may have been written against a newer snapshot than m;
		// recompute instead of returning a missing entry.
		if spec, present := m.Specs[cached]; present {
			return spec, nil
		}
	}

	bestID, bestPattern := "", ""
	for _, id := range sortedSpecIDs(m) {
		spec := m.Specs[id]
		if spec.Status != "active" {
			continue
		}
		for _, pattern := range spec.Files {
			match, err := doublestar.Match(pattern, path)
			if err != nil || !match {
				continue
			}
			if betterMatch(pattern, id, bestPattern, bestID) {
				bestID, bestPattern = id, pattern
			}
		}
	}

	s.mu.Lock()
	s.specForFile[path] = bestID
	s.mu.Unlock()

	if bestID == "" {
		return nil, fmt.Errorf("%w: no spec governs %s", ErrNotFound, path)
	}
	return m.Specs[bestID], nil
}

func betterMatch(pattern, id, bestPattern, bestID string) bool {
	if bestID == "" {
		return true
	}
	if len(pattern) != len(bestPattern) {
		return len(pattern) > len(bestPattern)
	}
	return id < bestID
}

// TasksForFile returns the duplicate-free union of tasks directly
// associated with the path and tasks associated via any matching active
// spec.
func (s *Service) TasksForFile(path string) ([]*manifest.TaskEntry, error) {
	m, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	cachedIDs, ok := s.tasksForFile[path]
	s.mu.RUnlock()

	if !ok {
		ids := make(map[string]struct{})
		for _, id := range m.Files[path] {
			ids[id] = struct{}{}
		}

		for _, specID := range sortedSpecIDs(m) {
			spec := m.Specs[specID]
			if spec.Status != "active" || !matchesAny(spec.Files, path) {
				continue
			}
			for _, id := range spec.Tasks {
				ids[id] = struct{}{}
			}
			for id, task := range m.Tasks {
				if task.Spec == specID {
					ids[id] = struct{}{}
				}
			}
		}

		cachedIDs = make([]string, 0, len(ids))
		for id := range ids {
			cachedIDs = append(cachedIDs, id)
		}
		sort.Strings(cachedIDs)

		s.mu.Lock()
		s.tasksForFile[path] = cachedIDs
		s.mu.Unlock()
	}

	tasks := make([]*manifest.TaskEntry, 0, len(cachedIDs))
	for _, id := range cachedIDs {
		if task, ok := m.Tasks[id]; ok {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if match, err := doublestar.Match(pattern, path); err == nil && match {
			return true
		}
	}
	return false
}

func sortedSpecIDs(m *manifest.Manifest) []string {
	ids := make([]string, 0, len(m.Specs))
	for id := range m.Specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
