// Package syncer reconciles the task store and the spec store into the
// coordination manifest. It is a one-way projection: the manifest is a
// materialized view that tolerates being rebuilt from scratch, and a run
// with unchanged sources leaves the manifest file byte-identical.
package syncer

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/augmentcode/augment-extensions/internal/logger"
	"github.com/augmentcode/augment-extensions/internal/manifest"
	"github.com/augmentcode/augment-extensions/internal/metrics"
	"github.com/augmentcode/augment-extensions/internal/module"
	"github.com/augmentcode/augment-extensions/internal/taskstore"
)

var log = logger.ForComponent("syncer")

// Engine drives sync runs against one manifest file. The single-writer
// contract is enforced with an advisory lock around every run; concurrent
// invocations fail with manifest.ErrLocked.
type Engine struct {
	ManifestPath string
	Tasks        taskstore.Source
	SpecRoot     string

	now func() time.Time
}

func New(manifestPath string, tasks taskstore.Source, specRoot string) *Engine {
	return &Engine{
		ManifestPath: manifestPath,
		Tasks:        tasks,
		SpecRoot:     specRoot,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Result summarizes one sync run. RunID appears in logs only; it is never
// persisted, so an unchanged run stays byte-idempotent on disk.
type Result struct {
	RunID    string
	Added    int
	Updated  int
	Removed  int
	Changed  bool
	Warnings []string
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// SyncTasks reconciles the task store into the manifest.
func (e *Engine) SyncTasks() (*Result, error) {
	return e.run("tasks", func(m *manifest.Manifest, res *Result) error {
		return e.applyTasks(m, res)
	})
}

// SyncSpecs reconciles the spec store into the manifest.
func (e *Engine) SyncSpecs() (*Result, error) {
	return e.run("specs", func(m *manifest.Manifest, res *Result) error {
		return e.applySpecs(m, res)
	})
}

// Sync reconciles both stores and then enforces referential integrity
// across the combined view.
func (e *Engine) Sync() (*Result, error) {
	return e.run("all", func(m *manifest.Manifest, res *Result) error {
		if err := e.applyTasks(m, res); err != nil {
			return err
		}
		if err := e.applySpecs(m, res); err != nil {
			return err
		}
		return nil
	})
}

// BindRules projects a discovery pass into the manifest's rules map,
// replacing the previous binding set.
func (e *Engine) BindRules(idx *module.Index) (*Result, error) {
	return e.run("rules", func(m *manifest.Manifest, res *Result) error {
		next := make(map[string]*manifest.RuleEntry, len(idx.Modules))
		for id, mod := range idx.Modules {
			next[id] = &manifest.RuleEntry{
				ModuleID: id,
				Version:  mod.Version,
				Files:    append([]string(nil), mod.RuleFiles...),
			}
		}

		for id := range m.Rules {
			if _, ok := next[id]; !ok {
				res.Removed++
			}
		}
		for id, entry := range next {
			prev, ok := m.Rules[id]
			switch {
			case !ok:
				res.Added++
			case !ruleEqual(prev, entry):
				res.Updated++
			}
		}
		m.Rules = next
		return nil
	})
}

// run wraps one sync pass with the lock, manifest load, integrity check,
// and conditional atomic write.
func (e *Engine) run(store string, apply func(*manifest.Manifest, *Result) error) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}

	lock := manifest.NewLock(e.ManifestPath)
	if err := lock.Acquire(); err != nil {
		metrics.SyncRuns.WithLabelValues(store, "contended").Inc()
		return nil, err
	}
	defer lock.Release()

	m, fresh, err := manifest.LoadOrInit(e.ManifestPath)
	if err != nil {
		metrics.SyncRuns.WithLabelValues(store, "error").Inc()
		return nil, err
	}
	before := m.Clone()

	if err := apply(m, res); err != nil {
		metrics.SyncRuns.WithLabelValues(store, "error").Inc()
		return nil, err
	}

	e.enforceIntegrity(m, res)
	sort.Strings(res.Warnings)

	// The first run always writes, even over empty stores: the manifest
	// file must exist before the query layer can answer anything.
	if !fresh && m.ContentEquals(before) {
		log.Info("sync run made no changes", "run_id", res.RunID, "store", store)
		metrics.SyncRuns.WithLabelValues(store, "noop").Inc()
		return res, nil
	}

	m.Version = before.Version + 1
	now := e.now()
	m.SyncedAt = &now

	if err := m.Save(e.ManifestPath); err != nil {
		metrics.SyncRuns.WithLabelValues(store, "error").Inc()
		return nil, err
	}

	res.Changed = true
	metrics.SyncRuns.WithLabelValues(store, "changed").Inc()
	log.Info("sync run applied",
		"run_id", res.RunID, "store", store, "version", m.Version,
		"added", res.Added, "updated", res.Updated, "removed", res.Removed,
		"warnings", len(res.Warnings))
	return res, nil
}

// enforceIntegrity drops every manifest cross-reference whose target id no
// longer exists, recording a warning per drop. The manifest never retains
// unresolvable references after a sync completes.
func (e *Engine) enforceIntegrity(m *manifest.Manifest, res *Result) {
	for _, id := range sortedKeys(m.Tasks) {
		entry := m.Tasks[id]
		if entry.Spec != "" {
			if _, ok := m.Specs[entry.Spec]; !ok {
				res.warnf("task %s referenced missing spec %s; reference dropped", id, entry.Spec)
				entry.Spec = ""
			}
		}
		entry.RelatedRules = filterRefs(entry.RelatedRules, func(rule string) bool {
			_, ok := m.Rules[rule]
			return ok
		}, func(rule string) {
			res.warnf("task %s referenced missing rule %s; reference dropped", id, rule)
		})
	}

	for _, id := range sortedKeys(m.Specs) {
		entry := m.Specs[id]
		entry.Tasks = filterRefs(entry.Tasks, func(task string) bool {
			_, ok := m.Tasks[task]
			return ok
		}, func(task string) {
			res.warnf("spec %s referenced missing task %s; reference dropped", id, task)
		})
		entry.Rules = filterRefs(entry.Rules, func(rule string) bool {
			_, ok := m.Rules[rule]
			return ok
		}, func(rule string) {
			res.warnf("spec %s referenced missing rule %s; reference dropped", id, rule)
		})
	}

	for _, path := range sortedKeys(m.Files) {
		kept := filterRefs(m.Files[path], func(task string) bool {
			_, ok := m.Tasks[task]
			return ok
		}, func(task string) {
			res.warnf("file %s referenced missing task %s; reference dropped", path, task)
		})
		if len(kept) == 0 {
			delete(m.Files, path)
			continue
		}
		m.Files[path] = kept
	}
}

func filterRefs(refs []string, keep func(string) bool, onDrop func(string)) []string {
	if len(refs) == 0 {
		return refs
	}
	out := refs[:0]
	for _, ref := range refs {
		if keep(ref) {
			out = append(out, ref)
		} else {
			onDrop(ref)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
