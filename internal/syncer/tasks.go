package syncer

import (
	"encoding/json"

	"github.com/augmentcode/augment-extensions/internal/manifest"
	"github.com/augmentcode/augment-extensions/internal/metrics"
	"github.com/augmentcode/augment-extensions/internal/taskstore"
)

// applyTasks folds the task store and diffs it against the manifest task
// map: additions for new ids, updates for changed fields, tombstones for
// ids gone from the source. Tombstoned ids are also stripped from spec
// task lists and file associations.
func (e *Engine) applyTasks(m *manifest.Manifest, res *Result) error {
	folded, rejected, err := taskstore.Load(e.Tasks)
	if err != nil {
		return err
	}
	for _, reject := range rejected {
		res.warnf("rejected %v", reject)
	}

	for _, id := range sortedKeys(folded) {
		task := folded[id]
		next := taskEntry(task)

		prev, ok := m.Tasks[id]
		if !ok {
			m.Tasks[id] = next
			res.Added++
			metrics.SyncChanges.WithLabelValues("tasks", "add").Inc()
			continue
		}

		// Manifest-only association, preserved across re-sync.
		next.RelatedRules = prev.RelatedRules

		if !taskEqual(prev, next) {
			m.Tasks[id] = next
			res.Updated++
			metrics.SyncChanges.WithLabelValues("tasks", "update").Inc()
		}
	}

	for _, id := range sortedKeys(m.Tasks) {
		if _, ok := folded[id]; ok {
			continue
		}
		delete(m.Tasks, id)
		res.Removed++
		metrics.SyncChanges.WithLabelValues("tasks", "tombstone").Inc()
		res.warnf("task %s no longer in source store; tombstoned", id)
		e.stripTaskRefs(m, id)
	}

	return nil
}

// stripTaskRefs removes a tombstoned task id from every spec task list and
// file association.
func (e *Engine) stripTaskRefs(m *manifest.Manifest, taskID string) {
	for _, specID := range sortedKeys(m.Specs) {
		entry := m.Specs[specID]
		entry.Tasks = removeString(entry.Tasks, taskID)
	}
	for _, path := range sortedKeys(m.Files) {
		kept := removeString(m.Files[path], taskID)
		if len(kept) == 0 {
			delete(m.Files, path)
			continue
		}
		m.Files[path] = kept
	}
}

func removeString(list []string, target string) []string {
	if len(list) == 0 {
		return list
	}
	out := list[:0]
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func taskEntry(t *taskstore.Task) *manifest.TaskEntry {
	return &manifest.TaskEntry{
		ID:        t.ID,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		ClosedAt:  t.ClosedAt,
		Spec:      t.Spec,
	}
}

func taskEqual(a, b *manifest.TaskEntry) bool { return jsonEqual(a, b) }

func ruleEqual(a, b *manifest.RuleEntry) bool { return jsonEqual(a, b) }

func specEqual(a, b *manifest.SpecEntry) bool { return jsonEqual(a, b) }

func jsonEqual(a, b any) bool {
	da, errA := json.Marshal(a)
	db, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(da) == string(db)
}
