package syncer

import (
	"github.com/augmentcode/augment-extensions/internal/manifest"
	"github.com/augmentcode/augment-extensions/internal/metrics"
	"github.com/augmentcode/augment-extensions/internal/specstore"
)

// applySpecs scans the spec store and diffs it against the manifest spec
// map. Archival is a status transition that keeps the entry; only a spec
// deleted from disk is tombstoned, because closed tasks may still point at
// archived specs historically.
func (e *Engine) applySpecs(m *manifest.Manifest, res *Result) error {
	scanned, problems, err := specstore.Scan(e.SpecRoot)
	if err != nil {
		return err
	}
	for _, p := range problems {
		res.warnf("skipped spec document %s: %s", p.Path, p.Reason)
	}

	for _, id := range sortedKeys(scanned) {
		spec := scanned[id]
		next := specEntry(spec)

		prev, ok := m.Specs[id]
		if !ok {
			m.Specs[id] = next
			res.Added++
			metrics.SyncChanges.WithLabelValues("specs", "add").Inc()
			continue
		}

		if !specEqual(prev, next) {
			m.Specs[id] = next
			res.Updated++
			metrics.SyncChanges.WithLabelValues("specs", "update").Inc()
		}
	}

	for _, id := range sortedKeys(m.Specs) {
		if _, ok := scanned[id]; ok {
			continue
		}
		delete(m.Specs, id)
		res.Removed++
		metrics.SyncChanges.WithLabelValues("specs", "tombstone").Inc()
		res.warnf("spec %s no longer in source store; tombstoned", id)
		e.stripSpecRefs(m, id)
	}

	return nil
}

// stripSpecRefs clears the spec reference on any task that pointed at a
// tombstoned spec.
func (e *Engine) stripSpecRefs(m *manifest.Manifest, specID string) {
	for _, taskID := range sortedKeys(m.Tasks) {
		if entry := m.Tasks[taskID]; entry.Spec == specID {
			entry.Spec = ""
		}
	}
}

func specEntry(s *specstore.Spec) *manifest.SpecEntry {
	return &manifest.SpecEntry{
		ID:     s.ID,
		Path:   s.Path,
		Title:  s.Title,
		Status: string(s.Status),
		Tasks:  append([]string(nil), s.Tasks...),
		Files:  append([]string(nil), s.Files...),
		Rules:  append([]string(nil), s.Rules...),
	}
}
