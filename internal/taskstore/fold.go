package taskstore

import (
	"sort"
)

// Fold reduces the record sequence to effective per-task state using
// last-write-wins per field. A closed_at record makes the task terminally
// closed: later records may still refresh metadata but can never reopen it.
// Records that fail id or status validation are dropped and reported.
func Fold(records []Record) (map[string]*Task, []*FormatError) {
	tasks := make(map[string]*Task)
	var rejected []*FormatError

	for _, rec := range records {
		if !ValidID(rec.ID) {
			rejected = append(rejected, &FormatError{
				Line:   rec.line,
				ID:     rec.ID,
				Reason: "malformed task id",
			})
			continue
		}
		if rec.Status != "" && !Status(rec.Status).Valid() {
			rejected = append(rejected, &FormatError{
				Line:   rec.line,
				ID:     rec.ID,
				Reason: "unknown status " + rec.Status,
			})
			continue
		}

		t, ok := tasks[rec.ID]
		if !ok {
			t = &Task{ID: rec.ID, Status: StatusOpen}
			tasks[rec.ID] = t
		}

		apply(t, rec)
	}

	return tasks, rejected
}

func apply(t *Task, rec Record) {
	closed := t.ClosedAt != nil

	if rec.Status != "" && !closed {
		t.Status = Status(rec.Status)
	}
	if rec.CreatedAt != nil && t.CreatedAt == nil {
		t.CreatedAt = rec.CreatedAt
	}
	if rec.UpdatedAt != nil {
		t.UpdatedAt = rec.UpdatedAt
	}
	if rec.ClosedAt != nil {
		t.ClosedAt = rec.ClosedAt
		t.Status = StatusClosed
	}
	if rec.Spec != "" {
		t.Spec = rec.Spec
	}
	if rec.Blocks != nil {
		t.Blocks = normalize(rec.Blocks)
	}
	if rec.BlockedBy != nil {
		t.BlockedBy = normalize(rec.BlockedBy)
	}
	for k, v := range rec.Fields {
		if t.Fields == nil {
			t.Fields = make(map[string]string)
		}
		t.Fields[k] = v
	}
}

// normalize copies, dedups and sorts an edge list so folded state does not
// depend on record ordering quirks.
func normalize(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Load reads and folds a source in one step. The returned errors cover
// both records the backend could not decode and records the fold rejected.
func Load(src Source) (map[string]*Task, []*FormatError, error) {
	records, err := src.Records()
	if err != nil {
		return nil, nil, err
	}
	tasks, rejected := Fold(records)
	return tasks, append(src.Rejected(), rejected...), nil
}
