// Package manifest owns the coordination manifest: the single JSON file
// cross-referencing specs, tasks, rules and files. This package is the only
// writer; the task and spec stores are read elsewhere and projected in by
// the syncer.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var ErrNotExist = errors.New("manifest does not exist")

// Manifest is the materialized cross-reference view. Version is a monotonic
// counter bumped only when a sync run applies changes; query caches key off
// it for whole-cache invalidation.
type Manifest struct {
	Version  uint64     `json:"version"`
	SyncedAt *time.Time `json:"synced_at,omitempty"`

	Specs map[string]*SpecEntry `json:"specs"`
	Tasks map[string]*TaskEntry `json:"tasks"`
	Rules map[string]*RuleEntry `json:"rules"`
	Files map[string][]string   `json:"files"`
}

// SpecEntry projects one spec document plus its manifest-side task list.
type SpecEntry struct {
	ID     string   `json:"id"`
	Path   string   `json:"path"`
	Title  string   `json:"title,omitempty"`
	Status string   `json:"status"`
	Tasks  []string `json:"tasks,omitempty"`
	Files  []string `json:"files,omitempty"`
	Rules  []string `json:"rules,omitempty"`
}

// TaskEntry projects one folded task. RelatedRules is a manifest-only
// association and must survive re-sync untouched.
type TaskEntry struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	Spec         string     `json:"spec,omitempty"`
	RelatedRules []string   `json:"related_rules,omitempty"`
}

// RuleEntry binds a discovered module's rule files into the manifest.
type RuleEntry struct {
	ModuleID string   `json:"module_id"`
	Version  string   `json:"version,omitempty"`
	Files    []string `json:"files,omitempty"`
}

func New() *Manifest {
	return &Manifest{
		Specs: make(map[string]*SpecEntry),
		Tasks: make(map[string]*TaskEntry),
		Rules: make(map[string]*RuleEntry),
		Files: make(map[string][]string),
	}
}

// Load reads and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	m := New()
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m.ensureMaps()
	return m, nil
}

// LoadOrInit loads the manifest, or returns a fresh one on first sync.
// fresh reports that no manifest existed at path yet.
func LoadOrInit(path string) (*Manifest, bool, error) {
	m, err := Load(path)
	if errors.Is(err, ErrNotExist) {
		return New(), true, nil
	}
	return m, false, err
}

func (m *Manifest) ensureMaps() {
	if m.Specs == nil {
		m.Specs = make(map[string]*SpecEntry)
	}
	if m.Tasks == nil {
		m.Tasks = make(map[string]*TaskEntry)
	}
	if m.Rules == nil {
		m.Rules = make(map[string]*RuleEntry)
	}
	if m.Files == nil {
		m.Files = make(map[string][]string)
	}
}

// Save writes the manifest atomically: encode to a temp file in the target
// directory, then rename over path. A concurrent reader sees either the old
// or the new manifest, never a partial write. Map keys marshal sorted, so
// equal content always produces equal bytes.
func (m *Manifest) Save(path string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp manifest: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// Encode renders the canonical byte form used on disk.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Clone deep-copies the manifest through its JSON form.
func (m *Manifest) Clone() *Manifest {
	data, err := json.Marshal(m)
	if err != nil {
		return New()
	}
	out := New()
	if err := json.Unmarshal(data, out); err != nil {
		return New()
	}
	out.ensureMaps()
	return out
}

// ContentEquals compares everything except the version counter and sync
// timestamp, so a no-op sync can detect that nothing changed.
func (m *Manifest) ContentEquals(other *Manifest) bool {
	a := m.Clone()
	b := other.Clone()
	a.Version, b.Version = 0, 0
	a.SyncedAt, b.SyncedAt = nil, nil

	da, errA := json.Marshal(a)
	db, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(da, db)
}
