// Package specstore reads the externally-owned tree of spec documents.
// Each document carries a YAML frontmatter block with status, related task
// ids, and the file-glob patterns it governs.
package specstore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/augmentcode/augment-extensions/internal/logger"
)

var log = logger.ForComponent("specstore")

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Spec is the parsed view of one document in the tree.
type Spec struct {
	ID     string
	Path   string
	Title  string
	Status Status
	Tasks  []string
	Files  []string
	Rules  []string
}

// Problem records a document that could not be parsed. The scan continues.
type Problem struct {
	Path   string
	Reason string
}

// Scan walks root and parses every markdown document. Documents with
// unparsable frontmatter are reported and skipped; only an unreadable root
// fails the scan.
func Scan(root string) (map[string]*Spec, []Problem, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, nil, fmt.Errorf("read spec root %s: %w", root, err)
	}

	specs := make(map[string]*Spec)
	var problems []Problem

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			problems = append(problems, Problem{Path: path, Reason: err.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		spec, problem := loadSpec(root, path)
		if problem != nil {
			log.Warn("skipping spec document", "path", path, "reason", problem.Reason)
			problems = append(problems, *problem)
			return nil
		}
		specs[spec.ID] = spec
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk spec root: %w", err)
	}

	log.Info("spec scan complete", "specs", len(specs), "skipped", len(problems))
	return specs, problems, nil
}

func loadSpec(root, path string) (*Spec, *Problem) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &Problem{Path: path, Reason: "unreadable: " + err.Error()}
	}

	content, err := decodeToUTF8(raw)
	if err != nil {
		return nil, &Problem{Path: path, Reason: "undecodable: " + err.Error()}
	}

	fm, _, err := ParseFrontmatter(content)
	if err != nil {
		return nil, &Problem{Path: path, Reason: err.Error()}
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, &Problem{Path: path, Reason: err.Error()}
	}

	spec := &Spec{
		ID:     IDFromPath(rel),
		Path:   rel,
		Title:  fm.Title,
		Status: StatusActive,
		Tasks:  append([]string(nil), fm.Tasks...),
		Files:  append([]string(nil), fm.Files...),
		Rules:  append([]string(nil), fm.Rules...),
	}
	if fm.Status == string(StatusArchived) || isArchivedPath(rel) {
		spec.Status = StatusArchived
	}

	return spec, nil
}

// IDFromPath derives a spec id from its root-relative path: separators map
// to dots and the .md suffix is dropped ("auth/login.md" -> "auth.login").
func IDFromPath(rel string) string {
	id := strings.TrimSuffix(filepath.ToSlash(rel), ".md")
	return strings.ReplaceAll(id, "/", ".")
}

// isArchivedPath reports whether any directory segment is "archive";
// archival is a location change, not a deletion.
func isArchivedPath(rel string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if segment == "archive" {
			return true
		}
	}
	return false
}
