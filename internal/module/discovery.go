package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/augmentcode/augment-extensions/internal/logger"
	"github.com/augmentcode/augment-extensions/internal/metrics"
)

var log = logger.ForComponent("discovery")

// Index is the read-only outcome of one discovery pass over a module root.
type Index struct {
	Root        string
	Modules     map[string]*Module
	Collections map[string]*Collection
	Problems    []Problem
	Resolution  *Resolution
}

// Discover walks the category tree under root, loads and validates every
// module and collection candidate, and resolves the dependency graph.
// Individual candidate failures are recorded in Problems and skipped; the
// only hard failure is an unreadable root.
func Discover(root string) (*Index, error) {
	modules, problems, err := DiscoverModules(root)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		Root:        root,
		Modules:     make(map[string]*Module, len(modules)),
		Collections: make(map[string]*Collection),
		Problems:    problems,
	}
	for _, m := range modules {
		idx.Modules[m.ID] = m
	}

	collections, cproblems, err := DiscoverCollections(root, idx.Modules)
	if err != nil {
		idx.Problems = append(idx.Problems, Problem{
			Path:   filepath.Join(root, CollectionsDir),
			Errors: []string{fmt.Sprintf("Unreadable collections directory: %v", err)},
		})
	} else {
		for _, c := range collections {
			idx.Collections[c.Name] = c
		}
		idx.Problems = append(idx.Problems, cproblems...)
	}

	idx.Resolution = Resolve(idx.Modules)
	return idx, nil
}

// DiscoverModules loads every module candidate under root's category
// directories. Modules are returned sorted by id.
func DiscoverModules(root string) ([]*Module, []Problem, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("read module root %s: %w", root, err)
	}

	var (
		modules  []*Module
		problems []Problem
		seen     = make(map[string]string)
	)

	for _, entry := range entries {
		if !entry.IsDir() || skipDir(entry.Name()) || entry.Name() == CollectionsDir {
			continue
		}
		category := entry.Name()
		categoryDir := filepath.Join(root, category)

		candidates, err := os.ReadDir(categoryDir)
		if err != nil {
			problems = append(problems, Problem{
				Path:   categoryDir,
				Errors: []string{fmt.Sprintf("Unreadable category directory: %v", err)},
			})
			continue
		}

		for _, candidate := range candidates {
			if !candidate.IsDir() || skipDir(candidate.Name()) {
				continue
			}
			dir := filepath.Join(categoryDir, candidate.Name())

			m, problem := loadCandidate(category, dir)
			if problem != nil {
				log.Warn("skipping module candidate", "path", dir, "errors", problem.Errors)
				metrics.ModulesSkipped.Inc()
				problems = append(problems, *problem)
				continue
			}

			if prev, dup := seen[m.ID]; dup {
				problems = append(problems, Problem{
					Path:   dir,
					ID:     m.ID,
					Errors: []string{fmt.Sprintf("Duplicate module id %s (already loaded from %s)", m.ID, prev)},
				})
				metrics.ModulesSkipped.Inc()
				continue
			}
			seen[m.ID] = dir

			metrics.ModulesDiscovered.Inc()
			modules = append(modules, m)
		}
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].ID < modules[j].ID })
	log.Info("discovery pass complete", "modules", len(modules), "skipped", len(problems))
	return modules, problems, nil
}

// loadCandidate applies the per-candidate isolation boundary: any failure
// is reported as a Problem, never propagated.
func loadCandidate(category, dir string) (*Module, *Problem) {
	structure := ValidateStructure(dir)
	if !structure.Valid {
		return nil, &Problem{Path: dir, Errors: structure.Errors, Warnings: structure.Warnings}
	}

	raw, err := os.ReadFile(filepath.Join(dir, DescriptorFile))
	if err != nil {
		return nil, &Problem{Path: dir, Errors: []string{fmt.Sprintf("Unreadable file: %s: %v", DescriptorFile, err)}}
	}

	meta := ValidateMetadata(raw)
	if !meta.Valid {
		return nil, &Problem{Path: dir, Errors: meta.Errors, Warnings: meta.Warnings}
	}

	m, err := LoadModule(category, dir)
	if err != nil || m == nil {
		return nil, &Problem{Path: dir, Errors: []string{fmt.Sprintf("Failed to load module: %v", err)}}
	}

	m.Warnings = append(m.Warnings, structure.Warnings...)
	m.Warnings = append(m.Warnings, meta.Warnings...)
	return m, nil
}

// DiscoverCollections loads collection bundles and checks every member
// reference against the discovered module index. Unresolved members are
// collection warnings, not discovery failures.
func DiscoverCollections(root string, modules map[string]*Module) ([]*Collection, []Problem, error) {
	collectionsDir := filepath.Join(root, CollectionsDir)
	entries, err := os.ReadDir(collectionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read collections directory: %w", err)
	}

	var (
		collections []*Collection
		problems    []Problem
	)

	for _, entry := range entries {
		if !entry.IsDir() || skipDir(entry.Name()) {
			continue
		}
		dir := filepath.Join(collectionsDir, entry.Name())

		c, err := LoadCollection(dir)
		if err != nil || c == nil {
			problems = append(problems, Problem{
				Path:   dir,
				Errors: []string{fmt.Sprintf("Failed to load collection: %v", err)},
			})
			continue
		}
		if c.Name == "" {
			problems = append(problems, Problem{
				Path:   dir,
				Errors: []string{"Missing required field: name"},
			})
			continue
		}

		for _, ref := range c.Modules {
			if _, ok := modules[ref.ModuleID]; !ok {
				c.Warnings = append(c.Warnings, fmt.Sprintf("Unresolved module reference: %s", ref.ModuleID))
			}
		}

		collections = append(collections, c)
	}

	sort.Slice(collections, func(i, j int) bool { return collections[i].Name < collections[j].Name })
	return collections, problems, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
