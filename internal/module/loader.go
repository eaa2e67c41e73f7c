package module

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type descriptor struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	DisplayName  string   `json:"displayName"`
	Description  string   `json:"description"`
	Type         string   `json:"type"`
	Tags         []string `json:"tags,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

type collectionDescriptor struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Modules     []string `json:"modules"`
}

// LoadModule reads the descriptor and companion files under dir. A missing
// or unparsable descriptor yields (nil, nil) so discovery can skip the
// candidate and continue; validation of field content is the caller's job.
func LoadModule(category, dir string) (*Module, error) {
	raw, err := os.ReadFile(filepath.Join(dir, DescriptorFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var d descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, nil
	}

	m := &Module{
		ID:          ModuleID(category, d.Name),
		Category:    category,
		Name:        d.Name,
		Version:     d.Version,
		DisplayName: d.DisplayName,
		Description: d.Description,
		Type:        Type(d.Type),
		Tags:        append([]string(nil), d.Tags...),
		Dir:         dir,
		RulesDir:    filepath.Join(dir, RulesDirName),
	}

	for _, dep := range d.Dependencies {
		m.Dependencies = append(m.Dependencies, ParseDependency(dep))
	}

	if base := filepath.Base(dir); base != d.Name {
		m.Warnings = append(m.Warnings, "Directory name does not match descriptor name: "+base)
	}

	m.RuleFiles = listRuleFiles(m.RulesDir)

	if examples := filepath.Join(dir, ExamplesDir); dirExists(examples) {
		m.ExamplesDir = examples
	}

	return m, nil
}

func listRuleFiles(rulesDir string) []string {
	entries, err := os.ReadDir(rulesDir)
	if err != nil {
		return nil
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".md") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files
}

// LoadCollection reads a collection descriptor under dir. As with
// LoadModule, an absent or unparsable descriptor returns (nil, nil).
func LoadCollection(dir string) (*Collection, error) {
	raw, err := os.ReadFile(filepath.Join(dir, CollectionFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var d collectionDescriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, nil
	}

	c := &Collection{
		Name:        d.Name,
		DisplayName: d.DisplayName,
		Description: d.Description,
		Dir:         dir,
	}
	for _, ref := range d.Modules {
		c.Modules = append(c.Modules, ParseDependency(ref))
	}
	return c, nil
}
