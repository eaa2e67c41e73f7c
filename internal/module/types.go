// Package module discovers and validates extension modules and collections
// under a category tree, and resolves the dependency graph between them.
package module

import (
	"fmt"
	"strings"
)

const (
	DescriptorFile = "module.json"
	CollectionFile = "collection.json"
	ReadmeFile     = "README.md"
	RulesDirName   = "rules"
	ExamplesDir    = "examples"
	CollectionsDir = "collections"
)

// Type is the closed set of module categories a descriptor may declare.
type Type string

const (
	TypeCodingStandards Type = "coding-standards"
	TypeTutorial        Type = "tutorial"
	TypeGuide           Type = "guide"
	TypeWorkflow        Type = "workflow"
	TypeReference       Type = "reference"
)

var knownTypes = map[Type]struct{}{
	TypeCodingStandards: {},
	TypeTutorial:        {},
	TypeGuide:           {},
	TypeWorkflow:        {},
	TypeReference:       {},
}

func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// Dependency is a reference to another module, optionally constrained to a
// version range. The descriptor form is "category/name" or
// "category/name@^1.0.0".
type Dependency struct {
	ModuleID string
	Range    string
}

func ParseDependency(raw string) Dependency {
	if at := strings.LastIndex(raw, "@"); at > 0 {
		return Dependency{ModuleID: raw[:at], Range: raw[at+1:]}
	}
	return Dependency{ModuleID: raw}
}

func (d Dependency) String() string {
	if d.Range == "" {
		return d.ModuleID
	}
	return d.ModuleID + "@" + d.Range
}

// Module is a validated, immutable unit of guidance content.
type Module struct {
	ID           string
	Category     string
	Name         string
	Version      string
	DisplayName  string
	Description  string
	Type         Type
	Tags         []string
	Dependencies []Dependency

	Dir         string
	RulesDir    string
	ExamplesDir string
	RuleFiles   []string

	Warnings []string
}

func ModuleID(category, name string) string {
	return category + "/" + name
}

// Collection is a named bundle of module references.
type Collection struct {
	Name        string
	DisplayName string
	Description string
	Modules     []Dependency

	Dir      string
	Warnings []string
}

// Problem records why a single candidate was skipped or flagged during a
// discovery pass. One bad candidate never aborts the pass.
type Problem struct {
	Path     string
	ID       string
	Errors   []string
	Warnings []string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Path, strings.Join(p.Errors, "; "))
}
