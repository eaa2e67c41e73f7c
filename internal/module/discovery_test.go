package module

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestModule lays down a complete module directory under root.
func writeTestModule(t *testing.T, root, category, name, version string, deps []string) {
	t.Helper()
	dir := filepath.Join(root, category, name)

	d := map[string]any{
		"name":        name,
		"version":     version,
		"displayName": name,
		"description": "test module " + name,
		"type":        "coding-standards",
	}
	if len(deps) > 0 {
		d["dependencies"] = deps
	}

	writeFile(t, filepath.Join(dir, DescriptorFile), marshal(t, d))
	writeFile(t, filepath.Join(dir, ReadmeFile), []byte("# "+name+"\n"))
	writeFile(t, filepath.Join(dir, RulesDirName, "main.md"), []byte("# rules\n"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ExamplesDir), 0o755))
}

func TestDiscoverModules(t *testing.T) {
	root := t.TempDir()
	writeTestModule(t, root, "coding-standards", "go", "1.2.0", nil)
	writeTestModule(t, root, "coding-standards", "python", "2.0.0", nil)
	writeTestModule(t, root, "guides", "wordpress", "0.3.1", nil)

	modules, problems, err := DiscoverModules(root)
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, modules, 3)

	// Sorted by id.
	assert.Equal(t, "coding-standards/go", modules[0].ID)
	assert.Equal(t, "coding-standards/python", modules[1].ID)
	assert.Equal(t, "guides/wordpress", modules[2].ID)

	assert.Equal(t, []string{"main.md"}, modules[0].RuleFiles)
	assert.Equal(t, TypeCodingStandards, modules[0].Type)
}

func TestDiscoverModulesIsolatesFailures(t *testing.T) {
	root := t.TempDir()
	writeTestModule(t, root, "coding-standards", "go", "1.2.0", nil)

	// A candidate with a corrupt descriptor must not break the pass.
	broken := filepath.Join(root, "coding-standards", "broken")
	writeFile(t, filepath.Join(broken, DescriptorFile), []byte("{nope"))
	writeFile(t, filepath.Join(broken, ReadmeFile), []byte("readme"))
	writeFile(t, filepath.Join(broken, RulesDirName, "r.md"), []byte("x"))

	// And one missing its README.
	noReadme := filepath.Join(root, "coding-standards", "noreadme")
	writeFile(t, filepath.Join(noReadme, DescriptorFile), marshal(t, validDescriptor()))
	writeFile(t, filepath.Join(noReadme, RulesDirName, "r.md"), []byte("x"))

	modules, problems, err := DiscoverModules(root)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "coding-standards/go", modules[0].ID)
	assert.Len(t, problems, 2)
}

func TestDiscoverModulesMissingRoot(t *testing.T) {
	_, _, err := DiscoverModules(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDiscoverCollections(t *testing.T) {
	root := t.TempDir()
	writeTestModule(t, root, "coding-standards", "go", "1.2.0", nil)

	c := map[string]any{
		"name":        "backend",
		"displayName": "Backend Bundle",
		"description": "Everything for backend work",
		"modules":     []string{"coding-standards/go@^1.0.0", "coding-standards/rust"},
	}
	writeFile(t, filepath.Join(root, CollectionsDir, "backend", CollectionFile), marshal(t, c))

	idx, err := Discover(root)
	require.NoError(t, err)
	require.Contains(t, idx.Collections, "backend")

	col := idx.Collections["backend"]
	require.Len(t, col.Modules, 2)
	assert.Equal(t, Dependency{ModuleID: "coding-standards/go", Range: "^1.0.0"}, col.Modules[0])

	// The unknown member is a warning on the collection, not a failure.
	assert.Contains(t, col.Warnings, "Unresolved module reference: coding-standards/rust")
}

func TestDiscoverRecordsUnreadableCollectionsDir(t *testing.T) {
	root := t.TempDir()
	writeTestModule(t, root, "coding-standards", "go", "1.2.0", nil)

	// A plain file where the collections directory should be makes the
	// read fail with something other than not-exist.
	writeFile(t, filepath.Join(root, CollectionsDir), []byte("not a directory"))

	idx, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, idx.Modules, 1)
	assert.Empty(t, idx.Collections)

	found := false
	for _, p := range idx.Problems {
		for _, msg := range p.Errors {
			if strings.Contains(msg, "Unreadable collections directory") {
				found = true
			}
		}
	}
	assert.True(t, found, "problems: %+v", idx.Problems)
}

func TestParseDependency(t *testing.T) {
	assert.Equal(t, Dependency{ModuleID: "a/b", Range: "^1.0.0"}, ParseDependency("a/b@^1.0.0"))
	assert.Equal(t, Dependency{ModuleID: "a/b"}, ParseDependency("a/b"))
	assert.Equal(t, "a/b@~2.1.0", Dependency{ModuleID: "a/b", Range: "~2.1.0"}.String())
}
