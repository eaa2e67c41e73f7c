package query

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/augmentcode/augment-extensions/internal/manifest"
)

func fixture() *manifest.Manifest {
	m := manifest.New()
	m.Version = 1

	m.Specs["auth.login"] = &manifest.SpecEntry{
		ID:     "auth.login",
		Path:   "auth/login.md",
		Status: "active",
		Tasks:  []string{"bd-auth.1", "bd-auth.2"},
		Files:  []string{"src/**/*.ts"},
		Rules:  []string{"coding-standards/typescript"},
	}
	m.Specs["frontend"] = &manifest.SpecEntry{
		ID:     "frontend",
		Path:   "frontend.md",
		Status: "active",
		Files:  []string{"src/**"},
	}
	m.Specs["legacy"] = &manifest.SpecEntry{
		ID:     "legacy",
		Path:   "archive/legacy.md",
		Status: "archived",
		Files:  []string{"src/**"},
	}

	m.Tasks["bd-auth.1"] = &manifest.TaskEntry{ID: "bd-auth.1", Status: "open", Spec: "auth.login"}
	m.Tasks["bd-auth.2"] = &manifest.TaskEntry{ID: "bd-auth.2", Status: "in-progress"}
	m.Tasks["bd-free"] = &manifest.TaskEntry{
		ID:           "bd-free",
		Status:       "open",
		RelatedRules: []string{"coding-standards/go"},
	}

	m.Rules["coding-standards/typescript"] = &manifest.RuleEntry{
		ModuleID: "coding-standards/typescript",
		Version:  "2.0.0",
		Files:    []string{"style.md"},
	}
	m.Rules["coding-standards/go"] = &manifest.RuleEntry{
		ModuleID: "coding-standards/go",
		Version:  "1.2.0",
		Files:    []string{"naming.md"},
	}

	m.Files["docs/readme.md"] = []string{"bd-free"}
	return m
}

func newFixtureService(t *testing.T) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, fixture().Save(path))
	return NewService(path), path
}

func TestActiveSpecs(t *testing.T) {
	svc, _ := newFixtureService(t)

	specs, err := svc.ActiveSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "auth.login", specs[0].ID)
	assert.Equal(t, "frontend", specs[1].ID)
}

func TestTasksForSpec(t *testing.T) {
	svc, _ := newFixtureService(t)

	// bd-auth.1 points at the spec; bd-auth.2 only appears in the spec's
	// own task list. Both belong to the union, once each.
	tasks, err := svc.TasksForSpec("auth.login")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "bd-auth.1", tasks[0].ID)
	assert.Equal(t, "bd-auth.2", tasks[1].ID)

	_, err = svc.TasksForSpec("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRulesForTask(t *testing.T) {
	svc, _ := newFixtureService(t)

	rules, err := svc.RulesForTask("bd-auth.1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "coding-standards/typescript", rules[0].ModuleID)

	// No spec binding, only a manifest-level override.
	rules, err = svc.RulesForTask("bd-free")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "coding-standards/go", rules[0].ModuleID)

	_, err = svc.RulesForTask("bd-nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSpecForFile(t *testing.T) {
	svc, _ := newFixtureService(t)

	// Both auth.login (src/**/*.ts) and frontend (src/**) match; the longer
	// pattern is the more specific claim.
	spec, err := svc.SpecForFile("src/app/login.ts")
	require.NoError(t, err)
	assert.Equal(t, "auth.login", spec.ID)

	spec, err = svc.SpecForFile("src/assets/logo.png")
	require.NoError(t, err)
	assert.Equal(t, "frontend", spec.ID, "archived legacy spec never matches")

	_, err = svc.SpecForFile("docs/readme.md")
	assert.ErrorIs(t, err, ErrNotFound)

	// The negative result is memoised too.
	_, err = svc.SpecForFile("docs/readme.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSpecForFileTieBreak(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	m := manifest.New()
	m.Version = 1
	m.Specs["zeta"] = &manifest.SpecEntry{ID: "zeta", Status: "active", Files: []string{"lib/**"}}
	m.Specs["alpha"] = &manifest.SpecEntry{ID: "alpha", Status: "active", Files: []string{"lib/**"}}
	require.NoError(t, m.Save(path))

	svc := NewService(path)
	spec, err := svc.SpecForFile("lib/util.go")
	require.NoError(t, err)
	assert.Equal(t, "alpha", spec.ID, "equal-length patterns fall back to the smallest spec id")
}

func TestSpecForFileRecomputesStaleMemo(t *testing.T) {
	svc, _ := newFixtureService(t)

	_, err := svc.ActiveSpecs()
	require.NoError(t, err)

	// A memo left behind by an older snapshot may name a spec the current
	// manifest no longer has; the lookup must recompute, not return nil.
	svc.mu.Lock()
	svc.specForFile["src/app/login.ts"] = "ghost"
	svc.mu.Unlock()

	spec, err := svc.SpecForFile("src/app/login.ts")
	require.NoError(t, err)
	require.NotNil(t, spec)
	assert.Equal(t, "auth.login", spec.ID)
}

func TestTasksForFile(t *testing.T) {
	svc, _ := newFixtureService(t)

	// Direct association only.
	tasks, err := svc.TasksForFile("docs/readme.md")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "bd-free", tasks[0].ID)

	// Via matching active specs: auth.login contributes its task list plus
	// tasks pointing back at it, without duplicates.
	tasks, err = svc.TasksForFile("src/app/login.ts")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "bd-auth.1", tasks[0].ID)
	assert.Equal(t, "bd-auth.2", tasks[1].ID)

	tasks, err = svc.TasksForFile("unrelated/file.rs")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestInvalidateReloadsManifest(t *testing.T) {
	svc, path := newFixtureService(t)

	spec, err := svc.SpecForFile("src/app/login.ts")
	require.NoError(t, err)
	assert.Equal(t, "auth.login", spec.ID)

	// A sync rewrites the manifest: the login spec releases its claim.
	m := fixture()
	m.Version = 2
	m.Specs["auth.login"].Files = nil
	require.NoError(t, m.Save(path))

	// Until invalidation the old snapshot keeps answering.
	spec, err = svc.SpecForFile("src/app/login.ts")
	require.NoError(t, err)
	assert.Equal(t, "auth.login", spec.ID)

	svc.Invalidate()

	// Version bump flushes the memoised match along with everything else.
	spec, err = svc.SpecForFile("src/app/login.ts")
	require.NoError(t, err)
	assert.Equal(t, "frontend", spec.ID)
}

func TestQueriesBeforeFirstSync(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "manifest.json"))

	_, err := svc.ActiveSpecs()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "manifest not yet synced")
}
