package module

import (
	"fmt"
	"sort"
	"strings"

	"github.com/augmentcode/augment-extensions/internal/semver"
)

type IssueKind string

const (
	IssueCycle             IssueKind = "cycle"
	IssueUnknownDependency IssueKind = "unknown-dependency"
	IssueBadRange          IssueKind = "bad-range"
	IssueUnsatisfiedRange  IssueKind = "unsatisfied-range"
	IssueVersionConflict   IssueKind = "version-conflict"
)

// Issue is a single resolution finding attached to a module id.
type Issue struct {
	Kind     IssueKind
	ModuleID string
	Message  string
}

// Resolution is the outcome of resolving the dependency graph of one
// discovery pass. Cycle members and modules with unknown or unsatisfied
// dependencies are unresolved; version conflicts are warnings only.
type Resolution struct {
	Resolved map[string]bool
	Cycles   [][]string
	Issues   []Issue
}

// Resolve builds the directed dependency graph over the discovered modules,
// detects cycles with a depth-first walk, and checks every version range
// against the version actually discovered for its target.
func Resolve(modules map[string]*Module) *Resolution {
	res := &Resolution{Resolved: make(map[string]bool, len(modules))}

	ids := make([]string, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	inCycle := detectCycles(modules, ids, res)

	requirers := make(map[string][]requirement)

	for _, id := range ids {
		if inCycle[id] {
			res.Resolved[id] = false
			continue
		}

		m := modules[id]
		resolved := true
		for _, dep := range m.Dependencies {
			target, ok := modules[dep.ModuleID]
			if !ok {
				res.Issues = append(res.Issues, Issue{
					Kind:     IssueUnknownDependency,
					ModuleID: id,
					Message:  fmt.Sprintf("Dependency on unknown module: %s", dep.ModuleID),
				})
				resolved = false
				continue
			}

			if dep.Range == "" {
				requirers[dep.ModuleID] = append(requirers[dep.ModuleID], requirement{requirer: id, satisfied: true})
				continue
			}

			ok, err := semver.Satisfies(target.Version, dep.Range)
			if err != nil {
				res.Issues = append(res.Issues, Issue{
					Kind:     IssueBadRange,
					ModuleID: id,
					Message:  fmt.Sprintf("Invalid range %q for dependency %s: %v", dep.Range, dep.ModuleID, err),
				})
				resolved = false
				continue
			}
			if !ok {
				res.Issues = append(res.Issues, Issue{
					Kind:     IssueUnsatisfiedRange,
					ModuleID: id,
					Message:  fmt.Sprintf("Dependency %s@%s not satisfied by discovered version %s", dep.ModuleID, dep.Range, target.Version),
				})
				resolved = false
			}
			requirers[dep.ModuleID] = append(requirers[dep.ModuleID], requirement{
				requirer:  id,
				rng:       dep.Range,
				satisfied: ok,
			})
		}
		res.Resolved[id] = resolved
	}

	res.Issues = append(res.Issues, conflictIssues(requirers)...)
	return res
}

type requirement struct {
	requirer  string
	rng       string
	satisfied bool
}

// conflictIssues flags dependencies whose requirers disagree: some ranges
// admit the discovered version and some do not.
func conflictIssues(requirers map[string][]requirement) []Issue {
	targets := make([]string, 0, len(requirers))
	for target := range requirers {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	var issues []Issue
	for _, target := range targets {
		reqs := requirers[target]
		if len(reqs) < 2 {
			continue
		}
		var satisfied, unsatisfied []string
		for _, r := range reqs {
			label := r.requirer
			if r.rng != "" {
				label += "@" + r.rng
			}
			if r.satisfied {
				satisfied = append(satisfied, label)
			} else {
				unsatisfied = append(unsatisfied, label)
			}
		}
		if len(satisfied) == 0 || len(unsatisfied) == 0 {
			continue
		}
		issues = append(issues, Issue{
			Kind:     IssueVersionConflict,
			ModuleID: target,
			Message: fmt.Sprintf("Conflicting version requirements on %s: %s vs %s",
				target, strings.Join(satisfied, ", "), strings.Join(unsatisfied, ", ")),
		})
	}
	return issues
}

// detectCycles runs a depth-first walk with an explicit recursion stack.
// Every node on a detected cycle is marked and the full chain reported.
func detectCycles(modules map[string]*Module, ids []string, res *Resolution) map[string]bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int, len(modules))
	inCycle := make(map[string]bool)
	reported := make(map[string]bool)
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		stack = append(stack, id)

		m := modules[id]
		for _, dep := range m.Dependencies {
			next := dep.ModuleID
			if _, ok := modules[next]; !ok {
				continue
			}
			switch color[next] {
			case white:
				visit(next)
			case gray:
				recordCycle(stack, next, inCycle, reported, res)
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
	}
	return inCycle
}

func recordCycle(stack []string, entry string, inCycle, reported map[string]bool, res *Resolution) {
	start := 0
	for i, id := range stack {
		if id == entry {
			start = i
			break
		}
	}
	cycle := append([]string(nil), stack[start:]...)

	key := canonicalCycleKey(cycle)
	if reported[key] {
		return
	}
	reported[key] = true

	for _, id := range cycle {
		inCycle[id] = true
	}
	res.Cycles = append(res.Cycles, cycle)

	chain := strings.Join(append(append([]string(nil), cycle...), cycle[0]), " -> ")
	for _, id := range cycle {
		res.Issues = append(res.Issues, Issue{
			Kind:     IssueCycle,
			ModuleID: id,
			Message:  "Dependency cycle detected: " + chain,
		})
	}
}

// canonicalCycleKey identifies a cycle independent of its starting node.
func canonicalCycleKey(cycle []string) string {
	sorted := append([]string(nil), cycle...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}
