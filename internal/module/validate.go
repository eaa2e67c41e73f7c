package module

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/augmentcode/augment-extensions/internal/semver"
)

func isValidVersion(v string) bool { return semver.IsValid(v) }

// Result is the outcome of validating one descriptor or directory.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

var requiredFields = []string{"name", "version", "displayName", "description", "type"}

// ValidateMetadata checks a raw module.json payload: required fields, the
// closed type set, version format, and the shapes of tags/dependencies.
func ValidateMetadata(raw []byte) Result {
	var result Result

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		result.errorf("Invalid JSON in %s: %v", DescriptorFile, err)
		return result
	}

	for _, f := range requiredFields {
		v, ok := fields[f]
		if !ok {
			result.errorf("Missing required field: %s", f)
			continue
		}
		if s, isString := v.(string); !isString || s == "" {
			result.errorf("Missing required field: %s", f)
		}
	}

	if t, ok := fields["type"].(string); ok && t != "" {
		if !Type(t).Valid() {
			result.errorf("Invalid type: %s", t)
		}
	}

	if v, ok := fields["version"].(string); ok && v != "" {
		if !isValidVersion(v) {
			result.errorf("Invalid version format")
		}
	}

	for _, f := range []string{"tags", "dependencies"} {
		v, ok := fields[f]
		if !ok || v == nil {
			continue
		}
		if !isStringArray(v) {
			result.errorf("Field '%s' must be an array of strings", f)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func isStringArray(v any) bool {
	items, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}

// ValidateStructure checks the on-disk layout of a module directory: the
// descriptor, a README, a rules directory, and optionally examples.
func ValidateStructure(dir string) Result {
	var result Result

	descriptorPath := filepath.Join(dir, DescriptorFile)
	raw, err := os.ReadFile(descriptorPath)
	switch {
	case os.IsNotExist(err):
		result.errorf("Missing required file: %s", DescriptorFile)
	case err != nil:
		result.errorf("Unreadable file: %s: %v", DescriptorFile, err)
	default:
		var probe map[string]any
		if err := json.Unmarshal(raw, &probe); err != nil {
			result.errorf("Invalid JSON in %s: %v", DescriptorFile, err)
		}
	}

	if !fileExists(filepath.Join(dir, ReadmeFile)) {
		result.errorf("Missing required file: %s", ReadmeFile)
	}

	rulesDir := filepath.Join(dir, RulesDirName)
	switch entries, err := os.ReadDir(rulesDir); {
	case os.IsNotExist(err):
		result.errorf("Missing required directory: %s", RulesDirName)
	case err != nil:
		result.errorf("Unreadable directory: %s: %v", RulesDirName, err)
	case len(entries) == 0:
		result.warnf("Rules directory is empty")
	}

	if !dirExists(filepath.Join(dir, ExamplesDir)) {
		result.warnf("No examples directory found")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
