package specstore

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingFrontmatter   = errors.New("specstore: missing frontmatter")
	ErrMalformedFrontmatter = errors.New("specstore: malformed frontmatter")
)

// Frontmatter is the leading YAML metadata block of a spec document.
// Rules lists the ids of the guidance modules governing the spec.
type Frontmatter struct {
	Title  string   `yaml:"title"`
	Status string   `yaml:"status"`
	Tasks  []string `yaml:"tasks"`
	Files  []string `yaml:"files"`
	Rules  []string `yaml:"rules"`
}

// ParseFrontmatter extracts the metadata block and body from a document
// that opens with `---` YAML fences.
func ParseFrontmatter(content []byte) (Frontmatter, []byte, error) {
	var fm Frontmatter

	if len(content) == 0 {
		return fm, nil, ErrMissingFrontmatter
	}
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return fm, nil, ErrMissingFrontmatter
	}

	rest := normalized[4:]
	parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
	if len(parts) < 2 {
		// A fence closing at EOF without a trailing newline still counts.
		if bytes.HasSuffix(rest, []byte("\n---")) {
			parts = [][]byte{rest[:len(rest)-4], nil}
		} else {
			return fm, nil, ErrMalformedFrontmatter
		}
	}

	if err := yaml.Unmarshal(parts[0], &fm); err != nil {
		return fm, nil, fmt.Errorf("%w: %v", ErrMalformedFrontmatter, err)
	}
	return fm, parts[1], nil
}
