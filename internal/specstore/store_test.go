package specstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginSpec = `---
title: Login flow
status: active
tasks:
  - bd-auth.1
  - bd-auth.2
files:
  - "src/**/*.ts"
rules:
  - coding-standards/typescript
---

# Login flow

Body text.
`

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseFrontmatter(t *testing.T) {
	fm, body, err := ParseFrontmatter([]byte(loginSpec))
	require.NoError(t, err)

	assert.Equal(t, "Login flow", fm.Title)
	assert.Equal(t, "active", fm.Status)
	assert.Equal(t, []string{"bd-auth.1", "bd-auth.2"}, fm.Tasks)
	assert.Equal(t, []string{"src/**/*.ts"}, fm.Files)
	assert.Equal(t, []string{"coding-standards/typescript"}, fm.Rules)
	assert.Contains(t, string(body), "# Login flow")
}

func TestParseFrontmatterMissing(t *testing.T) {
	_, _, err := ParseFrontmatter([]byte("# Just a heading\n"))
	assert.ErrorIs(t, err, ErrMissingFrontmatter)

	_, _, err = ParseFrontmatter(nil)
	assert.ErrorIs(t, err, ErrMissingFrontmatter)
}

func TestParseFrontmatterMalformed(t *testing.T) {
	_, _, err := ParseFrontmatter([]byte("---\ntitle: [unclosed\n---\nbody\n"))
	assert.ErrorIs(t, err, ErrMalformedFrontmatter)

	// No closing fence.
	_, _, err = ParseFrontmatter([]byte("---\ntitle: x\n"))
	assert.ErrorIs(t, err, ErrMalformedFrontmatter)
}

func TestParseFrontmatterCRLF(t *testing.T) {
	fm, _, err := ParseFrontmatter([]byte("---\r\ntitle: Windows\r\n---\r\nbody\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "Windows", fm.Title)
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "auth/login.md", loginSpec)
	writeDoc(t, root, "billing.md", "---\ntitle: Billing\nstatus: active\n---\nbody\n")
	writeDoc(t, root, "notes.txt", "not a spec")

	specs, problems, err := Scan(root)
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, specs, 2)

	require.Contains(t, specs, "auth.login")
	login := specs["auth.login"]
	assert.Equal(t, "auth/login.md", login.Path)
	assert.Equal(t, StatusActive, login.Status)
	assert.Equal(t, []string{"bd-auth.1", "bd-auth.2"}, login.Tasks)
}

func TestScanArchival(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "archive/old.md", "---\ntitle: Old\nstatus: active\n---\nbody\n")
	writeDoc(t, root, "flagged.md", "---\ntitle: Flagged\nstatus: archived\n---\nbody\n")

	specs, _, err := Scan(root)
	require.NoError(t, err)

	assert.Equal(t, StatusArchived, specs["archive.old"].Status, "archive/ location implies archived")
	assert.Equal(t, StatusArchived, specs["flagged"].Status, "frontmatter flag implies archived")
}

func TestScanSkipsUnparsableDocuments(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "good.md", "---\ntitle: Good\n---\nbody\n")
	writeDoc(t, root, "bad.md", "# no frontmatter\n")

	specs, problems, err := Scan(root)
	require.NoError(t, err)
	assert.Len(t, specs, 1)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Path, "bad.md")
}

func TestScanMissingRoot(t *testing.T) {
	_, _, err := Scan(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDecodeUTF16(t *testing.T) {
	// "---\ntitle: A\n---\nb" as UTF-16LE with BOM.
	text := "---\ntitle: A\n---\nb"
	encoded := []byte{0xFF, 0xFE}
	for _, r := range text {
		encoded = append(encoded, byte(r), 0x00)
	}

	decoded, err := decodeToUTF8(encoded)
	require.NoError(t, err)

	fm, _, err := ParseFrontmatter(decoded)
	require.NoError(t, err)
	assert.Equal(t, "A", fm.Title)
}

func TestIDFromPath(t *testing.T) {
	assert.Equal(t, "auth.login", IDFromPath("auth/login.md"))
	assert.Equal(t, "top", IDFromPath("top.md"))
}
