// Package taskstore reads the externally-owned, append-only task log and
// folds its records into the effective per-task state. Two backends exist:
// the JSONL export and the tracker's sqlite database.
package taskstore

import (
	"fmt"
	"regexp"
	"time"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusBlocked    Status = "blocked"
	StatusClosed     Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusClosed:
		return true
	}
	return false
}

// idPattern is the task id grammar: bd-<token>(.<token>)* with lowercase
// alphanumeric tokens.
var idPattern = regexp.MustCompile(`^bd-[a-z0-9]+(\.[a-z0-9]+)*$`)

func ValidID(id string) bool { return idPattern.MatchString(id) }

// FormatError reports a record that cannot enter the fold: a malformed id,
// unparsable JSON, or an unknown status value.
type FormatError struct {
	Line   int
	ID     string
	Reason string
}

func (e *FormatError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("task record %q (line %d): %s", e.ID, e.Line, e.Reason)
	}
	return fmt.Sprintf("task record at line %d: %s", e.Line, e.Reason)
}

// Record is one event in the append-only log. Nil pointers mean the field
// was absent from the record, not cleared.
type Record struct {
	ID        string            `json:"id"`
	Status    string            `json:"status,omitempty"`
	CreatedAt *time.Time        `json:"created_at,omitempty"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
	ClosedAt  *time.Time        `json:"closed_at,omitempty"`
	Spec      string            `json:"spec,omitempty"`
	Blocks    []string          `json:"blocks,omitempty"`
	BlockedBy []string          `json:"blocked_by,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`

	line int
}

// Task is the effective state of one id after folding its records.
type Task struct {
	ID        string            `json:"id"`
	Status    Status            `json:"status"`
	CreatedAt *time.Time        `json:"created_at,omitempty"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
	ClosedAt  *time.Time        `json:"closed_at,omitempty"`
	Spec      string            `json:"spec,omitempty"`
	Blocks    []string          `json:"blocks,omitempty"`
	BlockedBy []string          `json:"blocked_by,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Source supplies raw records in append order. Rejected reports records
// the backend itself could not decode during the most recent Records call.
type Source interface {
	Records() ([]Record, error)
	Rejected() []*FormatError
}
