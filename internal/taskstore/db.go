package taskstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DBSource reads the tracker's sqlite database directly. The tracker owns
// the schema; this reader only selects from the issues table, in insertion
// order, so folding behaves exactly as it does for the JSONL export.
type DBSource struct {
	db       *sql.DB
	rejected []*FormatError
}

func OpenDB(path string) (*DBSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open task database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping task database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA query_only=ON"); err != nil {
		db.Close()
		return nil, err
	}
	return &DBSource{db: db}, nil
}

func (s *DBSource) Close() error { return s.db.Close() }

// Rejected reports rows whose JSON columns could not be decoded during the
// most recent Records call.
func (s *DBSource) Rejected() []*FormatError { return s.rejected }

func (s *DBSource) Records() ([]Record, error) {
	s.rejected = nil
	rows, err := s.db.Query(`
		SELECT id, status, created_at, updated_at, closed_at, spec, blocks, blocked_by, fields
		FROM issues
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	var records []Record
	line := 0
	for rows.Next() {
		line++
		var (
			rec                            Record
			status, spec                   sql.NullString
			createdAt, updatedAt, closedAt sql.NullTime
			blocks, blockedBy, fields      sql.NullString
		)
		if err := rows.Scan(&rec.ID, &status, &createdAt, &updatedAt, &closedAt, &spec, &blocks, &blockedBy, &fields); err != nil {
			return nil, fmt.Errorf("scan issue row: %w", err)
		}

		rec.line = line
		rec.Status = status.String
		rec.Spec = spec.String
		rec.CreatedAt = nullableTime(createdAt)
		rec.UpdatedAt = nullableTime(updatedAt)
		rec.ClosedAt = nullableTime(closedAt)

		ok := s.decodeColumn(line, rec.ID, "blocks", blocks, &rec.Blocks) &&
			s.decodeColumn(line, rec.ID, "blocked_by", blockedBy, &rec.BlockedBy) &&
			s.decodeColumn(line, rec.ID, "fields", fields, &rec.Fields)
		if !ok {
			continue
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return records, nil
}

// decodeColumn unmarshals one JSON column. A corrupt cell rejects the whole
// row, so a row behaves like an unparsable JSONL line rather than folding
// with silently-empty edges.
func (s *DBSource) decodeColumn(line int, id, column string, value sql.NullString, dst any) bool {
	if !value.Valid || value.String == "" {
		return true
	}
	if err := json.Unmarshal([]byte(value.String), dst); err != nil {
		s.rejected = append(s.rejected, &FormatError{
			Line:   line,
			ID:     id,
			Reason: fmt.Sprintf("unparsable %s column: %v", column, err),
		})
		return false
	}
	return true
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}
