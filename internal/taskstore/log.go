package taskstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LogSource reads the tracker's JSONL export: one JSON record per line,
// blank lines and #-comments ignored.
type LogSource struct {
	Path string

	rejected []*FormatError
}

func NewLogSource(path string) *LogSource {
	return &LogSource{Path: path}
}

func (s *LogSource) Records() ([]Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open task log: %w", err)
	}
	defer f.Close()

	s.rejected = nil
	var records []Record

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			s.rejected = append(s.rejected, &FormatError{Line: line, Reason: "unparsable record: " + err.Error()})
			continue
		}
		rec.line = line
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read task log: %w", err)
	}

	return records, nil
}

// Rejected returns the lines dropped by the most recent Records call.
func (s *LogSource) Rejected() []*FormatError { return s.rejected }
