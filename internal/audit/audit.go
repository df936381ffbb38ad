package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// TimeFormat is RFC3339 in UTC with microseconds.
const TimeFormat = "2006-01-02T15:04:05.000000Z"

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`
	Actor     string `json:"actor"` // Public key or machine fingerprint of the caller.
	Via       string `json:"via,omitempty"`
	Operation string `json:"op"`

	// Optional fields depending on operation.
	Alias       string `json:"alias,omitempty"`
	Team        string `json:"team,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Envelope    string `json:"envelope,omitempty"`
	Invite      string `json:"invite,omitempty"`
	Findings    int    `json:"findings,omitempty"`

	// For rotate and restore.
	Era     string   `json:"era,omitempty"`
	Kept    []string `json:"kept,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
	Files   []string `json:"files,omitempty"`
}

// Log appends entry to the JSONL file at path. Failures are ignored:
// an operation never fails because its audit record could not be written.
// Nothing is logged when path's directory does not exist.
func Log(path string, entry Entry) {
	if path == "" {
		return
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimeFormat)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	// #nosec G302 -- the audit log holds no secret material.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseEntries(data), nil
}

// ParseEntries parses JSON Lines data. Malformed lines, such as a partial
// write after a crash, are skipped.
func ParseEntries(data []byte) []Entry {
	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}
