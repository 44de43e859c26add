package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// QueryLog appends every executed statement to an on-disk history file.
// Each process gets a session id so interleaved sessions can be told
// apart when reading the log later.
type QueryLog struct {
	mu        sync.Mutex
	file      *os.File
	sessionID string
}

// OpenQueryLog creates dir if needed and opens the shared history file in
// append mode.
func OpenQueryLog(dir string) (*QueryLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, "query_history.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening query log %s: %w", path, err)
	}
	return &QueryLog{file: f, sessionID: uuid.NewString()}, nil
}

// SessionID returns this process's session identifier.
func (q *QueryLog) SessionID() string { return q.sessionID }

// Record appends one statement with its outcome. Errors are recorded with
// their message; successful statements with their row count and duration.
func (q *QueryLog) Record(statement string, rows int, took time.Duration, execErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	ts := time.Now().Format(time.RFC3339)
	var err error
	if execErr != nil {
		_, err = fmt.Fprintf(q.file, "%s session=%s error=%q statement=%q\n", ts, q.sessionID, execErr.Error(), statement)
	} else {
		_, err = fmt.Fprintf(q.file, "%s session=%s rows=%d took=%s statement=%q\n", ts, q.sessionID, rows, took.Round(time.Millisecond), statement)
	}
	return err
}

// Close releases the underlying file.
func (q *QueryLog) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.file.Close()
}
