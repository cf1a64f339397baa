package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// maxLineBytes bounds one JSONL record when reading a log back.
const maxLineBytes = 1 << 20

// chainedEvent is the on-disk record. EventHash covers the record with
// EventHash empty, so each line commits to its predecessor.
type chainedEvent struct {
	Event
	PreviousHash string `json:"previous_hash,omitempty"`
	EventHash    string `json:"event_hash"`
}

func (c *chainedEvent) hash() (string, error) {
	tmp := *c
	tmp.EventHash = ""
	data, err := json.Marshal(tmp)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FileSink appends hash-chained events to a JSONL file and syncs after each
// write.
type FileSink struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	lastHash string
	count    int64
}

// OpenFileSink opens path for appending, resuming the hash chain from its
// last record.
func OpenFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	last, count, err := lastRecord(path)
	if err != nil {
		return nil, fmt.Errorf("resume audit chain: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &FileSink{path: path, file: f, lastHash: last, count: count}, nil
}

// Write appends e and fsyncs the file.
func (s *FileSink) Write(e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("audit log closed")
	}

	rec := chainedEvent{Event: *e, PreviousHash: s.lastHash}
	h, err := rec.hash()
	if err != nil {
		return fmt.Errorf("hash audit event: %w", err)
	}
	rec.EventHash = h

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	s.lastHash = h
	s.count++
	return nil
}

// Count returns the number of records in the file.
func (s *FileSink) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Path returns the file path.
func (s *FileSink) Path() string { return s.path }

// Close closes the file. Later writes fail.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// lastRecord verifies an existing log and returns its final hash.
func lastRecord(path string) (string, int64, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	return verify(f)
}

// VerifyFile checks the hash chain of an audit log and returns the number
// of records.
func VerifyFile(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	_, n, err := verify(f)
	return n, err
}

func verify(r io.Reader) (string, int64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var prev string
	var n int64
	for scanner.Scan() {
		n++
		var rec chainedEvent
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return "", n, fmt.Errorf("line %d: %w", n, err)
		}
		if rec.PreviousHash != prev {
			return "", n, fmt.Errorf("line %d: hash chain broken", n)
		}
		h, err := rec.hash()
		if err != nil {
			return "", n, fmt.Errorf("line %d: %w", n, err)
		}
		if h != rec.EventHash {
			return "", n, fmt.Errorf("line %d: event hash mismatch", n)
		}
		prev = rec.EventHash
	}
	if err := scanner.Err(); err != nil {
		return "", n, err
	}
	return prev, n, nil
}
