package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JournalEntry records one batch flush. Each entry is serialized as a JSON
// line in <store>.journal.jsonl.
type JournalEntry struct {
	// Batch is the 1-based flush number within the run
	Batch int `json:"batch"`

	// Size is the number of results in the flushed batch
	Size int `json:"size"`

	// First and Last are the key paths of the first and last result
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`

	// Collisions lists the keys that overwrote existing results
	Collisions []string `json:"collisions,omitempty"`

	// Error is set when the flush failed
	Error string `json:"error,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// JournalPath returns the journal file that belongs to a store file.
func JournalPath(storePath string) string {
	return storePath + ".journal.jsonl"
}

// JournalWriter writes journal entries to a JSONL file.
// It is safe for concurrent use.
type JournalWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewJournalWriter opens the journal at path.
// If append is true, new entries are appended to an existing file.
func NewJournalWriter(path string, append bool) (*JournalWriter, error) {
	var file *os.File
	var err error
	if append {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &JournalWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 16*1024),
		path:   path,
	}, nil
}

// Write appends an entry and flushes it, so the journal is current even if
// the process dies before Close.
func (jw *JournalWriter) Write(entry JournalEntry) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	if _, err := jw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	if err := jw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	return nil
}

// Close flushes buffered data and closes the journal file.
func (jw *JournalWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := jw.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal file: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the journal file.
func (jw *JournalWriter) Path() string {
	return jw.path
}

// JournalReader reads journal entries from a JSONL file.
type JournalReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewJournalReader opens the journal at path.
func NewJournalReader(path string) (*JournalReader, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	// Collision lists can make long lines
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	return &JournalReader{file: file, scanner: scanner}, nil
}

// Read reads the next entry. Returns io.EOF when no more entries are available.
func (jr *JournalReader) Read() (*JournalEntry, error) {
	if !jr.scanner.Scan() {
		if err := jr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		return nil, io.EOF
	}

	var entry JournalEntry
	if err := json.Unmarshal(jr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal entry: %w", err)
	}
	return &entry, nil
}

// ReadAll reads all remaining entries.
func (jr *JournalReader) ReadAll() ([]JournalEntry, error) {
	var entries []JournalEntry
	for {
		entry, err := jr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Close closes the journal reader.
func (jr *JournalReader) Close() error {
	if err := jr.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal file: %w", err)
	}
	return nil
}

// DeleteJournal removes the journal file. Returns nil if it doesn't exist.
func DeleteJournal(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal file: %w", err)
	}
	return nil
}
