package triage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// DefaultLogName is the durable log kept inside each source folder.
const DefaultLogName = "cull_log.json"

type logFile struct {
	ProcessedFiles []string `json:"processed_files"`
}

// SessionLog is the set of filenames already triaged for one folder.
// Persistence failures are logged and swallowed; the in-memory set stays authoritative.
type SessionLog struct {
	path    string
	names   map[string]struct{}
	logger  *slog.Logger
	warned  bool
	lastErr error
}

// LoadSessionLog reads the log stored at dir/name. A missing or malformed
// file yields an empty log.
func LoadSessionLog(dir, name string, logger *slog.Logger) *SessionLog {
	if name == "" {
		name = DefaultLogName
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &SessionLog{
		path:   filepath.Join(dir, name),
		names:  make(map[string]struct{}),
		logger: logger,
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.warn("read session log", err)
		}
		return l
	}

	var payload logFile
	if err := json.Unmarshal(data, &payload); err != nil {
		l.warn("parse session log", err)
		return l
	}
	for _, n := range payload.ProcessedFiles {
		if n != "" {
			l.names[n] = struct{}{}
		}
	}
	return l
}

func (l *SessionLog) Path() string { return l.path }

func (l *SessionLog) Len() int { return len(l.names) }

func (l *SessionLog) Contains(name string) bool {
	_, ok := l.names[name]
	return ok
}

// Names returns the logged filenames in sorted order.
func (l *SessionLog) Names() []string {
	out := make([]string, 0, len(l.names))
	for n := range l.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (l *SessionLog) Add(name string) {
	if l.Contains(name) {
		return
	}
	l.names[name] = struct{}{}
	l.Save()
}

func (l *SessionLog) Remove(name string) {
	if !l.Contains(name) {
		return
	}
	delete(l.names, name)
	l.Save()
}

// Err returns the most recent save failure, or nil after a successful save.
func (l *SessionLog) Err() error { return l.lastErr }

// Save writes the full set through a temp file and rename, so a crash leaves
// either the old or the new log.
func (l *SessionLog) Save() {
	l.lastErr = l.write()
	if l.lastErr != nil {
		l.warn("save session log", l.lastErr)
	}
}

// Reset forgets every entry and removes the log file.
func (l *SessionLog) Reset() error {
	l.names = make(map[string]struct{})
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", l.path, err)
	}
	return nil
}

func (l *SessionLog) write() error {
	data, err := json.MarshalIndent(logFile{ProcessedFiles: l.Names()}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, ".cull-log-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return replaceFile(tmp.Name(), l.path)
}

// warn logs the first persistence problem loudly and the rest quietly.
func (l *SessionLog) warn(msg string, err error) {
	if !l.warned {
		l.warned = true
		l.logger.Warn(msg+"; continuing without resumability", slog.String("path", l.path), slog.Any("error", err))
		return
	}
	l.logger.Debug(msg, slog.String("path", l.path), slog.Any("error", err))
}
