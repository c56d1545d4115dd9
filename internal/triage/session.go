package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"cull/pkg/imgutil"
)

// SessionConfig fixes the behaviour of a session at construction.
type SessionConfig struct {
	Strategy    Strategy
	LogName     string
	DrainOnExit bool
	// LockFolder takes an exclusive lock on each loaded folder.
	LockFolder bool
}

// Session walks the pending images of one folder. All methods must be
// called from a single goroutine; only the queue is shared with the worker.
type Session struct {
	queue  *Queue
	cfg    SessionConfig
	logger *slog.Logger

	folder      string
	entries     []ImageEntry
	cursor      int
	history     []HistoryRecord
	log         *SessionLog
	lock        *FolderLock
	folderTotal int
	lastAction  string
	lastError   string

	// restoring maps a source path to the undo job moving its file back.
	restoring map[string]uint64
}

func NewSession(queue *Queue, cfg SessionConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyMove
	}
	if cfg.LogName == "" {
		cfg.LogName = DefaultLogName
	}
	return &Session{
		queue:     queue,
		cfg:       cfg,
		logger:    logger.With(slog.String("session_id", uuid.NewString())),
		restoring: make(map[string]uint64),
	}
}

func (s *Session) Folder() string     { return s.folder }
func (s *Session) Strategy() Strategy { return s.cfg.Strategy }

// LoadFolder scans path for images and starts a fresh session over the ones
// not yet in the folder's log. If the folder cannot be read the current
// session is left as it was.
func (s *Session) LoadFolder(path string) (LoadResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	names, err := scanImages(abs)
	if err != nil {
		return LoadResult{}, err
	}

	var lock *FolderLock
	if s.cfg.LockFolder && (s.lock == nil || s.folder != abs) {
		lock, err = AcquireFolderLock(abs)
		if err != nil {
			return LoadResult{}, err
		}
		if relErr := s.lock.Release(); relErr != nil {
			s.logger.Warn("release folder lock", slog.String("folder", s.folder), slog.Any("error", relErr))
		}
		s.lock = lock
	}

	log := LoadSessionLog(abs, s.cfg.LogName, s.logger)
	entries := make([]ImageEntry, 0, len(names))
	scanned := make(map[string]struct{}, len(names))
	for _, name := range names {
		scanned[name] = struct{}{}
		if log.Contains(name) {
			continue
		}
		entries = append(entries, ImageEntry{Name: name, Path: filepath.Join(abs, name), State: Pending})
	}

	total := len(names)
	for _, name := range log.Names() {
		if _, ok := scanned[name]; !ok {
			total++
		}
	}

	s.folder = abs
	s.entries = entries
	s.cursor = 0
	s.history = nil
	s.log = log
	s.folderTotal = total
	s.restoring = make(map[string]uint64)
	s.lastAction = ""
	s.lastError = ""

	res := LoadResult{Folder: abs, Pending: len(entries), Total: total}
	switch {
	case len(entries) > 0:
		res.Outcome = OutcomeReady
	case total > 0:
		res.Outcome = OutcomeNothingToDo
	default:
		res.Outcome = OutcomeNoImages
	}

	s.logger.Info("folder loaded",
		slog.String("folder", abs),
		slog.Int("pending", res.Pending),
		slog.Int("total", res.Total),
		slog.String("outcome", res.Outcome.String()),
		slog.String("strategy", string(s.cfg.Strategy)),
	)
	return res, nil
}

// Current returns the entry under the cursor, or false once every entry
// has been triaged.
func (s *Session) Current() (ImageEntry, bool) {
	if s.cursor >= len(s.entries) {
		return ImageEntry{}, false
	}
	return s.entries[s.cursor], true
}

// Commit records action for the current entry and schedules the file
// operation. It never waits for the file operation.
func (s *Session) Commit(action Action) (CommitResult, error) {
	if s.cursor >= len(s.entries) {
		return CommitNoop, nil
	}
	if action.Dir() == "" {
		return CommitNoop, fmt.Errorf("unknown action %d", action)
	}

	entry := s.entries[s.cursor]
	if !fileExists(entry.Path) && !s.restorePending(entry.Path) {
		s.entries = append(s.entries[:s.cursor], s.entries[s.cursor+1:]...)
		s.lastError = fmt.Sprintf("%s not found at source; removed from list", entry.Name)
		s.logger.Warn("source vanished before commit", slog.String("file", entry.Name))
		return CommitDropped, nil
	}

	dest := filepath.Join(s.folder, action.Dir(), entry.Name)
	op := OpMove
	if s.cfg.Strategy == StrategyCopy {
		op = OpCopy
	}

	s.history = append(s.history, HistoryRecord{
		Name:     entry.Name,
		Action:   action,
		Strategy: s.cfg.Strategy,
		Source:   entry.Path,
		Dest:     dest,
		Cursor:   s.cursor,
	})
	s.log.Add(entry.Name)

	id, err := s.queue.Enqueue(CommitJob{Op: op, Name: entry.Name, Source: entry.Path, Dest: dest})
	if err != nil {
		s.history = s.history[:len(s.history)-1]
		s.log.Remove(entry.Name)
		return CommitNoop, fmt.Errorf("commit %s: %w", entry.Name, err)
	}
	s.history[len(s.history)-1].JobID = id
	delete(s.restoring, entry.Path)

	s.entries[s.cursor].State = Committed
	s.cursor++
	s.lastAction = fmt.Sprintf("%s: %s", strings.ToUpper(action.String()), entry.Name)
	return CommitQueued, nil
}

// Undo reverses the most recent commit. The reversal runs on the same queue
// as the commit, so it always executes after it.
func (s *Session) Undo() (bool, error) {
	if len(s.history) == 0 {
		return false, nil
	}
	rec := s.history[len(s.history)-1]

	if !s.queue.Failed(rec.JobID) {
		job := CommitJob{Name: rec.Name, Undo: true, Reverses: rec.JobID}
		switch rec.Strategy {
		case StrategyCopy:
			job.Op = OpRemove
			job.Dest = rec.Dest
		default:
			job.Op = OpMove
			job.Source = rec.Dest
			job.Dest = rec.Source
		}
		id, err := s.queue.Enqueue(job)
		if err != nil {
			return false, fmt.Errorf("undo %s: %w", rec.Name, err)
		}
		if job.Op == OpMove {
			s.restoring[rec.Source] = id
		}
	}

	s.history = s.history[:len(s.history)-1]
	s.log.Remove(rec.Name)
	s.cursor = rec.Cursor
	s.entries[s.cursor].State = Undone
	s.lastAction = "UNDO: " + rec.Name
	return true, nil
}

// HandleEvent folds a queue event into the session status. A failed commit
// takes its file back out of the log, since it was never placed.
func (s *Session) HandleEvent(ev Event) {
	if ev.Err == nil {
		return
	}
	if ev.Job.Undo {
		s.lastError = fmt.Sprintf("undo failed for %s: %v", ev.Job.Name, ev.Err)
		return
	}
	s.lastError = fmt.Sprintf("%s failed for %s: %v", ev.Job.Op, ev.Job.Name, ev.Err)
	for _, rec := range s.history {
		if rec.JobID == ev.Job.ID && s.log != nil {
			s.log.Remove(rec.Name)
			break
		}
	}
}

// restorePending reports whether an undo is still due to move a file back
// to path.
func (s *Session) restorePending(path string) bool {
	id, ok := s.restoring[path]
	return ok && !s.queue.Finished(id)
}

func (s *Session) PendingWriteCount() int {
	return s.queue.Pending()
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Folder:       s.folder,
		SessionDone:  s.cursor,
		SessionTotal: len(s.entries),
		FolderTotal:  s.folderTotal,
		LastAction:   s.lastAction,
		LastError:    s.lastError,
		PendingJobs:  s.queue.Pending(),
	}
	if s.log != nil {
		snap.Triaged = s.log.Len()
	}
	cur, ok := s.Current()
	snap.Current = cur
	snap.Complete = !ok
	return snap
}

// Close shuts down the queue, draining it if configured, and releases the
// folder lock. Outstanding events are folded into the session, and any
// commit that failed or never ran is taken back out of the log. It returns
// how many jobs never ran.
func (s *Session) Close(ctx context.Context) (int, error) {
	dropped, err := s.queue.Close(ctx, s.cfg.DrainOnExit)
	for ev := range s.queue.Events() {
		s.HandleEvent(ev)
	}
	if s.log != nil {
		for _, rec := range s.history {
			if s.queue.Failed(rec.JobID) || !s.queue.Finished(rec.JobID) {
				s.log.Remove(rec.Name)
			}
		}
	}
	if relErr := s.lock.Release(); relErr != nil {
		err = errors.Join(err, relErr)
	}
	s.lock = nil
	return dropped, err
}

// scanImages lists supported images directly inside dir, sorted
// case-insensitively.
func scanImages(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", dir, err)
	}

	var names []string
	for _, d := range dirents {
		if d.IsDir() || !imgutil.IsSupportedName(d.Name()) {
			continue
		}
		if !d.Type().IsRegular() && !fileExists(filepath.Join(dir, d.Name())) {
			continue
		}
		names = append(names, d.Name())
	}

	sort.SliceStable(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li != lj {
			return li < lj
		}
		return names[i] < names[j]
	})
	return names, nil
}
